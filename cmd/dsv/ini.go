package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shapestone/shape-dsv/pkg/dsv"
	"github.com/shapestone/shape-dsv/pkg/ini"
)

type iniFlags struct {
	flat       bool
	topSection string
	to         string
	output     string
}

func newIniCmd(a *app) *cobra.Command {
	f := &iniFlags{}
	cmd := &cobra.Command{
		Use:   "ini FILE",
		Short: "Show or convert an INI document",
		Long: `Show or convert an INI document.

By default every value is listed with its dotted key. --to writes the
key/value pairs as records in a registered format; --output rewrites the
document as INI, compressed when the path ends in .gz or .zst.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.ini(cmd, args[0], f)
		},
	}
	cmd.Flags().BoolVar(&f.flat, "flat", false, "keep dotted keys instead of nesting them")
	cmd.Flags().StringVar(&f.topSection, "top-section", "general", "section name that returns to the top level")
	cmd.Flags().StringVarP(&f.to, "to", "t", "", "write key/value records in this format")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "write the document as INI to this file")
	return cmd
}

func (a *app) ini(cmd *cobra.Command, path string, f *iniFlags) error {
	popts := ini.DefaultParserOptions()
	popts.Hierarchy = !f.flat
	popts.TopSection = f.topSection

	var (
		doc *ini.Map
		err error
	)
	if path == stdinPath {
		var content []byte
		content, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return err
		}
		doc, err = ini.Parse(string(content), popts)
	} else {
		doc, err = ini.Read(path, popts)
	}
	if err != nil {
		return err
	}
	a.log.Debug("parsed ini", "path", path, "keys", doc.Len())

	if f.output != "" {
		return ini.Write(f.output, doc, ini.DefaultGeneratorOptions())
	}

	pairs := flattenINI(doc, "", nil)
	if f.to != "" {
		rows := make([][]string, len(pairs))
		for i, p := range pairs {
			rows[i] = []string{p.key, p.value}
		}
		opts := a.writeOptions(f.to)
		opts.ColumnNames = []string{"key", "value"}
		opts.Header = dsv.Bool(true)
		w, err := dsv.NewWriter(cmd.OutOrStdout(), opts)
		if err != nil {
			return err
		}
		if err := w.WriteBatch(rows); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	}

	data := make([][]string, len(pairs))
	for i, p := range pairs {
		data[i] = []string{p.key, p.value}
	}
	renderTable(cmd.OutOrStdout(), []string{"KEY", "VALUE"}, data)
	return nil
}

type iniPair struct {
	key   string
	value string
}

// flattenINI lists the scalar values below v with their dotted keys.
func flattenINI(v any, prefix string, out []iniPair) []iniPair {
	join := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + "." + k
	}
	switch v := v.(type) {
	case *ini.Map:
		if v.Len() == 0 && prefix != "" {
			return append(out, iniPair{key: prefix, value: "[]"})
		}
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			out = flattenINI(pair.Value, join(pair.Key), out)
		}
	case []any:
		if len(v) == 0 {
			return append(out, iniPair{key: prefix, value: "[]"})
		}
		for i, item := range v {
			out = flattenINI(item, join(strconv.Itoa(i)), out)
		}
	default:
		out = append(out, iniPair{key: prefix, value: iniValue(v)})
	}
	return out
}

func iniValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return v
	}
	return fmt.Sprint(v)
}
