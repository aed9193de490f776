package main

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newShowCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "show FILE",
		Short: "Show the first records of a file as a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.show(cmd, args[0], limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "records to show (0 shows all)")
	return cmd
}

func (a *app) show(cmd *cobra.Command, path string, limit int) error {
	r, err := a.openReader(path, cmd.InOrStdin(), a.readOptions())
	if err != nil {
		return err
	}
	defer r.Close()

	records, err := r.ReadBatch(limit)
	if err != nil {
		return err
	}

	var header []string
	if len(records) > 0 && records[0].Associative() {
		header = r.ColumnNames()
	}
	data := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, len(rec.Values))
		for j, v := range rec.Values {
			row[j] = displayValue(v)
		}
		data[i] = row
	}
	renderTable(cmd.OutOrStdout(), header, data)

	if !r.IsComplete() {
		a.log.Info("output truncated", "shown", len(records))
	}
	return nil
}

// displayValue renders a record value for a table cell.
func displayValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case bool:
		return strconv.FormatBool(v)
	case string:
		return v
	}
	return ""
}

func renderTable(w io.Writer, header []string, data [][]string) {
	table := tablewriter.NewWriter(w)
	if len(header) > 0 {
		table.SetHeader(header)
	}
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.AppendBulk(data)
	table.Render()
}

func newFormatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the registered formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formats := a.registry.Formats()
			var data [][]string
			for _, name := range a.registry.Names() {
				d := formats[name].Resolve()
				data = append(data, []string{
					name,
					strconv.Quote(d.Delimiter),
					strconv.Quote(d.Quote),
					strconv.Quote(d.Newline),
					string(d.QuoteMode),
				})
			}
			renderTable(cmd.OutOrStdout(), []string{"NAME", "DELIMITER", "QUOTE", "NEWLINE", "MODE"}, data)
			return nil
		},
	}
}

