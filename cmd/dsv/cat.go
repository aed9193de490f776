package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/shapestone/shape-dsv/pkg/dsv"
)

const defaultBatchSize = 1000

type catFlags struct {
	to        string
	output    string
	append    bool
	batchSize int
}

func newCatCmd(a *app) *cobra.Command {
	f := &catFlags{}
	cmd := &cobra.Command{
		Use:     "cat FILE...",
		Aliases: []string{"convert"},
		Short:   "Concatenate files, converting them to another format",
		Long: `Concatenate files, converting them to another format.

Records are read with --format and written with --to. "-" reads standard
input. Output goes to standard output unless --output is set; an output
path ending in .gz or .zst is compressed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cat(cmd, args, f)
		},
	}
	cmd.Flags().StringVarP(&f.to, "to", "t", "", "output format (default: the input format)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file")
	cmd.Flags().BoolVar(&f.append, "append", false, "append to the output file")
	cmd.Flags().IntVar(&f.batchSize, "batch", defaultBatchSize, "records per batch")
	return cmd
}

func (a *app) cat(cmd *cobra.Command, paths []string, f *catFlags) error {
	wopts := a.writeOptions(f.to)
	wopts.Append = f.append

	var (
		w   *dsv.Writer
		err error
	)
	if f.output == "" {
		w, err = dsv.NewWriter(cmd.OutOrStdout(), wopts)
	} else {
		w, err = dsv.CreateWriter(f.output, wopts)
	}
	if err != nil {
		return err
	}

	for _, path := range paths {
		if err := a.copyRecords(cmd, path, w, f.batchSize); err != nil {
			w.Close()
			return err
		}
	}
	a.log.Debug("wrote", "records", w.RecordIndex(), "output", f.output)
	return w.Close()
}

func (a *app) copyRecords(cmd *cobra.Command, path string, w *dsv.Writer, batchSize int) error {
	start := time.Now()
	r, err := a.openReader(path, cmd.InOrStdin(), a.readOptions())
	if err != nil {
		return err
	}
	defer r.Close()

	for !r.IsComplete() {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		records, err := r.ReadBatch(batchSize)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			continue
		}
		if err := w.WriteBatch(records); err != nil {
			return err
		}
	}
	a.log.Debug("copied", "path", path, "records", r.RecordIndex(), "duration", time.Since(start))
	return nil
}
