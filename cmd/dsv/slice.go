package main

import (
	"github.com/spf13/cobra"

	"github.com/shapestone/shape-dsv/pkg/dsv"
)

type sliceFlags struct {
	start      int
	max        int
	withHeader bool
}

func newSliceCmd(a *app) *cobra.Command {
	f := &sliceFlags{}
	cmd := &cobra.Command{
		Use:   "slice FILE",
		Short: "Copy a range of records verbatim",
		Long: `Copy a range of records verbatim.

The records are written exactly as they appear in the input, skipping the
first --start data records and stopping after --max (0 copies the rest).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.slice(cmd, args[0], f)
		},
	}
	cmd.Flags().IntVar(&f.start, "start", 0, "data records to skip")
	cmd.Flags().IntVar(&f.max, "max", 0, "data records to copy")
	cmd.Flags().BoolVar(&f.withHeader, "with-header", false, "write the column names first")
	return cmd
}

func (a *app) slice(cmd *cobra.Command, path string, f *sliceFlags) error {
	if f.start < 0 || f.max < 0 {
		return &dsv.OptionsError{Field: "start", Message: "--start and --max must not be negative"}
	}
	r, err := a.openReader(path, cmd.InOrStdin(), a.readOptions())
	if err != nil {
		return err
	}
	defer r.Close()

	if f.start > 0 {
		skipped, err := r.SkipBatch(f.start)
		if err != nil {
			return err
		}
		a.log.Debug("skipped", "records", skipped)
	}

	out := cmd.OutOrStdout()
	header := f.withHeader
	remaining := f.max
	for !r.IsComplete() {
		n := defaultBatchSize
		if f.max > 0 {
			if remaining == 0 {
				break
			}
			n = min(n, remaining)
		}
		b, err := r.Batch(n, dsv.ReadRaw)
		if err != nil {
			return err
		}
		// The column names are known once the first batch is read.
		if header {
			header = false
			if err := a.writeHeader(cmd, r); err != nil {
				return err
			}
		}
		if _, err := out.Write(b.Raw); err != nil {
			return err
		}
		remaining -= b.Count
	}
	return nil
}

// writeHeader writes the reader's column names in its own dialect.
func (a *app) writeHeader(cmd *cobra.Command, r *dsv.Reader) error {
	cols := r.ColumnNames()
	if len(cols) == 0 {
		return nil
	}
	opts := dsv.Options{
		Header:  dsv.Bool(false),
		Dialect: r.Dialect().Format(),
	}
	text, err := dsv.Generate([][]string{cols}, opts)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write([]byte(text))
	return err
}
