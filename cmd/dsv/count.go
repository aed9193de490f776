package main

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newCountCmd(a *app) *cobra.Command {
	var jobs int
	cmd := &cobra.Command{
		Use:   "count FILE...",
		Short: "Count the data records of files",
		Long: `Count the data records of files without decoding their fields.

Files are counted concurrently. With more than one file a total follows.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := a.count(cmd, args, jobs)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			total := 0
			for i, path := range args {
				fmt.Fprintf(out, "%d\t%s\n", counts[i], path)
				total += counts[i]
			}
			if len(args) > 1 {
				fmt.Fprintf(out, "%d\ttotal\n", total)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "files counted at once")
	return cmd
}

// count returns the number of data records in each of paths. Each file gets
// its own reader; the first failure cancels the rest.
func (a *app) count(cmd *cobra.Command, paths []string, jobs int) ([]int, error) {
	counts := make([]int, len(paths))
	g, ctx := errgroup.WithContext(cmd.Context())
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			n, err := a.countFile(ctx, cmd, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

func (a *app) countFile(ctx context.Context, cmd *cobra.Command, path string) (int, error) {
	start := time.Now()
	r, err := a.openReader(path, cmd.InOrStdin(), a.readOptions())
	if err != nil {
		return 0, err
	}
	defer r.Close()

	total := 0
	for !r.IsComplete() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := r.SkipBatch(defaultBatchSize * 10)
		if err != nil {
			return 0, err
		}
		total += n
	}
	a.log.Debug("counted", "path", path, "records", total, "duration", time.Since(start))
	return total, nil
}
