package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shapestone/shape-dsv/pkg/dsv"
)

const (
	envFormats   = "DSV_FORMATS"
	envChunkSize = "DSV_CHUNK_SIZE"
)

// stdinPath names standard input in file arguments.
const stdinPath = "-"

// app holds the state shared by every subcommand.
type app struct {
	format    string
	formats   string
	chunkSize int
	noHeader  bool
	verbose   bool

	registry *dsv.Registry
	log      *slog.Logger
}

// envVar returns an environment variable with surrounding spaces and
// quotes removed.
func envVar(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "dsv",
		Short:         "Read, convert and inspect delimiter-separated files",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.format, "format", "f", dsv.FormatCSV, "input format name, or auto to sniff it")
	flags.StringVar(&a.formats, "formats", "", "YAML or JSON file defining extra formats")
	flags.IntVar(&a.chunkSize, "chunk-size", 0, "bytes requested per read")
	flags.BoolVar(&a.noHeader, "no-header", false, "input has no header row")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log debug output")

	root.AddCommand(
		newCatCmd(a),
		newCountCmd(a),
		newSliceCmd(a),
		newShowCmd(a),
		newFormatsCmd(a),
		newIniCmd(a),
	)
	root.SetUsageTemplate(root.UsageTemplate() + fmt.Sprintf(`
Environment Variables:
      %-24s   %s
      %-24s   %s
`, envFormats, "Formats file used when --formats is not given",
		envChunkSize, "Chunk size used when --chunk-size is not given"))
	return root
}

// setup configures logging, applies environment fallbacks and loads the
// format registry.
func (a *app) setup(cmd *cobra.Command) error {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if a.formats == "" {
		a.formats = envVar(envFormats)
	}
	if a.chunkSize == 0 {
		if s := envVar(envChunkSize); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("%s: %w", envChunkSize, err)
			}
			a.chunkSize = n
		}
	}

	a.registry = dsv.NewRegistry()
	if a.formats != "" {
		if err := a.registry.LoadFile(a.formats); err != nil {
			return err
		}
		a.log.Debug("loaded formats", "path", a.formats, "names", a.registry.Names())
	}
	return nil
}

// readOptions returns the reader configuration selected by the flags.
func (a *app) readOptions() dsv.Options {
	opts := dsv.DefaultOptions()
	opts.Format = a.format
	opts.Registry = a.registry
	if a.chunkSize != 0 {
		opts.ChunkSize = a.chunkSize
	}
	if a.noHeader {
		opts.Header = dsv.Bool(false)
		opts.Associative = dsv.Bool(false)
	}
	return opts
}

// writeOptions returns a writer configuration for the named format. An
// empty name reuses the input format, or csv when that is sniffed.
func (a *app) writeOptions(format string) dsv.Options {
	if format == "" {
		format = a.format
	}
	if format == dsv.FormatAuto {
		format = dsv.FormatCSV
	}
	opts := dsv.DefaultOptions()
	opts.Format = format
	opts.Registry = a.registry
	return opts
}

// openReader opens path, or in when path is "-".
func (a *app) openReader(path string, in io.Reader, opts dsv.Options) (*dsv.Reader, error) {
	var (
		r   *dsv.Reader
		err error
	)
	if path == stdinPath {
		r, err = dsv.NewReader(in, opts)
	} else {
		r, err = dsv.CreateReader(path, opts)
	}
	if err != nil {
		return nil, err
	}
	a.log.Debug("opened", "path", path, "source", r.SourceType(), "dialect", r.Dialect().String())
	return r, nil
}
