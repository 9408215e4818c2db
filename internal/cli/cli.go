package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/lvoegtlin/open-gms-sub000/internal/app"
	"github.com/lvoegtlin/open-gms-sub000/internal/config"
	"github.com/lvoegtlin/open-gms-sub000/internal/ctxlog"
	"github.com/lvoegtlin/open-gms-sub000/internal/forest"
	"github.com/lvoegtlin/open-gms-sub000/internal/session"
	"github.com/lvoegtlin/open-gms-sub000/internal/store"
	"github.com/spf13/cobra"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) error {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// flags are the persistent options shared by every subcommand.
type flags struct {
	configPath string
	logLevel   string
	logFormat  string
	workers    int
}

// runner carries the resolved app between the pre-run hook and a
// subcommand.
type runner struct {
	stdout io.Writer
	stderr io.Writer
	flags  flags
	app    *app.App
}

// NewRootCommand builds the gms command tree. Results go to stdout, logs
// to stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	r := &runner{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:   "gms",
		Short: "Annotate page graphs with scribbles",
		Long: `gms builds a partitioned graph from the feature points of a scanned page
and replays annotation gestures against it: scribbles that cut edges,
label regions or remove labels.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return r.setup(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&r.flags.configPath, "config", "c", "", "Path to an HCL session file.")
	pf.StringVar(&r.flags.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVar(&r.flags.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.IntVar(&r.flags.workers, "workers", 0, "Number of hull workers. 0 keeps the configured value.")

	root.AddCommand(r.buildCommand(), r.replayCommand(), r.statsCommand())
	return root
}

// setup resolves the configuration: file, then environment, then flags.
func (r *runner) setup(cmd *cobra.Command) error {
	fs := cmd.Flags()
	if fs.Changed("log-level") {
		switch strings.ToLower(r.flags.logLevel) {
		case "debug", "info", "warn", "error":
		default:
			return usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
		}
	}
	if fs.Changed("log-format") {
		switch strings.ToLower(r.flags.logFormat) {
		case "text", "json":
		default:
			return usageError("invalid log-format: must be 'text' or 'json'")
		}
	}

	bootstrap := slog.New(slog.NewTextHandler(r.stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg, err := config.Load(ctxlog.WithLogger(cmd.Context(), bootstrap), r.flags.configPath)
	if err != nil {
		return &ExitError{Code: 1, Message: err.Error()}
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = strings.ToLower(r.flags.logLevel)
	}
	if fs.Changed("log-format") {
		cfg.Log.Format = strings.ToLower(r.flags.logFormat)
	}
	if fs.Changed("workers") {
		if r.flags.workers < 1 {
			return usageError("invalid workers: must be positive")
		}
		cfg.Session.Workers = r.flags.workers
	}
	if r.app, err = app.New(r.stderr, cfg); err != nil {
		return usageError("%v", err)
	}
	return nil
}

func (r *runner) buildCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "build <points.json>",
		Short: "Build a pruned forest from a point list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := store.ReadFile(args[0], func(rd io.Reader) (*forest.Forest, error) {
				return r.app.Build(cmd.Context(), rd)
			})
			if err != nil {
				return err
			}
			return r.write(out, func(w io.Writer) error { return store.SaveForest(w, f) })
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "-", "Where to write the forest. '-' is stdout.")
	return cmd
}

func (r *runner) replayCommand() *cobra.Command {
	var (
		regionsOut string
		forestOut  string
		healthAddr string
		strict     bool
	)
	cmd := &cobra.Command{
		Use:   "replay <forest.json> <gestures.json>",
		Short: "Apply recorded gestures to a forest and export the regions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := store.ReadFile(args[0], store.LoadForest)
			if err != nil {
				return err
			}
			gestures, err := store.ReadFile(args[1], session.ReadGestures)
			if err != nil {
				return err
			}
			if healthAddr != "" {
				if _, err := r.app.StartHealthCheckServer(healthAddr); err != nil {
					return err
				}
			}
			res, err := r.app.Replay(ctx, f, gestures)
			if err != nil {
				return err
			}
			if err := r.write(regionsOut, func(w io.Writer) error { return store.ExportRegions(w, res.Regions) }); err != nil {
				return err
			}
			if forestOut != "" {
				if err := r.write(forestOut, func(w io.Writer) error { return store.SaveForest(w, res.Forest) }); err != nil {
					return err
				}
			}
			if strict && res.Failed > 0 {
				return &ExitError{Code: 1, Message: fmt.Sprintf("%d of %d gestures failed", res.Failed, len(gestures))}
			}
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&regionsOut, "regions", "r", "-", "Where to write the exported regions. '-' is stdout.")
	fs.StringVar(&forestOut, "forest-out", "", "Also write the edited forest here.")
	fs.StringVar(&healthAddr, "healthcheck-addr", "", "Serve /health on this address while replaying.")
	fs.BoolVar(&strict, "strict", false, "Exit non-zero when any gesture failed.")
	return cmd
}

func (r *runner) statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <forest.json>",
		Short: "Load a forest and print its partition statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := store.ReadFile(args[0], store.LoadForest)
			if err != nil {
				return err
			}
			st, err := r.app.Stats(cmd.Context(), f)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(r.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		},
	}
}

func (r *runner) write(path string, fn func(io.Writer) error) error {
	if path == "-" {
		return fn(r.stdout)
	}
	return store.WriteFile(path, fn)
}

// Execute runs the command line in args. Flag and argument mistakes come
// back as an *ExitError with code 2.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := NewRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError("%v", err)
	})
	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	if cmd != nil && (strings.Contains(err.Error(), "arg(s)") || strings.HasPrefix(err.Error(), "unknown command")) {
		return usageError("%v\n\n%s", err, cmd.UsageString())
	}
	return err
}
