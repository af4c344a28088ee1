// Package cmd is the tasks command line: a cobra root with list, show,
// create, update, delete and complete subcommands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/querycache/internal/config"
	"github.com/unkn0wn-root/querycache/tasks"
)

// Version is set at build time
var Version = "dev"

// Options inject configuration sources, mainly for tests.
type Options struct {
	ConfigPath string
	// Env replaces the process environment when non-nil.
	Env map[string]string
}

// Execute runs the CLI with the given arguments and IO writers and returns
// the exit code.
func Execute(args []string, stdout, stderr io.Writer, opts *Options) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := NewTasks(stdout, stderr, opts)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		printError(stderr, err)
		return 1
	}
	return 0
}

func printError(w io.Writer, err error) {
	var ve *tasks.ValidationError
	if errors.As(err, &ve) {
		_, _ = fmt.Fprintln(w, "Error: invalid task")
		names := make([]string, 0, len(ve.Fields))
		for k := range ve.Fields {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			_, _ = fmt.Fprintf(w, "  %s: %s\n", k, ve.Fields[k])
		}
		return
	}
	_, _ = fmt.Fprintln(w, "Error:", err)
}

// runner carries what every subcommand shares.
type runner struct {
	stdout, stderr io.Writer
	opts           Options
	configPath     string
	json           bool
}

// NewTasks creates the root command with injectable IO
func NewTasks(stdout, stderr io.Writer, opts *Options) *cobra.Command {
	r := &runner{stdout: stdout, stderr: stderr}
	if opts != nil {
		r.opts = *opts
	}

	cmd := &cobra.Command{
		Use:           "tasks",
		Short:         "A cached client for the task service",
		Long:          "tasks lists, shows and edits tasks on a task service, caching reads with stale-while-revalidate semantics.",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.PersistentFlags().StringVar(&r.configPath, "config", r.opts.ConfigPath, "path to config file (default "+config.DefaultPath()+")")
	cmd.PersistentFlags().BoolVar(&r.json, "json", false, "print JSON instead of text")

	cmd.AddCommand(
		newListCmd(r),
		newShowCmd(r),
		newCreateCmd(r),
		newUpdateCmd(r),
		newDeleteCmd(r),
		newCompleteCmd(r),
	)
	return cmd
}

func (r *runner) loadConfig() (*config.Config, error) {
	if r.opts.Env != nil {
		return config.LoadWithEnv(r.configPath, r.opts.Env)
	}
	return config.Load(r.configPath)
}

// withApp builds the cache stack for one command and tears it down after.
func (r *runner) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := r.loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, r.stderr)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))
	return fn(ctx, a)
}
