// Package cli provides the command-line interface for docsum.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/raphaelgruber/docsum/internal/client"
	"github.com/raphaelgruber/docsum/internal/config"
	"github.com/raphaelgruber/docsum/internal/credential"
	"github.com/raphaelgruber/docsum/internal/gateway"
	"github.com/raphaelgruber/docsum/internal/metrics"
	"github.com/raphaelgruber/docsum/internal/notice"
	"github.com/raphaelgruber/docsum/internal/service"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

// app holds everything a command run needs. It is populated by the root
// command's pre-run hook.
type app struct {
	// Global flags
	apiHost   string
	stateFile string
	verbose   bool
	ephemeral bool
	stats     bool

	cfg      config.Config
	logger   *slog.Logger
	closeLog func() error

	session  *credential.Session
	metrics  *metrics.Collector
	client   *client.Client
	accounts *service.AccountService
	tracker  *service.JobTracker

	// notices is the single user-visible message slot every command error
	// is routed through.
	notices notice.Slot
}

// newRootCmd builds the command tree bound to a.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "docsum",
		Short: "Summarize documents with the docsum service",
		Long: `Docsum uploads documents to a summarization service, tracks the
resulting jobs, and fetches finished summaries.

Sign in once with 'docsum login'; the credential is kept in a local state
file and sent with every job request.`,
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.stats && a.metrics != nil {
				printCallStats(cmd.OutOrStdout(), a.metrics.Snapshot())
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.apiHost, "api-host", "", "service base URL (overrides DOCSUM_API_HOST)")
	root.PersistentFlags().StringVar(&a.stateFile, "state-file", "", "credential state file (overrides DOCSUM_STATE_FILE)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVar(&a.ephemeral, "ephemeral", false, "keep the credential in memory only")
	root.PersistentFlags().BoolVar(&a.stats, "stats", false, "print service call statistics after the command")

	root.AddCommand(newLoginCmd(a))
	root.AddCommand(newRegisterCmd(a))
	root.AddCommand(newConfirmCmd(a))
	root.AddCommand(newForgotPasswordCmd(a))
	root.AddCommand(newResetPasswordCmd(a))
	root.AddCommand(newLogoutCmd(a))
	root.AddCommand(newStatusCmd(a))
	root.AddCommand(newSubmitCmd(a))
	root.AddCommand(newJobsCmd(a))
	root.AddCommand(newResultCmd(a))
	root.AddCommand(newWatchCmd(a))

	return root
}

// setup loads configuration and wires the service stack.
func (a *app) setup(cmd *cobra.Command) error {
	a.cfg = config.Load()
	if a.apiHost != "" {
		a.cfg.APIHost = a.apiHost
	}
	if a.stateFile != "" {
		a.cfg.StateFile = a.stateFile
	}

	a.logger, a.closeLog = config.SetupLogger(a.cfg.LogFile, a.cfg.LogLevel, a.verbose)

	var store credential.Store
	if a.ephemeral {
		store = credential.NewMemoryStore()
	} else {
		store = credential.NewFileStore(a.cfg.StateFile, credential.WithLogger(a.logger))
	}
	a.session = credential.NewSession(store)
	a.metrics = metrics.NewCollector()

	gw := gateway.New(a.cfg.APIHost, a.session,
		gateway.WithLogger(a.logger),
		gateway.WithMetrics(a.metrics),
		gateway.WithSlowCallThreshold(a.cfg.SlowCallThreshold),
	)
	a.client = client.New(gw)
	a.accounts = service.NewAccountService(a.client, a.session, a.logger)
	a.tracker = service.NewJobTracker(a.client, a.logger)

	a.logger.Debug("command started", "command", cmd.CommandPath(), "api_host", a.cfg.APIHost)
	return nil
}

func (a *app) close() {
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}

// run executes the command tree with args and renders any failure through
// the notice slot onto errOut.
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	a := &app{}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}

	a.notices.Raise(err)
	msg, _ := a.notices.Current()
	fmt.Fprintf(errOut, "Error: %s\n", msg)
	a.notices.Dismiss()
	return errors.New(msg)
}

// Execute runs the CLI against the process arguments.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}
