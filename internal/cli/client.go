package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/graphwriter/pkg/errors"
)

// errNotRunning makes probe exit non-zero without printing an error.
var errNotRunning = errors.New(errors.ErrCodeUnavailable, "service not running")

// IsSilent reports whether err only carries an exit status and has already
// been reported to the user.
func IsSilent(err error) bool {
	return err == errNotRunning
}

func (c *CLI) submitCommand() *cobra.Command {
	var graph, start bool

	cmd := &cobra.Command{
		Use:   "submit <target> [payload]",
		Short: "Submit a render job",
		Long: `Submit a render job to the service.

A syntax-tree job renders the labeled tree in payload to <target>.png.
With --graph, the service renders the existing file <target>.dot instead
and no payload is given.`,
		Example: `  graphwriter submit /tmp/sentence "[S [NP graphwriter] [VP [V renders] [NP trees]]]"
  graphwriter submit --graph /tmp/network`,
		Args: func(cmd *cobra.Command, args []string) error {
			if graph {
				return cobra.ExactArgs(1)(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cl := c.newClient(loggerFromContext(ctx))
			if start {
				if err := cl.EnsureRunning(ctx); err != nil {
					return err
				}
			}

			target := args[0]
			var err error
			if graph {
				err = cl.SubmitGraph(ctx, target)
			} else {
				err = cl.Submit(ctx, target, args[1])
			}
			if err != nil {
				return err
			}
			printSuccess("job submitted to %s", cl.Addr())
			printFile(target + ".png")
			return nil
		},
	}

	cmd.Flags().BoolVar(&graph, "graph", false, "render <target>.dot with the graph backend")
	cmd.Flags().BoolVar(&start, "start", false, "start the service first if it is not running")
	return cmd
}

func (c *CLI) probeCommand() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Report whether the service is running",
		Long:  `Report whether the service is running. Exits 0 when it is and 1 when it is not.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cl := c.newClient(loggerFromContext(ctx))
			running := cl.Probe(ctx)
			if !quiet {
				printServiceState(cl.Addr(), running)
			}
			if !running {
				return errNotRunning
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print nothing, only set the exit status")
	return cmd
}

func (c *CLI) startCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the service in the background if it is not running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cl := c.newClient(loggerFromContext(ctx))
			if cl.Probe(ctx) {
				printInfo("already running on %s", cl.Addr())
				return nil
			}

			spin := newSpinner(ctx, fmt.Sprintf("starting service on %s", cl.Addr()))
			spin.Start()
			err := cl.EnsureRunning(ctx)
			if err != nil {
				spin.StopWithError("could not start service")
				return err
			}
			if !cl.Probe(ctx) {
				spin.Stop()
				printWarning("service launched but not answering on %s yet", cl.Addr())
				printNextStep("Check the service", "graphwriter serve --verbose")
				return nil
			}
			spin.StopWithSuccess("service running on " + cl.Addr())
			return nil
		},
	}
}

func (c *CLI) stopCommand() *cobra.Command {
	var (
		wait    bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Ask the service to shut down",
		Long: `Send a quit request. The service stops after every job queued before the
request has been taken; with --wait, stop blocks until the service no longer
accepts connections.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cl := c.newClient(loggerFromContext(ctx))
			if err := cl.RequestShutdown(ctx); err != nil {
				if errors.Is(err, errors.ErrCodeUnavailable) {
					printInfo("not running on %s", cl.Addr())
					return nil
				}
				return err
			}
			if !wait {
				printSuccess("shutdown requested")
				return nil
			}

			waitCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			spin := newSpinner(waitCtx, "waiting for the service to stop")
			spin.Start()
			if err := cl.WaitStopped(waitCtx, 100*time.Millisecond); err != nil {
				spin.StopWithError("service still running")
				return errors.Wrap(errors.ErrCodeUnavailable, err, "wait for shutdown")
			}
			spin.StopWithSuccess("service stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "wait until the service has stopped")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "maximum time to wait with --wait")
	return cmd
}
