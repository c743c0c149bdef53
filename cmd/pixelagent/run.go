package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/BaSui01/pixelagent/agent"
	"github.com/BaSui01/pixelagent/client"
	"github.com/BaSui01/pixelagent/config"
	"github.com/BaSui01/pixelagent/internal/metrics"
	"github.com/BaSui01/pixelagent/internal/server"
	"github.com/BaSui01/pixelagent/ledger"
	"github.com/BaSui01/pixelagent/routine"
	"github.com/BaSui01/pixelagent/scheduler"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// 🏃 run 命令
// =============================================================================

func newRunCommand(root *rootOptions) *cobra.Command {
	var (
		routinePath string
		wire        wireOptions
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a routine under the session scheduler",
		Long:  "Log in, repeat the routine and roll the session checkpoints after every iteration until the session budget is used up.",
		Example: `  pixelagent run --config config.yaml --routine routines/mine.yaml
  pixelagent run --routine routines/mine.yaml --dry-run --screen shot.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if routinePath == "" {
				routinePath = cfg.Agent.Routine
			}
			if routinePath == "" {
				return usageError("--routine or agent.routine is required")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runAgent(ctx, cmd.OutOrStdout(), cfg, logger, routinePath, wire)
		},
	}
	cmd.Flags().StringVarP(&routinePath, "routine", "r", "", "routine file (YAML or JSON); defaults to agent.routine")
	cmd.Flags().BoolVar(&wire.dryRun, "dry-run", false, "record input events instead of sending them")
	cmd.Flags().StringVar(&wire.screen, "screen", "", "read frames from this screenshot instead of the display")
	return cmd
}

func runAgent(ctx context.Context, out io.Writer, cfg *config.Config, logger *zap.Logger, routinePath string, wire wireOptions) (err error) {
	logger.Info("starting pixelagent",
		zap.String("version", Version),
		zap.String("git_commit", GitCommit),
		zap.String("routine", routinePath),
		zap.Bool("dry_run", wire.dryRun))

	rt, err := routine.NewYAMLLoader().LoadFile(routinePath)
	if err != nil {
		return err
	}

	st, err := buildStack(ctx, cfg, logger, wire)
	if err != nil {
		return err
	}
	store, err := ledger.New(cfg.Ledger, logger)
	if err != nil {
		st.Close(context.WithoutCancel(ctx))
		return err
	}
	defer func() {
		if cerr := shutdown(context.WithoutCancel(ctx), st, store.Close); cerr != nil {
			logger.Warn("shutdown", zap.Error(cerr))
		}
	}()

	if err := st.needles.Preload(client.StartupNeedles()...); err != nil {
		return err
	}

	account := client.NewAccount(st.client, client.NewFileCredentials(cfg.Credentials),
		client.AccountConfigFrom(cfg.Session), client.WithLogger(logger))

	// 预算用完时 Tick 返回 OutcomeFinished，Runner 随即返回，进程以 0 退出
	sched, err := scheduler.New(scheduler.ConfigFrom(cfg.Session), account,
		scheduler.WithLedger(store),
		scheduler.WithMetrics(st.metrics),
		scheduler.WithExit(func(int) { logger.Info("session budget exhausted") }),
		scheduler.WithLogger(logger))
	if err != nil {
		return err
	}

	executor := routine.NewExecutor(routine.Deps{
		Query:      st.query,
		Needles:    st.needles,
		Layout:     st.layout,
		Input:      st.humanizer,
		SideStones: st.client,
		Traveler:   st.navigator,
		Maps:       st.maps,
	}, routine.WithMetrics(st.metrics), routine.WithLogger(logger))
	if err := executor.Prepare(rt); err != nil {
		return err
	}

	runner, err := agent.NewRunner(account, executor, rt, sched, agent.ConfigFrom(cfg.Session, cfg.Agent),
		agent.WithLogger(logger))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServing := context.WithCancel(gctx)
	defer stopServing()

	if cfg.Metrics.Enabled {
		srv := server.NewManager(statusHandler(st.metrics, runner, logger), statusServerConfig(cfg.Metrics), logger)
		g.Go(func() error { return srv.Run(serveCtx) })
	}

	var rep agent.Report
	g.Go(func() error {
		defer stopServing()
		var runErr error
		rep, runErr = runner.Run(gctx)
		return runErr
	})

	err = g.Wait()
	printReport(out, rep, err)
	if wire.dryRun && st.recorder != nil {
		fmt.Fprintf(out, "%s %d input events recorded\n", color.YellowString("dry run:"), len(st.recorder.Events()))
	}
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		logger.Info("interrupted")
		return nil
	}
	return err
}

// statusHandler 只读状态端点
func statusHandler(m *metrics.Collector, runner *agent.Runner, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/status", server.JSON(func() any { return runner.Status() }))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if runner.State() == agent.StateFailed {
			http.Error(w, "failed", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	return server.Chain(mux,
		server.Recovery(logger),
		server.ReadOnly(),
		server.RequestLogger(logger),
	)
}

func statusServerConfig(c config.MetricsConfig) server.Config {
	sc := server.DefaultConfig()
	if c.Addr != "" {
		sc.Addr = c.Addr
	}
	return sc
}

func printReport(out io.Writer, rep agent.Report, err error) {
	label := color.New(color.FgGreen)
	title := color.New(color.FgCyan, color.Bold)
	if err != nil {
		title = color.New(color.FgRed, color.Bold)
	}

	title.Fprintln(out, "session summary")
	label.Fprint(out, "  iterations: ")
	fmt.Fprintf(out, "%d (%d stopped early)\n", rep.Iterations, rep.Stopped)
	label.Fprint(out, "  breaks:     ")
	fmt.Fprintln(out, rep.Breaks)
	label.Fprint(out, "  sessions:   ")
	fmt.Fprintf(out, "%d/%d\n", rep.Schedule.Completed, rep.Schedule.Total)
	if next := rep.Schedule.Pending(); next >= 0 && !rep.Schedule.Done {
		label.Fprint(out, "  next roll:  ")
		fmt.Fprintf(out, "checkpoint %d %s\n", next+1, humanize.Time(rep.Schedule.Checkpoints[next].At))
	}
	if rep.Finished {
		color.New(color.FgGreen).Fprintln(out, "  all sessions completed")
	}
}
