package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BaSui01/pixelagent/navigation"
	"github.com/fatih/color"
	"github.com/hako/durafmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// 🧭 travel 命令
// =============================================================================

func newTravelCommand(root *rootOptions) *cobra.Command {
	var (
		routePath string
		wire      wireOptions
	)
	cmd := &cobra.Command{
		Use:   "travel",
		Short: "Walk a minimap route once",
		Example: `  pixelagent travel --config config.yaml --route routes/bank.yaml
  pixelagent travel --route routes/bank.yaml --dry-run --screen shot.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if routePath == "" {
				return usageError("--route is required")
			}
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			route, err := navigation.LoadRoute(routePath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := buildStack(ctx, cfg, logger, wire)
			if err != nil {
				return err
			}
			defer st.Close(context.WithoutCancel(ctx))

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, color.CyanString("travelling %s (%d waypoints on %s)", route.Name, len(route.Waypoints), route.Map))
			start := time.Now()
			if err := st.navigator.TravelRoute(ctx, route, st.maps); err != nil {
				logger.Error("travel failed", zap.String("route", route.Name), zap.Error(err))
				return err
			}
			fmt.Fprintln(out, color.GreenString("arrived after %s", durafmt.Parse(time.Since(start)).LimitFirstN(2)))
			if st.recorder != nil {
				fmt.Fprintf(out, "%s %d clicks recorded\n", color.YellowString("dry run:"), len(st.recorder.Clicks()))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&routePath, "route", "", "route file (YAML)")
	cmd.Flags().BoolVar(&wire.dryRun, "dry-run", false, "record clicks instead of sending them")
	cmd.Flags().StringVar(&wire.screen, "screen", "", "read frames from this screenshot instead of the display")
	return cmd
}
