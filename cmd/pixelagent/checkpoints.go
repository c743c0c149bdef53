package main

import (
	"context"
	"fmt"
	"time"

	"github.com/BaSui01/pixelagent/scheduler"
	"github.com/fatih/color"
	"github.com/hako/durafmt"
	"github.com/spf13/cobra"
)

// =============================================================================
// ⏱️ checkpoints 命令
// =============================================================================

// now is replaced in tests.
var now = time.Now

// noLogout satisfies scheduler.Logouter for a schedule that is only printed.
type noLogout struct{}

func (noLogout) Logout(context.Context) error { return nil }

func newCheckpointsCommand(root *rootOptions) *cobra.Command {
	var start string
	cmd := &cobra.Command{
		Use:   "checkpoints",
		Short: "Print the checkpoint schedule of a session starting now",
		Example: `  pixelagent checkpoints --config config.yaml
  pixelagent checkpoints --start 2026-05-04T09:00:00Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			at := now()
			if start != "" {
				at, err = time.Parse(time.RFC3339, start)
				if err != nil {
					return usageError("--start: %v", err)
				}
			}

			sched, err := scheduler.New(scheduler.ConfigFrom(cfg.Session), noLogout{})
			if err != nil {
				return err
			}
			st := sched.Start(at)

			s := cfg.Session
			out := cmd.OutOrStdout()
			color.New(color.FgCyan, color.Bold).Fprintf(out, "session 1 of %d from %s\n", st.Total, at.Format(time.DateTime))
			for _, line := range scheduler.Describe(st, at) {
				fmt.Fprintln(out, "  "+line)
			}
			fmt.Fprintf(out, "checkpoints 1-4 break with chance 1/%d, checkpoint 5 with 1/%d\n", s.RollChance, s.ForcedChance)
			fmt.Fprintf(out, "breaks last %s to %s\n",
				durafmt.Parse(s.MinBreak).LimitFirstN(2), durafmt.Parse(s.MaxBreak).LimitFirstN(2))
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "session start (RFC 3339); defaults to now")
	return cmd
}
