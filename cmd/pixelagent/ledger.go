package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/BaSui01/pixelagent/ledger"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/hako/durafmt"
	"github.com/spf13/cobra"
)

// =============================================================================
// 📒 ledger 命令
// =============================================================================

func newLedgerCommand(root *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "List recorded session breaks",
		Example: `  pixelagent ledger --config config.yaml
  pixelagent ledger --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, err := ledger.New(cfg.Ledger, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}

			if len(records) == 0 {
				fmt.Fprintln(out, "no breaks recorded")
				return nil
			}
			ref := now()
			for _, r := range records {
				kind := "rolled"
				if r.Forced {
					kind = "forced"
				}
				line := fmt.Sprintf("session %d/%d  checkpoint %d (%s, roll %d)  %s",
					r.Session, r.Total, r.Checkpoint, kind, r.Roll, humanize.RelTime(r.LoggedOutAt, ref, "ago", "from now"))
				if r.Final {
					fmt.Fprintln(out, color.GreenString("%s  final", line))
					continue
				}
				fmt.Fprintf(out, "%s  break %s\n", line, durafmt.Parse(r.Break).LimitFirstN(2))
			}

			sum := ledger.Summarize(records)
			color.New(color.FgCyan).Fprintf(out, "%d breaks (%d forced), %s resting, last %s\n",
				sum.Breaks, sum.Forced, durafmt.Parse(sum.TotalBreak).LimitFirstN(2), sum.Last.Format(time.DateTime))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}
