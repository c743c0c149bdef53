package main

import (
	"fmt"
	"path/filepath"

	"github.com/BaSui01/pixelagent/config"
	"github.com/BaSui01/pixelagent/types"
	"github.com/BaSui01/pixelagent/vision"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// =============================================================================
// 🔍 locate 命令（离线匹配）
// =============================================================================

// errNotFound 表示 locate 的最佳得分低于阈值
var errNotFound = types.NewOperationFailed("needle not found").WithComponent("locate")

func newLocateCommand() *cobra.Command {
	var (
		haystack   string
		needle     string
		confidence float64
		backend    string
		scale      int
	)
	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Match a needle image against a screenshot",
		Long:  "Offline template matching on two image files. Prints the best placement and its score; exits non-zero when the score is below --confidence.",
		Example: `  pixelagent locate --haystack shot.png --needle needles/buttons/ok.png
  pixelagent locate --haystack map.png --needle slice.png --backend pyramid --confidence 0.7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if haystack == "" || needle == "" {
				return usageError("--haystack and --needle are required")
			}
			if confidence <= 0 || confidence > 1 {
				return types.NewConfigurationError("confidence %.3f outside (0, 1]", confidence)
			}
			matcher, err := newMatcher(config.VisionConfig{Backend: backend, PyramidScale: scale, PyramidCandidates: 3})
			if err != nil {
				return err
			}

			hay, err := vision.LoadImageCapture(haystack)
			if err != nil {
				return err
			}
			n, err := vision.NewDirStore(filepath.Dir(needle), nil).Get(filepath.Base(needle))
			if err != nil {
				return err
			}
			frame, err := hay.Capture(cmd.Context(), hay.Bounds())
			if err != nil {
				return err
			}

			loc, score, err := matcher.Match(vision.ToGray(frame), n.Image)
			if err != nil {
				return types.NewConfigurationError("match %s in %s", needle, haystack).WithCause(err)
			}
			rect := types.NewRegion(loc.X, loc.Y, n.Width(), n.Height())

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "best %s score=%.4f threshold=%.2f\n", rect, score, confidence)
			if score < confidence {
				fmt.Fprintln(out, color.RedString("not found"))
				return errNotFound
			}
			fmt.Fprintln(out, color.GreenString("found, center %s", rect.Center()))
			return nil
		},
	}
	cmd.Flags().StringVar(&haystack, "haystack", "", "screenshot to search (png, bmp, webp)")
	cmd.Flags().StringVar(&needle, "needle", "", "needle image")
	cmd.Flags().Float64Var(&confidence, "confidence", 0.9, "minimum score to accept")
	cmd.Flags().StringVar(&backend, "backend", "ncc", "matcher backend (ncc, pyramid)")
	cmd.Flags().IntVar(&scale, "pyramid-scale", 4, "down-scale factor for the pyramid backend")
	return cmd
}
