package main

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// =============================================================================
// 📋 version 命令
// =============================================================================

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			title := color.New(color.FgCyan, color.Bold)
			label := color.New(color.FgGreen)

			title.Fprintf(out, "pixelagent %s\n", Version)
			label.Fprint(out, "  Build Time: ")
			fmt.Fprintln(out, BuildTime)
			label.Fprint(out, "  Git Commit: ")
			fmt.Fprintln(out, GitCommit)
			label.Fprint(out, "  Go version: ")
			fmt.Fprintln(out, runtime.Version())
			label.Fprint(out, "  OS/Arch:    ")
			fmt.Fprintf(out, "%s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
