package main

import (
	"errors"
	"fmt"

	"github.com/BaSui01/pixelagent/config"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errUsage = errors.New("usage")

// rootOptions 是所有子命令共享的全局参数
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "pixelagent",
		Short:         "Pixel-driven desktop agent",
		Long:          color.CyanString("pixelagent - template-matching vision, minimap navigation and checkpointed sessions"),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (YAML); defaults and PIXELAGENT_* env vars apply without one")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "override log.format (json, console)")

	cmd.AddCommand(
		newRunCommand(opts),
		newTravelCommand(opts),
		newLocateCommand(),
		newCheckpointsCommand(opts),
		newLedgerCommand(opts),
		newVersionCommand(),
	)
	return cmd
}

// load reads and validates the configuration and builds the logger.
func (o *rootOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.NewLoader().
		WithConfigPath(o.configPath).
		WithEnvPrefix("PIXELAGENT").
		Load()
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, initLogger(cfg.Log), nil
}

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}
