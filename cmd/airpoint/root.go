package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ayusman/airpoint/internal/config"
	"github.com/ayusman/airpoint/internal/observability"
)

// options is shared by every subcommand. cfg is filled in by the root
// PersistentPreRunE.
type options struct {
	configFile string
	cfg        *config.Config
}

// flagKeys maps command-line flags to configuration keys. A flag only takes
// part when the running command defines it.
var flagKeys = map[string]string{
	"camera":          "camera.index",
	"width":           "camera.width",
	"height":          "camera.height",
	"show":            "camera.show",
	"draw":            "camera.draw",
	"screen-width":    "screen.width",
	"screen-height":   "screen.height",
	"padding":         "mapping.padding",
	"volume":          "volume.enabled",
	"volume-required": "volume.required",
	"idle":            "idle.enabled",
	"server":          "server.enabled",
	"addr":            "server.addr",
	"tray":            "tray.enabled",
	"store":           "store.path",
	"log-level":       "logger.level",
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "airpoint",
		Short: "Control the mouse pointer with hand gestures",
		Long: `Airpoint watches a webcam, tracks one hand and drives the mouse pointer:
move with the open hand, click with index or middle finger, scroll by pointing
and set the volume by pinching thumb and index. A fist pauses everything.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context(), opts.cfg)
		},
	}
	cmd.SetVersionTemplate("airpoint version {{.Version}}\n")
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default ./airpoint.yaml or ~/.airpoint/airpoint.yaml)")
	cmd.PersistentFlags().String("store", "", "session database path")
	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	addRunFlags(cmd.Flags())

	cmd.AddCommand(newRunCmd(opts), newSessionsCmd(opts), newVersionCmd())
	return cmd
}

// load reads the configuration for the running command and starts logging.
func (o *options) load(flags *pflag.FlagSet) error {
	v := config.NewViper(o.configFile)
	if err := bindFlags(v, flags); err != nil {
		return err
	}
	if err := config.ReadInConfig(v); err != nil {
		return err
	}
	cfg, err := config.NewConfigFromViper(v)
	if err != nil {
		return err
	}
	o.cfg = cfg
	observability.InitializeLogger(cfg.Logger)
	observability.GetLogger().Debug("Configuration loaded", zap.String("file", v.ConfigFileUsed()))
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

func execute(ctx context.Context, cmd *cobra.Command) error {
	defer observability.Sync()
	return cmd.ExecuteContext(ctx)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "airpoint version %s\n", Version)
		},
	}
}
