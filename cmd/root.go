// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/eonpatapon/contrail-gremlin/internal/config"
	"github.com/eonpatapon/contrail-gremlin/internal/observability"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// flagBindings maps root flags onto configuration keys.
var flagBindings = map[string]string{
	"checks":           "fsck.checks",
	"tests":            "fsck.tests",
	"clean":            "fsck.clean",
	"loop":             "fsck.loop",
	"loop-interval":    "fsck.loop_interval",
	"output":           "fsck.output",
	"output-file":      "fsck.output_file",
	"check-timeout":    "fsck.check_timeout",
	"json":             "json",
	"gremlin-server":   "graph.endpoint",
	"metrics":          "metrics.enabled",
	"metrics-address":  "metrics.address",
	"metrics-prefix":   "metrics.prefix",
	"remediation-mode": "remediation.mode",
	"api-url":          "remediation.api_url",
}

// NewRootCommand builds a pristine command tree with its own viper instance,
// so tests and repeated executions never share flag or config state.
func NewRootCommand() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)
	var (
		cfgFile string
		cfg     *config.Config
	)

	rootCmd := &cobra.Command{
		Use:   "gremlin-fsck",
		Short: "Checks and optionally cleans Contrail API inconsistencies",
		Long: `gremlin-fsck runs consistency checks over the Contrail resource graph
served by a Gremlin server, reports what it finds, and can repair it.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initializeConfig(v, cfgFile); err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "gremlin-fsck"})
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			loaded, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "gremlin-fsck"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}
			cfg = loaded
			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Debug("Starting gremlin-fsck", zap.String("version", Version))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, cmd.OutOrStdout(), observability.GetLogger())
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	pflags := rootCmd.PersistentFlags()
	pflags.StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")

	flags := rootCmd.Flags()
	flags.StringSlice("checks", nil, "Name of checks to run (default: all)")
	flags.StringSlice("tests", nil, `Name of tests to run, "all" for every test`)
	flags.Bool("clean", false, "Run cleans on flagged resources")
	flags.Bool("loop", false, "Run in loop")
	flags.Float64("loop-interval", 300, "Interval between loops in seconds")
	flags.StringP("output", "o", config.OutputText, "Output format (text or json)")
	flags.String("output-file", "", "Append reports to this file instead of stdout")
	flags.Bool("json", false, "Shorthand for --output json")
	flags.Duration("check-timeout", 0, "Abort a check running longer than this (0 disables)")
	flags.String("gremlin-server", "localhost:8182", "Graph endpoint (host:port, ws://, postgres:// or memory://)")
	flags.Bool("metrics", false, "Serve Prometheus metrics while looping")
	flags.String("metrics-address", ":9111", "Metrics listen address")
	flags.String("metrics-prefix", "gremlin_fsck", "Metric name prefix")
	flags.String("remediation-mode", config.RemediationAPI, "How cleans delete resources (api or graph)")
	flags.String("api-url", "http://localhost:8082", "Contrail config API used by cleans")

	for flag, key := range flagBindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", flag, err))
		}
	}

	rootCmd.AddCommand(newListCmd(), newVersionCmd())
	return rootCmd
}

// Execute runs the command line under ctx. A cancelled context is a clean
// shutdown and is not logged.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
	}
	observability.Sync()
	return err
}

// initializeConfig wires the config file and environment into v.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		path, err := homedir.Expand(cfgFile)
		if err != nil {
			return fmt.Errorf("invalid config path %q: %w", cfgFile, err)
		}
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "gremlin-fsck"))
		}
		v.AddConfigPath("/etc/gremlin-fsck")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}
