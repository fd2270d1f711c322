// Package main is the entry point for the modboot sample host.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/modboot/internal/config"
	"github.com/vyrodovalexey/modboot/internal/observability"
	"github.com/vyrodovalexey/modboot/internal/util"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// rootFlags holds the persistent command line flags.
type rootFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	environment string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "modboot",
		Short: "Modular application bootstrap host",
		Long: `modboot loads a module graph, runs the three-phase configuration
pipeline over it and starts the resulting application.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c",
		getEnvOrDefault("MODBOOT_CONFIG", ""), "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level",
		getEnvOrDefault("MODBOOT_LOG_LEVEL", ""), "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flags.logFormat, "log-format",
		getEnvOrDefault("MODBOOT_LOG_FORMAT", ""), "Log format (json, console)")
	rootCmd.PersistentFlags().StringVar(&flags.environment, "environment",
		getEnvOrDefault("MODBOOT_ENVIRONMENT", ""), "Host environment name")

	rootCmd.AddCommand(
		newRunCmd(flags),
		newContractsCmd(flags),
		newModulesCmd(flags),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "modboot version %s\n", version)
	fmt.Fprintf(w, "  Build time: %s\n", buildTime)
	fmt.Fprintf(w, "  Git commit: %s\n", gitCommit)
}

// loadConfig loads the configuration file, or the defaults when no path
// is given, and applies the flag overrides.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if flags.configPath != "" {
		path, err := config.ResolveConfigPath(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg, err = config.LoadConfig(path)
		if err != nil {
			return nil, util.WrapError(err, "failed to load configuration")
		}
	}

	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Logging.Format = flags.logFormat
	}
	if flags.environment != "" {
		cfg.Application.Environment = flags.environment
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// initLogger creates the logger and installs it globally.
func initLogger(cfg *config.Config) (observability.Logger, error) {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	observability.SetGlobalLogger(logger)
	return logger, nil
}

// initTracer creates the tracer from the tracing configuration.
func initTracer(cfg *config.Config, logger observability.Logger) (*observability.Tracer, error) {
	serviceName := cfg.Tracing.ServiceName
	if serviceName == "" {
		serviceName = cfg.Application.Name
	}

	tracer, err := observability.NewTracer(observability.TracerConfig{
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SamplingRate: cfg.Tracing.SamplingRate,
		Enabled:      cfg.Tracing.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	if cfg.Tracing.Enabled {
		logger.Info("tracing enabled",
			observability.String("endpoint", cfg.Tracing.OTLPEndpoint),
			observability.Float64("samplingRate", cfg.Tracing.SamplingRate),
		)
	}
	return tracer, nil
}
