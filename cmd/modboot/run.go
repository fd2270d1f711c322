package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/modboot/internal/application"
	"github.com/vyrodovalexey/modboot/internal/exposure"
	"github.com/vyrodovalexey/modboot/internal/observability"
	"github.com/vyrodovalexey/modboot/internal/registry"
	"github.com/vyrodovalexey/modboot/internal/samples"
)

const tracerShutdownTimeout = 5 * time.Second

// runFlags holds the flags of the run command.
type runFlags struct {
	listen       string
	printMetrics bool
}

func newRunCmd(root *rootFlags) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Configure, initialize and stop the sample application",
		Long: `run builds the sample module graph, configures and initializes it and
prints the resulting service registrations. With --listen the application
stays up serving metrics and probes until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApplication(cmd.Context(), cmd.OutOrStdout(), root, flags)
		},
	}

	cmd.Flags().StringVar(&flags.listen, "listen", getEnvOrDefault("MODBOOT_LISTEN", ""),
		"Serve metrics and probes on this address until interrupted")
	cmd.Flags().BoolVar(&flags.printMetrics, "metrics", getEnvBool("MODBOOT_PRINT_METRICS", false),
		"Print a pipeline metrics summary on exit")

	return cmd
}

func runApplication(ctx context.Context, out io.Writer, root *rootFlags, flags *runFlags) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	tracer, err := initTracer(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), tracerShutdownTimeout)
		defer cancel()
		if shutdownErr := tracer.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error("failed to shutdown tracer", observability.Error(shutdownErr))
		}
	}()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled || flags.printMetrics || flags.listen != "" {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace)
		metrics.SetBuildInfo(version, gitCommit, buildTime)
	}

	app, err := application.New(ctx, samples.NewWebModule(logger),
		application.WithConfig(cfg),
		application.WithLogger(logger),
		application.WithMetrics(metrics),
		application.WithTracer(tracer),
	)
	if err != nil {
		return err
	}

	defer func() {
		if shutdownErr := app.Shutdown(ctx); shutdownErr != nil {
			err = errors.Join(err, shutdownErr)
		}
		if flags.printMetrics {
			printMetricsSummary(out, metrics, cfg.Metrics.Namespace)
		}
	}()

	if err := app.Initialize(ctx); err != nil {
		return err
	}

	printRegistrations(out, app)

	if flags.listen == "" {
		return nil
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(sigCtx, flags.listen, app, metrics, logger)
}

// printRegistrations writes the application summary and its service
// registrations in registration order.
func printRegistrations(out io.Writer, app *application.Application) {
	fmt.Fprintf(out, "application %s (instance %s, environment %s)\n",
		app.Name(), app.InstanceID(), app.Environment().Name)
	if clock, ok := registry.Instance[samples.IClock](app.Registry()); ok {
		fmt.Fprintf(out, "started at %s\n", clock.Now().Format(time.RFC3339))
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CONTRACT\tIMPLEMENTATION\tLIFETIME\tSOURCE")
	for _, reg := range app.Registry().All() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			exposure.TypeName(reg.Contract),
			exposure.TypeName(reg.Implementation),
			reg.Lifetime,
			reg.Source,
		)
	}
	_ = w.Flush()
}
