package application

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/modboot/internal/config"
	"github.com/vyrodovalexey/modboot/internal/exposure"
	"github.com/vyrodovalexey/modboot/internal/modgraph"
	"github.com/vyrodovalexey/modboot/internal/modularity"
	"github.com/vyrodovalexey/modboot/internal/observability"
	"github.com/vyrodovalexey/modboot/internal/registry"
	"github.com/vyrodovalexey/modboot/internal/util"
)

// registrationSource marks registrations made by the application itself.
const registrationSource = "application"

var (
	// ErrNotConfigured is returned when modules are initialized before
	// services were configured.
	ErrNotConfigured = errors.New("services have not been configured")

	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = errors.New("application has already been initialized")
)

// Application hosts a startup module and every module it depends on.
// It loads them in dependency order, configures their services through a
// modularity.Pipeline and drives their initialization and shutdown hooks.
type Application struct {
	name        string
	instanceID  string
	environment *HostEnvironment
	config      *config.Config
	registry    *registry.Registry
	modules     []*modularity.Descriptor
	pipeline    *modularity.Pipeline
	conditions  *ConditionEvaluator

	logger  observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer

	mu          sync.Mutex
	initStarted bool
	initialized int
	filterErr   error
}

type options struct {
	name          string
	environment   string
	config        *config.Config
	logger        observability.Logger
	metrics       *observability.Metrics
	tracer        *observability.Tracer
	registry      *registry.Registry
	skipConfigure bool
	codeUnits     map[reflect.Type][]*modularity.CodeUnit
}

// Option configures an Application.
type Option func(*options)

// WithName sets the application name, overriding configuration.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithEnvironment sets the environment name, overriding configuration.
func WithEnvironment(name string) Option {
	return func(o *options) {
		o.environment = name
	}
}

// WithConfig sets the configuration. Defaults are used when not set.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer *observability.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithRegistry sets the registry services are registered into.
func WithRegistry(r *registry.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithSkipConfigure makes New return without configuring services. The
// caller then runs ConfigureServices itself.
func WithSkipConfigure() Option {
	return func(o *options) {
		o.skipConfigure = true
	}
}

// WithCodeUnits adds code units to the modules of the same type as module.
func WithCodeUnits(module modularity.Module, units ...*modularity.CodeUnit) Option {
	return func(o *options) {
		if module == nil {
			return
		}
		if o.codeUnits == nil {
			o.codeUnits = make(map[reflect.Type][]*modularity.CodeUnit)
		}
		t := reflect.TypeOf(module)
		o.codeUnits[t] = append(o.codeUnits[t], units...)
	}
}

// New creates an application for the startup module. Modules are loaded
// through their DependsOn declarations; modules disabled in configuration
// or whose enabledWhen condition is false are left out.
//
// Unless WithSkipConfigure is given, services are configured before New
// returns.
func New(ctx context.Context, startup modularity.Module, opts ...Option) (*Application, error) {
	if err := util.NotNil(startup, "startup"); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.config == nil {
		o.config = config.DefaultConfig()
	}
	if o.logger == nil {
		o.logger = observability.NopLogger()
	}
	if o.tracer == nil {
		o.tracer = observability.NoopTracer()
	}
	if o.registry == nil {
		o.registry = registry.New(registry.WithLogger(o.logger))
	}

	conditions, err := NewConditionEvaluator()
	if err != nil {
		return nil, err
	}

	envName := o.environment
	if envName == "" {
		envName = o.config.Application.Environment
	}

	a := &Application{
		name:        resolveName(o.name, o.config.Application.Name),
		instanceID:  uuid.NewString(),
		environment: &HostEnvironment{Name: envName},
		config:      o.config,
		registry:    o.registry,
		conditions:  conditions,
		logger:      o.logger,
		metrics:     o.metrics,
		tracer:      o.tracer,
	}

	ctx = a.Context(ctx)
	logger := a.logger.WithContext(ctx)

	a.modules, err = modgraph.Load(startup,
		modgraph.WithFilter(a.moduleEnabled),
		modgraph.WithDescriptorOptions(func(m modularity.Module) []modularity.DescriptorOption {
			return a.descriptorOptions(m, o.codeUnits)
		}),
		modgraph.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load modules: %w", err)
	}
	if a.filterErr != nil {
		return nil, a.filterErr
	}

	// A registry serves one application.
	if err := a.registry.Register(registry.Registration{
		Contract: reflect.TypeOf(a),
		Instance: a,
		Source:   registrationSource,
	}); err != nil {
		return nil, fmt.Errorf("failed to register application: %w", err)
	}
	a.registry.AddInstance(a.environment, registrationSource)

	pipelineOpts := []modularity.Option{
		modularity.WithLogger(a.logger),
		modularity.WithMetrics(a.metrics),
		modularity.WithTracer(a.tracer),
		modularity.WithResolver(exposure.NewResolver(a.config.Exposure.MarkerOrDefault())),
	}
	if a.config.Pipeline.TerminalFailure {
		pipelineOpts = append(pipelineOpts, modularity.WithTerminalFailure())
	}
	a.pipeline = modularity.NewPipeline(pipelineOpts...)

	logger.Info("application created",
		observability.String("application", a.name),
		observability.String("environment", a.environment.Name),
		observability.Int("modules", len(a.modules)),
	)

	if !o.skipConfigure {
		if err := a.ConfigureServices(ctx); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// resolveName picks the explicit name, then the configured one, then the
// executable name.
func resolveName(explicit, configured string) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	if strings.TrimSpace(configured) != "" {
		return configured
	}
	if exe, err := os.Executable(); err == nil {
		return strings.TrimSuffix(filepath.Base(exe), filepath.Ext(exe))
	}
	return ""
}

// moduleEnabled applies the disabled switch and enabledWhen condition.
func (a *Application) moduleEnabled(m modularity.Module) bool {
	name := modularity.NameOf(m)
	mc, ok := a.config.Module(name)
	if !ok {
		return true
	}
	if mc.Disabled {
		return false
	}
	if mc.EnabledWhen == "" {
		return true
	}

	enabled, err := a.conditions.Evaluate(mc.EnabledWhen, ConditionInput{
		Environment: a.environment.Name,
		Application: a.name,
		Module:      name,
		Settings:    mc.Settings,
	})
	if err != nil {
		if a.filterErr == nil {
			a.filterErr = util.NewConfigErrorWithCause("modules."+name+".enabledWhen", "invalid condition", err)
		}
		return false
	}
	return enabled
}

func (a *Application) descriptorOptions(
	m modularity.Module,
	units map[reflect.Type][]*modularity.CodeUnit,
) []modularity.DescriptorOption {
	var opts []modularity.DescriptorOption
	if mc, ok := a.config.Module(modularity.NameOf(m)); ok && mc.SkipAutoRegistration {
		opts = append(opts, modularity.WithSkipAutoRegistration(true))
	}
	if extra := units[reflect.TypeOf(m)]; len(extra) > 0 {
		opts = append(opts, modularity.WithCodeUnits(extra...))
	}
	return opts
}

// ConfigureServices runs the configuration pipeline over the loaded
// modules. It succeeds at most once; see modularity.Pipeline.Run.
func (a *Application) ConfigureServices(ctx context.Context) error {
	ctx = a.Context(ctx)

	if err := a.pipeline.Run(ctx, a.modules, a.registry); err != nil {
		return err
	}

	a.registry.AddInstance(a.pipeline.Context(), registrationSource)

	if strings.TrimSpace(a.environment.Name) == "" {
		a.environment.Name = EnvironmentProduction
	}
	return nil
}

// Initialize runs the initialization hooks of every module in dependency
// order. Services must have been configured. The first failing hook stops
// initialization.
func (a *Application) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pipeline.State() != modularity.StateCompleted {
		return ErrNotConfigured
	}
	if a.initStarted {
		return ErrAlreadyInitialized
	}
	a.initStarted = true

	ctx = a.Context(ctx)
	ctx, span := a.tracer.StartSpan(ctx, "application.initialize",
		trace.WithAttributes(observability.AttrInstanceID.String(a.instanceID)),
	)
	defer span.End()

	logger := a.logger.WithContext(ctx)
	for i, d := range a.modules {
		if err := d.Initialize(util.ContextWithModule(ctx, d.Name())); err != nil {
			a.initialized = i
			observability.RecordError(span, err)
			return fmt.Errorf("module %s failed during initialization: %w", d.Name(), err)
		}
	}
	a.initialized = len(a.modules)

	logger.Info("application initialized", observability.Int("modules", len(a.modules)))
	return nil
}

// Shutdown runs the shutdown hooks of the initialized modules in reverse
// order. Every hook runs; their errors are joined. The configured shutdown
// timeout bounds ctx.
func (a *Application) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if timeout := a.config.Application.ShutdownTimeout.Duration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ctx = a.Context(ctx)
	ctx, span := a.tracer.StartSpan(ctx, "application.shutdown",
		trace.WithAttributes(observability.AttrInstanceID.String(a.instanceID)),
	)
	defer span.End()

	var errs []error
	for i := a.initialized - 1; i >= 0; i-- {
		d := a.modules[i]
		if err := d.Shutdown(util.ContextWithModule(ctx, d.Name())); err != nil {
			errs = append(errs, fmt.Errorf("module %s failed during shutdown: %w", d.Name(), err))
		}
	}
	a.initialized = 0

	err := errors.Join(errs...)
	if err != nil {
		observability.RecordError(span, err)
		a.logger.WithContext(ctx).Error("application shutdown failed", observability.Error(err))
		return err
	}

	a.logger.WithContext(ctx).Info("application stopped")
	return nil
}

// Context returns ctx carrying the application instance ID.
func (a *Application) Context(ctx context.Context) context.Context {
	return util.ContextWithInstanceID(ctx, a.instanceID)
}

// Name returns the application name.
func (a *Application) Name() string { return a.name }

// InstanceID returns the random ID of this application instance.
func (a *Application) InstanceID() string { return a.instanceID }

// Environment returns the host environment.
func (a *Application) Environment() *HostEnvironment { return a.environment }

// Config returns the configuration.
func (a *Application) Config() *config.Config { return a.config }

// Registry returns the service registry.
func (a *Application) Registry() *registry.Registry { return a.registry }

// State returns the state of the configuration pipeline.
func (a *Application) State() modularity.State { return a.pipeline.State() }

// ServiceContext returns the configuration context of the last
// configuration run, or nil before the first run.
func (a *Application) ServiceContext() *modularity.ConfigurationContext {
	return a.pipeline.Context()
}

// Modules returns the loaded modules in dependency order.
func (a *Application) Modules() []*modularity.Descriptor {
	out := make([]*modularity.Descriptor, len(a.modules))
	copy(out, a.modules)
	return out
}
