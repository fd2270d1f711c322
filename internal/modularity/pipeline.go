package modularity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/modboot/internal/exposure"
	"github.com/vyrodovalexey/modboot/internal/observability"
	"github.com/vyrodovalexey/modboot/internal/registry"
	"github.com/vyrodovalexey/modboot/internal/util"
)

// Pipeline configures an ordered list of modules through the
// PreConfigure, Configure and PostConfigure phases. A Pipeline runs
// successfully at most once. It never calls two hooks at the same time
// and starts no goroutines.
type Pipeline struct {
	state           State
	terminalFailure bool
	resolver        exposure.Resolver
	lastContext     *ConfigurationContext

	logger  observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger for the pipeline.
func WithLogger(logger observability.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics for the pipeline.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = metrics
	}
}

// WithTracer sets the tracer for the pipeline.
func WithTracer(tracer *observability.Tracer) Option {
	return func(p *Pipeline) {
		p.tracer = tracer
	}
}

// WithResolver replaces the exposure resolver used for auto-registration.
func WithResolver(resolver exposure.Resolver) Option {
	return func(p *Pipeline) {
		p.resolver = resolver
	}
}

// WithTerminalFailure makes a failed run move the pipeline to Failed
// instead of back to NotStarted, so it can never run again.
func WithTerminalFailure() Option {
	return func(p *Pipeline) {
		p.terminalFailure = true
	}
}

// NewPipeline creates a pipeline in the NotStarted state.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		state:    StateNotStarted,
		resolver: exposure.NewResolver(exposure.DefaultMarker),
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.tracer == nil {
		p.tracer = observability.NoopTracer()
	}
	return p
}

// State returns the current pipeline state.
func (p *Pipeline) State() State {
	return p.state
}

// Context returns the context of the most recent run, or nil before the
// first run. It is sealed once that run has ended.
func (p *Pipeline) Context() *ConfigurationContext {
	return p.lastContext
}

// Run configures modules in order, writing registrations to sink.
//
// The first failing hook aborts the run with a *ConfigurationError. Calling
// Run in any state other than NotStarted returns a *StateError and touches
// no module. The pipeline does not watch ctx; it is passed to every hook.
func (p *Pipeline) Run(ctx context.Context, modules []*Descriptor, sink Sink) (err error) {
	if p.state != StateNotStarted {
		return &StateError{State: p.state}
	}
	if util.IsNil(sink) {
		return util.NewArgumentError("sink", "must not be nil")
	}

	p.setState(StateRunning)
	start := time.Now()

	ctx, span := p.tracer.StartSpan(ctx, "pipeline.run",
		trace.WithAttributes(observability.AttrModules.Int(len(modules))),
	)
	defer span.End()

	if p.metrics != nil {
		p.metrics.SetModules(len(modules))
	}
	p.logger.WithContext(ctx).Info("configuring modules",
		observability.Int("modules", len(modules)),
	)

	cc := NewConfigurationContext(sink)
	p.lastContext = cc
	for _, d := range modules {
		if d != nil {
			d.attach(cc)
		}
	}

	completed := false
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
		if err == nil && !completed {
			err = errors.New("pipeline run aborted")
		}

		for _, d := range modules {
			if d != nil {
				d.detach()
			}
		}
		cc.seal()

		elapsed := time.Since(start)
		if p.metrics != nil {
			p.metrics.RecordRun(err == nil, elapsed)
		}

		if err != nil {
			observability.RecordError(span, err)
			if p.terminalFailure {
				p.setState(StateFailed)
			} else {
				p.setState(StateNotStarted)
			}
			p.logger.WithContext(ctx).Error("module configuration failed",
				observability.Error(err),
				observability.Duration("elapsed", elapsed),
			)
			return
		}

		p.setState(StateCompleted)
		p.logger.WithContext(ctx).Info("modules configured",
			observability.Duration("elapsed", elapsed),
		)
	}()

	scanned := make(map[*CodeUnit]struct{})
	for _, phase := range Phases {
		if err := p.runPhase(ctx, phase, modules, cc, scanned); err != nil {
			return err
		}
	}

	completed = true
	return nil
}

func (p *Pipeline) runPhase(
	ctx context.Context,
	phase Phase,
	modules []*Descriptor,
	cc *ConfigurationContext,
	scanned map[*CodeUnit]struct{},
) error {
	ctx = util.ContextWithPhase(ctx, phase.String())
	ctx, span := p.tracer.StartSpan(ctx, "pipeline.phase",
		trace.WithAttributes(observability.AttrPhase.String(phase.String())),
	)
	defer span.End()

	for _, d := range modules {
		if d == nil {
			continue
		}

		if phase == PhaseConfigure && !d.skipAutoReg {
			if err := p.autoRegister(ctx, d, cc, scanned); err != nil {
				observability.RecordError(span, err)
				return err
			}
		}

		if !d.capabilities.Has(phase.Capability()) {
			continue
		}

		if err := p.invoke(ctx, phase, d, cc); err != nil {
			observability.RecordError(span, err)
			return err
		}
	}

	return nil
}

// invoke runs one hook. A panicking hook fails the run like an error.
func (p *Pipeline) invoke(ctx context.Context, phase Phase, d *Descriptor, cc *ConfigurationContext) (err error) {
	ctx = util.ContextWithModule(ctx, d.name)
	ctx, span := p.tracer.StartSpan(ctx, "module."+phase.String(),
		trace.WithAttributes(
			observability.AttrModule.String(d.name),
			observability.AttrPhase.String(phase.String()),
		),
	)
	defer span.End()

	cc.module = d.name
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}

		if p.metrics != nil {
			p.metrics.RecordHook(phase.String(), err == nil, time.Since(start))
		}
		if err != nil {
			observability.RecordError(span, err)
			err = &ConfigurationError{Module: d.name, Phase: phase, Cause: err}
		}
	}()

	p.logger.WithContext(ctx).Debug("running module hook")

	return d.phaseHooks[phase](ctx, cc)
}

// autoRegister scans the module's code units not seen earlier in the run.
// A panicking sink fails the run for the module being scanned.
func (p *Pipeline) autoRegister(
	ctx context.Context,
	d *Descriptor,
	cc *ConfigurationContext,
	scanned map[*CodeUnit]struct{},
) (err error) {
	logger := p.logger.WithContext(util.ContextWithModule(ctx, d.name))

	defer func() {
		if r := recover(); r != nil {
			err = &ConfigurationError{
				Module: d.name,
				Phase:  PhaseConfigure,
				Cause:  fmt.Errorf("panic during auto-registration: %v", r),
			}
		}
	}()

	for _, unit := range d.codeUnits {
		if _, seen := scanned[unit]; seen {
			continue
		}
		scanned[unit] = struct{}{}
		if p.metrics != nil {
			p.metrics.RecordCodeUnitScanned()
		}

		added := 0
		for _, component := range unit.Components {
			if !component.Declared() {
				continue
			}
			for _, contract := range p.resolver.ResolveAll(component) {
				ok := cc.sink.TryAdd(registry.Registration{
					Contract:       contract,
					Implementation: component.Type,
					Lifetime:       registry.LifetimeSingleton,
					Source:         d.name,
				})
				if ok {
					added++
				}
				if p.metrics != nil {
					p.metrics.RecordRegistration(ok)
				}
			}
		}

		logger.Debug("scanned code unit",
			observability.String("code_unit", unit.Name),
			observability.Int("registered", added),
		)
	}
	return nil
}

func (p *Pipeline) setState(s State) {
	p.state = s
	if p.metrics != nil {
		p.metrics.SetPipelineState(int(s))
	}
}
