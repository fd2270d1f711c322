package modularity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/modboot/internal/exposure"
	"github.com/vyrodovalexey/modboot/internal/observability"
	"github.com/vyrodovalexey/modboot/internal/registry"
	"github.com/vyrodovalexey/modboot/internal/util"
)

type IClock interface{ Now() int }

type SystemClock struct{}

func (SystemClock) Now() int { return 0 }

type IMailer interface{ Send(to string) error }

type SMTPMailer struct{}

func (*SMTPMailer) Send(string) error { return nil }

type undeclared struct{}

func clockUnit() *CodeUnit {
	return NewCodeUnit("clock",
		exposure.NewComponent[SystemClock](
			exposure.Capabilities(exposure.TypeOf[IClock]()),
			exposure.Expose(exposure.Declare().WithDefaults().WithSelf()),
		),
		exposure.NewComponent[undeclared](),
	)
}

func mailerUnit() *CodeUnit {
	return NewCodeUnit("mailer",
		exposure.NewComponent[*SMTPMailer](
			exposure.Capabilities(exposure.TypeOf[IMailer]()),
			exposure.Expose(exposure.Declare().WithDefaults()),
		),
	)
}

func TestPipeline_PhaseBarrier(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	a, b, c := newHookModule("A", rec), newHookModule("B", rec), newHookModule("C", rec)
	modules := []*Descriptor{
		mustDescriptor(t, a),
		mustDescriptor(t, configureOnly{rec: rec}),
		mustDescriptor(t, b),
		mustDescriptor(t, c),
	}

	p := NewPipeline()
	require.NoError(t, p.Run(context.Background(), modules, registry.New()))

	assert.Equal(t, []string{
		"A:PreConfigure", "B:PreConfigure", "C:PreConfigure",
		"A:Configure", "configureOnly:Configure", "B:Configure", "C:Configure",
		"A:PostConfigure", "B:PostConfigure", "C:PostConfigure",
	}, rec.all())
	assert.Equal(t, StateCompleted, p.State())
	assert.Equal(t, []string{"A/PreConfigure", "A/Configure", "A/PostConfigure"}, a.seen)
}

func TestPipeline_FailFast(t *testing.T) {
	t.Parallel()

	cause := errors.New("database unreachable")
	rec := &recorder{}
	a, b, c := newHookModule("A", rec), newHookModule("B", rec), newHookModule("C", rec)
	b.fail[PhaseConfigure] = cause

	p := NewPipeline()
	err := p.Run(context.Background(), []*Descriptor{
		mustDescriptor(t, a), mustDescriptor(t, b), mustDescriptor(t, c),
	}, registry.New())

	require.Error(t, err)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "B", cfgErr.Module)
	assert.Equal(t, PhaseConfigure, cfgErr.Phase)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.EqualError(t, err, "module B failed during Configure: database unreachable")

	assert.Equal(t, []string{
		"A:PreConfigure", "B:PreConfigure", "C:PreConfigure",
		"A:Configure", "B:Configure",
	}, rec.all())
	assert.Equal(t, StateNotStarted, p.State())
}

func TestPipeline_FailureInEachPhase(t *testing.T) {
	t.Parallel()

	for _, phase := range Phases {
		t.Run(phase.String(), func(t *testing.T) {
			t.Parallel()

			rec := &recorder{}
			a, b := newHookModule("A", rec), newHookModule("B", rec)
			a.fail[phase] = errors.New("boom")

			err := NewPipeline().Run(context.Background(), []*Descriptor{
				mustDescriptor(t, a), mustDescriptor(t, b),
			}, registry.New())

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, phase, cfgErr.Phase)
			assert.Equal(t, "A:"+phase.String(), rec.all()[len(rec.all())-1])
			assert.NotContains(t, rec.all(), "B:"+phase.String())
		})
	}
}

func TestPipeline_CodeUnitDedup(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	metrics := observability.NewMetrics("test")
	shared := clockUnit()

	rec := &recorder{}
	a, b, c := newHookModule("A", rec), newHookModule("B", rec), newHookModule("C", rec)
	a.units = []*CodeUnit{mailerUnit()}
	b.units = []*CodeUnit{shared}
	c.units = []*CodeUnit{shared, shared}

	reg := registry.New()
	p := NewPipeline(
		WithLogger(observability.NewLoggerFromCore(core)),
		WithMetrics(metrics),
	)
	require.NoError(t, p.Run(context.Background(), []*Descriptor{
		mustDescriptor(t, a), mustDescriptor(t, b), mustDescriptor(t, c),
	}, reg))

	scans := logs.FilterMessage("scanned code unit").FilterField(observability.String("code_unit", "clock")).All()
	require.Len(t, scans, 1)
	assert.Equal(t, "B", scans[0].ContextMap()["module"])

	clock, ok := reg.Lookup(exposure.TypeOf[IClock]())
	require.True(t, ok)
	assert.Equal(t, "B", clock.Source)
	assert.Equal(t, exposure.TypeOf[SystemClock](), clock.Implementation)
	assert.Equal(t, registry.LifetimeSingleton, clock.Lifetime)

	assert.True(t, reg.Contains(exposure.TypeOf[SystemClock]()))
	assert.True(t, reg.Contains(exposure.TypeOf[IMailer]()))
	assert.False(t, reg.Contains(exposure.TypeOf[*SMTPMailer]()), "self not declared")
	assert.False(t, reg.Contains(exposure.TypeOf[undeclared]()))
	assert.Equal(t, 3, reg.Len())

	assert.Equal(t, 2.0, metricValue(t, metrics.Registry(), "test_code_units_scanned_total", nil))
	assert.Equal(t, 3.0, metricValue(t, metrics.Registry(), "test_registrations_total",
		map[string]string{"result": observability.ResultAdded}))
}

func TestPipeline_AutoRegistrationWithoutConfigureHook(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	d := mustDescriptor(t, emptyModule{}, WithCodeUnits(clockUnit()))

	require.NoError(t, NewPipeline().Run(context.Background(), []*Descriptor{d}, reg))
	assert.True(t, reg.Contains(exposure.TypeOf[IClock]()))
}

func TestPipeline_SkipAutoRegistration(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	viaBase := newHookModule("base", rec)
	viaBase.SkipAutoRegistration = true
	viaBase.units = []*CodeUnit{clockUnit()}

	viaOption := newHookModule("option", rec)
	viaOption.units = []*CodeUnit{mailerUnit()}

	reg := registry.New()
	require.NoError(t, NewPipeline().Run(context.Background(), []*Descriptor{
		mustDescriptor(t, viaBase),
		mustDescriptor(t, viaOption, WithSkipAutoRegistration(true)),
	}, reg))

	assert.Zero(t, reg.Len())
	assert.Contains(t, rec.all(), "base:Configure")
}

func TestPipeline_SkippedUnitIsScannedByLaterModule(t *testing.T) {
	t.Parallel()

	shared := clockUnit()
	rec := &recorder{}
	first := newHookModule("first", rec)
	first.SkipAutoRegistration = true
	first.units = []*CodeUnit{shared}
	second := newHookModule("second", rec)
	second.units = []*CodeUnit{shared}

	reg := registry.New()
	require.NoError(t, NewPipeline().Run(context.Background(), []*Descriptor{
		mustDescriptor(t, first), mustDescriptor(t, second),
	}, reg))

	clock, ok := reg.Lookup(exposure.TypeOf[IClock]())
	require.True(t, ok)
	assert.Equal(t, "second", clock.Source)
}

func TestPipeline_RunOnce(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	modules := []*Descriptor{mustDescriptor(t, newHookModule("A", rec))}

	p := NewPipeline()
	require.NoError(t, p.Run(context.Background(), modules, registry.New()))
	before := len(rec.all())

	err := p.Run(context.Background(), modules, registry.New())

	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, StateCompleted, stateErr.State)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Len(t, rec.all(), before)
	assert.Equal(t, StateCompleted, p.State())
}

func TestPipeline_RetryAfterFailure(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	a := newHookModule("A", rec)
	a.units = []*CodeUnit{clockUnit()}
	a.fail[PhasePostConfigure] = errors.New("transient")
	modules := []*Descriptor{mustDescriptor(t, a)}
	reg := registry.New()

	p := NewPipeline()
	require.Error(t, p.Run(context.Background(), modules, reg))
	assert.Equal(t, StateNotStarted, p.State())
	assert.Equal(t, 2, reg.Len(), "partial registrations stay in the sink")

	delete(a.fail, PhasePostConfigure)
	require.NoError(t, p.Run(context.Background(), modules, reg))
	assert.Equal(t, StateCompleted, p.State())
	assert.Equal(t, 2, reg.Len(), "sink never overwrites")
}

func TestPipeline_TerminalFailure(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	a := newHookModule("A", rec)
	a.fail[PhasePreConfigure] = errors.New("boom")
	modules := []*Descriptor{mustDescriptor(t, a)}

	p := NewPipeline(WithTerminalFailure())
	require.Error(t, p.Run(context.Background(), modules, registry.New()))
	assert.Equal(t, StateFailed, p.State())

	err := p.Run(context.Background(), modules, registry.New())
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, StateFailed, stateErr.State)
	assert.Len(t, rec.all(), 1)
}

// reentrantModule calls Run on its own pipeline from a hook.
type reentrantModule struct {
	p   *Pipeline
	err error
}

func (m *reentrantModule) ConfigureServices(ctx context.Context, _ *ConfigurationContext) error {
	m.err = m.p.Run(ctx, nil, registry.New())
	return nil
}

func TestPipeline_ReentrantRun(t *testing.T) {
	t.Parallel()

	p := NewPipeline()
	m := &reentrantModule{p: p}

	require.NoError(t, p.Run(context.Background(), []*Descriptor{mustDescriptor(t, m)}, registry.New()))

	var stateErr *StateError
	require.ErrorAs(t, m.err, &stateErr)
	assert.Equal(t, StateRunning, stateErr.State)
	assert.Equal(t, "services are being configured", stateErr.Error())
}

func TestPipeline_ContextLifecycle(t *testing.T) {
	t.Parallel()

	for _, fail := range []bool{false, true} {
		rec := &recorder{}
		a := newHookModule("A", rec)
		if fail {
			a.fail[PhaseConfigure] = errors.New("boom")
		}

		p := NewPipeline()
		_ = p.Run(context.Background(), []*Descriptor{mustDescriptor(t, a)}, registry.New())

		assert.Nil(t, a.ConfigurationContext(), "context detached (fail=%v)", fail)
		require.NotNil(t, p.Context())
		assert.True(t, p.Context().Sealed())

		_, err := Add[IClock](p.Context(), SystemClock{})
		assert.ErrorIs(t, err, ErrContextSealed)
	}
}

// registeringModule registers through the context and shares an item.
type registeringModule struct{}

func (registeringModule) PreConfigureServices(_ context.Context, cc *ConfigurationContext) error {
	return cc.Set("clock.precision", "ms")
}

func (registeringModule) ConfigureServices(_ context.Context, cc *ConfigurationContext) error {
	precision, ok := Item[string](cc, "clock.precision")
	if !ok || precision != "ms" {
		return errors.New("missing shared item")
	}
	_, err := Add[IClock](cc, SystemClock{})
	return err
}

func TestPipeline_HookRegistrationsCarrySource(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	require.NoError(t, NewPipeline().Run(context.Background(), []*Descriptor{
		mustDescriptor(t, registeringModule{}, WithName("clock")),
	}, reg))

	clock, ok := reg.Lookup(exposure.TypeOf[IClock]())
	require.True(t, ok)
	assert.Equal(t, "clock", clock.Source)
	assert.Equal(t, SystemClock{}, clock.Instance)
}

// panickingModule panics in Configure.
type panickingModule struct{}

func (panickingModule) ConfigureServices(context.Context, *ConfigurationContext) error {
	panic("unexpected")
}

func TestPipeline_PanicBecomesConfigurationError(t *testing.T) {
	t.Parallel()

	p := NewPipeline()
	err := p.Run(context.Background(), []*Descriptor{mustDescriptor(t, panickingModule{})}, registry.New())

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "panickingModule", cfgErr.Module)
	assert.EqualError(t, cfgErr.Cause, "panic: unexpected")
	assert.Equal(t, StateNotStarted, p.State())
}

// explodingSink panics on every registration.
type explodingSink struct{}

func (explodingSink) TryAdd(registry.Registration) bool {
	panic("sink exploded")
}

func TestPipeline_PanickingSinkFailsRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []Option
		want State
	}{
		{name: "retryable", want: StateNotStarted},
		{name: "terminal", opts: []Option{WithTerminalFailure()}, want: StateFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := &recorder{}
			a := newHookModule("A", rec)
			a.units = []*CodeUnit{clockUnit()}
			modules := []*Descriptor{mustDescriptor(t, a)}

			p := NewPipeline(tt.opts...)
			err := p.Run(context.Background(), modules, explodingSink{})

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "A", cfgErr.Module)
			assert.Equal(t, PhaseConfigure, cfgErr.Phase)
			assert.Contains(t, cfgErr.Cause.Error(), "sink exploded")
			assert.Equal(t, tt.want, p.State())
			assert.Equal(t, []string{"A:PreConfigure"}, rec.all())
			assert.True(t, p.Context().Sealed())
		})
	}
}

func TestPipeline_RetryAfterPanickingSink(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	a := newHookModule("A", rec)
	a.units = []*CodeUnit{clockUnit()}
	modules := []*Descriptor{mustDescriptor(t, a)}

	p := NewPipeline()
	require.Error(t, p.Run(context.Background(), modules, explodingSink{}))

	reg := registry.New()
	require.NoError(t, p.Run(context.Background(), modules, reg))
	assert.Equal(t, StateCompleted, p.State())
	assert.Equal(t, 2, reg.Len())
}

func TestPipeline_NilSink(t *testing.T) {
	t.Parallel()

	p := NewPipeline()
	var reg *registry.Registry

	err := p.Run(context.Background(), nil, reg)
	assert.ErrorIs(t, err, util.ErrInvalidArgument)
	assert.Equal(t, StateNotStarted, p.State())
	assert.Nil(t, p.Context())
}

func TestPipeline_EmptyModuleList(t *testing.T) {
	t.Parallel()

	p := NewPipeline()
	require.NoError(t, p.Run(context.Background(), nil, registry.New()))
	assert.Equal(t, StateCompleted, p.State())
}

func TestPipeline_NilDescriptorsAreIgnored(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	p := NewPipeline()
	require.NoError(t, p.Run(context.Background(), []*Descriptor{
		nil, mustDescriptor(t, newHookModule("A", rec)),
	}, registry.New()))
	assert.Len(t, rec.all(), 3)
}

func TestPipeline_Metrics(t *testing.T) {
	t.Parallel()

	metrics := observability.NewMetrics("test")
	rec := &recorder{}
	a, b := newHookModule("A", rec), newHookModule("B", rec)
	b.fail[PhasePostConfigure] = errors.New("boom")

	p := NewPipeline(WithMetrics(metrics))
	require.Error(t, p.Run(context.Background(), []*Descriptor{
		mustDescriptor(t, a), mustDescriptor(t, b),
	}, registry.New()))

	reg := metrics.Registry()
	assert.Equal(t, 2.0, metricValue(t, reg, "test_hooks_total",
		map[string]string{"phase": "Configure", "result": observability.ResultSuccess}))
	assert.Equal(t, 1.0, metricValue(t, reg, "test_hooks_total",
		map[string]string{"phase": "PostConfigure", "result": observability.ResultFailure}))
	assert.Equal(t, 1.0, metricValue(t, reg, "test_pipeline_runs_total",
		map[string]string{"result": observability.ResultFailure}))
	assert.Equal(t, 2.0, metricValue(t, reg, "test_modules", nil))
	assert.Equal(t, float64(StateNotStarted), metricValue(t, reg, "test_pipeline_state", nil))
}

func TestPipeline_Tracing(t *testing.T) {
	t.Parallel()

	spans := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	tracer := observability.NewTracerWithProvider(provider, observability.TracerConfig{})
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })

	rec := &recorder{}
	p := NewPipeline(WithTracer(tracer))
	require.NoError(t, p.Run(context.Background(), []*Descriptor{
		mustDescriptor(t, newHookModule("A", rec)),
		mustDescriptor(t, configureOnly{rec: rec}),
	}, registry.New()))

	var names []string
	for _, s := range spans.Ended() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{
		"module.PreConfigure", "pipeline.phase",
		"module.Configure", "module.Configure", "pipeline.phase",
		"module.PostConfigure", "pipeline.phase",
		"pipeline.run",
	}, names)
}
