package modularity

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/modboot/internal/util"
)

// recorder collects "module:phase" events across modules.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

// hookModule implements every configuration hook.
type hookModule struct {
	Base

	name  string
	rec   *recorder
	fail  map[Phase]error
	units []*CodeUnit

	// seen records the context values each hook observed.
	seen []string
}

func newHookModule(name string, rec *recorder) *hookModule {
	return &hookModule{name: name, rec: rec, fail: map[Phase]error{}}
}

func (m *hookModule) ModuleName() string { return m.name }

func (m *hookModule) CodeUnits() []*CodeUnit { return m.units }

func (m *hookModule) hook(ctx context.Context, phase Phase, cc *ConfigurationContext) error {
	m.rec.add(m.name + ":" + phase.String())
	m.seen = append(m.seen, util.ModuleFromContext(ctx)+"/"+util.PhaseFromContext(ctx))
	if cc != m.ConfigurationContext() {
		return fmt.Errorf("hook context differs from attached context")
	}
	return m.fail[phase]
}

func (m *hookModule) PreConfigureServices(ctx context.Context, cc *ConfigurationContext) error {
	return m.hook(ctx, PhasePreConfigure, cc)
}

func (m *hookModule) ConfigureServices(ctx context.Context, cc *ConfigurationContext) error {
	return m.hook(ctx, PhaseConfigure, cc)
}

func (m *hookModule) PostConfigureServices(ctx context.Context, cc *ConfigurationContext) error {
	return m.hook(ctx, PhasePostConfigure, cc)
}

// configureOnly implements only the Configure hook.
type configureOnly struct {
	rec *recorder
}

func (m configureOnly) ConfigureServices(context.Context, *ConfigurationContext) error {
	m.rec.add("configureOnly:Configure")
	return nil
}

// lifecycleModule implements the application hooks only.
type lifecycleModule struct {
	initialized bool
	stopped     bool
}

func (m *lifecycleModule) OnApplicationInitialization(context.Context) error {
	m.initialized = true
	return nil
}

func (m *lifecycleModule) OnApplicationShutdown(context.Context) error {
	m.stopped = true
	return nil
}

// emptyModule implements no hook.
type emptyModule struct{}

func mustDescriptor(t *testing.T, instance Module, opts ...DescriptorOption) *Descriptor {
	t.Helper()
	d, err := NewDescriptor(instance, opts...)
	require.NoError(t, err)
	return d
}

// metricValue returns the value of the counter or gauge name whose labels
// include want.
func metricValue(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if !labelsMatch(m, want) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, l := range m.GetLabel() {
		got[l.GetName()] = l.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}
