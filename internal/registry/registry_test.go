package registry

import (
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/modboot/internal/exposure"
	"github.com/vyrodovalexey/modboot/internal/observability"
	"github.com/vyrodovalexey/modboot/internal/util"
)

type greeter interface{ Greet() string }

type englishGreeter struct{}

func (englishGreeter) Greet() string { return "hello" }

type frenchGreeter struct{}

func (frenchGreeter) Greet() string { return "bonjour" }

func TestRegistry_TryAddNeverOverwrites(t *testing.T) {
	t.Parallel()

	r := New()
	contract := exposure.TypeOf[greeter]()

	added := r.TryAdd(Registration{
		Contract:       contract,
		Implementation: exposure.TypeOf[englishGreeter](),
		Source:         "first",
	})
	require.True(t, added)

	added = r.TryAdd(Registration{
		Contract:       contract,
		Implementation: exposure.TypeOf[frenchGreeter](),
		Source:         "second",
	})
	assert.False(t, added)

	reg, ok := r.Lookup(contract)
	require.True(t, ok)
	assert.Equal(t, exposure.TypeOf[englishGreeter](), reg.Implementation)
	assert.Equal(t, "first", reg.Source)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_TryAddNilContract(t *testing.T) {
	t.Parallel()

	r := New()
	assert.False(t, r.TryAdd(Registration{}))
	assert.Zero(t, r.Len())
}

func TestRegistry_TryAddDerivesImplementationFromInstance(t *testing.T) {
	t.Parallel()

	r := New()
	require.True(t, r.TryAdd(Registration{
		Contract: exposure.TypeOf[greeter](),
		Instance: frenchGreeter{},
	}))

	reg, ok := r.Lookup(exposure.TypeOf[greeter]())
	require.True(t, ok)
	assert.Equal(t, exposure.TypeOf[frenchGreeter](), reg.Implementation)
}

func TestRegistry_Register(t *testing.T) {
	t.Parallel()

	r := New()
	reg := Registration{Contract: exposure.TypeOf[greeter](), Implementation: exposure.TypeOf[englishGreeter]()}

	require.NoError(t, r.Register(reg))

	err := r.Register(reg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contract already registered")

	err = r.Register(Registration{})
	assert.ErrorIs(t, err, util.ErrInvalidArgument)
}

func TestRegistry_AddInstanceAndInstance(t *testing.T) {
	t.Parallel()

	r := New()
	g := &englishGreeter{}

	assert.True(t, r.AddInstance(g, "host"))
	assert.False(t, r.AddInstance(g, "host"))
	assert.False(t, r.AddInstance(nil, "host"))

	var nilPtr *frenchGreeter
	assert.False(t, r.AddInstance(nilPtr, "host"))

	got, ok := Instance[*englishGreeter](r)
	require.True(t, ok)
	assert.Same(t, g, got)

	_, ok = Instance[*frenchGreeter](r)
	assert.False(t, ok)
}

func TestInstance_TypeOnlyRegistration(t *testing.T) {
	t.Parallel()

	r := New()
	r.TryAdd(Registration{Contract: exposure.TypeOf[greeter](), Implementation: exposure.TypeOf[englishGreeter]()})

	_, ok := Instance[greeter](r)
	assert.False(t, ok)
}

func TestRegistry_AllPreservesOrder(t *testing.T) {
	t.Parallel()

	r := New()
	contracts := []reflect.Type{
		exposure.TypeOf[greeter](),
		exposure.TypeOf[englishGreeter](),
		exposure.TypeOf[frenchGreeter](),
	}
	for _, c := range contracts {
		r.TryAdd(Registration{Contract: c, Implementation: c})
	}

	all := r.All()
	require.Len(t, all, 3)
	for i, c := range contracts {
		assert.Equal(t, c, all[i].Contract)
	}

	all[0].Source = "mutated"
	reg, _ := r.Lookup(contracts[0])
	assert.Empty(t, reg.Source)
	assert.True(t, r.Contains(contracts[1]))
	assert.False(t, r.Contains(exposure.TypeOf[fmt.Stringer]()))
}

func TestRegistry_LogsSkippedRegistrations(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	r := New(WithLogger(observability.NewLoggerFromCore(core)))

	reg := Registration{Contract: exposure.TypeOf[greeter](), Implementation: exposure.TypeOf[englishGreeter]()}
	r.TryAdd(reg)
	r.TryAdd(reg)

	assert.Equal(t, 1, logs.FilterMessage("registered service").Len())
	assert.Equal(t, 1, logs.FilterMessage("registration skipped, contract already registered").Len())
}

func TestRegistry_ConcurrentTryAdd(t *testing.T) {
	t.Parallel()

	r := New()
	contract := exposure.TypeOf[greeter]()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		added int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.TryAdd(Registration{Contract: contract, Implementation: exposure.TypeOf[englishGreeter]()}) {
				mu.Lock()
				added++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, added)
	assert.Equal(t, 1, r.Len())
}

func TestLifetime_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Singleton", LifetimeSingleton.String())
	assert.Equal(t, "Scoped", LifetimeScoped.String())
	assert.Equal(t, "Transient", LifetimeTransient.String())
	assert.Equal(t, "Lifetime(9)", Lifetime(9).String())
}

func TestRegistration_String(t *testing.T) {
	t.Parallel()

	reg := Registration{Contract: exposure.TypeOf[greeter](), Implementation: exposure.TypeOf[englishGreeter]()}
	assert.Equal(t, "registry.greeter => registry.englishGreeter (Singleton)", reg.String())
}
