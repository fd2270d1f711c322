package modularity

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/modboot/internal/exposure"
	"github.com/vyrodovalexey/modboot/internal/registry"
	"github.com/vyrodovalexey/modboot/internal/util"
)

func TestConfigurationContext_AddInstance(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	cc := NewConfigurationContext(reg)

	added, err := Add[IClock](cc, SystemClock{})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = Add[IClock](cc, SystemClock{})
	require.NoError(t, err)
	assert.False(t, added, "existing registrations are kept")

	_, err = cc.AddInstance(nil, SystemClock{})
	assert.ErrorIs(t, err, util.ErrInvalidArgument)

	var mailer *SMTPMailer
	_, err = cc.AddInstance(exposure.TypeOf[IMailer](), mailer)
	assert.ErrorIs(t, err, util.ErrInvalidArgument)

	got, ok := reg.Lookup(exposure.TypeOf[IClock]())
	require.True(t, ok)
	assert.Equal(t, exposure.TypeOf[SystemClock](), got.Implementation)
}

func TestConfigurationContext_Items(t *testing.T) {
	t.Parallel()

	cc := NewConfigurationContext(registry.New())

	require.NoError(t, cc.Set("answer", 42))

	v, ok := Item[int](cc, "answer")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = Item[string](cc, "answer")
	assert.False(t, ok)
	_, ok = Item[int](cc, "missing")
	assert.False(t, ok)

	items := cc.Items()
	items["answer"] = 0
	raw, _ := cc.Get("answer")
	assert.Equal(t, 42, raw)

	assert.ErrorIs(t, cc.Set("", 1), util.ErrInvalidArgument)
	assert.ErrorIs(t, cc.Set(strings.Repeat("k", maxItemKeyLength+1), 1), util.ErrInvalidArgument)
	_, ok = cc.Get("")
	assert.False(t, ok)
}

func TestConfigurationContext_Sealed(t *testing.T) {
	t.Parallel()

	cc := NewConfigurationContext(registry.New())
	require.NoError(t, cc.Set("k", "v"))
	cc.seal()

	assert.True(t, cc.Sealed())
	assert.ErrorIs(t, cc.Set("k", "w"), ErrContextSealed)

	_, err := cc.TryAdd(registry.Registration{Contract: exposure.TypeOf[IClock]()})
	assert.ErrorIs(t, err, ErrContextSealed)

	v, ok := cc.Get("k")
	assert.True(t, ok, "items stay readable")
	assert.Equal(t, "v", v)
}

func TestConfigurationError(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := &ConfigurationError{Module: "catalog", Phase: PhasePreConfigure, Cause: cause}

	assert.Equal(t, "module catalog failed during PreConfigure: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.True(t, errors.Is(err, &ConfigurationError{}))
	assert.False(t, errors.Is(err, ErrInvalidState))
}

func TestStateError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state State
		want  string
	}{
		{state: StateCompleted, want: "services have already been configured"},
		{state: StateRunning, want: "services are being configured"},
		{state: StateFailed, want: "pipeline cannot run in state Failed"},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			t.Parallel()

			err := &StateError{State: tt.state}
			assert.Equal(t, tt.want, err.Error())
			assert.ErrorIs(t, err, ErrInvalidState)
			assert.False(t, errors.Is(err, ErrConfiguration))
		})
	}
}
