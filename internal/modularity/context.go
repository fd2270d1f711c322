package modularity

import (
	"maps"
	"reflect"

	"github.com/vyrodovalexey/modboot/internal/exposure"
	"github.com/vyrodovalexey/modboot/internal/registry"
	"github.com/vyrodovalexey/modboot/internal/util"
)

// maxItemKeyLength bounds the keys of shared items.
const maxItemKeyLength = 256

// Sink receives registrations. TryAdd must never overwrite an existing
// registration for the same contract.
type Sink interface {
	TryAdd(reg registry.Registration) bool
}

// ConfigurationContext is handed to every hook of a run. It wraps the
// registration sink and carries items modules share with each other.
// It is not safe for concurrent use; the pipeline calls hooks one at a time.
type ConfigurationContext struct {
	sink   Sink
	sealed bool
	items  map[string]any
	module string
}

// NewConfigurationContext creates an unsealed context writing to sink.
func NewConfigurationContext(sink Sink) *ConfigurationContext {
	return &ConfigurationContext{
		sink:  sink,
		items: make(map[string]any),
	}
}

// TryAdd offers reg to the sink. Registrations without a source are
// attributed to the module whose hook is running.
func (c *ConfigurationContext) TryAdd(reg registry.Registration) (bool, error) {
	if c.sealed {
		return false, ErrContextSealed
	}
	if reg.Source == "" {
		reg.Source = c.module
	}
	return c.sink.TryAdd(reg), nil
}

// AddInstance registers instance under contract.
func (c *ConfigurationContext) AddInstance(contract reflect.Type, instance any) (bool, error) {
	if contract == nil {
		return false, util.NewArgumentError("contract", "must not be nil")
	}
	if err := util.NotNil(instance, "instance"); err != nil {
		return false, err
	}
	return c.TryAdd(registry.Registration{
		Contract:       contract,
		Implementation: reflect.TypeOf(instance),
		Instance:       instance,
		Lifetime:       registry.LifetimeSingleton,
	})
}

// Set stores a shared item under a non-empty key.
func (c *ConfigurationContext) Set(key string, value any) error {
	if c.sealed {
		return ErrContextSealed
	}
	if _, err := util.NotEmptyString(key, "key", maxItemKeyLength, 0); err != nil {
		return err
	}
	c.items[key] = value
	return nil
}

// Get returns a shared item.
func (c *ConfigurationContext) Get(key string) (any, bool) {
	v, ok := c.items[key]
	return v, ok
}

// Items returns a copy of the shared items.
func (c *ConfigurationContext) Items() map[string]any {
	return maps.Clone(c.items)
}

// Sealed reports whether the run that owned the context has ended.
func (c *ConfigurationContext) Sealed() bool {
	return c.sealed
}

func (c *ConfigurationContext) seal() {
	c.sealed = true
	c.module = ""
}

// Add registers instance under the contract type C.
func Add[C any](cc *ConfigurationContext, instance C) (bool, error) {
	return cc.AddInstance(exposure.TypeOf[C](), instance)
}

// Item returns the shared item stored under key as a T.
func Item[T any](cc *ConfigurationContext, key string) (T, bool) {
	var zero T
	v, ok := cc.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
