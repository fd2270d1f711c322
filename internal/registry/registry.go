// Package registry holds the contract to implementation registrations
// produced while an application configures its modules.
package registry

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/vyrodovalexey/modboot/internal/exposure"
	"github.com/vyrodovalexey/modboot/internal/observability"
	"github.com/vyrodovalexey/modboot/internal/util"
)

// Lifetime is the lifetime of a registered service.
type Lifetime int

const (
	// LifetimeSingleton is used for every bootstrap-time registration.
	LifetimeSingleton Lifetime = iota
	LifetimeScoped
	LifetimeTransient
)

// String returns the lifetime name.
func (l Lifetime) String() string {
	switch l {
	case LifetimeSingleton:
		return "Singleton"
	case LifetimeScoped:
		return "Scoped"
	case LifetimeTransient:
		return "Transient"
	default:
		return fmt.Sprintf("Lifetime(%d)", int(l))
	}
}

// Registration maps a contract to an implementation.
type Registration struct {
	Contract       reflect.Type
	Implementation reflect.Type
	// Instance is set for registrations of already constructed values.
	Instance any
	Lifetime Lifetime
	// Source names the module that produced the registration.
	Source string
}

// String implements fmt.Stringer.
func (r Registration) String() string {
	return fmt.Sprintf("%s => %s (%s)",
		exposure.TypeName(r.Contract), exposure.TypeName(r.Implementation), r.Lifetime)
}

// Registry is an ordered, concurrency-safe registration store. The first
// registration for a contract wins.
type Registry struct {
	byContract map[reflect.Type]int
	entries    []Registration
	mu         sync.RWMutex
	logger     observability.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger for the registry.
func WithLogger(logger observability.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		byContract: make(map[reflect.Type]int),
		logger:     observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TryAdd stores reg unless its contract is already registered.
// It reports whether reg was stored.
func (r *Registry) TryAdd(reg Registration) bool {
	if reg.Contract == nil {
		return false
	}
	if reg.Implementation == nil && reg.Instance != nil {
		reg.Implementation = reflect.TypeOf(reg.Instance)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byContract[reg.Contract]; exists {
		r.logger.Debug("registration skipped, contract already registered",
			observability.String("contract", exposure.TypeName(reg.Contract)),
			observability.String("implementation", exposure.TypeName(reg.Implementation)),
		)
		return false
	}

	r.byContract[reg.Contract] = len(r.entries)
	r.entries = append(r.entries, reg)
	r.logger.Debug("registered service",
		observability.String("contract", exposure.TypeName(reg.Contract)),
		observability.String("implementation", exposure.TypeName(reg.Implementation)),
		observability.String("source", reg.Source),
	)
	return true
}

// Register stores reg and fails if its contract is already registered.
func (r *Registry) Register(reg Registration) error {
	if reg.Contract == nil {
		return util.NewArgumentError("contract", "must not be nil")
	}
	if !r.TryAdd(reg) {
		return fmt.Errorf("contract already registered: %s", exposure.TypeName(reg.Contract))
	}
	return nil
}

// AddInstance registers instance under its own dynamic type.
func (r *Registry) AddInstance(instance any, source string) bool {
	if util.IsNil(instance) {
		return false
	}
	t := reflect.TypeOf(instance)
	return r.TryAdd(Registration{
		Contract:       t,
		Implementation: t,
		Instance:       instance,
		Lifetime:       LifetimeSingleton,
		Source:         source,
	})
}

// Lookup returns the registration for contract.
func (r *Registry) Lookup(contract reflect.Type) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byContract[contract]
	if !ok {
		return Registration{}, false
	}
	return r.entries[i], true
}

// Contains reports whether contract is registered.
func (r *Registry) Contains(contract reflect.Type) bool {
	_, ok := r.Lookup(contract)
	return ok
}

// All returns a copy of every registration in insertion order.
func (r *Registry) All() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Registration, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of registrations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Instance returns the registered instance for contract T.
func Instance[T any](r *Registry) (T, bool) {
	var zero T
	reg, ok := r.Lookup(exposure.TypeOf[T]())
	if !ok || reg.Instance == nil {
		return zero, false
	}
	v, ok := reg.Instance.(T)
	return v, ok
}
