// Package modgraph turns a startup module and the DependsOn declarations
// reachable from it into the dependency-ordered descriptor list the
// configuration pipeline consumes.
package modgraph

import (
	"errors"
	"reflect"
	"strings"

	"github.com/vyrodovalexey/modboot/internal/modularity"
	"github.com/vyrodovalexey/modboot/internal/observability"
	"github.com/vyrodovalexey/modboot/internal/util"
)

// ErrCycle matches every *CycleError.
var ErrCycle = errors.New("module dependency cycle")

// CycleError reports a dependency cycle as the chain of module names,
// starting and ending with the same module.
type CycleError struct {
	Path []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return "module dependency cycle detected: " + strings.Join(e.Path, " -> ")
}

// Is implements errors.Is.
func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}

// Filter decides whether a module takes part. Modules it rejects are left
// out together with any dependency only they reach.
type Filter func(m modularity.Module) bool

// DescriptorOptions supplies extra descriptor options per module.
type DescriptorOptions func(m modularity.Module) []modularity.DescriptorOption

type loader struct {
	filter      Filter
	descOptions DescriptorOptions
	logger      observability.Logger

	permanent map[reflect.Type]*modularity.Descriptor
	temporary map[reflect.Type]bool
	stack     []string
	excluded  map[reflect.Type]bool
	ordered   []*modularity.Descriptor
}

// Option configures Load.
type Option func(*loader)

// WithFilter skips modules for which f returns false. The startup module
// is never filtered.
func WithFilter(f Filter) Option {
	return func(l *loader) {
		l.filter = f
	}
}

// WithDescriptorOptions adds descriptor options computed per module.
func WithDescriptorOptions(f DescriptorOptions) Option {
	return func(l *loader) {
		l.descOptions = f
	}
}

// WithLogger sets the logger used to report skipped modules.
func WithLogger(logger observability.Logger) Option {
	return func(l *loader) {
		l.logger = logger
	}
}

// Load walks the dependency graph depth-first from startup and returns the
// modules with dependencies before dependents, in declaration order.
// Modules are identified by their dynamic type; the first instance seen
// for a type is the one used.
func Load(startup modularity.Module, opts ...Option) ([]*modularity.Descriptor, error) {
	if err := util.NotNil(startup, "startup"); err != nil {
		return nil, err
	}

	l := &loader{
		logger:    observability.NopLogger(),
		permanent: make(map[reflect.Type]*modularity.Descriptor),
		temporary: make(map[reflect.Type]bool),
		excluded:  make(map[reflect.Type]bool),
	}
	for _, opt := range opts {
		opt(l)
	}

	if _, err := l.visit(startup, true); err != nil {
		return nil, err
	}
	return l.ordered, nil
}

// visit returns the descriptor for m, or nil when m is filtered out.
func (l *loader) visit(m modularity.Module, root bool) (*modularity.Descriptor, error) {
	t := reflect.TypeOf(m)
	name := modularity.NameOf(m)

	if d, ok := l.permanent[t]; ok {
		return d, nil
	}
	if l.excluded[t] {
		return nil, nil
	}
	if l.temporary[t] {
		path := append(l.cyclePath(name), name)
		return nil, &CycleError{Path: path}
	}
	if !root && l.filter != nil && !l.filter(m) {
		l.excluded[t] = true
		l.logger.Info("module disabled", observability.String("module", name))
		return nil, nil
	}

	l.temporary[t] = true
	l.stack = append(l.stack, name)

	var deps []*modularity.Descriptor
	if dependent, ok := m.(modularity.Dependent); ok {
		for _, dep := range dependent.DependsOn() {
			if util.IsNil(dep) {
				continue
			}
			d, err := l.visit(dep, false)
			if err != nil {
				return nil, err
			}
			if d != nil {
				deps = append(deps, d)
			}
		}
	}

	opts := []modularity.DescriptorOption{modularity.WithDependencies(deps...)}
	if l.descOptions != nil {
		opts = append(opts, l.descOptions(m)...)
	}
	d, err := modularity.NewDescriptor(m, opts...)
	if err != nil {
		return nil, err
	}

	l.stack = l.stack[:len(l.stack)-1]
	delete(l.temporary, t)
	l.permanent[t] = d
	l.ordered = append(l.ordered, d)

	return d, nil
}

// cyclePath returns the visiting stack from the first occurrence of name.
func (l *loader) cyclePath(name string) []string {
	for i, n := range l.stack {
		if n == name {
			return append([]string(nil), l.stack[i:]...)
		}
	}
	return append([]string(nil), l.stack...)
}
