package modularity

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/vyrodovalexey/modboot/internal/exposure"
	"github.com/vyrodovalexey/modboot/internal/util"
)

// Capability is the set of hooks a module implements.
type Capability uint8

// Capabilities.
const (
	CapPreConfigure Capability = 1 << iota
	CapConfigure
	CapPostConfigure
	CapInitialize
	CapShutdown
)

var capabilityNames = []struct {
	c    Capability
	name string
}{
	{CapPreConfigure, "PreConfigure"},
	{CapConfigure, "Configure"},
	{CapPostConfigure, "PostConfigure"},
	{CapInitialize, "Initialize"},
	{CapShutdown, "Shutdown"},
}

// Has reports whether c contains every capability in other.
func (c Capability) Has(other Capability) bool {
	return c&other == other
}

// String returns the capability names joined by "|", or "none".
func (c Capability) String() string {
	var parts []string
	for _, n := range capabilityNames {
		if c.Has(n.c) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

type configureHook func(ctx context.Context, cc *ConfigurationContext) error

type lifecycleHook func(ctx context.Context) error

// Descriptor describes one module. It is immutable once built.
type Descriptor struct {
	name         string
	typ          reflect.Type
	instance     Module
	codeUnits    []*CodeUnit
	dependsOn    []*Descriptor
	skipAutoReg  bool
	capabilities Capability

	phaseHooks [phaseCount]configureHook
	initialize lifecycleHook
	shutdown   lifecycleHook
	holder     contextHolder
}

// DescriptorOption configures a Descriptor.
type DescriptorOption func(*Descriptor)

// WithName overrides the module name.
func WithName(name string) DescriptorOption {
	return func(d *Descriptor) {
		d.name = name
	}
}

// WithCodeUnits appends code units to those the module provides itself.
func WithCodeUnits(units ...*CodeUnit) DescriptorOption {
	return func(d *Descriptor) {
		for _, u := range units {
			if u != nil {
				d.codeUnits = append(d.codeUnits, u)
			}
		}
	}
}

// WithDependencies records the descriptors this module depends on.
func WithDependencies(deps ...*Descriptor) DescriptorOption {
	return func(d *Descriptor) {
		d.dependsOn = append(d.dependsOn, deps...)
	}
}

// WithSkipAutoRegistration disables code unit scanning for the module.
func WithSkipAutoRegistration(skip bool) DescriptorOption {
	return func(d *Descriptor) {
		d.skipAutoReg = d.skipAutoReg || skip
	}
}

var contextHolderType = reflect.TypeOf((*contextHolder)(nil)).Elem()

// NewDescriptor inspects instance once for the hooks it implements and
// returns its descriptor.
func NewDescriptor(instance Module, opts ...DescriptorOption) (*Descriptor, error) {
	if err := util.NotNil(instance, "instance"); err != nil {
		return nil, err
	}
	if t := reflect.TypeOf(instance); t.Kind() != reflect.Ptr && reflect.PointerTo(t).Implements(contextHolderType) {
		return nil, util.NewArgumentError("instance",
			fmt.Sprintf("module %s embeds Base and must be passed by pointer", t))
	}

	d := &Descriptor{
		typ:      reflect.TypeOf(instance),
		instance: instance,
	}

	if m, ok := instance.(PreConfigurer); ok {
		d.phaseHooks[PhasePreConfigure] = m.PreConfigureServices
		d.capabilities |= CapPreConfigure
	}
	if m, ok := instance.(Configurer); ok {
		d.phaseHooks[PhaseConfigure] = m.ConfigureServices
		d.capabilities |= CapConfigure
	}
	if m, ok := instance.(PostConfigurer); ok {
		d.phaseHooks[PhasePostConfigure] = m.PostConfigureServices
		d.capabilities |= CapPostConfigure
	}
	if m, ok := instance.(Initializer); ok {
		d.initialize = m.OnApplicationInitialization
		d.capabilities |= CapInitialize
	}
	if m, ok := instance.(Shutdowner); ok {
		d.shutdown = m.OnApplicationShutdown
		d.capabilities |= CapShutdown
	}
	if h, ok := instance.(contextHolder); ok {
		d.holder = h
		d.skipAutoReg = h.skipsAutoRegistration()
	}
	if p, ok := instance.(CodeUnitProvider); ok {
		for _, u := range p.CodeUnits() {
			if u != nil {
				d.codeUnits = append(d.codeUnits, u)
			}
		}
	}
	d.name = NameOf(instance)

	for _, opt := range opts {
		opt(d)
	}

	if d.name == "" {
		d.name = exposure.BareName(d.typ)
	}
	if _, err := util.NotBlank(d.name, "name", 0, 0); err != nil {
		return nil, err
	}

	return d, nil
}

// NameOf returns the ModuleName of a Named module, or the bare name of its
// type.
func NameOf(m Module) string {
	if n, ok := m.(Named); ok {
		if name := n.ModuleName(); name != "" {
			return name
		}
	}
	return exposure.BareName(reflect.TypeOf(m))
}

// Name returns the module name.
func (d *Descriptor) Name() string { return d.name }

// Type returns the module's dynamic type.
func (d *Descriptor) Type() reflect.Type { return d.typ }

// Instance returns the live module value.
func (d *Descriptor) Instance() Module { return d.instance }

// Capabilities returns the hooks the module implements.
func (d *Descriptor) Capabilities() Capability { return d.capabilities }

// SkipsAutoRegistration reports whether code units are never scanned.
func (d *Descriptor) SkipsAutoRegistration() bool { return d.skipAutoReg }

// CodeUnits returns a copy of the module's code units.
func (d *Descriptor) CodeUnits() []*CodeUnit {
	out := make([]*CodeUnit, len(d.codeUnits))
	copy(out, d.codeUnits)
	return out
}

// DependsOn returns a copy of the module's direct dependencies.
func (d *Descriptor) DependsOn() []*Descriptor {
	out := make([]*Descriptor, len(d.dependsOn))
	copy(out, d.dependsOn)
	return out
}

// Initialize runs the module's initialization hook, if any.
func (d *Descriptor) Initialize(ctx context.Context) error {
	if d.initialize == nil {
		return nil
	}
	return d.initialize(ctx)
}

// Shutdown runs the module's shutdown hook, if any.
func (d *Descriptor) Shutdown(ctx context.Context) error {
	if d.shutdown == nil {
		return nil
	}
	return d.shutdown(ctx)
}

func (d *Descriptor) attach(cc *ConfigurationContext) {
	if d.holder != nil {
		d.holder.attach(cc)
	}
}

func (d *Descriptor) detach() {
	if d.holder != nil {
		d.holder.detach()
	}
}
