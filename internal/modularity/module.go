package modularity

import "context"

// Module is any value taking part in application start-up. What a module
// does is discovered once, when its Descriptor is built, through the
// optional interfaces below.
type Module = any

// PreConfigurer runs before any module's ConfigureServices.
type PreConfigurer interface {
	PreConfigureServices(ctx context.Context, cc *ConfigurationContext) error
}

// Configurer registers the module's services.
type Configurer interface {
	ConfigureServices(ctx context.Context, cc *ConfigurationContext) error
}

// PostConfigurer runs after every module's ConfigureServices.
type PostConfigurer interface {
	PostConfigureServices(ctx context.Context, cc *ConfigurationContext) error
}

// Initializer runs once the application is configured.
type Initializer interface {
	OnApplicationInitialization(ctx context.Context) error
}

// Shutdowner runs when the application stops.
type Shutdowner interface {
	OnApplicationShutdown(ctx context.Context) error
}

// Dependent declares the modules that must be configured first.
type Dependent interface {
	DependsOn() []Module
}

// CodeUnitProvider lists the code units a module owns.
type CodeUnitProvider interface {
	CodeUnits() []*CodeUnit
}

// Named overrides the module name derived from its type.
type Named interface {
	ModuleName() string
}

// contextHolder is satisfied by modules embedding Base.
type contextHolder interface {
	attach(cc *ConfigurationContext)
	detach()
	skipsAutoRegistration() bool
}

// Base is embedded by modules that need the configuration context outside
// their hook arguments or want to opt out of auto-registration.
//
// Its methods have pointer receivers, so a module embedding Base must be
// passed by pointer. NewDescriptor rejects such a module passed by value.
type Base struct {
	// SkipAutoRegistration disables code unit scanning for this module.
	SkipAutoRegistration bool

	cc *ConfigurationContext
}

// ConfigurationContext returns the context of the running pipeline, or nil
// outside a run.
func (b *Base) ConfigurationContext() *ConfigurationContext {
	return b.cc
}

func (b *Base) attach(cc *ConfigurationContext) {
	b.cc = cc
}

func (b *Base) detach() {
	b.cc = nil
}

func (b *Base) skipsAutoRegistration() bool {
	return b.SkipAutoRegistration
}
