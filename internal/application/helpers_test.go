package application

import (
	"context"

	"github.com/vyrodovalexey/modboot/internal/exposure"
	"github.com/vyrodovalexey/modboot/internal/modularity"
	"github.com/vyrodovalexey/modboot/internal/util"
)

type recorder struct {
	events []string
}

func (r *recorder) add(event string) {
	r.events = append(r.events, event)
}

// hooks carries the lifecycle methods shared by the test modules. Modules
// are told apart by type, so each test module embeds hooks in its own struct.
type hooks struct {
	name string
	rec  *recorder
	deps []modularity.Module

	failConfigure error
	failInit      error
	failShutdown  error

	instanceID string
}

func (h *hooks) ModuleName() string { return h.name }

func (h *hooks) DependsOn() []modularity.Module { return h.deps }

func (h *hooks) ConfigureServices(ctx context.Context, _ *modularity.ConfigurationContext) error {
	h.rec.add(h.name + ":configure")
	h.instanceID = util.InstanceIDFromContext(ctx)
	return h.failConfigure
}

func (h *hooks) OnApplicationInitialization(context.Context) error {
	h.rec.add(h.name + ":init")
	return h.failInit
}

func (h *hooks) OnApplicationShutdown(context.Context) error {
	h.rec.add(h.name + ":shutdown")
	return h.failShutdown
}

type coreModule struct {
	modularity.Base
	hooks
}

type searchModule struct {
	modularity.Base
	hooks
}

type webModule struct {
	modularity.Base
	hooks
}

type fixture struct {
	rec    *recorder
	core   *coreModule
	search *searchModule
	web    *webModule
}

// newFixture builds web -> (core, search), search -> core.
func newFixture() *fixture {
	rec := &recorder{}
	core := &coreModule{hooks: hooks{name: "core", rec: rec}}
	search := &searchModule{hooks: hooks{name: "search", rec: rec, deps: []modularity.Module{core}}}
	web := &webModule{hooks: hooks{name: "web", rec: rec, deps: []modularity.Module{core, search}}}
	return &fixture{rec: rec, core: core, search: search, web: web}
}

func moduleNames(app *Application) []string {
	var names []string
	for _, d := range app.Modules() {
		names = append(names, d.Name())
	}
	return names
}

type IGreeter interface {
	Greet() string
}

type EnglishGreeter struct{}

func (EnglishGreeter) Greet() string { return "hello" }

func greeterUnit() *modularity.CodeUnit {
	return modularity.NewCodeUnit("greeters",
		exposure.NewComponent[*EnglishGreeter](
			exposure.Capabilities(exposure.TypeOf[IGreeter]()),
			exposure.Expose(exposure.Declare().WithDefaults()),
		),
	)
}
