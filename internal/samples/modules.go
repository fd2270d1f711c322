package samples

import (
	"context"
	"errors"
	"time"

	"github.com/vyrodovalexey/modboot/internal/exposure"
	"github.com/vyrodovalexey/modboot/internal/modularity"
	"github.com/vyrodovalexey/modboot/internal/observability"
)

// Item keys shared between the sample modules.
const (
	ItemStartedAt = "core.startedAt"
	ItemCurrency  = "catalog.currency"
	ItemSeed      = "catalog.seed"
)

// Code units of the sample application. Catalog is listed by both the
// catalog and the search module and is scanned once.
var (
	CoreUnit = modularity.NewCodeUnit("core",
		exposure.NewComponent[*SystemClock](
			exposure.Expose(exposure.Declare().WithSelf()),
		),
	)

	CatalogUnit = modularity.NewCodeUnit("catalog",
		exposure.NewComponent[*MemoryProductRepository](
			exposure.Capabilities(
				exposure.TypeOf[IProductRepository](),
				exposure.TypeOf[IRepository[Product]](),
				exposure.TypeOf[IPriceFormatter](),
			),
			exposure.Expose(exposure.Declare().WithDefaults()),
		),
		exposure.NewComponent[*EuroPriceFormatter](
			exposure.Capabilities(exposure.TypeOf[IPriceFormatter]()),
			exposure.Expose(exposure.Declare().WithDefaults().WithSelf()),
		),
		exposure.NewComponent[*ProductService](
			exposure.Expose(exposure.Declare(exposure.TypeOf[IProductService]()).WithSelf()),
		),
	)

	SearchUnit = modularity.NewCodeUnit("search",
		exposure.NewComponent[*InMemorySearchIndex](
			exposure.Capabilities(exposure.TypeOf[ISearchIndex]()),
			exposure.Expose(exposure.Declare().WithDefaults()),
		),
		exposure.NewComponent[*queryNormalizer](),
	)
)

// CodeUnits returns every sample code unit.
func CodeUnits() []*modularity.CodeUnit {
	return []*modularity.CodeUnit{CoreUnit, CatalogUnit, SearchUnit}
}

// CoreModule registers the clock.
type CoreModule struct {
	modularity.Base
}

// ModuleName implements modularity.Named.
func (*CoreModule) ModuleName() string { return "core" }

// CodeUnits implements modularity.CodeUnitProvider.
func (*CoreModule) CodeUnits() []*modularity.CodeUnit {
	return []*modularity.CodeUnit{CoreUnit}
}

// PreConfigureServices records the configuration start time.
func (*CoreModule) PreConfigureServices(_ context.Context, cc *modularity.ConfigurationContext) error {
	return cc.Set(ItemStartedAt, time.Now())
}

// ConfigureServices registers the system clock instance.
func (*CoreModule) ConfigureServices(_ context.Context, cc *modularity.ConfigurationContext) error {
	_, err := modularity.Add[IClock](cc, &SystemClock{})
	return err
}

// CatalogModule provides the product services.
type CatalogModule struct {
	modularity.Base

	Core *CoreModule
}

// ModuleName implements modularity.Named.
func (*CatalogModule) ModuleName() string { return "catalog" }

// DependsOn implements modularity.Dependent.
func (m *CatalogModule) DependsOn() []modularity.Module {
	return []modularity.Module{m.Core}
}

// CodeUnits implements modularity.CodeUnitProvider.
func (*CatalogModule) CodeUnits() []*modularity.CodeUnit {
	return []*modularity.CodeUnit{CatalogUnit}
}

// ConfigureServices publishes the currency and the seed products.
func (*CatalogModule) ConfigureServices(_ context.Context, cc *modularity.ConfigurationContext) error {
	if err := cc.Set(ItemCurrency, "EUR"); err != nil {
		return err
	}
	repo := NewMemoryProductRepository(
		Product{ID: "p-1", Name: "Espresso machine", Price: 24900},
		Product{ID: "p-2", Name: "Milk frother", Price: 3450},
		Product{ID: "p-3", Name: "Espresso cups", Price: 1999},
	)
	return cc.Set(ItemSeed, repo)
}

// SearchModule provides the search index. It shares the catalog code unit.
type SearchModule struct {
	modularity.Base

	Catalog *CatalogModule
}

// ModuleName implements modularity.Named.
func (*SearchModule) ModuleName() string { return "search" }

// DependsOn implements modularity.Dependent.
func (m *SearchModule) DependsOn() []modularity.Module {
	return []modularity.Module{m.Catalog}
}

// CodeUnits implements modularity.CodeUnitProvider.
func (*SearchModule) CodeUnits() []*modularity.CodeUnit {
	return []*modularity.CodeUnit{CatalogUnit, SearchUnit}
}

// PostConfigureServices checks that the catalog published its products.
func (*SearchModule) PostConfigureServices(_ context.Context, cc *modularity.ConfigurationContext) error {
	if _, ok := modularity.Item[*MemoryProductRepository](cc, ItemSeed); !ok {
		return errors.New("catalog seed is missing")
	}
	return nil
}

// WebModule is the startup module of the sample application.
type WebModule struct {
	modularity.Base

	Catalog *CatalogModule
	Search  *SearchModule

	logger observability.Logger
}

// NewWebModule wires the sample module graph.
func NewWebModule(logger observability.Logger) *WebModule {
	if logger == nil {
		logger = observability.NopLogger()
	}
	core := &CoreModule{}
	catalog := &CatalogModule{Core: core}
	return &WebModule{
		Catalog: catalog,
		Search:  &SearchModule{Catalog: catalog},
		logger:  logger,
	}
}

// ModuleName implements modularity.Named.
func (*WebModule) ModuleName() string { return "web" }

// DependsOn implements modularity.Dependent.
func (m *WebModule) DependsOn() []modularity.Module {
	return []modularity.Module{m.Catalog, m.Search}
}

// PostConfigureServices requires the currency published by the catalog.
func (*WebModule) PostConfigureServices(_ context.Context, cc *modularity.ConfigurationContext) error {
	if _, ok := modularity.Item[string](cc, ItemCurrency); !ok {
		return errors.New("catalog currency is missing")
	}
	return nil
}

// OnApplicationInitialization logs the start of the web module.
func (m *WebModule) OnApplicationInitialization(ctx context.Context) error {
	m.logger.WithContext(ctx).Info("web module started")
	return nil
}

// OnApplicationShutdown logs the stop of the web module.
func (m *WebModule) OnApplicationShutdown(ctx context.Context) error {
	m.logger.WithContext(ctx).Info("web module stopped")
	return nil
}
