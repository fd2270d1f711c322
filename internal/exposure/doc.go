// Package exposure decides which contracts an implementation type is
// registered under.
//
// A Component describes a concrete type, the candidate interfaces it may be
// exposed as, and zero or more Declarations. Resolution order is explicit
// contracts, then convention defaults, then the type itself:
//
//	c := exposure.NewComponent[*FastOrderService](
//	    exposure.Capabilities(exposure.TypeOf[IOrderService](), exposure.TypeOf[io.Closer]()),
//	    exposure.Expose(exposure.Declare().WithDefaults().WithSelf()),
//	)
//	contracts := exposure.ResolveAll(c) // [IOrderService, *FastOrderService]
//
// A capability is a convention default when the implementation implements
// it and its stem (bare name without the "I" marker) is a case-sensitive
// suffix of the implementation's bare name.
package exposure
