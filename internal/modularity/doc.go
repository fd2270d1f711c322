// Package modularity configures an ordered set of modules before an
// application starts serving.
//
// A module is any value. Building its Descriptor inspects it once for the
// hooks it implements (PreConfigurer, Configurer, PostConfigurer,
// Initializer, Shutdowner) and records them as a Capability set. The
// Pipeline then walks all modules through each phase in turn:
//
//	p := modularity.NewPipeline(modularity.WithLogger(logger))
//	if err := p.Run(ctx, descriptors, reg); err != nil {
//	    var cfgErr *modularity.ConfigurationError
//	    if errors.As(err, &cfgErr) {
//	        // cfgErr.Module and cfgErr.Phase name the failing hook
//	    }
//	}
//
// Right before a module's Configure hook, the code units it owns are
// scanned once per run and every declared component is registered under
// the contracts the exposure resolver returns.
package modularity
