// Package application hosts a modular application built from a startup
// module.
//
// New walks the startup module's dependencies, leaves out modules switched
// off in configuration, and configures services through the modularity
// pipeline. The application then drives the initialization and shutdown
// hooks of its modules:
//
//	app, err := application.New(ctx, &WebModule{},
//	    application.WithConfig(cfg),
//	    application.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := app.Initialize(ctx); err != nil {
//	    return err
//	}
//	defer app.Shutdown(context.Background())
//
// # Module conditions
//
// modules.<name>.enabledWhen holds a CEL expression over the variables
// environment, application, module and settings, plus the getenv
// function:
//
//	modules:
//	  search:
//	    enabledWhen: environment != "Development" || getenv("SEARCH") == "on"
package application
