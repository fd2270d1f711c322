// Package health provides health and readiness probe endpoints for
// modboot hosts.
//
// Readiness is the sum of registered checks. PipelineCheck turns the
// configuration pipeline state into a check:
//
//	checker := health.NewChecker(version, logger)
//	checker.RegisterCheck("pipeline", health.PipelineCheck(app.State))
//
//	mux := http.NewServeMux()
//	checker.Register(mux)
package health
