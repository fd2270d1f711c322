// Package config provides the configuration model and YAML loading for
// modboot applications.
//
// # Features
//
//   - YAML configuration file loading
//   - Environment variable substitution with ${VAR:-default} syntax, $$ escapes a dollar
//   - Include files merged underneath the including file
//   - Defaults and validation with accumulated error reporting
//   - Per-module settings, switches and CEL conditions
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("configs/modboot.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Merging
//
// When files are merged, set scalars override and modules are replaced by
// name. A boolean switched on by an earlier layer cannot be switched off
// by a later one.
package config
