// Package samples contains the modules of the demo application the modboot
// command runs: a web module depending on catalog and search modules, which
// both build on a core module.
package samples
