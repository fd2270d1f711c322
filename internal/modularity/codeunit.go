package modularity

import "github.com/vyrodovalexey/modboot/internal/exposure"

// CodeUnit groups the components a module ships. Identity is the pointer:
// two modules sharing a *CodeUnit share one scan per run.
type CodeUnit struct {
	Name       string
	Components []exposure.Component
}

// NewCodeUnit creates a code unit.
func NewCodeUnit(name string, components ...exposure.Component) *CodeUnit {
	return &CodeUnit{
		Name:       name,
		Components: components,
	}
}
