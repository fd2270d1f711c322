package exposure

import "reflect"

// Declaration states which contracts an implementation is exposed under.
// Contracts are kept in order; later duplicates are ignored.
type Declaration struct {
	Contracts       []reflect.Type
	IncludeDefaults bool
	IncludeSelf     bool
}

// Declare returns a declaration exposing the given contracts only.
func Declare(contracts ...reflect.Type) Declaration {
	return Declaration{Contracts: contracts}
}

// WithDefaults returns a copy of d that also includes convention defaults.
func (d Declaration) WithDefaults() Declaration {
	d.IncludeDefaults = true
	return d
}

// WithSelf returns a copy of d that also exposes the implementation type.
func (d Declaration) WithSelf() Declaration {
	d.IncludeSelf = true
	return d
}

// Component is a concrete, instantiable type owned by a code unit.
//
// Go cannot enumerate the interfaces a type satisfies, so Capabilities
// lists the candidate interfaces the convention match considers. Only
// those Type actually implements are ever returned.
type Component struct {
	Type         reflect.Type
	Capabilities []reflect.Type
	Declarations []Declaration
}

// ComponentOption configures a Component.
type ComponentOption func(*Component)

// NewComponent describes T as a component.
func NewComponent[T any](opts ...ComponentOption) Component {
	c := Component{Type: TypeOf[T]()}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Capabilities adds candidate interfaces for convention matching.
func Capabilities(types ...reflect.Type) ComponentOption {
	return func(c *Component) {
		c.Capabilities = append(c.Capabilities, types...)
	}
}

// Expose attaches a declaration. It may be used more than once.
func Expose(decl Declaration) ComponentOption {
	return func(c *Component) {
		c.Declarations = append(c.Declarations, decl)
	}
}

// Declared reports whether the component carries exposure metadata.
func (c Component) Declared() bool {
	return len(c.Declarations) > 0
}

// TypeOf returns the reflect.Type of T, including interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// TypeName returns a readable name for t, "<nil>" for a nil type.
func TypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
