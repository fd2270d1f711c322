package exposure

import (
	"reflect"
	"strings"
)

// DefaultMarker is the leading character stripped from capability names
// before the convention match.
const DefaultMarker = "I"

// Resolver computes the contracts an implementation is registered under.
// The zero value strips no marker.
type Resolver struct {
	Marker string
}

// NewResolver creates a resolver using marker as the capability prefix.
func NewResolver(marker string) Resolver {
	return Resolver{Marker: marker}
}

var defaultResolver = NewResolver(DefaultMarker)

// Resolve resolves one declaration with the default marker.
func Resolve(c Component, decl Declaration) []reflect.Type {
	return defaultResolver.Resolve(c, decl)
}

// ResolveAll resolves every declaration on c with the default marker.
func ResolveAll(c Component) []reflect.Type {
	return defaultResolver.ResolveAll(c)
}

// Resolve returns explicit contracts, then convention defaults, then the
// implementation itself, without duplicates. A nil implementation
// resolves to nothing.
func (r Resolver) Resolve(c Component, decl Declaration) []reflect.Type {
	if c.Type == nil {
		return nil
	}
	s := newTypeSet()
	r.resolveInto(s, c, decl)
	return s.items
}

// ResolveAll merges the declarations on c by union in attachment order.
// The first occurrence of a contract fixes its position.
func (r Resolver) ResolveAll(c Component) []reflect.Type {
	if c.Type == nil {
		return nil
	}
	s := newTypeSet()
	for _, decl := range c.Declarations {
		r.resolveInto(s, c, decl)
	}
	return s.items
}

func (r Resolver) resolveInto(s *typeSet, c Component, decl Declaration) {
	for _, contract := range decl.Contracts {
		s.add(contract)
	}
	if decl.IncludeDefaults {
		for _, capability := range r.Defaults(c) {
			s.add(capability)
		}
	}
	if decl.IncludeSelf {
		s.add(c.Type)
	}
}

// Defaults returns the candidate capabilities c.Type implements whose stem
// is a suffix of the implementation's bare name.
//
// A capability named exactly the marker has an empty stem and is never a
// default for any implementation. An empty stem would otherwise be a suffix
// of every name; such a capability has to be listed as an explicit contract.
func (r Resolver) Defaults(c Component) []reflect.Type {
	if c.Type == nil {
		return nil
	}
	implName := BareName(c.Type)

	var defaults []reflect.Type
	for _, capability := range c.Capabilities {
		if capability == nil || capability.Kind() != reflect.Interface {
			continue
		}
		if !c.Type.Implements(capability) {
			continue
		}
		stem := r.Stem(capability)
		if stem == "" || !strings.HasSuffix(implName, stem) {
			continue
		}
		defaults = append(defaults, capability)
	}
	return defaults
}

// Stem returns the bare name of a capability with one leading marker removed.
func (r Resolver) Stem(capability reflect.Type) string {
	name := BareName(capability)
	if r.Marker != "" {
		name = strings.TrimPrefix(name, r.Marker)
	}
	return name
}

// BareName returns the declared name of t with pointers dereferenced and
// any generic instantiation suffix removed.
func BareName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}

type typeSet struct {
	seen  map[reflect.Type]struct{}
	items []reflect.Type
}

func newTypeSet() *typeSet {
	return &typeSet{seen: make(map[reflect.Type]struct{})}
}

func (s *typeSet) add(t reflect.Type) {
	if t == nil {
		return
	}
	if _, ok := s.seen[t]; ok {
		return
	}
	s.seen[t] = struct{}{}
	s.items = append(s.items, t)
}
