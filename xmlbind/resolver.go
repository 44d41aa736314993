package xmlbind

import (
	"encoding/xml"
	"reflect"
	"sync"
)

// Resolver produces descriptors for types and root elements.
//
// Descriptors from an attached MappingLoader take precedence; any other
// struct type is introspected from its tags on first use and cached.
// Resolvers are safe for concurrent use once configured.
type Resolver struct {
	types  *TypeRegistry
	loader *MappingLoader

	mu    sync.RWMutex
	cache map[reflect.Type]*Descriptor
}

// NewResolver creates a resolver over types. A nil registry means DefaultTypes.
func NewResolver(types *TypeRegistry) *Resolver {
	if types == nil {
		types = DefaultTypes
	}
	return &Resolver{
		types: types,
		cache: make(map[reflect.Type]*Descriptor),
	}
}

// SetTypes replaces the type-loading context.
// Call it before the resolver is shared.
func (r *Resolver) SetTypes(types *TypeRegistry) {
	r.types = types
}

// Types returns the type-loading context.
func (r *Resolver) Types() *TypeRegistry {
	return r.types
}

// SetMappingLoader attaches mapped descriptors.
// Call it before the resolver is shared.
func (r *Resolver) SetMappingLoader(loader *MappingLoader) {
	r.loader = loader
}

// MappingLoader returns the attached loader, or nil.
func (r *Resolver) MappingLoader() *MappingLoader {
	return r.loader
}

// Resolve returns the descriptor for t. Pointer types resolve to their element type.
func (r *Resolver) Resolve(t reflect.Type) (*Descriptor, error) {
	t = indirectType(t)
	if t == nil {
		return nil, newError(KindResolve, "", nil, "nil type")
	}
	if r.loader != nil {
		if d, ok := r.loader.Descriptor(t); ok {
			return d, nil
		}
	}

	// Fast path: read-lock cache check
	r.mu.RLock()
	if d, ok := r.cache[t]; ok {
		r.mu.RUnlock()
		return d, nil
	}
	r.mu.RUnlock()

	// Slow path: build and cache with write-lock
	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check pattern
	if d, ok := r.cache[t]; ok {
		return d, nil
	}

	d, err := introspect(t)
	if err != nil {
		return nil, err
	}
	r.cache[t] = d
	return d, nil
}

// ResolveElement returns the descriptor whose root element is name.
// Mapped classes are searched first, then every type in the registry.
func (r *Resolver) ResolveElement(name xml.Name) (*Descriptor, error) {
	if r.loader != nil {
		if d, ok := r.loader.Element(name); ok {
			return d, nil
		}
	}
	if r.types != nil {
		for _, t := range r.types.Types() {
			d, err := r.Resolve(t)
			if err != nil {
				continue
			}
			if d.Matches(name) {
				return d, nil
			}
		}
	}
	return nil, newError(KindResolve, name.Local, nil, "no descriptor for element %q", name.Local)
}

// ResolveName returns the descriptor for a registered type name.
// Leading "*" markers are ignored.
func (r *Resolver) ResolveName(name string) (*Descriptor, error) {
	t, err := r.ResolveType(name)
	if err != nil {
		return nil, err
	}
	return r.Resolve(t)
}

// ResolveType returns the type an xsi:type value names. Builtin scalar
// types need no registration; each leading "*" adds a pointer level.
func (r *Resolver) ResolveType(name string) (reflect.Type, error) {
	base, depth := splitTypeName(name)
	t, ok := builtinTypes[base]
	if !ok {
		if r.types == nil {
			return nil, newError(KindResolve, name, nil, "no type registry")
		}
		if t, ok = r.types.Lookup(base); !ok {
			return nil, newError(KindResolve, name, nil, "unknown type %q", name)
		}
	}
	for ; depth > 0; depth-- {
		t = reflect.PointerTo(t)
	}
	return t, nil
}
