package xmlbind

import (
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zoobzio/sentinel"
)

// TypeRegistry maps type names to Go types. It is the engine's type-loading
// context: mapping documents refer to types by name, and documents without a
// target type are bound by looking up the type whose root element matches.
//
// A type is reachable under reflect.Type.String() ("orders.Order") and under
// its full import path form ("example.com/shop/orders.Order").
type TypeRegistry struct {
	parent *TypeRegistry

	mu    sync.RWMutex
	types map[string]reflect.Type
}

// DefaultTypes is the process-wide registry used when none is configured.
var DefaultTypes = NewTypeRegistry()

// NewTypeRegistry returns an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: make(map[string]reflect.Type)}
}

// RegisterType adds T to the registry and warms its struct metadata.
// T must be a struct type.
func RegisterType[T any](r *TypeRegistry) {
	sentinel.Scan[T]()
	r.Add(reflect.TypeFor[T]())
}

// Add registers the given types. Pointer types register their element type.
func (r *TypeRegistry) Add(types ...reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range types {
		t = indirectType(t)
		if t == nil || t.Name() == "" {
			continue
		}
		r.types[t.String()] = t
		if t.PkgPath() != "" {
			r.types[t.PkgPath()+"."+t.Name()] = t
		}
	}
}

// Lookup returns the type registered under name, consulting parent scopes.
func (r *TypeRegistry) Lookup(name string) (reflect.Type, bool) {
	// Fast path: read-lock check
	r.mu.RLock()
	t, ok := r.types[name]
	r.mu.RUnlock()
	if ok {
		return t, true
	}
	if r.parent != nil {
		return r.parent.Lookup(name)
	}
	return nil, false
}

// Types returns every distinct registered type, including parent scopes,
// ordered by name. Types in a child scope shadow parent types of the same name.
func (r *TypeRegistry) Types() []reflect.Type {
	seen := make(map[reflect.Type]bool)
	var out []reflect.Type
	for s := r; s != nil; s = s.parent {
		s.mu.RLock()
		for _, t := range s.types {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
		s.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// With returns a child scope holding the given types on top of r.
// The receiver is not modified.
func (r *TypeRegistry) With(types ...reflect.Type) *TypeRegistry {
	child := NewTypeRegistry()
	child.parent = r
	child.Add(types...)
	return child
}

// Reset clears the registry's own scope.
// This is primarily useful for test isolation.
func (r *TypeRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = make(map[string]reflect.Type)
}

// builtinTypes are the scalar types an xsi:type value may name without
// registration.
var builtinTypes = func() map[string]reflect.Type {
	m := make(map[string]reflect.Type)
	for _, t := range []reflect.Type{
		reflect.TypeFor[bool](),
		reflect.TypeFor[string](),
		reflect.TypeFor[int](),
		reflect.TypeFor[int8](),
		reflect.TypeFor[int16](),
		reflect.TypeFor[int32](),
		reflect.TypeFor[int64](),
		reflect.TypeFor[uint](),
		reflect.TypeFor[uint8](),
		reflect.TypeFor[uint16](),
		reflect.TypeFor[uint32](),
		reflect.TypeFor[uint64](),
		reflect.TypeFor[uintptr](),
		reflect.TypeFor[float32](),
		reflect.TypeFor[float64](),
		reflect.TypeFor[[]byte](),
		reflect.TypeFor[time.Time](),
		reflect.TypeFor[time.Duration](),
	} {
		m[t.String()] = t
	}
	return m
}()

// typeName returns the xsi:type value for t: its Go type string, with one
// leading "*" per pointer level. It reports false for unnamed types that
// could not be looked up again.
func typeName(t reflect.Type) (string, bool) {
	base := indirectType(t)
	if base.Name() == "" {
		if _, ok := builtinTypes[base.String()]; !ok {
			return "", false
		}
	}
	return t.String(), true
}

// splitTypeName strips leading "*" markers, returning the base name and
// the pointer depth.
func splitTypeName(name string) (string, int) {
	base := strings.TrimLeft(name, "*")
	return base, len(name) - len(base)
}

func indirectType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
