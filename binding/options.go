package binding

import (
	"reflect"

	"github.com/zoobzio/oxm/xmlbind"
)

// Option configures a Marshaller.
type Option func(*Marshaller)

// ResolverFactory builds the resolver a Marshaller shares across calls.
// At most one of locations and target is set.
type ResolverFactory func(locations []Resource, target reflect.Type, types *xmlbind.TypeRegistry) (*xmlbind.Resolver, error)

// ErrorConverter translates engine failures into the oxm error taxonomy.
type ErrorConverter func(err error, marshalling bool) error

// WithEncoding sets the encoding of stream results. Any label known to
// golang.org/x/net/html/charset is accepted.
func WithEncoding(label string) Option {
	return func(m *Marshaller) {
		m.encoding = label
	}
}

// WithMappingLocations loads mapping files from disk, in order.
func WithMappingLocations(paths ...string) Option {
	return func(m *Marshaller) {
		for _, p := range paths {
			m.locations = append(m.locations, FileResource(p))
		}
	}
}

// WithMappingResources loads mapping documents from arbitrary resources, in order.
func WithMappingResources(resources ...Resource) Option {
	return func(m *Marshaller) {
		m.locations = append(m.locations, resources...)
	}
}

// WithTarget binds every document to T.
func WithTarget[T any]() Option {
	return WithTargetType(reflect.TypeFor[T]())
}

// WithTargetType binds every document to t.
func WithTargetType(t reflect.Type) Option {
	return func(m *Marshaller) {
		m.target = t
	}
}

// WithTypes sets the type registry mapping documents and root elements are
// resolved against. The default is xmlbind.DefaultTypes.
func WithTypes(types *xmlbind.TypeRegistry) Option {
	return func(m *Marshaller) {
		m.types = types
	}
}

// WithValidating enables required-field checks in both directions.
func WithValidating(validating bool) Option {
	return func(m *Marshaller) {
		m.validating.Store(validating)
	}
}

// WithWhitespacePreserve keeps surrounding whitespace in text when unmarshalling.
func WithWhitespacePreserve(preserve bool) Option {
	return func(m *Marshaller) {
		m.whitespacePreserve.Store(preserve)
	}
}

// WithIgnoreExtraAttributes skips unknown attributes when unmarshalling.
func WithIgnoreExtraAttributes(ignore bool) Option {
	return func(m *Marshaller) {
		m.ignoreExtraAttributes.Store(ignore)
	}
}

// WithIgnoreExtraElements skips unknown elements when unmarshalling.
func WithIgnoreExtraElements(ignore bool) Option {
	return func(m *Marshaller) {
		m.ignoreExtraElements.Store(ignore)
	}
}

// WithResolverFactory replaces how the shared resolver is built.
func WithResolverFactory(f ResolverFactory) Option {
	return func(m *Marshaller) {
		m.resolverFactory = f
	}
}

// WithMarshallerCustomizer adds a hook run on every engine marshaller after
// the resolver and flags are applied.
func WithMarshallerCustomizer(f func(*xmlbind.Marshaller)) Option {
	return func(m *Marshaller) {
		m.marshallerHooks = append(m.marshallerHooks, f)
	}
}

// WithUnmarshallerCustomizer adds a hook run on every engine unmarshaller
// after the resolver and flags are applied.
func WithUnmarshallerCustomizer(f func(*xmlbind.Unmarshaller)) Option {
	return func(m *Marshaller) {
		m.unmarshallerHooks = append(m.unmarshallerHooks, f)
	}
}

// WithErrorConverter replaces ConvertError.
func WithErrorConverter(f ErrorConverter) Option {
	return func(m *Marshaller) {
		m.convert = f
	}
}

// WithConfig applies file or environment settings. An empty Encoding keeps
// the current encoding. TargetType is looked up in the type registry when
// the marshaller is created.
func WithConfig(cfg Config) Option {
	return func(m *Marshaller) {
		if cfg.Encoding != "" {
			m.encoding = cfg.Encoding
		}
		for _, p := range cfg.MappingLocations {
			m.locations = append(m.locations, FileResource(p))
		}
		m.targetName = cfg.TargetType
		m.validating.Store(cfg.Validating)
		m.whitespacePreserve.Store(cfg.WhitespacePreserve)
		m.ignoreExtraAttributes.Store(cfg.IgnoreExtraAttributes)
		m.ignoreExtraElements.Store(cfg.IgnoreExtraElements)
	}
}
