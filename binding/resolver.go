package binding

import (
	"fmt"
	"reflect"

	"github.com/zoobzio/oxm/xmlbind"
)

// NewResolver is the default ResolverFactory.
//
// With locations, every document is loaded in order into one mapping and
// its classes take precedence over introspection. With a target type, the
// registry is scoped to include it and the type is resolved eagerly.
// Otherwise any struct type is introspected on first use.
func NewResolver(locations []Resource, target reflect.Type, types *xmlbind.TypeRegistry) (*xmlbind.Resolver, error) {
	if types == nil {
		types = xmlbind.DefaultTypes
	}

	switch {
	case len(locations) > 0:
		mapping, err := loadMapping(locations)
		if err != nil {
			return nil, err
		}
		loader, err := xmlbind.NewMappingLoader(mapping, types)
		if err != nil {
			return nil, err
		}
		r := xmlbind.NewResolver(types)
		r.SetMappingLoader(loader)
		return r, nil

	case target != nil:
		r := xmlbind.NewResolver(types.With(target))
		if _, err := r.Resolve(target); err != nil {
			return nil, err
		}
		return r, nil

	default:
		return xmlbind.NewResolver(types), nil
	}
}

func loadMapping(locations []Resource) (*xmlbind.Mapping, error) {
	mapping := xmlbind.NewMapping()
	for _, loc := range locations {
		if err := loadResource(mapping, loc); err != nil {
			return nil, err
		}
	}
	return mapping, nil
}

func loadResource(mapping *xmlbind.Mapping, loc Resource) error {
	rc, err := loc.Open()
	if err != nil {
		return fmt.Errorf("open mapping %s: %w", loc, err)
	}
	defer rc.Close()

	if err := mapping.Load(rc, xmlbind.FormatFor(loc.String())); err != nil {
		return fmt.Errorf("load mapping %s: %w", loc, err)
	}
	return nil
}
