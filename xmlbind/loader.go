package xmlbind

import (
	"encoding/xml"
	"reflect"
)

// MappingLoader holds descriptors built from a Mapping.
// It is immutable once created.
type MappingLoader struct {
	descriptors []*Descriptor
	byType      map[reflect.Type]*Descriptor
	digest      string
}

// NewMappingLoader resolves every class in m against types and builds its
// descriptor. Unknown types or fields, duplicate classes and invalid node
// names fail with a KindMapping error. A nil registry means DefaultTypes.
func NewMappingLoader(m *Mapping, types *TypeRegistry) (*MappingLoader, error) {
	if types == nil {
		types = DefaultTypes
	}
	digest, err := m.Digest()
	if err != nil {
		return nil, err
	}

	l := &MappingLoader{
		byType: make(map[reflect.Type]*Descriptor, len(m.Classes)),
		digest: digest,
	}
	for _, cm := range m.Classes {
		t, ok := types.Lookup(cm.Name)
		if !ok {
			return nil, newError(KindMapping, cm.Name, nil, "unknown type %q", cm.Name)
		}
		if t.Kind() != reflect.Struct {
			return nil, newError(KindMapping, cm.Name, nil, "type %s is not a struct", t)
		}
		if _, dup := l.byType[t]; dup {
			return nil, newError(KindMapping, cm.Name, nil, "duplicate mapping for %s", t)
		}

		d, err := buildMapped(t, cm)
		if err != nil {
			return nil, err
		}
		l.byType[t] = d
		l.descriptors = append(l.descriptors, d)
	}
	return l, nil
}

// Descriptor returns the mapped descriptor for t.
func (l *MappingLoader) Descriptor(t reflect.Type) (*Descriptor, bool) {
	d, ok := l.byType[indirectType(t)]
	return d, ok
}

// Element returns the first mapped descriptor whose root element is name.
func (l *MappingLoader) Element(name xml.Name) (*Descriptor, bool) {
	for _, d := range l.descriptors {
		if d.Matches(name) {
			return d, true
		}
	}
	return nil, false
}

// Descriptors returns mapped descriptors in mapping order.
func (l *MappingLoader) Descriptors() []*Descriptor {
	return append([]*Descriptor(nil), l.descriptors...)
}

// Digest returns the digest of the mapping the loader was built from.
func (l *MappingLoader) Digest() string {
	return l.digest
}

func buildMapped(t reflect.Type, cm ClassMapping) (*Descriptor, error) {
	d := &Descriptor{
		Type:    t,
		XMLName: xml.Name{Local: t.Name()},
		Mapped:  true,
	}
	if cm.MapTo != nil && cm.MapTo.XML != "" {
		d.XMLName = xml.Name{Space: cm.MapTo.NamespaceURI, Local: cm.MapTo.XML}
		d.fixedName = true
	}
	if sf, ok := t.FieldByName("XMLName"); ok && sf.Type == xmlNameType {
		d.NameIndex = sf.Index
	}

	listed := make(map[string]bool, len(cm.Fields))
	for _, fm := range cm.Fields {
		path := cm.Name + "." + fm.Name
		sf, ok := t.FieldByName(fm.Name)
		if !ok || !sf.IsExported() {
			return nil, newError(KindMapping, path, nil, "no exported field %q in %s", fm.Name, t)
		}
		if listed[sf.Name] {
			return nil, newError(KindMapping, path, nil, "field %q mapped twice", fm.Name)
		}
		listed[sf.Name] = true
		if fm.Type != "" && !declaredType(fm.Type, sf.Type) {
			return nil, newError(KindMapping, path, nil, "field %q is %s, mapping declares %s", fm.Name, sf.Type, fm.Type)
		}

		fd := FieldDescriptor{
			Name:     sf.Name,
			Index:    sf.Index,
			Type:     sf.Type,
			Node:     NodeElement,
			XMLName:  xml.Name{Local: sf.Name},
			Required: fm.Required,
		}
		if b := fm.Bind; b != nil {
			node, err := ParseNodeKind(b.Node)
			if err != nil {
				return nil, newError(KindMapping, path, err, "invalid bind-xml")
			}
			fd.Node = node
			if b.Name != "" {
				fd.XMLName.Local = b.Name
			}
			fd.XMLName.Space = b.NamespaceURI
		}
		if fd.Node == NodeText && d.Text() != nil {
			return nil, newError(KindMapping, path, nil, "only one field may bind to text")
		}
		d.Fields = append(d.Fields, fd)
	}

	if cm.AutoComplete {
		intro, err := introspect(t)
		if err != nil {
			return nil, newError(KindMapping, cm.Name, err, "cannot auto-complete")
		}
		for _, fd := range intro.Fields {
			if listed[fd.Name] || (fd.Node == NodeText && d.Text() != nil) {
				continue
			}
			d.Fields = append(d.Fields, fd)
		}
	}

	return d, nil
}

// declaredType reports whether a mapping's type attribute names t, or the
// item type of t when t is a pointer or sequence.
func declaredType(name string, t reflect.Type) bool {
	for {
		if t.String() == name {
			return true
		}
		switch t.Kind() {
		case reflect.Ptr, reflect.Slice, reflect.Array:
			t = t.Elem()
		default:
			return false
		}
	}
}
