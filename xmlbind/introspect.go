package xmlbind

import (
	"encoding/xml"
	"reflect"
	"strings"

	"github.com/zoobzio/sentinel"
)

func init() {
	// Register struct tags read during introspection
	sentinel.Tag("xml")
	sentinel.Tag("oxm")
}

// introspect builds a descriptor from xml and oxm struct tags.
//
// The xml tag follows encoding/xml: "name", "ns name", ",attr", ",chardata",
// ",omitempty" and "-". Other forms mark the type as Delegate. The oxm tag
// accepts "required".
func introspect(t reflect.Type) (*Descriptor, error) {
	t = indirectType(t)
	if t == nil {
		return nil, newError(KindResolve, "", nil, "nil type")
	}
	if t.Kind() != reflect.Struct {
		return nil, newError(KindResolve, t.String(), nil, "type %s is not a struct", t)
	}
	if implementsAny(t, xmlMarshalerType) || implementsAny(t, xmlUnmarshalerType) {
		return &Descriptor{Type: t, XMLName: xml.Name{Local: t.Name()}, Delegate: true}, nil
	}

	meta, _ := structMetadata(t)
	d := &Descriptor{
		Type:    t,
		XMLName: xml.Name{Local: t.Name()},
	}
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Anonymous {
			d.Delegate = true
		}
	}

	for _, field := range meta.Fields {
		sf := t.FieldByIndex(field.Index)
		if sf.Anonymous {
			d.Delegate = true
			continue
		}
		if !sf.IsExported() {
			continue
		}

		tag, _ := fieldTag(sf, field, "xml")
		if sf.Name == "XMLName" {
			name, _, _ := strings.Cut(tag, ",")
			if name != "" {
				d.XMLName = splitName(name)
				d.fixedName = true
			}
			if sf.Type == xmlNameType {
				d.NameIndex = field.Index
			}
			continue
		}
		if tag == "-" {
			continue
		}

		fd, ok := parseFieldTag(sf, field.Index, tag)
		if !ok || (fd.Node == NodeText && d.Text() != nil) {
			d.Delegate = true
			continue
		}
		if opts, ok := fieldTag(sf, field, "oxm"); ok {
			for _, opt := range strings.Split(opts, ",") {
				if strings.TrimSpace(opt) == "required" {
					fd.Required = true
				}
			}
		}
		d.Fields = append(d.Fields, fd)
	}

	return d, nil
}

// parseFieldTag interprets an encoding/xml field tag.
// It returns false for forms that need encoding/xml itself.
func parseFieldTag(sf reflect.StructField, index []int, tag string) (FieldDescriptor, bool) {
	name, opts, _ := strings.Cut(tag, ",")
	fd := FieldDescriptor{
		Name:  sf.Name,
		Index: index,
		Type:  sf.Type,
		Node:  NodeElement,
	}

	for _, opt := range strings.Split(opts, ",") {
		switch opt {
		case "":
		case "attr":
			fd.Node = NodeAttribute
		case "chardata":
			fd.Node = NodeText
		case "omitempty":
			fd.OmitEmpty = true
		default:
			return fd, false
		}
	}
	if strings.Contains(name, ">") {
		return fd, false
	}

	fd.XMLName = splitName(name)
	if fd.XMLName.Local == "" {
		fd.XMLName.Local = sf.Name
	}
	return fd, true
}

// splitName splits "namespace-URL local" into an xml.Name.
func splitName(name string) xml.Name {
	if i := strings.LastIndex(name, " "); i >= 0 {
		return xml.Name{Space: name[:i], Local: name[i+1:]}
	}
	return xml.Name{Local: name}
}

// structMetadata returns sentinel's cached metadata for t, scanning it with
// reflection when the type was never registered. cached reports which.
//
// Sentinel keys its cache by the bare type name, so metadataFits rejects
// entries that belong to a same-named type in another package.
func structMetadata(t reflect.Type) (meta sentinel.Metadata, cached bool) {
	if meta, ok := sentinel.Lookup(t.Name()); ok && metadataFits(meta, t) {
		return meta, true
	}

	meta = sentinel.Metadata{
		TypeName:    t.Name(),
		PackageName: t.PkgPath(),
		Fields:      make([]sentinel.FieldMetadata, 0, t.NumField()),
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		fm := sentinel.FieldMetadata{
			Name:        sf.Name,
			Type:        sf.Type.String(),
			ReflectType: sf.Type,
			Index:       sf.Index,
			Tags:        lookupTags(sf.Tag, "xml", "oxm"),
		}

		switch sf.Type.Kind() {
		case reflect.Struct:
			fm.Kind = sentinel.KindStruct
		case reflect.Ptr:
			fm.Kind = sentinel.KindPointer
		case reflect.Slice, reflect.Array:
			fm.Kind = sentinel.KindSlice
		case reflect.Map:
			fm.Kind = sentinel.KindMap
		case reflect.Interface:
			fm.Kind = sentinel.KindInterface
		default:
			fm.Kind = sentinel.KindScalar
		}

		meta.Fields = append(meta.Fields, fm)
	}

	return meta, false
}

// metadataFits guards against two packages sharing a short type name and
// against metadata that does not list every exported field.
func metadataFits(meta sentinel.Metadata, t reflect.Type) bool {
	if meta.TypeName != t.Name() || meta.PackageName != t.PkgPath() {
		return false
	}
	exported := 0
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			exported++
		}
	}
	if len(meta.Fields) != exported {
		return false
	}
	for _, f := range meta.Fields {
		if len(f.Index) == 0 || f.Index[0] >= t.NumField() {
			return false
		}
	}
	return true
}

func fieldTag(sf reflect.StructField, fm sentinel.FieldMetadata, key string) (string, bool) {
	if v, ok := fm.Tags[key]; ok {
		return v, true
	}
	return sf.Tag.Lookup(key)
}

func lookupTags(tag reflect.StructTag, keys ...string) map[string]string {
	tags := make(map[string]string)
	for _, key := range keys {
		if val, ok := tag.Lookup(key); ok {
			tags[key] = val
		}
	}
	return tags
}
