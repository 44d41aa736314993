package xmlbind

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"reflect"

	"mellium.im/xmlstream"
)

// XSINamespace is the XML Schema instance namespace used for xsi:type.
const XSINamespace = "http://www.w3.org/2001/XMLSchema-instance"

// Marshaller writes object graphs as XML tokens.
// A Marshaller is meant for a single Marshal call; create one per document.
type Marshaller struct {
	w           xmlstream.TokenWriter
	resolver    *Resolver
	validation  bool
	declaration string
}

// NewMarshaller returns a marshaller writing to w. An *xml.Encoder is a
// valid token writer.
func NewMarshaller(w xmlstream.TokenWriter) *Marshaller {
	return &Marshaller{w: w}
}

// SetResolver sets the descriptor resolver. Without one a resolver over
// DefaultTypes is used.
func (m *Marshaller) SetResolver(r *Resolver) {
	m.resolver = r
}

// Resolver returns the configured resolver.
func (m *Marshaller) Resolver() *Resolver {
	if m.resolver == nil {
		m.resolver = NewResolver(nil)
	}
	return m.resolver
}

// SetValidation enables required-field checks before writing.
func (m *Marshaller) SetValidation(validate bool) {
	m.validation = validate
}

// Validation reports whether required-field checks are enabled.
func (m *Marshaller) Validation() bool {
	return m.validation
}

// SetDeclaration makes Marshal start with an XML declaration naming
// encoding. An empty encoding writes no declaration.
func (m *Marshaller) SetDeclaration(encoding string) {
	m.declaration = encoding
}

// Marshal writes graph as a single root element.
// Every returned error is an *Error.
func (m *Marshaller) Marshal(graph any) error {
	if graph == nil {
		return newError(KindBind, "", nil, "nil graph")
	}
	v := reflect.ValueOf(graph)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return newError(KindBind, "", nil, "nil graph")
		}
		v = v.Elem()
	}

	d, err := m.Resolver().Resolve(v.Type())
	if err != nil {
		return err
	}
	name := m.rootName(d, v)
	if name.Local == "" {
		return newError(KindBind, d.Type.String(), nil, "no root element name for %s", d.Type)
	}

	if m.declaration != "" {
		decl := xml.ProcInst{
			Target: "xml",
			Inst:   []byte(fmt.Sprintf(`version="1.0" encoding="%s"`, m.declaration)),
		}
		if err := m.encode(decl, ""); err != nil {
			return err
		}
	}
	if err := m.marshalStruct(v, d, xml.StartElement{Name: name}, "/"+name.Local); err != nil {
		return err
	}

	if f, ok := m.w.(xmlstream.Flusher); ok {
		if err := f.Flush(); err != nil {
			return newError(KindIO, "", err, "cannot flush")
		}
	}
	return nil
}

// rootName prefers a fixed descriptor name, then a populated XMLName field.
func (m *Marshaller) rootName(d *Descriptor, v reflect.Value) xml.Name {
	if !d.fixedName && d.NameIndex != nil {
		if fv, ok := fieldByIndex(v, d.NameIndex, false); ok {
			if n := fv.Interface().(xml.Name); n.Local != "" {
				return n
			}
		}
	}
	return d.XMLName
}

func (m *Marshaller) marshalStruct(v reflect.Value, d *Descriptor, start xml.StartElement, path string) error {
	if d.Delegate {
		return m.delegate(v, start, path)
	}
	if m.validation {
		if err := checkRequired(v, d, path); err != nil {
			return err
		}
	}

	for _, f := range d.Fields {
		if f.Node != NodeAttribute {
			continue
		}
		fv, ok := m.fieldValue(v, f)
		if !ok {
			continue
		}
		s, err := formatScalar(fv)
		if err != nil {
			return newError(KindBind, path+"/@"+f.XMLName.Local, err, "cannot write attribute")
		}
		start.Attr = append(start.Attr, xml.Attr{Name: f.XMLName, Value: s})
	}

	if err := m.encode(start, path); err != nil {
		return err
	}

	for _, f := range d.Fields {
		switch f.Node {
		case NodeText:
			fv, ok := m.fieldValue(v, f)
			if !ok {
				continue
			}
			s, err := formatScalar(fv)
			if err != nil {
				return newError(KindBind, path, err, "cannot write text of %s", f.Name)
			}
			if s != "" {
				if err := m.encode(xml.CharData(s), path); err != nil {
					return err
				}
			}
		case NodeElement:
			fv, ok := fieldByIndex(v, f.Index, false)
			if !ok || (f.OmitEmpty && isEmptyValue(fv)) {
				continue
			}
			if err := m.marshalValue(fv, f.XMLName, path+"/"+f.XMLName.Local, nil); err != nil {
				return err
			}
		}
	}

	return m.encode(start.End(), path)
}

// fieldValue returns the dereferenced field value, or false when the field
// is nil or omitted.
func (m *Marshaller) fieldValue(v reflect.Value, f FieldDescriptor) (reflect.Value, bool) {
	fv, ok := fieldByIndex(v, f.Index, false)
	if !ok {
		return fv, false
	}
	for fv.Kind() == reflect.Ptr || fv.Kind() == reflect.Interface {
		if fv.IsNil() {
			return fv, false
		}
		fv = fv.Elem()
	}
	if f.OmitEmpty && isEmptyValue(fv) {
		return fv, false
	}
	return fv, true
}

// marshalValue writes v as one or more elements named name. dynamic is the
// concrete type found behind an interface; it is recorded in xsi:type so
// the value can be rebuilt with the same type and pointer shape.
func (m *Marshaller) marshalValue(v reflect.Value, name xml.Name, path string, dynamic reflect.Type) error {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		if v.Kind() == reflect.Interface {
			dynamic = v.Elem().Type()
		}
		v = v.Elem()
	}
	t := v.Type()
	start := xml.StartElement{Name: name}

	if dynamic != nil && !isScalar(t) && (t.Kind() == reflect.Slice || t.Kind() == reflect.Array) {
		return newError(KindBind, path, nil, "cannot write %s held in an interface", dynamic)
	}
	if dynamic != nil {
		tn, ok := typeName(dynamic)
		if !ok {
			return newError(KindBind, path, nil, "cannot write unnamed type %s held in an interface", dynamic)
		}
		start.Attr = append(start.Attr,
			xml.Attr{Name: xml.Name{Local: "xmlns:xsi"}, Value: XSINamespace},
			xml.Attr{Name: xml.Name{Local: "xsi:type"}, Value: tn},
		)
	}

	switch {
	case implementsAny(t, xmlMarshalerType):
		return m.delegate(v, start, path)
	case isScalar(t):
		s, err := formatScalar(v)
		if err != nil {
			return newError(KindBind, path, err, "cannot write value")
		}
		if err := m.encode(start, path); err != nil {
			return err
		}
		if s != "" {
			if err := m.encode(xml.CharData(s), path); err != nil {
				return err
			}
		}
		return m.encode(start.End(), path)
	case t.Kind() == reflect.Slice || t.Kind() == reflect.Array:
		if et := indirectType(t.Elem()); et.Kind() == reflect.Array || (et.Kind() == reflect.Slice && !isScalar(et)) {
			return newError(KindBind, path, nil, "cannot write nested sequence %s", t)
		}
		for i := 0; i < v.Len(); i++ {
			if err := m.marshalValue(v.Index(i), name, fmt.Sprintf("%s[%d]", path, i), nil); err != nil {
				return err
			}
		}
		return nil
	case t.Kind() == reflect.Struct:
		d, err := m.Resolver().Resolve(t)
		if err != nil {
			return err
		}
		return m.marshalStruct(v, d, start, path)
	default:
		return newError(KindBind, path, nil, "unsupported type %s", t)
	}
}

// delegate encodes v with encoding/xml and copies the resulting tokens.
func (m *Marshaller) delegate(v reflect.Value, start xml.StartElement, path string) error {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := enc.EncodeElement(v.Interface(), start); err != nil {
		return newError(KindBind, path, err, "cannot encode %s", v.Type())
	}
	if err := enc.Flush(); err != nil {
		return newError(KindBind, path, err, "cannot encode %s", v.Type())
	}
	if _, err := xmlstream.Copy(m.w, rawTokenReader{xml.NewDecoder(&buf)}); err != nil {
		return newError(KindIO, path, err, "cannot write tokens")
	}
	return nil
}

func (m *Marshaller) encode(tok xml.Token, path string) error {
	if err := m.w.EncodeToken(tok); err != nil {
		return newError(KindIO, path, err, "cannot write token")
	}
	return nil
}

// checkRequired reports the first required field holding its zero value.
// A graph cannot say whether a zero was set on purpose, so required
// fields that may legitimately be zero should be pointers.
func checkRequired(v reflect.Value, d *Descriptor, path string) error {
	for _, f := range d.Fields {
		if !f.Required {
			continue
		}
		fv, ok := fieldByIndex(v, f.Index, false)
		if !ok || isEmptyValue(fv) {
			return newError(KindValidation, path, nil, "required field %s is missing", f.Name)
		}
	}
	return nil
}

// rawTokenReader maps a decoder's RawToken method onto its Token method.
type rawTokenReader struct {
	*xml.Decoder
}

func (r rawTokenReader) Token() (xml.Token, error) {
	return r.RawToken()
}
