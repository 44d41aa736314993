package xmlbind

import (
	"encoding/xml"
	"errors"
	"io"
	"reflect"
	"strings"
)

// Unmarshaller builds object graphs from XML tokens.
// An Unmarshaller is meant for a single document; create one per call.
type Unmarshaller struct {
	target   reflect.Type
	resolver *Resolver

	validation            bool
	whitespacePreserve    bool
	ignoreExtraAttributes bool
	ignoreExtraElements   bool
}

// NewUnmarshaller returns an unmarshaller that picks the root type from
// the document's root element. Extra attributes are ignored; extra
// elements are rejected.
func NewUnmarshaller() *Unmarshaller {
	return &Unmarshaller{ignoreExtraAttributes: true}
}

// NewUnmarshallerFor returns an unmarshaller that always produces t,
// whatever the root element is called.
func NewUnmarshallerFor(t reflect.Type) *Unmarshaller {
	u := NewUnmarshaller()
	u.target = indirectType(t)
	return u
}

// Target returns the fixed root type, or nil.
func (u *Unmarshaller) Target() reflect.Type {
	return u.target
}

// SetResolver sets the descriptor resolver. Without one a resolver over
// DefaultTypes is used.
func (u *Unmarshaller) SetResolver(r *Resolver) {
	u.resolver = r
}

// Resolver returns the configured resolver.
func (u *Unmarshaller) Resolver() *Resolver {
	if u.resolver == nil {
		u.resolver = NewResolver(nil)
	}
	return u.resolver
}

// SetValidation enables required-field checks after reading each element.
func (u *Unmarshaller) SetValidation(validate bool) {
	u.validation = validate
}

// SetWhitespacePreserve keeps leading and trailing whitespace in text.
func (u *Unmarshaller) SetWhitespacePreserve(preserve bool) {
	u.whitespacePreserve = preserve
}

// SetIgnoreExtraAttributes skips attributes no field binds to.
func (u *Unmarshaller) SetIgnoreExtraAttributes(ignore bool) {
	u.ignoreExtraAttributes = ignore
}

// SetIgnoreExtraElements skips elements no field binds to.
func (u *Unmarshaller) SetIgnoreExtraElements(ignore bool) {
	u.ignoreExtraElements = ignore
}

// Validation reports whether required-field checks are enabled.
func (u *Unmarshaller) Validation() bool { return u.validation }

// WhitespacePreserve reports whether text whitespace is kept.
func (u *Unmarshaller) WhitespacePreserve() bool { return u.whitespacePreserve }

// IgnoreExtraAttributes reports whether unknown attributes are skipped.
func (u *Unmarshaller) IgnoreExtraAttributes() bool { return u.ignoreExtraAttributes }

// IgnoreExtraElements reports whether unknown elements are skipped.
func (u *Unmarshaller) IgnoreExtraElements() bool { return u.ignoreExtraElements }

// Unmarshal reads one document and returns a pointer to a new value.
// Every returned error is an *Error.
func (u *Unmarshaller) Unmarshal(tr xml.TokenReader) (any, error) {
	d := xml.NewTokenDecoder(tr)
	start, err := u.root(d)
	if err != nil {
		return nil, err
	}

	var desc *Descriptor
	if u.target != nil {
		desc, err = u.Resolver().Resolve(u.target)
	} else {
		desc, err = u.resolveStart(start)
	}
	if err != nil {
		return nil, err
	}

	ptr := reflect.New(desc.Type)
	if err := u.unmarshalStruct(d, ptr.Elem(), desc, start, "/"+start.Name.Local); err != nil {
		return nil, err
	}
	return ptr.Interface(), nil
}

// UnmarshalInto reads one document into v, which must be a non-nil pointer.
func (u *Unmarshaller) UnmarshalInto(tr xml.TokenReader, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return newError(KindBind, "", nil, "target must be a non-nil pointer, got %T", v)
	}
	elem := rv.Elem()
	for elem.Kind() == reflect.Ptr {
		if elem.IsNil() {
			elem.Set(reflect.New(elem.Type().Elem()))
		}
		elem = elem.Elem()
	}

	desc, err := u.Resolver().Resolve(elem.Type())
	if err != nil {
		return err
	}
	d := xml.NewTokenDecoder(tr)
	start, err := u.root(d)
	if err != nil {
		return err
	}
	return u.unmarshalStruct(d, elem, desc, start, "/"+start.Name.Local)
}

// root skips the prolog and returns the root element.
func (u *Unmarshaller) root(d *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := d.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return xml.StartElement{}, newError(KindBind, "", io.ErrUnexpectedEOF, "no root element")
			}
			return xml.StartElement{}, tokenError(err, "")
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Copy(), nil
		}
	}
}

// resolveStart honours xsi:type before falling back to the element name.
func (u *Unmarshaller) resolveStart(start xml.StartElement) (*Descriptor, error) {
	if name, ok := typeAttr(start); ok {
		return u.Resolver().ResolveName(name)
	}
	return u.Resolver().ResolveElement(start.Name)
}

func (u *Unmarshaller) unmarshalStruct(d *xml.Decoder, v reflect.Value, desc *Descriptor, start xml.StartElement, path string) error {
	if desc.Delegate {
		if err := d.DecodeElement(v.Addr().Interface(), &start); err != nil {
			return decodeError(err, path)
		}
		return nil
	}

	if desc.NameIndex != nil {
		if fv, ok := fieldByIndex(v, desc.NameIndex, true); ok {
			fv.Set(reflect.ValueOf(start.Name))
		}
	}

	seen := make(map[string]bool)
	for _, a := range start.Attr {
		if isReservedAttr(a.Name) {
			continue
		}
		f := desc.Attribute(a.Name)
		if f == nil {
			if u.ignoreExtraAttributes {
				continue
			}
			return newError(KindBind, path+"/@"+a.Name.Local, nil, "unexpected attribute %q", a.Name.Local)
		}
		if err := u.setField(v, f, a.Value, path+"/@"+a.Name.Local); err != nil {
			return err
		}
		seen[f.Name] = true
	}

	text := desc.Text()
	var buf []byte
	var filled map[string]int
	for {
		tok, err := d.Token()
		if err != nil {
			return tokenError(err, path)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			childPath := path + "/" + t.Name.Local
			f := desc.Element(t.Name)
			if f == nil {
				if u.ignoreExtraElements {
					if err := d.Skip(); err != nil {
						return tokenError(err, childPath)
					}
					continue
				}
				return newError(KindBind, childPath, nil, "unexpected element %q", t.Name.Local)
			}
			fv, ok := fieldByIndex(v, f.Index, true)
			if !ok {
				return newError(KindBind, childPath, nil, "cannot set field %s", f.Name)
			}
			for fv.Kind() == reflect.Ptr && fv.Type().Elem().Kind() == reflect.Array {
				if fv.IsNil() {
					fv.Set(reflect.New(fv.Type().Elem()))
				}
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Array {
				// Arrays fill in document order.
				if filled == nil {
					filled = make(map[string]int)
				}
				n := filled[f.Name]
				if n >= fv.Len() {
					if u.ignoreExtraElements {
						if err := d.Skip(); err != nil {
							return tokenError(err, childPath)
						}
						continue
					}
					return newError(KindBind, childPath, nil, "more than %d %q elements", fv.Len(), t.Name.Local)
				}
				filled[f.Name] = n + 1
				fv = fv.Index(n)
			}
			if err := u.unmarshalValue(d, fv, t.Copy(), childPath); err != nil {
				return err
			}
			seen[f.Name] = true
		case xml.CharData:
			if text != nil {
				buf = append(buf, t...)
			}
		case xml.EndElement:
			if text != nil && buf != nil {
				if err := u.setField(v, text, u.normalize(buf), path); err != nil {
					return err
				}
				seen[text.Name] = true
			}
			if u.validation {
				return checkPresent(desc, seen, path)
			}
			return nil
		}
	}
}

func (u *Unmarshaller) unmarshalValue(d *xml.Decoder, v reflect.Value, start xml.StartElement, path string) error {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		return u.unmarshalValue(d, v.Elem(), start, path)
	}
	t := v.Type()

	switch {
	case implementsAny(t, xmlUnmarshalerType):
		if err := d.DecodeElement(v.Addr().Interface(), &start); err != nil {
			return decodeError(err, path)
		}
		return nil
	case isScalar(t):
		s, err := u.readText(d, path)
		if err != nil {
			return err
		}
		if err := parseScalar(v, s); err != nil {
			return newError(KindBind, path, err, "cannot parse %q as %s", s, t)
		}
		return nil
	case t.Kind() == reflect.Slice:
		elem := reflect.New(t.Elem()).Elem()
		if err := u.unmarshalValue(d, elem, start, path); err != nil {
			return err
		}
		v.Set(reflect.Append(v, elem))
		return nil
	case t.Kind() == reflect.Struct:
		desc, err := u.Resolver().Resolve(t)
		if err != nil {
			return err
		}
		return u.unmarshalStruct(d, v, desc, start, path)
	case t.Kind() == reflect.Interface:
		return u.unmarshalDynamic(d, v, start, path)
	default:
		return newError(KindBind, path, nil, "unsupported type %s", t)
	}
}

// unmarshalDynamic fills an interface with a value of the type named by
// xsi:type. Without the attribute the element name selects a struct type,
// which is stored as a pointer.
func (u *Unmarshaller) unmarshalDynamic(d *xml.Decoder, v reflect.Value, start xml.StartElement, path string) error {
	var dt reflect.Type
	if name, ok := typeAttr(start); ok {
		t, err := u.Resolver().ResolveType(name)
		if err != nil {
			return err
		}
		dt = t
	} else {
		desc, err := u.Resolver().ResolveElement(start.Name)
		if err != nil {
			return err
		}
		dt = reflect.PointerTo(desc.Type)
	}
	if !dt.AssignableTo(v.Type()) {
		return newError(KindBind, path, nil, "type %s is not assignable to %s", dt, v.Type())
	}

	nv := reflect.New(dt).Elem()
	if err := u.unmarshalValue(d, nv, start, path); err != nil {
		return err
	}
	v.Set(nv)
	return nil
}

// checkPresent reports the first required field with no node in the
// document. An explicit zero such as <qty>0</qty> counts as present.
func checkPresent(d *Descriptor, seen map[string]bool, path string) error {
	for _, f := range d.Fields {
		if f.Required && !seen[f.Name] {
			return newError(KindValidation, path, nil, "required field %s is missing", f.Name)
		}
	}
	return nil
}

// readText collects character data up to the end of the current element.
func (u *Unmarshaller) readText(d *xml.Decoder, path string) (string, error) {
	var buf []byte
	for {
		tok, err := d.Token()
		if err != nil {
			return "", tokenError(err, path)
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf = append(buf, t...)
		case xml.StartElement:
			if !u.ignoreExtraElements {
				return "", newError(KindBind, path+"/"+t.Name.Local, nil, "unexpected element %q in text", t.Name.Local)
			}
			if err := d.Skip(); err != nil {
				return "", tokenError(err, path)
			}
		case xml.EndElement:
			return u.normalize(buf), nil
		}
	}
}

func (u *Unmarshaller) setField(v reflect.Value, f *FieldDescriptor, s, path string) error {
	fv, ok := fieldByIndex(v, f.Index, true)
	if !ok {
		return newError(KindBind, path, nil, "cannot set field %s", f.Name)
	}
	for fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}
		fv = fv.Elem()
	}
	if !isScalar(fv.Type()) {
		return newError(KindBind, path, nil, "field %s of type %s cannot hold text", f.Name, fv.Type())
	}
	if err := parseScalar(fv, s); err != nil {
		return newError(KindBind, path, err, "cannot parse %q as %s", s, fv.Type())
	}
	return nil
}

func (u *Unmarshaller) normalize(buf []byte) string {
	if u.whitespacePreserve {
		return string(buf)
	}
	return strings.TrimSpace(string(buf))
}

// isReservedAttr reports namespace declarations and xsi attributes.
func isReservedAttr(name xml.Name) bool {
	switch {
	case name.Space == "xmlns", name.Space == XSINamespace, name.Space == "xsi":
		return true
	case name.Space == "":
		return name.Local == "xmlns" || strings.HasPrefix(name.Local, "xmlns:") || strings.HasPrefix(name.Local, "xsi:")
	}
	return false
}

// typeAttr returns the element's xsi:type value.
func typeAttr(start xml.StartElement) (string, bool) {
	for _, a := range start.Attr {
		if isTypeAttr(a.Name) {
			return a.Value, true
		}
	}
	return "", false
}

// isTypeAttr matches xsi:type whether or not the prefix was resolved.
func isTypeAttr(name xml.Name) bool {
	switch name.Space {
	case XSINamespace, "xsi":
		return name.Local == "type"
	case "":
		return name.Local == "xsi:type"
	}
	return false
}

// tokenError classifies decoder failures: malformed input is a bind
// failure, anything else came from the reader.
func tokenError(err error, path string) error {
	var syntax *xml.SyntaxError
	switch {
	case errors.As(err, &syntax):
		return newError(KindBind, path, err, "malformed document")
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return newError(KindBind, path, io.ErrUnexpectedEOF, "unexpected end of document")
	default:
		return wrapError(KindIO, path, err)
	}
}

// decodeError classifies encoding/xml failures for delegated types.
func decodeError(err error, path string) error {
	var syntax *xml.SyntaxError
	if errors.As(err, &syntax) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return tokenError(err, path)
	}
	var ee *Error
	if errors.As(err, &ee) {
		return err
	}
	return newError(KindBind, path, err, "cannot decode element")
}
