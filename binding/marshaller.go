// Package binding adapts the xmlbind engine to the oxm abstraction.
//
// A Marshaller is configured once, builds its resolver at creation and
// reuses it for every call. Results and sources of every oxm channel are
// normalized to the engine's token-level marshaller and unmarshaller.
//
//	m, err := binding.New(
//	    binding.WithMappingLocations("mapping.xml"),
//	    binding.WithValidating(true),
//	)
//	if err != nil {
//	    return err
//	}
//	err = m.Marshal(ctx, customer, oxm.StreamResult{Writer: w})
//
// # DOM channel
//
// DOM results and sources are mxj maps, converted with mxj's own encoder
// and decoder. mxj keeps its options in package state, so importing this
// package turns on mxj.XMLEscapeChars and mxj.DisableTrimWhiteSpace for
// every mxj user in the program. mxj still trims tabs and line breaks at
// the edges of text, which the DOM channel therefore does not preserve.
package binding

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/clbanning/mxj/v2"
	"github.com/zoobzio/oxm"
	"github.com/zoobzio/oxm/xmlbind"
	"go.uber.org/atomic"
	"golang.org/x/net/html/charset"
	"mellium.im/xmlstream"
)

func init() {
	// DOM values hold unescaped text; escape it again when serializing.
	mxj.XMLEscapeChars(true)
	// Keep spaces around text so preserved whitespace survives the DOM channel.
	mxj.DisableTrimWhiteSpace(true)
}

// Marshaller implements oxm.Marshaller and oxm.Unmarshaller over xmlbind.
// It is safe for concurrent use.
type Marshaller struct {
	encoding   string
	locations  []Resource
	target     reflect.Type
	targetName string
	types      *xmlbind.TypeRegistry

	// Read on every call, so changes apply to subsequent calls.
	validating            *atomic.Bool
	whitespacePreserve    *atomic.Bool
	ignoreExtraAttributes *atomic.Bool
	ignoreExtraElements   *atomic.Bool

	resolverFactory   ResolverFactory
	marshallerHooks   []func(*xmlbind.Marshaller)
	unmarshallerHooks []func(*xmlbind.Unmarshaller)
	convert           ErrorConverter

	resolver *xmlbind.Resolver
	digest   string
}

var (
	_ oxm.Marshaller   = (*Marshaller)(nil)
	_ oxm.Unmarshaller = (*Marshaller)(nil)
)

// New creates a Marshaller and builds its resolver.
//
// Setting both mapping locations and a target type fails with an
// *oxm.ConfigError, as does an unknown encoding or target type name.
// Failure to build the resolver, e.g. an unreadable or invalid mapping,
// is an *oxm.SystemError.
func New(opts ...Option) (*Marshaller, error) {
	m := &Marshaller{
		encoding:              DefaultEncoding,
		types:                 xmlbind.DefaultTypes,
		validating:            atomic.NewBool(false),
		whitespacePreserve:    atomic.NewBool(false),
		ignoreExtraAttributes: atomic.NewBool(true),
		ignoreExtraElements:   atomic.NewBool(false),
		resolverFactory:       NewResolver,
		convert:               ConvertError,
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.initialize(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Marshaller) initialize() error {
	if len(m.locations) > 0 && (m.target != nil || m.targetName != "") {
		return oxm.NewConfigError("mapping_locations", "mapping locations and a target type are mutually exclusive")
	}
	if m.types == nil {
		m.types = xmlbind.DefaultTypes
	}
	if m.target == nil && m.targetName != "" {
		t, ok := m.types.Lookup(m.targetName)
		if !ok {
			return oxm.NewConfigError("target_type", fmt.Sprintf("unknown type %q", m.targetName))
		}
		m.target = t
	}
	if enc, _ := charset.Lookup(m.encoding); enc == nil {
		return oxm.NewConfigError("encoding", fmt.Sprintf("unknown encoding %q", m.encoding))
	}
	if m.convert == nil {
		m.convert = ConvertError
	}

	r, err := m.resolverFactory(m.locations, m.target, m.types)
	if err != nil {
		return oxm.NewSystemError("create resolver", err)
	}
	if r == nil {
		return oxm.NewSystemError("create resolver", errors.New("factory returned no resolver"))
	}
	m.resolver = r
	if loader := r.MappingLoader(); loader != nil {
		m.digest = loader.Digest()
	}

	emitBindingCreated(context.Background(), m.mode(), m.encoding, m.locationNames(), typeName(m.target), m.digest)
	return nil
}

// mode names how the resolver was configured.
func (m *Marshaller) mode() string {
	switch {
	case len(m.locations) > 0:
		return "mapping"
	case m.target != nil:
		return "target"
	default:
		return "default"
	}
}

func (m *Marshaller) locationNames() []string {
	names := make([]string, len(m.locations))
	for i, loc := range m.locations {
		names[i] = loc.String()
	}
	return names
}

// Supports reports whether the resolver can describe t.
func (m *Marshaller) Supports(t reflect.Type) bool {
	if t == nil {
		return false
	}
	_, err := m.resolver.Resolve(t)
	return err == nil
}

// Marshal writes graph to result. Engine failures are returned as
// *oxm.MappingError values matching oxm.ErrMarshal.
func (m *Marshaller) Marshal(ctx context.Context, graph any, result oxm.Result) error {
	start := time.Now()
	channel := channelOf(result)
	name := typeName(reflect.TypeOf(graph))

	emitMarshalStart(ctx, channel, name)
	err := m.marshal(graph, result)
	emitMarshalComplete(ctx, channel, name, time.Since(start), err)
	return err
}

func (m *Marshaller) marshal(graph any, result oxm.Result) error {
	switch r := result.(type) {
	case oxm.StreamResult:
		return m.marshalStream(graph, r.Writer)
	case *oxm.StreamResult:
		if r != nil {
			return m.marshalStream(graph, r.Writer)
		}
	case oxm.TextResult:
		return m.marshalText(graph, r.Writer)
	case *oxm.TextResult:
		if r != nil {
			return m.marshalText(graph, r.Writer)
		}
	case oxm.DOMResult:
		return m.marshalDOM(graph, r.Node)
	case *oxm.DOMResult:
		if r != nil {
			return m.marshalDOM(graph, r.Node)
		}
	case oxm.EventResult:
		return m.marshalEvents(graph, r.Writer)
	case *oxm.EventResult:
		if r != nil {
			return m.marshalEvents(graph, r.Writer)
		}
	}
	return fmt.Errorf("%w: %T", oxm.ErrUnsupportedResult, result)
}

// marshalStream writes bytes in the configured encoding.
func (m *Marshaller) marshalStream(graph any, w io.Writer) error {
	if w == nil {
		return fmt.Errorf("%w: stream result has no writer", oxm.ErrUnsupportedResult)
	}

	out := w
	var closer io.Closer
	if enc, name := outputEncoding(m.encoding); name != "utf-8" {
		out = enc.NewEncoder().Writer(w)
		closer, _ = out.(io.Closer)
	}

	err := m.run(xml.NewEncoder(out), m.encoding, graph)
	if closer != nil {
		if cerr := closer.Close(); err == nil && cerr != nil {
			err = m.convert(cerr, true)
		}
	}
	return err
}

// marshalText writes UTF-8 characters.
func (m *Marshaller) marshalText(graph any, w io.StringWriter) error {
	if w == nil {
		return fmt.Errorf("%w: text result has no writer", oxm.ErrUnsupportedResult)
	}
	return m.run(xml.NewEncoder(stringWriter{w}), DefaultEncoding, graph)
}

// marshalDOM appends the root element to node. A key already present
// becomes a list holding both values.
func (m *Marshaller) marshalDOM(graph any, node mxj.Map) error {
	if node == nil {
		return fmt.Errorf("%w: DOM result has no node", oxm.ErrUnsupportedResult)
	}

	var buf bytes.Buffer
	if err := m.run(xml.NewEncoder(&buf), "", graph); err != nil {
		return err
	}
	doc, err := mxj.NewMapXml(buf.Bytes())
	if err != nil {
		return m.convert(err, true)
	}

	for k, v := range doc {
		existing, ok := node[k]
		if !ok {
			node[k] = v
			continue
		}
		if list, ok := existing.([]any); ok {
			node[k] = append(list, v)
		} else {
			node[k] = []any{existing, v}
		}
	}
	return nil
}

// marshalEvents pushes tokens to w without a declaration.
func (m *Marshaller) marshalEvents(graph any, w xmlstream.TokenWriter) error {
	if w == nil {
		return fmt.Errorf("%w: event result has no writer", oxm.ErrUnsupportedResult)
	}
	return m.run(w, "", graph)
}

func (m *Marshaller) run(w xmlstream.TokenWriter, declaration string, graph any) error {
	mar := m.createMarshaller(w)
	mar.SetDeclaration(declaration)
	for _, hook := range m.marshallerHooks {
		hook(mar)
	}
	if err := mar.Marshal(graph); err != nil {
		return m.convert(err, true)
	}
	return nil
}

func (m *Marshaller) createMarshaller(w xmlstream.TokenWriter) *xmlbind.Marshaller {
	mar := xmlbind.NewMarshaller(w)
	mar.SetResolver(m.resolver)
	mar.SetValidation(m.validating.Load())
	return mar
}

// Unmarshal reads source and returns a pointer to a new graph. Engine
// failures are returned as *oxm.MappingError values matching oxm.ErrUnmarshal.
func (m *Marshaller) Unmarshal(ctx context.Context, source oxm.Source) (any, error) {
	start := time.Now()
	channel := channelOf(source)
	emitUnmarshalStart(ctx, channel, typeName(m.target))

	var graph any
	tr, err := m.tokenReader(source)
	if err == nil {
		graph, err = m.createUnmarshaller().Unmarshal(tr)
		if err != nil {
			err = m.convert(err, false)
		}
	}

	emitUnmarshalComplete(ctx, channel, typeName(reflect.TypeOf(graph)), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return graph, nil
}

// UnmarshalInto reads source into v, which must be a non-nil pointer.
func (m *Marshaller) UnmarshalInto(ctx context.Context, source oxm.Source, v any) error {
	start := time.Now()
	channel := channelOf(source)
	name := typeName(reflect.TypeOf(v))
	emitUnmarshalStart(ctx, channel, name)

	tr, err := m.tokenReader(source)
	if err == nil {
		if err = m.createUnmarshaller().UnmarshalInto(tr, v); err != nil {
			err = m.convert(err, false)
		}
	}

	emitUnmarshalComplete(ctx, channel, name, time.Since(start), err)
	return err
}

// tokenReader normalizes every source channel to an xml.TokenReader.
func (m *Marshaller) tokenReader(source oxm.Source) (xml.TokenReader, error) {
	switch s := source.(type) {
	case oxm.StreamSource:
		return streamReader(s.Reader)
	case *oxm.StreamSource:
		if s != nil {
			return streamReader(s.Reader)
		}
	case oxm.TextSource:
		return textReader(s.Reader)
	case *oxm.TextSource:
		if s != nil {
			return textReader(s.Reader)
		}
	case oxm.DOMSource:
		return domReader(s.Node)
	case *oxm.DOMSource:
		if s != nil {
			return domReader(s.Node)
		}
	case oxm.EventSource:
		return eventReader(s.Reader)
	case *oxm.EventSource:
		if s != nil {
			return eventReader(s.Reader)
		}
	}
	return nil, fmt.Errorf("%w: %T", oxm.ErrUnsupportedSource, source)
}

// streamReader honours a byte-order mark, then the document's declared
// encoding.
func streamReader(r io.Reader) (xml.TokenReader, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: stream source has no reader", oxm.ErrUnsupportedSource)
	}
	d := xml.NewDecoder(bomReader(r))
	d.CharsetReader = charsetReader
	return d, nil
}

// textReader reads characters as they are; a declared encoding is ignored.
func textReader(r io.RuneReader) (xml.TokenReader, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: text source has no reader", oxm.ErrUnsupportedSource)
	}
	d := xml.NewDecoder(&runeReader{r: r})
	d.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) {
		return in, nil
	}
	return d, nil
}

func domReader(node mxj.Map) (xml.TokenReader, error) {
	if len(node) != 1 {
		return nil, fmt.Errorf("%w: DOM source must hold one root element, has %d", oxm.ErrUnsupportedSource, len(node))
	}
	data, err := node.Xml()
	if err != nil {
		return nil, oxm.NewUncategorizedFailure(err, false)
	}
	return xml.NewDecoder(bytes.NewReader(data)), nil
}

func eventReader(r xml.TokenReader) (xml.TokenReader, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: event source has no reader", oxm.ErrUnsupportedSource)
	}
	return r, nil
}

// createUnmarshaller applies the target type, the shared resolver and the
// current flags, then runs the customizers.
func (m *Marshaller) createUnmarshaller() *xmlbind.Unmarshaller {
	var u *xmlbind.Unmarshaller
	if m.target != nil {
		u = xmlbind.NewUnmarshallerFor(m.target)
	} else {
		u = xmlbind.NewUnmarshaller()
	}
	u.SetResolver(m.resolver)
	u.SetValidation(m.validating.Load())
	u.SetWhitespacePreserve(m.whitespacePreserve.Load())
	u.SetIgnoreExtraAttributes(m.ignoreExtraAttributes.Load())
	u.SetIgnoreExtraElements(m.ignoreExtraElements.Load())
	for _, hook := range m.unmarshallerHooks {
		hook(u)
	}
	return u
}

// Resolver returns the shared resolver.
func (m *Marshaller) Resolver() *xmlbind.Resolver {
	return m.resolver
}

// Encoding returns the stream encoding label.
func (m *Marshaller) Encoding() string {
	return m.encoding
}

// Target returns the target type, or nil.
func (m *Marshaller) Target() reflect.Type {
	return m.target
}

// MappingLocations returns the names of the loaded mapping documents.
func (m *Marshaller) MappingLocations() []string {
	return m.locationNames()
}

// MappingDigest returns the digest of the loaded mapping, or "".
func (m *Marshaller) MappingDigest() string {
	return m.digest
}

// SetValidating toggles required-field checks for subsequent calls.
func (m *Marshaller) SetValidating(validating bool) {
	m.validating.Store(validating)
}

// SetWhitespacePreserve toggles whitespace preservation for subsequent calls.
func (m *Marshaller) SetWhitespacePreserve(preserve bool) {
	m.whitespacePreserve.Store(preserve)
}

// SetIgnoreExtraAttributes toggles skipping unknown attributes for subsequent calls.
func (m *Marshaller) SetIgnoreExtraAttributes(ignore bool) {
	m.ignoreExtraAttributes.Store(ignore)
}

// SetIgnoreExtraElements toggles skipping unknown elements for subsequent calls.
func (m *Marshaller) SetIgnoreExtraElements(ignore bool) {
	m.ignoreExtraElements.Store(ignore)
}

// Validating reports whether required-field checks are enabled.
func (m *Marshaller) Validating() bool { return m.validating.Load() }

// WhitespacePreserve reports whether text whitespace is kept.
func (m *Marshaller) WhitespacePreserve() bool { return m.whitespacePreserve.Load() }

// IgnoreExtraAttributes reports whether unknown attributes are skipped.
func (m *Marshaller) IgnoreExtraAttributes() bool { return m.ignoreExtraAttributes.Load() }

// IgnoreExtraElements reports whether unknown elements are skipped.
func (m *Marshaller) IgnoreExtraElements() bool { return m.ignoreExtraElements.Load() }

// ConvertError is the default ErrorConverter. Engine validation failures
// become oxm.ErrValidation, other engine failures ErrMarshal or
// ErrUnmarshal by direction, and anything else ErrUncategorized.
func ConvertError(err error, marshalling bool) error {
	if err == nil {
		return nil
	}
	var be *xmlbind.Error
	if !errors.As(err, &be) {
		return oxm.NewUncategorizedFailure(err, marshalling)
	}
	if be.Kind == xmlbind.KindValidation {
		return oxm.NewValidationFailure(err, marshalling)
	}
	if marshalling {
		return oxm.NewMarshallingFailure(err)
	}
	return oxm.NewUnmarshallingFailure(err)
}

func channelOf(v interface{ Channel() string }) string {
	if v == nil {
		return "none"
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && rv.IsNil() {
		return "none"
	}
	return v.Channel()
}

func typeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	return strings.TrimPrefix(t.String(), "*")
}
