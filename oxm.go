// Package oxm provides a uniform object/XML mapping abstraction.
//
// A Marshaller writes an object graph to one of several result channels and
// an Unmarshaller reads one back from the matching source channels. The
// channels cover the ways XML usually moves through a Go program:
//
//   - StreamResult / StreamSource: encoded bytes (io.Writer / io.Reader)
//   - TextResult / TextSource: decoded characters (io.StringWriter / io.RuneReader)
//   - DOMResult / DOMSource: an in-memory node (mxj.Map)
//   - EventResult / EventSource: XML tokens (xmlstream.TokenWriter / xml.TokenReader)
//
// Implementations translate their own failures into the common error
// taxonomy defined here, so callers can branch on ErrMarshal, ErrUnmarshal
// and ErrValidation without knowing which engine sits underneath.
//
// # Basic Usage
//
//	m, err := binding.New(binding.WithTarget[Order]())
//	if err != nil {
//	    return err
//	}
//
//	var buf bytes.Buffer
//	if err := m.Marshal(ctx, order, oxm.StreamResult{Writer: &buf}); err != nil {
//	    return err
//	}
//
//	graph, err := m.Unmarshal(ctx, oxm.StreamSource{Reader: &buf})
//
// # Implementations
//
//   - binding - adapter over the xmlbind descriptor engine (application/xml)
package oxm

import (
	"context"
	"reflect"
)

// Marshaller writes object graphs as XML.
type Marshaller interface {
	// Supports reports whether graphs of type t can be marshalled.
	Supports(t reflect.Type) bool

	// Marshal writes graph to result.
	Marshal(ctx context.Context, graph any, result Result) error
}

// Unmarshaller reads object graphs from XML.
type Unmarshaller interface {
	// Supports reports whether graphs of type t can be unmarshalled.
	Supports(t reflect.Type) bool

	// Unmarshal reads source and returns the resulting graph.
	Unmarshal(ctx context.Context, source Source) (any, error)
}

// Codec provides content-type aware marshaling.
type Codec interface {
	// ContentType returns the MIME type for this codec (e.g., "application/xml").
	ContentType() string

	// Marshal encodes v into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v.
	Unmarshal(data []byte, v any) error
}
