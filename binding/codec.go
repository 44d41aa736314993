package binding

import (
	"bytes"
	"context"

	"github.com/zoobzio/oxm"
)

// xmlCodec implements oxm.Codec over a Marshaller's stream channel.
type xmlCodec struct {
	m *Marshaller
}

// Codec returns the marshaller as an oxm.Codec.
func (m *Marshaller) Codec() oxm.Codec {
	return &xmlCodec{m: m}
}

// ContentType returns the MIME type for XML.
func (c *xmlCodec) ContentType() string {
	return "application/xml"
}

// Marshal encodes v as XML in the marshaller's encoding.
func (c *xmlCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.m.Marshal(context.Background(), v, oxm.StreamResult{Writer: &buf}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes XML data into v.
func (c *xmlCodec) Unmarshal(data []byte, v any) error {
	return c.m.UnmarshalInto(context.Background(), oxm.StreamSource{Reader: bytes.NewReader(data)}, v)
}
