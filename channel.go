package oxm

import (
	"encoding/xml"
	"io"

	"github.com/clbanning/mxj/v2"
	"mellium.im/xmlstream"
)

// Channel names reported by Result and Source values.
const (
	ChannelStream = "stream"
	ChannelText   = "text"
	ChannelDOM    = "dom"
	ChannelEvents = "events"
)

// Result is a destination for marshalled XML.
type Result interface {
	// Channel names the kind of destination.
	Channel() string
}

// Source is an origin of XML to unmarshal.
type Source interface {
	// Channel names the kind of origin.
	Channel() string
}

// StreamResult writes encoded bytes. The marshaller's encoding applies.
type StreamResult struct {
	Writer io.Writer
}

// TextResult writes characters. Output is always UTF-8 text.
type TextResult struct {
	Writer io.StringWriter
}

// DOMResult appends the marshalled root element to Node.
type DOMResult struct {
	Node mxj.Map
}

// EventResult pushes XML tokens to Writer.
// Writer is flushed after marshalling if it implements xmlstream.Flusher.
type EventResult struct {
	Writer xmlstream.TokenWriter
}

// StreamSource reads encoded bytes. The document's declared encoding applies.
type StreamSource struct {
	Reader io.Reader
}

// TextSource reads characters. Any declared encoding is ignored.
type TextSource struct {
	Reader io.RuneReader
}

// DOMSource reads a node holding exactly one root element.
type DOMSource struct {
	Node mxj.Map
}

// EventSource pulls XML tokens from Reader.
type EventSource struct {
	Reader xml.TokenReader
}

func (StreamResult) Channel() string { return ChannelStream }
func (TextResult) Channel() string   { return ChannelText }
func (DOMResult) Channel() string    { return ChannelDOM }
func (EventResult) Channel() string  { return ChannelEvents }
func (StreamSource) Channel() string { return ChannelStream }
func (TextSource) Channel() string   { return ChannelText }
func (DOMSource) Channel() string    { return ChannelDOM }
func (EventSource) Channel() string  { return ChannelEvents }
