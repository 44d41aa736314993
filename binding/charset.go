package binding

import (
	"io"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// outputEncoding returns the encoding used for stream output and its
// canonical name. UTF-16 output starts with a byte-order mark, since
// encoding/xml cannot find the declaration in UTF-16 without one.
func outputEncoding(label string) (encoding.Encoding, string) {
	enc, name := charset.Lookup(label)
	switch name {
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), name
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM), name
	}
	return enc, name
}

// bomReader transcodes input that starts with a UTF-8 or UTF-16
// byte-order mark to UTF-8. Other input passes through unchanged.
func bomReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(transform.Nop))
}

// charsetReader honours the declared encoding. UTF-16 input was already
// transcoded by bomReader, so a UTF-16 label passes it through.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	if _, name := charset.Lookup(label); strings.HasPrefix(name, "utf-16") {
		return input, nil
	}
	return charset.NewReaderLabel(label, input)
}
