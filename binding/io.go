package binding

import (
	"io"
	"unicode/utf8"
)

// stringWriter adapts an io.StringWriter to io.Writer.
type stringWriter struct {
	w io.StringWriter
}

func (s stringWriter) Write(p []byte) (int, error) {
	return s.w.WriteString(string(p))
}

// runeReader adapts an io.RuneReader to io.Reader, yielding UTF-8.
type runeReader struct {
	r       io.RuneReader
	pending []byte
}

func (rr *runeReader) Read(p []byte) (int, error) {
	n := copy(p, rr.pending)
	rr.pending = rr.pending[n:]

	var buf [utf8.UTFMax]byte
	for n < len(p) {
		r, _, err := rr.r.ReadRune()
		if err != nil {
			if n > 0 && err == io.EOF {
				return n, nil
			}
			return n, err
		}
		size := utf8.EncodeRune(buf[:], r)
		c := copy(p[n:], buf[:size])
		n += c
		if c < size {
			rr.pending = append(rr.pending, buf[c:size]...)
		}
	}
	return n, nil
}
