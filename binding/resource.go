package binding

import (
	"bytes"
	"io"
	"io/fs"
	"os"
)

// Resource is a mapping document location.
// String names the resource; its extension selects the mapping format.
type Resource interface {
	Open() (io.ReadCloser, error)
	String() string
}

// FileResource is a mapping file on disk.
type FileResource string

// Open opens the file.
func (f FileResource) Open() (io.ReadCloser, error) {
	return os.Open(string(f))
}

func (f FileResource) String() string {
	return string(f)
}

// FSResource is a mapping document inside a file system, e.g. an embed.FS.
type FSResource struct {
	FS   fs.FS
	Name string
}

// Open opens Name in FS.
func (r FSResource) Open() (io.ReadCloser, error) {
	return r.FS.Open(r.Name)
}

func (r FSResource) String() string {
	return r.Name
}

// BytesResource is an in-memory mapping document.
type BytesResource struct {
	Name string
	Data []byte
}

// Open returns a reader over Data.
func (r BytesResource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(r.Data)), nil
}

func (r BytesResource) String() string {
	return r.Name
}
