package xmlbind

import (
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/net/html/charset"
	"gopkg.in/yaml.v3"
)

// Format identifies a mapping document encoding.
type Format int

const (
	FormatXML Format = iota
	FormatYAML
	FormatCompiled
)

func (f Format) String() string {
	switch f {
	case FormatXML:
		return "xml"
	case FormatYAML:
		return "yaml"
	case FormatCompiled:
		return "compiled"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatFor picks a format from a file name: .yaml/.yml, .mpk/.msgpack, else XML.
func FormatFor(name string) Format {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".mpk", ".msgpack":
		return FormatCompiled
	default:
		return FormatXML
	}
}

// Mapping is a declarative description of type-to-XML correspondences,
// assembled from one or more mapping documents.
//
// An XML mapping document looks like:
//
//	<mapping>
//	  <class name="shop.Customer" auto-complete="false">
//	    <map-to xml="customer" ns-uri="urn:shop"/>
//	    <field name="Number" required="true">
//	      <bind-xml name="number" node="attribute"/>
//	    </field>
//	    <field name="Name">
//	      <bind-xml name="full-name"/>
//	    </field>
//	  </class>
//	</mapping>
//
// YAML documents use the same names under a top-level "classes" list.
type Mapping struct {
	XMLName     xml.Name       `xml:"mapping" yaml:"-" msgpack:"-"`
	Description string         `xml:"description,omitempty" yaml:"description,omitempty" msgpack:"description,omitempty"`
	Classes     []ClassMapping `xml:"class" yaml:"classes" msgpack:"classes"`
}

// ClassMapping maps one Go type.
type ClassMapping struct {
	Name         string         `xml:"name,attr" yaml:"name" msgpack:"name"`
	AutoComplete bool           `xml:"auto-complete,attr,omitempty" yaml:"auto-complete,omitempty" msgpack:"auto_complete,omitempty"`
	MapTo        *MapTo         `xml:"map-to,omitempty" yaml:"map-to,omitempty" msgpack:"map_to,omitempty"`
	Fields       []FieldMapping `xml:"field" yaml:"fields,omitempty" msgpack:"fields,omitempty"`
}

// MapTo names the root element of a class.
type MapTo struct {
	XML          string `xml:"xml,attr" yaml:"xml" msgpack:"xml"`
	NamespaceURI string `xml:"ns-uri,attr,omitempty" yaml:"ns-uri,omitempty" msgpack:"ns_uri,omitempty"`
}

// FieldMapping maps one struct field. Type is optional; when set it must
// name the field's Go type or, for pointers and sequences, its item type.
type FieldMapping struct {
	Name     string   `xml:"name,attr" yaml:"name" msgpack:"name"`
	Type     string   `xml:"type,attr,omitempty" yaml:"type,omitempty" msgpack:"type,omitempty"`
	Required bool     `xml:"required,attr,omitempty" yaml:"required,omitempty" msgpack:"required,omitempty"`
	Bind     *BindXML `xml:"bind-xml,omitempty" yaml:"bind-xml,omitempty" msgpack:"bind_xml,omitempty"`
}

// BindXML names the node a field binds to.
type BindXML struct {
	Name         string `xml:"name,attr,omitempty" yaml:"name,omitempty" msgpack:"name,omitempty"`
	Node         string `xml:"node,attr,omitempty" yaml:"node,omitempty" msgpack:"node,omitempty"`
	NamespaceURI string `xml:"ns-uri,attr,omitempty" yaml:"ns-uri,omitempty" msgpack:"ns_uri,omitempty"`
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{}
}

// Load reads one mapping document and chains its classes after those
// already loaded.
func (m *Mapping) Load(r io.Reader, format Format) error {
	var doc Mapping
	var err error
	switch format {
	case FormatXML:
		dec := xml.NewDecoder(r)
		dec.CharsetReader = charset.NewReaderLabel
		err = dec.Decode(&doc)
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		err = dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			err = errors.New("empty document")
		}
	case FormatCompiled:
		err = readCompiled(r, &doc)
	default:
		err = fmt.Errorf("unknown format %v", format)
	}
	if err != nil {
		return newError(KindMapping, "", err, "cannot read %s mapping", format)
	}

	if m.Description == "" {
		m.Description = doc.Description
	}
	m.Classes = append(m.Classes, doc.Classes...)
	return nil
}

// Digest returns a hex BLAKE2b-256 digest of the mapping's canonical form.
func (m *Mapping) Digest() (string, error) {
	payload, err := msgpack.Marshal(m)
	if err != nil {
		return "", newError(KindMapping, "", err, "cannot encode mapping")
	}
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
