// Package testing provides fixtures shared by oxm tests.
package testing

import (
	"bytes"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zoobzio/oxm/xmlbind"
)

// Item is an order line. SKU is required when validating.
type Item struct {
	SKU      string  `xml:"sku,attr" oxm:"required"`
	Quantity int     `xml:"quantity"`
	Price    float64 `xml:"price"`
}

// Order is a tagged graph bound by introspection.
type Order struct {
	XMLName  xml.Name  `xml:"order"`
	ID       string    `xml:"id,attr" oxm:"required"`
	Placed   time.Time `xml:"placed"`
	Customer string    `xml:"customer"`
	Note     string    `xml:"note,omitempty"`
	Items    []Item    `xml:"item"`
}

// Customer carries no tags; it is bound through CustomerMappingXML or
// CustomerMappingYAML.
type Customer struct {
	Number int
	Name   string
	Email  string
	Tags   []string
}

// CustomerMappingXML maps Customer to <customer number="..."> with a
// required number attribute.
const CustomerMappingXML = `<?xml version="1.0" encoding="UTF-8"?>
<mapping>
  <description>Customer records</description>
  <class name="github.com/zoobzio/oxm/testing.Customer">
    <map-to xml="customer"/>
    <field name="Number" required="true">
      <bind-xml name="number" node="attribute"/>
    </field>
    <field name="Name">
      <bind-xml name="full-name"/>
    </field>
    <field name="Email">
      <bind-xml name="email"/>
    </field>
    <field name="Tags">
      <bind-xml name="tag"/>
    </field>
  </class>
</mapping>
`

// CustomerMappingYAML is CustomerMappingXML in YAML form.
const CustomerMappingYAML = `description: Customer records
classes:
  - name: github.com/zoobzio/oxm/testing.Customer
    map-to:
      xml: customer
    fields:
      - name: Number
        required: true
        bind-xml:
          name: number
          node: attribute
      - name: Name
        bind-xml:
          name: full-name
      - name: Email
        bind-xml:
          name: email
      - name: Tags
        bind-xml:
          name: tag
`

// Types returns a fresh registry holding every fixture type.
func Types() *xmlbind.TypeRegistry {
	r := xmlbind.NewTypeRegistry()
	xmlbind.RegisterType[Order](r)
	xmlbind.RegisterType[Item](r)
	xmlbind.RegisterType[Customer](r)
	return r
}

// SampleOrder returns a fully populated order. XMLName is set so the value
// compares equal to an unmarshalled copy.
func SampleOrder() *Order {
	return &Order{
		XMLName:  xml.Name{Local: "order"},
		ID:       "A-1001",
		Placed:   time.Date(2024, time.March, 14, 9, 30, 0, 0, time.UTC),
		Customer: "Zoë Müller",
		Note:     "leave at door & ring",
		Items: []Item{
			{SKU: "BK-7", Quantity: 2, Price: 12.5},
			{SKU: "PN-3", Quantity: 1, Price: 3.25},
		},
	}
}

// SampleCustomer returns a populated customer.
func SampleCustomer() *Customer {
	return &Customer{
		Number: 42,
		Name:   "Ada Lovelace",
		Email:  "ada@example.com",
		Tags:   []string{"vip", "eu"},
	}
}

// CompiledCustomerMapping returns CustomerMappingXML as a compiled mapping.
func CompiledCustomerMapping() ([]byte, error) {
	m := xmlbind.NewMapping()
	if err := m.Load(strings.NewReader(CustomerMappingXML), xmlbind.FormatXML); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := m.WriteCompiled(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteMappingFiles writes the customer mapping in every format to dir and
// returns the XML, YAML and compiled file paths.
func WriteMappingFiles(dir string) (xmlPath, yamlPath, compiledPath string, err error) {
	compiled, err := CompiledCustomerMapping()
	if err != nil {
		return "", "", "", err
	}
	xmlPath = filepath.Join(dir, "customer.xml")
	yamlPath = filepath.Join(dir, "customer.yaml")
	compiledPath = filepath.Join(dir, "customer.mpk")

	files := map[string][]byte{
		xmlPath:      []byte(CustomerMappingXML),
		yamlPath:     []byte(CustomerMappingYAML),
		compiledPath: compiled,
	}
	for path, data := range files {
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return "", "", "", err
		}
	}
	return xmlPath, yamlPath, compiledPath, nil
}
