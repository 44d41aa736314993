package xmlbind

import (
	"bytes"
	"encoding/xml"
	"reflect"
	"strings"
	"testing"
)

type testItem struct {
	SKU string `xml:"sku,attr"`
	Qty int    `xml:"qty"`
}

type testOrder struct {
	XMLName xml.Name   `xml:"order"`
	ID      string     `xml:"id,attr" oxm:"required"`
	Note    string     `xml:"note,omitempty"`
	Items   []testItem `xml:"item"`
}

type testNote struct {
	XMLName xml.Name `xml:"note"`
	Lang    string   `xml:"lang,attr,omitempty"`
	Body    string   `xml:",chardata"`
}

type testCard struct {
	Number string `xml:"number"`
}

type testPayment struct {
	XMLName xml.Name `xml:"payment"`
	Method  any      `xml:"method"`
}

type testRaw struct {
	XMLName xml.Name `xml:"raw"`
	Inner   string   `xml:",innerxml"`
}

type testSeries struct {
	XMLName xml.Name   `xml:"series"`
	Vals    [3]int     `xml:"val"`
	Refs    *[2]string `xml:"ref"`
}

type testLevel int

type testBox struct {
	XMLName xml.Name `xml:"box"`
	Content any      `xml:"content"`
	Extras  []any    `xml:"extra"`
}

type testCustomer struct {
	Number int
	Name   string
	Email  string
	Tags   []string
}

const testCustomerMappingXML = `<mapping>
  <description>customers</description>
  <class name="xmlbind.testCustomer">
    <map-to xml="customer"/>
    <field name="Number" required="true">
      <bind-xml name="number" node="attribute"/>
    </field>
    <field name="Name">
      <bind-xml name="full-name"/>
    </field>
    <field name="Tags">
      <bind-xml name="tag"/>
    </field>
  </class>
</mapping>`

const testCustomerMappingYAML = `description: customers
classes:
  - name: xmlbind.testCustomer
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
      - name: Tags
        bind-xml:
          name: tag
`

func testTypes() *TypeRegistry {
	r := NewTypeRegistry()
	r.Add(
		reflect.TypeFor[testOrder](),
		reflect.TypeFor[testNote](),
		reflect.TypeFor[testCard](),
		reflect.TypeFor[testPayment](),
		reflect.TypeFor[testRaw](),
		reflect.TypeFor[testCustomer](),
		reflect.TypeFor[testSeries](),
		reflect.TypeFor[testLevel](),
		reflect.TypeFor[testBox](),
	)
	return r
}

func testCustomerLoader(t *testing.T) *MappingLoader {
	t.Helper()
	m := NewMapping()
	if err := m.Load(strings.NewReader(testCustomerMappingXML), FormatXML); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	l, err := NewMappingLoader(m, testTypes())
	if err != nil {
		t.Fatalf("NewMappingLoader() error: %v", err)
	}
	return l
}

// marshalString runs a marshaller over an in-memory encoder.
func marshalString(t *testing.T, r *Resolver, graph any, configure func(*Marshaller)) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	m := NewMarshaller(xml.NewEncoder(&buf))
	m.SetResolver(r)
	if configure != nil {
		configure(m)
	}
	err := m.Marshal(graph)
	return buf.String(), err
}

func unmarshalString(r *Resolver, u *Unmarshaller, doc string) (any, error) {
	u.SetResolver(r)
	return u.Unmarshal(xml.NewDecoder(strings.NewReader(doc)))
}
