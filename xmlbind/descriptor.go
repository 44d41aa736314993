package xmlbind

import (
	"encoding/xml"
	"fmt"
	"reflect"
)

// NodeKind selects how a field is represented in XML.
type NodeKind int

const (
	NodeElement NodeKind = iota
	NodeAttribute
	NodeText
)

func (k NodeKind) String() string {
	switch k {
	case NodeElement:
		return "element"
	case NodeAttribute:
		return "attribute"
	case NodeText:
		return "text"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// ParseNodeKind parses the node names used in mapping documents.
// An empty name means element.
func ParseNodeKind(s string) (NodeKind, error) {
	switch s {
	case "", "element":
		return NodeElement, nil
	case "attribute":
		return NodeAttribute, nil
	case "text":
		return NodeText, nil
	default:
		return 0, fmt.Errorf("unknown node %q", s)
	}
}

// FieldDescriptor binds one struct field to an XML node.
type FieldDescriptor struct {
	Name      string       // Go field name
	Index     []int        // reflect.Value.FieldByIndex access path
	Type      reflect.Type // Declared field type
	Node      NodeKind     // Element, attribute or text
	XMLName   xml.Name     // Node name; an empty Space matches any namespace
	Required  bool         // Must be non-zero when validating
	OmitEmpty bool         // Skip zero values when marshalling
}

// Descriptor describes how a struct type maps to an XML element.
type Descriptor struct {
	Type    reflect.Type      // Described struct type
	XMLName xml.Name          // Root element name
	Fields  []FieldDescriptor // Field bindings in document order

	// Delegate marks types whose tags use forms the engine does not model;
	// they are bound by encoding/xml as a whole.
	Delegate bool

	// Mapped is true for descriptors built from a mapping document.
	Mapped bool

	// NameIndex locates an xml.Name field that receives the element name.
	NameIndex []int

	// fixedName is true when XMLName came from a tag or mapping rather than
	// the type name, so a NameIndex value never overrides it.
	fixedName bool
}

// Attribute returns the attribute field matching name.
func (d *Descriptor) Attribute(name xml.Name) *FieldDescriptor {
	return d.find(NodeAttribute, name)
}

// Element returns the element field matching name.
func (d *Descriptor) Element(name xml.Name) *FieldDescriptor {
	return d.find(NodeElement, name)
}

// Text returns the text field, if any.
func (d *Descriptor) Text() *FieldDescriptor {
	for i := range d.Fields {
		if d.Fields[i].Node == NodeText {
			return &d.Fields[i]
		}
	}
	return nil
}

// Matches reports whether the descriptor's root element is name.
func (d *Descriptor) Matches(name xml.Name) bool {
	return matchName(d.XMLName, name)
}

func (d *Descriptor) find(node NodeKind, name xml.Name) *FieldDescriptor {
	for i := range d.Fields {
		f := &d.Fields[i]
		if f.Node == node && matchName(f.XMLName, name) {
			return f
		}
	}
	return nil
}

// matchName compares local names, and namespaces when want declares one.
func matchName(want, got xml.Name) bool {
	return want.Local == got.Local && (want.Space == "" || want.Space == got.Space)
}
