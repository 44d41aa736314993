package xmlbind

import (
	"reflect"
	"testing"
)

func TestTypeRegistry_Lookup(t *testing.T) {
	r := NewTypeRegistry()
	r.Add(reflect.TypeFor[*testOrder](), reflect.TypeFor[int]())

	tests := []struct {
		name string
		want reflect.Type
	}{
		{"xmlbind.testOrder", reflect.TypeFor[testOrder]()},
		{"github.com/zoobzio/oxm/xmlbind.testOrder", reflect.TypeFor[testOrder]()},
		{"int", reflect.TypeFor[int]()},
		{"xmlbind.testNote", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Lookup(tt.name)
			if ok != (tt.want != nil) {
				t.Fatalf("Lookup(%q) ok = %v", tt.name, ok)
			}
			if got != tt.want {
				t.Errorf("Lookup(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestTypeRegistry_With(t *testing.T) {
	parent := NewTypeRegistry()
	parent.Add(reflect.TypeFor[testOrder]())

	child := parent.With(reflect.TypeFor[testNote]())

	if _, ok := child.Lookup("xmlbind.testOrder"); !ok {
		t.Error("child should see parent types")
	}
	if _, ok := child.Lookup("xmlbind.testNote"); !ok {
		t.Error("child should see its own types")
	}
	if _, ok := parent.Lookup("xmlbind.testNote"); ok {
		t.Error("With() should not modify the parent")
	}

	types := child.Types()
	if len(types) != 2 {
		t.Fatalf("Types() len = %d, want 2", len(types))
	}
	if types[0] != reflect.TypeFor[testNote]() || types[1] != reflect.TypeFor[testOrder]() {
		t.Errorf("Types() = %v, want sorted by name", types)
	}
}

func TestTypeRegistry_Reset(t *testing.T) {
	r := NewTypeRegistry()
	RegisterType[testCard](r)

	if _, ok := r.Lookup("xmlbind.testCard"); !ok {
		t.Fatal("RegisterType() should add the type")
	}
	r.Reset()
	if len(r.Types()) != 0 {
		t.Error("Reset() should clear the registry")
	}
}
