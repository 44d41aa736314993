package integration

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/clbanning/mxj/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/zoobzio/oxm"
	"github.com/zoobzio/oxm/binding"
	oxmtest "github.com/zoobzio/oxm/testing"
)

// channel writes a graph through one result kind and hands back the
// matching source for the same document.
type channel struct {
	name  string
	write func(ctx context.Context, m *binding.Marshaller, graph any) (oxm.Source, error)
}

var channels = []channel{
	{"stream", func(ctx context.Context, m *binding.Marshaller, graph any) (oxm.Source, error) {
		var buf bytes.Buffer
		if err := m.Marshal(ctx, graph, oxm.StreamResult{Writer: &buf}); err != nil {
			return nil, err
		}
		return oxm.StreamSource{Reader: &buf}, nil
	}},
	{"text", func(ctx context.Context, m *binding.Marshaller, graph any) (oxm.Source, error) {
		var sb strings.Builder
		if err := m.Marshal(ctx, graph, oxm.TextResult{Writer: &sb}); err != nil {
			return nil, err
		}
		return oxm.TextSource{Reader: strings.NewReader(sb.String())}, nil
	}},
	{"dom", func(ctx context.Context, m *binding.Marshaller, graph any) (oxm.Source, error) {
		node := mxj.Map{}
		if err := m.Marshal(ctx, graph, oxm.DOMResult{Node: node}); err != nil {
			return nil, err
		}
		return oxm.DOMSource{Node: node}, nil
	}},
	{"events", func(ctx context.Context, m *binding.Marshaller, graph any) (oxm.Source, error) {
		var buf bytes.Buffer
		if err := m.Marshal(ctx, graph, oxm.EventResult{Writer: xml.NewEncoder(&buf)}); err != nil {
			return nil, err
		}
		return oxm.EventSource{Reader: xml.NewDecoder(&buf)}, nil
	}},
}

// convert re-reads a document from one channel and writes it through another.
func convert(ctx context.Context, m *binding.Marshaller, from oxm.Source, to channel) (oxm.Source, error) {
	graph, err := m.Unmarshal(ctx, from)
	if err != nil {
		return nil, err
	}
	return to.write(ctx, m, graph)
}

func TestRoundTrip_AcrossChannels(t *testing.T) {
	ctx := context.Background()
	m, err := binding.New(binding.WithTypes(oxmtest.Types()))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	for _, out := range channels {
		for _, in := range channels {
			t.Run(fmt.Sprintf("%s to %s", out.name, in.name), func(t *testing.T) {
				src, err := out.write(ctx, m, oxmtest.SampleOrder())
				if err != nil {
					t.Fatalf("write %s: %v", out.name, err)
				}
				if out.name != in.name {
					if src, err = convert(ctx, m, src, in); err != nil {
						t.Fatalf("convert to %s: %v", in.name, err)
					}
				}
				got, err := m.Unmarshal(ctx, src)
				if err != nil {
					t.Fatalf("Unmarshal() error: %v", err)
				}
				if diff := cmp.Diff(oxmtest.SampleOrder(), got); diff != "" {
					t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
				}
			})
		}
	}
}

func TestRoundTrip_PreservedWhitespace(t *testing.T) {
	ctx := context.Background()
	m, err := binding.New(binding.WithTypes(oxmtest.Types()), binding.WithWhitespacePreserve(true))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	want := oxmtest.SampleOrder()
	want.Note = "  padded  "
	want.Customer = " Zoë "

	for _, out := range channels {
		for _, in := range channels {
			t.Run(fmt.Sprintf("%s to %s", out.name, in.name), func(t *testing.T) {
				src, err := out.write(ctx, m, want)
				if err != nil {
					t.Fatalf("write %s: %v", out.name, err)
				}
				if out.name != in.name {
					if src, err = convert(ctx, m, src, in); err != nil {
						t.Fatalf("convert to %s: %v", in.name, err)
					}
				}
				got, err := m.Unmarshal(ctx, src)
				if err != nil {
					t.Fatalf("Unmarshal() error: %v", err)
				}
				if diff := cmp.Diff(want, got); diff != "" {
					t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
				}
			})
		}
	}
}

func TestRoundTrip_MappedAcrossChannels(t *testing.T) {
	ctx := context.Background()
	m, err := binding.New(
		binding.WithTypes(oxmtest.Types()),
		binding.WithMappingResources(binding.BytesResource{Name: "customer.yaml", Data: []byte(oxmtest.CustomerMappingYAML)}),
		binding.WithValidating(true),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	for _, ch := range channels {
		t.Run(ch.name, func(t *testing.T) {
			src, err := ch.write(ctx, m, oxmtest.SampleCustomer())
			if err != nil {
				t.Fatalf("write: %v", err)
			}
			got, err := m.Unmarshal(ctx, src)
			if err != nil {
				t.Fatalf("Unmarshal() error: %v", err)
			}
			if diff := cmp.Diff(oxmtest.SampleCustomer(), got); diff != "" {
				t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFailureDirection(t *testing.T) {
	ctx := context.Background()
	m, err := binding.New(binding.WithTypes(oxmtest.Types()), binding.WithValidating(true))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// The same validation failure surfaces with the direction it happened in.
	invalid := &oxmtest.Order{Customer: "nobody"}
	err = m.Marshal(ctx, invalid, oxm.StreamResult{Writer: &bytes.Buffer{}})
	if !errors.Is(err, oxm.ErrValidation) || !errors.Is(err, oxm.ErrMarshal) {
		t.Errorf("Marshal() error = %v, want validation marshalling failure", err)
	}

	_, err = m.Unmarshal(ctx, oxm.StreamSource{Reader: strings.NewReader(`<order><customer>nobody</customer></order>`)})
	if !errors.Is(err, oxm.ErrValidation) || !errors.Is(err, oxm.ErrUnmarshal) {
		t.Errorf("Unmarshal() error = %v, want validation unmarshalling failure", err)
	}
}

func TestConcurrentUse(t *testing.T) {
	ctx := context.Background()
	m, err := binding.New(binding.WithTypes(oxmtest.Types()))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < cap(errs); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ch := channels[i%len(channels)]
			src, err := ch.write(ctx, m, oxmtest.SampleOrder())
			if err != nil {
				errs <- err
				return
			}
			if i%3 == 0 {
				m.SetWhitespacePreserve(i%2 == 0)
			}
			got, err := m.Unmarshal(ctx, src)
			if err != nil {
				errs <- err
				return
			}
			if !cmp.Equal(oxmtest.SampleOrder(), got) {
				errs <- fmt.Errorf("%s: graph mismatch", ch.name)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
