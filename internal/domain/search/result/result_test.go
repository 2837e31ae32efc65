package result

import "testing"

func TestNew(t *testing.T) {
	src := map[string]any{"question": "Will it rain?"}
	vec := []float32{0.1, 0.2}

	r := New("m-1", "polymarket-items", 0.95, src, vec)

	if r.ID() != "m-1" {
		t.Errorf("ID() = %q", r.ID())
	}
	if r.Index() != "polymarket-items" {
		t.Errorf("Index() = %q", r.Index())
	}
	if r.Score() != 0.95 {
		t.Errorf("Score() = %f", r.Score())
	}
	if r.Source()["question"] != "Will it rain?" {
		t.Errorf("Source() = %v", r.Source())
	}
	if len(r.Vector()) != 2 {
		t.Errorf("Vector() len = %d", len(r.Vector()))
	}
}

func TestNew_NilFields(t *testing.T) {
	r := New("id", "", 0, nil, nil)
	if r.Source() != nil {
		t.Errorf("Source() = %v, want nil", r.Source())
	}
	if r.Vector() != nil {
		t.Errorf("Vector() = %v, want nil", r.Vector())
	}
}
