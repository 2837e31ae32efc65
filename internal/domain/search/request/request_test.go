package request

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/marketfeed/internal/domain"
	"github.com/kailas-cloud/marketfeed/internal/domain/search/filter"
	"github.com/kailas-cloud/marketfeed/internal/domain/search/mode"
)

func wallets() filter.Group {
	return filter.Group{LookupIndex: "polymarket-wallets", Name: "label", MinBoost: 1, MaxBoost: 5, N: 5}
}

func TestBuild_Defaults(t *testing.T) {
	r, err := NewBuilder("polymarket-items").Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Index() != "polymarket-items" {
		t.Errorf("Index() = %q", r.Index())
	}
	if r.Size() != DefaultSize {
		t.Errorf("Size() = %d, want %d", r.Size(), DefaultSize)
	}
	if r.Projection() != mode.Full {
		t.Errorf("Projection() = %q", r.Projection())
	}
	if r.Mode() != mode.FilterAndSort {
		t.Errorf("Mode() = %q", r.Mode())
	}
	if !r.Filters().IsEmpty() {
		t.Error("expected empty filters")
	}
}

func TestBuild_ProjectionModesMutuallyExclusive(t *testing.T) {
	base := NewBuilder("polymarket-items")
	tests := []struct {
		name    string
		b       Builder
		want    mode.Projection
		wantErr bool
	}{
		{"vectors", base.IncludeVectors(), mode.Vectors, false},
		{"fields", base.SelectFields("question", "slug"), mode.Fields, false},
		{"ids", base.OnlyIDs(), mode.IDs, false},
		{"vectors+fields", base.IncludeVectors().SelectFields("question"), "", true},
		{"vectors+ids", base.IncludeVectors().OnlyIDs(), "", true},
		{"fields+ids", base.SelectFields("question").OnlyIDs(), "", true},
		{"all three", base.IncludeVectors().SelectFields("q").OnlyIDs(), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := tt.b.Build()
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidRequest) {
					t.Fatalf("expected ErrInvalidRequest, got %v", err)
				}
				if !strings.Contains(err.Error(), "mutually exclusive") {
					t.Errorf("error = %q", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.Projection() != tt.want {
				t.Errorf("Projection() = %q, want %q", r.Projection(), tt.want)
			}
		})
	}
}

func TestBuild_TextAndBoostRejected(t *testing.T) {
	_, err := NewBuilder("polymarket-items").
		Text("election odds").
		Boost().
		GroupBoost("ai_labels_med", "0xabc", wallets()).
		Build()
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestBuild_VectorAndBoostRejected(t *testing.T) {
	_, err := NewBuilder("polymarket-items").
		Vector([]float32{0.1, 0.2}).
		Boost().
		GroupBoost("tags", "0xabc", wallets()).
		Build()
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestBuild_TextAndSortRejected(t *testing.T) {
	_, err := NewBuilder("polymarket-items").
		Text("election odds").
		SortBy("volume_24hr", Desc).
		Build()
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestBuild_DateWithoutBoundRejectedAtBuild(t *testing.T) {
	b := NewBuilder("polymarket-items").Date("end_date", "", "")
	_, err := b.Build()
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if !strings.Contains(err.Error(), "end_date") {
		t.Errorf("error should name the field: %q", err)
	}
}

func TestBuild_SizeBounds(t *testing.T) {
	tests := []struct {
		size    int
		want    int
		wantErr bool
	}{
		{0, DefaultSize, false},
		{1, 1, false},
		{150, 150, false},
		{MaxSize, MaxSize, false},
		{MaxSize + 1, 0, true},
		{-1, 0, true},
	}
	for _, tt := range tests {
		r, err := NewBuilder("idx").Size(tt.size).Build()
		if tt.wantErr {
			if err == nil {
				t.Errorf("size %d: expected error", tt.size)
			}
			continue
		}
		if err != nil {
			t.Errorf("size %d: unexpected error: %v", tt.size, err)
			continue
		}
		if r.Size() != tt.want {
			t.Errorf("size %d: Size() = %d, want %d", tt.size, r.Size(), tt.want)
		}
	}
}

func TestBuild_InvalidSort(t *testing.T) {
	if _, err := NewBuilder("idx").SortBy("volume_24hr", "sideways").Build(); err == nil {
		t.Error("expected error for invalid direction")
	}
	if _, err := NewBuilder("idx").SortBy("", Asc).Build(); err == nil {
		t.Error("expected error for empty sort field")
	}
}

func TestBuild_MissingIndex(t *testing.T) {
	if _, err := NewBuilder("").Build(); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestBuild_ChainActivation(t *testing.T) {
	r, err := NewBuilder("polymarket-items").
		Term("active", true).
		Numeric("liquidity_num", filter.GT, 5000).
		Exclude().
		Term("closed", true).
		Term("archived", true).
		Include().
		Terms("tags", "politics").
		Boost().
		GroupBoost("ai_labels_med", "0xabc", wallets()).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	include := r.Filters().Include()
	wantInclude := []string{"active", "liquidity_num", "tags"}
	if len(include) != len(wantInclude) {
		t.Fatalf("include len = %d, want %d", len(include), len(wantInclude))
	}
	for i, f := range wantInclude {
		if include[i].Field() != f {
			t.Errorf("include[%d] = %q, want %q", i, include[i].Field(), f)
		}
	}
	if len(r.Filters().Exclude()) != 2 {
		t.Errorf("exclude len = %d, want 2", len(r.Filters().Exclude()))
	}
	if len(r.Filters().Boost()) != 1 {
		t.Errorf("boost len = %d, want 1", len(r.Filters().Boost()))
	}
	if r.Mode() != mode.Boost {
		t.Errorf("Mode() = %q, want boost", r.Mode())
	}
}

func TestBuilder_BranchesDoNotShareState(t *testing.T) {
	base := NewBuilder("polymarket-items").Term("active", true)

	a := base.Exclude().Term("closed", true)
	b := base.Term("archived", false)

	ra, err := a.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rb, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rbase, err := base.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rbase.Filters().Include()) != 1 || len(rbase.Filters().Exclude()) != 0 {
		t.Errorf("base mutated: include=%d exclude=%d",
			len(rbase.Filters().Include()), len(rbase.Filters().Exclude()))
	}
	if len(ra.Filters().Include()) != 1 || len(ra.Filters().Exclude()) != 1 {
		t.Errorf("branch a: include=%d exclude=%d", len(ra.Filters().Include()), len(ra.Filters().Exclude()))
	}
	if len(rb.Filters().Include()) != 2 {
		t.Errorf("branch b include = %d, want 2", len(rb.Filters().Include()))
	}
}

func TestRequest_AccessorsReturnCopies(t *testing.T) {
	r, err := NewBuilder("polymarket-items").SelectFields("question", "slug").Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.Fields()[0] = "mutated"
	if got := r.Fields(); got[0] != "question" {
		t.Errorf("Fields() = %v, request changed through a returned slice", got)
	}

	rv, err := NewBuilder("polymarket-items").Vector([]float32{0.1, 0.2}).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rv.Vector()[0] = 9
	if got := rv.Vector(); got[0] != 0.1 {
		t.Errorf("Vector() = %v, request changed through a returned slice", got)
	}
}

func TestBuild_QueryLengthCountsCharacters(t *testing.T) {
	atLimit := strings.Repeat("é", MaxQueryLength)
	if _, err := NewBuilder("idx").Text(atLimit).Build(); err != nil {
		t.Fatalf("%d two-byte characters should be accepted: %v", MaxQueryLength, err)
	}

	_, err := NewBuilder("idx").Text(atLimit + "a").Build()
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest over the limit, got %v", err)
	}
}

func TestBuild_SemanticMode(t *testing.T) {
	r, err := NewBuilder("polymarket-items").Text("fed rate cut").IncludeVectors().Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Mode() != mode.Semantic {
		t.Errorf("Mode() = %q", r.Mode())
	}
	if r.Sort() != nil {
		t.Error("semantic request must not carry a sort")
	}

	rv, err := NewBuilder("polymarket-items").Vector([]float32{0.1}).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rv.Mode() != mode.Semantic {
		t.Errorf("vector Mode() = %q", rv.Mode())
	}

	if _, err := NewBuilder("idx").Text("a").Vector([]float32{1}).Build(); err == nil {
		t.Error("expected error for text + vector")
	}
}

func TestBuild_CollectsAllErrors(t *testing.T) {
	_, err := NewBuilder("").
		IncludeVectors().
		OnlyIDs().
		Date("end_date", "", "").
		Build()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"index is required", "mutually exclusive", "end_date"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}
