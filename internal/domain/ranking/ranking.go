// Package ranking describes the final reordering request and applies its result.
package ranking

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/marketfeed/internal/domain/candidate"
)

// MixTerm interleaves items ordered by Field, contributing Percentage of the output.
type MixTerm struct {
	Field      string
	Direction  string
	Percentage float64
}

// Diversity configures the diversity pass.
type Diversity struct {
	Method  string
	Lambda  float64
	Horizon int
}

// FieldLimit caps how many items sharing a Field value may appear in one window.
type FieldLimit struct {
	Field string
	Max   int
}

// Window is a set of per-field caps applied over every Every consecutive items.
type Window struct {
	Every  int
	Limits []FieldLimit
}

// Spec is the full ranking request.
type Spec struct {
	Method    string
	Mix       []MixTerm
	Diversity *Diversity
	Window    *Window
}

// Placement is one ranked item as returned by the engine.
type Placement struct {
	ID       string
	Index    string
	Position int
}

// Apply reorders cs by the engine placements. Candidates without a placement are dropped;
// equal positions keep their input order. Every kept candidate gets its Position set.
func Apply(cs []*candidate.Candidate, placements []Placement) []*candidate.Candidate {
	pos := make(map[string]int, len(placements))
	for _, p := range placements {
		if _, dup := pos[p.ID]; !dup {
			pos[p.ID] = p.Position
		}
	}

	out := make([]*candidate.Candidate, 0, len(placements))
	for _, c := range cs {
		if p, ok := pos[c.ID]; ok {
			c.Position = p
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// Violation is a window that holds more items sharing a value than the cap allows.
type Violation struct {
	Field string
	Value string
	Start int
	Count int
}

func (v Violation) String() string {
	return fmt.Sprintf("%s=%q appears %d times in window starting at %d", v.Field, v.Value, v.Count, v.Start)
}

// CheckWindow reports every run of w.Every consecutive items (the whole list when shorter)
// in which a capped field value appears more than its Max. Items missing the field never count.
func CheckWindow(cs []*candidate.Candidate, w Window) []Violation {
	if w.Every <= 0 || len(cs) == 0 {
		return nil
	}
	size := min(w.Every, len(cs))

	var out []Violation
	for _, lim := range w.Limits {
		values := make([]string, len(cs))
		for i, c := range cs {
			if v, ok := c.Attr(lim.Field); ok && v != nil {
				values[i] = fmt.Sprint(v)
			}
		}
		for start := 0; start+size <= len(values); start++ {
			counts := make(map[string]int)
			for _, v := range values[start : start+size] {
				if v != "" {
					counts[v]++
				}
			}
			for _, v := range values[start : start+size] {
				if n := counts[v]; v != "" && n > lim.Max {
					out = append(out, Violation{Field: lim.Field, Value: v, Start: start, Count: n})
					counts[v] = 0
				}
			}
		}
	}
	return out
}
