// Package candidate holds the mutable per-request working set of the feed pipeline.
package candidate

import (
	"strings"

	"github.com/kailas-cloud/marketfeed/internal/domain/search/result"
)

// Candidate is one retrieved item travelling through the pipeline.
// Retrieval creates it; enrichment, scoring and ranking fill the optional parts in place.
type Candidate struct {
	ID       string
	Index    string
	Source   map[string]any
	Vector   []float32
	Features map[string]any
	Scores   map[string]float64
	// Position is the rank assigned by the ranking stage, -1 until ranked.
	Position int
}

// FromResult converts a retrieval hit into a fresh candidate.
func FromResult(r result.Result) *Candidate {
	src := r.Source()
	if src == nil {
		src = map[string]any{}
	}
	return &Candidate{
		ID:       r.ID(),
		Index:    r.Index(),
		Source:   src,
		Vector:   r.Vector(),
		Position: -1,
	}
}

// SetScore records a score without touching other keys.
func (c *Candidate) SetScore(key string, v float64) {
	if c.Scores == nil {
		c.Scores = make(map[string]float64)
	}
	c.Scores[key] = v
}

// MergeFeatures copies features into the candidate, overwriting existing keys.
func (c *Candidate) MergeFeatures(f map[string]any) {
	if len(f) == 0 {
		return
	}
	if c.Features == nil {
		c.Features = make(map[string]any, len(f))
	}
	for k, v := range f {
		c.Features[k] = v
	}
}

// Attr returns a raw attribute, looking at features first and then the source document.
func (c *Candidate) Attr(key string) (any, bool) {
	if v, ok := c.Features[key]; ok {
		return v, true
	}
	v, ok := c.Source[key]
	return v, ok
}

// IDs returns the ids of cs in order.
func IDs(cs []*Candidate) []string {
	ids := make([]string, len(cs))
	for i, c := range cs {
		ids[i] = c.ID
	}
	return ids
}

// User identifies the end user whose lookup document drives personalization.
type User struct {
	Index string
	ID    string
}

// NewUser normalizes a wallet address into a User. Returns false for a blank wallet.
func NewUser(index, wallet string) (User, bool) {
	w := strings.ToLower(strings.TrimSpace(wallet))
	if w == "" {
		return User{}, false
	}
	return User{Index: index, ID: w}, true
}

// Trade is a recent bet on an item, attached by the features endpoint.
type Trade struct {
	UserPseudonym string   `json:"user_pseudonym"`
	Side          string   `json:"side"`
	Outcome       string   `json:"outcome"`
	USDC          float64  `json:"usdc"`
	Price         *float64 `json:"price,omitempty"`
	Timestamp     string   `json:"timestamp,omitempty"`
}
