package engine

import (
	"context"

	"github.com/kailas-cloud/marketfeed/internal/domain"
	"github.com/kailas-cloud/marketfeed/internal/domain/candidate"
	"github.com/kailas-cloud/marketfeed/internal/domain/ranking"
)

type rankCandidate struct {
	ID       string             `json:"_id"`
	Index    string             `json:"_index"`
	Source   map[string]any     `json:"_source"`
	Vectors  []float32          `json:"_vectors,omitempty"`
	Features map[string]any     `json:"features,omitempty"`
	Scores   map[string]float64 `json:"scores,omitempty"`
}

type mixTerm struct {
	Field      string  `json:"field"`
	Direction  string  `json:"direction"`
	Percentage float64 `json:"percentage"`
}

type rankSort struct {
	Method string    `json:"method"`
	Mix    []mixTerm `json:"mix,omitempty"`
}

type diversity struct {
	Method  string  `json:"method"`
	Lambda  float64 `json:"lambda"`
	Horizon int     `json:"horizon"`
}

type fieldLimit struct {
	Field string `json:"field"`
	Max   int    `json:"max"`
}

type limitsByField struct {
	Every  int          `json:"every"`
	Limits []fieldLimit `json:"limits"`
}

type rankPayload struct {
	Candidates    []rankCandidate `json:"candidates"`
	Sort          rankSort        `json:"sort"`
	Diversity     *diversity      `json:"diversity,omitempty"`
	LimitsByField *limitsByField  `json:"limits_by_field,omitempty"`
}

type rankedItem struct {
	ID       string `json:"id"`
	Index    string `json:"index"`
	Position int    `json:"position"`
}

// Rank submits enriched candidates with the ranking spec and returns the engine's placements.
func (c *Client) Rank(ctx context.Context, cs []*candidate.Candidate, spec ranking.Spec) ([]ranking.Placement, error) {
	body, err := c.post(ctx, "ranking", c.rankingURL+"/ranking/feed", encodeRank(cs, spec))
	if err != nil {
		return nil, err
	}

	var items []rankedItem
	if !decodeAt(body, &items, []string{"items"}, []string{"data", "items"}) {
		return nil, &domain.UpstreamError{Service: service, Op: "ranking", Err: errMalformed}
	}

	out := make([]ranking.Placement, len(items))
	for i, it := range items {
		out[i] = ranking.Placement{ID: it.ID, Index: it.Index, Position: it.Position}
	}
	return out, nil
}

func encodeRank(cs []*candidate.Candidate, spec ranking.Spec) rankPayload {
	p := rankPayload{
		Candidates: make([]rankCandidate, len(cs)),
		Sort:       rankSort{Method: spec.Method},
	}
	for i, c := range cs {
		p.Candidates[i] = rankCandidate{
			ID:       c.ID,
			Index:    c.Index,
			Source:   c.Source,
			Vectors:  c.Vector,
			Features: c.Features,
			Scores:   c.Scores,
		}
	}
	for _, m := range spec.Mix {
		p.Sort.Mix = append(p.Sort.Mix, mixTerm(m))
	}
	if d := spec.Diversity; d != nil {
		p.Diversity = &diversity{Method: d.Method, Lambda: d.Lambda, Horizon: d.Horizon}
	}
	if w := spec.Window; w != nil && w.Every > 0 {
		p.LimitsByField = &limitsByField{Every: w.Every}
		for _, l := range w.Limits {
			p.LimitsByField.Limits = append(p.LimitsByField.Limits, fieldLimit(l))
		}
	}
	return p
}
