package engine

import (
	"context"

	"github.com/kailas-cloud/marketfeed/internal/domain"
	"github.com/kailas-cloud/marketfeed/internal/domain/search/filter"
	"github.com/kailas-cloud/marketfeed/internal/domain/search/mode"
	"github.com/kailas-cloud/marketfeed/internal/domain/search/request"
	"github.com/kailas-cloud/marketfeed/internal/domain/search/result"
)

type searchPayload struct {
	Index          string       `json:"index"`
	Size           int          `json:"size"`
	Text           string       `json:"text,omitempty"`
	Vector         []float32    `json:"vector,omitempty"`
	IncludeVectors bool         `json:"include_vectors,omitempty"`
	SelectFields   []string     `json:"select_fields,omitempty"`
	OnlyIDs        bool         `json:"only_ids,omitempty"`
	Include        []wireClause `json:"include,omitempty"`
	Exclude        []wireClause `json:"exclude,omitempty"`
	Boost          []wireClause `json:"boost,omitempty"`
	SortBy         *wireSort    `json:"sort_by,omitempty"`
}

type wireSort struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

type wireClause struct {
	Filter      string   `json:"filter"`
	Field       string   `json:"field"`
	Boost       *float64 `json:"boost"`
	Value       any      `json:"value,omitempty"`
	Operator    string   `json:"operator,omitempty"`
	LookupIndex string   `json:"lookup_index,omitempty"`
	Group       string   `json:"group,omitempty"`
	MinBoost    *float64 `json:"min_boost,omitempty"`
	MaxBoost    *float64 `json:"max_boost,omitempty"`
	N           int      `json:"n,omitempty"`
}

type dateRange struct {
	From string `json:"date_from,omitempty"`
	To   string `json:"date_to,omitempty"`
}

type hit struct {
	ID      string         `json:"_id"`
	Index   string         `json:"_index"`
	Score   *float64       `json:"_score"`
	Source  map[string]any `json:"_source"`
	Vectors []float32      `json:"_vectors"`
}

// Search runs a retrieval request. The endpoint is chosen from the request shape.
func (c *Client) Search(ctx context.Context, req request.Request) ([]result.Result, error) {
	m := req.Mode()
	body, err := c.post(ctx, "search_"+string(m), c.searchURL+"/search/"+string(m), encodeSearch(&req))
	if err != nil {
		return nil, err
	}

	var hits []hit
	if !decodeAt(body, &hits, nil, []string{"hits"}, []string{"result", "hits"}, []string{"data", "hits"}) {
		return nil, &domain.UpstreamError{Service: service, Op: "search_" + string(m), Err: errMalformed}
	}

	out := make([]result.Result, 0, len(hits))
	for _, h := range hits {
		if h.ID == "" {
			continue
		}
		var score float64
		if h.Score != nil {
			score = *h.Score
		}
		out = append(out, result.New(h.ID, h.Index, score, h.Source, h.Vectors))
	}
	return out, nil
}

func encodeSearch(req *request.Request) searchPayload {
	p := searchPayload{
		Index:   req.Index(),
		Size:    req.Size(),
		Text:    req.Text(),
		Vector:  req.Vector(),
		Include: encodeClauses(req.Filters().Include()),
		Exclude: encodeClauses(req.Filters().Exclude()),
	}

	switch req.Projection() {
	case mode.Vectors:
		p.IncludeVectors = true
	case mode.Fields:
		p.SelectFields = req.Fields()
	case mode.IDs:
		p.OnlyIDs = true
	}

	// Semantic retrieval is relevance ordered: boosts and sorts never reach the wire.
	if req.Mode() != mode.Semantic {
		p.Boost = encodeClauses(req.Filters().Boost())
		if s := req.Sort(); s != nil {
			p.SortBy = &wireSort{Field: s.Field, Order: string(s.Direction)}
		}
	}
	return p
}

func encodeClauses(cs []filter.Clause) []wireClause {
	if len(cs) == 0 {
		return nil
	}
	out := make([]wireClause, 0, len(cs))
	for _, c := range cs {
		w := wireClause{Filter: string(c.Kind()), Field: c.Field()}
		switch c.Kind() {
		case filter.Terms:
			w.Value = c.Values()
		case filter.Numeric:
			w.Operator = string(c.Op())
			w.Value = c.Number()
		case filter.Date:
			w.Value = dateRange{From: c.From(), To: c.To()}
		case filter.GroupBoost:
			g := c.Group()
			w.Value = c.Value()
			w.LookupIndex = g.LookupIndex
			w.Group = g.Name
			w.MinBoost = &g.MinBoost
			w.MaxBoost = &g.MaxBoost
			w.N = g.N
		default:
			w.Value = c.Value()
		}
		out = append(out, w)
	}
	return out
}
