package candidate

// Enrichment is the per-item output of the features endpoint.
type Enrichment struct {
	ID       string
	Features map[string]any
	Scores   map[string]float64
	Trades   []Trade
}

// Enrich merges enrichment rows into cs by id and returns the trades side map.
// Rows for unknown ids are ignored; items without trades get no map entry.
func Enrich(cs []*Candidate, rows []Enrichment) map[string][]Trade {
	byID := index(cs)
	trades := make(map[string][]Trade)
	for _, row := range rows {
		if len(row.Trades) > 0 {
			trades[row.ID] = row.Trades
		}
		c, ok := byID[row.ID]
		if !ok {
			continue
		}
		c.MergeFeatures(row.Features)
		for k, v := range row.Scores {
			c.SetScore(k, v)
		}
	}
	return trades
}

// ApplyModelOrder attaches a rank-derived score (n-i)/n under key, where ids is the
// model's ordering of n items. Candidates absent from ids are left untouched.
func ApplyModelOrder(cs []*Candidate, ids []string, key string) {
	byID := index(cs)
	n := float64(len(ids))
	for i, id := range ids {
		if c, ok := byID[id]; ok {
			c.SetScore(key, (n-float64(i))/n)
		}
	}
}

func index(cs []*Candidate) map[string]*Candidate {
	m := make(map[string]*Candidate, len(cs))
	for _, c := range cs {
		if _, dup := m[c.ID]; !dup {
			m[c.ID] = c
		}
	}
	return m
}
