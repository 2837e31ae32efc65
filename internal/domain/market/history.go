package market

import "time"

// History is a cached price series for one market slug.
type History struct {
	Slug       string       `json:"slug"`
	Points     []PricePoint `json:"points"`
	InsertedAt time.Time    `json:"inserted_at"`
}

// Fresh reports whether the series may be served: non-empty and younger than ttl.
func (h History) Fresh(now time.Time, ttl time.Duration) bool {
	return len(h.Points) > 0 && now.Sub(h.InsertedAt) < ttl
}
