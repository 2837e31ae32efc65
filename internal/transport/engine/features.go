package engine

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/kailas-cloud/marketfeed/internal/domain"
	"github.com/kailas-cloud/marketfeed/internal/domain/candidate"
)

type itemRef struct {
	Index string `json:"index"`
	ID    string `json:"id"`
}

type featuresPayload struct {
	Items []itemRef `json:"items"`
	User  itemRef   `json:"user"`
}

type featureRow struct {
	ID       string                     `json:"id"`
	DocID    string                     `json:"_id"`
	Index    string                     `json:"index"`
	Features map[string]json.RawMessage `json:"features"`
	Scores   map[string]*float64        `json:"scores"`
}

// Features fetches per-item features and scores for user. Recent trades arrive under the
// "bets" feature and are returned separately; malformed trade lists are dropped.
func (c *Client) Features(
	ctx context.Context, version string, items []*candidate.Candidate, user candidate.User,
) ([]candidate.Enrichment, error) {
	payload := featuresPayload{
		Items: make([]itemRef, len(items)),
		User:  itemRef{Index: user.Index, ID: user.ID},
	}
	for i, it := range items {
		payload.Items[i] = itemRef{Index: it.Index, ID: it.ID}
	}

	body, err := c.post(ctx, "features", c.featuresURL+"/features/"+url.PathEscape(version), payload)
	if err != nil {
		return nil, err
	}

	var rows []featureRow
	if !decodeAt(body, &rows, []string{"results"}, []string{"data", "results"}) {
		return nil, &domain.UpstreamError{Service: service, Op: "features", Err: errMalformed}
	}

	out := make([]candidate.Enrichment, 0, len(rows))
	for _, r := range rows {
		if r.ID == "" {
			r.ID = r.DocID
		}
		if r.ID == "" {
			continue
		}
		out = append(out, toEnrichment(r))
	}
	return out, nil
}

func toEnrichment(r featureRow) candidate.Enrichment {
	e := candidate.Enrichment{ID: r.ID}

	if len(r.Features) > 0 {
		e.Features = make(map[string]any, len(r.Features))
	}
	for k, raw := range r.Features {
		if k == "bets" {
			var trades []candidate.Trade
			if json.Unmarshal(raw, &trades) == nil {
				e.Trades = trades
			}
			continue
		}
		var v any
		if json.Unmarshal(raw, &v) == nil {
			e.Features[k] = v
		}
	}

	for k, v := range r.Scores {
		if v == nil {
			continue
		}
		if e.Scores == nil {
			e.Scores = make(map[string]float64, len(r.Scores))
		}
		e.Scores[k] = *v
	}
	return e
}

type scorePayload struct {
	UserID  string   `json:"user_id"`
	ItemIDs []string `json:"item_ids"`
}

// Score asks the model at modelPath to order itemIDs for userID.
func (c *Client) Score(ctx context.Context, modelPath, userID string, itemIDs []string) ([]string, error) {
	body, err := c.post(ctx, "scoring", c.scoringURL+modelPath, scorePayload{UserID: userID, ItemIDs: itemIDs})
	if err != nil {
		return nil, err
	}

	var ids []string
	if !decodeAt(body, &ids, nil, []string{"result"}, []string{"data"}) {
		return nil, &domain.UpstreamError{Service: service, Op: "scoring", Err: errMalformed}
	}
	return ids, nil
}
