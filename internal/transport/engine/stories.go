package engine

import (
	"context"
	"encoding/json"

	"github.com/kailas-cloud/marketfeed/internal/domain"
)

const (
	storiesEngine  = "polymarket_v2"
	newMarketHours = 24
)

type storiesParams struct {
	Wallet         string `json:"wallet"`
	NumStories     int    `json:"num_stories"`
	NewMarketHours int    `json:"new_market_hours"`
}

type storiesPayload struct {
	Engine string        `json:"engine"`
	Params storiesParams `json:"params"`
}

// Stories generates n narrative stories for wallet. The response is passed through untouched.
func (c *Client) Stories(ctx context.Context, wallet string, n int) (json.RawMessage, error) {
	body, err := c.post(ctx, "stories", c.storiesURL+"/stories/generate", storiesPayload{
		Engine: storiesEngine,
		Params: storiesParams{Wallet: wallet, NumStories: n, NewMarketHours: newMarketHours},
	})
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, &domain.UpstreamError{Service: service, Op: "stories", Err: errMalformed}
	}
	return json.RawMessage(body), nil
}
