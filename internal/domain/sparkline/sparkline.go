// Package sparkline synthesizes a plausible price series when no real history is available.
package sparkline

import (
	"math"
	"time"
	"unicode/utf16"

	"github.com/kailas-cloud/marketfeed/internal/domain/market"
)

// Price bounds of a synthesized point.
const (
	MinPrice = 0.01
	MaxPrice = 0.99
)

const (
	steps  = 4
	jitter = 0.01

	hour  = 3600
	day   = 24 * hour
	week  = 7 * day
	month = 30 * day
)

// Input is what the caller knows about a market: the current price and the
// optional price deltas over trailing windows.
type Input struct {
	ID        string
	Current   float64
	Change1h  *float64
	Change24h *float64
	Change7d  *float64
	Change30d *float64
}

type anchor struct {
	secsAgo float64
	price   float64
}

// Generate returns a series oldest first, anchored on the known price changes and
// interpolated with deterministic jitter seeded by the market id.
// The result always has at least five points and strictly increasing timestamps.
func Generate(now time.Time, in Input) []market.PricePoint {
	anchors := make([]anchor, 0, 5)
	for _, a := range []struct {
		secs   float64
		change *float64
	}{
		{month, in.Change30d},
		{week, in.Change7d},
		{day, in.Change24h},
		{hour, in.Change1h},
	} {
		if a.change != nil {
			anchors = append(anchors, anchor{secsAgo: a.secs, price: in.Current - *a.change})
		}
	}
	anchors = append(anchors, anchor{secsAgo: 0, price: in.Current})

	if len(anchors) < 2 {
		anchors = append([]anchor{{secsAgo: day, price: in.Current - 0.01}}, anchors...)
	}

	seed := hashCode(in.ID)
	nowSec := now.Unix()
	points := make([]market.PricePoint, 0, (len(anchors)-1)*steps+1)

	for i := 0; i < len(anchors)-1; i++ {
		from, to := anchors[i], anchors[i+1]
		for s := 0; s <= steps; s++ {
			if i > 0 && s == 0 {
				continue
			}
			t := float64(s) / steps
			base := from.price + (to.price-from.price)*t
			secsAgo := from.secsAgo + (to.secsAgo-from.secsAgo)*t

			j := pseudoRandom(float64(seed+int64(i)*100+int64(s)))*2*jitter - jitter
			price := math.Max(MinPrice, math.Min(MaxPrice, base+j))

			points = append(points, market.PricePoint{
				Time:  nowSec - int64(math.Round(secsAgo)),
				Value: price,
			})
		}
	}
	return points
}

// hashCode is the classic 31-multiplier string hash over UTF-16 code units
// with 32-bit wrap-around, returned as an absolute value.
func hashCode(s string) int64 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(u)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return v
}

func pseudoRandom(x float64) float64 {
	v := math.Sin(x*9301+49297) * 233280
	return v - math.Floor(v)
}
