// Package stories generates narrative stories about a wallet's markets.
package stories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/kailas-cloud/marketfeed/internal/domain"
)

// Story count bounds.
const (
	DefaultCount = 25
	MaxCount     = 100
)

var walletPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// Generator calls the upstream story engine.
type Generator interface {
	Stories(ctx context.Context, wallet string, n int) (json.RawMessage, error)
}

// Service validates story requests and forwards them.
type Service struct {
	gen Generator
}

// New creates a stories service.
func New(gen Generator) *Service {
	return &Service{gen: gen}
}

// Generate returns the engine's stories for wallet. n <= 0 selects DefaultCount; larger
// values are capped at MaxCount.
func (s *Service) Generate(ctx context.Context, wallet string, n int) (json.RawMessage, error) {
	if !walletPattern.MatchString(wallet) {
		return nil, fmt.Errorf("%w: wallet must be a 0x-prefixed 40 hex digit address", domain.ErrInvalidRequest)
	}
	switch {
	case n <= 0:
		n = DefaultCount
	case n > MaxCount:
		n = MaxCount
	}

	raw, err := s.gen.Stories(ctx, wallet, n)
	if err != nil {
		if !errors.Is(err, domain.ErrUpstream) {
			err = fmt.Errorf("%w: %w", domain.ErrUpstream, err)
		}
		return nil, fmt.Errorf("generate stories: %w", err)
	}
	return raw, nil
}
