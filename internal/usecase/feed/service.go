// Package feed orchestrates the market feed pipeline: retrieve, enrich, score and rank,
// degrading to the retrieval order whenever a personalization stage fails.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/marketfeed/internal/domain"
	"github.com/kailas-cloud/marketfeed/internal/domain/candidate"
	"github.com/kailas-cloud/marketfeed/internal/domain/market"
	"github.com/kailas-cloud/marketfeed/internal/domain/ranking"
	"github.com/kailas-cloud/marketfeed/internal/domain/search/filter"
	"github.com/kailas-cloud/marketfeed/internal/domain/search/request"
	"github.com/kailas-cloud/marketfeed/internal/logger"
	"github.com/kailas-cloud/marketfeed/internal/metrics"
)

// Stage names a pipeline step.
type Stage string

// Pipeline stages in execution order.
const (
	StageRetrieve Stage = "retrieve"
	StageEnrich   Stage = "enrich"
	StageScore    Stage = "score"
	StageRank     Stage = "rank"
)

// Query is one feed request.
type Query struct {
	Wallet    string
	Text      string
	Topics    []string
	SortField string
	SortOrder string
	Size      int
}

// Result is the feed response. Stage is the last stage that completed.
type Result struct {
	Markets      []market.Market
	Trades       map[string][]candidate.Trade
	Personalized bool
	Stage        Stage
	TotalHits    int
}

// Service runs the feed pipeline.
type Service struct {
	engine Engine
	embed  Embedder
	opts   Options
	now    func() time.Time
	logger *zap.Logger
}

// New creates a feed service. embed may be nil.
func New(engine Engine, embed Embedder, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{engine: engine, embed: embed, opts: opts, now: time.Now, logger: logger}
}

// WithClock overrides the time source used for the end date window.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Run executes the pipeline. Only an invalid query or a failed retrieval is an error;
// personalization failures fall back to the retrieval order.
func (s *Service) Run(ctx context.Context, q Query) (Result, error) {
	log := logger.FromContext(ctx, s.logger)
	user, personal := candidate.NewUser(s.opts.UsersIndex, q.Wallet)

	req, err := s.retrievalRequest(ctx, q, user, personal)
	if err != nil {
		return Result{}, err
	}

	hits, err := s.engine.Search(ctx, req)
	if err != nil {
		if !errors.Is(err, domain.ErrUpstream) {
			err = fmt.Errorf("%w: %w", domain.ErrUpstream, err)
		}
		return Result{}, fmt.Errorf("retrieve: %w", err)
	}

	cs := make([]*candidate.Candidate, len(hits))
	for i, h := range hits {
		cs[i] = candidate.FromResult(h)
	}

	res := Result{Stage: StageRetrieve, TotalHits: len(hits), Trades: map[string][]candidate.Trade{}}
	ordered := cs
	if personal && len(cs) > 0 {
		ordered = s.personalize(ctx, log, user, cs, &res)
	}

	res.Markets = market.FromCandidates(ordered)
	metrics.FeedRequestsTotal.WithLabelValues(string(res.Stage), strconv.FormatBool(res.Personalized)).Inc()
	return res, nil
}

// personalize runs enrich, score and rank. On the first failure it returns cs unchanged
// with res.Stage set to the last completed stage.
func (s *Service) personalize(
	ctx context.Context, log *zap.Logger, user candidate.User, cs []*candidate.Candidate, res *Result,
) []*candidate.Candidate {
	rows, err := s.engine.Features(ctx, s.opts.FeaturesVersion, cs, user)
	if err != nil {
		s.fallback(log, StageEnrich, err)
		return cs
	}
	res.Trades = candidate.Enrich(cs, rows)
	res.Stage = StageEnrich

	ids, err := s.engine.Score(ctx, s.opts.ModelPath, user.ID, candidate.IDs(cs))
	if err != nil {
		s.fallback(log, StageScore, err)
		return cs
	}
	candidate.ApplyModelOrder(cs, ids, s.opts.ScoreKey)
	res.Stage = StageScore

	placements, err := s.engine.Rank(ctx, cs, s.opts.Ranking)
	if err != nil {
		s.fallback(log, StageRank, err)
		return cs
	}

	ranked := ranking.Apply(cs, placements)
	if len(ranked) == 0 {
		s.fallback(log, StageRank, errors.New("ranking placed none of the candidates"))
		return cs
	}
	s.checkWindow(log, ranked)

	res.Stage = StageRank
	res.Personalized = true
	return ranked
}

func (s *Service) fallback(log *zap.Logger, failed Stage, err error) {
	metrics.FeedFallbacksTotal.WithLabelValues(string(failed)).Inc()
	log.Warn("Personalization failed, serving retrieval order",
		zap.String("stage", string(failed)),
		zap.Error(err),
	)
}

func (s *Service) checkWindow(log *zap.Logger, ranked []*candidate.Candidate) {
	w := s.opts.Ranking.Window
	if w == nil {
		return
	}
	violations := ranking.CheckWindow(ranked, *w)
	if len(violations) == 0 {
		return
	}
	metrics.FeedWindowViolationsTotal.Inc()
	log.Warn("Ranking response breaks the window cap",
		zap.Int("violations", len(violations)),
		zap.Stringer("first", violations[0]),
	)
}

func (s *Service) retrievalRequest(
	ctx context.Context, q Query, user candidate.User, personal bool,
) (request.Request, error) {
	o := s.opts
	text := strings.TrimSpace(q.Text)

	b := request.NewBuilder(o.ItemsIndex)
	if personal {
		b = b.Size(o.PersonalizedSize).IncludeVectors()
	} else {
		b = b.Size(clampSize(q.Size, o.DefaultSize)).SelectFields(o.SelectFields...)
	}

	b = s.sharedFilters(b, q.Topics)

	switch {
	case text != "":
		b = s.query(ctx, b, text)
	case personal:
		b = b.Boost()
		for _, bo := range o.Boosts {
			b = b.GroupBoost(bo.Field, user.ID, filter.Group{
				LookupIndex: user.Index,
				Name:        bo.Group,
				MinBoost:    bo.MinBoost,
				MaxBoost:    bo.MaxBoost,
				N:           bo.N,
			})
		}
	default:
		field, dir := q.SortField, request.Direction(strings.ToLower(q.SortOrder))
		if field == "" {
			field = o.SortField
		}
		if dir == "" {
			dir = o.SortOrder
		}
		b = b.SortBy(field, dir)
	}

	req, err := b.Build()
	if err != nil {
		return request.Request{}, fmt.Errorf("build retrieval: %w", err)
	}
	return req, nil
}

func (s *Service) sharedFilters(b request.Builder, topics []string) request.Builder {
	f := s.opts.Filters
	now := s.now().UTC()

	b = b.Include().
		Term("active", true).
		Numeric("liquidity_num", filter.GT, f.MinLiquidity).
		Numeric("volume_num", filter.GT, f.MinVolume).
		Numeric("volume_24hr", filter.GT, f.MinVolume24h)
	if f.EndDateWindow > 0 {
		b = b.Date("end_date",
			now.Add(-f.EndDateWindow).Format(time.RFC3339),
			now.Add(f.EndDateWindow).Format(time.RFC3339))
	}
	if tags := cleanTopics(topics); len(tags) > 0 {
		b = b.Terms("tags", tags...)
	}

	return b.Exclude().
		Term("closed", true).
		Term("archived", true).
		Term("price_0_or_1", true)
}

// query attaches the free-text part: a vector when the embedder succeeds, padded text otherwise.
func (s *Service) query(ctx context.Context, b request.Builder, text string) request.Builder {
	if s.embed != nil {
		emb, err := s.embed.Embed(ctx, text)
		if err == nil && len(emb.Embedding) > 0 {
			return b.Vector(emb.Embedding)
		}
		logger.FromContext(ctx, s.logger).Warn("Query embedding failed, sending raw text", zap.Error(err))
	}
	return b.Text(s.pad(text))
}

// pad extends short queries to the engine's semantic minimum. Length is counted in
// characters, the same unit as request.MaxQueryLength.
func (s *Service) pad(text string) string {
	if utf8.RuneCountInString(text) < s.opts.MinQueryLength {
		return text + s.opts.QueryPadding
	}
	return text
}

func clampSize(n, def int) int {
	switch {
	case n <= 0:
		return def
	case n > request.MaxSize:
		return request.MaxSize
	default:
		return n
	}
}

func cleanTopics(topics []string) []any {
	out := make([]any, 0, len(topics))
	for _, t := range topics {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
