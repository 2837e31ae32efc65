package request

import (
	"errors"
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/kailas-cloud/marketfeed/internal/domain"
	"github.com/kailas-cloud/marketfeed/internal/domain/search/filter"
	"github.com/kailas-cloud/marketfeed/internal/domain/search/mode"
)

// Retrieval parameter limits.
const (
	// MaxQueryLength is the maximum free-text query length in characters (Unicode code points).
	MaxQueryLength = 4096
	DefaultSize    = 100
	MaxSize        = 1999
)

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort is a field sort applied by the filter_and_sort strategy.
type Sort struct {
	Field     string
	Direction Direction
}

// Request is a validated, immutable retrieval request.
type Request struct {
	index      string
	size       int
	projection mode.Projection
	fields     []string
	filters    filter.Spec
	text       string
	vector     []float32
	sort       *Sort
}

// Index returns the index to search.
func (r *Request) Index() string { return r.index }

// Size returns the maximum number of hits.
func (r *Request) Size() int { return r.size }

// Projection returns the active projection mode.
func (r *Request) Projection() mode.Projection { return r.projection }

// Fields returns a copy of the _source allow-list (field projection only).
func (r *Request) Fields() []string { return slices.Clone(r.fields) }

// Filters returns the clause lists.
func (r *Request) Filters() filter.Spec { return r.filters }

// Text returns the free-text query ("" when absent).
func (r *Request) Text() string { return r.text }

// Vector returns a copy of the query vector (nil when absent).
func (r *Request) Vector() []float32 { return slices.Clone(r.vector) }

// Sort returns the field sort (nil when absent).
func (r *Request) Sort() *Sort { return r.sort }

// Mode derives the engine retrieval strategy from the request shape.
func (r *Request) Mode() mode.Mode {
	switch {
	case r.text != "" || len(r.vector) > 0:
		return mode.Semantic
	case len(r.filters.Boost()) > 0:
		return mode.Boost
	default:
		return mode.FilterAndSort
	}
}

type chain int

const (
	chainInclude chain = iota
	chainExclude
	chainBoost
)

// Builder assembles a Request. Every method returns a new Builder and leaves the receiver
// untouched, so a partially built request can be shared and branched.
// Clause methods attach to the chain selected by the last Include/Exclude/Boost call
// (include by default). Validation happens once, in Build.
type Builder struct {
	index          string
	size           int
	includeVectors bool
	onlyIDs        bool
	fields         []string
	text           string
	vector         []float32
	sort           *Sort
	active         chain
	include        []filter.Clause
	exclude        []filter.Clause
	boost          []filter.Clause
	errs           []error
}

// NewBuilder starts a request against index.
func NewBuilder(index string) Builder {
	return Builder{index: index}
}

// Index sets the index to search.
func (b Builder) Index(name string) Builder {
	b.index = name
	return b
}

// Size sets the maximum number of hits (1..1999, 0 selects the default).
func (b Builder) Size(n int) Builder {
	b.size = n
	return b
}

// IncludeVectors requests embedding vectors in hits.
func (b Builder) IncludeVectors() Builder {
	b.includeVectors = true
	return b
}

// SelectFields limits _source to the given fields.
func (b Builder) SelectFields(fields ...string) Builder {
	b.fields = append([]string(nil), fields...)
	return b
}

// OnlyIDs requests document ids only.
func (b Builder) OnlyIDs() Builder {
	b.onlyIDs = true
	return b
}

// Text sets the free-text query (semantic retrieval).
func (b Builder) Text(q string) Builder {
	b.text = q
	return b
}

// Vector sets a query vector (semantic retrieval).
func (b Builder) Vector(v []float32) Builder {
	b.vector = append([]float32(nil), v...)
	return b
}

// SortBy sets a field sort.
func (b Builder) SortBy(field string, dir Direction) Builder {
	b.sort = &Sort{Field: field, Direction: dir}
	return b
}

// Include activates the include chain (AND).
func (b Builder) Include() Builder {
	b.active = chainInclude
	return b
}

// Exclude activates the exclude chain (NOT).
func (b Builder) Exclude() Builder {
	b.active = chainExclude
	return b
}

// Boost activates the boost chain (SHOULD).
func (b Builder) Boost() Builder {
	b.active = chainBoost
	return b
}

// Term adds an exact term clause to the active chain.
func (b Builder) Term(field string, value any) Builder {
	return b.add(filter.NewTerm(field, value))
}

// Terms adds a match-any clause to the active chain.
func (b Builder) Terms(field string, values ...any) Builder {
	return b.add(filter.NewTerms(field, values))
}

// Numeric adds a numeric range clause to the active chain.
func (b Builder) Numeric(field string, op filter.Operator, value float64) Builder {
	return b.add(filter.NewNumeric(field, op, value))
}

// Date adds a date range clause to the active chain. Empty bounds are open.
func (b Builder) Date(field, from, to string) Builder {
	return b.add(filter.NewDate(field, from, to))
}

// Match adds a full-text match clause to the active chain.
func (b Builder) Match(field, text string) Builder {
	return b.add(filter.NewMatch(field, text))
}

// GroupBoost adds a personalization boost to the active chain.
func (b Builder) GroupBoost(field string, value any, g filter.Group) Builder {
	return b.add(filter.NewGroupBoost(field, value, g))
}

func (b Builder) add(c filter.Clause, err error) Builder {
	if err != nil {
		b.errs = appendCopy(b.errs, err)
		return b
	}
	switch b.active {
	case chainExclude:
		b.exclude = appendCopy(b.exclude, c)
	case chainBoost:
		b.boost = appendCopy(b.boost, c)
	default:
		b.include = appendCopy(b.include, c)
	}
	return b
}

// Build validates the accumulated state and returns an immutable Request.
// All violations are reported together, wrapped in domain.ErrInvalidRequest.
func (b Builder) Build() (Request, error) {
	errs := append([]error(nil), b.errs...)

	if b.index == "" {
		errs = append(errs, errors.New("index is required"))
	}

	size := b.size
	if size == 0 {
		size = DefaultSize
	}
	if size < 1 || size > MaxSize {
		errs = append(errs, fmt.Errorf("size must be between 1 and %d, got %d", MaxSize, b.size))
	}

	projection, err := b.projection()
	if err != nil {
		errs = append(errs, err)
	}

	if utf8.RuneCountInString(b.text) > MaxQueryLength {
		errs = append(errs, fmt.Errorf("query too long (max %d chars)", MaxQueryLength))
	}

	semantic := b.text != "" || len(b.vector) > 0
	if b.text != "" && len(b.vector) > 0 {
		errs = append(errs, errors.New("text query and query vector are mutually exclusive"))
	}
	if semantic && len(b.boost) > 0 {
		errs = append(errs, errors.New("semantic query and boost clauses are mutually exclusive"))
	}
	if semantic && b.sort != nil {
		errs = append(errs, errors.New("semantic query is ordered by relevance and cannot be sorted"))
	}

	if b.sort != nil {
		if b.sort.Field == "" {
			errs = append(errs, errors.New("sort field is required"))
		}
		if b.sort.Direction != Asc && b.sort.Direction != Desc {
			errs = append(errs, fmt.Errorf("invalid sort direction %q", b.sort.Direction))
		}
	}

	if len(errs) > 0 {
		return Request{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, errors.Join(errs...))
	}

	var sort *Sort
	if b.sort != nil {
		s := *b.sort
		sort = &s
	}

	return Request{
		index:      b.index,
		size:       size,
		projection: projection,
		fields:     b.fields,
		filters:    filter.NewSpec(b.include, b.exclude, b.boost),
		text:       b.text,
		vector:     b.vector,
		sort:       sort,
	}, nil
}

func (b Builder) projection() (mode.Projection, error) {
	var active []mode.Projection
	if b.includeVectors {
		active = append(active, mode.Vectors)
	}
	if b.fields != nil {
		active = append(active, mode.Fields)
	}
	if b.onlyIDs {
		active = append(active, mode.IDs)
	}
	switch len(active) {
	case 0:
		return mode.Full, nil
	case 1:
		return active[0], nil
	default:
		return mode.Full, fmt.Errorf("projection modes %v are mutually exclusive", active)
	}
}

// appendCopy appends without sharing the backing array with the source builder.
func appendCopy[T any](s []T, v T) []T {
	out := make([]T, len(s), len(s)+1)
	copy(out, s)
	return append(out, v)
}
