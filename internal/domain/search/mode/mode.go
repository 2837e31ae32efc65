package mode

// Mode is the engine retrieval strategy. It selects the search endpoint.
type Mode string

// Retrieval modes.
const (
	// FilterAndSort applies include/exclude filters and an optional field sort.
	FilterAndSort Mode = "filter_and_sort"
	// Boost applies filters plus soft boost clauses (personalization).
	Boost Mode = "boost"
	// Semantic ranks by relevance to a text query or query vector.
	Semantic Mode = "semantic"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == FilterAndSort || m == Boost || m == Semantic
}

// Projection controls which parts of a hit the engine returns. At most one is active per request.
type Projection string

// Projection modes.
const (
	// Full returns the whole _source without vectors.
	Full Projection = ""
	// Vectors includes embedding vectors (needed for semantic diversity ranking).
	Vectors Projection = "vectors"
	// Fields returns only an allow-list of _source fields.
	Fields Projection = "fields"
	// IDs returns document ids only.
	IDs Projection = "ids"
)
