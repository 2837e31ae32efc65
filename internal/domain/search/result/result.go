package result

// Result is a single retrieval hit as returned by the engine.
type Result struct {
	id     string
	index  string
	score  float64
	source map[string]any
	vector []float32
}

// New creates a search result.
func New(id, index string, score float64, source map[string]any, vector []float32) Result {
	return Result{id: id, index: index, score: score, source: source, vector: vector}
}

// ID returns the item identifier.
func (r *Result) ID() string { return r.id }

// Index returns the index the hit came from.
func (r *Result) Index() string { return r.index }

// Score returns the relevance score.
func (r *Result) Score() float64 { return r.score }

// Source returns the raw item attributes.
func (r *Result) Source() map[string]any { return r.source }

// Vector returns the item embedding (nil unless vectors were requested).
func (r *Result) Vector() []float32 { return r.vector }
