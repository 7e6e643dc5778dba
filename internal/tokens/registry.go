// Package tokens estimates prompt sizes for the interaction audit log and
// request spans.
package tokens

import (
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Counter counts the tokens of a plain text prompt for a model.
type Counter interface {
	CountText(model, text string) (int, error)
	SupportsModel(model string) bool
}

// Count is a token count and whether it is an approximation.
type Count struct {
	Tokens    int
	Estimated bool
}

// Registry picks a counter per model. Models no registered counter supports
// fall back to the Estimator.
type Registry struct {
	counters []Counter
	fallback *Estimator
}

// NewRegistry creates a registry with the tiktoken counter registered.
func NewRegistry() *Registry {
	r := &Registry{fallback: NewEstimator()}
	r.Register(NewTiktokenCounter())
	return r
}

// Register adds a token counter to the registry.
func (r *Registry) Register(counter Counter) {
	r.counters = append(r.counters, counter)
}

// Count counts text for model. It never fails: counter errors degrade to
// the estimator.
func (r *Registry) Count(model, text string) Count {
	for _, counter := range r.counters {
		if !counter.SupportsModel(model) {
			continue
		}
		if n, err := counter.CountText(model, text); err == nil {
			return Count{Tokens: n}
		}
		break
	}
	return Count{Tokens: r.fallback.CountText(text), Estimated: true}
}

// Estimator approximates token counts for models without a public tokenizer
// (local models, Claude, Gemini) using cl100k_base, and falls back to a
// character ratio when the encoding cannot be loaded.
type Estimator struct {
	// CharsPerToken is the average characters per token (default: 4)
	CharsPerToken float64

	once  sync.Once
	codec tokenizer.Codec
}

// NewEstimator creates a new token estimator.
func NewEstimator() *Estimator {
	return &Estimator{CharsPerToken: 4.0}
}

// CountText estimates the token count of text.
func (e *Estimator) CountText(text string) int {
	e.once.Do(func() {
		codec, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err == nil {
			e.codec = codec
		}
	})
	if e.codec != nil {
		if ids, _, err := e.codec.Encode(text); err == nil {
			return len(ids)
		}
	}
	return int(float64(len(text)) / e.CharsPerToken)
}

// ModelMatcher helps match model names to provider patterns.
type ModelMatcher struct {
	prefixes []string
	exact    []string
}

// NewModelMatcher creates a new model matcher.
func NewModelMatcher(prefixes, exact []string) *ModelMatcher {
	return &ModelMatcher{
		prefixes: prefixes,
		exact:    exact,
	}
}

// Matches returns true if the model matches any pattern.
func (m *ModelMatcher) Matches(model string) bool {
	for _, e := range m.exact {
		if model == e {
			return true
		}
	}

	for _, p := range m.prefixes {
		if strings.HasPrefix(model, p) {
			return true
		}
	}

	return false
}
