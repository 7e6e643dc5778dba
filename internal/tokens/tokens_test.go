package tokens

import (
	"errors"
	"testing"
)

func TestRegistry_Count(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name          string
		model         string
		text          string
		wantEstimated bool
		minTokens     int
		maxTokens     int
	}{
		{
			name:      "openai model uses tiktoken",
			model:     "gpt-4o-mini",
			text:      "Size a heat pump for a 120 m2 house.",
			minTokens: 8,
			maxTokens: 16,
		},
		{
			name:          "local model is estimated",
			model:         "llama3.1:8b",
			text:          "Size a heat pump for a 120 m2 house.",
			wantEstimated: true,
			minTokens:     8,
			maxTokens:     16,
		},
		{
			name:          "claude is estimated",
			model:         "claude-3-5-haiku-latest",
			text:          "Hello",
			wantEstimated: true,
			minTokens:     1,
			maxTokens:     2,
		},
		{
			name:      "empty text",
			model:     "gpt-4o",
			text:      "",
			minTokens: 0,
			maxTokens: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Count(tt.model, tt.text)
			if got.Estimated != tt.wantEstimated {
				t.Errorf("Estimated = %v, want %v", got.Estimated, tt.wantEstimated)
			}
			if got.Tokens < tt.minTokens || got.Tokens > tt.maxTokens {
				t.Errorf("Tokens = %d, want between %d and %d", got.Tokens, tt.minTokens, tt.maxTokens)
			}
		})
	}
}

type failingCounter struct{}

func (failingCounter) CountText(string, string) (int, error) { return 0, errors.New("boom") }
func (failingCounter) SupportsModel(string) bool             { return true }

func TestRegistry_CounterErrorFallsBack(t *testing.T) {
	r := &Registry{fallback: NewEstimator()}
	r.Register(failingCounter{})

	got := r.Count("anything", "hello world")
	if !got.Estimated {
		t.Error("expected estimated count after counter error")
	}
	if got.Tokens == 0 {
		t.Error("expected non-zero estimate")
	}
}

func TestTiktokenCounter_SupportsModel(t *testing.T) {
	c := NewTiktokenCounter()

	tests := []struct {
		model string
		want  bool
	}{
		{"gpt-4o-mini", true},
		{"GPT-4o", true},
		{"o3-mini", true},
		{"llama3.1:8b", false},
		{"gemini-1.5-flash", false},
		{"claude-3-5-haiku-latest", false},
	}

	for _, tt := range tests {
		if got := c.SupportsModel(tt.model); got != tt.want {
			t.Errorf("SupportsModel(%q) = %v, want %v", tt.model, got, tt.want)
		}
	}
}

func TestModelMatcher(t *testing.T) {
	m := NewModelMatcher([]string{"gpt-"}, []string{"davinci"})

	if !m.Matches("gpt-4") {
		t.Error("expected prefix match")
	}
	if !m.Matches("davinci") {
		t.Error("expected exact match")
	}
	if m.Matches("davinci-2") {
		t.Error("unexpected match")
	}
}
