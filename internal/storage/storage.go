// Package storage defines the interaction audit log.
package storage

import (
	"context"
	"errors"
	"time"
)

// Operation names recorded in the audit log.
const (
	OperationGenerate    = "ai_generate"
	OperationAnalyzeHVAC = "ai_hvac_analyze"
)

// ErrNotFound is returned when an interaction does not exist.
var ErrNotFound = errors.New("interaction not found")

// Interaction is one audited gateway operation. Prompts and responses are
// not stored, only their outcome and size.
type Interaction struct {
	ID              string        `json:"id"`
	Operation       string        `json:"operation"`
	ProviderUsed    string        `json:"provider_used,omitempty"`
	ProvidersTried  []string      `json:"providers_tried,omitempty"`
	Success         bool          `json:"success"`
	Error           string        `json:"error,omitempty"`
	PromptTokens    int           `json:"prompt_tokens"`
	TokensEstimated bool          `json:"tokens_estimated"`
	Duration        time.Duration `json:"duration"`
	CreatedAt       time.Time     `json:"created_at"`
}

// ListOptions filters and pages ListInteractions. A zero Limit means 100.
type ListOptions struct {
	Operation string
	Success   *bool
	Limit     int
	Offset    int
}

// DefaultListLimit is applied when ListOptions.Limit is zero.
const DefaultListLimit = 100

// InteractionStore persists audit records.
type InteractionStore interface {
	SaveInteraction(ctx context.Context, interaction *Interaction) error
	GetInteraction(ctx context.Context, id string) (*Interaction, error)
	// ListInteractions returns the newest interactions first.
	ListInteractions(ctx context.Context, opts ListOptions) ([]*Interaction, error)
	Close() error
}
