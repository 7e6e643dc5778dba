package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/tjfontaine/hvac-ai-gateway/internal/storage"
)

// Store is an in-memory implementation of InteractionStore
type Store struct {
	mu           sync.RWMutex
	interactions []*storage.Interaction
	byID         map[string]*storage.Interaction
}

var _ storage.InteractionStore = (*Store)(nil)

// New creates a new in-memory store
func New() *Store {
	return &Store{
		byID: make(map[string]*storage.Interaction),
	}
}

func (s *Store) SaveInteraction(ctx context.Context, interaction *storage.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[interaction.ID]; exists {
		return fmt.Errorf("interaction %s already exists", interaction.ID)
	}
	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = time.Now()
	}

	stored := *interaction
	stored.ProvidersTried = slices.Clone(interaction.ProvidersTried)
	s.interactions = append(s.interactions, &stored)
	s.byID[stored.ID] = &stored
	return nil
}

func (s *Store) GetInteraction(ctx context.Context, id string) (*storage.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	interaction, exists := s.byID[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return clone(interaction), nil
}

func (s *Store) ListInteractions(ctx context.Context, opts storage.ListOptions) ([]*storage.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*storage.Interaction
	// newest first
	for i := len(s.interactions) - 1; i >= 0; i-- {
		interaction := s.interactions[i]
		if opts.Operation != "" && interaction.Operation != opts.Operation {
			continue
		}
		if opts.Success != nil && interaction.Success != *opts.Success {
			continue
		}
		result = append(result, clone(interaction))
	}
	slices.SortStableFunc(result, func(a, b *storage.Interaction) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	// Simple pagination
	start := opts.Offset
	if start >= len(result) {
		return []*storage.Interaction{}, nil
	}

	limit := opts.Limit
	if limit == 0 {
		limit = storage.DefaultListLimit
	}
	if remaining := len(result) - start; limit > remaining {
		limit = remaining
	}

	return result[start : start+limit], nil
}

func clone(interaction *storage.Interaction) *storage.Interaction {
	out := *interaction
	out.ProvidersTried = slices.Clone(interaction.ProvidersTried)
	return &out
}

func (s *Store) Close() error {
	return nil
}
