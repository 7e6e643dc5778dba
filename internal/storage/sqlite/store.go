package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/hvac-ai-gateway/internal/storage"
)

// Store is a SQLite implementation of InteractionStore
type Store struct {
	db *sqlx.DB
}

var _ storage.InteractionStore = (*Store)(nil)

// interactionRow is the column layout of the interactions table.
type interactionRow struct {
	ID              string    `db:"id"`
	Operation       string    `db:"operation"`
	ProviderUsed    string    `db:"provider_used"`
	ProvidersTried  string    `db:"providers_tried"`
	Success         bool      `db:"success"`
	Error           string    `db:"error"`
	PromptTokens    int       `db:"prompt_tokens"`
	TokensEstimated bool      `db:"tokens_estimated"`
	DurationNS      int64     `db:"duration_ns"`
	CreatedAt       time.Time `db:"created_at"`
}

// New creates a new SQLite store
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS interactions (
			id TEXT PRIMARY KEY,
			operation TEXT NOT NULL,
			provider_used TEXT NOT NULL DEFAULT '',
			providers_tried TEXT NOT NULL DEFAULT '[]',
			success INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			prompt_tokens INTEGER NOT NULL DEFAULT 0,
			tokens_estimated INTEGER NOT NULL DEFAULT 0,
			duration_ns INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_operation ON interactions(operation)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_created ON interactions(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

func (s *Store) SaveInteraction(ctx context.Context, interaction *storage.Interaction) error {
	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = time.Now()
	}

	tried := interaction.ProvidersTried
	if tried == nil {
		tried = []string{}
	}
	triedJSON, err := json.Marshal(tried)
	if err != nil {
		return fmt.Errorf("failed to marshal providers_tried: %w", err)
	}

	row := interactionRow{
		ID:              interaction.ID,
		Operation:       interaction.Operation,
		ProviderUsed:    interaction.ProviderUsed,
		ProvidersTried:  string(triedJSON),
		Success:         interaction.Success,
		Error:           interaction.Error,
		PromptTokens:    interaction.PromptTokens,
		TokensEstimated: interaction.TokensEstimated,
		DurationNS:      int64(interaction.Duration),
		CreatedAt:       interaction.CreatedAt.UTC(),
	}

	query := `INSERT INTO interactions (
		id, operation, provider_used, providers_tried, success, error,
		prompt_tokens, tokens_estimated, duration_ns, created_at
	) VALUES (
		:id, :operation, :provider_used, :providers_tried, :success, :error,
		:prompt_tokens, :tokens_estimated, :duration_ns, :created_at
	)`

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to insert interaction: %w", err)
	}
	return nil
}

func (s *Store) GetInteraction(ctx context.Context, id string) (*storage.Interaction, error) {
	var row interactionRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM interactions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get interaction: %w", err)
	}
	return row.toInteraction()
}

// ListInteractions lists interactions with pagination and optional filtering
func (s *Store) ListInteractions(ctx context.Context, opts storage.ListOptions) ([]*storage.Interaction, error) {
	query := `SELECT * FROM interactions WHERE 1=1`
	var args []any

	if opts.Operation != "" {
		query += " AND operation = ?"
		args = append(args, opts.Operation)
	}
	if opts.Success != nil {
		query += " AND success = ?"
		args = append(args, *opts.Success)
	}

	// rowid breaks ties between records created within the same instant
	query += " ORDER BY created_at DESC, rowid DESC"

	limit := opts.Limit
	if limit == 0 {
		limit = storage.DefaultListLimit
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, opts.Offset)

	var rows []interactionRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}

	interactions := make([]*storage.Interaction, 0, len(rows))
	for _, row := range rows {
		interaction, err := row.toInteraction()
		if err != nil {
			return nil, err
		}
		interactions = append(interactions, interaction)
	}
	return interactions, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (r interactionRow) toInteraction() (*storage.Interaction, error) {
	interaction := &storage.Interaction{
		ID:              r.ID,
		Operation:       r.Operation,
		ProviderUsed:    r.ProviderUsed,
		Success:         r.Success,
		Error:           r.Error,
		PromptTokens:    r.PromptTokens,
		TokensEstimated: r.TokensEstimated,
		Duration:        time.Duration(r.DurationNS),
		CreatedAt:       r.CreatedAt,
	}
	if err := json.Unmarshal([]byte(r.ProvidersTried), &interaction.ProvidersTried); err != nil {
		return nil, fmt.Errorf("failed to unmarshal providers_tried: %w", err)
	}
	if len(interaction.ProvidersTried) == 0 {
		interaction.ProvidersTried = nil
	}
	return interaction, nil
}
