package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	// ProviderRender identifies the image generation backend credential.
	ProviderRender = "render"
)

// Querier is the slice of pgxpool.Pool the store needs.
type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

// Store persists provider API credentials so the worker can pick them up
// without an environment change and restart.
type Store struct {
	db Querier
}

func NewStore(db Querier) *Store {
	return &Store{db: db}
}

// RenderAPIKey loads the image generation backend key. Returns an empty
// string without error when no key has been stored.
func (s *Store) RenderAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderRender)
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	query := `
SELECT token FROM provider_credentials WHERE provider = $1;
`
	row := s.db.QueryRow(ctx, query, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// SetRenderAPIKey stores or replaces the backend key.
func (s *Store) SetRenderAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("render api key is required")
	}
	return s.upsert(ctx, ProviderRender, key, nil)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	query := `
INSERT INTO provider_credentials (provider, token, properties)
VALUES ($1, $2, $3)
ON CONFLICT (provider) DO UPDATE SET token = EXCLUDED.token, properties = EXCLUDED.properties, updated_at = NOW();
`
	_, err = s.db.Exec(ctx, query, provider, token, raw)
	return err
}
