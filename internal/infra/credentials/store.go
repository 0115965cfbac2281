package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"weddingplanner/internal/infra"
	"weddingplanner/internal/sqlinline"
)

const (
	ProviderGemini = "gemini"
)

// Store persists the API key a user selected for paid capabilities. It is the
// only state kept across restarts.
type Store struct {
	sql infra.SQLExecutor
	now func() time.Time
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql, now: time.Now}
}

// EnsureSchema creates the token table when it is missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.sql.Exec(ctx, sqlinline.QCreateIntegrationTokens)
	return err
}

func (s *Store) GeminiAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderGemini)
}

// Token returns the stored token for provider, or "" when none was selected.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// SetGeminiAPIKey records a selection. source describes where it came from
// (for example "api" or "cli").
func (s *Store) SetGeminiAPIKey(ctx context.Context, key, source string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("gemini api key is required")
	}
	props := map[string]any{"selected_at": s.now().UTC().Format(time.RFC3339)}
	if source = strings.TrimSpace(source); source != "" {
		props["source"] = source
	}
	return s.upsert(ctx, ProviderGemini, key, props)
}

// ClearGeminiAPIKey forgets the selection so the next privileged call prompts again.
func (s *Store) ClearGeminiAPIKey(ctx context.Context) error {
	_, err := s.sql.Exec(ctx, sqlinline.QDeleteIntegrationToken, ProviderGemini)
	return err
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
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}
