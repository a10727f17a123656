package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/flowsync/internal/core/domain"
	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
)

// credentialsStore implements driven.CredentialsStore over user_integrations.
type credentialsStore struct {
	store *Store
}

var _ driven.CredentialsStore = (*credentialsStore)(nil)

type credentialRow struct {
	ID           int64          `db:"id"`
	UserID       string         `db:"user_id"`
	Provider     string         `db:"provider"`
	AccessToken  string         `db:"access_token"`
	RefreshToken sql.NullString `db:"refresh_token"`
	ExpiresAt    sql.NullString `db:"expires_at"`
	Metadata     string         `db:"metadata"`
	CreatedAt    string         `db:"created_at"`
	UpdatedAt    string         `db:"updated_at"`
}

const credentialColumns = `id, user_id, provider, access_token, refresh_token, expires_at, metadata, created_at, updated_at`

func (r credentialRow) toDomain() (domain.Credential, error) {
	metadata, err := domain.ParseMetadata(r.Metadata)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("credential %s/%s: %w", r.UserID, r.Provider, err)
	}
	return domain.Credential{
		ID:           r.ID,
		UserID:       r.UserID,
		Provider:     domain.Provider(r.Provider),
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken.String,
		ExpiresAt:    r.ExpiresAt.String,
		Metadata:     metadata,
		CreatedAt:    parseTime(r.CreatedAt),
		UpdatedAt:    parseTime(r.UpdatedAt),
	}, nil
}

// Save stores or updates the (user, provider) integration.
func (s *credentialsStore) Save(ctx context.Context, cred domain.Credential) error {
	if cred.UserID == "" || cred.Provider == "" {
		return fmt.Errorf("credential needs user and provider: %w", domain.ErrInvalidInput)
	}

	metadata := cred.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	now := formatTime(s.store.now())
	_, err = s.store.db.ExecContext(ctx, s.store.rebind(`
		INSERT INTO user_integrations
			(user_id, provider, access_token, refresh_token, expires_at, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, provider) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`), cred.UserID, string(cred.Provider), cred.AccessToken,
		nullString(cred.RefreshToken), nullString(cred.ExpiresAt),
		string(metadataJSON), now, now)
	if err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	return nil
}

// Get retrieves the credential a user holds for a provider.
func (s *credentialsStore) Get(ctx context.Context, userID string, provider domain.Provider) (*domain.Credential, error) {
	var row credentialRow
	err := s.store.db.GetContext(ctx, &row, s.store.rebind(
		`SELECT `+credentialColumns+` FROM user_integrations WHERE user_id = ? AND provider = ?`),
		userID, string(provider))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s integration for user %s: %w", provider, userID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying credential: %w", err)
	}

	cred, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// ListByUser returns every integration of a user ordered by provider.
func (s *credentialsStore) ListByUser(ctx context.Context, userID string) ([]domain.Credential, error) {
	return s.list(ctx, `SELECT `+credentialColumns+` FROM user_integrations WHERE user_id = ? ORDER BY provider`, userID)
}

// List returns all integrations ordered by user and provider.
func (s *credentialsStore) List(ctx context.Context) ([]domain.Credential, error) {
	return s.list(ctx, `SELECT `+credentialColumns+` FROM user_integrations ORDER BY user_id, provider`)
}

func (s *credentialsStore) list(ctx context.Context, query string, args ...any) ([]domain.Credential, error) {
	var rows []credentialRow
	if err := s.store.db.SelectContext(ctx, &rows, s.store.rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying credentials: %w", err)
	}

	creds := make([]domain.Credential, 0, len(rows))
	for _, row := range rows {
		cred, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	return creds, nil
}

// UpdateToken replaces the access token and expiry after a refresh.
// An empty refreshToken keeps the stored one.
func (s *credentialsStore) UpdateToken(
	ctx context.Context, userID string, provider domain.Provider, accessToken, refreshToken, expiresAt string,
) error {
	res, err := s.store.db.ExecContext(ctx, s.store.rebind(`
		UPDATE user_integrations SET
			access_token = ?,
			refresh_token = COALESCE(?, refresh_token),
			expires_at = ?,
			updated_at = ?
		WHERE user_id = ? AND provider = ?
	`), accessToken, nullString(refreshToken), nullString(expiresAt),
		formatTime(s.store.now()), userID, string(provider))
	if err != nil {
		return fmt.Errorf("updating token: %w", err)
	}
	return expectRow(res, fmt.Sprintf("%s integration for user %s", provider, userID))
}

// Delete removes a user's integration with a provider.
func (s *credentialsStore) Delete(ctx context.Context, userID string, provider domain.Provider) error {
	res, err := s.store.db.ExecContext(ctx, s.store.rebind(
		`DELETE FROM user_integrations WHERE user_id = ? AND provider = ?`), userID, string(provider))
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	return expectRow(res, fmt.Sprintf("%s integration for user %s", provider, userID))
}

// expectRow returns ErrNotFound when a statement touched no rows.
func expectRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return nil
}
