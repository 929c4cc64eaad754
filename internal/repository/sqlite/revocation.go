package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/sakif/fieldfinder/internal/auth"
	"github.com/sakif/fieldfinder/internal/repository"
)

const tableRevokedTokens = "revoked_tokens"

var (
	_ repository.RevocationRepository = (*RevocationRepository)(nil)
	_ auth.RevocationChecker          = (*RevocationRepository)(nil)
)

// RevocationRepository is the logout deny-list. Expiry is stored as Unix
// seconds so the purge can compare integers.
type RevocationRepository struct {
	db *sql.DB
}

// Revoke records the token ID. Revoking the same token twice is not an error.
func (r *RevocationRepository) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	q := sq.Insert(tableRevokedTokens).
		Options("OR IGNORE").
		Columns("token_id", "expires_at").
		Values(tokenID, expiresAt.Unix()).
		RunWith(r.db)

	if _, err := q.ExecContext(ctx); err != nil {
		return fmt.Errorf("sqlite: revoking token %s: %w", tokenID, err)
	}

	return nil
}

func (r *RevocationRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var one int

	err := sq.Select("1").
		From(tableRevokedTokens).
		Where(sq.Eq{"token_id": tokenID}).
		RunWith(r.db).
		QueryRowContext(ctx).
		Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("sqlite: checking token %s: %w", tokenID, err)
	}

	return true, nil
}

func (r *RevocationRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := sq.Delete(tableRevokedTokens).
		Where(sq.Lt{"expires_at": now.Unix()}).
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("sqlite: purging revoked tokens: %w", err)
	}

	return res.RowsAffected()
}
