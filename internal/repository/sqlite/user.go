package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/xid"

	"github.com/sakif/fieldfinder/internal/apperror"
	"github.com/sakif/fieldfinder/internal/model"
	"github.com/sakif/fieldfinder/internal/repository"
)

const tableUsers = "users"

// compile-time check that *UserRepository implements repository.UserRepository
var _ repository.UserRepository = (*UserRepository)(nil)

type UserRepository struct {
	db *sql.DB
}

const (
	userFieldID           = "id"
	userFieldEmail        = "email"
	userFieldName         = "name"
	userFieldRole         = "role"
	userFieldPasswordHash = "password_hash"
	userFieldCreatedAt    = "created_at"
)

func userColumns() []string {
	return []string{
		userFieldID,
		userFieldEmail,
		userFieldName,
		userFieldRole,
		userFieldPasswordHash,
		userFieldCreatedAt,
	}
}

func scanUser(row sq.RowScanner) (*model.User, error) {
	var u model.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.Role,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &u, nil
}

// Create inserts a new user, assigning its ID and CreatedAt.
// Emails are stored lower-cased so lookups are case-insensitive.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = time.Now().UTC()
	if user.Role == "" {
		user.Role = model.RoleUser
	}

	q := sq.Insert(tableUsers).
		Columns(userColumns()...).
		Values(
			user.ID,
			user.Email,
			user.Name,
			user.Role,
			user.PasswordHash,
			user.CreatedAt,
		).
		RunWith(r.db)

	if _, err := q.ExecContext(ctx); err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}

	return nil
}

// GetByID returns apperror.ErrNotFound if no user has that ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getBy(ctx, sq.Eq{userFieldID: id}, id)
}

// GetByEmail looks the email up case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.getBy(ctx, sq.Eq{userFieldEmail: email}, email)
}

func (r *UserRepository) getBy(ctx context.Context, where sq.Eq, key string) (*model.User, error) {
	row := sq.Select(userColumns()...).
		From(tableUsers).
		Where(where).
		RunWith(r.db).
		QueryRowContext(ctx)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", key, err)
	}

	return u, nil
}
