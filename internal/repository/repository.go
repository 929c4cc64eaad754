// Package repository declares the storage interfaces the service layer depends on.
//
// Services only see these interfaces, so tests can hand them in-memory fakes
// and the sqlite package can be swapped without touching business logic.
package repository

import (
	"context"
	"time"

	"github.com/sakif/fieldfinder/internal/model"
)

// ReviewPageSize is the number of reviews returned per page.
const ReviewPageSize = 10

// FieldFilter narrows a field listing. The zero value lists every field.
type FieldFilter struct {
	Status model.FieldStatus
}

// ReviewPage selects one page of a field's reviews, newest first.
// LastID is the ID of the last review the caller already has; empty starts
// from the newest review.
type ReviewPage struct {
	LastID string
	Limit  int
}

type UserRepository interface {
	// Create fails with apperror.ErrConflict when the email is taken.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

type FieldRepository interface {
	Create(ctx context.Context, field *model.Field) error
	GetByID(ctx context.Context, id string) (*model.Field, error)
	List(ctx context.Context, filter FieldFilter) ([]model.Field, error)
	// Search matches approved fields whose name or address contains keyword,
	// ignoring case.
	Search(ctx context.Context, keyword string) ([]model.Field, error)
	SetStatus(ctx context.Context, id string, status model.FieldStatus) error
}

type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	GetByID(ctx context.Context, id string) (*model.Review, error)
	ListByField(ctx context.Context, fieldID string, page ReviewPage) ([]model.Review, error)
	Update(ctx context.Context, review *model.Review) error
	// Delete removes the review and every comment under it.
	Delete(ctx context.Context, id string) error
	// RatingCounts returns how many reviews of the field gave each star value.
	RatingCounts(ctx context.Context, fieldID string) (map[int]int, error)
	// ConditionTags returns the grass-condition tags of every review of the field.
	ConditionTags(ctx context.Context, fieldID string) ([]model.GrassCondition, error)
}

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	GetByID(ctx context.Context, id string) (*model.Comment, error)
	// ListByReview returns the review's comments flat, oldest first.
	ListByReview(ctx context.Context, reviewID string) ([]model.Comment, error)
	Update(ctx context.Context, comment *model.Comment) error
	// Delete removes one comment. Its replies are kept.
	Delete(ctx context.Context, id string) error
}

// RevocationRepository remembers token IDs revoked by logout until they expire.
type RevocationRepository interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	// PurgeExpired drops revocations whose token has expired anyway.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
