package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/xid"

	"github.com/sakif/fieldfinder/internal/apperror"
	"github.com/sakif/fieldfinder/internal/model"
	"github.com/sakif/fieldfinder/internal/repository"
)

const tableReviews = "reviews"

var _ repository.ReviewRepository = (*ReviewRepository)(nil)

type ReviewRepository struct {
	db *sql.DB
}

const (
	reviewFieldID              = "id"
	reviewFieldFieldID         = "field_id"
	reviewFieldUserID          = "user_id"
	reviewFieldRating          = "rating"
	reviewFieldContent         = "content"
	reviewFieldGrassType       = "grass_type"
	reviewFieldGrassConditions = "grass_conditions"
	reviewFieldRecommendedShoe = "recommended_shoe"
	reviewFieldShoeLink        = "shoe_link"
	reviewFieldCreatedAt       = "created_at"
	reviewFieldUpdatedAt       = "updated_at"
)

func reviewColumns() []string {
	return []string{
		reviewFieldID,
		reviewFieldFieldID,
		reviewFieldUserID,
		reviewFieldRating,
		reviewFieldContent,
		reviewFieldGrassType,
		reviewFieldGrassConditions,
		reviewFieldRecommendedShoe,
		reviewFieldShoeLink,
		reviewFieldCreatedAt,
		reviewFieldUpdatedAt,
	}
}

// reviewSelect selects every review column plus the author's name, which is
// NULL when the author row is gone.
func reviewSelect() sq.SelectBuilder {
	cols := make([]string, 0, len(reviewColumns())+1)
	for _, c := range reviewColumns() {
		cols = append(cols, "r."+c)
	}
	cols = append(cols, "u."+userFieldName)

	return sq.Select(cols...).
		From(tableReviews + " r").
		LeftJoin(tableUsers + " u ON u." + userFieldID + " = r." + reviewFieldUserID)
}

func scanReview(row sq.RowScanner) (*model.Review, error) {
	var (
		rv         model.Review
		conditions string
		author     sql.NullString
	)

	err := row.Scan(
		&rv.ID,
		&rv.FieldID,
		&rv.UserID,
		&rv.Rating,
		&rv.Content,
		&rv.GrassType,
		&conditions,
		&rv.RecommendedShoe,
		&rv.ShoeLink,
		&rv.CreatedAt,
		&rv.UpdatedAt,
		&author,
	)
	if err != nil {
		return nil, err
	}

	if rv.GrassConditions, err = decodeConditions(conditions); err != nil {
		return nil, err
	}
	rv.Author = author.String

	return &rv, nil
}

func encodeConditions(tags []model.GrassCondition) (string, error) {
	if tags == nil {
		tags = []model.GrassCondition{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encoding grass conditions: %w", err)
	}
	return string(b), nil
}

func decodeConditions(s string) ([]model.GrassCondition, error) {
	tags := []model.GrassCondition{}
	if s == "" {
		return tags, nil
	}
	if err := json.Unmarshal([]byte(s), &tags); err != nil {
		return nil, fmt.Errorf("decoding grass conditions: %w", err)
	}
	return tags, nil
}

// Create inserts a review, assigning its ID and timestamps. The author name
// is not stored; it is joined in on reads.
func (r *ReviewRepository) Create(ctx context.Context, review *model.Review) error {
	conditions, err := encodeConditions(review.GrassConditions)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}

	now := time.Now().UTC()
	review.ID = xid.New().String()
	review.CreatedAt = now
	review.UpdatedAt = now

	q := sq.Insert(tableReviews).
		Columns(reviewColumns()...).
		Values(
			review.ID,
			review.FieldID,
			review.UserID,
			review.Rating,
			review.Content,
			review.GrassType,
			conditions,
			review.RecommendedShoe,
			review.ShoeLink,
			review.CreatedAt,
			review.UpdatedAt,
		).
		RunWith(r.db)

	if _, err := q.ExecContext(ctx); err != nil {
		return fmt.Errorf("sqlite: inserting review for field %s: %w", review.FieldID, err)
	}

	return nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*model.Review, error) {
	row := reviewSelect().
		Where(sq.Eq{"r." + reviewFieldID: id}).
		RunWith(r.db).
		QueryRowContext(ctx)

	rv, err := scanReview(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("review", id)
		}
		return nil, fmt.Errorf("sqlite: getting review %s: %w", id, err)
	}

	return rv, nil
}

// ListByField returns one page of the field's reviews, newest first.
//
// KEYSET PAGINATION:
// xid IDs start with a timestamp, so ordering by ID is ordering by creation.
// The next page is "everything older than the last ID I saw":
//
//	WHERE field_id = ? AND id < :lastId ORDER BY id DESC LIMIT 10
//
// Unlike OFFSET, this stays correct when new reviews arrive between pages.
func (r *ReviewRepository) ListByField(ctx context.Context, fieldID string, page repository.ReviewPage) ([]model.Review, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = repository.ReviewPageSize
	}

	q := reviewSelect().
		Where(sq.Eq{"r." + reviewFieldFieldID: fieldID}).
		OrderBy("r." + reviewFieldID + " DESC").
		Limit(uint64(limit))

	if page.LastID != "" {
		q = q.Where(sq.Lt{"r." + reviewFieldID: page.LastID})
	}

	rows, err := q.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing reviews of field %s: %w", fieldID, err)
	}
	defer closeRows(ctx, rows)

	reviews := make([]model.Review, 0, limit)

	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning review: %w", err)
		}
		reviews = append(reviews, *rv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating reviews: %w", err)
	}

	return reviews, nil
}

// Update overwrites the editable columns and bumps UpdatedAt.
func (r *ReviewRepository) Update(ctx context.Context, review *model.Review) error {
	conditions, err := encodeConditions(review.GrassConditions)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}

	review.UpdatedAt = time.Now().UTC()

	res, err := sq.Update(tableReviews).
		SetMap(map[string]any{
			reviewFieldRating:          review.Rating,
			reviewFieldContent:         review.Content,
			reviewFieldGrassType:       review.GrassType,
			reviewFieldGrassConditions: conditions,
			reviewFieldRecommendedShoe: review.RecommendedShoe,
			reviewFieldShoeLink:        review.ShoeLink,
			reviewFieldUpdatedAt:       review.UpdatedAt,
		}).
		Where(sq.Eq{reviewFieldID: review.ID}).
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("sqlite: updating review %s: %w", review.ID, err)
	}

	return requireAffected(res, "review", review.ID)
}

// Delete removes the review. Its comments go with it (ON DELETE CASCADE).
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	res, err := sq.Delete(tableReviews).
		Where(sq.Eq{reviewFieldID: id}).
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("sqlite: deleting review %s: %w", id, err)
	}

	return requireAffected(res, "review", id)
}

// RatingCounts groups the field's reviews by star value.
func (r *ReviewRepository) RatingCounts(ctx context.Context, fieldID string) (map[int]int, error) {
	rows, err := sq.Select(reviewFieldRating, "COUNT(*)").
		From(tableReviews).
		Where(sq.Eq{reviewFieldFieldID: fieldID}).
		GroupBy(reviewFieldRating).
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting ratings of field %s: %w", fieldID, err)
	}
	defer closeRows(ctx, rows)

	counts := make(map[int]int)

	for rows.Next() {
		var stars, n int
		if err := rows.Scan(&stars, &n); err != nil {
			return nil, fmt.Errorf("sqlite: scanning rating count: %w", err)
		}
		counts[stars] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating rating counts: %w", err)
	}

	return counts, nil
}

// ConditionTags concatenates the grass-condition tags of all the field's reviews.
func (r *ReviewRepository) ConditionTags(ctx context.Context, fieldID string) ([]model.GrassCondition, error) {
	rows, err := sq.Select(reviewFieldGrassConditions).
		From(tableReviews).
		Where(sq.Eq{reviewFieldFieldID: fieldID}).
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading grass conditions of field %s: %w", fieldID, err)
	}
	defer closeRows(ctx, rows)

	tags := make([]model.GrassCondition, 0)

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("sqlite: scanning grass conditions: %w", err)
		}
		decoded, err := decodeConditions(raw)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		tags = append(tags, decoded...)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating grass conditions: %w", err)
	}

	return tags, nil
}

// requireAffected turns "no row matched" into apperror.ErrNotFound.
func requireAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
