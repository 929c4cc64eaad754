package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/xid"

	"github.com/sakif/fieldfinder/internal/apperror"
	"github.com/sakif/fieldfinder/internal/model"
	"github.com/sakif/fieldfinder/internal/repository"
)

const tableComments = "comments"

var _ repository.CommentRepository = (*CommentRepository)(nil)

type CommentRepository struct {
	db *sql.DB
}

const (
	commentFieldID        = "id"
	commentFieldReviewID  = "review_id"
	commentFieldUserID    = "user_id"
	commentFieldParentID  = "parent_id"
	commentFieldContent   = "content"
	commentFieldCreatedAt = "created_at"
	commentFieldUpdatedAt = "updated_at"
)

func commentColumns() []string {
	return []string{
		commentFieldID,
		commentFieldReviewID,
		commentFieldUserID,
		commentFieldParentID,
		commentFieldContent,
		commentFieldCreatedAt,
		commentFieldUpdatedAt,
	}
}

func commentSelect() sq.SelectBuilder {
	cols := make([]string, 0, len(commentColumns())+1)
	for _, c := range commentColumns() {
		cols = append(cols, "c."+c)
	}
	cols = append(cols, "u."+userFieldName)

	return sq.Select(cols...).
		From(tableComments + " c").
		LeftJoin(tableUsers + " u ON u." + userFieldID + " = c." + commentFieldUserID)
}

func scanComment(row sq.RowScanner) (*model.Comment, error) {
	var (
		c        model.Comment
		parentID sql.NullString
		author   sql.NullString
	)

	err := row.Scan(
		&c.ID,
		&c.ReviewID,
		&c.UserID,
		&parentID,
		&c.Content,
		&c.CreatedAt,
		&c.UpdatedAt,
		&author,
	)
	if err != nil {
		return nil, err
	}

	if parentID.Valid && parentID.String != "" {
		p := parentID.String
		c.ParentID = &p
	}
	c.Author = author.String

	return &c, nil
}

func (r *CommentRepository) Create(ctx context.Context, comment *model.Comment) error {
	now := time.Now().UTC()
	comment.ID = xid.New().String()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	var parentID sql.NullString
	if comment.HasParent() {
		parentID = nullString(*comment.ParentID)
	}

	q := sq.Insert(tableComments).
		Columns(commentColumns()...).
		Values(
			comment.ID,
			comment.ReviewID,
			comment.UserID,
			parentID,
			comment.Content,
			comment.CreatedAt,
			comment.UpdatedAt,
		).
		RunWith(r.db)

	if _, err := q.ExecContext(ctx); err != nil {
		return fmt.Errorf("sqlite: inserting comment on review %s: %w", comment.ReviewID, err)
	}

	return nil
}

func (r *CommentRepository) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	row := commentSelect().
		Where(sq.Eq{"c." + commentFieldID: id}).
		RunWith(r.db).
		QueryRowContext(ctx)

	c, err := scanComment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("comment", id)
		}
		return nil, fmt.Errorf("sqlite: getting comment %s: %w", id, err)
	}

	return c, nil
}

// ListByReview returns the flat comment list in creation order. The caller
// builds the reply tree.
func (r *CommentRepository) ListByReview(ctx context.Context, reviewID string) ([]model.Comment, error) {
	rows, err := commentSelect().
		Where(sq.Eq{"c." + commentFieldReviewID: reviewID}).
		OrderBy("c." + commentFieldID + " ASC").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments of review %s: %w", reviewID, err)
	}
	defer closeRows(ctx, rows)

	comments := make([]model.Comment, 0)

	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment: %w", err)
		}
		comments = append(comments, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}

	return comments, nil
}

// Update changes the content only. Parent and review never move.
func (r *CommentRepository) Update(ctx context.Context, comment *model.Comment) error {
	comment.UpdatedAt = time.Now().UTC()

	res, err := sq.Update(tableComments).
		Set(commentFieldContent, comment.Content).
		Set(commentFieldUpdatedAt, comment.UpdatedAt).
		Where(sq.Eq{commentFieldID: comment.ID}).
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("sqlite: updating comment %s: %w", comment.ID, err)
	}

	return requireAffected(res, "comment", comment.ID)
}

// Delete removes a single comment. Replies keep their parent_id and become
// orphans.
func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	res, err := sq.Delete(tableComments).
		Where(sq.Eq{commentFieldID: id}).
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %s: %w", id, err)
	}

	return requireAffected(res, "comment", id)
}
