package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/fieldfinder/internal/apperror"
	"github.com/sakif/fieldfinder/internal/auth"
	"github.com/sakif/fieldfinder/internal/model"
	"github.com/sakif/fieldfinder/internal/repository"
)

const MaxCommentLength = model.MaxCommentLength

// CommentService manages the comment threads under reviews.
//
// Comments are stored and served flat. Each carries an optional ParentID and
// the client assembles the reply tree (see package thread).
type CommentService struct {
	reviews  repository.ReviewRepository
	comments repository.CommentRepository
	logger   *slog.Logger
}

func NewCommentService(reviews repository.ReviewRepository, comments repository.CommentRepository, logger *slog.Logger) *CommentService {
	return &CommentService{reviews: reviews, comments: comments, logger: logger}
}

// List returns the review's comments flat, oldest first.
func (s *CommentService) List(ctx context.Context, reviewID string) ([]model.Comment, error) {
	if _, err := s.reviews.GetByID(ctx, reviewID); err != nil {
		return nil, err
	}

	comments, err := s.comments.ListByReview(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	return comments, nil
}

// Create posts a comment, or a reply when parentID is set. The parent must
// belong to the same review.
func (s *CommentService) Create(ctx context.Context, caller *auth.Identity, reviewID, content string, parentID *string) (*model.Comment, error) {
	if caller == nil {
		return nil, apperror.Unauthorized("login required to comment")
	}

	content, err := validateCommentContent(content)
	if err != nil {
		return nil, err
	}

	if _, err := s.reviews.GetByID(ctx, reviewID); err != nil {
		return nil, err
	}

	c := &model.Comment{
		ReviewID: reviewID,
		UserID:   caller.UserID,
		Content:  content,
	}

	if parentID != nil && strings.TrimSpace(*parentID) != "" {
		pid := strings.TrimSpace(*parentID)
		parent, err := s.comments.GetByID(ctx, pid)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return nil, apperror.ValidationFailed("parentId", "parent comment does not exist")
			}
			return nil, err
		}
		if parent.ReviewID != reviewID {
			return nil, apperror.ValidationFailed("parentId", "parent comment belongs to another review")
		}
		c.ParentID = &pid
	}

	if err := s.comments.Create(ctx, c); err != nil {
		s.logger.Error("failed to create comment",
			slog.String("reviewID", reviewID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	s.logger.Info("comment created",
		slog.String("id", c.ID),
		slog.String("reviewID", reviewID),
		slog.Bool("reply", c.HasParent()),
	)

	return s.comments.GetByID(ctx, c.ID)
}

// Update edits a comment's content. Only its author or an admin may do so.
func (s *CommentService) Update(ctx context.Context, caller *auth.Identity, id, content string) (*model.Comment, error) {
	content, err := validateCommentContent(content)
	if err != nil {
		return nil, err
	}

	c, err := s.owned(ctx, caller, id, "edit")
	if err != nil {
		return nil, err
	}

	c.Content = content
	if err := s.comments.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("updating comment %s: %w", id, err)
	}

	s.logger.Info("comment updated", slog.String("id", id))
	return c, nil
}

// Delete removes one comment. Its replies remain and become orphans.
func (s *CommentService) Delete(ctx context.Context, caller *auth.Identity, id string) error {
	if _, err := s.owned(ctx, caller, id, "delete"); err != nil {
		return err
	}

	if err := s.comments.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting comment %s: %w", id, err)
	}

	s.logger.Info("comment deleted", slog.String("id", id))
	return nil
}

func (s *CommentService) owned(ctx context.Context, caller *auth.Identity, id, verb string) (*model.Comment, error) {
	if caller == nil {
		return nil, apperror.Unauthorized("login required")
	}

	c, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if c.UserID != caller.UserID && !caller.IsAdmin() {
		return nil, apperror.Forbidden(fmt.Sprintf("only the author can %s this comment", verb))
	}

	return c, nil
}

func validateCommentContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperror.ValidationFailed("content", "comment content is required")
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return "", apperror.ValidationFailed("content",
			fmt.Sprintf("comment must be %d characters or less", MaxCommentLength))
	}
	return content, nil
}
