package appstate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/fieldfinder/internal/model"
	"github.com/sakif/fieldfinder/internal/thread"
)

// LoadComments fetches a review's comments and stores them.
func (s *Store) LoadComments(ctx context.Context, reviewID string) error {
	if err := s.refetchComments(ctx, reviewID); err != nil {
		return s.fail("load comments", "Could not load comments.", err)
	}
	return nil
}

// refetchComments replaces the stored comments of a review. A list that
// arrives after the selection changed belongs to a field no longer shown
// and is dropped.
func (s *Store) refetchComments(ctx context.Context, reviewID string) error {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	flat, err := s.api.Comments(ctx, reviewID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		s.logger.Debug("dropping stale comments", slog.String("reviewID", reviewID))
		return nil
	}
	s.comments[reviewID] = flat
	return nil
}

func validateComment(content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return errors.New("Please write a comment.")
	}
	if utf8.RuneCountInString(content) > model.MaxCommentLength {
		return fmt.Errorf("Comments are limited to %d characters.", model.MaxCommentLength)
	}
	return nil
}

// SubmitComment posts a comment, or a reply when parentID is set, and then
// reloads the review's comments. Only top-level comments take replies.
func (s *Store) SubmitComment(ctx context.Context, reviewID, content, parentID string) error {
	if err := s.requireLogin("submit comment"); err != nil {
		return err
	}
	if err := validateComment(content); err != nil {
		return s.fail("submit comment", err.Error(), err)
	}

	if parentID != "" {
		s.mu.Lock()
		parent, depth := thread.Find(thread.Build(s.comments[reviewID]), parentID)
		s.mu.Unlock()

		if parent != nil && !thread.CanReply(depth) {
			return s.fail("submit comment", "You can only reply to top-level comments.", ErrReplyDepth)
		}
	}

	if _, err := s.api.CreateComment(ctx, reviewID, strings.TrimSpace(content), parentID); err != nil {
		return s.fail("submit comment", "Could not post your comment.", err)
	}

	if err := s.refetchComments(ctx, reviewID); err != nil {
		return s.fail("reload comments", "Comment posted, but the list could not be refreshed.", err)
	}
	return nil
}

// EditComment replaces a comment's content and reloads the review's comments.
func (s *Store) EditComment(ctx context.Context, reviewID, commentID, content string) error {
	if err := s.requireLogin("edit comment"); err != nil {
		return err
	}
	if err := validateComment(content); err != nil {
		return s.fail("edit comment", err.Error(), err)
	}

	if _, err := s.api.UpdateComment(ctx, commentID, strings.TrimSpace(content)); err != nil {
		return s.fail("edit comment", "Could not update your comment.", err)
	}

	if err := s.refetchComments(ctx, reviewID); err != nil {
		return s.fail("reload comments", "Comment updated, but the list could not be refreshed.", err)
	}
	return nil
}

// DeleteComment removes a comment and reloads the review's comments.
func (s *Store) DeleteComment(ctx context.Context, reviewID, commentID string) error {
	if err := s.requireLogin("delete comment"); err != nil {
		return err
	}

	if err := s.api.DeleteComment(ctx, commentID); err != nil {
		return s.fail("delete comment", "Could not delete the comment.", err)
	}

	if err := s.refetchComments(ctx, reviewID); err != nil {
		return s.fail("reload comments", "Comment deleted, but the list could not be refreshed.", err)
	}
	return nil
}
