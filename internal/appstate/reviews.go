package appstate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/fieldfinder/internal/client"
	"github.com/sakif/fieldfinder/internal/grass"
	"github.com/sakif/fieldfinder/internal/model"
	"github.com/sakif/fieldfinder/internal/rating"
)

// LoadMoreReviews fetches the page after the last loaded review.
//
// Only one page load runs at a time: an overlapping call returns ErrBusy
// immediately. An empty page ends pagination.
func (s *Store) LoadMoreReviews(ctx context.Context) error {
	s.mu.Lock()
	if s.selected == nil {
		s.mu.Unlock()
		return ErrNoSelection
	}
	if s.loadingMore {
		s.mu.Unlock()
		return ErrBusy
	}
	if !s.hasMore {
		s.mu.Unlock()
		return nil
	}

	s.loadingMore = true
	gen := s.generation
	fieldID := s.selected.ID
	var cursor string
	if n := len(s.reviews); n > 0 {
		cursor = s.reviews[n-1].ID
	}
	s.mu.Unlock()

	page, err := s.api.Reviews(ctx, fieldID, cursor)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return ErrStale
	}
	s.loadingMore = false
	if err == nil {
		s.reviews = append(s.reviews, page.Reviews...)
		s.hasMore = page.HasMore && len(page.Reviews) > 0
	}
	s.mu.Unlock()

	if err != nil {
		return s.fail("load more reviews", "Could not load more reviews.", err)
	}
	return nil
}

// ValidateReview applies the rules the server enforces, so the user hears
// about a mistake before anything is sent.
func ValidateReview(in client.ReviewRequest) error {
	if !rating.ValidStars(in.Rating) {
		return errors.New("Please choose a rating between 1 and 5.")
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return errors.New("Please write a review.")
	}
	if utf8.RuneCountInString(content) > model.MaxReviewLength {
		return fmt.Errorf("Reviews are limited to %d characters.", model.MaxReviewLength)
	}
	if _, err := model.ParseGrassType(in.GrassType); err != nil {
		return errors.New("Please choose the grass type.")
	}
	if _, err := model.ParseGrassType(in.RecommendedShoe); err != nil {
		return errors.New("Please choose the recommended shoe.")
	}
	for _, c := range in.GrassConditions {
		if _, err := model.ParseGrassCondition(c); err != nil {
			return fmt.Errorf("Unknown grass condition %q.", c)
		}
	}
	return nil
}

// SubmitReview posts a review on the selected field, puts it at the top of
// the list and updates the rating and condition summary in place.
func (s *Store) SubmitReview(ctx context.Context, in client.ReviewRequest) (*model.Review, error) {
	if err := s.requireLogin("submit review"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.selected == nil {
		s.mu.Unlock()
		return nil, ErrNoSelection
	}
	gen := s.generation
	fieldID := s.selected.ID
	s.mu.Unlock()

	if err := ValidateReview(in); err != nil {
		return nil, s.fail("submit review", err.Error(), err)
	}

	rv, err := s.api.CreateReview(ctx, fieldID, in)
	if err != nil {
		return nil, s.fail("submit review", "Could not post your review.", err)
	}

	s.mu.Lock()
	if gen != s.generation {
		// Posted, but the user has moved on; nothing on screen to update.
		s.mu.Unlock()
		return rv, nil
	}
	s.reviews = append([]model.Review{*rv}, s.reviews...)
	if err := s.histogram.Add(rv.Rating); err != nil {
		s.logger.Warn("server returned an out-of-range rating", "rating", rv.Rating)
	}
	partial := s.refreshAggregates()
	s.mu.Unlock()

	if partial {
		s.refreshSummary(ctx, gen, fieldID)
	}
	return rv, nil
}

// EditReview changes only the content of a review.
func (s *Store) EditReview(ctx context.Context, id, content string) (*model.Review, error) {
	if err := s.requireLogin("edit review"); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		err := errors.New("Please write a review.")
		return nil, s.fail("edit review", err.Error(), err)
	}
	if utf8.RuneCountInString(content) > model.MaxReviewLength {
		err := fmt.Errorf("Reviews are limited to %d characters.", model.MaxReviewLength)
		return nil, s.fail("edit review", err.Error(), err)
	}

	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	rv, err := s.api.UpdateReview(ctx, id, client.ReviewUpdate{Content: &content})
	if err != nil {
		return nil, s.fail("edit review", "Could not update your review.", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen == s.generation {
		for i := range s.reviews {
			if s.reviews[i].ID == id {
				s.reviews[i] = *rv
				break
			}
		}
	}
	return rv, nil
}

// DeleteReview removes a review, every loaded comment that belongs to it,
// and its star from the histogram. Nothing else changes.
func (s *Store) DeleteReview(ctx context.Context, id string) error {
	if err := s.requireLogin("delete review"); err != nil {
		return err
	}

	s.mu.Lock()
	gen := s.generation
	var fieldID string
	if s.selected != nil {
		fieldID = s.selected.ID
	}
	s.mu.Unlock()

	if err := s.api.DeleteReview(ctx, id); err != nil {
		return s.fail("delete review", "Could not delete the review.", err)
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil
	}

	kept := make([]model.Review, 0, len(s.reviews))
	var removed *model.Review
	for i := range s.reviews {
		if s.reviews[i].ID == id {
			rv := s.reviews[i]
			removed = &rv
			continue
		}
		kept = append(kept, s.reviews[i])
	}
	s.reviews = kept
	delete(s.comments, id)

	var partial bool
	if removed != nil {
		_ = s.histogram.Remove(removed.Rating)
		partial = s.refreshAggregates()
	}
	s.mu.Unlock()

	if partial {
		s.refreshSummary(ctx, gen, fieldID)
	}
	return nil
}

// refreshAggregates copies the histogram into the selected field. The
// condition summary covers every review of the field, so it is recomputed
// here only when all of them are loaded; otherwise it reports true and the
// caller fetches the summary with refreshSummary. Caller holds mu.
func (s *Store) refreshAggregates() (partial bool) {
	if s.selected == nil {
		return false
	}
	s.selected.Rating = s.histogram.Rating()
	s.selected.ReviewCount = s.histogram.Total()
	if s.hasMore {
		return true
	}
	s.selected.GrassCondition = grass.SummarizeReviews(s.reviews)
	return false
}

// refreshSummary takes the condition summary from a fresh copy of the field.
// The review itself already went through, so a failure here only logs and
// the previous summary stays.
func (s *Store) refreshSummary(ctx context.Context, gen uint64, fieldID string) {
	detail, err := s.api.Field(ctx, fieldID)
	if err != nil {
		s.logger.Warn("refreshing grass condition failed",
			slog.String("fieldID", fieldID),
			slog.String("error", err.Error()),
		)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.selected == nil {
		return
	}
	s.selected.GrassCondition = detail.GrassCondition
}
