package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/fieldfinder/internal/apperror"
	"github.com/sakif/fieldfinder/internal/auth"
	"github.com/sakif/fieldfinder/internal/model"
	"github.com/sakif/fieldfinder/internal/rating"
	"github.com/sakif/fieldfinder/internal/repository"
)

const MaxReviewLength = model.MaxReviewLength

// ReviewService manages star ratings and text reviews of approved fields.
type ReviewService struct {
	fields  repository.FieldRepository
	reviews repository.ReviewRepository
	logger  *slog.Logger
}

func NewReviewService(fields repository.FieldRepository, reviews repository.ReviewRepository, logger *slog.Logger) *ReviewService {
	return &ReviewService{fields: fields, reviews: reviews, logger: logger}
}

// ReviewInput is the create form. Enum values arrive as raw strings.
type ReviewInput struct {
	Rating          int
	Content         string
	GrassType       string
	GrassConditions []string
	RecommendedShoe string
	ShoeLink        string
}

// ReviewUpdate is the edit form. Nil fields are left unchanged, so a
// content-only edit sends only Content.
type ReviewUpdate struct {
	Rating          *int
	Content         *string
	GrassType       *string
	GrassConditions *[]string
	RecommendedShoe *string
	ShoeLink        *string
}

// ReviewPageResult is one page of a field's reviews. HasMore is false once a
// page comes back shorter than the page size.
type ReviewPageResult struct {
	Reviews []model.Review `json:"reviews"`
	HasMore bool           `json:"hasMore"`
}

// List returns one page of an approved field's reviews, newest first.
func (s *ReviewService) List(ctx context.Context, fieldID, lastID string) (*ReviewPageResult, error) {
	if _, err := fieldMustBeApproved(ctx, s.fields, fieldID); err != nil {
		return nil, err
	}

	reviews, err := s.reviews.ListByField(ctx, fieldID, repository.ReviewPage{
		LastID: strings.TrimSpace(lastID),
		Limit:  repository.ReviewPageSize,
	})
	if err != nil {
		s.logger.Error("failed to list reviews",
			slog.String("fieldID", fieldID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing reviews: %w", err)
	}

	return &ReviewPageResult{
		Reviews: reviews,
		HasMore: len(reviews) == repository.ReviewPageSize,
	}, nil
}

// Create posts a review on an approved field.
func (s *ReviewService) Create(ctx context.Context, caller *auth.Identity, fieldID string, in ReviewInput) (*model.Review, error) {
	if caller == nil {
		return nil, apperror.Unauthorized("login required to write a review")
	}

	if _, err := fieldMustBeApproved(ctx, s.fields, fieldID); err != nil {
		return nil, err
	}

	rv := &model.Review{FieldID: fieldID, UserID: caller.UserID}
	if err := applyReviewInput(rv, in); err != nil {
		return nil, err
	}

	if err := s.reviews.Create(ctx, rv); err != nil {
		s.logger.Error("failed to create review",
			slog.String("fieldID", fieldID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating review: %w", err)
	}

	s.logger.Info("review created",
		slog.String("id", rv.ID),
		slog.String("fieldID", fieldID),
		slog.Int("rating", rv.Rating),
	)

	// Re-read to pick up the joined author name.
	return s.reviews.GetByID(ctx, rv.ID)
}

// Update edits a review. Only its author or an admin may do so.
func (s *ReviewService) Update(ctx context.Context, caller *auth.Identity, id string, upd ReviewUpdate) (*model.Review, error) {
	rv, err := s.owned(ctx, caller, id, "edit")
	if err != nil {
		return nil, err
	}

	// Merge the update over the stored review, then validate the result as a whole.
	in := ReviewInput{
		Rating:          rv.Rating,
		Content:         rv.Content,
		GrassType:       string(rv.GrassType),
		GrassConditions: conditionStrings(rv.GrassConditions),
		RecommendedShoe: string(rv.RecommendedShoe),
		ShoeLink:        rv.ShoeLink,
	}
	if upd.Rating != nil {
		in.Rating = *upd.Rating
	}
	if upd.Content != nil {
		in.Content = *upd.Content
	}
	if upd.GrassType != nil {
		in.GrassType = *upd.GrassType
	}
	if upd.GrassConditions != nil {
		in.GrassConditions = *upd.GrassConditions
	}
	if upd.RecommendedShoe != nil {
		in.RecommendedShoe = *upd.RecommendedShoe
	}
	if upd.ShoeLink != nil {
		in.ShoeLink = *upd.ShoeLink
	}

	if err := applyReviewInput(rv, in); err != nil {
		return nil, err
	}

	if err := s.reviews.Update(ctx, rv); err != nil {
		return nil, fmt.Errorf("updating review %s: %w", id, err)
	}

	s.logger.Info("review updated", slog.String("id", id))
	return rv, nil
}

// Delete removes a review and its comments. Only its author or an admin may do so.
func (s *ReviewService) Delete(ctx context.Context, caller *auth.Identity, id string) error {
	if _, err := s.owned(ctx, caller, id, "delete"); err != nil {
		return err
	}

	if err := s.reviews.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting review %s: %w", id, err)
	}

	s.logger.Info("review deleted", slog.String("id", id))
	return nil
}

func (s *ReviewService) owned(ctx context.Context, caller *auth.Identity, id, verb string) (*model.Review, error) {
	if caller == nil {
		return nil, apperror.Unauthorized("login required")
	}

	rv, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if rv.UserID != caller.UserID && !caller.IsAdmin() {
		return nil, apperror.Forbidden(fmt.Sprintf("only the author can %s this review", verb))
	}

	return rv, nil
}

// applyReviewInput validates in and copies it onto rv.
func applyReviewInput(rv *model.Review, in ReviewInput) error {
	if !rating.ValidStars(in.Rating) {
		return apperror.ValidationFailed("rating", "rating must be between 1 and 5")
	}

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return apperror.ValidationFailed("content", "review content is required")
	}
	if utf8.RuneCountInString(content) > MaxReviewLength {
		return apperror.ValidationFailed("content",
			fmt.Sprintf("review must be %d characters or less", MaxReviewLength))
	}

	grassType, err := model.ParseGrassType(in.GrassType)
	if err != nil {
		return apperror.ValidationFailed("grassType", "grass type must be one of AG, FG, MG, TF")
	}
	shoe, err := model.ParseGrassType(in.RecommendedShoe)
	if err != nil {
		return apperror.ValidationFailed("recommendedShoe", "recommended shoe must be one of AG, FG, MG, TF")
	}

	conditions, err := parseConditions(in.GrassConditions)
	if err != nil {
		return err
	}

	link := strings.TrimSpace(in.ShoeLink)
	if link != "" && !isHTTPURL(link) {
		return apperror.ValidationFailed("shoeLink", "shoe link must be an http(s) URL")
	}

	rv.Rating = in.Rating
	rv.Content = content
	rv.GrassType = grassType
	rv.GrassConditions = conditions
	rv.RecommendedShoe = shoe
	rv.ShoeLink = link

	return nil
}

// parseConditions parses the tags and drops duplicates, keeping first-seen order.
func parseConditions(raw []string) ([]model.GrassCondition, error) {
	out := make([]model.GrassCondition, 0, len(raw))
	seen := make(map[model.GrassCondition]bool, len(raw))

	for _, s := range raw {
		c, err := model.ParseGrassCondition(s)
		if err != nil {
			return nil, apperror.ValidationFailed("grassConditions",
				fmt.Sprintf("unknown grass condition %q", s))
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}

	return out, nil
}

func conditionStrings(tags []model.GrassCondition) []string {
	out := make([]string, len(tags))
	for i, c := range tags {
		out[i] = string(c)
	}
	return out
}
