package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/sakif/fieldfinder/internal/apperror"
	"github.com/sakif/fieldfinder/internal/auth"
	"github.com/sakif/fieldfinder/internal/grass"
	"github.com/sakif/fieldfinder/internal/model"
	"github.com/sakif/fieldfinder/internal/rating"
	"github.com/sakif/fieldfinder/internal/repository"
)

const (
	MaxFieldNameLength    = 100
	MaxFieldAddressLength = 200
)

// FieldService manages soccer fields and their approval workflow.
//
// Approved fields are public. A submitted field stays PENDING, visible only
// to its submitter and to admins, until an admin approves it.
type FieldService struct {
	fields  repository.FieldRepository
	reviews repository.ReviewRepository
	logger  *slog.Logger
}

func NewFieldService(fields repository.FieldRepository, reviews repository.ReviewRepository, logger *slog.Logger) *FieldService {
	return &FieldService{fields: fields, reviews: reviews, logger: logger}
}

// CreateFieldInput is the "add a field" form. GrassType and ShoeType arrive
// as raw strings and are parsed here.
type CreateFieldInput struct {
	Name      string
	Address   string
	Lat       float64
	Lng       float64
	Image     string
	GrassType string
	ShoeType  string
}

// List returns every approved field with its aggregates.
func (s *FieldService) List(ctx context.Context) ([]model.FieldDetail, error) {
	fields, err := s.fields.List(ctx, repository.FieldFilter{Status: model.FieldApproved})
	if err != nil {
		s.logger.Error("failed to list fields", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing fields: %w", err)
	}
	return s.details(ctx, fields)
}

// Search returns approved fields whose name or address contains keyword.
// A blank keyword returns no fields.
func (s *FieldService) Search(ctx context.Context, keyword string) ([]model.FieldDetail, error) {
	if strings.TrimSpace(keyword) == "" {
		return []model.FieldDetail{}, nil
	}

	fields, err := s.fields.Search(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("searching fields: %w", err)
	}
	return s.details(ctx, fields)
}

// Get returns one field with its rating and grass-condition aggregates.
// A pending field is reported as not found to anyone but its submitter or an admin.
func (s *FieldService) Get(ctx context.Context, caller *auth.Identity, id string) (*model.FieldDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "field ID is required")
	}

	f, err := s.fields.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if f.Status != model.FieldApproved && !canSeePending(caller, f) {
		return nil, apperror.NotFound("field", id)
	}

	return s.detail(ctx, f)
}

// Create submits a new field. It always starts PENDING.
func (s *FieldService) Create(ctx context.Context, caller *auth.Identity, in CreateFieldInput) (*model.Field, error) {
	if caller == nil {
		return nil, apperror.Unauthorized("login required to add a field")
	}

	// === VALIDATION ===
	name := strings.TrimSpace(in.Name)
	address := strings.TrimSpace(in.Address)
	image := strings.TrimSpace(in.Image)

	if name == "" {
		return nil, apperror.ValidationFailed("name", "field name is required")
	}
	if utf8.RuneCountInString(name) > MaxFieldNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("field name must be %d characters or less", MaxFieldNameLength))
	}
	if address == "" {
		return nil, apperror.ValidationFailed("address", "address is required")
	}
	if utf8.RuneCountInString(address) > MaxFieldAddressLength {
		return nil, apperror.ValidationFailed("address",
			fmt.Sprintf("address must be %d characters or less", MaxFieldAddressLength))
	}
	if image == "" {
		return nil, apperror.ValidationFailed("image", "image URL is required")
	}
	if !isHTTPURL(image) {
		return nil, apperror.ValidationFailed("image", "image must be an http(s) URL")
	}
	grassType, err := model.ParseGrassType(in.GrassType)
	if err != nil {
		return nil, apperror.ValidationFailed("grassType", "grass type must be one of AG, FG, MG, TF")
	}
	shoeType, err := model.ParseGrassType(in.ShoeType)
	if err != nil {
		return nil, apperror.ValidationFailed("shoeType", "recommended shoe must be one of AG, FG, MG, TF")
	}
	if in.Lat < -90 || in.Lat > 90 || in.Lng < -180 || in.Lng > 180 {
		return nil, apperror.ValidationFailed("lat", "coordinates are out of range")
	}

	f := &model.Field{
		Name:        name,
		Address:     address,
		Lat:         in.Lat,
		Lng:         in.Lng,
		Image:       image,
		GrassType:   grassType,
		ShoeType:    shoeType,
		Status:      model.FieldPending,
		SubmittedBy: caller.UserID,
	}

	if err := s.fields.Create(ctx, f); err != nil {
		s.logger.Error("failed to create field",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating field: %w", err)
	}

	s.logger.Info("field submitted",
		slog.String("id", f.ID),
		slog.String("submittedBy", caller.UserID),
	)

	return f, nil
}

// ListPending returns the fields waiting for approval. Admins only.
func (s *FieldService) ListPending(ctx context.Context, caller *auth.Identity) ([]model.Field, error) {
	if !caller.IsAdmin() {
		return nil, apperror.Forbidden("only administrators can review pending fields")
	}

	fields, err := s.fields.List(ctx, repository.FieldFilter{Status: model.FieldPending})
	if err != nil {
		return nil, fmt.Errorf("listing pending fields: %w", err)
	}
	return fields, nil
}

// Approve publishes a pending field. Admins only; approving twice is a conflict.
func (s *FieldService) Approve(ctx context.Context, caller *auth.Identity, id string) (*model.Field, error) {
	if !caller.IsAdmin() {
		return nil, apperror.Forbidden("only administrators can approve fields")
	}

	f, err := s.fields.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.Status == model.FieldApproved {
		return nil, apperror.Conflict("field", id)
	}

	if err := s.fields.SetStatus(ctx, id, model.FieldApproved); err != nil {
		return nil, fmt.Errorf("approving field %s: %w", id, err)
	}
	f.Status = model.FieldApproved

	s.logger.Info("field approved",
		slog.String("id", id),
		slog.String("approvedBy", caller.UserID),
	)

	return f, nil
}

func (s *FieldService) details(ctx context.Context, fields []model.Field) ([]model.FieldDetail, error) {
	out := make([]model.FieldDetail, 0, len(fields))
	for i := range fields {
		d, err := s.detail(ctx, &fields[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}

// detail attaches the computed aggregates to a field.
func (s *FieldService) detail(ctx context.Context, f *model.Field) (*model.FieldDetail, error) {
	counts, err := s.reviews.RatingCounts(ctx, f.ID)
	if err != nil {
		return nil, fmt.Errorf("counting ratings of field %s: %w", f.ID, err)
	}
	tags, err := s.reviews.ConditionTags(ctx, f.ID)
	if err != nil {
		return nil, fmt.Errorf("loading grass conditions of field %s: %w", f.ID, err)
	}

	h := rating.FromCounts(counts)

	return &model.FieldDetail{
		Field:           *f,
		GrassDescriptor: f.GrassType.Descriptor(),
		ShoeDescriptor:  f.ShoeType.Descriptor(),
		Rating:          h.Rating(),
		GrassCondition:  grass.Summarize(tags),
		ReviewCount:     h.Total(),
	}, nil
}

func canSeePending(caller *auth.Identity, f *model.Field) bool {
	return caller.IsAdmin() || (caller != nil && caller.UserID == f.SubmittedBy)
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// fieldMustBeApproved loads a field and rejects pending ones, for callers
// that attach reviews.
func fieldMustBeApproved(ctx context.Context, fields repository.FieldRepository, id string) (*model.Field, error) {
	f, err := fields.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.Status != model.FieldApproved {
		return nil, apperror.NotFound("field", id)
	}
	return f, nil
}
