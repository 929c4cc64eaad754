// Package appstate holds everything the FieldFinder client shows and the
// actions that change it.
//
// STATE VS ACTIONS:
// The Store owns the field list, the selected field with its reviews and
// rating histogram, the comment threads that have been opened, and the admin
// pending list. Nothing outside this package mutates that state; callers run
// an action (LoadFields, SubmitReview, ApproveField, ...) and read copies back
// through the accessors.
//
// LOCKING:
// The mutex is held only while reading or applying state, never across a
// network call. An action snapshots what it needs, unlocks, calls the API,
// then locks again to apply the result. Because the world may have moved on
// in between, actions that touch the selected field compare a generation
// counter and drop results that belong to a field the user has left. The
// counter only moves when a selection is applied or cleared, so a selection
// that fails does not disturb work running for the current one.
//
// ERRORS:
// A failing action leaves state as it was, raises a message through the
// Alerter, and returns the error. Nothing is retried.
package appstate

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sakif/fieldfinder/internal/client"
	"github.com/sakif/fieldfinder/internal/model"
	"github.com/sakif/fieldfinder/internal/rating"
	"github.com/sakif/fieldfinder/internal/thread"
)

var (
	// ErrBusy is returned when the same operation is already running.
	ErrBusy = errors.New("appstate: operation already in progress")
	// ErrStale is returned when a response arrived for a field that is no
	// longer selected. The response is discarded.
	ErrStale = errors.New("appstate: selection changed, result discarded")
	// ErrNoSelection is returned by review actions when no field is selected.
	ErrNoSelection = errors.New("appstate: no field selected")
	// ErrReplyDepth is returned when replying to a comment that is itself a reply.
	ErrReplyDepth = errors.New("appstate: replies can only be added to top-level comments")
	// ErrLoginRequired and ErrAdminRequired come from the Gate.
	ErrLoginRequired = errors.New("appstate: login required")
	ErrAdminRequired = errors.New("appstate: administrator access required")
)

// API is the REST surface the store drives. *client.Client implements it.
type API interface {
	Fields(ctx context.Context) ([]model.FieldDetail, error)
	Field(ctx context.Context, id string) (*model.FieldDetail, error)
	SearchFields(ctx context.Context, keyword string) ([]model.FieldDetail, error)
	CreateField(ctx context.Context, in client.CreateFieldRequest) (*model.Field, error)
	PendingFields(ctx context.Context) ([]model.Field, error)
	ApproveField(ctx context.Context, id string) (*model.Field, error)

	Reviews(ctx context.Context, fieldID, lastID string) (*client.ReviewPage, error)
	CreateReview(ctx context.Context, fieldID string, in client.ReviewRequest) (*model.Review, error)
	UpdateReview(ctx context.Context, id string, upd client.ReviewUpdate) (*model.Review, error)
	DeleteReview(ctx context.Context, id string) error

	Comments(ctx context.Context, reviewID string) ([]model.Comment, error)
	CreateComment(ctx context.Context, reviewID, content, parentID string) (*model.Comment, error)
	UpdateComment(ctx context.Context, id, content string) (*model.Comment, error)
	DeleteComment(ctx context.Context, id string) error
}

var _ API = (*client.Client)(nil)

// Alerter shows a message to the user.
type Alerter interface {
	Alert(message string)
}

// AlerterFunc adapts a function to Alerter.
type AlerterFunc func(message string)

func (f AlerterFunc) Alert(message string) { f(message) }

// Gate answers who is signed in. *session.Session implements it.
type Gate interface {
	IsAuthenticated() bool
	IsAdmin() bool
}

// Option configures a Store.
type Option func(*Store)

// WithGate makes mutating actions check the session before calling the API.
func WithGate(g Gate) Option {
	return func(s *Store) { s.gate = g }
}

// Store is safe for concurrent use.
type Store struct {
	api    API
	alert  Alerter
	logger *slog.Logger
	gate   Gate

	mu sync.Mutex

	fields  []model.FieldDetail
	results []model.FieldDetail

	// selecting numbers SelectField calls so a slow one cannot overwrite a
	// newer one; generation changes only when the selection itself changes.
	selecting   uint64
	generation  uint64
	selected    *model.FieldDetail
	histogram   rating.Histogram
	reviews     []model.Review
	hasMore     bool
	loadingMore bool

	comments map[string][]model.Comment // by review ID

	pending   []model.Field
	approving map[string]bool
}

func New(api API, alert Alerter, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		api:       api,
		alert:     alert,
		logger:    logger,
		comments:  make(map[string][]model.Comment),
		approving: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// fail alerts, logs and returns err unchanged.
func (s *Store) fail(action, message string, err error) error {
	s.logger.Warn(action+" failed", slog.String("error", err.Error()))
	s.alert.Alert(message)
	return err
}

func (s *Store) requireLogin(action string) error {
	if s.gate != nil && !s.gate.IsAuthenticated() {
		return s.fail(action, "Please log in first.", ErrLoginRequired)
	}
	return nil
}

func (s *Store) requireAdmin(action string) error {
	if s.gate != nil && !s.gate.IsAdmin() {
		return s.fail(action, "Only administrators can do that.", ErrAdminRequired)
	}
	return nil
}

// ===== Accessors (all return copies) =====

// Fields returns the loaded field list.
func (s *Store) Fields() []model.FieldDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneFields(s.fields)
}

// SearchResults returns the result of the last search.
func (s *Store) SearchResults() []model.FieldDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneFields(s.results)
}

// Selected returns the selected field with its current aggregates.
func (s *Store) Selected() (model.FieldDetail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return model.FieldDetail{}, false
	}
	return cloneField(*s.selected), true
}

// Histogram returns the selected field's rating histogram.
func (s *Store) Histogram() rating.Histogram {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.histogram
}

// Reviews returns the loaded reviews of the selected field, newest first.
func (s *Store) Reviews() []model.Review {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneReviews(s.reviews)
}

// HasMoreReviews reports whether LoadMoreReviews may return more.
func (s *Store) HasMoreReviews() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// Comments returns the flat comment list loaded for a review.
func (s *Store) Comments(reviewID string) []model.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneComments(s.comments[reviewID])
}

// Thread returns the loaded comments of a review as a reply tree.
// Replies whose parent is gone are left out.
func (s *Store) Thread(reviewID string) []*model.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return thread.Build(s.comments[reviewID])
}

// Pending returns the admin pending list.
func (s *Store) Pending() []model.Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Field(nil), s.pending...)
}

func cloneField(f model.FieldDetail) model.FieldDetail {
	dist := make(map[int]int, len(f.Rating.Distribution))
	for k, v := range f.Rating.Distribution {
		dist[k] = v
	}
	f.Rating.Distribution = dist
	return f
}

func cloneFields(in []model.FieldDetail) []model.FieldDetail {
	out := make([]model.FieldDetail, len(in))
	for i, f := range in {
		out[i] = cloneField(f)
	}
	return out
}

func cloneReviews(in []model.Review) []model.Review {
	out := make([]model.Review, len(in))
	for i, rv := range in {
		rv.GrassConditions = append([]model.GrassCondition(nil), rv.GrassConditions...)
		out[i] = rv
	}
	return out
}

func cloneComments(in []model.Comment) []model.Comment {
	out := make([]model.Comment, len(in))
	for i, c := range in {
		c.Replies = nil
		out[i] = c
	}
	return out
}
