package appstate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/fieldfinder/internal/client"
	"github.com/sakif/fieldfinder/internal/model"
	"github.com/sakif/fieldfinder/internal/rating"
	"github.com/sakif/fieldfinder/internal/search"
)

// LoadFields fetches the approved field list.
func (s *Store) LoadFields(ctx context.Context) error {
	fields, err := s.api.Fields(ctx)
	if err != nil {
		return s.fail("load fields", "Could not load the field list.", err)
	}

	s.mu.Lock()
	s.fields = fields
	s.mu.Unlock()
	return nil
}

// SearchLocal filters the loaded fields by name or address without a
// network call. A blank keyword clears the results.
func (s *Store) SearchLocal(keyword string) []model.FieldDetail {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]model.FieldDetail, 0)
	for _, f := range s.fields {
		if search.Matches(f.Field, keyword) {
			results = append(results, f)
		}
	}
	s.results = results
	return cloneFields(results)
}

// SearchRemote asks the server to search. A blank keyword clears the results.
func (s *Store) SearchRemote(ctx context.Context, keyword string) ([]model.FieldDetail, error) {
	if search.Normalize(keyword) == "" {
		s.mu.Lock()
		s.results = []model.FieldDetail{}
		s.mu.Unlock()
		return []model.FieldDetail{}, nil
	}

	results, err := s.api.SearchFields(ctx, keyword)
	if err != nil {
		return nil, s.fail("search", "Search failed.", err)
	}
	if results == nil {
		results = []model.FieldDetail{}
	}

	s.mu.Lock()
	s.results = results
	s.mu.Unlock()
	return cloneFields(results), nil
}

// SelectField loads a field's detail and its first page of reviews, and
// resets the review cursor and the loaded comment threads.
//
// If another SelectField starts before this one finishes, this one's
// result is dropped and ErrStale returned. A failed selection leaves the
// current one, and any page load running for it, untouched.
func (s *Store) SelectField(ctx context.Context, id string) error {
	s.mu.Lock()
	s.selecting++
	seq := s.selecting
	s.mu.Unlock()

	detail, err := s.api.Field(ctx, id)
	if err != nil {
		return s.fail("select field", "Could not load the field.", err)
	}

	page, err := s.api.Reviews(ctx, id, "")
	if err != nil {
		return s.fail("load reviews", "Could not load reviews.", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.selecting {
		s.logger.Debug("dropping stale field selection", slog.String("fieldID", id))
		return ErrStale
	}

	d := cloneField(*detail)
	s.generation++
	s.selected = &d
	s.histogram = rating.FromRating(detail.Rating)
	s.reviews = page.Reviews
	s.hasMore = page.HasMore && len(page.Reviews) > 0
	s.loadingMore = false
	s.comments = make(map[string][]model.Comment)

	return nil
}

// ClearSelection forgets the selected field. Pending responses for it are
// dropped when they arrive.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selecting++
	s.generation++
	s.selected = nil
	s.histogram = rating.Histogram{}
	s.reviews = nil
	s.hasMore = false
	s.loadingMore = false
	s.comments = make(map[string][]model.Comment)
}

// CreateField submits a new field for admin approval.
func (s *Store) CreateField(ctx context.Context, in client.CreateFieldRequest) (*model.Field, error) {
	if err := s.requireLogin("create field"); err != nil {
		return nil, err
	}

	if err := validateField(in); err != nil {
		return nil, s.fail("create field", err.Error(), err)
	}

	f, err := s.api.CreateField(ctx, in)
	if err != nil {
		return nil, s.fail("create field", "Could not submit the field.", err)
	}

	s.alert.Alert("Field submitted. It will appear once an administrator approves it.")
	return f, nil
}

func validateField(in client.CreateFieldRequest) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return errors.New("Field name is required.")
	case strings.TrimSpace(in.Address) == "":
		return errors.New("Address is required.")
	case strings.TrimSpace(in.Image) == "":
		return errors.New("Image URL is required.")
	}
	if _, err := model.ParseGrassType(in.GrassType); err != nil {
		return fmt.Errorf("Unknown grass type %q.", in.GrassType)
	}
	if _, err := model.ParseGrassType(in.ShoeType); err != nil {
		return fmt.Errorf("Unknown shoe type %q.", in.ShoeType)
	}
	return nil
}

// LoadPendingFields fetches the fields awaiting approval (admin).
func (s *Store) LoadPendingFields(ctx context.Context) error {
	if err := s.requireAdmin("load pending"); err != nil {
		return err
	}

	pending, err := s.api.PendingFields(ctx)
	if err != nil {
		return s.fail("load pending", "Could not load pending fields.", err)
	}

	s.mu.Lock()
	s.pending = pending
	s.mu.Unlock()
	return nil
}

// ApproveField approves one pending field and removes it from the pending
// list. A second approve of the same ID while the first is running returns
// ErrBusy without calling the API.
func (s *Store) ApproveField(ctx context.Context, id string) error {
	if err := s.requireAdmin("approve field"); err != nil {
		return err
	}

	s.mu.Lock()
	if s.approving[id] {
		s.mu.Unlock()
		return ErrBusy
	}
	s.approving[id] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.approving, id)
		s.mu.Unlock()
	}()

	if _, err := s.api.ApproveField(ctx, id); err != nil {
		return s.fail("approve field", "Could not approve the field. Please try again.", err)
	}

	s.mu.Lock()
	kept := s.pending[:0:0]
	for _, f := range s.pending {
		if f.ID != id {
			kept = append(kept, f)
		}
	}
	s.pending = kept
	s.mu.Unlock()

	s.alert.Alert("Field approved.")
	return nil
}
