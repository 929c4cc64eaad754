package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sakif/fieldfinder/internal/apperror"
	"github.com/sakif/fieldfinder/internal/auth"
	"github.com/sakif/fieldfinder/internal/model"
	"github.com/sakif/fieldfinder/internal/repository"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================
//
// In-memory implementations of the repository interfaces. Hand-written fakes
// (not a mock framework) keep the tests readable: you can see what they do.
// IDs are zero-padded counters so they sort like the real time-ordered IDs.

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type idGen struct{ n int }

func (g *idGen) next(prefix string) string {
	g.n++
	return fmt.Sprintf("%s%04d", prefix, g.n)
}

type fakeUserRepo struct {
	ids   idGen
	users map[string]*model.User
	// set to a non-nil error to simulate a database failure
	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return apperror.Conflict("user", u.Email)
		}
	}
	u.ID = f.ids.next("u")
	u.CreatedAt = time.Now()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == strings.ToLower(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

type fakeRevocationRepo struct {
	revoked map[string]time.Time
}

func newFakeRevocationRepo() *fakeRevocationRepo {
	return &fakeRevocationRepo{revoked: make(map[string]time.Time)}
}

func (f *fakeRevocationRepo) Revoke(_ context.Context, id string, exp time.Time) error {
	f.revoked[id] = exp
	return nil
}

func (f *fakeRevocationRepo) IsRevoked(_ context.Context, id string) (bool, error) {
	_, ok := f.revoked[id]
	return ok, nil
}

func (f *fakeRevocationRepo) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for id, exp := range f.revoked {
		if exp.Before(now) {
			delete(f.revoked, id)
			n++
		}
	}
	return n, nil
}

type fakeFieldRepo struct {
	ids    idGen
	fields map[string]*model.Field
}

func newFakeFieldRepo() *fakeFieldRepo {
	return &fakeFieldRepo{fields: make(map[string]*model.Field)}
}

func (f *fakeFieldRepo) Create(_ context.Context, field *model.Field) error {
	field.ID = f.ids.next("f")
	field.CreatedAt = time.Now()
	if field.Status == "" {
		field.Status = model.FieldPending
	}
	cp := *field
	f.fields[field.ID] = &cp
	return nil
}

func (f *fakeFieldRepo) GetByID(_ context.Context, id string) (*model.Field, error) {
	field, ok := f.fields[id]
	if !ok {
		return nil, apperror.NotFound("field", id)
	}
	cp := *field
	return &cp, nil
}

func (f *fakeFieldRepo) List(_ context.Context, filter repository.FieldFilter) ([]model.Field, error) {
	out := make([]model.Field, 0)
	for _, field := range f.fields {
		if filter.Status == "" || field.Status == filter.Status {
			out = append(out, *field)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeFieldRepo) Search(ctx context.Context, keyword string) ([]model.Field, error) {
	approved, _ := f.List(ctx, repository.FieldFilter{Status: model.FieldApproved})
	kw := strings.ToLower(strings.TrimSpace(keyword))
	out := make([]model.Field, 0)
	for _, field := range approved {
		if strings.Contains(strings.ToLower(field.Name), kw) || strings.Contains(strings.ToLower(field.Address), kw) {
			out = append(out, field)
		}
	}
	return out, nil
}

func (f *fakeFieldRepo) SetStatus(_ context.Context, id string, status model.FieldStatus) error {
	field, ok := f.fields[id]
	if !ok {
		return apperror.NotFound("field", id)
	}
	field.Status = status
	return nil
}

// fakeReviewRepo shares its comment map with fakeCommentRepo so Delete can cascade.
type fakeReviewRepo struct {
	ids      idGen
	reviews  map[string]*model.Review
	comments *fakeCommentRepo
}

func newFakeReviewRepo(comments *fakeCommentRepo) *fakeReviewRepo {
	return &fakeReviewRepo{reviews: make(map[string]*model.Review), comments: comments}
}

func (f *fakeReviewRepo) Create(_ context.Context, rv *model.Review) error {
	rv.ID = f.ids.next("r")
	rv.CreatedAt = time.Now()
	rv.UpdatedAt = rv.CreatedAt
	cp := *rv
	f.reviews[rv.ID] = &cp
	return nil
}

func (f *fakeReviewRepo) GetByID(_ context.Context, id string) (*model.Review, error) {
	rv, ok := f.reviews[id]
	if !ok {
		return nil, apperror.NotFound("review", id)
	}
	cp := *rv
	return &cp, nil
}

func (f *fakeReviewRepo) ListByField(_ context.Context, fieldID string, page repository.ReviewPage) ([]model.Review, error) {
	all := make([]model.Review, 0)
	for _, rv := range f.reviews {
		if rv.FieldID == fieldID && (page.LastID == "" || rv.ID < page.LastID) {
			all = append(all, *rv)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	if len(all) > page.Limit {
		all = all[:page.Limit]
	}
	return all, nil
}

func (f *fakeReviewRepo) Update(_ context.Context, rv *model.Review) error {
	if _, ok := f.reviews[rv.ID]; !ok {
		return apperror.NotFound("review", rv.ID)
	}
	rv.UpdatedAt = time.Now()
	cp := *rv
	f.reviews[rv.ID] = &cp
	return nil
}

func (f *fakeReviewRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.reviews[id]; !ok {
		return apperror.NotFound("review", id)
	}
	delete(f.reviews, id)
	if f.comments != nil {
		for cid, c := range f.comments.comments {
			if c.ReviewID == id {
				delete(f.comments.comments, cid)
			}
		}
	}
	return nil
}

func (f *fakeReviewRepo) RatingCounts(_ context.Context, fieldID string) (map[int]int, error) {
	counts := make(map[int]int)
	for _, rv := range f.reviews {
		if rv.FieldID == fieldID {
			counts[rv.Rating]++
		}
	}
	return counts, nil
}

func (f *fakeReviewRepo) ConditionTags(_ context.Context, fieldID string) ([]model.GrassCondition, error) {
	tags := make([]model.GrassCondition, 0)
	for _, rv := range f.reviews {
		if rv.FieldID == fieldID {
			tags = append(tags, rv.GrassConditions...)
		}
	}
	return tags, nil
}

type fakeCommentRepo struct {
	ids      idGen
	comments map[string]*model.Comment
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{comments: make(map[string]*model.Comment)}
}

func (f *fakeCommentRepo) Create(_ context.Context, c *model.Comment) error {
	c.ID = f.ids.next("c")
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	f.comments[c.ID] = &cp
	return nil
}

func (f *fakeCommentRepo) GetByID(_ context.Context, id string) (*model.Comment, error) {
	c, ok := f.comments[id]
	if !ok {
		return nil, apperror.NotFound("comment", id)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCommentRepo) ListByReview(_ context.Context, reviewID string) ([]model.Comment, error) {
	out := make([]model.Comment, 0)
	for _, c := range f.comments {
		if c.ReviewID == reviewID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCommentRepo) Update(_ context.Context, c *model.Comment) error {
	stored, ok := f.comments[c.ID]
	if !ok {
		return apperror.NotFound("comment", c.ID)
	}
	stored.Content = c.Content
	stored.UpdatedAt = time.Now()
	return nil
}

func (f *fakeCommentRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.comments[id]; !ok {
		return apperror.NotFound("comment", id)
	}
	delete(f.comments, id)
	return nil
}

// fixture wires every service to one set of fakes.
type fixture struct {
	users       *fakeUserRepo
	revocations *fakeRevocationRepo
	fields      *fakeFieldRepo
	reviews     *fakeReviewRepo
	comments    *fakeCommentRepo

	auth       *AuthService
	fieldSvc   *FieldService
	reviewSvc  *ReviewService
	commentSvc *CommentService
	tokens     *auth.TokenService
}

func newFixture(adminEmails ...string) *fixture {
	tokens, err := auth.NewTokenService("service-test-secret-0123456789", time.Hour)
	if err != nil {
		panic(err)
	}

	f := &fixture{
		users:       newFakeUserRepo(),
		revocations: newFakeRevocationRepo(),
		fields:      newFakeFieldRepo(),
		comments:    newFakeCommentRepo(),
		tokens:      tokens,
	}
	f.reviews = newFakeReviewRepo(f.comments)

	f.auth = NewAuthService(f.users, f.revocations, tokens, auth.NewPasswordServiceForTest(4), adminEmails, discardLogger)
	f.fieldSvc = NewFieldService(f.fields, f.reviews, discardLogger)
	f.reviewSvc = NewReviewService(f.fields, f.reviews, discardLogger)
	f.commentSvc = NewCommentService(f.reviews, f.comments, discardLogger)

	return f
}

func userIdentity(id string) *auth.Identity {
	return &auth.Identity{UserID: id, Role: model.RoleUser, TokenID: "jti-" + id}
}

func adminIdentity(id string) *auth.Identity {
	return &auth.Identity{UserID: id, Role: model.RoleAdmin, TokenID: "jti-" + id}
}

// approvedField stores an approved field directly in the fake.
func (f *fixture) approvedField(name, address string) *model.Field {
	field := &model.Field{
		Name:      name,
		Address:   address,
		GrassType: model.GrassAG,
		ShoeType:  model.GrassTF,
		Status:    model.FieldApproved,
	}
	_ = f.fields.Create(context.Background(), field)
	return field
}

func validReviewInput(stars int, tags ...string) ReviewInput {
	return ReviewInput{
		Rating:          stars,
		Content:         "nice pitch",
		GrassType:       "AG",
		GrassConditions: tags,
		RecommendedShoe: "TF",
	}
}
