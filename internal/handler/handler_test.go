package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/fieldfinder/internal/auth"
	"github.com/sakif/fieldfinder/internal/handler"
	"github.com/sakif/fieldfinder/internal/model"
	sqliteRepo "github.com/sakif/fieldfinder/internal/repository/sqlite"
	"github.com/sakif/fieldfinder/internal/service"
)

// testEnv is the handler stack over an in-memory database. JWT handling is
// skipped: requests name their caller with the X-Test-User/X-Test-Role
// headers and asIdentity puts that identity in the context.
type testEnv struct {
	db     *sqliteRepo.DB
	router http.Handler
	admin  *model.User
	alice  *model.User
	bob    *model.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqliteRepo.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	fieldHandler := handler.NewFieldHandler(service.NewFieldService(db.Fields(), db.Reviews(), logger), logger)
	reviewHandler := handler.NewReviewHandler(service.NewReviewService(db.Fields(), db.Reviews(), logger), logger)
	commentHandler := handler.NewCommentHandler(service.NewCommentService(db.Reviews(), db.Comments(), logger), logger)
	healthHandler := handler.NewHealthHandler(db, logger)

	r := chi.NewRouter()
	r.Use(asIdentity)
	r.Get("/healthz", healthHandler.HandleHealth)
	r.Get("/fields", fieldHandler.HandleList)
	r.Get("/fields/search", fieldHandler.HandleSearch)
	r.Get("/fields/pending", fieldHandler.HandlePending)
	r.Post("/fields", fieldHandler.HandleCreate)
	r.Get("/fields/{id}", fieldHandler.HandleGet)
	r.Patch("/fields/{id}/approve", fieldHandler.HandleApprove)
	r.Get("/fields/{id}/reviews", reviewHandler.HandleList)
	r.Post("/fields/{id}/reviews", reviewHandler.HandleCreate)
	r.Put("/reviews/{id}", reviewHandler.HandleUpdate)
	r.Delete("/reviews/{id}", reviewHandler.HandleDelete)
	r.Get("/reviews/{id}/comments", commentHandler.HandleList)
	r.Post("/reviews/{id}/comments", commentHandler.HandleCreate)
	r.Put("/comments/{id}", commentHandler.HandleUpdate)
	r.Delete("/comments/{id}", commentHandler.HandleDelete)

	env := &testEnv{db: db, router: r}
	env.admin = env.createUser(t, "admin@example.com", "Admin", model.RoleAdmin)
	env.alice = env.createUser(t, "alice@example.com", "Alice", model.RoleUser)
	env.bob = env.createUser(t, "bob@example.com", "Bob", model.RoleUser)
	return env
}

func asIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Test-User"); id != "" {
			r = r.WithContext(auth.WithIdentity(r.Context(), &auth.Identity{
				UserID: id,
				Role:   model.Role(r.Header.Get("X-Test-Role")),
			}))
		}
		next.ServeHTTP(w, r)
	})
}

func (e *testEnv) createUser(t *testing.T, email, name string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{Email: email, Name: name, Role: role, PasswordHash: "$2a$04$hash"}
	require.NoError(t, e.db.Users().Create(context.Background(), u))
	return u
}

// do sends a request as user (nil for anonymous) and returns the recorder.
func (e *testEnv) do(t *testing.T, user *model.User, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("X-Test-User", user.ID)
		req.Header.Set("X-Test-Role", string(user.Role))
	}

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "body: %s", rr.Body.String())
	return v
}

func validField(name string) map[string]any {
	return map[string]any{
		"name":      name,
		"address":   "1 Riverside Rd, Seoul",
		"lat":       37.5,
		"lng":       127.0,
		"image":     "https://example.com/pitch.jpg",
		"grassType": "AG",
		"shoeType":  "tf",
	}
}

func validReview(stars int, tags ...string) map[string]any {
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		"rating":          stars,
		"content":         "great surface",
		"grassType":       "AG",
		"grassConditions": tags,
		"recommendedShoe": "TF",
	}
}

// approvedField submits a field as alice and approves it as admin.
func (e *testEnv) approvedField(t *testing.T, name string) model.Field {
	t.Helper()
	rr := e.do(t, e.alice, http.MethodPost, "/fields", validField(name))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	f := decode[model.Field](t, rr)

	rr = e.do(t, e.admin, http.MethodPatch, "/fields/"+f.ID+"/approve", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return decode[model.Field](t, rr)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, nil, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, rr))
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("disk gone") }

func TestHealth_Unavailable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := handler.NewHealthHandler(failingPinger{}, logger)

	rr := httptest.NewRecorder()
	h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestFieldHandler_CreateAndApprove(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, env.alice, http.MethodPost, "/fields", validField("Riverside Park"))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[model.Field](t, rr)
	assert.Equal(t, model.FieldPending, created.Status)
	assert.Equal(t, model.GrassTF, created.ShoeType)
	assert.Equal(t, env.alice.ID, created.SubmittedBy)

	t.Run("pending field hidden from public list", func(t *testing.T) {
		rr := env.do(t, nil, http.MethodGet, "/fields", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, decode[[]model.FieldDetail](t, rr))
	})

	t.Run("pending field visible to submitter only", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, env.do(t, env.alice, http.MethodGet, "/fields/"+created.ID, nil).Code)
		assert.Equal(t, http.StatusOK, env.do(t, env.admin, http.MethodGet, "/fields/"+created.ID, nil).Code)
		assert.Equal(t, http.StatusNotFound, env.do(t, env.bob, http.MethodGet, "/fields/"+created.ID, nil).Code)
		assert.Equal(t, http.StatusNotFound, env.do(t, nil, http.MethodGet, "/fields/"+created.ID, nil).Code)
	})

	t.Run("non-admin cannot list pending", func(t *testing.T) {
		rr := env.do(t, env.bob, http.MethodGet, "/fields/pending", nil)
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, "FORBIDDEN", decode[handler.ErrorResponse](t, rr).Code)
	})

	t.Run("admin lists pending", func(t *testing.T) {
		rr := env.do(t, env.admin, http.MethodGet, "/fields/pending", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		pending := decode[[]model.Field](t, rr)
		require.Len(t, pending, 1)
		assert.Equal(t, created.ID, pending[0].ID)
	})

	t.Run("approve", func(t *testing.T) {
		rr := env.do(t, env.admin, http.MethodPatch, "/fields/"+created.ID+"/approve", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, model.FieldApproved, decode[model.Field](t, rr).Status)

		rr = env.do(t, env.admin, http.MethodPatch, "/fields/"+created.ID+"/approve", nil)
		assert.Equal(t, http.StatusConflict, rr.Code)

		rr = env.do(t, nil, http.MethodGet, "/fields", nil)
		assert.Len(t, decode[[]model.FieldDetail](t, rr), 1)
	})
}

func TestFieldHandler_CreateValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name      string
		mutate    func(m map[string]any)
		wantField string
	}{
		{name: "missing name", mutate: func(m map[string]any) { m["name"] = "  " }, wantField: "name"},
		{name: "missing address", mutate: func(m map[string]any) { delete(m, "address") }, wantField: "address"},
		{name: "bad image", mutate: func(m map[string]any) { m["image"] = "ftp://x/y.png" }, wantField: "image"},
		{name: "bad grass", mutate: func(m map[string]any) { m["grassType"] = "ICE" }, wantField: "grassType"},
		{name: "bad shoe", mutate: func(m map[string]any) { m["shoeType"] = "" }, wantField: "shoeType"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := validField("Riverside")
			tt.mutate(body)

			rr := env.do(t, env.alice, http.MethodPost, "/fields", body)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			res := decode[handler.ErrorResponse](t, rr)
			assert.Equal(t, "validation_error", res.Error)
			assert.Equal(t, tt.wantField, res.Field)
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		rr := env.do(t, env.alice, http.MethodPost, "/fields", `{"name":`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "body", decode[handler.ErrorResponse](t, rr).Field)
	})

	t.Run("anonymous", func(t *testing.T) {
		rr := env.do(t, nil, http.MethodPost, "/fields", validField("Riverside"))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestFieldHandler_Search(t *testing.T) {
	env := newTestEnv(t)
	env.approvedField(t, "Riverside Park")
	env.approvedField(t, "Hilltop Arena")

	rr := env.do(t, nil, http.MethodGet, "/fields/search?keyword=RIVER", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	found := decode[[]model.FieldDetail](t, rr)
	require.Len(t, found, 1)
	assert.Equal(t, "Riverside Park", found[0].Name)

	rr = env.do(t, nil, http.MethodGet, "/fields/search?keyword=", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[[]model.FieldDetail](t, rr))
}

func TestReviewHandler(t *testing.T) {
	env := newTestEnv(t)
	field := env.approvedField(t, "Riverside Park")
	reviewsPath := "/fields/" + field.ID + "/reviews"

	rr := env.do(t, env.bob, http.MethodPost, reviewsPath, validReview(4, "HARD", "hard", "SHORT"))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	review := decode[model.Review](t, rr)
	assert.Equal(t, "Bob", review.Author)
	assert.Equal(t, []model.GrassCondition{model.ConditionHard, model.ConditionShort}, review.GrassConditions)

	t.Run("field detail reflects review", func(t *testing.T) {
		rr := env.do(t, nil, http.MethodGet, "/fields/"+field.ID, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		detail := decode[model.FieldDetail](t, rr)
		assert.Equal(t, 1, detail.ReviewCount)
		assert.InDelta(t, 4.0, detail.Rating.Average, 0.001)
		assert.Equal(t, 50, detail.GrassCondition.Hard)
		assert.Equal(t, 50, detail.GrassCondition.Short)
	})

	t.Run("invalid rating", func(t *testing.T) {
		rr := env.do(t, env.bob, http.MethodPost, reviewsPath, validReview(6))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "rating", decode[handler.ErrorResponse](t, rr).Field)
	})

	t.Run("content-only update by owner", func(t *testing.T) {
		rr := env.do(t, env.bob, http.MethodPut, "/reviews/"+review.ID, `{"content":"muddy after rain"}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		updated := decode[model.Review](t, rr)
		assert.Equal(t, "muddy after rain", updated.Content)
		assert.Equal(t, 4, updated.Rating)
	})

	t.Run("update by stranger forbidden", func(t *testing.T) {
		rr := env.do(t, env.alice, http.MethodPut, "/reviews/"+review.ID, `{"content":"mine now"}`)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("list", func(t *testing.T) {
		rr := env.do(t, nil, http.MethodGet, reviewsPath, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		page := decode[service.ReviewPageResult](t, rr)
		require.Len(t, page.Reviews, 1)
		assert.False(t, page.HasMore)
	})

	t.Run("admin deletes", func(t *testing.T) {
		rr := env.do(t, env.admin, http.MethodDelete, "/reviews/"+review.ID, nil)
		assert.Equal(t, http.StatusNoContent, rr.Code)

		rr = env.do(t, env.admin, http.MethodDelete, "/reviews/"+review.ID, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestReviewHandler_Pagination(t *testing.T) {
	env := newTestEnv(t)
	field := env.approvedField(t, "Riverside Park")
	reviewsPath := "/fields/" + field.ID + "/reviews"

	for i := 0; i < 12; i++ {
		rr := env.do(t, env.bob, http.MethodPost, reviewsPath, validReview(1+i%5))
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := env.do(t, nil, http.MethodGet, reviewsPath, nil)
	first := decode[service.ReviewPageResult](t, rr)
	require.Len(t, first.Reviews, 10)
	assert.True(t, first.HasMore)

	rr = env.do(t, nil, http.MethodGet, reviewsPath+"?lastId="+first.Reviews[9].ID, nil)
	second := decode[service.ReviewPageResult](t, rr)
	require.Len(t, second.Reviews, 2)
	assert.False(t, second.HasMore)

	seen := map[string]bool{}
	for _, rv := range append(first.Reviews, second.Reviews...) {
		assert.False(t, seen[rv.ID], "review %s returned twice", rv.ID)
		seen[rv.ID] = true
	}
}

func TestCommentHandler(t *testing.T) {
	env := newTestEnv(t)
	field := env.approvedField(t, "Riverside Park")

	rr := env.do(t, env.bob, http.MethodPost, "/fields/"+field.ID+"/reviews", validReview(5))
	require.Equal(t, http.StatusCreated, rr.Code)
	review := decode[model.Review](t, rr)
	commentsPath := "/reviews/" + review.ID + "/comments"

	rr = env.do(t, env.alice, http.MethodPost, commentsPath, map[string]any{"content": "agreed"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	root := decode[model.Comment](t, rr)
	assert.Nil(t, root.ParentID)
	assert.Equal(t, "Alice", root.Author)

	rr = env.do(t, env.bob, http.MethodPost, commentsPath, map[string]any{"content": "thanks", "parentId": root.ID})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	reply := decode[model.Comment](t, rr)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, root.ID, *reply.ParentID)

	t.Run("unknown parent", func(t *testing.T) {
		rr := env.do(t, env.bob, http.MethodPost, commentsPath, map[string]any{"content": "x", "parentId": "nope"})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "parentId", decode[handler.ErrorResponse](t, rr).Field)
	})

	t.Run("list is flat", func(t *testing.T) {
		rr := env.do(t, nil, http.MethodGet, commentsPath, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		list := decode[[]model.Comment](t, rr)
		require.Len(t, list, 2)
		assert.Empty(t, list[0].Replies)
	})

	t.Run("edit by owner", func(t *testing.T) {
		rr := env.do(t, env.alice, http.MethodPut, "/comments/"+root.ID, map[string]any{"content": "fully agreed"})
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "fully agreed", decode[model.Comment](t, rr).Content)
	})

	t.Run("delete by stranger forbidden", func(t *testing.T) {
		rr := env.do(t, env.bob, http.MethodDelete, "/comments/"+root.ID, nil)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("deleting root keeps reply", func(t *testing.T) {
		rr := env.do(t, env.alice, http.MethodDelete, "/comments/"+root.ID, nil)
		require.Equal(t, http.StatusNoContent, rr.Code)

		rr = env.do(t, nil, http.MethodGet, commentsPath, nil)
		list := decode[[]model.Comment](t, rr)
		require.Len(t, list, 1)
		assert.Equal(t, reply.ID, list[0].ID)
	})

	t.Run("comments on missing review", func(t *testing.T) {
		rr := env.do(t, nil, http.MethodGet, "/reviews/missing/comments", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
