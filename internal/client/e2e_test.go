package client_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/fieldfinder/internal/client"
	"github.com/sakif/fieldfinder/internal/model"
	"github.com/sakif/fieldfinder/internal/server"
	"github.com/sakif/fieldfinder/internal/thread"
	"github.com/sakif/fieldfinder/internal/tokenstore"
)

// newLiveClient starts the real server over an in-memory database and
// returns a factory for clients with their own token stores.
func newLiveClient(t *testing.T) func() *client.Client {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := server.New(context.Background(), server.Config{
		DBPath:      ":memory:",
		JWTSecret:   "e2e-secret-0123456789",
		AdminEmails: []string{"admin@example.com"},
		BcryptCost:  bcrypt.MinCost,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return func() *client.Client {
		return client.New(ts.URL, tokenstore.NewMemory(), logger, client.WithHTTPClient(ts.Client()))
	}
}

// loginAs signs up and stores the token in the client's store.
func loginAs(t *testing.T, c *client.Client, email, name string) *client.AuthResult {
	t.Helper()
	res, err := c.Signup(context.Background(), email, "correct-horse", name)
	require.NoError(t, err)
	require.NoError(t, tokenstore.SaveToken(c.Tokens(), res.Token))
	return res
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	newClient := newLiveClient(t)

	admin, alice, anon := newClient(), newClient(), newClient()
	adminRes := loginAs(t, admin, "admin@example.com", "Admin")
	aliceRes := loginAs(t, alice, "alice@example.com", "Alice")
	assert.Equal(t, model.RoleAdmin, adminRes.User.Role)

	require.NoError(t, anon.Health(ctx))

	me, err := alice.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, aliceRes.User.ID, me.ID)

	_, err = anon.Me(ctx)
	assert.True(t, client.IsUnauthorized(err))

	// Submit and approve a field.
	field, err := alice.CreateField(ctx, client.CreateFieldRequest{
		Name: "Riverside Park", Address: "1 Riverside Rd", Lat: 37.5, Lng: 127,
		Image: "https://example.com/p.jpg", GrassType: "AG", ShoeType: "TF",
	})
	require.NoError(t, err)
	assert.Equal(t, model.FieldPending, field.Status)

	_, err = alice.PendingFields(ctx)
	assert.True(t, client.IsForbidden(err))

	pending, err := admin.PendingFields(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = admin.ApproveField(ctx, field.ID)
	require.NoError(t, err)

	_, err = admin.ApproveField(ctx, field.ID)
	assert.True(t, client.IsConflict(err))

	found, err := anon.SearchFields(ctx, "riverside")
	require.NoError(t, err)
	require.Len(t, found, 1)

	// Reviews.
	rv, err := alice.CreateReview(ctx, field.ID, client.ReviewRequest{
		Rating: 5, Content: "lovely", GrassType: "AG", RecommendedShoe: "TF",
		GrassConditions: []string{"SLIPPERY"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", rv.Author)

	_, err = alice.CreateReview(ctx, field.ID, client.ReviewRequest{Rating: 0, Content: "x", GrassType: "AG", RecommendedShoe: "TF"})
	assert.True(t, client.IsValidation(err))

	content := "still lovely"
	rv, err = alice.UpdateReview(ctx, rv.ID, client.ReviewUpdate{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, "still lovely", rv.Content)
	assert.Equal(t, 5, rv.Rating)

	page, err := anon.Reviews(ctx, field.ID, "")
	require.NoError(t, err)
	require.Len(t, page.Reviews, 1)
	assert.False(t, page.HasMore)

	detail, err := anon.Field(ctx, field.ID)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, detail.Rating.Average, 0.001)
	assert.Equal(t, 100, detail.GrassCondition.Slippery)

	// Comments thread.
	root, err := admin.CreateComment(ctx, rv.ID, "is it wet?", "")
	require.NoError(t, err)
	_, err = alice.CreateComment(ctx, rv.ID, "after rain", root.ID)
	require.NoError(t, err)

	flat, err := anon.Comments(ctx, rv.ID)
	require.NoError(t, err)
	tree := thread.Build(flat)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Replies, 1)
	assert.Equal(t, "Alice", tree[0].Replies[0].Author)

	_, err = alice.UpdateComment(ctx, root.ID, "hijack")
	assert.True(t, client.IsForbidden(err))

	require.NoError(t, admin.DeleteComment(ctx, root.ID))
	flat, err = anon.Comments(ctx, rv.ID)
	require.NoError(t, err)
	assert.Len(t, flat, 1)
	assert.Empty(t, thread.Build(flat), "orphaned reply is not shown")
	assert.Len(t, thread.Orphans(flat), 1)

	require.NoError(t, alice.DeleteReview(ctx, rv.ID))
	_, err = anon.Comments(ctx, rv.ID)
	assert.True(t, client.IsNotFound(err))

	// Logout revokes the token server-side.
	require.NoError(t, alice.Logout(ctx))
	_, err = alice.Me(ctx)
	assert.True(t, client.IsUnauthorized(err))
}
