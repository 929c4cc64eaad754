package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/fieldfinder/internal/apperror"
	"github.com/sakif/fieldfinder/internal/model"
	"github.com/sakif/fieldfinder/internal/thread"
)

func newReviewForComments(t *testing.T, fx *fixture) *model.Review {
	t.Helper()
	f := fx.approvedField("F", "addr")
	rv, err := fx.reviewSvc.Create(context.Background(), userIdentity("author"), f.ID, validReviewInput(4))
	require.NoError(t, err)
	return rv
}

func TestCommentCreate_RootAndReply(t *testing.T) {
	fx := newFixture()
	rv := newReviewForComments(t, fx)
	ctx := context.Background()

	root, err := fx.commentSvc.Create(ctx, userIdentity("u1"), rv.ID, "  great review ", nil)
	require.NoError(t, err)
	assert.Equal(t, "great review", root.Content)
	assert.False(t, root.HasParent())

	reply, err := fx.commentSvc.Create(ctx, userIdentity("u2"), rv.ID, "agreed", &root.ID)
	require.NoError(t, err)
	require.True(t, reply.HasParent())
	assert.Equal(t, root.ID, *reply.ParentID)

	flat, err := fx.commentSvc.List(ctx, rv.ID)
	require.NoError(t, err)

	roots := thread.Build(flat)
	require.Len(t, roots, 1)
	require.Len(t, roots[0].Replies, 1)
	assert.Equal(t, reply.ID, roots[0].Replies[0].ID)
}

func TestCommentCreate_Validation(t *testing.T) {
	fx := newFixture()
	rv := newReviewForComments(t, fx)
	other := newReviewForComments(t, fx)
	ctx := context.Background()

	foreign, err := fx.commentSvc.Create(ctx, userIdentity("u1"), other.ID, "elsewhere", nil)
	require.NoError(t, err)
	missing := "nope"

	tests := []struct {
		name      string
		content   string
		parentID  *string
		wantField string
	}{
		{"blank content", "   ", nil, "content"},
		{"too long", strings.Repeat("x", MaxCommentLength+1), nil, "content"},
		{"unknown parent", "hi", &missing, "parentId"},
		{"parent on another review", "hi", &foreign.ID, "parentId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.commentSvc.Create(ctx, userIdentity("u1"), rv.ID, tt.content, tt.parentID)
			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.ErrorIs(t, err, apperror.ErrValidation)
			assert.Equal(t, tt.wantField, appErr.Field)
		})
	}
}

func TestCommentCreate_UnknownReview(t *testing.T) {
	fx := newFixture()

	_, err := fx.commentSvc.Create(context.Background(), userIdentity("u1"), "missing", "hi", nil)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCommentUpdateAndDelete_Ownership(t *testing.T) {
	fx := newFixture()
	rv := newReviewForComments(t, fx)
	ctx := context.Background()

	c, err := fx.commentSvc.Create(ctx, userIdentity("u1"), rv.ID, "original", nil)
	require.NoError(t, err)

	_, err = fx.commentSvc.Update(ctx, userIdentity("u2"), c.ID, "edited")
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	updated, err := fx.commentSvc.Update(ctx, userIdentity("u1"), c.ID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)

	assert.ErrorIs(t, fx.commentSvc.Delete(ctx, userIdentity("u2"), c.ID), apperror.ErrForbidden)
	assert.NoError(t, fx.commentSvc.Delete(ctx, adminIdentity("a1"), c.ID))
}

func TestCommentDelete_LeavesOrphans(t *testing.T) {
	fx := newFixture()
	rv := newReviewForComments(t, fx)
	ctx := context.Background()

	root, _ := fx.commentSvc.Create(ctx, userIdentity("u1"), rv.ID, "root", nil)
	reply, _ := fx.commentSvc.Create(ctx, userIdentity("u2"), rv.ID, "reply", &root.ID)

	require.NoError(t, fx.commentSvc.Delete(ctx, userIdentity("u1"), root.ID))

	flat, err := fx.commentSvc.List(ctx, rv.ID)
	require.NoError(t, err)
	require.Len(t, flat, 1)
	assert.Equal(t, reply.ID, flat[0].ID)

	assert.Empty(t, thread.Build(flat), "the orphaned reply is dropped from the tree")
	assert.Len(t, thread.Orphans(flat), 1)
}
