package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/fieldfinder/internal/apperror"
	"github.com/sakif/fieldfinder/internal/model"
)

func TestCommentListByReview_FlatInCreationOrder(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "c@example.com", "Commenter")
	f := createTestField(t, db, "F", "addr", model.FieldApproved)
	rv := createTestReview(t, db, f.ID, u.ID, 5)

	root := createTestComment(t, db, rv.ID, u.ID, nil)
	reply := createTestComment(t, db, rv.ID, u.ID, &root.ID)
	second := createTestComment(t, db, rv.ID, u.ID, nil)

	got, err := db.Comments().ListByReview(context.Background(), rv.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, []string{root.ID, reply.ID, second.ID}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Nil(t, got[0].ParentID)
	require.NotNil(t, got[1].ParentID)
	assert.Equal(t, root.ID, *got[1].ParentID)
	assert.Equal(t, "Commenter", got[1].Author)
	assert.Nil(t, got[1].Replies, "storage never builds the tree")
}

func TestCommentUpdate_ContentOnly(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "c@example.com", "C")
	f := createTestField(t, db, "F", "addr", model.FieldApproved)
	rv := createTestReview(t, db, f.ID, u.ID, 5)
	c := createTestComment(t, db, rv.ID, u.ID, nil)
	before := c.UpdatedAt

	time.Sleep(2 * time.Millisecond)
	c.Content = "edited"
	require.NoError(t, db.Comments().Update(context.Background(), c))

	got, err := db.Comments().GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Content)
	assert.True(t, got.UpdatedAt.After(before), "UpdatedAt should move forward")
}

func TestCommentDelete_KeepsReplies(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "c@example.com", "C")
	f := createTestField(t, db, "F", "addr", model.FieldApproved)
	rv := createTestReview(t, db, f.ID, u.ID, 5)
	root := createTestComment(t, db, rv.ID, u.ID, nil)
	reply := createTestComment(t, db, rv.ID, u.ID, &root.ID)

	require.NoError(t, db.Comments().Delete(context.Background(), root.ID))

	got, err := db.Comments().ListByReview(context.Background(), rv.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, reply.ID, got[0].ID)
	assert.Equal(t, root.ID, *got[0].ParentID, "the reply is now an orphan")

	_, err = db.Comments().GetByID(context.Background(), root.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}
