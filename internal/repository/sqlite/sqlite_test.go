package sqlite

import (
	"context"
	"testing"

	"github.com/sakif/fieldfinder/internal/model"
)

// newTestDB opens a fresh, migrated in-memory database for one test.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, email, name string) *model.User {
	t.Helper()
	u := &model.User{Email: email, Name: name, PasswordHash: "$2a$04$hash"}
	if err := db.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

func createTestField(t *testing.T, db *DB, name, address string, status model.FieldStatus) *model.Field {
	t.Helper()
	f := &model.Field{
		Name:      name,
		Address:   address,
		GrassType: model.GrassAG,
		ShoeType:  model.GrassTF,
		Status:    status,
	}
	if err := db.Fields().Create(context.Background(), f); err != nil {
		t.Fatalf("failed to create test field: %v", err)
	}
	return f
}

func createTestReview(t *testing.T, db *DB, fieldID, userID string, stars int, tags ...model.GrassCondition) *model.Review {
	t.Helper()
	rv := &model.Review{
		FieldID:         fieldID,
		UserID:          userID,
		Rating:          stars,
		Content:         "solid pitch",
		GrassType:       model.GrassAG,
		GrassConditions: tags,
		RecommendedShoe: model.GrassTF,
	}
	if err := db.Reviews().Create(context.Background(), rv); err != nil {
		t.Fatalf("failed to create test review: %v", err)
	}
	return rv
}

func createTestComment(t *testing.T, db *DB, reviewID, userID string, parentID *string) *model.Comment {
	t.Helper()
	c := &model.Comment{ReviewID: reviewID, UserID: userID, Content: "agreed", ParentID: parentID}
	if err := db.Comments().Create(context.Background(), c); err != nil {
		t.Fatalf("failed to create test comment: %v", err)
	}
	return c
}

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	db := newTestDB(t)

	if err := db.MigrateUp(context.Background()); err != nil {
		t.Fatalf("second MigrateUp() error = %v", err)
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}
