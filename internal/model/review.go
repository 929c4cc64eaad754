package model

import "time"

// Length limits in characters, enforced by the server and checked early by clients.
const (
	MaxReviewLength  = 1000
	MaxCommentLength = 500
)

// Review is a rated, field-scoped text entry describing the grass condition and the
// recommended boots. Rating is an integer star value from 1 to 5.
type Review struct {
	ID              string           `json:"reviewId"`
	FieldID         string           `json:"fieldId"`
	UserID          string           `json:"userId"`
	Author          string           `json:"userName,omitempty"`
	Rating          int              `json:"rating"`
	Content         string           `json:"content"`
	GrassType       GrassType        `json:"grassType"`
	GrassConditions []GrassCondition `json:"grassConditions"`
	RecommendedShoe GrassType        `json:"recommendedShoe"`
	ShoeLink        string           `json:"shoeLink,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// Comment is a threaded reply attached to a review.
//
// FLAT VS TREE FORM:
// On the wire and in the database a comment only knows its ParentID.
// Replies is filled in by thread.Build and is nil in the flat form,
// so omitempty keeps it out of API payloads.
type Comment struct {
	ID        string     `json:"commentId"`
	ReviewID  string     `json:"reviewId"`
	UserID    string     `json:"userId"`
	Author    string     `json:"userName,omitempty"`
	Content   string     `json:"content"`
	ParentID  *string    `json:"parentId,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Replies   []*Comment `json:"replies,omitempty"`
}

// HasParent reports whether the comment was posted as a reply.
func (c *Comment) HasParent() bool {
	return c.ParentID != nil && *c.ParentID != ""
}
