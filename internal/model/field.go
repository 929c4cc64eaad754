package model

import "time"

// FieldStatus tracks a submitted field through admin approval.
// Only APPROVED fields are listed or searchable.
type FieldStatus string

const (
	FieldPending  FieldStatus = "PENDING"
	FieldApproved FieldStatus = "APPROVED"
)

// Field represents a soccer pitch.
//
// Rating and GrassCondition are derived values: the server computes them from the
// field's reviews, and the client updates them locally when it adds or removes a
// review. They are never written to the fields table.
type Field struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Address     string      `json:"address"`
	Lat         float64     `json:"lat"`
	Lng         float64     `json:"lng"`
	Image       string      `json:"image,omitempty"`
	GrassType   GrassType   `json:"grassType"`
	ShoeType    GrassType   `json:"shoeType"`
	Status      FieldStatus `json:"status"`
	SubmittedBy string      `json:"submittedBy,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Rating is the aggregate star rating of a field.
// Distribution is keyed by star value 1..5.
type Rating struct {
	Average      float64     `json:"average"`
	Distribution map[int]int `json:"distribution"`
}

// ConditionSummary is the percentage breakdown of the four summarised grass conditions.
type ConditionSummary struct {
	Hard     int `json:"hard"`
	Short    int `json:"short"`
	Slippery int `json:"slippery"`
	Bumpy    int `json:"bumpy"`
}

// FieldDetail is a Field with its derived aggregates attached.
type FieldDetail struct {
	Field
	GrassDescriptor GrassDescriptor  `json:"grassTypeInfo"`
	ShoeDescriptor  GrassDescriptor  `json:"shoeTypeInfo"`
	Rating          Rating           `json:"rating"`
	GrassCondition  ConditionSummary `json:"grassCondition"`
	ReviewCount     int              `json:"reviewCount"`
}
