package problems

import "time"

// Rating bounds, inclusive.
const (
	MinRating = 0
	MaxRating = 4
)

// Rating is one user's assessment of a problem within a context. GeoID
// and OrgID scope the rating; both may be empty for a global rating.
// One user has at most one rating per (problem, geo, org) context, so
// re-rating replaces.
type Rating struct {
	ID          string    `json:"id,omitempty"`
	UserID      string    `json:"user_id"`
	ProblemSlug string    `json:"problem_slug"`
	GeoID       string    `json:"geo_id,omitempty"`
	OrgID       string    `json:"org_id,omitempty"`
	Value       int       `json:"value"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// Validate checks required fields and the 0..4 scale.
func (r Rating) Validate() error {
	if r.UserID == "" {
		return &MissingFieldError{Entity: "rating", Field: "user_id"}
	}
	if r.ProblemSlug == "" {
		return &MissingFieldError{Entity: "rating", Field: "problem_slug"}
	}
	if r.Value < MinRating || r.Value > MaxRating {
		return &RatingBoundsError{Value: r.Value}
	}
	return nil
}
