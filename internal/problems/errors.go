package problems

import "fmt"

// MissingFieldError reports an entity missing a required field.
type MissingFieldError struct {
	Entity string
	Field  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("problems: %s is missing required field %q", e.Entity, e.Field)
}

// FieldCollisionError reports a re-registration that disagrees with an
// already-registered scalar field. Filling an empty field is a merge;
// changing a non-empty one is a collision.
type FieldCollisionError struct {
	Slug  string
	Field string
	Old   string
	New   string
}

func (e *FieldCollisionError) Error() string {
	return fmt.Sprintf("problems: %s: field %q already set to %q, conflicting value %q", e.Slug, e.Field, e.Old, e.New)
}

// InvalidAxisError reports a connection axis outside {causal, scope}.
type InvalidAxisError struct {
	Axis string
}

func (e *InvalidAxisError) Error() string {
	return fmt.Sprintf("problems: invalid connection axis %q", e.Axis)
}

// CircularConnectionError reports a connection from a problem to itself.
type CircularConnectionError struct {
	Slug string
	Axis Axis
}

func (e *CircularConnectionError) Error() string {
	return fmt.Sprintf("problems: %s connection from %q to itself", e.Axis, e.Slug)
}

// RatingBoundsError reports a rating value outside the 0..4 scale.
type RatingBoundsError struct {
	Value int
}

func (e *RatingBoundsError) Error() string {
	return fmt.Sprintf("problems: rating %d out of bounds [0, 4]", e.Value)
}
