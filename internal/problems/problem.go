// Package problems models the community problem catalog: problems,
// the causal and scope connections between them, and user ratings of a
// problem within a geographic or organizational context.
package problems

import (
	"strings"
	"time"
	"unicode"
)

// Problem is one tracked community problem. Slug is derived from the
// name and identifies the problem everywhere: in connections, ratings,
// catalog imports, and API paths.
type Problem struct {
	ID          string    `json:"id,omitempty"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Definition  string    `json:"definition,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Slugify derives a problem slug from its name: lower case, runs of
// non-alphanumeric characters collapsed to single underscores.
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		} else {
			pendingSep = true
		}
	}
	return b.String()
}

// Validate checks the fields a problem must carry before registration.
func (p Problem) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &MissingFieldError{Entity: "problem", Field: "name"}
	}
	return nil
}
