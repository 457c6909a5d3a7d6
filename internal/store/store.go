// Package store persists the community platform entities: problems,
// connections, ratings, and search over the denormalized geographic
// records produced by the census load.
package store

import (
	"context"

	"github.com/commonground-app/commonground/internal/problems"
)

// ProblemFilter narrows a problem listing.
type ProblemFilter struct {
	Query string // substring match on name
	Limit int    // 0 = default 100
}

// GeoSearchFilter narrows a geographic search over the denormalized
// records.
type GeoSearchFilter struct {
	Query     string // substring match on the area name
	Sumlev    string // summary level, e.g. "160"
	StateAbbr string // state postal abbreviation
	Limit     int    // 0 = default 25
}

// GeoResult is one geographic search hit.
type GeoResult struct {
	Logrecno int64  `json:"logrecno"`
	GEOID    string `json:"geoid,omitempty"`
	Name     string `json:"name"`
	Sumlev   string `json:"sumlev"`
	Stusab   string `json:"stusab"`
	Pop100   int64  `json:"pop100"`
	HU100    int64  `json:"hu100"`
}

// ImportResult summarizes a catalog import.
type ImportResult struct {
	Problems    int64
	Connections int64
}

// Store defines the persistence interface for the platform.
type Store interface {
	// Problems
	UpsertProblem(ctx context.Context, p problems.Problem) (*problems.Problem, error)
	GetProblem(ctx context.Context, slug string) (*problems.Problem, error)
	ListProblems(ctx context.Context, filter ProblemFilter) ([]problems.Problem, error)

	// Connections
	CreateConnection(ctx context.Context, c problems.Connection) (*problems.Connection, error)
	ListConnections(ctx context.Context, slug string) ([]problems.Connection, error)

	// Ratings. Upsert replaces an existing rating with the same
	// (user, problem, geo, org) context.
	UpsertRating(ctx context.Context, r problems.Rating) (*problems.Rating, error)
	ListRatings(ctx context.Context, problemSlug string) ([]problems.Rating, error)

	// ImportRegistry bulk-loads a decoded catalog.
	ImportRegistry(ctx context.Context, reg *problems.Registry) (ImportResult, error)

	// SearchGeos queries the denormalized census records.
	SearchGeos(ctx context.Context, filter GeoSearchFilter) ([]GeoResult, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const (
	defaultProblemLimit = 100
	defaultGeoLimit     = 25
)
