package store

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/commonground-app/commonground/internal/db"
	"github.com/commonground-app/commonground/internal/problems"
)

// PostgresStore implements Store using pgx. Catalog imports go through
// the temp-table bulk upsert path.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var pgMigrations = []string{
	`CREATE TABLE IF NOT EXISTS problems (
		id          TEXT PRIMARY KEY,
		slug        TEXT NOT NULL UNIQUE,
		name        TEXT NOT NULL,
		definition  TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS connections (
		id        TEXT PRIMARY KEY,
		axis      TEXT NOT NULL,
		from_slug TEXT NOT NULL,
		to_slug   TEXT NOT NULL,
		UNIQUE (axis, from_slug, to_slug)
	)`,
	`CREATE TABLE IF NOT EXISTS ratings (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		problem_slug TEXT NOT NULL,
		geo_id       TEXT NOT NULL DEFAULT '',
		org_id       TEXT NOT NULL DEFAULT '',
		value        INTEGER NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, problem_slug, geo_id, org_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_connections_from ON connections(from_slug)`,
	`CREATE INDEX IF NOT EXISTS idx_connections_to ON connections(to_slug)`,
	`CREATE INDEX IF NOT EXISTS idx_ratings_problem ON ratings(problem_slug)`,
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range pgMigrations {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return eris.Wrap(err, "store: pg migrate")
		}
	}
	return nil
}

// Close is a no-op: the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

func (s *PostgresStore) UpsertProblem(ctx context.Context, p problems.Problem) (*problems.Problem, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.Slug = problems.Slugify(p.Name)
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO problems (id, slug, name, definition, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			definition = CASE WHEN EXCLUDED.definition != '' THEN EXCLUDED.definition ELSE problems.definition END,
			description = CASE WHEN EXCLUDED.description != '' THEN EXCLUDED.description ELSE problems.description END`,
		p.ID, p.Slug, p.Name, p.Definition, p.Description, p.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "store: pg upsert problem %s", p.Slug)
	}
	return s.GetProblem(ctx, p.Slug)
}

func (s *PostgresStore) GetProblem(ctx context.Context, slug string) (*problems.Problem, error) {
	var p problems.Problem
	err := s.pool.QueryRow(ctx, `
		SELECT id, slug, name, definition, description, created_at
		FROM problems WHERE slug = $1`, slug,
	).Scan(&p.ID, &p.Slug, &p.Name, &p.Definition, &p.Description, &p.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: pg get problem %s", slug)
	}
	return &p, nil
}

func (s *PostgresStore) ListProblems(ctx context.Context, filter ProblemFilter) ([]problems.Problem, error) {
	query := `SELECT id, slug, name, definition, description, created_at FROM problems`
	var args []any
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		query += ` WHERE name ILIKE $1`
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultProblemLimit
	}
	args = append(args, limit)
	query += ` ORDER BY slug LIMIT $` + itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: pg list problems")
	}
	defer rows.Close()

	var out []problems.Problem
	for rows.Next() {
		var p problems.Problem
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name, &p.Definition, &p.Description, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "store: pg scan problem")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateConnection(ctx context.Context, c problems.Connection) (*problems.Connection, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO connections (id, axis, from_slug, to_slug)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (axis, from_slug, to_slug) DO NOTHING`,
		c.ID, string(c.Axis), c.From, c.To,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "store: pg create connection %s->%s", c.From, c.To)
	}
	return &c, nil
}

func (s *PostgresStore) ListConnections(ctx context.Context, slug string) ([]problems.Connection, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, axis, from_slug, to_slug
		FROM connections
		WHERE from_slug = $1 OR to_slug = $1
		ORDER BY axis, from_slug, to_slug`, slug)
	if err != nil {
		return nil, eris.Wrapf(err, "store: pg list connections for %s", slug)
	}
	defer rows.Close()

	var out []problems.Connection
	for rows.Next() {
		var c problems.Connection
		var axis string
		if err := rows.Scan(&c.ID, &axis, &c.From, &c.To); err != nil {
			return nil, eris.Wrap(err, "store: pg scan connection")
		}
		c.Axis = problems.Axis(axis)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpsertRating(ctx context.Context, r problems.Rating) (*problems.Rating, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.UpdatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO ratings (id, user_id, problem_slug, geo_id, org_id, value, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, problem_slug, geo_id, org_id) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at`,
		r.ID, r.UserID, r.ProblemSlug, r.GeoID, r.OrgID, r.Value, r.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "store: pg upsert rating for %s", r.ProblemSlug)
	}
	return &r, nil
}

func (s *PostgresStore) ListRatings(ctx context.Context, problemSlug string) ([]problems.Rating, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, problem_slug, geo_id, org_id, value, updated_at
		FROM ratings WHERE problem_slug = $1
		ORDER BY updated_at DESC`, problemSlug)
	if err != nil {
		return nil, eris.Wrapf(err, "store: pg list ratings for %s", problemSlug)
	}
	defer rows.Close()

	var out []problems.Rating
	for rows.Next() {
		var r problems.Rating
		if err := rows.Scan(&r.ID, &r.UserID, &r.ProblemSlug, &r.GeoID, &r.OrgID, &r.Value, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "store: pg scan rating")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ImportRegistry bulk-loads a decoded catalog through the temp-table
// upsert path, one statement per table instead of one per row.
func (s *PostgresStore) ImportRegistry(ctx context.Context, reg *problems.Registry) (ImportResult, error) {
	var res ImportResult

	now := time.Now().UTC()
	var problemRows [][]any
	for _, p := range reg.Problems() {
		problemRows = append(problemRows, []any{
			uuid.New().String(), p.Slug, p.Name, p.Definition, p.Description, now,
		})
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "problems",
		Columns:      []string{"id", "slug", "name", "definition", "description", "created_at"},
		ConflictKeys: []string{"slug"},
		UpdateCols:   []string{"name", "definition", "description"},
	}, problemRows)
	if err != nil {
		return res, err
	}
	res.Problems = n

	var connRows [][]any
	for _, c := range reg.Connections() {
		connRows = append(connRows, []any{
			uuid.New().String(), string(c.Axis), c.From, c.To,
		})
	}
	n, err = db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "connections",
		Columns:      []string{"id", "axis", "from_slug", "to_slug"},
		ConflictKeys: []string{"axis", "from_slug", "to_slug"},
		UpdateCols:   []string{"axis"}, // conflict keys cover the whole edge; this update is a no-op
	}, connRows)
	if err != nil {
		return res, err
	}
	res.Connections = n

	return res, nil
}

func (s *PostgresStore) SearchGeos(ctx context.Context, filter GeoSearchFilter) ([]GeoResult, error) {
	query := `
		SELECT logrecno, COALESCE(geoid, ''), name, sumlev, stusab, pop100, hu100
		FROM ghrp WHERE 1=1`
	var args []any
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		query += ` AND name ILIKE $` + itoa(len(args))
	}
	if filter.Sumlev != "" {
		args = append(args, filter.Sumlev)
		query += ` AND sumlev = $` + itoa(len(args))
	}
	if filter.StateAbbr != "" {
		args = append(args, strings.ToUpper(filter.StateAbbr))
		query += ` AND stusab = $` + itoa(len(args))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultGeoLimit
	}
	args = append(args, limit)
	query += ` ORDER BY pop100 DESC LIMIT $` + itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: pg geo search")
	}
	defer rows.Close()

	var out []GeoResult
	for rows.Next() {
		var g GeoResult
		if err := rows.Scan(&g.Logrecno, &g.GEOID, &g.Name, &g.Sumlev, &g.Stusab, &g.Pop100, &g.HU100); err != nil {
			return nil, eris.Wrap(err, "store: pg scan geo result")
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
