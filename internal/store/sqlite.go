package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/commonground-app/commonground/internal/problems"
)

// SQLiteStore implements Store using modernc.org/sqlite. Pointing it at
// the census database file puts platform tables and the denormalized
// geo records in the same single-file store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "store: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: sqlite exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS problems (
	id          TEXT PRIMARY KEY,
	slug        TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	definition  TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS connections (
	id        TEXT PRIMARY KEY,
	axis      TEXT NOT NULL,
	from_slug TEXT NOT NULL,
	to_slug   TEXT NOT NULL,
	UNIQUE (axis, from_slug, to_slug)
);

CREATE TABLE IF NOT EXISTS ratings (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	problem_slug TEXT NOT NULL,
	geo_id       TEXT NOT NULL DEFAULT '',
	org_id       TEXT NOT NULL DEFAULT '',
	value        INTEGER NOT NULL,
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (user_id, problem_slug, geo_id, org_id)
);

CREATE INDEX IF NOT EXISTS idx_connections_from ON connections(from_slug);
CREATE INDEX IF NOT EXISTS idx_connections_to ON connections(to_slug);
CREATE INDEX IF NOT EXISTS idx_ratings_problem ON ratings(problem_slug);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "store: sqlite migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertProblem(ctx context.Context, p problems.Problem) (*problems.Problem, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.Slug = problems.Slugify(p.Name)
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO problems (id, slug, name, definition, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (slug) DO UPDATE SET
			name = excluded.name,
			definition = CASE WHEN excluded.definition != '' THEN excluded.definition ELSE problems.definition END,
			description = CASE WHEN excluded.description != '' THEN excluded.description ELSE problems.description END`,
		p.ID, p.Slug, p.Name, p.Definition, p.Description, p.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "store: sqlite upsert problem %s", p.Slug)
	}
	return s.GetProblem(ctx, p.Slug)
}

func (s *SQLiteStore) GetProblem(ctx context.Context, slug string) (*problems.Problem, error) {
	var p problems.Problem
	err := s.db.QueryRowContext(ctx, `
		SELECT id, slug, name, definition, description, created_at
		FROM problems WHERE slug = ?`, slug,
	).Scan(&p.ID, &p.Slug, &p.Name, &p.Definition, &p.Description, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: sqlite get problem %s", slug)
	}
	return &p, nil
}

func (s *SQLiteStore) ListProblems(ctx context.Context, filter ProblemFilter) ([]problems.Problem, error) {
	query := `SELECT id, slug, name, definition, description, created_at FROM problems`
	var args []any
	if filter.Query != "" {
		query += ` WHERE name LIKE ?`
		args = append(args, "%"+filter.Query+"%")
	}
	query += ` ORDER BY slug LIMIT ?`
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultProblemLimit
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: sqlite list problems")
	}
	defer rows.Close()

	var out []problems.Problem
	for rows.Next() {
		var p problems.Problem
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name, &p.Definition, &p.Description, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "store: sqlite scan problem")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateConnection(ctx context.Context, c problems.Connection) (*problems.Connection, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO connections (id, axis, from_slug, to_slug)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (axis, from_slug, to_slug) DO NOTHING`,
		c.ID, string(c.Axis), c.From, c.To,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "store: sqlite create connection %s->%s", c.From, c.To)
	}
	return &c, nil
}

func (s *SQLiteStore) ListConnections(ctx context.Context, slug string) ([]problems.Connection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, axis, from_slug, to_slug
		FROM connections
		WHERE from_slug = ? OR to_slug = ?
		ORDER BY axis, from_slug, to_slug`, slug, slug)
	if err != nil {
		return nil, eris.Wrapf(err, "store: sqlite list connections for %s", slug)
	}
	defer rows.Close()

	var out []problems.Connection
	for rows.Next() {
		var c problems.Connection
		var axis string
		if err := rows.Scan(&c.ID, &axis, &c.From, &c.To); err != nil {
			return nil, eris.Wrap(err, "store: sqlite scan connection")
		}
		c.Axis = problems.Axis(axis)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpsertRating(ctx context.Context, r problems.Rating) (*problems.Rating, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ratings (id, user_id, problem_slug, geo_id, org_id, value, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, problem_slug, geo_id, org_id) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		r.ID, r.UserID, r.ProblemSlug, r.GeoID, r.OrgID, r.Value, r.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "store: sqlite upsert rating for %s", r.ProblemSlug)
	}
	return &r, nil
}

func (s *SQLiteStore) ListRatings(ctx context.Context, problemSlug string) ([]problems.Rating, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, problem_slug, geo_id, org_id, value, updated_at
		FROM ratings WHERE problem_slug = ?
		ORDER BY updated_at DESC`, problemSlug)
	if err != nil {
		return nil, eris.Wrapf(err, "store: sqlite list ratings for %s", problemSlug)
	}
	defer rows.Close()

	var out []problems.Rating
	for rows.Next() {
		var r problems.Rating
		if err := rows.Scan(&r.ID, &r.UserID, &r.ProblemSlug, &r.GeoID, &r.OrgID, &r.Value, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "store: sqlite scan rating")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ImportRegistry(ctx context.Context, reg *problems.Registry) (ImportResult, error) {
	var res ImportResult
	for _, p := range reg.Problems() {
		if _, err := s.UpsertProblem(ctx, p); err != nil {
			return res, err
		}
		res.Problems++
	}
	for _, c := range reg.Connections() {
		if _, err := s.CreateConnection(ctx, c); err != nil {
			return res, err
		}
		res.Connections++
	}
	return res, nil
}

func (s *SQLiteStore) SearchGeos(ctx context.Context, filter GeoSearchFilter) ([]GeoResult, error) {
	query := `
		SELECT logrecno, COALESCE(geoid, ''), name, sumlev, stusab, pop100, hu100
		FROM ghrp WHERE 1=1`
	var args []any
	if filter.Query != "" {
		query += ` AND name LIKE ?`
		args = append(args, "%"+filter.Query+"%")
	}
	if filter.Sumlev != "" {
		query += ` AND sumlev = ?`
		args = append(args, filter.Sumlev)
	}
	if filter.StateAbbr != "" {
		query += ` AND stusab = ?`
		args = append(args, strings.ToUpper(filter.StateAbbr))
	}
	query += ` ORDER BY pop100 DESC LIMIT ?`
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultGeoLimit
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: sqlite geo search")
	}
	defer rows.Close()

	var out []GeoResult
	for rows.Next() {
		var g GeoResult
		if err := rows.Scan(&g.Logrecno, &g.GEOID, &g.Name, &g.Sumlev, &g.Stusab, &g.Pop100, &g.HU100); err != nil {
			return nil, eris.Wrap(err, "store: sqlite scan geo result")
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
