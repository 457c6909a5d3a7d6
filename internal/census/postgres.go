package census

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/commonground-app/commonground/internal/db"
)

const defaultBatchSize = 50000

// PostgresStore implements Store on a pgx pool, using COPY protocol for
// the bulk paths.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, spec := range FileSpecs {
		if _, err := s.pool.Exec(ctx, CreateTableSQL(spec, Postgres)); err != nil {
			return eris.Wrapf(err, "census: pg create %s", spec.Table)
		}
	}
	if _, err := s.pool.Exec(ctx, CreateTableSQL(PlaceGeomSpec, Postgres)); err != nil {
		return eris.Wrapf(err, "census: pg create %s", PlaceGeomSpec.Table)
	}
	if _, err := s.pool.Exec(ctx, loadStatusSQL(Postgres)); err != nil {
		return eris.Wrap(err, "census: pg create load_status")
	}
	return nil
}

func (s *PostgresStore) Truncate(ctx context.Context, table string) error {
	sql := "TRUNCATE " + pgx.Identifier{table}.Sanitize()
	if _, err := s.pool.Exec(ctx, sql); err != nil {
		return eris.Wrapf(err, "census: pg truncate %s", table)
	}
	return nil
}

// BulkInsert loads rows via COPY in batches of batchSize (0 = default
// 50,000).
func (s *PostgresStore) BulkInsert(ctx context.Context, spec FileSpec, rows [][]any, batchSize int) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	columns := spec.ColumnNames()

	log := zap.L().With(
		zap.String("component", "census.copy"),
		zap.String("table", spec.Table),
		zap.Int("total_rows", len(rows)),
	)

	var total int64
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}

		n, err := db.CopyFrom(ctx, s.pool, spec.Table, columns, rows[i:end])
		if err != nil {
			return total, eris.Wrapf(err, "census: COPY into %s (batch %d-%d)", spec.Table, i, end)
		}
		total += n

		log.Debug("batch loaded",
			zap.Int("batch_start", i),
			zap.Int("batch_end", end),
			zap.Int64("batch_rows", n),
		)
	}

	return total, nil
}

func (s *PostgresStore) RowCount(ctx context.Context, table string) (int64, error) {
	var n int64
	row := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+pgx.Identifier{table}.Sanitize())
	if err := row.Scan(&n); err != nil {
		return 0, eris.Wrapf(err, "census: pg count %s", table)
	}
	return n, nil
}

func (s *PostgresStore) BuildJoined(ctx context.Context) error {
	for _, stmt := range BuildJoinedSQL() {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return eris.Wrapf(err, "census: pg build %s", JoinedTable)
		}
	}
	return nil
}

func (s *PostgresStore) QueryJoined(ctx context.Context, filter JoinFilter) ([]JoinedRow, error) {
	query, args := joinedQuerySQL(filter, Postgres)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "census: pg query %s", JoinedTable)
	}
	defer rows.Close()

	var out []JoinedRow
	for rows.Next() {
		var r JoinedRow
		if err := rows.Scan(
			&r.Logrecno, &r.Sumlev, &r.Geocomp, &r.Stusab, &r.Name, &r.GEOID,
			&r.Pop100, &r.HU100,
			&r.P0020001, &r.P0020002, &r.P0020003,
			&r.P0020004, &r.P0020005, &r.P0020006,
		); err != nil {
			return nil, eris.Wrap(err, "census: pg scan joined row")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) RecordLoad(ctx context.Context, file, table string, rowCount, durationMs int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO load_status (file_name, table_name, row_count, duration_ms)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (file_name) DO UPDATE SET
			table_name = EXCLUDED.table_name,
			row_count = EXCLUDED.row_count,
			loaded_at = now(),
			duration_ms = EXCLUDED.duration_ms`,
		file, table, rowCount, durationMs,
	)
	if err != nil {
		return eris.Wrap(err, "census: pg record load status")
	}
	return nil
}

func (s *PostgresStore) LoadStatus(ctx context.Context) ([]StatusRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT file_name, table_name, row_count, loaded_at, duration_ms
		FROM load_status
		ORDER BY file_name`)
	if err != nil {
		return nil, eris.Wrap(err, "census: pg query load status")
	}
	defer rows.Close()

	var status []StatusRow
	for rows.Next() {
		var sr StatusRow
		if err := rows.Scan(&sr.File, &sr.Table, &sr.RowCount, &sr.LoadedAt, &sr.DurationMs); err != nil {
			return nil, eris.Wrap(err, "census: pg scan load status row")
		}
		status = append(status, sr)
	}
	return status, rows.Err()
}

// Close is a no-op: the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }
