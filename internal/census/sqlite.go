package census

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a single-file SQLite database. This is
// the default backend: the entire loaded dataset travels as one file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "census: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "census: sqlite exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	for _, spec := range FileSpecs {
		if _, err := s.db.ExecContext(ctx, CreateTableSQL(spec, SQLite)); err != nil {
			return eris.Wrapf(err, "census: sqlite create %s", spec.Table)
		}
	}
	if _, err := s.db.ExecContext(ctx, CreateTableSQL(PlaceGeomSpec, SQLite)); err != nil {
		return eris.Wrapf(err, "census: sqlite create %s", PlaceGeomSpec.Table)
	}
	if _, err := s.db.ExecContext(ctx, loadStatusSQL(SQLite)); err != nil {
		return eris.Wrap(err, "census: sqlite create load_status")
	}
	return nil
}

func (s *SQLiteStore) Truncate(ctx context.Context, table string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return eris.Wrapf(err, "census: sqlite truncate %s", table)
	}
	return nil
}

// BulkInsert loads rows inside per-batch transactions with a prepared
// statement. One transaction per batch keeps memory flat on the
// multi-hundred-thousand-row header file.
func (s *SQLiteStore) BulkInsert(ctx context.Context, spec FileSpec, rows [][]any, batchSize int) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	cols := spec.ColumnNames()
	marks := strings.Repeat("?, ", len(cols))
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		spec.Table, strings.Join(cols, ", "), strings.TrimSuffix(marks, ", "))

	log := zap.L().With(
		zap.String("component", "census.sqlite"),
		zap.String("table", spec.Table),
		zap.Int("total_rows", len(rows)),
	)

	var total int64
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return total, eris.Wrap(err, "census: sqlite begin tx")
		}
		stmt, err := tx.PrepareContext(ctx, insertSQL)
		if err != nil {
			tx.Rollback()
			return total, eris.Wrapf(err, "census: sqlite prepare insert %s", spec.Table)
		}
		for _, row := range rows[i:end] {
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				stmt.Close()
				tx.Rollback()
				return total, eris.Wrapf(err, "census: sqlite insert into %s", spec.Table)
			}
			total++
		}
		stmt.Close()
		if err := tx.Commit(); err != nil {
			return total, eris.Wrapf(err, "census: sqlite commit %s", spec.Table)
		}

		log.Debug("batch loaded", zap.Int("batch_start", i), zap.Int("batch_end", end))
	}

	return total, nil
}

func (s *SQLiteStore) RowCount(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, eris.Wrapf(err, "census: sqlite count %s", table)
	}
	return n, nil
}

func (s *SQLiteStore) BuildJoined(ctx context.Context) error {
	for _, stmt := range BuildJoinedSQL() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "census: sqlite build %s", JoinedTable)
		}
	}
	return nil
}

func (s *SQLiteStore) QueryJoined(ctx context.Context, filter JoinFilter) ([]JoinedRow, error) {
	query, args := joinedQuerySQL(filter, SQLite)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "census: sqlite query %s", JoinedTable)
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
			return nil, eris.Wrap(err, "census: sqlite scan joined row")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) RecordLoad(ctx context.Context, file, table string, rowCount, durationMs int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO load_status (file_name, table_name, row_count, duration_ms)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (file_name) DO UPDATE SET
			table_name = excluded.table_name,
			row_count = excluded.row_count,
			loaded_at = datetime('now'),
			duration_ms = excluded.duration_ms`,
		file, table, rowCount, durationMs,
	)
	if err != nil {
		return eris.Wrap(err, "census: sqlite record load status")
	}
	return nil
}

func (s *SQLiteStore) LoadStatus(ctx context.Context) ([]StatusRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_name, table_name, row_count, loaded_at, duration_ms
		FROM load_status
		ORDER BY file_name`)
	if err != nil {
		return nil, eris.Wrap(err, "census: sqlite query load status")
	}
	defer rows.Close()

	var status []StatusRow
	for rows.Next() {
		var sr StatusRow
		if err := rows.Scan(&sr.File, &sr.Table, &sr.RowCount, &sr.LoadedAt, &sr.DurationMs); err != nil {
			return nil, eris.Wrap(err, "census: sqlite scan load status row")
		}
		status = append(status, sr)
	}
	return status, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
