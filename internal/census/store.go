package census

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// JoinedTable is the denormalized output table: every header row joined
// with its population counts.
const JoinedTable = "ghrp"

// JoinFilter narrows a joined query. Zero values mean no filter on that
// column. Filters are conjunctive, so applying them in any order yields
// the same rows.
type JoinFilter struct {
	Sumlev    string // summary level, e.g. "160" for places
	StateAbbr string // state postal abbreviation (stusab)
	Geocomp   string // geographic component, "00" = full geography
	Limit     int    // 0 = no limit
}

// JoinedRow is one row of the denormalized table. The population fields
// are pointers: a header row with no matching population record carries
// nils, never fabricated zeros.
type JoinedRow struct {
	Logrecno int64
	Sumlev   string
	Geocomp  string
	Stusab   string
	Name     string
	GEOID    string
	Pop100   int64
	HU100    int64
	P0020001 *int64
	P0020002 *int64
	P0020003 *int64
	P0020004 *int64
	P0020005 *int64
	P0020006 *int64
}

// StatusRow records one completed file load.
type StatusRow struct {
	File       string
	Table      string
	RowCount   int64
	LoadedAt   time.Time
	DurationMs int64
}

// Store is the persistence interface for census data. Two backends
// implement it: sqlite (single-file output) and postgres (COPY fast
// path).
type Store interface {
	// Migrate creates all census tables.
	Migrate(ctx context.Context) error

	// Truncate empties a table before reload.
	Truncate(ctx context.Context, table string) error

	// BulkInsert loads typed rows into the spec's table in batches.
	BulkInsert(ctx context.Context, spec FileSpec, rows [][]any, batchSize int) (int64, error)

	// RowCount returns the number of rows in a table.
	RowCount(ctx context.Context, table string) (int64, error)

	// BuildJoined rebuilds the denormalized ghrp table from ghr and f02.
	BuildJoined(ctx context.Context) error

	// QueryJoined reads joined rows, optionally filtered.
	QueryJoined(ctx context.Context, filter JoinFilter) ([]JoinedRow, error)

	// RecordLoad upserts the load-status record for a completed file.
	RecordLoad(ctx context.Context, file, table string, rows int64, durationMs int64) error

	// LoadStatus returns the load history, ordered by file name.
	LoadStatus(ctx context.Context) ([]StatusRow, error)

	Close() error
}

// Dialect selects type names and placeholders when generating SQL.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// sqlType maps a column type to its SQL type name for the dialect.
func sqlType(t ColumnType, d Dialect) string {
	switch t {
	case Integer:
		return "INTEGER"
	case BigInt:
		if d == Postgres {
			return "BIGINT"
		}
		return "INTEGER"
	case Real:
		if d == Postgres {
			return "DOUBLE PRECISION"
		}
		return "REAL"
	case Blob:
		if d == Postgres {
			return "BYTEA"
		}
		return "BLOB"
	default:
		return "TEXT"
	}
}

// CreateTableSQL generates the DDL for a file spec's target table. The
// header and population tables key on logrecno; everything else is
// unconstrained reference data.
func CreateTableSQL(spec FileSpec, d Dialect) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", spec.Table)
	for i, c := range spec.Columns {
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, "\t%s %s", c.Name, sqlType(c.Type, d))
		if c.Name == "logrecno" && (spec.Table == "ghr" || spec.Table == "f02") {
			b.WriteString(" PRIMARY KEY")
		}
	}
	b.WriteString("\n)")
	return b.String()
}

// loadStatusSQL is the DDL for the load history table.
func loadStatusSQL(d Dialect) string {
	ts := "DATETIME NOT NULL DEFAULT (datetime('now'))"
	if d == Postgres {
		ts = "TIMESTAMPTZ NOT NULL DEFAULT now()"
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS load_status (
	file_name   TEXT PRIMARY KEY,
	table_name  TEXT NOT NULL,
	row_count   %s NOT NULL,
	loaded_at   %s,
	duration_ms %s NOT NULL
)`, sqlType(BigInt, d), ts, sqlType(BigInt, d))
}

// BuildJoinedSQL generates the statements that rebuild the denormalized
// table: drop, create-as-select with a left outer join on logrecno, and
// the query indexes. Column lists are enumerated from the specs so the
// joined table tracks the layout.
func BuildJoinedSQL() []string {
	ghr, _ := SpecByName("ghr")

	cols := make([]string, 0, len(ghr.Columns)+6)
	for _, c := range ghr.Columns {
		cols = append(cols, "g."+c.Name)
	}
	for _, c := range popColumns() {
		cols = append(cols, "f."+c)
	}

	create := fmt.Sprintf(
		"CREATE TABLE %s AS SELECT %s FROM ghr g LEFT JOIN f02 f ON f.logrecno = g.logrecno",
		JoinedTable, strings.Join(cols, ", "),
	)

	return []string{
		fmt.Sprintf("DROP TABLE IF EXISTS %s", JoinedTable),
		create,
		fmt.Sprintf("CREATE INDEX idx_%s_sumlev ON %s (sumlev)", JoinedTable, JoinedTable),
		fmt.Sprintf("CREATE INDEX idx_%s_stusab ON %s (stusab)", JoinedTable, JoinedTable),
		fmt.Sprintf("CREATE INDEX idx_%s_geoid ON %s (geoid)", JoinedTable, JoinedTable),
	}
}

// popColumns lists the population count columns carried from f02 into
// the joined table.
func popColumns() []string {
	return []string{"p0020001", "p0020002", "p0020003", "p0020004", "p0020005", "p0020006"}
}

// joinedQuerySQL builds the filtered read over the joined table.
// placeholder renders the i-th (1-based) bind parameter for the dialect.
func joinedQuerySQL(filter JoinFilter, d Dialect) (string, []any) {
	placeholder := func(i int) string {
		if d == Postgres {
			return fmt.Sprintf("$%d", i)
		}
		return "?"
	}

	var b strings.Builder
	// geoid is null for non-place records; coalesce so the scan target
	// stays a plain string.
	b.WriteString("SELECT logrecno, sumlev, geocomp, stusab, name, COALESCE(geoid, ''), pop100, hu100, ")
	b.WriteString(strings.Join(popColumns(), ", "))
	fmt.Fprintf(&b, " FROM %s", JoinedTable)

	var args []any
	var conds []string
	if filter.Sumlev != "" {
		args = append(args, filter.Sumlev)
		conds = append(conds, "sumlev = "+placeholder(len(args)))
	}
	if filter.StateAbbr != "" {
		args = append(args, strings.ToUpper(filter.StateAbbr))
		conds = append(conds, "stusab = "+placeholder(len(args)))
	}
	if filter.Geocomp != "" {
		args = append(args, filter.Geocomp)
		conds = append(conds, "geocomp = "+placeholder(len(args)))
	}
	if len(conds) > 0 {
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY logrecno")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		b.WriteString(" LIMIT " + placeholder(len(args)))
	}

	return b.String(), args
}
