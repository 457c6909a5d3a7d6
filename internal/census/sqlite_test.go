package census

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLite(filepath.Join(t.TempDir(), "census.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

// seedJoined loads three header records and population counts for two of
// them, so the third exercises the outer side of the join.
func seedJoined(t *testing.T, store *SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	lines := []string{
		ghrTestLine(t, map[string]string{
			"fileid": "SF1ST", "stusab": "NM", "sumlev": "160", "geocomp": "00",
			"logrecno": "0000001", "statefp": "35", "placefp": "25170",
			"name": "Espanola city", "pop100": "10224", "hu100": "4200",
		}),
		ghrTestLine(t, map[string]string{
			"fileid": "SF1ST", "stusab": "NM", "sumlev": "040", "geocomp": "00",
			"logrecno": "0000002", "statefp": "35",
			"name": "New Mexico", "pop100": "2059179", "hu100": "901388",
		}),
		ghrTestLine(t, map[string]string{
			"fileid": "SF1ST", "stusab": "TX", "sumlev": "160", "geocomp": "00",
			"logrecno": "0000003", "statefp": "48", "placefp": "05000",
			"name": "Austin city", "pop100": "790390", "hu100": "354241",
		}),
	}
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	ghrPath := writeTestFile(t, dir, "usgeo2010.sf1", content)

	ghrSpec, _ := SpecByName("ghr")
	ghrRows, err := ParseFile(ctx, ghrSpec, ghrPath)
	require.NoError(t, err)
	_, err = store.BulkInsert(ctx, ghrSpec, ghrRows, 0)
	require.NoError(t, err)

	f02Path := writeTestFile(t, dir, "us000022010.sf1",
		"SF1ST,NM,000,02,0000001,10224,9379,151,87,33,574\n"+
			"SF1ST,TX,000,02,0000003,790390,600000,100000,50000,20000,20390\n")
	f02Spec, _ := SpecByName("f02")
	f02Rows, err := ParseFile(ctx, f02Spec, f02Path)
	require.NoError(t, err)
	_, err = store.BulkInsert(ctx, f02Spec, f02Rows, 0)
	require.NoError(t, err)

	require.NoError(t, store.BuildJoined(ctx))
}

func TestBuildJoinedPreservesHeaderRows(t *testing.T) {
	store := newTestStore(t)
	seedJoined(t, store)
	ctx := context.Background()

	// Every header row survives the join, matched or not.
	ghrCount, err := store.RowCount(ctx, "ghr")
	require.NoError(t, err)
	joinedCount, err := store.RowCount(ctx, JoinedTable)
	require.NoError(t, err)
	assert.Equal(t, ghrCount, joinedCount)

	rows, err := store.QueryJoined(ctx, JoinFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Ordered by logrecno.
	assert.Equal(t, int64(1), rows[0].Logrecno)
	assert.Equal(t, int64(2), rows[1].Logrecno)
	assert.Equal(t, int64(3), rows[2].Logrecno)

	// Matched rows carry their counts.
	require.NotNil(t, rows[0].P0020001)
	assert.Equal(t, int64(10224), *rows[0].P0020001)
	require.NotNil(t, rows[0].P0020006)
	assert.Equal(t, int64(574), *rows[0].P0020006)

	// The unmatched row carries nils, not fabricated zeros.
	assert.Nil(t, rows[1].P0020001)
	assert.Nil(t, rows[1].P0020006)
	assert.Equal(t, int64(2059179), rows[1].Pop100)

	// The state record has no derived geoid; it reads back as empty
	// rather than aborting the scan on null.
	assert.Empty(t, rows[1].GEOID)
	assert.Equal(t, "3525170", rows[0].GEOID)
}

func TestQueryJoinedFilters(t *testing.T) {
	store := newTestStore(t)
	seedJoined(t, store)
	ctx := context.Background()

	places, err := store.QueryJoined(ctx, JoinFilter{Sumlev: "160"})
	require.NoError(t, err)
	require.Len(t, places, 2)
	assert.Equal(t, "3525170", places[0].GEOID)
	assert.Equal(t, "4805000", places[1].GEOID)

	// Lower-case state abbreviation is normalized.
	nm, err := store.QueryJoined(ctx, JoinFilter{StateAbbr: "nm"})
	require.NoError(t, err)
	require.Len(t, nm, 2)

	// Combined filters intersect.
	nmPlaces, err := store.QueryJoined(ctx, JoinFilter{Sumlev: "160", StateAbbr: "NM"})
	require.NoError(t, err)
	require.Len(t, nmPlaces, 1)
	assert.Equal(t, "Espanola city", nmPlaces[0].Name)

	// Limit caps the result.
	limited, err := store.QueryJoined(ctx, JoinFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, int64(1), limited[0].Logrecno)

	// No match is empty, not an error.
	none, err := store.QueryJoined(ctx, JoinFilter{StateAbbr: "WY"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBuildJoinedRebuilds(t *testing.T) {
	store := newTestStore(t)
	seedJoined(t, store)
	ctx := context.Background()

	// Rebuilding replaces the joined table rather than failing on the
	// existing one.
	require.NoError(t, store.BuildJoined(ctx))
	n, err := store.RowCount(ctx, JoinedTable)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestSQLiteBulkInsertBatching(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	spec, _ := SpecByName("state")
	rows := [][]any{
		{"35", "NM", "New Mexico", "00897535"},
		{"48", "TX", "Texas", "01779801"},
		{"06", "CA", "California", "01779778"},
	}
	// Batch size smaller than the row count exercises the chunking.
	n, err := store.BulkInsert(ctx, spec, rows, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	count, err := store.RowCount(ctx, "state")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestSQLiteBulkInsertEmpty(t *testing.T) {
	store := newTestStore(t)
	spec, _ := SpecByName("state")
	n, err := store.BulkInsert(context.Background(), spec, nil, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteTruncate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	spec, _ := SpecByName("state")
	_, err := store.BulkInsert(ctx, spec, [][]any{{"35", "NM", "New Mexico", "00897535"}}, 0)
	require.NoError(t, err)

	require.NoError(t, store.Truncate(ctx, "state"))
	n, err := store.RowCount(ctx, "state")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteRecordLoadUpserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordLoad(ctx, "state", "state", 2, 10))
	require.NoError(t, store.RecordLoad(ctx, "state", "state", 51, 25))

	status, err := store.LoadStatus(ctx)
	require.NoError(t, err)
	require.Len(t, status, 1)
	assert.Equal(t, int64(51), status[0].RowCount)
	assert.Equal(t, int64(25), status[0].DurationMs)
	assert.False(t, status[0].LoadedAt.IsZero())
}

func TestSQLiteMigrateIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Migrate(context.Background()))
}
