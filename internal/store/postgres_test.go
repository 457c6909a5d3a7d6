package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commonground-app/commonground/internal/problems"
)

func newMockPlatformStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgres(mock), mock
}

func TestPGMigrate(t *testing.T) {
	s, mock := newMockPlatformStore(t)

	for range pgMigrations {
		mock.ExpectExec(`CREATE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGUpsertProblem(t *testing.T) {
	s, mock := newMockPlatformStore(t)
	now := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO problems`).
		WithArgs(pgxmock.AnyArg(), "poverty", "Poverty", "lack of basic resources", "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT id, slug, name, definition, description, created_at\s+FROM problems WHERE slug = \$1`).
		WithArgs("poverty").
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "slug", "name", "definition", "description", "created_at"},
		).AddRow("p1", "poverty", "Poverty", "lack of basic resources", "", now))

	p, err := s.UpsertProblem(context.Background(), problems.Problem{
		Name:       "Poverty",
		Definition: "lack of basic resources",
	})
	require.NoError(t, err)
	assert.Equal(t, "poverty", p.Slug)
	assert.Equal(t, "lack of basic resources", p.Definition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGUpsertProblemValidates(t *testing.T) {
	s, _ := newMockPlatformStore(t)
	_, err := s.UpsertProblem(context.Background(), problems.Problem{})
	var missing *problems.MissingFieldError
	require.ErrorAs(t, err, &missing)
}

func TestPGGetProblemNotFound(t *testing.T) {
	s, mock := newMockPlatformStore(t)

	mock.ExpectQuery(`(?s)SELECT .+ FROM problems WHERE slug = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	p, err := s.GetProblem(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, p)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGListProblemsQuery(t *testing.T) {
	s, mock := newMockPlatformStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .+ FROM problems WHERE name ILIKE \$1 ORDER BY slug LIMIT \$2`).
		WithArgs("%Pov%", defaultProblemLimit).
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "slug", "name", "definition", "description", "created_at"},
		).AddRow("p1", "poverty", "Poverty", "", "", now))

	list, err := s.ListProblems(context.Background(), ProblemFilter{Query: "Pov"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "poverty", list[0].Slug)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGCreateConnection(t *testing.T) {
	s, mock := newMockPlatformStore(t)

	mock.ExpectExec(`INSERT INTO connections`).
		WithArgs(pgxmock.AnyArg(), "causal", "drought", "poverty").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	c, err := s.CreateConnection(context.Background(), problems.Connection{
		Axis: problems.AxisCausal, From: "drought", To: "poverty",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGUpsertRating(t *testing.T) {
	s, mock := newMockPlatformStore(t)

	mock.ExpectExec(`INSERT INTO ratings`).
		WithArgs(pgxmock.AnyArg(), "u1", "poverty", "3525170", "", 3, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	r, err := s.UpsertRating(context.Background(), problems.Rating{
		UserID: "u1", ProblemSlug: "poverty", GeoID: "3525170", Value: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, r.Value)
	assert.False(t, r.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGUpsertRatingValidates(t *testing.T) {
	s, _ := newMockPlatformStore(t)
	_, err := s.UpsertRating(context.Background(), problems.Rating{
		UserID: "u1", ProblemSlug: "poverty", Value: 9,
	})
	var bounds *problems.RatingBoundsError
	require.ErrorAs(t, err, &bounds)
}

func TestPGImportRegistryBulkUpserts(t *testing.T) {
	s, mock := newMockPlatformStore(t)

	catalog := `{"problems": [
		{"name": "Poverty", "drivers": ["Drought"]},
		{"name": "Drought"}
	]}`
	reg, err := problems.DecodeCatalog(strings.NewReader(catalog))
	require.NoError(t, err)

	problemCols := []string{"id", "slug", "name", "definition", "description", "created_at"}
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_problems"`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_problems"}, problemCols).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "problems"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	connCols := []string{"id", "axis", "from_slug", "to_slug"}
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_connections"`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_connections"}, connCols).
		WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "connections"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	res, err := s.ImportRegistry(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Problems)
	assert.Equal(t, int64(1), res.Connections)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGSearchGeos(t *testing.T) {
	s, mock := newMockPlatformStore(t)

	mock.ExpectQuery(`(?s)SELECT .+ FROM ghrp WHERE 1=1 AND name ILIKE \$1 AND stusab = \$2 ORDER BY pop100 DESC LIMIT \$3`).
		WithArgs("%Espanola%", "NM", defaultGeoLimit).
		WillReturnRows(pgxmock.NewRows(
			[]string{"logrecno", "geoid", "name", "sumlev", "stusab", "pop100", "hu100"},
		).AddRow(int64(2), "3525170", "Espanola city", "160", "NM", int64(10224), int64(4335)))

	hits, err := s.SearchGeos(context.Background(), GeoSearchFilter{
		Query:     "Espanola",
		StateAbbr: "nm",
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "3525170", hits[0].GEOID)
	assert.Equal(t, int64(10224), hits[0].Pop100)
	require.NoError(t, mock.ExpectationsWereMet())
}
