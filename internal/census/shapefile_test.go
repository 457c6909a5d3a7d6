package census

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commonground-app/commonground/internal/fetcher"
)

// writePlaceShapefile builds a minimal TIGER-style place shapefile with
// one unit-square polygon per place. Each place is geoid, statefp,
// placefp, name.
func writePlaceShapefile(t *testing.T, dir, fips string, places [][4]string) string {
	t.Helper()

	base := filepath.Join(dir, fmt.Sprintf("tl_2010_%s_place10", fips))
	w, err := shp.Create(base+".shp", shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("GEOID10", 10),
		shp.StringField("STATEFP10", 2),
		shp.StringField("PLACEFP10", 5),
		shp.StringField("NAME10", 40),
	}))

	for i, p := range places {
		poly := &shp.Polygon{
			Box:       shp.Box{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1},
			NumParts:  1,
			NumPoints: 5,
			Parts:     []int32{0},
			Points: []shp.Point{
				{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0},
			},
		}
		w.Write(poly)
		for f, val := range p {
			require.NoError(t, w.WriteAttribute(i, f, val))
		}
	}
	w.Close()
	// go-shp v0.1.1's SetFields creates the attribute file as
	// "<base>dbf" (no dot); rename it to the ".dbf" the reader expects.
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
	return base + ".shp"
}

// zipShapefile packs the .shp/.shx/.dbf siblings the way TIGER
// distributes them.
func zipShapefile(t *testing.T, shpPath string) []byte {
	t.Helper()

	var buf []byte
	tmp := filepath.Join(t.TempDir(), "bundle.zip")
	f, err := os.Create(tmp)
	require.NoError(t, err)
	zw := zip.NewWriter(f)

	base := shpPath[:len(shpPath)-len(".shp")]
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		data, readErr := os.ReadFile(base + ext)
		require.NoError(t, readErr)
		member, createErr := zw.Create(filepath.Base(base) + ext)
		require.NoError(t, createErr)
		_, err = member.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	buf, err = os.ReadFile(tmp)
	require.NoError(t, err)
	return buf
}

// fixtureFetcher serves canned zip bodies by URL and records what was
// asked for.
type fixtureFetcher struct {
	mu    sync.Mutex
	files map[string][]byte
	urls  []string
}

func (f *fixtureFetcher) Download(_ context.Context, url string) (io.ReadCloser, error) {
	return nil, fmt.Errorf("unexpected Download of %s", url)
}

func (f *fixtureFetcher) DownloadToFile(_ context.Context, url, path string) (int64, error) {
	f.mu.Lock()
	data, ok := f.files[url]
	f.urls = append(f.urls, url)
	f.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("no fixture for %s", url)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

var _ fetcher.Fetcher = (*fixtureFetcher)(nil)

func TestPlaceShapefileURL(t *testing.T) {
	url := PlaceShapefileURL(2010, "35")
	assert.Equal(t,
		"https://www2.census.gov/geo/tiger/TIGER2010/PLACE/2010/tl_2010_35_place10.zip",
		url)
}

func TestParsePlaceShapefile(t *testing.T) {
	shpPath := writePlaceShapefile(t, t.TempDir(), "35", [][4]string{
		{"3525170", "35", "25170", "Espanola"},
		{"3502000", "35", "02000", "Albuquerque"},
	})

	rows, err := ParsePlaceShapefile(shpPath)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "3525170", rows[0][0])
	assert.Equal(t, "35", rows[0][1])
	assert.Equal(t, "25170", rows[0][2])
	assert.Equal(t, "Espanola", rows[0][3])

	// Last column is the encoded geometry.
	wkb, ok := rows[0][4].([]byte)
	require.True(t, ok)
	assert.NotEmpty(t, wkb)

	assert.Equal(t, "Albuquerque", rows[1][3])
}

func TestLoadPlaceGeometryConcurrent(t *testing.T) {
	fixtures := map[string][]byte{}
	for fips, places := range map[string][][4]string{
		"35": {{"3525170", "35", "25170", "Espanola"}},
		"48": {{"4805000", "48", "05000", "Austin"}, {"4827000", "48", "27000", "Fort Worth"}},
	} {
		shpPath := writePlaceShapefile(t, t.TempDir(), fips, places)
		fixtures[PlaceShapefileURL(2010, fips)] = zipShapefile(t, shpPath)
	}
	http := &fixtureFetcher{files: fixtures}

	store := newTestStore(t)
	ctx := context.Background()

	n, err := LoadPlaceGeometry(ctx, store, TigerOptions{
		StateFIPS:   []string{"35", "48"},
		TempDir:     t.TempDir(),
		Concurrency: 2,
		HTTP:        http,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	count, err := store.RowCount(ctx, PlaceGeomSpec.Table)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// Both states were fetched, once each.
	sort.Strings(http.urls)
	assert.Equal(t, []string{
		PlaceShapefileURL(2010, "35"),
		PlaceShapefileURL(2010, "48"),
	}, http.urls)
}

func TestLoadPlaceGeometryNoStates(t *testing.T) {
	_, err := LoadPlaceGeometry(context.Background(), newTestStore(t), TigerOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no states")
}

func TestLoadPlaceGeometryDownloadError(t *testing.T) {
	http := &fixtureFetcher{files: map[string][]byte{}}

	_, err := LoadPlaceGeometry(context.Background(), newTestStore(t), TigerOptions{
		StateFIPS: []string{"56"},
		TempDir:   t.TempDir(),
		HTTP:      http,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download place shapefile for 56")
}
