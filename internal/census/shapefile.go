package census

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/commonground-app/commonground/internal/fetcher"
)

// placeShapeFields are the TIGER/Line 2010 attribute names backing the
// place_geom columns, in PlaceGeomSpec order (the geometry column is
// appended separately).
var placeShapeFields = []string{"geoid10", "statefp10", "placefp10", "name10"}

// PlaceShapefileURL returns the TIGER/Line place shapefile URL for a
// state FIPS code.
func PlaceShapefileURL(year int, stateFIPS string) string {
	return fmt.Sprintf(
		"https://www2.census.gov/geo/tiger/TIGER%d/PLACE/%d/tl_%d_%s_place10.zip",
		year, year, year, stateFIPS,
	)
}

// TigerOptions configures the place boundary load.
type TigerOptions struct {
	Year        int      // TIGER/Line year (default 2010)
	StateFIPS   []string // state FIPS codes to load
	TempDir     string   // download directory
	BatchSize   int
	Concurrency int // parallel state downloads (default 3)
	HTTP        fetcher.Fetcher
}

// LoadPlaceGeometry downloads and loads TIGER/Line place boundaries for
// the given states into place_geom. Downloads and parsing fan out up to
// Concurrency states at a time; inserts are serialized on the store.
func LoadPlaceGeometry(ctx context.Context, store Store, opts TigerOptions) (int64, error) {
	if opts.Year == 0 {
		opts.Year = 2010
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 3
	}
	if opts.TempDir == "" {
		opts.TempDir = "/tmp/commonground/tiger"
	}
	if len(opts.StateFIPS) == 0 {
		return 0, eris.New("census: no states given for place geometry load")
	}

	log := zap.L().With(
		zap.String("component", "census.tiger"),
		zap.Int("year", opts.Year),
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	var (
		mu    sync.Mutex
		total int64
	)
	for _, fips := range opts.StateFIPS {
		g.Go(func() error {
			start := time.Now()

			shpPath, err := downloadShapefile(gCtx, opts, fips)
			if err != nil {
				return err
			}

			rows, err := ParsePlaceShapefile(shpPath)
			if err != nil {
				return eris.Wrapf(err, "census: parse place shapefile for %s", fips)
			}

			mu.Lock()
			defer mu.Unlock()
			n, err := store.BulkInsert(gCtx, PlaceGeomSpec, rows, opts.BatchSize)
			if err != nil {
				return err
			}
			total += n

			log.Info("state place boundaries loaded",
				zap.String("state_fips", fips),
				zap.Int64("rows", n),
				zap.Duration("duration", time.Since(start)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return total, err
	}

	return total, nil
}

// downloadShapefile fetches and extracts one state's place shapefile
// zip, returning the .shp path. An existing zip with content is reused.
func downloadShapefile(ctx context.Context, opts TigerOptions, stateFIPS string) (string, error) {
	url := PlaceShapefileURL(opts.Year, stateFIPS)
	destDir := filepath.Join(opts.TempDir, stateFIPS)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrap(err, "census: create shapefile temp dir")
	}

	zipName := url[strings.LastIndex(url, "/")+1:]
	zipPath := filepath.Join(destDir, zipName)

	if info, err := os.Stat(zipPath); err != nil || info.Size() == 0 {
		if _, err := opts.HTTP.DownloadToFile(ctx, url, zipPath); err != nil {
			return "", eris.Wrapf(err, "census: download place shapefile for %s", stateFIPS)
		}
	}

	extracted, err := fetcher.ExtractZIP(zipPath, destDir)
	if err != nil {
		return "", eris.Wrapf(err, "census: extract place shapefile for %s", stateFIPS)
	}
	for _, path := range extracted {
		if strings.HasSuffix(strings.ToLower(path), ".shp") {
			return path, nil
		}
	}
	return "", eris.Errorf("census: no .shp file in %s", zipPath)
}

// ParsePlaceShapefile reads a TIGER place shapefile into place_geom
// rows. Records without a usable polygon are skipped.
func ParsePlaceShapefile(shpPath string) ([][]any, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "census: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	// Build field name to index map.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	var rows [][]any
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		row := make([]any, 0, len(placeShapeFields)+1)
		for _, col := range placeShapeFields {
			idx, ok := fieldIdx[col]
			if !ok {
				row = append(row, nil)
				continue
			}
			val := strings.TrimRight(reader.Attribute(idx), "\x00")
			val = strings.TrimSpace(val)
			if val == "" {
				row = append(row, nil)
			} else {
				row = append(row, val)
			}
		}

		if shape == nil {
			skipped++
			continue
		}
		wkb, encErr := EncodeWKB(shape)
		if encErr != nil || wkb == nil {
			skipped++
			continue
		}
		row = append(row, wkb)

		rows = append(rows, row)
	}

	if skipped > 0 {
		zap.L().Debug("census: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}

	return rows, nil
}
