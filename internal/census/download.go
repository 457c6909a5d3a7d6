package census

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/commonground-app/commonground/internal/fetcher"
)

// Source describes one remote census file.
type Source struct {
	Name    string   // identifier for logs and filters
	URL     string   // http(s) or ftp
	Dest    string   // file name under the data dir (for archives, the zip name)
	Archive bool     // extract after download
	Keep    []string // archive members to keep in the data dir; empty = all
}

// Sources lists everything geo fetch downloads. The national SF1 bundle
// carries both the geographic header file and the population file.
var Sources = []Source{
	{
		Name: "state",
		URL:  "https://www2.census.gov/geo/docs/reference/state.txt",
		Dest: "state.txt",
	},
	{
		Name: "county",
		URL:  "https://www2.census.gov/geo/docs/reference/codes/files/national_county.txt",
		Dest: "national_county.txt",
	},
	{
		Name:    "place",
		URL:     "https://www2.census.gov/geo/docs/gazetteer/Gaz_places_national.zip",
		Dest:    "Gaz_places_national.zip",
		Archive: true,
		Keep:    []string{"Gaz_places_national.txt"},
	},
	{
		Name: "cbsa",
		URL:  "https://www2.census.gov/programs-surveys/metro-micro/geographies/reference-files/2013/delineation-files/list1.xlsx",
		Dest: "cbsa_delineation.xlsx",
	},
	{
		Name:    "sf1",
		URL:     "ftp://ftp2.census.gov/census_2010/04-Summary_File_1/National/us2010.sf1.zip",
		Dest:    "us2010.sf1.zip",
		Archive: true,
		Keep:    []string{"usgeo2010.sf1", "us000022010.sf1"},
	},
}

// SourceByName looks up a source by its identifier.
func SourceByName(name string) (Source, bool) {
	for _, s := range Sources {
		if s.Name == name {
			return s, true
		}
	}
	return Source{}, false
}

// FetchOptions configures geo fetch.
type FetchOptions struct {
	DataDir     string
	Files       []string // source names; empty = all
	Concurrency int      // parallel downloads (default 3)
	HTTP        fetcher.Fetcher
	FTP         *fetcher.FTPFetcher
}

// FetchAll downloads the census source files into the data dir. Files
// already present are skipped, so an interrupted fetch can resume.
// Downloads run in parallel; the embedded lookup tables are written
// last.
func FetchAll(ctx context.Context, opts FetchOptions) error {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 3
	}

	log := zap.L().With(zap.String("component", "census.fetch"))

	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		return eris.Wrap(err, "census: create data dir")
	}

	sources := Sources
	if len(opts.Files) > 0 {
		sources = nil
		for _, name := range opts.Files {
			src, ok := SourceByName(name)
			if !ok {
				return eris.Errorf("census: unknown source %q", name)
			}
			sources = append(sources, src)
		}
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for _, src := range sources {
		g.Go(func() error {
			return fetchSource(gCtx, src, opts)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := WriteEmbeddedReference(opts.DataDir); err != nil {
		return err
	}

	log.Info("fetch complete", zap.Int("sources", len(sources)))
	return nil
}

// fetchSource downloads and, for archives, extracts one source.
func fetchSource(ctx context.Context, src Source, opts FetchOptions) error {
	log := zap.L().With(
		zap.String("component", "census.fetch"),
		zap.String("source", src.Name),
	)

	dest := filepath.Join(opts.DataDir, src.Dest)

	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		log.Debug("already downloaded, skipping", zap.String("path", dest))
	} else {
		log.Info("downloading", zap.String("url", src.URL))
		var n int64
		var err error
		if strings.HasPrefix(src.URL, "ftp://") {
			n, err = opts.FTP.DownloadToFile(ctx, src.URL, dest)
		} else {
			n, err = opts.HTTP.DownloadToFile(ctx, src.URL, dest)
		}
		if err != nil {
			return eris.Wrapf(err, "census: download %s", src.Name)
		}
		log.Info("downloaded", zap.Int64("bytes", n))
	}

	if !src.Archive {
		return nil
	}

	if len(src.Keep) > 0 {
		for _, member := range src.Keep {
			memberPath := filepath.Join(opts.DataDir, member)
			if info, err := os.Stat(memberPath); err == nil && info.Size() > 0 {
				continue
			}
			if _, err := fetcher.ExtractZIPFile(dest, member, opts.DataDir); err != nil {
				return eris.Wrapf(err, "census: extract %s from %s", member, src.Dest)
			}
			log.Info("extracted", zap.String("member", member))
		}
		return nil
	}

	if _, err := fetcher.ExtractZIP(dest, opts.DataDir); err != nil {
		return eris.Wrapf(err, "census: extract %s", src.Dest)
	}
	return nil
}
