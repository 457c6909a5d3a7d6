package census

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/commonground-app/commonground/internal/fetcher"
)

// LoadOptions configures the census data load.
type LoadOptions struct {
	DataDir   string   // directory holding the source files
	Files     []string // spec names; empty = all, in FileSpecs order
	BatchSize int      // insert batch size (default 50,000)
	DryRun    bool     // parse and validate without loading
}

// FileResult summarizes one loaded file.
type FileResult struct {
	Name     string
	Table    string
	Rows     int64
	Duration time.Duration
}

// Load parses and loads the configured census files. Each file is
// truncated before insert, so rerunning a load replaces rather than
// duplicates.
func Load(ctx context.Context, store Store, opts LoadOptions) ([]FileResult, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}

	log := zap.L().With(zap.String("component", "census.loader"))

	specs := FileSpecs
	if len(opts.Files) > 0 {
		specs = nil
		for _, name := range opts.Files {
			spec, ok := SpecByName(name)
			if !ok {
				return nil, eris.Errorf("census: unknown file %q", name)
			}
			specs = append(specs, spec)
		}
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}

	var results []FileResult
	for _, spec := range specs {
		start := time.Now()

		path, err := resolvePath(opts.DataDir, spec.SourceFile)
		if err != nil {
			return results, err
		}

		rows, err := ParseFile(ctx, spec, path)
		if err != nil {
			return results, eris.Wrapf(err, "census: parse %s", spec.Name)
		}

		log.Info("file parsed",
			zap.String("file", spec.Name),
			zap.String("path", path),
			zap.Int("rows", len(rows)),
		)

		if opts.DryRun {
			results = append(results, FileResult{Name: spec.Name, Table: spec.Table, Rows: int64(len(rows)), Duration: time.Since(start)})
			continue
		}

		if err := store.Truncate(ctx, spec.Table); err != nil {
			return results, err
		}

		loaded, err := store.BulkInsert(ctx, spec, rows, opts.BatchSize)
		if err != nil {
			return results, err
		}

		duration := time.Since(start)
		if err := store.RecordLoad(ctx, spec.Name, spec.Table, loaded, duration.Milliseconds()); err != nil {
			log.Warn("failed to record load status", zap.Error(err))
		}

		log.Info("file loaded",
			zap.String("table", spec.Table),
			zap.Int64("rows", loaded),
			zap.Duration("duration", duration),
		)

		results = append(results, FileResult{Name: spec.Name, Table: spec.Table, Rows: loaded, Duration: duration})
	}

	return results, nil
}

// resolvePath locates a source file in the data dir, preferring the
// .utf8 sibling the convert step writes.
func resolvePath(dataDir, name string) (string, error) {
	utf8Path := filepath.Join(dataDir, name+".utf8")
	if _, err := os.Stat(utf8Path); err == nil {
		return utf8Path, nil
	}
	path := filepath.Join(dataDir, name)
	if _, err := os.Stat(path); err != nil {
		return "", eris.Wrapf(err, "census: source file %s", name)
	}
	return path, nil
}

// ParseFile parses one source file into typed rows matching the spec's
// columns.
func ParseFile(ctx context.Context, spec FileSpec, path string) ([][]any, error) {
	switch spec.Format {
	case FixedWidth:
		return parseFixedWidth(spec, path)
	case Workbook:
		return parseWorkbook(spec, path)
	default:
		return parseDelimited(ctx, spec, path)
	}
}

// parseDelimited reads a delimited file through the streaming CSV
// parser. The spec's HasHeader flag decides whether the first row is
// data: no sniffing, no guessing.
func parseDelimited(ctx context.Context, spec FileSpec, path string) ([][]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "census: open %s", path)
	}
	defer f.Close()

	rowCh, errCh := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{
		Delimiter:  spec.Delim,
		HasHeader:  spec.HasHeader,
		LazyQuotes: true,
		TrimSpace:  true,
	})

	var rows [][]any
	lineNo := 0
	if spec.HasHeader {
		lineNo = 1
	}
	for record := range rowCh {
		lineNo++
		row, err := convertRow(spec, record, lineNo)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return rows, nil
}

// parseFixedWidth decodes the geographic header file line by line. Each
// record must be exactly the layout width; a short or long line means
// the wrong file or a truncated download.
func parseFixedWidth(spec FileSpec, path string) ([][]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "census: open %s", path)
	}
	defer f.Close()

	layout := spec.Layout

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var rows [][]any
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if len(line) != layout.Width {
			return nil, eris.Errorf("census: %s line %d is %d bytes, want %d", spec.Name, lineNo, len(line), layout.Width)
		}
		values := layout.DecodeOrdered(line)

		// Trailing derived geoid column.
		record := append(values, deriveGEOIDFromValues(layout, values))

		row, err := convertRow(spec, record, lineNo)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "census: read %s", path)
	}
	return rows, nil
}

// deriveGEOIDFromValues computes statefp+placefp from decoded values.
func deriveGEOIDFromValues(layout *Layout, values []string) string {
	var statefp, placefp string
	for i, f := range layout.Fields {
		switch f.Name {
		case "statefp":
			statefp = values[i]
		case "placefp":
			placefp = values[i]
		}
	}
	return DeriveGEOID(statefp, placefp)
}

// parseWorkbook reads an XLSX workbook via the fetcher.
func parseWorkbook(spec FileSpec, path string) ([][]any, error) {
	records, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{SkipRows: spec.SkipRows})
	if err != nil {
		return nil, err
	}

	var rows [][]any
	for i, record := range records {
		// Delineation workbooks carry blank footer rows.
		if isBlankRecord(record) {
			continue
		}
		row, err := convertRow(spec, record, spec.SkipRows+i+1)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// convertRow applies the spec's column types to a raw record. A numeric
// column that does not parse aborts the load: the files are machine
// written, so a mismatch means the wrong file or the wrong spec, and a
// partial load would be worse than none. Empty fields become nil.
func convertRow(spec FileSpec, record []string, lineNo int) ([]any, error) {
	if len(record) < len(spec.Columns) {
		return nil, eris.Errorf("census: %s line %d has %d fields, want %d", spec.Name, lineNo, len(record), len(spec.Columns))
	}

	row := make([]any, len(spec.Columns))
	for i, col := range spec.Columns {
		val := strings.TrimSpace(record[i])
		if val == "" {
			row[i] = nil
			continue
		}
		switch col.Type {
		case Integer, BigInt:
			n, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return nil, eris.Errorf("census: %s line %d: column %s: %q is not an integer", spec.Name, lineNo, col.Name, val)
			}
			row[i] = n
		case Real:
			x, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, eris.Errorf("census: %s line %d: column %s: %q is not a number", spec.Name, lineNo, col.Name, val)
			}
			row[i] = x
		default:
			row[i] = val
		}
	}
	return row, nil
}
