package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractZIP unpacks every entry of an archive under destDir and
// returns the extracted file paths. The census bundles are flat, but
// nested directories are handled anyway.
func ExtractZIP(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open archive %s", zipPath)
	}
	defer r.Close()

	var paths []string
	for _, entry := range r.File {
		path, err := unpackEntry(entry, destDir)
		if err != nil {
			return paths, err
		}
		if path != "" {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// ExtractZIPFile unpacks a single named entry. The SF1 bundle holds 50
// file segments of which the load needs two, so extracting everything
// would waste gigabytes.
func ExtractZIPFile(zipPath, name, destDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: open archive %s", zipPath)
	}
	defer r.Close()

	for _, entry := range r.File {
		if entry.Name == name {
			return unpackEntry(entry, destDir)
		}
	}
	return "", eris.Errorf("fetcher: archive %s has no entry %q", zipPath, name)
}

// unpackEntry writes one entry under destDir, refusing names that
// escape it. Directories return an empty path.
func unpackEntry(entry *zip.File, destDir string) (string, error) {
	dest := filepath.Join(destDir, entry.Name)
	if !strings.HasPrefix(filepath.Clean(dest), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("fetcher: archive entry %q escapes destination", entry.Name)
	}

	if entry.FileInfo().IsDir() {
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return "", eris.Wrapf(err, "fetcher: create %s", dest)
		}
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", eris.Wrapf(err, "fetcher: create %s", filepath.Dir(dest))
	}

	rc, err := entry.Open()
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: open entry %q", entry.Name)
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: create %s", dest)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrapf(err, "fetcher: write %s", dest)
	}
	return dest, nil
}
