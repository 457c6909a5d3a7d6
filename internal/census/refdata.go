package census

import (
	"embed"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

//go:embed refdata/lsad.csv refdata/geoclass.csv
var refdataFS embed.FS

// WriteEmbeddedReference writes the small lookup tables that have no
// stable download location (LSAD codes, FIPS class codes) into the data
// dir, where the loader picks them up like any other source file.
func WriteEmbeddedReference(dataDir string) error {
	for _, name := range []string{"lsad.csv", "geoclass.csv"} {
		data, err := refdataFS.ReadFile("refdata/" + name)
		if err != nil {
			return eris.Wrapf(err, "census: read embedded %s", name)
		}
		dest := filepath.Join(dataDir, name)
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return eris.Wrapf(err, "census: write %s", dest)
		}
	}
	return nil
}
