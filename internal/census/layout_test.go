package census

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGHRLayoutShape(t *testing.T) {
	assert.Equal(t, 500, GHRLayout.Width)
	assert.Len(t, GHRLayout.Fields, 101)

	// Offsets are cumulative, so each field starts where the previous ended.
	offset := 0
	for _, f := range GHRLayout.Fields {
		assert.Equal(t, offset, f.Start, "field %s", f.Name)
		offset += f.Len
	}
	assert.Equal(t, GHRLayout.Width, offset)
}

func TestGHRLayoutKeyOffsets(t *testing.T) {
	tests := []struct {
		name  string
		start int
		len   int
	}{
		{"fileid", 0, 6},
		{"stusab", 6, 2},
		{"sumlev", 8, 3},
		{"geocomp", 11, 2},
		{"logrecno", 18, 7},
		{"statefp", 27, 2},
		{"countyfp", 29, 3},
		{"cousub", 36, 5},
		{"placefp", 45, 5},
		{"cbsa", 112, 5},
		{"arealand", 198, 14},
		{"areawatr", 212, 14},
		{"name", 226, 90},
		{"funcstat", 316, 1},
		{"pop100", 318, 9},
		{"hu100", 327, 9},
		{"intptlat", 336, 11},
		{"intptlon", 347, 12},
		{"lsadc", 359, 2},
		{"statens", 373, 8},
		{"puma", 477, 5},
		{"reserved", 482, 18},
	}
	for _, tt := range tests {
		f, ok := GHRLayout.FieldByName(tt.name)
		require.True(t, ok, "field %s", tt.name)
		assert.Equal(t, tt.start, f.Start, "field %s start", tt.name)
		assert.Equal(t, tt.len, f.Len, "field %s len", tt.name)
	}
}

func TestFieldByNameMissing(t *testing.T) {
	_, ok := GHRLayout.FieldByName("nope")
	assert.False(t, ok)
}

func TestNamesOrder(t *testing.T) {
	names := GHRLayout.Names()
	require.Len(t, names, 101)
	assert.Equal(t, "fileid", names[0])
	assert.Equal(t, "logrecno", names[6])
	assert.Equal(t, "reserved", names[100])
}

// ghrTestLine builds a full-width record with the given field values,
// everything else space-padded.
func ghrTestLine(t *testing.T, values map[string]string) string {
	t.Helper()
	ordered := make([]string, len(GHRLayout.Fields))
	for i, f := range GHRLayout.Fields {
		if v, ok := values[f.Name]; ok {
			ordered[i] = v
		}
	}
	line := GHRLayout.EncodeLine(ordered)
	require.Len(t, line, GHRLayout.Width)
	return line
}

func TestDecodeLine(t *testing.T) {
	line := ghrTestLine(t, map[string]string{
		"fileid":   "SF1ST",
		"stusab":   "NM",
		"sumlev":   "160",
		"geocomp":  "00",
		"logrecno": "0000042",
		"statefp":  "35",
		"placefp":  "25170",
		"name":     "Espanola city",
		"pop100":   "10224",
	})

	got := GHRLayout.DecodeLine(line)
	assert.Equal(t, "SF1ST", got["fileid"])
	assert.Equal(t, "NM", got["stusab"])
	assert.Equal(t, "160", got["sumlev"])
	assert.Equal(t, "0000042", got["logrecno"])
	assert.Equal(t, "35", got["statefp"])
	assert.Equal(t, "25170", got["placefp"])
	assert.Equal(t, "Espanola city", got["name"])
	assert.Equal(t, "10224", got["pop100"])
	assert.Equal(t, "", got["countyfp"])
}

func TestDecodeLineShortLine(t *testing.T) {
	// Fields beyond the end come back empty; the one straddling the end
	// is truncated.
	line := "SF1ST NM160"
	got := GHRLayout.DecodeLine(line)
	assert.Equal(t, "SF1ST", got["fileid"])
	assert.Equal(t, "NM", got["stusab"])
	assert.Equal(t, "160", got["sumlev"])
	assert.Equal(t, "", got["geocomp"])
	assert.Equal(t, "", got["logrecno"])
	assert.Equal(t, "", got["name"])
}

func TestDecodeOrderedMatchesDecodeLine(t *testing.T) {
	line := ghrTestLine(t, map[string]string{
		"stusab":   "TX",
		"logrecno": "0000007",
		"name":     "Austin city",
	})
	byName := GHRLayout.DecodeLine(line)
	ordered := GHRLayout.DecodeOrdered(line)
	require.Len(t, ordered, len(GHRLayout.Fields))
	for i, f := range GHRLayout.Fields {
		assert.Equal(t, byName[f.Name], ordered[i], "field %s", f.Name)
	}
}

func TestRawRoundTrip(t *testing.T) {
	line := ghrTestLine(t, map[string]string{
		"fileid":   "SF1ST",
		"stusab":   "NM",
		"logrecno": "0000042",
		"name":     "Espanola city",
		"intptlat": "+35.9927749",
		"intptlon": "-106.0839606",
	})

	// Raw decode preserves padding, so re-encoding reproduces the line
	// byte for byte.
	raw := GHRLayout.DecodeRaw(line)
	assert.Equal(t, line, GHRLayout.EncodeLine(raw))
}

func TestEncodeLineTruncatesOverwide(t *testing.T) {
	values := make([]string, len(GHRLayout.Fields))
	values[0] = "TOOLONGFILEID"
	line := GHRLayout.EncodeLine(values)
	assert.Len(t, line, GHRLayout.Width)
	assert.Equal(t, "TOOLON", line[:6])
}

func TestEncodeLineShortValues(t *testing.T) {
	// Fewer values than fields pads the remainder with spaces.
	line := GHRLayout.EncodeLine([]string{"SF1ST"})
	assert.Len(t, line, GHRLayout.Width)
	assert.Equal(t, "SF1ST ", line[:6])
	assert.Equal(t, strings.Repeat(" ", GHRLayout.Width-6), line[6:])
}

func TestDeriveGEOID(t *testing.T) {
	assert.Equal(t, "3525170", DeriveGEOID("35", "25170"))
	assert.Equal(t, "", DeriveGEOID("", "25170"))
	assert.Equal(t, "", DeriveGEOID("35", ""))
	assert.Equal(t, "", DeriveGEOID("", ""))
}
