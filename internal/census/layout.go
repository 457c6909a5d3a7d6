// Package census parses 2010 Census geographic reference files and loads
// them into the geo database: the fixed-width national Geographic Header
// Record file, the File 02 population counts keyed by logical record
// number, and the delimited reference tables (state, county, place, CBSA,
// LSAD, geoclass).
package census

import "strings"

// Field describes one column of a fixed-width record: its name, 0-based
// byte offset, and width.
type Field struct {
	Name  string
	Start int
	Len   int
}

// Layout is an ordered set of fixed-width fields.
type Layout struct {
	Fields []Field
	Width  int // total record width in bytes
}

// ghrWidths lists the Geographic Header Record columns in file order with
// their widths, per the 2010 Census national file record layout (500-byte
// records). Offsets are derived cumulatively, so the list is the single
// source of truth.
var ghrWidths = []struct {
	name  string
	width int
}{
	// record codes
	{"fileid", 6}, {"stusab", 2}, {"sumlev", 3}, {"geocomp", 2},
	{"chariter", 3}, {"cifsn", 2}, {"logrecno", 7},

	// geographic area codes
	{"region", 1}, {"division", 1}, {"statefp", 2}, {"countyfp", 3},
	{"countycc", 2}, {"countysc", 2}, {"cousub", 5}, {"cousubcc", 2},
	{"cousubsc", 2}, {"placefp", 5}, {"placecc", 2}, {"placesc", 2},
	{"tract", 6}, {"blkgrp", 1}, {"block", 4}, {"iuc", 2},
	{"concit", 5}, {"concitcc", 2}, {"concitsc", 2}, {"aianhh", 4},
	{"aianhhfp", 5}, {"aianhhcc", 2}, {"aihhtli", 1}, {"aitsce", 3},
	{"aits", 5}, {"aitscc", 2}, {"ttract", 6}, {"tblkgrp", 1},
	{"anrc", 5}, {"anrccc", 2}, {"cbsa", 5}, {"cbsasc", 2},
	{"metdiv", 5}, {"csa", 3}, {"necta", 5}, {"nectasc", 2},
	{"nectadiv", 5}, {"cnecta", 3}, {"cbsapci", 1}, {"nectapci", 1},
	{"ua", 5}, {"uasc", 2}, {"uatype", 1}, {"ur", 1}, {"cd", 2},
	{"sldu", 3}, {"sldl", 3}, {"vtd", 6}, {"vtdi", 1}, {"reserve2", 3},
	{"zcta5", 5}, {"submcd", 5}, {"submcdcc", 2}, {"sdelm", 5},
	{"sdsec", 5}, {"sduni", 5},

	// area characteristics
	{"arealand", 14}, {"areawatr", 14}, {"name", 90}, {"funcstat", 1},
	{"gcuni", 1}, {"pop100", 9}, {"hu100", 9}, {"intptlat", 11},
	{"intptlon", 12}, {"lsadc", 2}, {"partflag", 1},

	// special area codes
	{"reserve3", 6}, {"uga", 5}, {"statens", 8}, {"countyns", 8},
	{"cousubns", 8}, {"placens", 8}, {"concitns", 8}, {"aianhhns", 8},
	{"aitsns", 8}, {"anrcns", 8}, {"submcdns", 8}, {"cd113", 2},
	{"cd114", 2}, {"cd115", 2}, {"sldu2", 3}, {"sldu3", 3}, {"sldu4", 3},
	{"sldl2", 3}, {"sldl3", 3}, {"sldl4", 3}, {"aianhhsc", 2},
	{"csasc", 2}, {"cnectasc", 2}, {"memi", 1}, {"nmemi", 1},
	{"puma", 5}, {"reserved", 18},
}

// GHRLayout is the authoritative column map for the national Geographic
// Header Record file. Earlier revisions of the map differed; downstream
// consumers must use this one.
var GHRLayout = buildLayout(ghrWidths)

func buildLayout(widths []struct {
	name  string
	width int
}) Layout {
	fields := make([]Field, 0, len(widths))
	offset := 0
	for _, w := range widths {
		fields = append(fields, Field{Name: w.name, Start: offset, Len: w.width})
		offset += w.width
	}
	return Layout{Fields: fields, Width: offset}
}

// FieldByName returns the field with the given name.
func (l Layout) FieldByName(name string) (Field, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Names returns the field names in file order.
func (l Layout) Names() []string {
	names := make([]string, len(l.Fields))
	for i, f := range l.Fields {
		names[i] = f.Name
	}
	return names
}

// DecodeLine slices a fixed-width record into trimmed field values.
// Malformed lines are not an error: fields beyond the end of a short line
// come back empty, and a field that starts in range but runs past the end
// is truncated. This mirrors the source files, which pad with spaces and
// carry no per-record checksums.
func (l Layout) DecodeLine(line string) map[string]string {
	out := make(map[string]string, len(l.Fields))
	for _, f := range l.Fields {
		out[f.Name] = strings.TrimSpace(sliceField(line, f))
	}
	return out
}

// DecodeOrdered slices a fixed-width record into trimmed values in field
// order, for callers that feed positional row batches.
func (l Layout) DecodeOrdered(line string) []string {
	out := make([]string, len(l.Fields))
	for i, f := range l.Fields {
		out[i] = strings.TrimSpace(sliceField(line, f))
	}
	return out
}

// DecodeRaw slices a fixed-width record into untrimmed values in field
// order. Re-encoding raw values reproduces the input line byte for byte,
// which is how loads are audited against their source files.
func (l Layout) DecodeRaw(line string) []string {
	out := make([]string, len(l.Fields))
	for i, f := range l.Fields {
		out[i] = sliceField(line, f)
	}
	return out
}

// EncodeLine re-pads ordered field values to their fixed widths and
// concatenates them. Values are left-justified and space-padded, matching
// the source format; over-wide values are truncated to the field width.
func (l Layout) EncodeLine(values []string) string {
	var b strings.Builder
	b.Grow(l.Width)
	for i, f := range l.Fields {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		if len(v) > f.Len {
			v = v[:f.Len]
		}
		b.WriteString(v)
		for pad := len(v); pad < f.Len; pad++ {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func sliceField(line string, f Field) string {
	if f.Start >= len(line) {
		return ""
	}
	end := f.Start + f.Len
	if end > len(line) {
		end = len(line)
	}
	return line[f.Start:end]
}

// DeriveGEOID builds the 7-character place GEOID (state FIPS + place FIPS)
// for header records that carry a place component. Returns "" when the
// record has no place.
func DeriveGEOID(statefp, placefp string) string {
	if statefp == "" || placefp == "" {
		return ""
	}
	return statefp + placefp
}
