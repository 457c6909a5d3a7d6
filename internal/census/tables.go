package census

// ColumnType selects the conversion applied to a parsed field before it is
// handed to the store. Text columns pass through; numeric columns abort
// the load on a value that does not parse (the files are machine written,
// so a mismatch means the wrong file or the wrong spec).
type ColumnType int

const (
	Text ColumnType = iota
	Integer
	BigInt
	Real
	Blob
)

// Column pairs a target column name with its type.
type Column struct {
	Name string
	Type ColumnType
}

// Format describes how a source file is parsed.
type Format int

const (
	Delimited Format = iota
	FixedWidth
	Workbook // XLSX, parsed through the fetcher
)

// FileSpec describes one source file and its target table. HasHeader is
// carried explicitly on the spec: the loader strips the first row iff it
// is set, so no step has to remember which intermediate files still carry
// headers.
type FileSpec struct {
	Name       string // spec identifier, e.g. "state"
	Table      string // target table
	SourceFile string // file name under the data dir
	Format     Format
	Delim      rune    // for Delimited
	HasHeader  bool    // strip first row before load
	SkipRows   int     // for Workbook: leading rows to drop (includes header)
	Layout     *Layout // for FixedWidth
	Columns    []Column
}

// FileSpecs lists every file the geo load consumes, in load order.
// Reference tables load before the header and population files so the
// joined view can resolve codes immediately.
var FileSpecs = []FileSpec{
	{
		Name:       "state",
		Table:      "state",
		SourceFile: "state.txt",
		Format:     Delimited,
		Delim:      '|',
		HasHeader:  true,
		Columns: []Column{
			{"statefp", Text}, {"stusps", Text}, {"name", Text}, {"statens", Text},
		},
	},
	{
		Name:       "county",
		Table:      "county",
		SourceFile: "national_county.txt",
		Format:     Delimited,
		Delim:      ',',
		HasHeader:  false, // national_county.txt ships headerless
		Columns: []Column{
			{"stusps", Text}, {"statefp", Text}, {"countyfp", Text},
			{"name", Text}, {"classfp", Text},
		},
	},
	{
		Name:       "place",
		Table:      "place",
		SourceFile: "Gaz_places_national.txt",
		Format:     Delimited,
		Delim:      '\t',
		HasHeader:  true,
		Columns: []Column{
			{"stusps", Text}, {"geoid", Text}, {"ansicode", Text},
			{"name", Text}, {"lsad_code", Text}, {"funcstat", Text},
			{"pop10", Integer}, {"hu10", Integer},
			{"aland", BigInt}, {"awater", BigInt},
			{"aland_sqmi", Real}, {"awater_sqmi", Real},
			{"intptlat", Real}, {"intptlong", Real},
		},
	},
	{
		Name:       "cbsa",
		Table:      "cbsa",
		SourceFile: "cbsa_delineation.xlsx",
		Format:     Workbook,
		SkipRows:   3, // delineation workbook: two title rows + header
		Columns: []Column{
			{"cbsa_code", Text}, {"metro_division_code", Text}, {"csa_code", Text},
			{"cbsa_name", Text}, {"cbsa_type", Text},
			{"metro_division_name", Text}, {"csa_name", Text},
			{"county_name", Text}, {"state_name", Text},
			{"statefp", Text}, {"countyfp", Text}, {"county_type", Text},
		},
	},
	{
		Name:       "lsad",
		Table:      "lsad",
		SourceFile: "lsad.csv",
		Format:     Delimited,
		Delim:      ',',
		HasHeader:  true,
		Columns: []Column{
			{"lsad_code", Text}, {"lsad_description", Text}, {"geo_entity_type", Text},
		},
	},
	{
		Name:       "geoclass",
		Table:      "geoclass",
		SourceFile: "geoclass.csv",
		Format:     Delimited,
		Delim:      ',',
		HasHeader:  true,
		Columns: []Column{
			{"classfp", Text}, {"description", Text},
		},
	},
	{
		Name:       "ghr",
		Table:      "ghr",
		SourceFile: "usgeo2010.sf1",
		Format:     FixedWidth,
		Layout:     &GHRLayout,
		Columns:    ghrColumns(),
	},
	{
		Name:       "f02",
		Table:      "f02",
		SourceFile: "us000022010.sf1",
		Format:     Delimited,
		Delim:      ',',
		HasHeader:  false,
		Columns: []Column{
			{"fileid", Text}, {"stusab", Text}, {"chariter", Text}, {"cifsn", Text},
			{"logrecno", Integer},
			{"p0020001", Integer}, {"p0020002", Integer}, {"p0020003", Integer},
			{"p0020004", Integer}, {"p0020005", Integer}, {"p0020006", Integer},
		},
	},
}

// ghrNumeric maps header fields that load as something other than text.
var ghrNumeric = map[string]ColumnType{
	"logrecno": Integer,
	"arealand": BigInt,
	"areawatr": BigInt,
	"pop100":   Integer,
	"hu100":    Integer,
	"intptlat": Real,
	"intptlon": Real,
}

// ghrColumns derives the ghr table columns from the authoritative layout,
// appending the derived geoid column (state FIPS + place FIPS).
func ghrColumns() []Column {
	cols := make([]Column, 0, len(GHRLayout.Fields)+1)
	for _, f := range GHRLayout.Fields {
		t, ok := ghrNumeric[f.Name]
		if !ok {
			t = Text
		}
		cols = append(cols, Column{Name: f.Name, Type: t})
	}
	cols = append(cols, Column{Name: "geoid", Type: Text})
	return cols
}

// PlaceGeomSpec is the TIGER-derived place boundary table. It is not in
// FileSpecs because it loads from a shapefile, not a data dir file, but
// it migrates and bulk-inserts like the rest.
var PlaceGeomSpec = FileSpec{
	Name:  "place_geom",
	Table: "place_geom",
	Columns: []Column{
		{"geoid", Text}, {"statefp", Text}, {"placefp", Text},
		{"name", Text}, {"geom", Blob},
	},
}

// SpecByName looks up a file spec by its identifier.
func SpecByName(name string) (FileSpec, bool) {
	for _, s := range FileSpecs {
		if s.Name == name {
			return s, true
		}
	}
	return FileSpec{}, false
}

// ColumnNames returns the target column names for a spec.
func (s FileSpec) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}
