package census

import (
	"bufio"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// DefaultSourceCodec is the legacy single-byte encoding the Census Bureau
// distributed the 2010 national files in.
const DefaultSourceCodec = "iso-8859-1"

// ResolveCodec looks up a named character encoding. Names follow the
// WHATWG registry (iso-8859-1, windows-1252, ...).
func ResolveCodec(name string) (encoding.Encoding, error) {
	if name == "" {
		return charmap.ISO8859_1, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, eris.Wrapf(err, "census: unsupported codec %q", name)
	}
	return enc, nil
}

// NewLatin1Reader wraps r so reads yield UTF-8 text decoded from
// ISO-8859-1 bytes.
func NewLatin1Reader(r io.Reader) io.Reader {
	return charmap.ISO8859_1.NewDecoder().Reader(r)
}

// Convert streams src to dst, converting from the named source codec to
// UTF-8 line by line. The conversion is strict: a line that cannot be
// decoded aborts the whole conversion with an error naming the 1-based
// line number, rather than substituting replacement characters.
func Convert(src io.Reader, dst io.Writer, codec string) (lines int, err error) {
	enc, err := ResolveCodec(codec)
	if err != nil {
		return 0, err
	}
	decoder := enc.NewDecoder()

	// A replacement rune is legitimate in the output only where the
	// source itself encodes U+FFFD. Single-byte codecs cannot encode it
	// at all, so there any replacement marks an undecodable byte.
	var encodedFFFD string
	if s, encErr := enc.NewEncoder().String(string(utf8.RuneError)); encErr == nil {
		encodedFFFD = s
	}

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	w := bufio.NewWriter(dst)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		decoded, convErr := decoder.String(raw)
		if convErr != nil {
			return lineNo, eris.Wrapf(convErr, "census: decode line %d as %s", lineNo, codecName(codec))
		}
		// Decoders substitute U+FFFD for unmapped bytes instead of
		// failing; surface that as an error rather than loading mojibake.
		allowed := 0
		if encodedFFFD != "" {
			allowed = strings.Count(raw, encodedFFFD)
		}
		if strings.Count(decoded, string(utf8.RuneError)) > allowed {
			return lineNo, eris.Errorf("census: line %d contains bytes not valid in %s", lineNo, codecName(codec))
		}
		if _, wErr := w.WriteString(decoded); wErr != nil {
			return lineNo, eris.Wrapf(wErr, "census: write line %d", lineNo)
		}
		if wErr := w.WriteByte('\n'); wErr != nil {
			return lineNo, eris.Wrapf(wErr, "census: write line %d", lineNo)
		}
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return lineNo, eris.Wrap(scanErr, "census: read source")
	}
	if flushErr := w.Flush(); flushErr != nil {
		return lineNo, eris.Wrap(flushErr, "census: flush output")
	}
	return lineNo, nil
}

func codecName(codec string) string {
	if codec == "" {
		return DefaultSourceCodec
	}
	return strings.ToLower(codec)
}
