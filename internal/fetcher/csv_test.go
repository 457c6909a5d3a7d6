package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drainCSV(t *testing.T, rowCh <-chan []string, errCh <-chan error) ([][]string, error) {
	t.Helper()
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	return rows, <-errCh
}

func TestStreamCSVStateFile(t *testing.T) {
	// The state reference file is pipe-delimited with a header row.
	src := "STATE|STUSAB|STATE_NAME|STATENS\n35|NM|New Mexico|00897535\n48|TX|Texas|01779801\n"

	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(src), CSVOptions{
		Delimiter: '|',
		HasHeader: true,
	})
	rows, err := drainCSV(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"35", "NM", "New Mexico", "00897535"}, rows[0])
	assert.Equal(t, []string{"48", "TX", "Texas", "01779801"}, rows[1])
}

func TestStreamCSVGazetteerPadding(t *testing.T) {
	// The place Gazetteer pads fields with trailing spaces.
	src := "NM\t3525170 \tEspanola city   \n"

	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(src), CSVOptions{
		Delimiter: '\t',
		TrimSpace: true,
	})
	rows, err := drainCSV(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"NM", "3525170", "Espanola city"}, rows[0])
}

func TestStreamCSVLazyQuotes(t *testing.T) {
	src := "35,049,Santa \"Fe\" County\n"

	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(src), CSVOptions{
		LazyQuotes: true,
	})
	rows, err := drainCSV(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestStreamCSVVariableFields(t *testing.T) {
	// Field counts vary per row; the column spec check happens in the
	// loader, not here.
	src := "a,b,c\nd,e\nf,g,h,i\n"

	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(src), CSVOptions{})
	rows, err := drainCSV(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Len(t, rows[1], 2)
	assert.Len(t, rows[2], 4)
}

func TestStreamCSVHeaderOnly(t *testing.T) {
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader("STATE|STUSAB\n"), CSVOptions{
		Delimiter: '|',
		HasHeader: true,
	})
	rows, err := drainCSV(t, rowCh, errCh)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStreamCSVEmptyInput(t *testing.T) {
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(""), CSVOptions{})
	rows, err := drainCSV(t, rowCh, errCh)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStreamCSVMalformedRow(t *testing.T) {
	// A bare quote without LazyQuotes is a structural error.
	src := "a,b\n\"unterminated,c\n"

	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(src), CSVOptions{})
	_, err := drainCSV(t, rowCh, errCh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv read")
}

func TestStreamCSVCancelled(t *testing.T) {
	var sb strings.Builder
	for range 10000 {
		sb.WriteString("35,NM,New Mexico\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	rowCh, errCh := StreamCSV(ctx, strings.NewReader(sb.String()), CSVOptions{})

	read := 0
	for range rowCh {
		read++
		if read == 5 {
			cancel()
			break
		}
	}
	for range rowCh {
	}

	// The goroutine either noticed the cancel or drained first; both
	// are clean shutdowns.
	if err := <-errCh; err != nil {
		assert.Contains(t, err.Error(), "cancelled")
	}
	cancel()
}
