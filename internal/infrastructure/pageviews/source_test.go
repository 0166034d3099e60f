package pageviews

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"PageviewLabeler/internal/config"
	"PageviewLabeler/internal/domain"
	"PageviewLabeler/internal/fileutil"
)

var defaultColumns = config.ColumnConfig{QID: "qid", Date: "date", Views: "views"}

func TestReadRows(t *testing.T) {
	t.Parallel()

	input := "\ufeffarticle,views,qid,date\n" +
		"Vladimir_Putin,50000,q7747,2023-11-06\n" +
		"Some_Page,1200,,2023-11-06\n" +
		"Other,7.0,nan,2023-11-07 00:00:00\n" +
		"Blank,,No QID,2023-11-07\n"

	rows, err := ReadRows(strings.NewReader(input), "US", defaultColumns)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	require.Equal(t, "Q7747", rows[0].QID)
	require.Equal(t, int64(50000), rows[0].Views)
	require.Equal(t, "2023-11-06", rows[0].Date.Format(domain.DateLayout))
	require.Equal(t, "US", rows[0].CountryCode)
	require.True(t, rows[0].HasQID())

	require.False(t, rows[1].HasQID())
	require.Equal(t, int64(1200), rows[1].Views)

	require.False(t, rows[2].HasQID())
	require.Equal(t, int64(7), rows[2].Views)
	require.Equal(t, "2023-11-07", rows[2].Date.Format(domain.DateLayout))

	require.Equal(t, int64(0), rows[3].Views)
}

func TestReadRowsCustomColumns(t *testing.T) {
	t.Parallel()

	input := "item,day,pageviews\nQ1,2024-01-01,3\n"
	rows, err := ReadRows(strings.NewReader(input), "GB", config.ColumnConfig{QID: "item", Date: "day", Views: "pageviews"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Q1", rows[0].QID)
}

func TestReadRowsRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":          "",
		"missing column": "qid,date\nQ1,2024-01-01\n",
		"bad date":       "qid,date,views\nQ1,01/02/2024,3\n",
		"negative views": "qid,date,views\nQ1,2024-01-01,-3\n",
		"fractional":     "qid,date,views\nQ1,2024-01-01,3.5\n",
		"short record":   "qid,date,views\nQ1,2024-01-01\n",
		"float at 2^63":  "qid,date,views\nQ1,2024-01-01,9223372036854775808.0\n",
		"integer 2^63":   "qid,date,views\nQ1,2024-01-01,9223372036854775808\n",
	}
	for name, input := range cases {
		input := input
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadRows(strings.NewReader(input), "US", defaultColumns)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrMalformedInput), "got %v", err)
		})
	}
}

func TestCSVSourceLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	usPath := filepath.Join(dir, "US.csv")
	gbPath := filepath.Join(dir, "GB.csv")
	usBody := "qid,date,views\nQ7747,2023-11-06,50000\n,2023-11-06,1200\n"
	require.NoError(t, os.WriteFile(usPath, []byte(usBody), 0o644))
	require.NoError(t, os.WriteFile(gbPath, []byte("qid,date,views\nQ1,2023-11-06,5\n"), 0o644))

	source := NewCSVSource([]config.CountryConfig{
		{Code: "US", Path: usPath},
		{Code: "GB", Path: gbPath},
	}, defaultColumns, nil)

	loaded, err := source.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Equal(t, "US", loaded[0].CountryCode)
	require.Equal(t, usPath, loaded[0].Source)
	require.Len(t, loaded[0].Rows, 2)
	require.Equal(t, fileutil.SHA256Hex([]byte(usBody)), loaded[0].Digest)
	require.Equal(t, "GB", loaded[1].CountryCode)
}

func TestCSVSourceLoadMissingFile(t *testing.T) {
	t.Parallel()

	source := NewCSVSource([]config.CountryConfig{{Code: "US", Path: filepath.Join(t.TempDir(), "absent.csv")}}, defaultColumns, nil)
	_, err := source.Load(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCSVSourceLoadCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	source := NewCSVSource([]config.CountryConfig{{Code: "US", Path: "unused.csv"}}, defaultColumns, nil)
	_, err := source.Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
