package csvfeed_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polyreplay/internal/adapters/csvfeed"
	"github.com/alejandrodnm/polyreplay/internal/domain"
)

const header = "Timestamp,TargetTime,Expiration,UpBid,UpAsk,UpMid,UpSpread,UpBidLiquidity,UpAskLiquidity," +
	"DownBid,DownAsk,DownMid,DownSpread,DownBidLiquidity,DownAskLiquidity\n"

const sample = header +
	"2025-10-22 14:01:00,2025-10-22 14:00:00+00:00,2025-10-22 14:15:00+00:00,0.45,0.47,0.46,0.02,100,120,0.52,0.54,0.53,0.02,80,90\n" +
	"--------------------,MARKET TRANSITION,--------------------\n" +
	"2025-10-22 14:16:00,2025-10-22 14:15:00+00:00,2025-10-22 14:30:00+00:00,0.45,0.47,0.46,0.02,,,0.52,0.54,0.53,0.02,,\n"

func TestReadRows(t *testing.T) {
	rows, err := csvfeed.ReadRows(context.Background(), strings.NewReader("\ufeff"+sample))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "2025-10-22 14:01:00", rows[0].Fields["Timestamp"])
	assert.Equal(t, "120", rows[0].Fields["UpAskLiquidity"])

	assert.Equal(t, "MARKET TRANSITION", rows[1].Fields["TargetTime"])
	assert.Equal(t, 4, rows[2].Line)
	assert.Equal(t, "", rows[2].Fields["DownAskLiquidity"])
}

func TestReadRows_Empty(t *testing.T) {
	_, err := csvfeed.ReadRows(context.Background(), strings.NewReader(""))
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)

	_, err = csvfeed.ReadRows(context.Background(), strings.NewReader(header))
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestReadRows_BadQuoteSkipped(t *testing.T) {
	in := header +
		"2025-10-22 14:01:00,bro\"ken,2025-10-22 14:15:00\n" +
		"2025-10-22 14:02:00,2025-10-22 14:00:00,2025-10-22 14:15:00,0.45,0.47,,,,,0.52,0.54,,,,\n"
	rows, err := csvfeed.ReadRows(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, "2025-10-22 14:02:00", rows[len(rows)-1].Fields["Timestamp"])
}

func TestSource_MissingFile(t *testing.T) {
	_, err := csvfeed.NewSource(filepath.Join(t.TempDir(), "nope.csv")).ReadRows(context.Background())
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestSource_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market_data_20251022.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	rows, err := csvfeed.NewSource(path).ReadRows(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"market_data_20251020.csv",
		"market_data_2025-10-22.csv",
		"market_data_20251021.csv",
		"market_data_notes.csv",
		"other_20251030.csv",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(header), 0o644))
	}

	files, err := csvfeed.List(dir, "")
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "2025-10-20", files[0].Date.Format("2006-01-02"))

	latest, err := csvfeed.Resolve(dir, "", csvfeed.Latest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "market_data_2025-10-22.csv"), latest.Path)

	byDate, err := csvfeed.Resolve(dir, csvfeed.DefaultBaseName, "2025-10-21")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "market_data_20251021.csv"), byDate.Path)

	compact, err := csvfeed.Resolve(dir, "", "20251022")
	require.NoError(t, err)
	assert.Equal(t, latest.Path, compact.Path)

	_, err = csvfeed.Resolve(dir, "", "2025-11-01")
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)

	_, err = csvfeed.Resolve(dir, "", "yesterday")
	assert.Error(t, err)

	_, err = csvfeed.Resolve(filepath.Join(dir, "missing"), "", csvfeed.Latest)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}
