package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

func rawRow(line int, ts, target, exp, upBid, upAsk, downBid, downAsk string) domain.RawRow {
	return domain.RawRow{Line: line, Fields: map[string]string{
		ColTimestamp:        ts,
		ColTargetTime:       target,
		ColExpiration:       exp,
		ColUpBid:            upBid,
		ColUpAsk:            upAsk,
		"UpMid":             "0.99", // derived columns are ignored
		ColUpBidLiquidity:   "120",
		ColUpAskLiquidity:   "150",
		ColDownBid:          downBid,
		ColDownAsk:          downAsk,
		ColDownBidLiquidity: "80",
		ColDownAskLiquidity: "90",
	}}
}

func TestSegment_GroupsSortsAndDeduplicates(t *testing.T) {
	const (
		target1 = "2025-10-22 14:00:00+00:00"
		exp1    = "2025-10-22 14:15:00+00:00"
		target2 = "2025-10-22 14:15:00+00:00"
		exp2    = "2025-10-22 14:30:00+00:00"
	)

	marker := domain.RawRow{Line: 5, Fields: map[string]string{
		ColTimestamp:  "--------------------",
		ColTargetTime: "MARKET TRANSITION",
	}}
	noLiquidity := rawRow(10, "2025-10-22 14:04:00", target1, exp1, "0.45", "0.47", "0.52", "0.54")
	noLiquidity.Fields[ColUpAskLiquidity] = ""
	noLiquidity.Fields[ColDownAskLiquidity] = ""

	rows := []domain.RawRow{
		rawRow(1, "2025-10-22 14:16:00.250", target2, exp2, "0.45", "0.47", "0.52", "0.54"),
		rawRow(2, "2025-10-22 14:05:00", target1, exp1, "0.45", "0.47", "0.52", "0.54"),
		rawRow(3, "2025-10-22 14:01:00", target1, exp1, "0.45", "0.47", "0.52", "0.54"),
		rawRow(4, "2025-10-22 14:05:00", target1, exp1, "0.45", "0.60", "0.52", "0.54"),
		marker,
		rawRow(6, "2025-10-22 14:02:00", target1, exp1, "abc", "0.47", "0.52", "0.54"),
		rawRow(7, "2025-10-22 14:03:00", target1, exp1, "0.70", "0.60", "0.52", "0.54"),
		rawRow(8, "2025-10-22 14:20:00", target1, exp1, "0.45", "0.47", "0.52", "0.54"),
		rawRow(9, "2025-10-22 14:07:00", "2025-10-22 13:59:00+00:00", exp1, "0.45", "0.47", "0.52", "0.54"),
		noLiquidity,
		rawRow(11, "2025-10-22T14:06:00Z", target1, exp1, "0.45", "0.47", "0.52", "0.54"),
	}

	seg, err := Segment(rows)
	require.NoError(t, err)
	assert.Equal(t, len(rows), seg.Rows)

	require.Len(t, seg.Markets, 2)
	first, second := seg.Markets[0], seg.Markets[1]
	assert.Equal(t, "2025-10-22T14:15:00Z", first.ID())
	assert.Equal(t, "2025-10-22T14:30:00Z", second.ID())

	require.Len(t, first.Ticks, 4)
	var clock []string
	for _, tk := range first.Ticks {
		clock = append(clock, tk.Timestamp.Format("15:04:05"))
	}
	assert.Equal(t, []string{"14:01:00", "14:04:00", "14:05:00", "14:06:00"}, clock)
	assert.Equal(t, 0.60, first.Ticks[2].Up.Ask, "duplicate keeps the last row")
	assert.Zero(t, first.Ticks[1].Up.AskLiquidity)
	assert.Equal(t, 120.0, first.Ticks[0].Up.BidLiquidity)
	assert.InDelta(t, 0.46, first.Ticks[0].Up.Mid(), 1e-12)

	require.Len(t, second.Ticks, 1)
	assert.Equal(t, 250*time.Millisecond, time.Duration(second.Ticks[0].Timestamp.Nanosecond()))

	var lines []int
	for _, w := range seg.Warnings {
		lines = append(lines, w.Line)
	}
	assert.ElementsMatch(t, []int{5, 6, 7, 8, 9}, lines)

	for _, m := range seg.Markets {
		for _, tk := range m.Ticks {
			assert.True(t, tk.Expiration.Equal(m.Expiration))
			assert.False(t, tk.Timestamp.After(m.Expiration))
		}
	}
}

func TestSegment_DataUnavailable(t *testing.T) {
	_, err := Segment(nil)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)

	seg, err := Segment([]domain.RawRow{
		rawRow(1, "not a time", "2025-10-22 14:00:00", "2025-10-22 14:15:00", "0.45", "0.47", "0.52", "0.54"),
		rawRow(2, "2025-10-22 14:01:00", "2025-10-22 14:00:00", "2025-10-22 14:15:00", "", "0.47", "0.52", "0.54"),
	})
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.Len(t, seg.Warnings, 2)
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2025, 10, 22, 14, 0, 5, 0, time.UTC)
	for _, in := range []string{
		"2025-10-22 14:00:05",
		"2025-10-22T14:00:05",
		"2025-10-22 14:00:05+00:00",
		"2025-10-22T14:00:05Z",
		"2025-10-22T16:00:05+02:00",
	} {
		got, err := ParseTimestamp(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), in)
		assert.Equal(t, time.UTC, got.Location(), in)
	}

	frac, err := ParseTimestamp("2025-10-22 14:00:05.123456")
	require.NoError(t, err)
	assert.Equal(t, 123456000, frac.Nanosecond())

	_, err = ParseTimestamp("22/10/2025")
	assert.Error(t, err)
}
