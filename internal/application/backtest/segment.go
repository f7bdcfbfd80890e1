package backtest

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

// Column names of the daily collector file.
const (
	ColTimestamp        = "Timestamp"
	ColTargetTime       = "TargetTime"
	ColExpiration       = "Expiration"
	ColUpBid            = "UpBid"
	ColUpAsk            = "UpAsk"
	ColUpBidLiquidity   = "UpBidLiquidity"
	ColUpAskLiquidity   = "UpAskLiquidity"
	ColDownBid          = "DownBid"
	ColDownAsk          = "DownAsk"
	ColDownBidLiquidity = "DownBidLiquidity"
	ColDownAskLiquidity = "DownAskLiquidity"
)

// transitionMarker is written by the collector between two markets.
const transitionMarker = "MARKET TRANSITION"

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	time.RFC3339Nano,
}

// Segmentation is the output of Segment.
type Segmentation struct {
	Markets  []domain.Market
	Warnings []domain.RowWarning
	Rows     int // rows read, valid or not
}

// Ticks returns the total number of ticks across all markets.
func (s Segmentation) Ticks() int {
	n := 0
	for _, m := range s.Markets {
		n += m.Len()
	}
	return n
}

type bucket struct {
	target time.Time
	ticks  map[int64]domain.MarketTick // keyed by timestamp, last write wins
}

// Segment groups raw rows into markets keyed by expiration.
// Invalid rows are dropped with a warning; only an empty result is fatal.
func Segment(rows []domain.RawRow) (Segmentation, error) {
	seg := Segmentation{Rows: len(rows)}
	if len(rows) == 0 {
		return seg, fmt.Errorf("backtest.Segment: %w: no rows", domain.ErrDataUnavailable)
	}

	buckets := make(map[int64]*bucket)
	warn := func(line int, reason string) {
		seg.Warnings = append(seg.Warnings, domain.RowWarning{Line: line, Reason: reason})
		slog.Warn("row dropped", "line", line, "reason", reason)
	}

	for _, row := range rows {
		tick, err := parseRow(row)
		if err != nil {
			warn(row.Line, err.Error())
			continue
		}

		key := tick.Expiration.UnixNano()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{target: tick.TargetTime, ticks: make(map[int64]domain.MarketTick)}
			buckets[key] = b
		}
		if !tick.TargetTime.Equal(b.target) {
			warn(row.Line, fmt.Sprintf("target time %s disagrees with market %s",
				tick.TargetTime.Format(time.RFC3339), b.target.Format(time.RFC3339)))
			continue
		}
		b.ticks[tick.Timestamp.UnixNano()] = tick
	}

	seg.Markets = make([]domain.Market, 0, len(buckets))
	for _, b := range buckets {
		m := domain.Market{TargetTime: b.target, Ticks: make([]domain.MarketTick, 0, len(b.ticks))}
		for _, t := range b.ticks {
			m.Ticks = append(m.Ticks, t)
		}
		sort.Slice(m.Ticks, func(i, j int) bool {
			return m.Ticks[i].Timestamp.Before(m.Ticks[j].Timestamp)
		})
		m.Expiration = m.Ticks[0].Expiration
		seg.Markets = append(seg.Markets, m)
	}
	sort.Slice(seg.Markets, func(i, j int) bool {
		return seg.Markets[i].Expiration.Before(seg.Markets[j].Expiration)
	})

	if len(seg.Markets) == 0 {
		return seg, fmt.Errorf("backtest.Segment: %w: 0 valid rows out of %d", domain.ErrDataUnavailable, len(rows))
	}

	slog.Debug("segmented",
		"rows", len(rows),
		"markets", len(seg.Markets),
		"ticks", seg.Ticks(),
		"dropped", len(seg.Warnings),
	)
	return seg, nil
}

var errMarkerRow = errors.New("market transition marker")

func parseRow(row domain.RawRow) (domain.MarketTick, error) {
	for _, v := range row.Fields {
		if strings.Contains(v, transitionMarker) {
			return domain.MarketTick{}, errMarkerRow
		}
	}

	var t domain.MarketTick
	var err error
	if t.Timestamp, err = timeField(row, ColTimestamp); err != nil {
		return t, err
	}
	if t.TargetTime, err = timeField(row, ColTargetTime); err != nil {
		return t, err
	}
	if t.Expiration, err = timeField(row, ColExpiration); err != nil {
		return t, err
	}

	if t.Up, err = quoteFields(row, ColUpBid, ColUpAsk, ColUpBidLiquidity, ColUpAskLiquidity); err != nil {
		return t, fmt.Errorf("up: %w", err)
	}
	if t.Down, err = quoteFields(row, ColDownBid, ColDownAsk, ColDownBidLiquidity, ColDownAskLiquidity); err != nil {
		return t, fmt.Errorf("down: %w", err)
	}

	if t.Timestamp.After(t.Expiration) {
		return t, fmt.Errorf("timestamp %s after expiration %s",
			t.Timestamp.Format(time.RFC3339), t.Expiration.Format(time.RFC3339))
	}
	return t, nil
}

func quoteFields(row domain.RawRow, bid, ask, bidLiq, askLiq string) (domain.Quote, error) {
	var q domain.Quote
	var err error
	if q.Bid, err = floatField(row, bid, true); err != nil {
		return q, err
	}
	if q.Ask, err = floatField(row, ask, true); err != nil {
		return q, err
	}
	if q.BidLiquidity, err = floatField(row, bidLiq, false); err != nil {
		return q, err
	}
	if q.AskLiquidity, err = floatField(row, askLiq, false); err != nil {
		return q, err
	}
	return q, q.Validate()
}

func timeField(row domain.RawRow, col string) (time.Time, error) {
	raw := strings.TrimSpace(row.Fields[col])
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing %s", col)
	}
	ts, err := ParseTimestamp(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", col, err)
	}
	return ts, nil
}

// floatField parses a numeric column. Optional columns default to 0 when empty.
func floatField(row domain.RawRow, col string, required bool) (float64, error) {
	raw := strings.TrimSpace(row.Fields[col])
	if raw == "" {
		if required {
			return 0, fmt.Errorf("missing %s", col)
		}
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", col, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s: not a finite number %q", col, raw)
	}
	return v, nil
}

// ParseTimestamp accepts the collector's timestamp formats. Values without a
// zone are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
