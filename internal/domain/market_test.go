package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testMarket(offsets ...int) Market {
	exp := time.Date(2025, 3, 1, 10, 15, 0, 0, time.UTC)
	m := Market{TargetTime: exp.Add(-15 * time.Minute), Expiration: exp}
	for _, s := range offsets {
		m.Ticks = append(m.Ticks, MarketTick{
			Timestamp:  m.TargetTime.Add(time.Duration(s) * time.Second),
			TargetTime: m.TargetTime,
			Expiration: exp,
		})
	}
	return m
}

func TestMarket_FirstAtOrAfter(t *testing.T) {
	m := testMarket(0, 2, 5, 9)
	base := m.TargetTime

	assert.Equal(t, 2, m.FirstAtOrAfter(base.Add(3*time.Second), 0))
	assert.Equal(t, 2, m.FirstAtOrAfter(base.Add(5*time.Second), 0))
	assert.Equal(t, 3, m.FirstAtOrAfter(base.Add(5*time.Second), 3))
	assert.Equal(t, -1, m.FirstAtOrAfter(base.Add(10*time.Second), 0))
	assert.Equal(t, -1, m.FirstAtOrAfter(base, 4))
}

func TestMarket_Truncated(t *testing.T) {
	full := testMarket(0, 890, 899)
	assert.False(t, full.Truncated(time.Minute))

	cut := testMarket(0, 300)
	assert.True(t, cut.Truncated(time.Minute))

	assert.True(t, testMarket().Truncated(time.Minute))
}

func TestMarket_ID(t *testing.T) {
	m := testMarket(0)
	assert.Equal(t, "2025-03-01T10:15:00Z", m.ID())
	assert.Equal(t, 15*time.Minute, m.Window())
}

func TestQuote_Derived(t *testing.T) {
	q := Quote{Bid: 0.40, Ask: 0.44}
	assert.InDelta(t, 0.42, q.Mid(), 1e-12)
	assert.InDelta(t, 0.04, q.Spread(), 1e-12)
	assert.NoError(t, q.Validate())

	assert.Equal(t, 0.0, Quote{Ask: 0.5}.Mid())
	assert.Error(t, Quote{Bid: 0.6, Ask: 0.5}.Validate())
	assert.Error(t, Quote{Bid: -0.1}.Validate())
}

func TestSide_Opposite(t *testing.T) {
	assert.Equal(t, SideDown, SideUp.Opposite())
	assert.Equal(t, SideUp, SideDown.Opposite())

	s, err := ParseSide("down")
	assert.NoError(t, err)
	assert.Equal(t, SideDown, s)
	_, err = ParseSide("sideways")
	assert.Error(t, err)
}
