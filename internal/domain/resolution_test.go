package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		up   Quote
		down Quote
		want Resolution
	}{
		{"up wins", Quote{Bid: 0.94, Ask: 0.96}, Quote{Bid: 0.04, Ask: 0.06}, ResolvedUp},
		{"down wins", Quote{Bid: 0.01, Ask: 0.03}, Quote{Bid: 0.97, Ask: 0.99}, ResolvedDown},
		{"exact tie", Quote{Bid: 0.49, Ask: 0.51}, Quote{Bid: 0.48, Ask: 0.52}, Unresolved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(MarketTick{Up: tt.up, Down: tt.down}))
		})
	}
}

func TestPayout_SettlementScenario(t *testing.T) {
	var pf Portfolio
	require.NoError(t, pf.Apply(confirm(SideUp, 10, 0.60)))
	require.NoError(t, pf.Apply(confirm(SideDown, 5, 0.30)))

	last := MarketTick{Up: Quote{Bid: 0.94, Ask: 0.96}, Down: Quote{Bid: 0.04, Ask: 0.06}}
	res := Resolve(last)
	require.Equal(t, ResolvedUp, res)

	assert.True(t, Payout(pf, res).Equal(Dec(10)), "10 Up shares pay $10, Down pays $0")
}

func TestPayout_Unresolved(t *testing.T) {
	var pf Portfolio
	require.NoError(t, pf.Apply(confirm(SideUp, 10, 0.5)))
	assert.True(t, Payout(pf, Unresolved).IsZero())

	_, ok := Unresolved.Winner()
	assert.False(t, ok)
}
