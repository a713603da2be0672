package service

import (
	"testing"

	"AnitMarket/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestVolumeAndTraders_OnlyRealTransactions(t *testing.T) {
	bets := []*model.Bet{
		{UserID: "u1", OutcomeID: "yes", Amount: 0.1, IsRealTransaction: true},
		{UserID: "u1", OutcomeID: "yes", Amount: 0.2, IsRealTransaction: true},
		{UserID: "u2", OutcomeID: "no", Amount: 5, IsRealTransaction: true},
		{UserID: "u3", OutcomeID: "no", Amount: 100, IsRealTransaction: false},
		{WalletAddress: "0xw", OutcomeID: "no", Amount: 1, IsRealTransaction: true},
		nil,
	}

	assert.Equal(t, 6.3, Volume(bets))
	assert.Equal(t, 3, TraderCount(bets))

	per := OutcomeVolumes(bets)
	assert.InDelta(t, 0.3, per["yes"], 1e-9)
	assert.InDelta(t, 6.0, per["no"], 1e-9)

	stats := ComputeMarketStats("market_1", bets)
	assert.Equal(t, "market_1", stats.MarketID)
	assert.Equal(t, 6, stats.BetCount)
	assert.Equal(t, 3, stats.Traders)
	assert.Equal(t, 6.3, stats.Volume)
}

func TestVolume_Empty(t *testing.T) {
	assert.Zero(t, Volume(nil))
	assert.Zero(t, TraderCount(nil))
	assert.Equal(t, MarketStats{MarketID: "m"}, ComputeMarketStats("m", nil))
}

func TestProbabilityFromVolume(t *testing.T) {
	cases := []struct {
		name    string
		volumes []float64
		want    []float64
	}{
		{"empty", nil, []float64{}},
		{"zero total is uniform", []float64{0, 0}, []float64{50, 50}},
		{"three way uniform", []float64{0, 0, 0}, []float64{100.0 / 3, 100.0 / 3, 100.0 / 3}},
		{"proportional", []float64{30, 70}, []float64{30, 70}},
		{"rounded independently", []float64{1, 1, 1}, []float64{33, 33, 33}},
		{"single outcome", []float64{12}, []float64{100}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ProbabilityFromVolume(tc.volumes))
		})
	}
}
