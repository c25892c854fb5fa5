package strategy

import (
	"testing"

	"github.com/winstonzhaozhekai/market-making-engine/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestHeuristicStrategy_QuotesAroundMid(t *testing.T) {
	s := NewHeuristicStrategy(DefaultHeuristicConfig())
	snap := domain.StrategySnapshot{
		Mid:         100,
		Position:    0,
		MaxPosition: 100,
	}
	d := s.ComputeQuotes(snap)

	assert.True(t, d.ShouldQuote)
	assert.Less(t, d.BidPrice, 100.0)
	assert.Greater(t, d.AskPrice, 100.0)
}

func TestHeuristicStrategy_SkewsAgainstPosition(t *testing.T) {
	s := NewHeuristicStrategy(DefaultHeuristicConfig())
	flat := s.ComputeQuotes(domain.StrategySnapshot{Mid: 100, Position: 0, MaxPosition: 100})
	long := s.ComputeQuotes(domain.StrategySnapshot{Mid: 100, Position: 50, MaxPosition: 100})

	// Long inventory should skew quotes down to encourage selling.
	assert.Less(t, long.BidPrice, flat.BidPrice)
	assert.Less(t, long.AskPrice, flat.AskPrice)
}

func TestHeuristicStrategy_SizeShrinksWithInventoryUtilization(t *testing.T) {
	s := NewHeuristicStrategy(DefaultHeuristicConfig())
	flat := s.ComputeQuotes(domain.StrategySnapshot{Mid: 100, Position: 0, MaxPosition: 100})
	nearMax := s.ComputeQuotes(domain.StrategySnapshot{Mid: 100, Position: 95, MaxPosition: 100})

	assert.LessOrEqual(t, nearMax.BidSize, flat.BidSize)
}

func TestReservationStrategy_QuotesAroundReservationPrice(t *testing.T) {
	s := NewReservationStrategy(DefaultReservationConfig())
	snap := domain.StrategySnapshot{
		Mid:         100,
		Position:    0,
		MaxPosition: 100,
	}
	d := s.ComputeQuotes(snap)

	assert.True(t, d.ShouldQuote)
	assert.Less(t, d.BidPrice, d.AskPrice)
}

func TestReservationStrategy_ToxicFlowPullsQuotesWhenConfigured(t *testing.T) {
	cfg := DefaultReservationConfig()
	cfg.PullOnToxic = true
	cfg.ToxicOFIThreshold = 0.1
	s := NewReservationStrategy(cfg)

	s.OnTrades([]domain.Trade{
		{AggressorSide: domain.SideBuy, Size: 100},
		{AggressorSide: domain.SideBuy, Size: 100},
	})

	d := s.ComputeQuotes(domain.StrategySnapshot{Mid: 100, Position: 0, MaxPosition: 100})
	assert.False(t, d.ShouldQuote)
}

func TestReservationStrategy_InventorySkewsSizesAsymmetrically(t *testing.T) {
	s := NewReservationStrategy(DefaultReservationConfig())
	d := s.ComputeQuotes(domain.StrategySnapshot{Mid: 100, Position: 50, MaxPosition: 100})

	// Long inventory: want to sell more, buy less.
	assert.Less(t, d.BidSize, d.AskSize)
}

func TestReservationStrategy_SpreadClampedToBounds(t *testing.T) {
	cfg := DefaultReservationConfig()
	cfg.MinSpreadBps = 1000 // force the floor to bind
	s := NewReservationStrategy(cfg)

	d := s.ComputeQuotes(domain.StrategySnapshot{Mid: 100, Position: 0, MaxPosition: 100})
	minSpread := cfg.MinSpreadBps * 100 / 10000.0
	assert.InDelta(t, minSpread, d.AskPrice-d.BidPrice, 1e-9)
}
