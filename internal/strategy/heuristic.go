package strategy

import "github.com/winstonzhaozhekai/market-making-engine/internal/domain"

// HeuristicConfig holds the tunables for the fixed-spread heuristic
// quoter.
type HeuristicConfig struct {
	BaseSpread float64
	SkewFactor float64
	MaxSkew    float64
	BaseSize   float64
	SizeFactor float64
}

// DefaultHeuristicConfig returns the conventional tunables for this
// quoter.
func DefaultHeuristicConfig() HeuristicConfig {
	return HeuristicConfig{
		BaseSpread: 0.02,
		SkewFactor: 0.001,
		MaxSkew:    0.01,
		BaseSize:   5,
		SizeFactor: 0.1,
	}
}

// HeuristicStrategy quotes a fixed spread around the mid, skewed by
// inventory, with per-side size scaled by top-of-book depth and
// inventory utilization.
type HeuristicStrategy struct {
	cfg HeuristicConfig
}

// NewHeuristicStrategy creates a HeuristicStrategy with the given
// tunables.
func NewHeuristicStrategy(cfg HeuristicConfig) *HeuristicStrategy {
	return &HeuristicStrategy{cfg: cfg}
}

func (s *HeuristicStrategy) Name() string { return "heuristic" }

func (s *HeuristicStrategy) ComputeQuotes(snap domain.StrategySnapshot) domain.QuoteDecision {
	skew := clamp(-float64(snap.Position)*s.cfg.SkewFactor, -s.cfg.MaxSkew, s.cfg.MaxSkew)

	bidPrice := snap.Mid - s.cfg.BaseSpread/2 + skew
	askPrice := snap.Mid + s.cfg.BaseSpread/2 + skew

	bidDepth := topOfBookSize(snap.BidLevels)
	askDepth := topOfBookSize(snap.AskLevels)

	inventoryFactor := 1.0
	if snap.MaxPosition > 0 {
		util := float64(abs(snap.Position)) / float64(snap.MaxPosition)
		inventoryFactor = 1.0 - util
		if inventoryFactor < 0.1 {
			inventoryFactor = 0.1
		}
	}

	bidSize := sizeFor(s.cfg.BaseSize, bidDepth, s.cfg.SizeFactor, inventoryFactor)
	askSize := sizeFor(s.cfg.BaseSize, askDepth, s.cfg.SizeFactor, inventoryFactor)

	return domain.QuoteDecision{
		BidPrice:    bidPrice,
		AskPrice:    askPrice,
		BidSize:     bidSize,
		AskSize:     askSize,
		ShouldQuote: true,
	}
}

func sizeFor(base float64, depth int, sizeFactor, inventoryFactor float64) int {
	size := base * (1 + float64(depth)*sizeFactor) * inventoryFactor
	rounded := int(size)
	if rounded < 1 {
		rounded = 1
	}
	return rounded
}

func topOfBookSize(levels []domain.OrderLevel) int {
	if len(levels) == 0 {
		return 0
	}
	return levels[0].Size
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
