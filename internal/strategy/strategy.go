// Package strategy implements the quoting strategies the market maker
// orchestrator can drive: a fixed-spread heuristic and an
// inventory-aware reservation-price quoter.
package strategy

import "github.com/winstonzhaozhekai/market-making-engine/internal/domain"

// Strategy computes a quote decision from an immutable snapshot of the
// book and the orchestrator's current inventory.
type Strategy interface {
	ComputeQuotes(snapshot domain.StrategySnapshot) domain.QuoteDecision
	Name() string
}

// TradeObserver is implemented by strategies that track public trade
// flow between ticks, such as ReservationStrategy's order-flow
// imbalance estimator. The orchestrator feeds trades to it, when
// present, before calling ComputeQuotes.
type TradeObserver interface {
	OnTrades(trades []domain.Trade)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
