// Package domain holds the shared data types that cross the boundaries
// between the matching engine, the estimators, accounting, risk and
// strategy layers, and the market maker orchestrator. Nothing in this
// package mutates itself; every type here is either a plain value or an
// immutable-for-the-duration-of-one-call snapshot.
package domain

import "time"

// Side is the direction of an order or trade.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	if s == SideBuy {
		return "BUY"
	}
	return "SELL"
}

// OrderStatus is the lifecycle state of a resting order.
type OrderStatus int

const (
	OrderStatusNew OrderStatus = iota
	OrderStatusAcknowledged
	OrderStatusPartiallyFilled
	OrderStatusFilled
	OrderStatusCanceled
	OrderStatusRejected
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusNew:
		return "NEW"
	case OrderStatusAcknowledged:
		return "ACKNOWLEDGED"
	case OrderStatusPartiallyFilled:
		return "PARTIALLY_FILLED"
	case OrderStatusFilled:
		return "FILLED"
	case OrderStatusCanceled:
		return "CANCELED"
	case OrderStatusRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// RiskState is the severity level of the risk engine, and the state of
// its recovery machine. The ordering below (Normal < Warning < Breached
// < KillSwitch) is total and is relied on by the rule aggregator.
type RiskState int

const (
	RiskStateNormal RiskState = iota
	RiskStateWarning
	RiskStateBreached
	RiskStateKillSwitch
)

func (s RiskState) String() string {
	switch s {
	case RiskStateNormal:
		return "Normal"
	case RiskStateWarning:
		return "Warning"
	case RiskStateBreached:
		return "Breached"
	case RiskStateKillSwitch:
		return "KillSwitch"
	default:
		return "Unknown"
	}
}

// Order is a resting limit order owned by the matching engine while it
// rests on the book. Price and Side are immutable once created;
// CreatedAt never changes and is the tie-break key for price-time
// priority.
type Order struct {
	ID          uint64
	Side        Side
	Price       float64
	OriginalQty int
	LeavesQty   int
	Status      OrderStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FillEvent is emitted by the matching engine for each maker resting
// order consumed by an incoming aggressor. Price is always the maker's
// resting price, never the taker's limit.
type FillEvent struct {
	OrderID   uint64
	TradeID   uint64
	Side      Side
	Price     float64
	FillQty   int
	LeavesQty int
	Timestamp time.Time
}

// OrderLevel is one resting order's contribution to a market data
// snapshot's level vectors.
type OrderLevel struct {
	Price     float64
	Size      int
	OrderID   uint64
	Timestamp time.Time
}

// Trade is a public trade print that occurred on a given tick.
type Trade struct {
	AggressorSide Side
	Price         float64
	Size          int
	TradeID       uint64
	Timestamp     time.Time
}

// PartialFillEvent narrates a partial fill against a resting order, as
// surfaced on the event log and in the public feed.
type PartialFillEvent struct {
	OrderID       uint64
	Price         float64
	FilledSize    int
	RemainingSize int
	Timestamp     time.Time
}

// MarketDataEvent is a single-use immutable record describing one tick
// of the simulated market, including any fills against the market
// maker's own resting orders (MMFills).
type MarketDataEvent struct {
	Instrument    string
	BestBidPrice  float64
	BestAskPrice  float64
	BestBidSize   int
	BestAskSize   int
	BidLevels     []OrderLevel
	AskLevels     []OrderLevel
	Trades        []Trade
	PartialFills  []PartialFillEvent
	MMFills       []FillEvent
	Timestamp     time.Time
	SequenceNumber int64
}

// Mid returns the arithmetic mean of the best bid and best ask.
func (md *MarketDataEvent) Mid() float64 {
	return (md.BestBidPrice + md.BestAskPrice) / 2.0
}

// StrategySnapshot is the immutable view a Strategy receives for the
// duration of a single compute_quotes call.
type StrategySnapshot struct {
	BestBid        float64
	BestAsk        float64
	Mid            float64
	BidLevels      []OrderLevel
	AskLevels      []OrderLevel
	Trades         []Trade
	Position       int
	MaxPosition    int
	Timestamp      time.Time
	SequenceNumber int64
}

// QuoteDecision is a strategy's answer: where to quote, how much, and
// whether to quote at all this tick.
type QuoteDecision struct {
	BidPrice    float64
	AskPrice    float64
	BidSize     int
	AskSize     int
	ShouldQuote bool
}

// FeeSchedule describes the per-share and basis-point fee/rebate terms
// applied to every fill.
type FeeSchedule struct {
	MakerRebatePerShare float64
	TakerFeePerShare    float64
	FeeBps              float64
}
