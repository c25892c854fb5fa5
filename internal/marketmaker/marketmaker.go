// Package marketmaker orchestrates one run: it feeds every incoming
// market data event through accounting and risk, then asks a quoting
// strategy for new quotes and submits them, cancelling everything
// first whenever risk no longer allows quoting.
package marketmaker

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/winstonzhaozhekai/market-making-engine/internal/accounting"
	"github.com/winstonzhaozhekai/market-making-engine/internal/domain"
	"github.com/winstonzhaozhekai/market-making-engine/internal/risk"
	"github.com/winstonzhaozhekai/market-making-engine/internal/strategy"
)

// mmOrderTag marks order ids generated by the market maker itself,
// distinguishing them from ids the market data generator assigns to
// other participants' resting orders.
const mmOrderTag = uint64(1) << 48

// Submitter is the orchestrator's view of wherever orders actually
// live — a live matching engine, or a simulator's internal book. The
// orchestrator has zero knowledge of which.
type Submitter interface {
	SubmitOrder(order *domain.Order, at time.Time) bool
	CancelOrder(orderID uint64, at time.Time) *domain.Order
}

// MarketMaker is one run's orchestrator. It is not safe for
// concurrent use.
type MarketMaker struct {
	submitter Submitter
	acct      *accounting.Accounting
	risk      *risk.Manager
	strategy  strategy.Strategy
	log       logrus.FieldLogger

	maxPosition int

	activeOrders          map[uint64]*domain.Order
	lastProcessedSequence int64
	hasProcessedAny       bool
	orderCounter          uint64
	totalFills            uint64
}

// Config bundles the wiring a MarketMaker needs at construction.
type Config struct {
	Submitter   Submitter
	Accounting  *accounting.Accounting
	Risk        *risk.Manager
	Strategy    strategy.Strategy
	MaxPosition int
	Log         logrus.FieldLogger
}

// New creates a MarketMaker from its wired dependencies.
func New(cfg Config) *MarketMaker {
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MarketMaker{
		submitter:    cfg.Submitter,
		acct:         cfg.Accounting,
		risk:         cfg.Risk,
		strategy:     cfg.Strategy,
		log:          log,
		maxPosition:  cfg.MaxPosition,
		activeOrders: make(map[uint64]*domain.Order),
	}
}

// OnMarketData processes one tick: fills, mark-to-market, risk
// evaluation, and either a full cancel or fresh quotes.
func (mm *MarketMaker) OnMarketData(md *domain.MarketDataEvent) {
	if mm.hasProcessedAny && md.SequenceNumber != mm.lastProcessedSequence+1 {
		mm.log.WithFields(logrus.Fields{
			"expected": mm.lastProcessedSequence + 1,
			"got":      md.SequenceNumber,
		}).Warn("market data sequence gap")
	}
	mm.lastProcessedSequence = md.SequenceNumber
	mm.hasProcessedAny = true

	if md.BestBidPrice <= 0 || md.BestAskPrice <= 0 {
		mm.log.Debug("skipping tick with empty book")
		return
	}

	for _, fill := range md.MMFills {
		mm.onFill(fill)
	}

	if observer, ok := mm.strategy.(strategy.TradeObserver); ok {
		observer.OnTrades(md.Trades)
	}

	mid := md.Mid()
	mm.acct.MarkToMarket(mid)

	grossExposure := mm.acct.GrossExposure(mid)
	netPnL := mm.acct.NetPnL()

	state, _ := mm.risk.Evaluate(mm.acct.Position(), grossExposure, netPnL, md.BestBidPrice, md.BestAskPrice, md.Timestamp)

	if state == domain.RiskStateKillSwitch || !mm.risk.IsQuotingAllowed() {
		mm.cancelAllOrders(md.Timestamp)
		return
	}

	snap := domain.StrategySnapshot{
		BestBid:        md.BestBidPrice,
		BestAsk:        md.BestAskPrice,
		Mid:            mid,
		BidLevels:      md.BidLevels,
		AskLevels:      md.AskLevels,
		Trades:         md.Trades,
		Position:       mm.acct.Position(),
		MaxPosition:    mm.maxPosition,
		Timestamp:      md.Timestamp,
		SequenceNumber: md.SequenceNumber,
	}
	mm.updateQuotes(snap, md.Timestamp)
}

// onFill applies one of the market maker's own fills to accounting
// and updates (or clears) the corresponding active order.
func (mm *MarketMaker) onFill(fill domain.FillEvent) {
	order, known := mm.activeOrders[fill.OrderID]
	if !known {
		return
	}
	mm.acct.OnFill(fill.Side, fill.Price, fill.FillQty, true)
	mm.totalFills++

	if fill.LeavesQty == 0 {
		delete(mm.activeOrders, fill.OrderID)
	} else {
		order.LeavesQty = fill.LeavesQty
		order.Status = domain.OrderStatusPartiallyFilled
	}
}

// updateQuotes cancels every resting order (they are always stale by
// the next tick) and submits a fresh bid and ask from the strategy.
func (mm *MarketMaker) updateQuotes(snap domain.StrategySnapshot, at time.Time) {
	mm.cancelAllOrders(at)

	decision := mm.strategy.ComputeQuotes(snap)
	if !decision.ShouldQuote {
		return
	}

	minSize := mm.riskMinQuoteSize()
	maxSize := mm.riskMaxQuoteSize()
	bidSize := clampSize(decision.BidSize, minSize, maxSize)
	askSize := clampSize(decision.AskSize, minSize, maxSize)

	bid := &domain.Order{
		ID:          mm.generateOrderID(),
		Side:        domain.SideBuy,
		Price:       decision.BidPrice,
		OriginalQty: bidSize,
		LeavesQty:   bidSize,
	}
	ask := &domain.Order{
		ID:          mm.generateOrderID(),
		Side:        domain.SideSell,
		Price:       decision.AskPrice,
		OriginalQty: askSize,
		LeavesQty:   askSize,
	}

	if mm.submitter.SubmitOrder(bid, at) {
		mm.activeOrders[bid.ID] = bid
	}
	if mm.submitter.SubmitOrder(ask, at) {
		mm.activeOrders[ask.ID] = ask
	}
	mm.risk.RecordQuote(at)
}

func (mm *MarketMaker) cancelAllOrders(at time.Time) {
	for id := range mm.activeOrders {
		mm.submitter.CancelOrder(id, at)
		mm.risk.RecordCancel(at)
		delete(mm.activeOrders, id)
	}
}

func (mm *MarketMaker) generateOrderID() uint64 {
	mm.orderCounter++
	return mmOrderTag | mm.orderCounter
}

// riskMinQuoteSize/riskMaxQuoteSize are small accessors so this
// package does not need to import risk.Config directly in callers;
// they read the active risk manager's own configured bounds.
func (mm *MarketMaker) riskMinQuoteSize() int { return mm.risk.QuoteSizeBounds().Min }
func (mm *MarketMaker) riskMaxQuoteSize() int { return mm.risk.QuoteSizeBounds().Max }

func clampSize(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Report summarizes the run's accounting and risk state.
type Report struct {
	Position      int
	AvgEntryPrice float64
	RealizedPnL   float64
	UnrealizedPnL float64
	TotalPnL      float64
	NetPnL        float64
	TotalFees     float64
	TotalRebates  float64
	TotalFills    uint64
	RiskState     domain.RiskState
}

// Report builds a snapshot of the run's current standing.
func (mm *MarketMaker) Report() Report {
	return Report{
		Position:      mm.acct.Position(),
		AvgEntryPrice: mm.acct.AvgEntryPrice(),
		RealizedPnL:   mm.acct.RealizedPnL(),
		UnrealizedPnL: mm.acct.UnrealizedPnL(),
		TotalPnL:      mm.acct.TotalPnL(),
		NetPnL:        mm.acct.NetPnL(),
		TotalFees:     mm.acct.TotalFees(),
		TotalRebates:  mm.acct.TotalRebates(),
		TotalFills:    mm.totalFills,
		RiskState:     mm.risk.State(),
	}
}

func (r Report) String() string {
	return fmt.Sprintf(
		"position=%d avg_entry=%.4f realized=%.2f unrealized=%.2f total=%.2f net=%.2f fees=%.2f rebates=%.2f fills=%d risk=%s",
		r.Position, r.AvgEntryPrice, r.RealizedPnL, r.UnrealizedPnL, r.TotalPnL, r.NetPnL, r.TotalFees, r.TotalRebates, r.TotalFills, r.RiskState,
	)
}
