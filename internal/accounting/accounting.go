// Package accounting tracks position, cost basis, fees/rebates, and
// realized/unrealized P&L from a stream of fills. It carries no clock
// of its own: every query reflects the state as of the last fill or
// mark applied to it.
package accounting

import (
	"math"

	"github.com/winstonzhaozhekai/market-making-engine/internal/domain"
)

// Accounting is a single instrument's books. It is not safe for
// concurrent use; callers that need concurrency must serialize access
// themselves (see the transport layer's per-worker isolation).
type Accounting struct {
	fees domain.FeeSchedule

	cash         float64
	position     int
	costBasis    float64
	realizedPnL  float64
	unrealizedPnL float64
	totalFees    float64
	totalRebates float64
}

// New creates an Accounting instance seeded with starting cash.
func New(startingCash float64, fees domain.FeeSchedule) *Accounting {
	return &Accounting{cash: startingCash, fees: fees}
}

// OnFill applies one fill to the books. isMaker selects whether the
// fee schedule's maker rebate or taker fee applies. Fees and rebates
// accrue into totalFees/totalRebates for the net P&L query; they never
// touch cash, matching the ground-truth ledger. It ends by re-marking
// at the fill price, so unrealizedPnL is never stale after a fill that
// closes or flips the position flat.
func (a *Accounting) OnFill(side domain.Side, price float64, qty int, isMaker bool) {
	notional := price * float64(qty)
	fee := notional * a.fees.FeeBps / 10000.0

	if isMaker {
		rebate := a.fees.MakerRebatePerShare * float64(qty)
		a.totalRebates += rebate
		fee -= rebate
	} else {
		fee += a.fees.TakerFeePerShare * float64(qty)
	}
	a.totalFees += fee

	if side == domain.SideBuy {
		a.cash -= notional
	} else {
		a.cash += notional
	}

	signedQty := qty
	if side == domain.SideSell {
		signedQty = -qty
	}

	sameSign := a.position == 0 || sameSign(a.position, signedQty)
	if sameSign {
		a.position += signedQty
		a.costBasis += notional
		a.MarkToMarket(price)
		return
	}

	avgEntry := a.AvgEntryPrice()
	closeQty := qty
	if abs(a.position) < closeQty {
		closeQty = abs(a.position)
	}

	if a.position > 0 {
		a.realizedPnL += (price - avgEntry) * float64(closeQty)
	} else {
		a.realizedPnL += (avgEntry - price) * float64(closeQty)
	}

	openQty := qty - closeQty
	a.position += signedQty

	if openQty > 0 {
		a.costBasis = price * float64(openQty)
	} else {
		a.costBasis -= avgEntry * float64(closeQty)
	}

	if a.position == 0 {
		a.costBasis = 0
	}

	a.MarkToMarket(price)
}

// MarkToMarket re-values the open position's unrealized P&L at the
// given mid price.
func (a *Accounting) MarkToMarket(mid float64) {
	if a.position == 0 {
		a.unrealizedPnL = 0
		return
	}
	avgEntry := a.AvgEntryPrice()
	if a.position > 0 {
		a.unrealizedPnL = (mid - avgEntry) * float64(a.position)
	} else {
		a.unrealizedPnL = (avgEntry - mid) * float64(-a.position)
	}
}

// ResetDaily zeroes realized P&L, unrealized P&L, fees, and rebates —
// a daily rollover, wired from the transport layer's optional rollover
// tick. It never touches position or cost basis.
func (a *Accounting) ResetDaily() {
	a.realizedPnL = 0
	a.unrealizedPnL = 0
	a.totalFees = 0
	a.totalRebates = 0
}

// AvgEntryPrice returns the weighted-average entry price of the open
// position, 0 if flat.
func (a *Accounting) AvgEntryPrice() float64 {
	if a.position == 0 {
		return 0
	}
	return a.costBasis / float64(abs(a.position))
}

func (a *Accounting) Position() int        { return a.position }
func (a *Accounting) CostBasis() float64   { return a.costBasis }
func (a *Accounting) Cash() float64        { return a.cash }
func (a *Accounting) RealizedPnL() float64 { return a.realizedPnL }
func (a *Accounting) UnrealizedPnL() float64 {
	return a.unrealizedPnL
}
func (a *Accounting) TotalPnL() float64 { return a.realizedPnL + a.unrealizedPnL }
func (a *Accounting) TotalFees() float64    { return a.totalFees }
func (a *Accounting) TotalRebates() float64 { return a.totalRebates }

// NetPnL is total P&L net of fees and rebates — the figure the risk
// engine's drawdown rule and any P&L reporting should use.
func (a *Accounting) NetPnL() float64 {
	return a.TotalPnL() - a.totalFees + a.totalRebates
}

// GrossExposure returns the absolute notional value of the open
// position at the given mark price.
func (a *Accounting) GrossExposure(mark float64) float64 {
	return math.Abs(float64(a.position)) * mark
}

// NetExposure returns the signed notional value of the open position
// at the given mark price.
func (a *Accounting) NetExposure(mark float64) float64 {
	return float64(a.position) * mark
}

func sameSign(position, signedQty int) bool {
	return (position > 0 && signedQty > 0) || (position < 0 && signedQty < 0)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
