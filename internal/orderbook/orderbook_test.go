package orderbook

import (
	"testing"
	"time"

	"github.com/winstonzhaozhekai/market-making-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrder(id uint64, side domain.Side, price float64, qty int) *domain.Order {
	return &domain.Order{
		ID:          id,
		Side:        side,
		Price:       price,
		OriginalQty: qty,
		LeavesQty:   qty,
		Status:      domain.OrderStatusNew,
	}
}

func seqID() func() uint64 {
	var n uint64
	return func() uint64 { n++; return n }
}

func TestAddOrder_Rests(t *testing.T) {
	e := NewEngine()
	now := time.Now()

	sell := newOrder(1, domain.SideSell, 100.10, 1000)
	ok := e.AddOrder(sell, now)

	assert.True(t, ok)
	assert.True(t, e.Asks.HasOrders())
	best, has := e.Asks.BestPrice()
	assert.True(t, has)
	assert.Equal(t, 100.10, best)
}

func TestAddOrder_RejectsNonPositivePrice(t *testing.T) {
	e := NewEngine()
	order := newOrder(1, domain.SideBuy, 0, 100)
	ok := e.AddOrder(order, time.Now())
	assert.False(t, ok)
	assert.Equal(t, domain.OrderStatusRejected, order.Status)
}

func TestAddOrder_RejectsNonPositiveQty(t *testing.T) {
	e := NewEngine()
	order := newOrder(1, domain.SideBuy, 100, 0)
	ok := e.AddOrder(order, time.Now())
	assert.False(t, ok)
	assert.Equal(t, domain.OrderStatusRejected, order.Status)
}

func TestBestPriceTracking(t *testing.T) {
	e := NewEngine()
	now := time.Now()

	e.AddOrder(newOrder(1, domain.SideBuy, 99.90, 100), now)
	e.AddOrder(newOrder(2, domain.SideBuy, 100.00, 100), now)
	e.AddOrder(newOrder(3, domain.SideBuy, 99.80, 100), now)

	best, _ := e.Bids.BestPrice()
	assert.Equal(t, 100.00, best)

	e.AddOrder(newOrder(4, domain.SideSell, 100.10, 100), now)
	e.AddOrder(newOrder(5, domain.SideSell, 100.20, 100), now)

	best, _ = e.Asks.BestPrice()
	assert.Equal(t, 100.10, best)
}

func TestMatchIncomingOrder_FullFill(t *testing.T) {
	e := NewEngine()
	now := time.Now()
	nextID := seqID()

	sell := newOrder(1, domain.SideSell, 100.10, 1000)
	e.AddOrder(sell, now)

	fills, remaining := e.MatchIncomingOrder(domain.SideBuy, 100.10, 1000, nextID, now)

	require.Len(t, fills, 1)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, 1000, fills[0].FillQty)
	assert.Equal(t, 100.10, fills[0].Price) // executes at maker's price
	assert.Equal(t, uint64(1), fills[0].OrderID)
	assert.Equal(t, domain.OrderStatusFilled, sell.Status)
	assert.False(t, e.Asks.HasOrders())
}

func TestMatchIncomingOrder_PartialFill(t *testing.T) {
	e := NewEngine()
	now := time.Now()
	nextID := seqID()

	sell := newOrder(1, domain.SideSell, 100.10, 1000)
	e.AddOrder(sell, now)

	fills, remaining := e.MatchIncomingOrder(domain.SideBuy, 100.10, 200, nextID, now)

	require.Len(t, fills, 1)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, 200, fills[0].FillQty)
	assert.Equal(t, domain.OrderStatusPartiallyFilled, sell.Status)
	assert.Equal(t, 800, sell.LeavesQty)
	assert.True(t, e.Asks.HasOrders())
}

func TestMatchIncomingOrder_MultipleLevels(t *testing.T) {
	e := NewEngine()
	now := time.Now()
	nextID := seqID()

	e.AddOrder(newOrder(1, domain.SideSell, 100.10, 100), now)
	e.AddOrder(newOrder(2, domain.SideSell, 100.20, 200), now)

	fills, remaining := e.MatchIncomingOrder(domain.SideBuy, 100.20, 300, nextID, now)

	require.Len(t, fills, 2)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, 100, fills[0].FillQty)
	assert.Equal(t, 100.10, fills[0].Price)
	assert.Equal(t, 200, fills[1].FillQty)
	assert.Equal(t, 100.20, fills[1].Price)
	assert.False(t, e.Asks.HasOrders())
}

func TestMatchIncomingOrder_NoMatch(t *testing.T) {
	e := NewEngine()
	now := time.Now()
	nextID := seqID()

	e.AddOrder(newOrder(1, domain.SideSell, 100.20, 100), now)

	fills, remaining := e.MatchIncomingOrder(domain.SideBuy, 100.10, 100, nextID, now)

	assert.Empty(t, fills)
	assert.Equal(t, 100, remaining)
}

func TestMatchIncomingOrder_FIFO(t *testing.T) {
	e := NewEngine()
	now := time.Now()
	nextID := seqID()

	e.AddOrder(newOrder(1, domain.SideSell, 100.10, 100), now)
	e.AddOrder(newOrder(2, domain.SideSell, 100.10, 100), now)

	fills, _ := e.MatchIncomingOrder(domain.SideBuy, 100.10, 100, nextID, now)

	require.Len(t, fills, 1)
	assert.Equal(t, uint64(1), fills[0].OrderID) // order 1 matched first (FIFO)
}

func TestCancelOrder(t *testing.T) {
	e := NewEngine()
	now := time.Now()

	sell := newOrder(1, domain.SideSell, 100.10, 1000)
	e.AddOrder(sell, now)

	canceled := e.CancelOrder(1, now)
	require.NotNil(t, canceled)
	assert.Equal(t, domain.OrderStatusCanceled, canceled.Status)
	assert.False(t, e.Asks.HasOrders())
}

func TestCancelOrder_NotFound(t *testing.T) {
	e := NewEngine()
	canceled := e.CancelOrder(999, time.Now())
	assert.Nil(t, canceled)
}

func TestCancelOrder_MiddleOfLevel(t *testing.T) {
	e := NewEngine()
	now := time.Now()

	e.AddOrder(newOrder(1, domain.SideSell, 100.10, 100), now)
	e.AddOrder(newOrder(2, domain.SideSell, 100.10, 200), now)
	e.AddOrder(newOrder(3, domain.SideSell, 100.10, 300), now)

	canceled := e.CancelOrder(2, now)
	require.NotNil(t, canceled)

	assert.Equal(t, 400, e.Asks.Depth(100.10)) // 100 + 300
}

func TestSnapshot_Depth(t *testing.T) {
	e := NewEngine()
	now := time.Now()

	for i := 0; i < 5; i++ {
		e.AddOrder(newOrder(uint64(i+1), domain.SideBuy, 99.90-float64(i)*0.10, 100), now)
	}

	bids, _ := e.Snapshot(3, now)
	assert.Len(t, bids, 3)
	assert.InDelta(t, 99.90, bids[0].Price, 1e-12)
	assert.InDelta(t, 99.80, bids[1].Price, 1e-12)
	assert.InDelta(t, 99.70, bids[2].Price, 1e-12)
}

func TestSnapshot_Empty(t *testing.T) {
	e := NewEngine()
	bids, asks := e.Snapshot(5, time.Now())
	assert.Empty(t, bids)
	assert.Empty(t, asks)
}
