// Package orderbook implements the matching engine: a price-time
// priority limit order book that only ever rests orders (no aggressive
// order ever reaches AddOrder) and matches incoming aggressors against
// the resting book at the maker's price.
package orderbook

import (
	"container/list"
	"time"

	"github.com/winstonzhaozhekai/market-making-engine/internal/domain"
)

// entry indexes a resting order by id for O(1) cancel.
type entry struct {
	order   *domain.Order
	element *list.Element
	level   *level
}

// level is one price level on one side of the book: a FIFO queue of
// resting orders plus a running total for fast depth reporting.
type level struct {
	price       float64
	totalVolume int
	orders      *list.List // of *domain.Order, front = oldest (highest priority)
}

// Book is one side of the book.
type Book struct {
	side      domain.Side
	levels    map[float64]*level
	bestPrice float64
	hasOrders bool
}

func newBook(side domain.Side) *Book {
	return &Book{side: side, levels: make(map[float64]*level)}
}

// BestPrice returns the best resting price on this side, and whether
// the side has any resting orders at all.
func (b *Book) BestPrice() (float64, bool) {
	return b.bestPrice, b.hasOrders
}

// HasOrders reports whether this side has any resting orders.
func (b *Book) HasOrders() bool {
	return b.hasOrders
}

// Depth returns the total resting volume at a given price, 0 if none.
func (b *Book) Depth(price float64) int {
	lvl, ok := b.levels[price]
	if !ok {
		return 0
	}
	return lvl.totalVolume
}

func (b *Book) addOrder(order *domain.Order) *list.Element {
	lvl, ok := b.levels[order.Price]
	if !ok {
		lvl = &level{price: order.Price, orders: list.New()}
		b.levels[order.Price] = lvl
	}
	lvl.totalVolume += order.LeavesQty
	elem := lvl.orders.PushBack(order)
	b.refreshBestPrice()
	return elem
}

func (b *Book) removeEntry(e *entry) {
	lvl := e.level
	lvl.orders.Remove(e.element)
	lvl.totalVolume -= e.order.LeavesQty
	if lvl.orders.Len() == 0 {
		delete(b.levels, lvl.price)
	}
	b.refreshBestPrice()
}

func (b *Book) refreshBestPrice() {
	if len(b.levels) == 0 {
		b.hasOrders = false
		b.bestPrice = 0
		return
	}
	b.hasOrders = true
	if b.side == domain.SideBuy {
		best := -1.0
		for price := range b.levels {
			if price > best {
				best = price
			}
		}
		b.bestPrice = best
	} else {
		best := -1.0
		for price := range b.levels {
			if best < 0 || price < best {
				best = price
			}
		}
		b.bestPrice = best
	}
}

// snapshot returns up to depth resting orders on this side, in
// price-time priority order, as OrderLevel entries.
func (b *Book) snapshot(depth int, at time.Time) []domain.OrderLevel {
	prices := make([]float64, 0, len(b.levels))
	for price := range b.levels {
		prices = append(prices, price)
	}
	sortPrices(prices, b.side == domain.SideBuy)

	out := make([]domain.OrderLevel, 0, depth)
	for _, price := range prices {
		lvl := b.levels[price]
		for el := lvl.orders.Front(); el != nil; el = el.Next() {
			if depth > 0 && len(out) >= depth {
				return out
			}
			o := el.Value.(*domain.Order)
			out = append(out, domain.OrderLevel{
				Price:     o.Price,
				Size:      o.LeavesQty,
				OrderID:   o.ID,
				Timestamp: at,
			})
		}
	}
	return out
}

func sortPrices(prices []float64, descending bool) {
	for i := 1; i < len(prices); i++ {
		for j := i; j > 0; j-- {
			if descending {
				if prices[j] <= prices[j-1] {
					break
				}
			} else {
				if prices[j] >= prices[j-1] {
					break
				}
			}
			prices[j], prices[j-1] = prices[j-1], prices[j]
		}
	}
}

// Engine is the single-instrument matching engine: two books plus an
// id-indexed order registry for O(1) cancel.
type Engine struct {
	Bids  *Book
	Asks  *Book
	index map[uint64]*entry
}

// NewEngine creates an empty matching engine.
func NewEngine() *Engine {
	return &Engine{
		Bids:  newBook(domain.SideBuy),
		Asks:  newBook(domain.SideSell),
		index: make(map[uint64]*entry),
	}
}

func (e *Engine) bookFor(side domain.Side) *Book {
	if side == domain.SideBuy {
		return e.Bids
	}
	return e.Asks
}

// AddOrder rests a new order on the book. It rejects orders with a
// non-positive price or non-positive leaves quantity, setting Status
// to Rejected and returning false, rather than resting them.
func (e *Engine) AddOrder(order *domain.Order, at time.Time) bool {
	if order.Price <= 0.0 || order.LeavesQty <= 0 {
		order.Status = domain.OrderStatusRejected
		order.UpdatedAt = at
		return false
	}
	order.Status = domain.OrderStatusAcknowledged
	order.CreatedAt = at
	order.UpdatedAt = at

	book := e.bookFor(order.Side)
	elem := book.addOrder(order)
	e.index[order.ID] = &entry{order: order, element: elem, level: book.levels[order.Price]}
	return true
}

// CancelOrder removes a resting order by id. Returns the canceled
// order, or nil if no such order is resting.
func (e *Engine) CancelOrder(orderID uint64, at time.Time) *domain.Order {
	en, ok := e.index[orderID]
	if !ok {
		return nil
	}
	book := e.bookFor(en.order.Side)
	book.removeEntry(en)
	delete(e.index, orderID)

	en.order.Status = domain.OrderStatusCanceled
	en.order.UpdatedAt = at
	return en.order
}

// MatchIncomingOrder matches an aggressor against the resting book on
// the opposite side. It never rests the aggressor itself — callers
// that want a two-sided book for an order that can also rest must call
// AddOrder separately with whatever quantity remains. Fills always
// price at the maker's resting price; makers are removed from the book
// as soon as their leaves quantity reaches zero.
func (e *Engine) MatchIncomingOrder(side domain.Side, price float64, qty int, nextTradeID func() uint64, at time.Time) ([]domain.FillEvent, int) {
	opposite := e.bookFor(oppositeSide(side))
	remaining := qty
	var fills []domain.FillEvent

	for remaining > 0 && opposite.HasOrders() {
		bestPrice, _ := opposite.BestPrice()
		if side == domain.SideBuy && price < bestPrice {
			break
		}
		if side == domain.SideSell && price > bestPrice {
			break
		}

		lvl := opposite.levels[bestPrice]
		for remaining > 0 && lvl.orders.Len() > 0 {
			front := lvl.orders.Front()
			maker := front.Value.(*domain.Order)

			matchQty := remaining
			if maker.LeavesQty < matchQty {
				matchQty = maker.LeavesQty
			}

			maker.LeavesQty -= matchQty
			maker.UpdatedAt = at
			remaining -= matchQty
			lvl.totalVolume -= matchQty

			if maker.LeavesQty == 0 {
				maker.Status = domain.OrderStatusFilled
				lvl.orders.Remove(front)
				delete(e.index, maker.ID)
			} else {
				maker.Status = domain.OrderStatusPartiallyFilled
			}

			fills = append(fills, domain.FillEvent{
				OrderID:   maker.ID,
				TradeID:   nextTradeID(),
				Side:      maker.Side,
				Price:     maker.Price,
				FillQty:   matchQty,
				LeavesQty: maker.LeavesQty,
				Timestamp: at,
			})
		}

		if lvl.orders.Len() == 0 {
			delete(opposite.levels, bestPrice)
			opposite.refreshBestPrice()
		}
	}

	return fills, remaining
}

// Snapshot returns up to depth resting orders per side, in price-time
// priority order.
func (e *Engine) Snapshot(depth int, at time.Time) (bids, asks []domain.OrderLevel) {
	return e.Bids.snapshot(depth, at), e.Asks.snapshot(depth, at)
}

func oppositeSide(s domain.Side) domain.Side {
	if s == domain.SideBuy {
		return domain.SideSell
	}
	return domain.SideBuy
}
