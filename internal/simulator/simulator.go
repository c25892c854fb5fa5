// Package simulator generates the synthetic market data a run's
// market maker orchestrator reacts to: a seeded geometric-Brownian
// mid-price walk, jittered L2 levels, and probabilistic trade flow
// that can cross the market maker's own resting orders. It also hosts
// the market maker's resting orders itself, acting as the
// marketmaker.Submitter every run needs.
package simulator

import (
	"math"
	"math/rand"
	"time"

	"github.com/winstonzhaozhekai/market-making-engine/internal/domain"
	"github.com/winstonzhaozhekai/market-making-engine/internal/eventlog"
	"github.com/winstonzhaozhekai/market-making-engine/internal/orderbook"
)

// Mode selects whether a run generates fresh market data or replays a
// previously written log.
type Mode int

const (
	ModeSimulate Mode = iota
	ModeReplay
)

// Config mirrors the external SimulationConfig: a seed and market
// parameters sufficient to reproduce a run bit-for-bit.
type Config struct {
	Instrument   string
	InitialPrice float64
	Spread       float64
	Volatility   float64
	LatencyMs    int
	Iterations   int
	Seed         uint32
	Mode         Mode
}

// DefaultConfig mirrors the informative defaults of the external
// configuration surface.
func DefaultConfig() Config {
	return Config{
		Instrument:   "XYZ",
		InitialPrice: 100.0,
		Spread:       0.1,
		Volatility:   0.5,
		LatencyMs:    10,
		Iterations:   1000,
		Seed:         42,
	}
}

// Generator produces a deterministic sequence of market data events
// from a seed, and hosts the market maker's resting orders so its
// fills can be produced by the same synthetic trade flow.
type Generator struct {
	cfg    Config
	engine *orderbook.Engine
	rng    *rand.Rand

	mid            float64
	seq            int64
	clock          time.Time
	nextTradeIDCtr uint64
	iterationsDone int
}

// NewGenerator creates a Generator in Simulate mode.
func NewGenerator(cfg Config) *Generator {
	return &Generator{
		cfg:    cfg,
		engine: orderbook.NewEngine(),
		rng:    rand.New(rand.NewSource(int64(cfg.Seed))),
		mid:    cfg.InitialPrice,
		clock:  time.Unix(0, 0),
	}
}

// SubmitOrder rests a market maker order in the generator's internal
// book, satisfying marketmaker.Submitter.
func (g *Generator) SubmitOrder(order *domain.Order, at time.Time) bool {
	return g.engine.AddOrder(order, at)
}

// CancelOrder cancels a resting market maker order, satisfying
// marketmaker.Submitter.
func (g *Generator) CancelOrder(orderID uint64, at time.Time) *domain.Order {
	return g.engine.CancelOrder(orderID, at)
}

func (g *Generator) nextTradeID() uint64 {
	g.nextTradeIDCtr++
	return g.nextTradeIDCtr
}

// Next produces the next market data event, or (nil, false) once the
// configured iteration count is exhausted.
func (g *Generator) Next() (*domain.MarketDataEvent, bool) {
	if g.iterationsDone >= g.cfg.Iterations {
		return nil, false
	}
	g.iterationsDone++
	g.seq++

	const dt = 1.0
	vol := g.cfg.Volatility
	z := g.rng.NormFloat64()
	g.mid *= math.Exp(-0.5*vol*vol*dt + vol*math.Sqrt(dt)*z)
	if g.mid <= 0 {
		g.mid = g.cfg.InitialPrice
	}

	now := g.clock
	g.clock = g.clock.Add(time.Duration(g.cfg.LatencyMs) * time.Millisecond)

	bestBid := g.mid - g.cfg.Spread/2
	bestAsk := g.mid + g.cfg.Spread/2
	bestBidSize := 10 + g.rng.Intn(90)
	bestAskSize := 10 + g.rng.Intn(90)

	bidLevels := g.jitterLevels(bestBid, -1, now)
	askLevels := g.jitterLevels(bestAsk, 1, now)

	var trades []domain.Trade
	var partials []domain.PartialFillEvent
	var mmFills []domain.FillEvent

	if g.rng.Float64() < 0.2 {
		side := domain.SideBuy
		price := bestAsk
		if g.rng.Float64() < 0.5 {
			side = domain.SideSell
			price = bestBid
		}
		size := 1 + g.rng.Intn(20)
		tradeID := g.nextTradeID()
		trades = append(trades, domain.Trade{AggressorSide: side, Price: price, Size: size, TradeID: tradeID, Timestamp: now})

		fills, _ := g.engine.MatchIncomingOrder(side, price, size, g.nextTradeID, now)
		if len(fills) > 0 {
			mmFills = append(mmFills, fills...)
			if g.rng.Float64() < 0.4 {
				last := fills[len(fills)-1]
				partials = append(partials, domain.PartialFillEvent{
					OrderID: last.OrderID, Price: last.Price,
					FilledSize: last.FillQty, RemainingSize: last.LeavesQty, Timestamp: now,
				})
			}
		}
	}

	return &domain.MarketDataEvent{
		Instrument:     g.cfg.Instrument,
		BestBidPrice:   bestBid,
		BestAskPrice:   bestAsk,
		BestBidSize:    bestBidSize,
		BestAskSize:    bestAskSize,
		BidLevels:      bidLevels,
		AskLevels:      askLevels,
		Trades:         trades,
		PartialFills:   partials,
		MMFills:        mmFills,
		Timestamp:      now,
		SequenceNumber: g.seq,
	}, true
}

// jitterLevels synthesizes a small stack of third-party resting
// liquidity around a best price for depth-sensitive strategies. sign
// is -1 for the bid side (levels descend below best) and +1 for the
// ask side (levels ascend above best).
func (g *Generator) jitterLevels(best float64, sign int, at time.Time) []domain.OrderLevel {
	const depth = 3
	levels := make([]domain.OrderLevel, depth)
	price := best
	for i := 0; i < depth; i++ {
		size := 5 + g.rng.Intn(50)
		levels[i] = domain.OrderLevel{Price: price, Size: size, OrderID: 0, Timestamp: at}
		price += float64(sign) * g.cfg.Spread * (0.5 + g.rng.Float64())
	}
	return levels
}

// Replay replays a previously written event log verbatim for its
// market-side fields, but regenerates the market maker's order/cancel
// interactions fresh against the replayed book — the log's own
// mm_fills are discarded and replaced with whatever fills the replayed
// trades actually produce against this run's resting orders.
type Replay struct {
	engine     *orderbook.Engine
	decoder    eventlog.Decoder
	data       []byte
	offset     int
	tradeIDCtr uint64
}

// NewReplay creates a Replay over log data using the given decoder
// (text or binary).
func NewReplay(decoder eventlog.Decoder, data []byte) *Replay {
	return &Replay{engine: orderbook.NewEngine(), decoder: decoder, data: data}
}

func (r *Replay) SubmitOrder(order *domain.Order, at time.Time) bool {
	return r.engine.AddOrder(order, at)
}

func (r *Replay) CancelOrder(orderID uint64, at time.Time) *domain.Order {
	return r.engine.CancelOrder(orderID, at)
}

func (r *Replay) nextTradeID() uint64 {
	r.tradeIDCtr++
	return r.tradeIDCtr
}

// Next decodes the next logged event and replaces its mm_fills with
// freshly computed ones.
func (r *Replay) Next() (*domain.MarketDataEvent, bool) {
	event, n, err := r.decoder.Decode(r.data[r.offset:])
	if err != nil || n == 0 {
		return nil, false
	}
	r.offset += n

	var mmFills []domain.FillEvent
	for _, t := range event.Trades {
		fills, _ := r.engine.MatchIncomingOrder(t.AggressorSide, t.Price, t.Size, r.nextTradeID, event.Timestamp)
		mmFills = append(mmFills, fills...)
	}
	event.MMFills = mmFills
	return event, true
}
