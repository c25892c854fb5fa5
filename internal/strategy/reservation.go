package strategy

import (
	"math"

	"github.com/winstonzhaozhekai/market-making-engine/internal/domain"
	"github.com/winstonzhaozhekai/market-making-engine/internal/estimator"
)

// ReservationConfig holds the tunables for the inventory-aware
// reservation-price quoter.
type ReservationConfig struct {
	Gamma              float64
	Kappa              float64
	T                  float64
	MinSpreadBps       float64
	MaxSpreadBps       float64
	OFISpreadFactor    float64
	BaseSize           float64
	SizeInventoryScale float64
	ToxicOFIThreshold  float64
	PullOnToxic        bool
	VolWindow          int
	OFIWindow          int
}

// DefaultReservationConfig returns the conventional tunables for this
// quoter.
func DefaultReservationConfig() ReservationConfig {
	return ReservationConfig{
		Gamma:              0.1,
		Kappa:              1.5,
		T:                  1.0,
		MinSpreadBps:       5,
		MaxSpreadBps:       200,
		OFISpreadFactor:    0.5,
		BaseSize:           5,
		SizeInventoryScale: 1.0,
		ToxicOFIThreshold:  0.7,
		PullOnToxic:        false,
		VolWindow:          100,
		OFIWindow:          50,
	}
}

// ReservationStrategy quotes around an inventory-adjusted reservation
// price with a spread derived from the Avellaneda-Stoikov
// closed-form optimum, widened under order-flow imbalance and
// optionally pulled entirely when flow looks toxic.
type ReservationStrategy struct {
	cfg ReservationConfig
	vol *estimator.RollingVolatility
	ofi *estimator.RollingOFI
}

// NewReservationStrategy creates a ReservationStrategy with the given
// tunables and fresh rolling estimators.
func NewReservationStrategy(cfg ReservationConfig) *ReservationStrategy {
	return &ReservationStrategy{
		cfg: cfg,
		vol: estimator.NewRollingVolatility(cfg.VolWindow),
		ofi: estimator.NewRollingOFI(cfg.OFIWindow),
	}
}

func (s *ReservationStrategy) Name() string { return "reservation" }

// OnTrades feeds the latest tick's public trades into the OFI
// estimator. The orchestrator calls this once per market data event,
// before ComputeQuotes.
func (s *ReservationStrategy) OnTrades(trades []domain.Trade) {
	for _, t := range trades {
		signed := float64(t.Size)
		if t.AggressorSide == domain.SideSell {
			signed = -signed
		}
		s.ofi.OnTrade(signed)
	}
}

func (s *ReservationStrategy) ComputeQuotes(snap domain.StrategySnapshot) domain.QuoteDecision {
	s.vol.OnMid(snap.Mid)
	sigma := s.vol.Sigma()
	ofi := s.ofi.NormalizedOFI()

	if math.Abs(ofi) > s.cfg.ToxicOFIThreshold && s.cfg.PullOnToxic {
		return domain.QuoteDecision{ShouldQuote: false}
	}

	q := float64(snap.Position)
	sigma2 := sigma * sigma

	reservation := snap.Mid - q*s.cfg.Gamma*sigma2*s.cfg.T
	optimalSpread := s.cfg.Gamma*sigma2*s.cfg.T + (2.0/s.cfg.Gamma)*math.Log(1+s.cfg.Gamma/s.cfg.Kappa)

	spread := optimalSpread * (1 + s.cfg.OFISpreadFactor*math.Abs(ofi))

	minSpread := s.cfg.MinSpreadBps * snap.Mid / 10000.0
	maxSpread := s.cfg.MaxSpreadBps * snap.Mid / 10000.0
	spread = clamp(spread, minSpread, maxSpread)

	bidPrice := reservation - spread/2
	askPrice := reservation + spread/2

	qMax := float64(snap.MaxPosition)
	invRatio := 0.0
	if qMax > 0 {
		invRatio = clamp(q/qMax, -1, 1)
	}

	bidSize := int(s.cfg.BaseSize * (1 - invRatio*s.cfg.SizeInventoryScale))
	askSize := int(s.cfg.BaseSize * (1 + invRatio*s.cfg.SizeInventoryScale))
	if bidSize < 1 {
		bidSize = 1
	}
	if askSize < 1 {
		askSize = 1
	}

	return domain.QuoteDecision{
		BidPrice:    bidPrice,
		AskPrice:    askPrice,
		BidSize:     bidSize,
		AskSize:     askSize,
		ShouldQuote: true,
	}
}
