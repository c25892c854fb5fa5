package transport

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/winstonzhaozhekai/market-making-engine/internal/accounting"
	"github.com/winstonzhaozhekai/market-making-engine/internal/domain"
	"github.com/winstonzhaozhekai/market-making-engine/internal/marketmaker"
	"github.com/winstonzhaozhekai/market-making-engine/internal/risk"
	"github.com/winstonzhaozhekai/market-making-engine/internal/simulator"
	"github.com/winstonzhaozhekai/market-making-engine/internal/strategy"
)

// SessionConfig seeds every simulation a session starts. set_<param>
// commands mutate a session's copy; changes take effect on the next
// run_simulation, not on an already-started one.
type SessionConfig struct {
	Simulation   simulator.Config
	Risk         risk.Config
	Fees         domain.FeeSchedule
	StrategyName string
	MaxPosition  int
	StartingCash float64
	AllowOverlap bool
}

// DefaultSessionConfig mirrors the simulator's and risk package's own
// defaults so a session works out of the box with no configuration.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Simulation:   simulator.DefaultConfig(),
		Risk:         risk.DefaultConfig(),
		StrategyName: "heuristic",
		MaxPosition:  1000,
		StartingCash: 1_000_000,
	}
}

// worker is one running simulation, the per-run analogue of the
// teacher's sequencer: it owns its own engine instance end to end and
// talks to the outside only through the session's outbound channel.
type worker struct {
	runID          string
	stopRequested  atomic.Bool
	resetRequested atomic.Bool
	done           chan struct{}
	mm             *marketmaker.MarketMaker
	acct           *accounting.Accounting
}

func (w *worker) requestStop() {
	w.stopRequested.Store(true)
}

// Session is one websocket connection. It can host zero or more
// concurrently running simulations, each tracked in workers by run id,
// guarded by mu the same way the teacher's ordermanager guards its
// per-user maps.
type Session struct {
	conn *websocket.Conn
	cfg  SessionConfig
	log  logrus.FieldLogger

	mu      sync.Mutex
	workers map[string]*worker

	outbound chan StatusMessage
	closed   chan struct{}
}

// NewSession wraps an accepted websocket connection.
func NewSession(conn *websocket.Conn, cfg SessionConfig, log logrus.FieldLogger) *Session {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Session{
		conn:     conn,
		cfg:      cfg,
		log:      log,
		workers:  make(map[string]*worker),
		outbound: make(chan StatusMessage, 256),
		closed:   make(chan struct{}),
	}
}

// Run drives the session until the connection closes. It starts the
// single writer goroutine first, then blocks reading commands — the
// same single-writer-per-connection shape as the teacher's sequencer
// owning the one goroutine allowed to touch the matching engine.
func (s *Session) Run() {
	go s.writePump()
	go s.dailyResetLoop()
	defer s.shutdown()

	s.send(NewStatusMessage("", "session_ready"))

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.handleCommand(string(raw))
	}
}

func (s *Session) writePump() {
	for {
		select {
		case msg, ok := <-s.outbound:
			if !ok {
				return
			}
			if err := s.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-s.closed:
			return
		}
	}
}

func (s *Session) send(msg StatusMessage) {
	select {
	case s.outbound <- msg:
	case <-s.closed:
	default:
		s.log.Warn("outbound queue full, dropping status message")
	}
}

func (s *Session) shutdown() {
	s.stopAll()
	close(s.closed)
}

// dailyResetLoop asks every active worker to zero its accounting's
// realized P&L, fees, and rebates once a wall-clock day (each worker
// applies the reset on its own goroutine before its next tick),
// independent of
// any single simulation's own lifecycle — a long-lived session can
// outlive many runs and still wants a daily P&L boundary.
func (s *Session) dailyResetLoop() {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.resetDailyAll()
		case <-s.closed:
			return
		}
	}
}

func (s *Session) resetDailyAll() {
	s.mu.Lock()
	workers := make([]*worker, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
	}
	s.mu.Unlock()

	for _, w := range workers {
		w.resetRequested.Store(true)
	}
}

func (s *Session) handleCommand(raw string) {
	cmd := ParseCommand(raw)

	switch cmd.Command {
	case CommandRunSimulation:
		s.mu.Lock()
		active := s.hasActiveLocked()
		if active && !s.cfg.AllowOverlap {
			s.mu.Unlock()
			s.send(NewErrorMessage("", "simulation_already_running"))
			return
		}
		cfg := s.cfg
		s.mu.Unlock()

		runID := uuid.NewString()
		s.send(NewStatusMessage(runID, "simulation_started"))
		s.startSimulation(runID, cfg)

	case CommandStopSimulation:
		s.mu.Lock()
		hadAny := len(s.workers) > 0
		s.mu.Unlock()
		s.stopAll()
		if hadAny {
			s.send(NewStatusMessage("", "simulation_stopped"))
		}

	case CommandEnableOverlap:
		s.mu.Lock()
		s.cfg.AllowOverlap = true
		s.mu.Unlock()
		s.send(NewStatusMessage("", "overlap_enabled"))

	case CommandDisableOverlap:
		s.mu.Lock()
		s.cfg.AllowOverlap = false
		s.mu.Unlock()
		s.send(NewStatusMessage("", "overlap_disabled"))

	case CommandSetParam:
		if ok := s.applySetParam(cmd.Param, cmd.Value); !ok {
			s.send(NewErrorMessage("", "unknown_param:"+cmd.Param))
			return
		}
		s.send(NewStatusMessage("", "param_set"))

	default:
		s.send(NewErrorMessage("", "unknown_command"))
	}
}

func (s *Session) hasActiveLocked() bool {
	return len(s.workers) > 0
}

// applySetParam mutates the session's template config for the next
// run_simulation. Strings/floats/ints are parsed defensively; an
// unparseable value for a known param is reported as unknown so the
// caller sees the rejection instead of a silently ignored setter.
func (s *Session) applySetParam(param, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch param {
	case "allow_overlap":
		s.cfg.AllowOverlap = value == "true"
	case "iterations":
		n, ok := parseIntParam(value)
		if !ok {
			return false
		}
		s.cfg.Simulation.Iterations = n
	case "latency_ms":
		n, ok := parseIntParam(value)
		if !ok {
			return false
		}
		s.cfg.Simulation.LatencyMs = n
	case "seed":
		n, ok := parseIntParam(value)
		if !ok {
			return false
		}
		s.cfg.Simulation.Seed = uint32(n)
	case "instrument":
		s.cfg.Simulation.Instrument = value
	case "initial_price":
		f, ok := parseFloatParam(value)
		if !ok {
			return false
		}
		s.cfg.Simulation.InitialPrice = f
	case "spread":
		f, ok := parseFloatParam(value)
		if !ok {
			return false
		}
		s.cfg.Simulation.Spread = f
	case "volatility":
		f, ok := parseFloatParam(value)
		if !ok {
			return false
		}
		s.cfg.Simulation.Volatility = f
	case "strategy":
		s.cfg.StrategyName = value
	case "max_position":
		n, ok := parseIntParam(value)
		if !ok {
			return false
		}
		s.cfg.MaxPosition = n
	default:
		return false
	}
	return true
}

func parseIntParam(value string) (int, bool) {
	f, ok := parseFloatParam(value)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func (s *Session) buildStrategy(cfg SessionConfig) strategy.Strategy {
	if cfg.StrategyName == "reservation" {
		return strategy.NewReservationStrategy(strategy.DefaultReservationConfig())
	}
	return strategy.NewHeuristicStrategy(strategy.DefaultHeuristicConfig())
}

// startSimulation runs one simulation end to end in its own goroutine,
// the same shape as the teacher's per-task thread in the original
// WsSession, just a goroutine instead of a std::thread.
func (s *Session) startSimulation(runID string, cfg SessionConfig) {
	gen := simulator.NewGenerator(cfg.Simulation)
	acct := accounting.New(cfg.StartingCash, cfg.Fees)
	riskMgr := risk.New(cfg.Risk)
	strat := s.buildStrategy(cfg)
	log := s.log.WithField("run_id", runID)

	mm := marketmaker.New(marketmaker.Config{
		Submitter:   gen,
		Accounting:  acct,
		Risk:        riskMgr,
		Strategy:    strat,
		MaxPosition: cfg.MaxPosition,
		Log:         log,
	})

	w := &worker{runID: runID, done: make(chan struct{}), mm: mm, acct: acct}

	s.mu.Lock()
	s.workers[runID] = w
	s.mu.Unlock()
	RunsStarted.Inc()

	go func() {
		defer close(w.done)
		defer s.finishSimulation(runID)

		start := time.Now()
		processed := 0

		for {
			if w.stopRequested.Load() {
				break
			}
			if w.resetRequested.Swap(false) {
				acct.ResetDaily()
			}
			event, ok := gen.Next()
			if !ok {
				break
			}

			mm.OnMarketData(event)
			processed++
			TicksProcessed.WithLabelValues(runID).Inc()
			RiskState.WithLabelValues(runID).Set(float64(mm.Report().RiskState))
			Position.WithLabelValues(runID).Set(float64(mm.Report().Position))

			s.send(NewUpdateMessage(runID, int(event.SequenceNumber), tradeMessages(event.Trades), nil))
		}

		elapsed := time.Since(start)
		report := mm.Report()
		s.send(NewUpdateMessage(runID, processed, nil, map[string]interface{}{
			"total_iterations": processed,
			"total_runtime_ms": float64(elapsed.Nanoseconds()) / 1e6,
			"position":         report.Position,
			"avg_entry_price":  report.AvgEntryPrice,
			"realized_pnl":     report.RealizedPnL,
			"unrealized_pnl":   report.UnrealizedPnL,
			"total_pnl":        report.TotalPnL,
			"fees":             report.TotalFees,
			"rebates":          report.TotalRebates,
			"total_fills":      report.TotalFills,
			"risk_state":       report.RiskState.String(),
		}))
	}()
}

func (s *Session) finishSimulation(runID string) {
	s.mu.Lock()
	delete(s.workers, runID)
	s.mu.Unlock()
}

func (s *Session) stopAll() {
	s.mu.Lock()
	workers := make([]*worker, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
	}
	s.mu.Unlock()

	for _, w := range workers {
		w.requestStop()
	}
	for _, w := range workers {
		<-w.done
	}
}

func tradeMessages(trades []domain.Trade) []TradeMessage {
	if len(trades) == 0 {
		return nil
	}
	out := make([]TradeMessage, 0, len(trades))
	for _, t := range trades {
		out = append(out, TradeMessage{Side: t.AggressorSide.String(), Price: t.Price, Size: t.Size})
	}
	return out
}
