// Package risk implements the rule-based risk engine: seven
// independent rules evaluated every tick, aggregated to a worst-case
// severity, and driven through a four-state recovery machine with
// cooldown-gated recovery from Breached and a sticky kill switch.
package risk

import (
	"math"
	"time"

	"github.com/winstonzhaozhekai/market-making-engine/internal/domain"
)

// RuleID names one of the seven risk rules.
type RuleID string

const (
	RuleNetPosition      RuleID = "net_position"
	RuleNotionalExposure RuleID = "notional_exposure"
	RuleDrawdown         RuleID = "drawdown"
	RuleQuoteRate        RuleID = "quote_rate"
	RuleCancelRate       RuleID = "cancel_rate"
	RuleStaleData        RuleID = "stale_data"
	RuleQuoteSpread      RuleID = "quote_spread"
)

// RiskRuleResult is one rule's verdict for one evaluation.
type RiskRuleResult struct {
	RuleID       RuleID
	Level        domain.RiskState
	CurrentValue float64
	LimitValue   float64
	Tag          string
}

// Config holds the limits and thresholds every rule is evaluated
// against.
type Config struct {
	MaxNetPosition      int
	MaxNotionalExposure float64
	MaxDrawdown         float64
	MaxQuotesPerSecond  float64
	MaxCancelsPerSecond float64
	RateWindowSeconds   float64
	MaxStaleDataMs      float64
	WarningThresholdPct float64
	CooldownSeconds     float64
	MaxQuoteSpread      float64
	MinQuoteSize        int
	MaxQuoteSize        int
}

// DefaultConfig returns the conventional limit set for this engine.
func DefaultConfig() Config {
	return Config{
		MaxNetPosition:      1000,
		MaxNotionalExposure: 500000,
		MaxDrawdown:         10000,
		MaxQuotesPerSecond:  50,
		MaxCancelsPerSecond: 50,
		RateWindowSeconds:   1,
		MaxStaleDataMs:      5000,
		WarningThresholdPct: 0.80,
		CooldownSeconds:     5,
		MaxQuoteSpread:      0.5,
		MinQuoteSize:        1,
		MaxQuoteSize:        100,
	}
}

// Manager evaluates all seven rules and drives the recovery state
// machine. It holds no reference to any other component; the market
// maker orchestrator feeds it the inputs each rule needs.
type Manager struct {
	cfg   Config
	state domain.RiskState

	breachTimestamp    time.Time
	hasBreachTimestamp bool

	highWaterMark float64
	hasHWM        bool

	quoteTimestamps  []time.Time
	cancelTimestamps []time.Time

	lastMarketDataTs    time.Time
	hasLastMarketDataTs bool

	lastResults []RiskRuleResult
}

// New creates a Manager starting in the Normal state.
func New(cfg Config) *Manager {
	return &Manager{cfg: cfg, state: domain.RiskStateNormal}
}

// State returns the manager's current state.
func (m *Manager) State() domain.RiskState { return m.state }

// QuoteSizeBounds is the configured [min, max] resting size for any
// single quote.
type QuoteSizeBounds struct {
	Min int
	Max int
}

// QuoteSizeBounds returns the configured quote size bounds.
func (m *Manager) QuoteSizeBounds() QuoteSizeBounds {
	return QuoteSizeBounds{Min: m.cfg.MinQuoteSize, Max: m.cfg.MaxQuoteSize}
}

// IsQuotingAllowed is true only in Normal or Warning.
func (m *Manager) IsQuotingAllowed() bool {
	return m.state == domain.RiskStateNormal || m.state == domain.RiskStateWarning
}

// RecordQuote logs one quote submission for the quote-rate rule.
func (m *Manager) RecordQuote(at time.Time) {
	m.quoteTimestamps = append(m.quoteTimestamps, at)
}

// RecordCancel logs one cancel for the cancel-rate rule.
func (m *Manager) RecordCancel(at time.Time) {
	m.cancelTimestamps = append(m.cancelTimestamps, at)
}

// Evaluate runs all seven rules against the given inputs, aggregates
// the worst severity, and advances the recovery state machine.
func (m *Manager) Evaluate(position int, grossExposure, netPnL, bidPrice, askPrice float64, now time.Time) (domain.RiskState, []RiskRuleResult) {
	results := []RiskRuleResult{
		m.evalNetPosition(position),
		m.evalNotionalExposure(grossExposure),
		m.evalDrawdown(netPnL),
		m.evalQuoteRate(now),
		m.evalCancelRate(now),
		m.evalStaleData(now),
		m.evalQuoteSpread(bidPrice, askPrice),
	}
	m.lastResults = results

	worst := domain.RiskStateNormal
	for _, r := range results {
		if r.Level > worst {
			worst = r.Level
		}
	}

	m.transition(worst, now)
	return m.state, results
}

func (m *Manager) transition(worst domain.RiskState, now time.Time) {
	if m.state == domain.RiskStateKillSwitch {
		return
	}

	switch m.state {
	case domain.RiskStateNormal, domain.RiskStateWarning:
		if worst == domain.RiskStateBreached {
			m.breachTimestamp = now
			m.hasBreachTimestamp = true
		}
		m.state = worst
	case domain.RiskStateBreached:
		if worst == domain.RiskStateNormal && m.hasBreachTimestamp &&
			now.Sub(m.breachTimestamp).Seconds() >= m.cfg.CooldownSeconds {
			m.state = domain.RiskStateNormal
		}
		// Warning is not a valid recovery target from Breached; stays
		// Breached until a fully-Normal tick clears the cooldown.
	}
}

// EngageKillSwitch latches the engine into KillSwitch. Only
// ResetKillSwitch can move it out.
func (m *Manager) EngageKillSwitch() {
	m.state = domain.RiskStateKillSwitch
}

// ResetKillSwitch leaves KillSwitch based on the last cached rule
// results: Normal if every rule was Normal, Breached otherwise. It
// does not reset the breach timestamp, so the cooldown from whatever
// breach preceded the kill switch still applies.
func (m *Manager) ResetKillSwitch() {
	if m.state != domain.RiskStateKillSwitch {
		return
	}

	allNormal := true
	for _, r := range m.lastResults {
		if r.Level != domain.RiskStateNormal {
			allNormal = false
			break
		}
	}
	if allNormal {
		m.state = domain.RiskStateNormal
	} else {
		m.state = domain.RiskStateBreached
	}
}

func (m *Manager) classify(ratio float64) domain.RiskState {
	if ratio >= 1.0 {
		return domain.RiskStateBreached
	}
	if ratio >= m.cfg.WarningThresholdPct {
		return domain.RiskStateWarning
	}
	return domain.RiskStateNormal
}

func (m *Manager) evalNetPosition(position int) RiskRuleResult {
	current := math.Abs(float64(position))
	ratio := current / float64(m.cfg.MaxNetPosition)
	return RiskRuleResult{RuleNetPosition, m.classify(ratio), current, float64(m.cfg.MaxNetPosition), ""}
}

func (m *Manager) evalNotionalExposure(grossExposure float64) RiskRuleResult {
	ratio := grossExposure / m.cfg.MaxNotionalExposure
	return RiskRuleResult{RuleNotionalExposure, m.classify(ratio), grossExposure, m.cfg.MaxNotionalExposure, ""}
}

func (m *Manager) evalDrawdown(netPnL float64) RiskRuleResult {
	if !m.hasHWM || netPnL > m.highWaterMark {
		m.highWaterMark = netPnL
		m.hasHWM = true
	}
	drawdown := m.highWaterMark - netPnL
	ratio := drawdown / m.cfg.MaxDrawdown
	return RiskRuleResult{RuleDrawdown, m.classify(ratio), drawdown, m.cfg.MaxDrawdown, ""}
}

func (m *Manager) evalQuoteRate(now time.Time) RiskRuleResult {
	m.quoteTimestamps = pruneWindow(m.quoteTimestamps, now, m.cfg.RateWindowSeconds)
	limit := m.cfg.MaxQuotesPerSecond * m.cfg.RateWindowSeconds
	current := float64(len(m.quoteTimestamps))
	ratio := current / limit
	return RiskRuleResult{RuleQuoteRate, m.classify(ratio), current, limit, ""}
}

func (m *Manager) evalCancelRate(now time.Time) RiskRuleResult {
	m.cancelTimestamps = pruneWindow(m.cancelTimestamps, now, m.cfg.RateWindowSeconds)
	limit := m.cfg.MaxCancelsPerSecond * m.cfg.RateWindowSeconds
	current := float64(len(m.cancelTimestamps))
	ratio := current / limit
	return RiskRuleResult{RuleCancelRate, m.classify(ratio), current, limit, ""}
}

func (m *Manager) evalStaleData(now time.Time) RiskRuleResult {
	if !m.hasLastMarketDataTs {
		m.hasLastMarketDataTs = true
		m.lastMarketDataTs = now
		return RiskRuleResult{RuleStaleData, domain.RiskStateNormal, 0, m.cfg.MaxStaleDataMs, "first tick"}
	}
	gapMs := float64(now.Sub(m.lastMarketDataTs).Milliseconds())
	m.lastMarketDataTs = now
	ratio := gapMs / m.cfg.MaxStaleDataMs
	return RiskRuleResult{RuleStaleData, m.classify(ratio), gapMs, m.cfg.MaxStaleDataMs, ""}
}

func (m *Manager) evalQuoteSpread(bidPrice, askPrice float64) RiskRuleResult {
	spread := askPrice - bidPrice
	ratio := spread / m.cfg.MaxQuoteSpread
	return RiskRuleResult{RuleQuoteSpread, m.classify(ratio), spread, m.cfg.MaxQuoteSpread, ""}
}

func pruneWindow(ts []time.Time, now time.Time, windowSeconds float64) []time.Time {
	cutoff := now.Add(-time.Duration(windowSeconds * float64(time.Second)))
	i := 0
	for i < len(ts) && ts[i].Before(cutoff) {
		i++
	}
	return ts[i:]
}
