package eventlog

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/winstonzhaozhekai/market-making-engine/internal/domain"
)

// TextCodec encodes/decodes the pipe-delimited text event log format:
//
//	sequence|instrument|best_bid|best_ask|best_bid_size|best_ask_size|timestamp_ms|bid_levels|ask_levels|trades|partial_fills
//
// Level groups are ";"-separated, each group's sub-fields ","-separated.
// An empty group field is the empty string (no trailing separator).
// Maker fills against the market maker's own resting orders are not
// carried in the text format; replay never reconstructs them.
type TextCodec struct{}

// NewTextCodec creates a TextCodec.
func NewTextCodec() *TextCodec { return &TextCodec{} }

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Encode renders one event as a single newline-terminated text line.
func (TextCodec) Encode(e *domain.MarketDataEvent) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "%d|%s|%s|%s|%d|%d|%d|",
		e.SequenceNumber, e.Instrument,
		formatFloat(e.BestBidPrice), formatFloat(e.BestAskPrice),
		e.BestBidSize, e.BestAskSize, e.Timestamp.UnixMilli(),
	)

	writeLevels(&b, e.BidLevels)
	b.WriteByte('|')
	writeLevels(&b, e.AskLevels)
	b.WriteByte('|')
	writeTrades(&b, e.Trades)
	b.WriteByte('|')
	writePartialFills(&b, e.PartialFills)
	b.WriteByte('\n')

	return []byte(b.String()), nil
}

func writeLevels(b *strings.Builder, levels []domain.OrderLevel) {
	for i, l := range levels {
		if i > 0 {
			b.WriteByte(';')
		}
		fmt.Fprintf(b, "%s,%d,%d,%d", formatFloat(l.Price), l.Size, l.OrderID, l.Timestamp.UnixMilli())
	}
}

func writeTrades(b *strings.Builder, trades []domain.Trade) {
	for i, t := range trades {
		if i > 0 {
			b.WriteByte(';')
		}
		fmt.Fprintf(b, "%d,%s,%d,%d,%d", int(t.AggressorSide), formatFloat(t.Price), t.Size, t.TradeID, t.Timestamp.UnixMilli())
	}
}

func writePartialFills(b *strings.Builder, fills []domain.PartialFillEvent) {
	for i, f := range fills {
		if i > 0 {
			b.WriteByte(';')
		}
		fmt.Fprintf(b, "%d,%s,%d,%d,%d", f.OrderID, formatFloat(f.Price), f.FilledSize, f.RemainingSize, f.Timestamp.UnixMilli())
	}
}

// Decode parses one newline-terminated text line.
func (TextCodec) Decode(data []byte) (*domain.MarketDataEvent, int, error) {
	idx := bytes.IndexByte(data, '\n')
	if idx < 0 {
		if len(data) == 0 {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("eventlog: unterminated text record")
	}
	line := string(data[:idx])
	consumed := idx + 1

	fields := strings.Split(line, "|")
	if len(fields) != 11 {
		return nil, 0, fmt.Errorf("eventlog: expected 11 fields, got %d", len(fields))
	}

	seq, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("eventlog: sequence: %w", err)
	}
	instrument := fields[1]
	bestBid, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return nil, 0, fmt.Errorf("eventlog: best_bid: %w", err)
	}
	bestAsk, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return nil, 0, fmt.Errorf("eventlog: best_ask: %w", err)
	}
	bestBidSize, err := strconv.Atoi(fields[4])
	if err != nil {
		return nil, 0, fmt.Errorf("eventlog: best_bid_size: %w", err)
	}
	bestAskSize, err := strconv.Atoi(fields[5])
	if err != nil {
		return nil, 0, fmt.Errorf("eventlog: best_ask_size: %w", err)
	}
	ms, err := strconv.ParseInt(fields[6], 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("eventlog: timestamp_ms: %w", err)
	}

	ts := time.UnixMilli(ms)

	bidLevels, err := parseLevels(fields[7])
	if err != nil {
		return nil, 0, err
	}
	askLevels, err := parseLevels(fields[8])
	if err != nil {
		return nil, 0, err
	}
	trades, err := parseTrades(fields[9])
	if err != nil {
		return nil, 0, err
	}
	partials, err := parsePartialFills(fields[10])
	if err != nil {
		return nil, 0, err
	}

	return &domain.MarketDataEvent{
		Instrument:     instrument,
		SequenceNumber: seq,
		Timestamp:      ts,
		BestBidPrice:   bestBid,
		BestAskPrice:   bestAsk,
		BestBidSize:    bestBidSize,
		BestAskSize:    bestAskSize,
		BidLevels:      bidLevels,
		AskLevels:      askLevels,
		Trades:         trades,
		PartialFills:   partials,
	}, consumed, nil
}

func splitGroups(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ";")
}

func parseLevels(s string) ([]domain.OrderLevel, error) {
	groups := splitGroups(s)
	out := make([]domain.OrderLevel, 0, len(groups))
	for _, g := range groups {
		parts := strings.Split(g, ",")
		if len(parts) != 4 {
			return nil, fmt.Errorf("eventlog: malformed level %q", g)
		}
		price, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, err
		}
		orderID, err := strconv.ParseUint(parts[2], 10, 64)
		if err != nil {
			return nil, err
		}
		ms, err := strconv.ParseInt(parts[3], 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.OrderLevel{Price: price, Size: size, OrderID: orderID, Timestamp: time.UnixMilli(ms)})
	}
	return out, nil
}

func parseTrades(s string) ([]domain.Trade, error) {
	groups := splitGroups(s)
	out := make([]domain.Trade, 0, len(groups))
	for _, g := range groups {
		parts := strings.Split(g, ",")
		if len(parts) != 5 {
			return nil, fmt.Errorf("eventlog: malformed trade %q", g)
		}
		side, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, err
		}
		price, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, err
		}
		tradeID, err := strconv.ParseUint(parts[3], 10, 64)
		if err != nil {
			return nil, err
		}
		ms, err := strconv.ParseInt(parts[4], 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Trade{AggressorSide: domain.Side(side), Price: price, Size: size, TradeID: tradeID, Timestamp: time.UnixMilli(ms)})
	}
	return out, nil
}

func parsePartialFills(s string) ([]domain.PartialFillEvent, error) {
	groups := splitGroups(s)
	out := make([]domain.PartialFillEvent, 0, len(groups))
	for _, g := range groups {
		parts := strings.Split(g, ",")
		if len(parts) != 5 {
			return nil, fmt.Errorf("eventlog: malformed partial fill %q", g)
		}
		orderID, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			return nil, err
		}
		price, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, err
		}
		filled, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, err
		}
		remaining, err := strconv.Atoi(parts[3])
		if err != nil {
			return nil, err
		}
		ms, err := strconv.ParseInt(parts[4], 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.PartialFillEvent{OrderID: orderID, Price: price, FilledSize: filled, RemainingSize: remaining, Timestamp: time.UnixMilli(ms)})
	}
	return out, nil
}
