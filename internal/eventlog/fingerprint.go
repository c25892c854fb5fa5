package eventlog

import (
	"fmt"
	"hash/fnv"

	"github.com/winstonzhaozhekai/market-making-engine/internal/domain"
)

// Fingerprint returns a canonical FNV-1a hash of an event's fields, in
// a fixed order, used to compare a generated run against its replay
// without depending on either wire format. It covers the fields the
// text format carries — including instrument and a millisecond-
// truncated event timestamp, matching that format's resolution —
// except the per-level, per-trade and per-partial-fill timestamps, and
// deliberately excludes mm_fills: the text log never carries them, so
// a text-replayed event can never reproduce them for comparison.
func Fingerprint(e *domain.MarketDataEvent) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%s|%d|%s|%s|%d|%d|",
		e.SequenceNumber, e.Instrument, e.Timestamp.UnixMilli(),
		formatFloat(e.BestBidPrice), formatFloat(e.BestAskPrice),
		e.BestBidSize, e.BestAskSize,
	)
	for _, l := range e.BidLevels {
		fmt.Fprintf(h, "b(%s,%d,%d)", formatFloat(l.Price), l.Size, l.OrderID)
	}
	for _, l := range e.AskLevels {
		fmt.Fprintf(h, "a(%s,%d,%d)", formatFloat(l.Price), l.Size, l.OrderID)
	}
	for _, t := range e.Trades {
		fmt.Fprintf(h, "t(%d,%s,%d,%d)", int(t.AggressorSide), formatFloat(t.Price), t.Size, t.TradeID)
	}
	for _, p := range e.PartialFills {
		fmt.Fprintf(h, "p(%d,%s,%d,%d)", p.OrderID, formatFloat(p.Price), p.FilledSize, p.RemainingSize)
	}
	return h.Sum64()
}
