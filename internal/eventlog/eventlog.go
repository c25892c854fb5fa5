// Package eventlog implements the text and binary wire formats used to
// persist and replay a run's market data events, plus the canonical
// fingerprint used to test that a generate-then-replay round trip is
// bit-for-bit deterministic.
package eventlog

import "github.com/winstonzhaozhekai/market-making-engine/internal/domain"

// Encoder writes one event to a log.
type Encoder interface {
	Encode(event *domain.MarketDataEvent) ([]byte, error)
}

// Decoder reads one event from a log.
type Decoder interface {
	// Decode reads the next event from the start of data,
	// returning the event, the number of bytes consumed, and an error.
	// A zero byte count with a nil error signals end of stream.
	Decode(data []byte) (*domain.MarketDataEvent, int, error)
}
