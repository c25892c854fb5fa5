package eventlog

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/winstonzhaozhekai/market-making-engine/internal/domain"
)

// BinaryCodec encodes/decodes the length-prefixed little-endian binary
// event log format: a u32 total length, followed by i64 sequence, i64
// timestamp_ns, f64 best_bid, f64 best_ask, i32 best_bid_size, i32
// best_ask_size, u16 n_trades, u16 n_fills, then n_trades records of
// (u8 side, f64 price, i32 size, u64 trade_id) and n_fills records of
// (u64 order_id, f64 price, i32 filled, i32 remaining). Order book
// levels and partial fills are not carried in the binary format —
// only trades and the market maker's own fills, as in the original
// logger this format is ported from.
type BinaryCodec struct{}

// NewBinaryCodec creates a BinaryCodec.
func NewBinaryCodec() *BinaryCodec { return &BinaryCodec{} }

func (BinaryCodec) Encode(e *domain.MarketDataEvent) ([]byte, error) {
	var body bytes.Buffer

	writeInt(&body, int64(e.SequenceNumber))
	writeInt(&body, e.Timestamp.UnixNano())
	writeFloat(&body, e.BestBidPrice)
	writeFloat(&body, e.BestAskPrice)
	writeI32(&body, int32(e.BestBidSize))
	writeI32(&body, int32(e.BestAskSize))
	writeU16(&body, uint16(len(e.Trades)))
	writeU16(&body, uint16(len(e.MMFills)))

	for _, t := range e.Trades {
		body.WriteByte(byte(t.AggressorSide))
		writeFloat(&body, t.Price)
		writeI32(&body, int32(t.Size))
		writeU64(&body, t.TradeID)
	}
	for _, f := range e.MMFills {
		writeU64(&body, f.OrderID)
		writeFloat(&body, f.Price)
		writeI32(&body, int32(f.FillQty))
		writeI32(&body, int32(f.LeavesQty))
	}

	totalLen := uint32(4 + body.Len())
	var out bytes.Buffer
	writeU32(&out, totalLen)
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

func (BinaryCodec) Decode(data []byte) (*domain.MarketDataEvent, int, error) {
	if len(data) == 0 {
		return nil, 0, nil
	}
	if len(data) < 4 {
		return nil, 0, fmt.Errorf("eventlog: binary record truncated at length prefix")
	}
	totalLen := binary.LittleEndian.Uint32(data[0:4])
	if uint32(len(data)) < totalLen {
		return nil, 0, fmt.Errorf("eventlog: binary record truncated, want %d have %d", totalLen, len(data))
	}

	r := bytes.NewReader(data[4:totalLen])

	seq := readInt(r)
	ns := readInt(r)
	bestBid := readFloat(r)
	bestAsk := readFloat(r)
	bestBidSize := readI32(r)
	bestAskSize := readI32(r)
	nTrades := readU16(r)
	nFills := readU16(r)

	trades := make([]domain.Trade, nTrades)
	ts := time.Unix(0, ns)
	for i := range trades {
		var sideByte [1]byte
		r.Read(sideByte[:])
		price := readFloat(r)
		size := readI32(r)
		tradeID := readU64(r)
		trades[i] = domain.Trade{
			AggressorSide: domain.Side(sideByte[0]),
			Price:         price,
			Size:          int(size),
			TradeID:       tradeID,
			Timestamp:     ts,
		}
	}

	fills := make([]domain.FillEvent, nFills)
	for i := range fills {
		orderID := readU64(r)
		price := readFloat(r)
		filled := readI32(r)
		remaining := readI32(r)
		fills[i] = domain.FillEvent{
			OrderID:   orderID,
			Price:     price,
			FillQty:   int(filled),
			LeavesQty: int(remaining),
			Timestamp: ts,
		}
	}

	event := &domain.MarketDataEvent{
		SequenceNumber: seq,
		Timestamp:      ts,
		BestBidPrice:   bestBid,
		BestAskPrice:   bestAsk,
		BestBidSize:    int(bestBidSize),
		BestAskSize:    int(bestAskSize),
		Trades:         trades,
		MMFills:        fills,
	}
	return event, int(totalLen), nil
}

func writeU32(b *bytes.Buffer, v uint32)  { _ = binary.Write(b, binary.LittleEndian, v) }
func writeU64(b *bytes.Buffer, v uint64)  { _ = binary.Write(b, binary.LittleEndian, v) }
func writeU16(b *bytes.Buffer, v uint16)  { _ = binary.Write(b, binary.LittleEndian, v) }
func writeI32(b *bytes.Buffer, v int32)   { _ = binary.Write(b, binary.LittleEndian, v) }
func writeInt(b *bytes.Buffer, v int64)   { _ = binary.Write(b, binary.LittleEndian, v) }
func writeFloat(b *bytes.Buffer, v float64) { _ = binary.Write(b, binary.LittleEndian, v) }

func readInt(r *bytes.Reader) int64 {
	var v int64
	_ = binary.Read(r, binary.LittleEndian, &v)
	return v
}
func readFloat(r *bytes.Reader) float64 {
	var v float64
	_ = binary.Read(r, binary.LittleEndian, &v)
	return v
}
func readI32(r *bytes.Reader) int32 {
	var v int32
	_ = binary.Read(r, binary.LittleEndian, &v)
	return v
}
func readU16(r *bytes.Reader) uint16 {
	var v uint16
	_ = binary.Read(r, binary.LittleEndian, &v)
	return v
}
func readU64(r *bytes.Reader) uint64 {
	var v uint64
	_ = binary.Read(r, binary.LittleEndian, &v)
	return v
}
