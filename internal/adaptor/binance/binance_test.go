package binance

import (
	"encoding/binary"
	"testing"

	"main/internal/marketmodel"
)

func putDecimal(buf []byte, offset int, mantissa int64, exponent int8) {
	binary.LittleEndian.PutUint64(buf[offset:offset+8], uint64(mantissa))
	buf[offset+8] = byte(exponent)
}

func sbeHeader(templateID uint16) []byte {
	h := make([]byte, sbeHeaderSize)
	binary.LittleEndian.PutUint16(h[0:2], 64) // blockLength, unused by the parser
	binary.LittleEndian.PutUint16(h[2:4], templateID)
	binary.LittleEndian.PutUint16(h[4:6], 1) // schemaId
	binary.LittleEndian.PutUint16(h[6:8], 1) // version
	return h
}

// TestParseBestBidAskDecodesScaledDecimal verifies that
// mantissa=4250000000, exponent=-8 decodes to 42.5 at scale 8.
func TestParseBestBidAskDecodesScaledDecimal(t *testing.T) {
	symName := "BTCUSDT"
	body := make([]byte, 1+len(symName)+8+9*4+8)
	off := 0
	body[off] = byte(len(symName))
	off++
	copy(body[off:], symName)
	off += len(symName)
	binary.LittleEndian.PutUint64(body[off:off+8], 42) // updateId
	off += 8
	putDecimal(body, off, 4250000000, -8) // bid price = 42.5
	off += 9
	putDecimal(body, off, 100000000, -8) // bid qty = 1.0
	off += 9
	putDecimal(body, off, 4251000000, -8) // ask price = 42.51
	off += 9
	putDecimal(body, off, 200000000, -8) // ask qty = 2.0
	off += 9
	binary.LittleEndian.PutUint64(body[off:off+8], 1700000000000)

	frame := append(sbeHeader(templateBestBidAsk), body...)
	parse := parseSBEFrame(marketmodel.ProductSpotLike, 8, 8)
	recs := parse(frame)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	bt := recs[0].Bookticker
	if bt.BidPrice != 4250000000 {
		t.Fatalf("expected bid price mantissa 4250000000 at scale 8 (42.5), got %d", bt.BidPrice)
	}
	if bt.UpdateID != 42 {
		t.Fatalf("expected update id 42, got %d", bt.UpdateID)
	}
	if got := recs[0].Symbol.String(); got != "BTCUSDT" {
		t.Fatalf("expected decoded symbol BTCUSDT, got %q", got)
	}
}

func TestParseTradesMultipleInOneFrame(t *testing.T) {
	symName := "ETHUSDT"
	const numTrades = 2
	perTrade := 9 + 9 + 8 + 8 + 1
	body := make([]byte, 1+len(symName)+2+perTrade*numTrades)
	off := 0
	body[off] = byte(len(symName))
	off++
	copy(body[off:], symName)
	off += len(symName)
	binary.LittleEndian.PutUint16(body[off:off+2], numTrades)
	off += 2
	for i := 0; i < numTrades; i++ {
		putDecimal(body, off, 3000_00000000, -8)
		off += 9
		putDecimal(body, off, 1_00000000, -8)
		off += 9
		binary.LittleEndian.PutUint64(body[off:off+8], uint64(i+1))
		off += 8
		binary.LittleEndian.PutUint64(body[off:off+8], 1700000000000)
		off += 8
		body[off] = 1
		off++
	}

	frame := append(sbeHeader(templateTrades), body...)
	parse := parseSBEFrame(marketmodel.ProductSpotLike, 8, 8)
	recs := parse(frame)
	if len(recs) != numTrades {
		t.Fatalf("expected %d trades, got %d", numTrades, len(recs))
	}
	if recs[0].Trade.TradeID != 1 || recs[1].Trade.TradeID != 2 {
		t.Fatalf("unexpected trade ids: %d, %d", recs[0].Trade.TradeID, recs[1].Trade.TradeID)
	}
}

func TestParseAggTradeFrame(t *testing.T) {
	parse := parseAggTradeFrame(marketmodel.ProductSpotLike, 8, 8)
	frame := []byte(`{"stream":"btcusdt@aggTrade","data":{"s":"BTCUSDT","a":123,"p":"42.50000000","q":"1.50000000","T":1700000000000,"m":false}}`)
	recs := parse(frame)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	agg := recs[0].AggTrade
	if agg.AggTradeID != 123 {
		t.Fatalf("expected agg trade id 123, got %d", agg.AggTradeID)
	}
	if agg.Price != 4250000000 {
		t.Fatalf("expected price mantissa 4250000000 (42.5 at scale 8), got %d", agg.Price)
	}
}

func TestSymbolFromBinanceSplitsQuoteAsset(t *testing.T) {
	sym := symbolFromBinance("BTCUSDT")
	if got := sym.String(); got != "BTCUSDT" {
		t.Fatalf("expected BTCUSDT, got %q", got)
	}
}
