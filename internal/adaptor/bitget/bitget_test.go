package bitget

import (
	"testing"

	"main/internal/marketmodel"
	"main/internal/mdconfig"
)

func scaleSpec() mdconfig.ScaleSpec {
	return mdconfig.ScaleSpec{PriceScale: 8, QtyScale: 8}
}

func TestParseFrameBookTicker(t *testing.T) {
	sym := marketmodel.NewSymbol("BTC", "USDT")
	syms := map[string]marketmodel.Symbol{"BTCUSDT": sym}
	parse := parseFrame(marketmodel.ProductSpotLike, scaleSpec(), syms)

	frame := []byte(`{"arg":{"instType":"SPOT","channel":"books1","instId":"BTCUSDT"},"ts":"1672515782136","data":[{"asks":[["30000.1","0.5"]],"bids":[["29999.9","0.3"]],"ts":"1672515782135","seq":"123456789"}]}`)
	recs := parse(frame)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Bookticker.UpdateID != 123456789 {
		t.Fatalf("expected seq 123456789, got %d", recs[0].Bookticker.UpdateID)
	}
}

// TestParseFrameTradeBatchReversesOrder verifies Bitget's newest-first
// trade batch is emitted oldest-first.
func TestParseFrameTradeBatchReversesOrder(t *testing.T) {
	sym := marketmodel.NewSymbol("BTC", "USDT")
	syms := map[string]marketmodel.Symbol{"BTCUSDT": sym}
	parse := parseFrame(marketmodel.ProductSpotLike, scaleSpec(), syms)

	frame := []byte(`{"arg":{"instType":"SPOT","channel":"trade","instId":"BTCUSDT"},"data":[
		{"tradeId":"3","price":"30002","size":"0.1","side":"buy","ts":"1672515782138"},
		{"tradeId":"2","price":"30001","size":"0.2","side":"sell","ts":"1672515782137"},
		{"tradeId":"1","price":"30000","size":"0.3","side":"buy","ts":"1672515782136"}
	]}`)
	recs := parse(frame)
	if len(recs) != 3 {
		t.Fatalf("expected 3 trades, got %d", len(recs))
	}
	if recs[0].Trade.TradeID != 1 {
		t.Fatalf("expected first emitted trade id 1 (oldest), got %d", recs[0].Trade.TradeID)
	}
	if recs[2].Trade.TradeID != 3 {
		t.Fatalf("expected last emitted trade id 3 (newest), got %d", recs[2].Trade.TradeID)
	}
}

func TestParseFramePongReturnsNil(t *testing.T) {
	parse := parseFrame(marketmodel.ProductSpotLike, scaleSpec(), map[string]marketmodel.Symbol{})
	if recs := parse([]byte("pong")); recs != nil {
		t.Fatalf("expected nil for pong, got %v", recs)
	}
}
