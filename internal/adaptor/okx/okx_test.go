package okx

import (
	"testing"

	"main/internal/marketmodel"
	"main/internal/mdconfig"
)

func scaleSpec() mdconfig.ScaleSpec {
	return mdconfig.ScaleSpec{PriceScale: 8, QtyScale: 8}
}

func TestParseFrameRoutesBookTicker(t *testing.T) {
	sym := marketmodel.NewSymbol("BTC", "USDT")
	syms := map[string]marketmodel.Symbol{"BTC-USDT": sym}
	parse := parseFrame(marketmodel.ProductSpotLike, scaleSpec(), syms)

	frame := []byte(`{"arg":{"channel":"bbo-tbt","instId":"BTC-USDT"},"data":[{"asks":[["42.51","2"]],"bids":[["42.50","1"]],"ts":"1700000000000","seqId":"77"}]}`)
	recs := parse(frame)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	bt := recs[0].Bookticker
	if bt.UpdateID != 77 {
		t.Fatalf("expected seqId 77, got %d", bt.UpdateID)
	}
	if bt.AskPrice != 4251000000 {
		t.Fatalf("expected ask price mantissa 4251000000 (42.51 at scale 8), got %d", bt.AskPrice)
	}
}

func TestParseFrameRoutesTrades(t *testing.T) {
	sym := marketmodel.NewSymbol("BTC", "USDT")
	syms := map[string]marketmodel.Symbol{"BTC-USDT": sym}
	parse := parseFrame(marketmodel.ProductSpotLike, scaleSpec(), syms)

	frame := []byte(`{"arg":{"channel":"trades","instId":"BTC-USDT"},"data":[{"tradeId":"501","px":"42.50","sz":"1","side":"sell","ts":"1700000000000"}]}`)
	recs := parse(frame)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Trade.TradeID != 501 || !recs[0].Trade.IsBuyerMaker {
		t.Fatalf("unexpected trade decode: %+v", recs[0].Trade)
	}
}

func TestParseFrameIgnoresPong(t *testing.T) {
	syms := map[string]marketmodel.Symbol{}
	parse := parseFrame(marketmodel.ProductSpotLike, scaleSpec(), syms)
	if recs := parse([]byte("pong")); recs != nil {
		t.Fatalf("expected nil for pong keepalive, got %v", recs)
	}
}

func TestToOkxInstID(t *testing.T) {
	if got := toOkxInstID("BTCUSDT", marketmodel.ProductSpotLike); got != "BTC-USDT" {
		t.Fatalf("expected BTC-USDT, got %q", got)
	}
	if got := toOkxInstID("BTCUSDT", marketmodel.ProductLinearFutures); got != "BTC-USDT-SWAP" {
		t.Fatalf("expected BTC-USDT-SWAP, got %q", got)
	}
	if got := toOkxInstID("BTCUSDT", marketmodel.ProductInverseFutures); got != "BTC-USD-SWAP" {
		t.Fatalf("expected BTC-USD-SWAP, got %q", got)
	}
}
