package marketmodel

import "testing"

func TestSymbolRoundTrip(t *testing.T) {
	s := NewSymbol("BTC", "USDT")
	if got := s.String(); got != "BTCUSDT" {
		t.Fatalf("expected BTCUSDT, got %q", got)
	}
}

func TestSymbolTruncatesOverCapacity(t *testing.T) {
	s := NewSymbol("ABCDEFGHIJKLMNOP", "USDT")
	if len(s.String()) > SymbolLen {
		t.Fatalf("encoded symbol exceeds fixed width: %q", s.String())
	}
}

func TestDecimalAppendString(t *testing.T) {
	d := Decimal{Mantissa: 4250000000, Scale: 8}
	if got := d.String(); got != "42.50000000" {
		t.Fatalf("expected 42.50000000, got %q", got)
	}
}

func TestDecodeDecimal128MatchesSpecExample(t *testing.T) {
	d := DecodeDecimal128(4250000000, -8)
	if got := d.String(); got != "42.50000000" {
		t.Fatalf("expected 42.50000000, got %q", got)
	}
}

func TestDecimalRescale(t *testing.T) {
	d := Decimal{Mantissa: 425, Scale: 1}
	if got := d.Rescale(3); got != 42500 {
		t.Fatalf("expected 42500, got %d", got)
	}
	if got := d.Rescale(0); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}
