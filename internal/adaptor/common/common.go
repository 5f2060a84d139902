// Package common holds helpers shared across exchange adaptors: decimal
// string parsing for JSON payloads and quote-asset splitting of
// concatenated pair symbols, grounded on the teacher's internal/adapter/common.go
// and symbol.go conventions.
package common

import (
	"strconv"
	"strings"

	"github.com/yanun0323/decimal"

	"main/internal/marketmodel"
)

// ParseDecimalString turns a JSON-native decimal string (e.g. "42.50000000")
// into a Decimal with Scale equal to the number of digits after the point.
// Exchanges send prices/quantities as JSON strings to avoid float rounding;
// this is the adaptor-side mirror of marketmodel.DecodeDecimal128 for the
// JSON transports.
func ParseDecimalString(s string) marketmodel.Decimal {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	dot := strings.IndexByte(s, '.')
	var digits string
	var scale int
	if dot < 0 {
		digits = s
		scale = 0
	} else {
		digits = s[:dot] + s[dot+1:]
		scale = len(s) - dot - 1
	}

	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return marketmodel.Decimal{}
	}
	if neg {
		v = -v
	}
	return marketmodel.Decimal{Mantissa: v, Scale: scale}
}

// RescalePrice parses a JSON decimal string directly into a Price at the
// given process-wide scale.
func RescalePrice(s string, scale int) marketmodel.Price {
	return marketmodel.Price(ParseDecimalString(s).Rescale(scale))
}

// RescaleQty parses a JSON decimal string directly into a Quantity at the
// given process-wide scale.
func RescaleQty(s string, scale int) marketmodel.Quantity {
	return marketmodel.Quantity(ParseDecimalString(s).Rescale(scale))
}

// JSONPrice parses an exchange-sent decimal.Decimal field (unmarshaled by
// yanun0323/decimal straight off the wire, matching
// internal/ingest/marketdata_old/btcc_pub.go's [][]decimal.Decimal struct
// tags) into a Price at the given process-wide scale.
func JSONPrice(d decimal.Decimal, scale int) marketmodel.Price {
	return RescalePrice(d.String(), scale)
}

// JSONQty parses an exchange-sent decimal.Decimal field into a Quantity at
// the given process-wide scale.
func JSONQty(d decimal.Decimal, scale int) marketmodel.Quantity {
	return RescaleQty(d.String(), scale)
}

// ParseStrU64 parses a JSON field that may be sent as either a string or a
// bare number (OKX sends seqId/ts as strings; Binance sends some ids as
// numbers), matching original_source's parse_str_u64 helper.
func ParseStrU64(s string) uint64 {
	v, _ := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	return v
}

var commonQuoteAssets = []string{"USDT", "USDC", "BUSD", "USD", "BTC", "ETH"}

// SymbolFromConcat splits a concatenated pair symbol (e.g. "BTCUSDT", as sent
// by Bitget's instId) at its recognized quote-asset suffix.
func SymbolFromConcat(raw string) marketmodel.Symbol {
	for _, q := range commonQuoteAssets {
		if len(raw) > len(q) && raw[len(raw)-len(q):] == q {
			return marketmodel.NewSymbol(raw[:len(raw)-len(q)], q)
		}
	}
	return marketmodel.NewSymbol(raw, "")
}
