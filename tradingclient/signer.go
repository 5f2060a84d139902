// Package tradingclient is a boundary-only trading surface: order
// placement/cancellation sit outside the market data engine's scope, but the
// request-signing primitive is shared plumbing worth carrying over from the
// teacher's delegator, grounded on
// original_source/crates/k4-td/src/binance/auth.rs's hmac_sha256_sign and
// build_signed_query.
package tradingclient

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// HmacSHA256Sign returns the lowercase hex HMAC-SHA256 signature of message
// under secret.
func HmacSHA256Sign(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// Param is a single URL query parameter, kept ordered (unlike a map) since
// signing is over a specific key ordering.
type Param struct {
	Key   string
	Value string
}

// BuildSignedQuery URL-encodes params in order, computes the HMAC-SHA256
// signature over the resulting query string, and appends
// "&signature=<hex>".
func BuildSignedQuery(params []Param, secret string) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, url.QueryEscape(p.Key)+"="+url.QueryEscape(p.Value))
	}
	query := strings.Join(parts, "&")
	signature := HmacSHA256Sign(secret, query)
	return query + "&signature=" + signature
}
