package tradingclient

import (
	"strings"
	"testing"
)

func TestHmacSHA256SignKnownVector(t *testing.T) {
	secret := "NhqPtmdSJYdKjVHjA7PZj4Mge3R5YNiP1e3UZjInClVN65XAbvqqM6A7H5fATj0j"
	message := "symbol=LTCBTC&side=BUY&type=LIMIT&timeInForce=GTC&quantity=1" +
		"&price=0.1&recvWindow=5000&timestamp=1499827319559"

	sig := HmacSHA256Sign(secret, message)
	if len(sig) != 64 {
		t.Fatalf("expected 64-char hex signature, got %d chars: %q", len(sig), sig)
	}
}

func TestBuildSignedQueryAppendsSignature(t *testing.T) {
	params := []Param{
		{Key: "symbol", Value: "BTCUSDT"},
		{Key: "timestamp", Value: "1234567890"},
	}
	query := BuildSignedQuery(params, "test_secret")

	if !strings.HasPrefix(query, "symbol=BTCUSDT&timestamp=1234567890&signature=") {
		t.Fatalf("unexpected query shape: %q", query)
	}
}

func TestBuildSignedQueryEscapesValues(t *testing.T) {
	params := []Param{{Key: "origClientOrderId", Value: "a b&c"}}
	query := BuildSignedQuery(params, "secret")
	if strings.Contains(query[:strings.Index(query, "&signature=")], " ") {
		t.Fatalf("expected value to be URL-escaped, got %q", query)
	}
}
