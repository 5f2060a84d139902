package tradingclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPlaceOrderSendsSignedRequestAndDecodesAck(t *testing.T) {
	var gotPath, gotAPIKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		gotAPIKey = r.Header.Get("X-MBX-APIKEY")
		_ = json.NewEncoder(w).Encode(OrderResponse{
			Symbol:        "BTCUSDT",
			OrderID:       42,
			ClientOrderID: "cid-1",
			Status:        "NEW",
		})
	}))
	defer server.Close()

	c := New(server.Client(), server.URL, "api-key", "secret")
	resp, err := c.PlaceOrder(context.Background(), OrderRequest{
		Symbol:        "BTCUSDT",
		Side:          "BUY",
		Price:         "100.5",
		Quantity:      "1",
		ClientOrderID: "cid-1",
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if resp.OrderID != 42 || resp.Status != "NEW" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !strings.Contains(gotPath, "signature=") {
		t.Fatalf("expected signed query, got %q", gotPath)
	}
	if gotAPIKey != "api-key" {
		t.Fatalf("expected api key header, got %q", gotAPIKey)
	}
}

func TestPlaceOrderErrorsOnNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	c := New(server.Client(), server.URL, "api-key", "secret")
	if _, err := c.PlaceOrder(context.Background(), OrderRequest{Symbol: "BTCUSDT"}); err == nil {
		t.Fatal("expected error on non-2xx status")
	}
}

func TestCancelOrderSendsDeleteWithOrigClientOrderID(t *testing.T) {
	var gotMethod, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(OrderResponse{Symbol: "BTCUSDT", Status: "CANCELED"})
	}))
	defer server.Close()

	c := New(server.Client(), server.URL, "api-key", "secret")
	resp, err := c.CancelOrder(context.Background(), "BTCUSDT", "cid-1")
	if err != nil {
		t.Fatalf("cancel order: %v", err)
	}
	if resp.Status != "CANCELED" {
		t.Fatalf("unexpected status: %q", resp.Status)
	}
	if gotMethod != http.MethodDelete {
		t.Fatalf("expected DELETE, got %s", gotMethod)
	}
	if !strings.Contains(gotQuery, "origClientOrderId=cid-1") {
		t.Fatalf("expected origClientOrderId in query, got %q", gotQuery)
	}
}
