package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"main/internal/timeutil"
)

type fakeSource struct {
	histograms map[string]*timeutil.Histogram
}

func (f fakeSource) Histograms() map[string]*timeutil.Histogram { return f.histograms }

func (f fakeSource) Dropped() map[string]uint64 { return nil }

func TestWriteSnapshotReportsPercentiles(t *testing.T) {
	h := timeutil.NewHistogram()
	h.Record(100)
	h.Record(200)
	h.Record(300)
	src := fakeSource{histograms: map[string]*timeutil.Histogram{"binance-sbe-spot": h}}

	rec := httptest.NewRecorder()
	writeSnapshot(rec, []Source{src})

	if rec.Code != http.StatusOK && rec.Code != 0 {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	body := rec.Body.String()
	if body == "" {
		t.Fatal("expected non-empty metrics body")
	}
	want := "binance-sbe-spot count=3 p50_us=200 p90_us=300 p99_us=300\n"
	if body != want {
		t.Fatalf("expected %q, got %q", want, body)
	}
}

func TestWriteSnapshotEmptySources(t *testing.T) {
	rec := httptest.NewRecorder()
	writeSnapshot(rec, nil)
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body for no sources, got %q", rec.Body.String())
	}
}
