package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const chartFixture = `{
  "chart": {
    "result": [{
      "timestamp": [1767430800, 1767430860, 1767430920],
      "indicators": {
        "quote": [{
          "open":   [100.0, null, 100.6],
          "high":   [100.5, null, 100.9],
          "low":    [99.8,  null, 100.2],
          "close":  [100.2, null, 100.7],
          "volume": [1200,  null, 900]
        }]
      }
    }],
    "error": null
  }
}`

func TestParseChart(t *testing.T) {
	candles, err := parseChart([]byte(chartFixture))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("candles=%d want 2, null close rows are dropped", len(candles))
	}
	first := candles[0]
	if !first.Ts.Equal(time.Unix(1767430800, 0)) {
		t.Fatalf("ts=%v", first.Ts)
	}
	if first.Close != 100.2 || first.Open != 100.0 || first.Volume != 1200 {
		t.Fatalf("first candle %+v", first)
	}
	if candles[1].Close != 100.7 {
		t.Fatalf("second candle %+v", candles[1])
	}
}

func TestParseChart_APIErrorBody(t *testing.T) {
	body := `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`
	if _, err := parseChart([]byte(body)); err == nil {
		t.Fatalf("expected error from chart error body")
	}
}

func TestYahooCandles_RequestShape(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		if ua := r.Header.Get("User-Agent"); ua == "" || ua == "Go-http-client/1.1" {
			t.Errorf("user-agent=%q, endpoint rejects default clients", ua)
		}
		w.Write([]byte(chartFixture))
	}))
	defer srv.Close()

	client := NewYahooClient(srv.Client(), srv.URL)
	start := time.Date(2026, 1, 3, 9, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	candles, err := client.Candles(context.Background(), "aapl", start, end, "")
	if err != nil {
		t.Fatalf("candles: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("candles=%d want 2", len(candles))
	}
	if gotPath != "/v8/finance/chart/AAPL" {
		t.Fatalf("path=%q", gotPath)
	}
	if got := gotQuery["interval"]; len(got) != 1 || got[0] != "1m" {
		t.Fatalf("interval=%v want default 1m", got)
	}
	if got := gotQuery["includePrePost"]; len(got) != 1 || got[0] != "true" {
		t.Fatalf("includePrePost=%v", got)
	}
}

func TestYahooCandles_Validation(t *testing.T) {
	client := NewYahooClient(nil, "")
	now := time.Now()
	if _, err := client.Candles(context.Background(), "", now, now.Add(time.Hour), "1m"); err == nil {
		t.Fatalf("expected error for empty symbol")
	}
	if _, err := client.Candles(context.Background(), "AAPL", now, now, "1m"); err == nil {
		t.Fatalf("expected error for empty window")
	}
}

func TestYahooCandles_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewYahooClient(srv.Client(), srv.URL)
	_, err := client.Candles(context.Background(), "AAPL", time.Now().Add(-time.Hour), time.Now(), "1m")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err=%v want APIError", err)
	}
	if apiErr.Status != http.StatusTooManyRequests {
		t.Fatalf("status=%d want 429", apiErr.Status)
	}
}
