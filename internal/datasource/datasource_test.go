package datasource

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mvikraman/quantbench/pkg/models"
)

const sampleHistoryHTML = `<html><body>
<h1>GILT-2030 price history</h1>
<table>
  <tr><th>Date</th><th>Close</th></tr>
  <tr><td>2026-01-05</td><td>98.40</td></tr>
  <tr><td>2026-01-06</td><td>98.75</td></tr>
  <tr><td>2026-01-07</td><td>1,012.50</td></tr>
  <tr><td>not-a-date</td><td>99.99</td></tr>
  <tr><td>2026-01-08</td><td>n/a</td></tr>
  <tr><td>2026-01-09</td><td>-5.0</td></tr>
</table>
</body></html>`

func TestParsePriceTable(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sampleHistoryHTML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	points := parsePriceTable(doc)
	if len(points) != 3 {
		t.Fatalf("expected 3 valid rows, got %d", len(points))
	}
	if points[0].Close != 98.40 {
		t.Errorf("expected first close 98.40, got %f", points[0].Close)
	}
	// Thousands separators are stripped.
	if points[2].Close != 1012.50 {
		t.Errorf("expected comma-formatted close 1012.50, got %f", points[2].Close)
	}
}

func TestGetHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/GILT-2030" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(sampleHistoryHTML))
	}))
	defer srv.Close()

	src := NewHistorySource(srv.URL)
	points, err := src.GetHistory(context.Background(), "GILT-2030")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	// Oldest first.
	for i := 1; i < len(points); i++ {
		if !points[i-1].Date.Before(points[i].Date) {
			t.Error("expected points sorted by date ascending")
			break
		}
	}
}

func TestGetHistory_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	src := NewHistorySource(srv.URL)
	_, err := src.GetHistory(context.Background(), "MISSING")
	var httpErr *ErrHTTP
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected ErrHTTP, got %v", err)
	}
	if httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", httpErr.StatusCode)
	}
}

func TestGetHistory_NoRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>no table here</p></body></html>"))
	}))
	defer srv.Close()

	src := NewHistorySource(srv.URL)
	_, err := src.GetHistory(context.Background(), "EMPTY")
	if !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestGetHistory_Cached(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(sampleHistoryHTML))
	}))
	defer srv.Close()

	src := NewHistorySource(srv.URL)
	if _, err := src.GetHistory(context.Background(), "GILT-2030"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := src.GetHistory(context.Background(), "GILT-2030"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits != 1 {
		t.Errorf("expected 1 upstream hit with cache, got %d", hits)
	}
}

func TestGetHistories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleHistoryHTML))
	}))
	defer srv.Close()

	src := NewHistorySource(srv.URL)
	out, err := src.GetHistories(context.Background(), []string{"A", "B", "C"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 series, got %d", len(out))
	}
	for symbol, points := range out {
		if len(points) != 3 {
			t.Errorf("%s: expected 3 points, got %d", symbol, len(points))
		}
	}
}

func TestLogReturns(t *testing.T) {
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	points := []models.PricePoint{
		{Date: base, Close: 100},
		{Date: base.AddDate(0, 0, 1), Close: 110},
		{Date: base.AddDate(0, 0, 2), Close: 99},
	}

	returns := LogReturns(points)
	if len(returns) != 2 {
		t.Fatalf("expected 2 returns, got %d", len(returns))
	}
	if math.Abs(returns[0]-math.Log(1.1)) > 1e-12 {
		t.Errorf("expected ln(1.1), got %f", returns[0])
	}
	if math.Abs(returns[1]-math.Log(99.0/110.0)) > 1e-12 {
		t.Errorf("expected ln(99/110), got %f", returns[1])
	}
}

func TestLogReturns_SortsByDate(t *testing.T) {
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	points := []models.PricePoint{
		{Date: base.AddDate(0, 0, 1), Close: 110},
		{Date: base, Close: 100},
	}
	returns := LogReturns(points)
	if len(returns) != 1 {
		t.Fatalf("expected 1 return, got %d", len(returns))
	}
	if returns[0] <= 0 {
		t.Errorf("expected positive return after date sort, got %f", returns[0])
	}
}

func TestLogReturns_BadPricesBecomeNaN(t *testing.T) {
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	points := []models.PricePoint{
		{Date: base, Close: 100},
		{Date: base.AddDate(0, 0, 1), Close: 0},
		{Date: base.AddDate(0, 0, 2), Close: 105},
	}
	returns := LogReturns(points)
	if len(returns) != 2 {
		t.Fatalf("expected 2 returns, got %d", len(returns))
	}
	// Both pairs touch the zero price, so both are NaN for the lattice
	// builder to discard.
	if !math.IsNaN(returns[0]) || !math.IsNaN(returns[1]) {
		t.Errorf("expected NaN returns around a zero price, got %v", returns)
	}
}

func TestLogReturns_TooShort(t *testing.T) {
	if LogReturns(nil) != nil {
		t.Error("expected nil for nil input")
	}
	if LogReturns([]models.PricePoint{{Close: 100}}) != nil {
		t.Error("expected nil for a single point")
	}
}

func TestCache(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("k", 42)

	v, ok := c.Get("k")
	if !ok || v.(int) != 42 {
		t.Error("expected cached value 42")
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestCache_Expiry(t *testing.T) {
	c := NewCache(1 * time.Millisecond)
	c.Set("k", "v")
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected entry to expire")
	}
}

func TestRateLimiter_ContextCancel(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first token should be free: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
