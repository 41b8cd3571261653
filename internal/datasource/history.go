package datasource

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/mvikraman/quantbench/pkg/models"
)

// HistorySource fetches daily closing prices from an HTML price archive.
// Each symbol's history lives at baseURL/<symbol> as a table whose rows
// start with an ISO date cell followed by a closing price cell; rows that
// do not parse (headers, footnotes) are skipped.
type HistorySource struct {
	baseURL string
	cache   *Cache
	limiter *RateLimiter
}

// NewHistorySource creates a source rooted at baseURL.
func NewHistorySource(baseURL string) *HistorySource {
	return &HistorySource{
		baseURL: strings.TrimRight(baseURL, "/"),
		cache:   NewCache(30 * time.Minute),
		limiter: NewRateLimiter(2, time.Second),
	}
}

// Name returns the source's display name.
func (s *HistorySource) Name() string { return "price-archive" }

// GetHistory returns the closing-price series for a symbol, oldest first.
func (s *HistorySource) GetHistory(ctx context.Context, symbol string) ([]models.PricePoint, error) {
	cacheKey := "hist:" + symbol
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.([]models.PricePoint), nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := doGet(ctx, s.baseURL+"/"+symbol)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s history: %w", symbol, err)
	}

	points := parsePriceTable(doc)
	if len(points) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, symbol)
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	s.cache.Set(cacheKey, points)
	return points, nil
}

// GetHistories fetches several symbols concurrently and returns the series
// keyed by symbol. The first fetch error cancels the remaining fetches.
func (s *HistorySource) GetHistories(ctx context.Context, symbols []string) (map[string][]models.PricePoint, error) {
	out := make(map[string][]models.PricePoint, len(symbols))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			points, err := s.GetHistory(ctx, symbol)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", symbol, err)
			}
			mu.Lock()
			out[symbol] = points
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// parsePriceTable extracts (date, close) rows from any table in the
// document. The first cell must parse as an ISO date and the second as a
// positive number.
func parsePriceTable(doc *goquery.Document) []models.PricePoint {
	var points []models.PricePoint

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		dateStr := strings.TrimSpace(cells.Eq(0).Text())
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return
		}

		closeStr := strings.ReplaceAll(strings.TrimSpace(cells.Eq(1).Text()), ",", "")
		closePrice, err := strconv.ParseFloat(closeStr, 64)
		if err != nil || closePrice <= 0 {
			return
		}

		points = append(points, models.PricePoint{Date: date, Close: closePrice})
	})

	return points
}
