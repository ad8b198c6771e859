package services

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codyseavey/vault-tracker/internal/metrics"
	"github.com/codyseavey/vault-tracker/internal/models"
)

const (
	brickLinkBaseURL      = "https://api.bricklink.com/api/store/v1"
	brickLinkDailyLimit   = 5000 // BrickLink store API allowance per consumer key
	brickLinkSource       = "bricklink"
	brickLinkRequestsPerS = 5
)

// BrickLinkService handles OAuth-signed calls to the BrickLink store API
type BrickLinkService struct {
	http       *upstream
	signer     *OAuthSigner
	baseURL    string
	dailyLimit int

	// Daily quota
	mu             sync.Mutex
	requestsToday  int
	lastRequestDay time.Time
}

// BrickLinkCatalogItem is the subset of the catalog item endpoint we use
type BrickLinkCatalogItem struct {
	Name string
	Year int
}

// BrickLinkPrices holds the sold-price averages for both conditions.
// A nil field means the source had no usable value for that condition.
type BrickLinkPrices struct {
	New  *float64
	Used *float64
}

// Found reports whether either condition produced a non-zero price
func (p BrickLinkPrices) Found() bool {
	return positive(p.New) || positive(p.Used)
}

type brickLinkMeta struct {
	Code        int    `json:"code"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

type brickLinkPriceResponse struct {
	Meta brickLinkMeta `json:"meta"`
	Data struct {
		ItemNo      string     `json:"no"`
		NewOrUsed   string     `json:"new_or_used"`
		Currency    string     `json:"currency_code"`
		AvgPrice    looseFloat `json:"avg_price"`
		QtyAvgPrice looseFloat `json:"qty_avg_price"`
		TotalQty    looseInt   `json:"total_quantity"`
	} `json:"data"`
}

type brickLinkItemResponse struct {
	Meta brickLinkMeta `json:"meta"`
	Data struct {
		ItemNo       string   `json:"no"`
		Name         string   `json:"name"`
		YearReleased looseInt `json:"year_released"`
	} `json:"data"`
}

// NewBrickLinkService creates a new BrickLink API service
func NewBrickLinkService(timeout time.Duration, dailyLimit int) *BrickLinkService {
	if dailyLimit <= 0 {
		dailyLimit = brickLinkDailyLimit
	}
	s := &BrickLinkService{
		http:       newUpstream(brickLinkSource, timeout, brickLinkRequestsPerS, 2),
		signer:     NewOAuthSigner(),
		baseURL:    brickLinkBaseURL,
		dailyLimit: dailyLimit,
	}
	metrics.BrickLinkQuotaRemaining.Set(float64(dailyLimit))
	return s
}

// checkQuota checks if we can make another request today.
// Returns true if the request can proceed.
func (s *BrickLinkService) checkQuota() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if s.lastRequestDay.Before(today) {
		s.requestsToday = 0
		s.lastRequestDay = today
	}

	if s.requestsToday >= s.dailyLimit {
		return false
	}

	s.requestsToday++
	metrics.BrickLinkQuotaRemaining.Set(float64(s.dailyLimit - s.requestsToday))
	return true
}

// GetRequestsRemaining returns the number of BrickLink requests remaining today
func (s *BrickLinkService) GetRequestsRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if s.lastRequestDay.Before(today) {
		return s.dailyLimit
	}

	remaining := s.dailyLimit - s.requestsToday
	if remaining < 0 {
		return 0
	}
	return remaining
}

// GetPrice returns the quantity-weighted average sold price for one condition,
// or nil on any failure. Failures are classified, counted, and logged.
func (s *BrickLinkService) GetPrice(ctx context.Context, keys BrickLinkKeys, setNum string, condition models.PriceCondition, currency string) *float64 {
	price, err := s.fetchPrice(ctx, keys, setNum, condition, currency)
	if err != nil {
		reportUpstreamFailure(brickLinkSource, "priceGuide "+condition.Label(), err)
		return nil
	}
	return &price
}

func (s *BrickLinkService) fetchPrice(ctx context.Context, keys BrickLinkKeys, setNum string, condition models.PriceCondition, currency string) (float64, error) {
	if !keys.Complete() {
		return 0, ErrNotConfigured
	}
	if !s.checkQuota() {
		return 0, fmt.Errorf("%w: daily quota of %d exhausted", ErrRateLimited, s.dailyLimit)
	}

	endpoint := fmt.Sprintf("%s/items/SET/%s/price", s.baseURL, url.PathEscape(setNum))
	query := map[string]string{
		"guide_type":    "sold",
		"new_or_used":   string(condition),
		"currency_code": models.NormalizeCurrency(currency),
		"vat":           "N",
	}

	values := url.Values{}
	for k, v := range query {
		values.Set(k, v)
	}

	header := http.Header{}
	header.Set("Authorization", s.signer.AuthorizationHeader(http.MethodGet, endpoint, query, keys))

	var resp brickLinkPriceResponse
	if err := s.http.getJSON(ctx, endpoint+"?"+values.Encode(), header, &resp); err != nil {
		return 0, err
	}
	if resp.Meta.Code != http.StatusOK {
		return 0, fmt.Errorf("%w: meta code %d: %s", ErrAPIStatus, resp.Meta.Code, strings.TrimSpace(resp.Meta.Message+" "+resp.Meta.Description))
	}

	return float64(resp.Data.QtyAvgPrice), nil
}

// GetCatalogItem returns the catalog name and release year of a set, or nil on any failure
func (s *BrickLinkService) GetCatalogItem(ctx context.Context, keys BrickLinkKeys, setNum string) *BrickLinkCatalogItem {
	item, err := s.fetchCatalogItem(ctx, keys, setNum)
	if err != nil {
		reportUpstreamFailure(brickLinkSource, "catalogItem", err)
		return nil
	}
	return item
}

func (s *BrickLinkService) fetchCatalogItem(ctx context.Context, keys BrickLinkKeys, setNum string) (*BrickLinkCatalogItem, error) {
	if !keys.Complete() {
		return nil, ErrNotConfigured
	}
	if !s.checkQuota() {
		return nil, fmt.Errorf("%w: daily quota of %d exhausted", ErrRateLimited, s.dailyLimit)
	}

	endpoint := fmt.Sprintf("%s/items/SET/%s", s.baseURL, url.PathEscape(setNum))

	header := http.Header{}
	header.Set("Authorization", s.signer.AuthorizationHeader(http.MethodGet, endpoint, nil, keys))

	var resp brickLinkItemResponse
	if err := s.http.getJSON(ctx, endpoint, header, &resp); err != nil {
		return nil, err
	}
	if resp.Meta.Code != http.StatusOK {
		return nil, fmt.Errorf("%w: meta code %d: %s", ErrAPIStatus, resp.Meta.Code, strings.TrimSpace(resp.Meta.Message+" "+resp.Meta.Description))
	}

	return &BrickLinkCatalogItem{
		Name: resp.Data.Name,
		Year: int(resp.Data.YearReleased),
	}, nil
}

// GetPrices fetches new and used prices concurrently.
// Each condition fails independently; a failed condition is left nil.
func (s *BrickLinkService) GetPrices(ctx context.Context, keys BrickLinkKeys, setNum, currency string) BrickLinkPrices {
	var prices BrickLinkPrices
	if !keys.Complete() {
		return prices
	}

	conditions := models.AllPriceConditions()
	results := make([]*float64, len(conditions))

	g, gctx := errgroup.WithContext(ctx)
	for i, condition := range conditions {
		i, condition := i, condition
		g.Go(func() error {
			results[i] = s.GetPrice(gctx, keys, setNum, condition, currency)
			return nil
		})
	}
	_ = g.Wait()

	for i, condition := range conditions {
		switch condition {
		case models.PriceConditionNew:
			prices.New = results[i]
		case models.PriceConditionUsed:
			prices.Used = results[i]
		}
	}

	if prices.Found() {
		log.Printf("BrickLink: %s prices new=%s used=%s %s", setNum, formatPrice(prices.New), formatPrice(prices.Used), currency)
	}
	return prices
}

func positive(p *float64) bool {
	return p != nil && *p > 0
}

func formatPrice(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *p)
}
