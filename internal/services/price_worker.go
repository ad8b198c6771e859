package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/codyseavey/vault-tracker/internal/metrics"
	"github.com/codyseavey/vault-tracker/internal/models"
)

const defaultPriceCheckInterval = 6 * time.Hour

// ErrPriceCheckRunning is returned when a run is requested while one is in progress
var ErrPriceCheckRunning = errors.New("price check already running")

// PriceCheckStatus is the outcome of checking one item
type PriceCheckStatus string

const (
	PriceCheckAlert   PriceCheckStatus = "ALERT"
	PriceCheckOK      PriceCheckStatus = "OK"
	PriceCheckNoPrice PriceCheckStatus = "NO_PRICE"
	PriceCheckNoBase  PriceCheckStatus = "NO_BASE"
)

// PriceCheckResult describes one checked item
type PriceCheckResult struct {
	ItemID    string           `json:"item_id"`
	UserID    string           `json:"user_id"`
	Item      string           `json:"item"`
	Status    PriceCheckStatus `json:"status"`
	Price     float64          `json:"price,omitempty"`
	BasePrice float64          `json:"base_price,omitempty"`
	Drop      float64          `json:"drop,omitempty"` // percent
	Threshold float64          `json:"threshold"`
}

// PriceAlertStatus reports worker state for the status endpoint
type PriceAlertStatus struct {
	Running           bool               `json:"running"`
	LastRunTime       time.Time          `json:"last_run_time"`
	NextRunTime       time.Time          `json:"next_run_time"`
	ItemsCheckedToday int                `json:"items_checked_today"`
	Interval          string             `json:"interval"`
	BrickLinkQuota    int                `json:"bricklink_quota_remaining"`
	LastResults       []PriceCheckResult `json:"last_results"`
}

// PriceAlertWorker periodically re-prices items that have an alert threshold
// and flags those whose market price dropped by at least the threshold percent.
type PriceAlertWorker struct {
	db             *gorm.DB
	lego           *LegoService
	defaults       Credentials
	updateInterval time.Duration
	now            func() time.Time

	mu      sync.RWMutex
	running bool

	// Stats (reset at midnight)
	itemsCheckedToday int
	lastRunTime       time.Time
	lastStatsDay      time.Time
	lastResults       []PriceCheckResult
}

// NewPriceAlertWorker creates the worker. defaults are the process-wide credentials
// used for any field an item owner's profile leaves unset.
func NewPriceAlertWorker(db *gorm.DB, lego *LegoService, defaults Credentials, interval time.Duration) *PriceAlertWorker {
	if interval <= 0 {
		interval = defaultPriceCheckInterval
	}
	return &PriceAlertWorker{
		db:             db,
		lego:           lego,
		defaults:       defaults,
		updateInterval: interval,
		now:            time.Now,
	}
}

// Start runs a check immediately and then on every interval until ctx is cancelled
func (w *PriceAlertWorker) Start(ctx context.Context) {
	log.Printf("Price alert worker started: checking alert items every %v", w.updateInterval)

	w.runLogged(ctx)

	ticker := time.NewTicker(w.updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Price alert worker stopping...")
			return
		case <-ticker.C:
			w.runLogged(ctx)
		}
	}
}

func (w *PriceAlertWorker) runLogged(ctx context.Context) {
	results, err := w.CheckPrices(ctx)
	if err != nil {
		log.Printf("Price alert worker: run failed: %v", err)
		return
	}
	alerts := 0
	for _, r := range results {
		if r.Status == PriceCheckAlert {
			alerts++
		}
	}
	if len(results) > 0 {
		log.Printf("Price alert worker: checked %d items, %d alerts", len(results), alerts)
	}
}

// resetDailyStatsIfNeeded resets itemsCheckedToday at midnight. Caller holds w.mu.
func (w *PriceAlertWorker) resetDailyStatsIfNeeded() {
	now := w.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if w.lastStatsDay.Before(today) {
		if !w.lastStatsDay.IsZero() {
			log.Printf("Price alert worker: daily stats reset (previous day: %d items checked)", w.itemsCheckedToday)
		}
		w.itemsCheckedToday = 0
		w.lastStatsDay = today
	}
}

// CheckPrices checks every item with an alert threshold, sequentially.
// Returns ErrPriceCheckRunning if another run has not finished.
func (w *PriceAlertWorker) CheckPrices(ctx context.Context) ([]PriceCheckResult, error) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil, ErrPriceCheckRunning
	}
	w.running = true
	w.mu.Unlock()

	start := time.Now()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		metrics.PriceCheckRunDuration.Observe(time.Since(start).Seconds())
	}()

	var items []models.Item
	if err := w.db.WithContext(ctx).
		Where("price_alert_threshold IS NOT NULL").
		Where("external_id IS NOT NULL AND external_id <> ''").
		Order("last_price_check ASC NULLS FIRST").
		Find(&items).Error; err != nil {
		return nil, err
	}

	results := make([]PriceCheckResult, 0, len(items))
	for i := range items {
		if ctx.Err() != nil {
			break
		}
		item := &items[i]
		if !isLegoItem(item) {
			continue
		}

		result, err := w.checkItem(ctx, item)
		if err != nil {
			log.Printf("Price alert worker: failed to update item %s: %v", item.ID, err)
			continue
		}
		metrics.PriceChecksTotal.WithLabelValues(string(result.Status)).Inc()
		results = append(results, result)
	}

	w.mu.Lock()
	w.resetDailyStatsIfNeeded()
	w.itemsCheckedToday += len(results)
	w.lastRunTime = w.now()
	w.lastResults = results
	checked := w.itemsCheckedToday
	w.mu.Unlock()

	metrics.PriceChecksToday.Set(float64(checked))
	metrics.UpdateCollectionMetrics(w.db)

	return results, nil
}

// checkItem resolves the current new-condition price and compares it to the item's base price
func (w *PriceAlertWorker) checkItem(ctx context.Context, item *models.Item) (PriceCheckResult, error) {
	result := PriceCheckResult{
		ItemID:    item.ID,
		UserID:    item.UserID,
		Item:      item.Name,
		Threshold: *item.PriceAlertThreshold,
		Status:    PriceCheckNoPrice,
	}

	resolver := NewProfileCredentialResolver(w.db, item.UserID, w.defaults)
	set := w.lego.GetLegoSet(ctx, *item.ExternalID, resolver)
	if set == nil || !positive(set.PriceNew) {
		return result, nil
	}

	current := *set.PriceNew
	result.Price = current

	base := basePrice(item)
	result.BasePrice = base
	if base > 0 {
		result.Drop = roundCents((base - current) / base * 100)
		if result.Drop >= result.Threshold {
			result.Status = PriceCheckAlert
			log.Printf("Price alert for %s: dropped by %.1f%% to %.2f %s", item.Name, result.Drop, current, set.Currency)
		} else {
			result.Status = PriceCheckOK
		}
	} else {
		result.Status = PriceCheckNoBase
	}

	now := w.now()
	err := w.db.WithContext(ctx).Model(item).Updates(map[string]any{
		"current_value":    current,
		"last_price_check": now,
	}).Error
	return result, err
}

// basePrice is the purchase price, or the last known value when there is none
func basePrice(item *models.Item) float64 {
	if item.PurchasePrice != nil && *item.PurchasePrice > 0 {
		return *item.PurchasePrice
	}
	if item.CurrentValue != nil {
		return *item.CurrentValue
	}
	return 0
}

func isLegoItem(item *models.Item) bool {
	if item.ExternalID == nil {
		return false
	}
	return strings.Contains(string(item.Source), "lego") || strings.Contains(*item.ExternalID, "-")
}

// GetStatus returns the current status
func (w *PriceAlertWorker) GetStatus() PriceAlertStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	status := PriceAlertStatus{
		Running:           w.running,
		LastRunTime:       w.lastRunTime,
		NextRunTime:       w.lastRunTime.Add(w.updateInterval),
		ItemsCheckedToday: w.itemsCheckedToday,
		Interval:          w.updateInterval.String(),
		LastResults:       w.lastResults,
	}
	if w.lego != nil && w.lego.BrickLink() != nil {
		status.BrickLinkQuota = w.lego.BrickLink().GetRequestsRemaining()
	}
	return status
}
