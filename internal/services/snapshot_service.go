package services

import (
	"context"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/codyseavey/vault-tracker/internal/models"
)

// SnapshotService records one collection value snapshot per user per day
type SnapshotService struct {
	db            *gorm.DB
	mu            sync.RWMutex
	lastSnapshot  time.Time
	snapshotHour  int // Hour of day to take snapshot (0-23)
	checkInterval time.Duration
	now           func() time.Time
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(db *gorm.DB, snapshotHour int) *SnapshotService {
	if snapshotHour < 0 || snapshotHour > 23 {
		snapshotHour = 23
	}
	return &SnapshotService{
		db:            db,
		snapshotHour:  snapshotHour,
		checkInterval: 15 * time.Minute,
		now:           time.Now,
	}
}

// Start begins the background snapshot worker
func (s *SnapshotService) Start(ctx context.Context) {
	log.Println("Snapshot service started: will record daily collection value per user")

	s.checkAndSnapshot(ctx)

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Snapshot service stopping...")
			return
		case <-ticker.C:
			s.checkAndSnapshot(ctx)
		}
	}
}

// checkAndSnapshot takes today's snapshots once the configured hour has passed
func (s *SnapshotService) checkAndSnapshot(ctx context.Context) {
	now := s.now()
	if now.Hour() < s.snapshotHour {
		return
	}

	s.mu.RLock()
	last := s.lastSnapshot
	s.mu.RUnlock()
	if sameDay(last, now) {
		return
	}

	if err := s.TakeSnapshots(ctx); err != nil {
		log.Printf("Snapshot service: failed to take snapshots: %v", err)
	}
}

// TakeSnapshots records today's value for every user that owns a collection
func (s *SnapshotService) TakeSnapshots(ctx context.Context) error {
	var userIDs []string
	if err := s.db.WithContext(ctx).Model(&models.Collection{}).Distinct().Pluck("user_id", &userIDs).Error; err != nil {
		return err
	}

	for _, userID := range userIDs {
		if err := s.TakeSnapshot(ctx, userID); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.lastSnapshot = s.now()
	s.mu.Unlock()

	log.Printf("Snapshot service: recorded value snapshots for %d users", len(userIDs))
	return nil
}

// TakeSnapshot records the current collection value of one user, replacing any
// snapshot already taken today.
func (s *SnapshotService) TakeSnapshot(ctx context.Context, userID string) error {
	now := s.now()
	snapshotDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	stats, err := CalculateStats(ctx, s.db, userID)
	if err != nil {
		return err
	}

	snapshot := models.CollectionValueSnapshot{
		UserID:       userID,
		SnapshotDate: snapshotDate,
		TotalItems:   stats.TotalItems,
		TotalValue:   stats.TotalValue,
		ByType:       stats.ByType,
		CreatedAt:    now,
	}

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND snapshot_date = ?", userID, snapshotDate).
		Assign(models.CollectionValueSnapshot{
			TotalItems: snapshot.TotalItems,
			TotalValue: snapshot.TotalValue,
			ByType:     snapshot.ByType,
		}).
		FirstOrCreate(&snapshot)
	if result.Error != nil {
		return result.Error
	}

	log.Printf("Snapshot service: recorded snapshot for user %s on %s (total: %.2f, items: %d)",
		userID, snapshotDate.Format("2006-01-02"), stats.TotalValue, stats.TotalItems)
	return nil
}

// CalculateStats computes the current collection statistics for one user
func CalculateStats(ctx context.Context, db *gorm.DB, userID string) (models.CollectionStats, error) {
	stats := models.CollectionStats{ByType: make(map[models.CollectionType]models.TypeStats)}

	var collections int64
	if err := db.WithContext(ctx).Model(&models.Collection{}).Where("user_id = ?", userID).Count(&collections).Error; err != nil {
		return stats, err
	}
	stats.TotalCollections = int(collections)

	var rows []struct {
		Type     models.CollectionType
		Count    int
		Value    float64
		Invested float64
	}
	err := db.WithContext(ctx).Table("items").
		Select(`collections.type as type,
			COUNT(items.id) as count,
			COALESCE(SUM(items.current_value), 0) as value,
			COALESCE(SUM(items.purchase_price), 0) as invested`).
		Joins("JOIN collections ON collections.id = items.collection_id").
		Where("items.user_id = ?", userID).
		Group("collections.type").
		Scan(&rows).Error
	if err != nil {
		return stats, err
	}

	for _, r := range rows {
		stats.TotalItems += r.Count
		stats.TotalValue += r.Value
		stats.TotalInvested += r.Invested
		stats.ByType[r.Type] = models.TypeStats{Items: r.Count, Value: roundCents(r.Value)}
	}
	stats.TotalValue = roundCents(stats.TotalValue)
	stats.TotalInvested = roundCents(stats.TotalInvested)

	return stats, nil
}

// GetHistory retrieves a user's value snapshots for a given period
func (s *SnapshotService) GetHistory(ctx context.Context, userID, period string) ([]models.CollectionValueSnapshot, error) {
	var snapshots []models.CollectionValueSnapshot

	now := s.now()
	var startDate time.Time

	switch period {
	case "week":
		startDate = now.AddDate(0, 0, -7)
	case "month":
		startDate = now.AddDate(0, -1, 0)
	case "3month":
		startDate = now.AddDate(0, -3, 0)
	case "year":
		startDate = now.AddDate(-1, 0, 0)
	case "all":
		startDate = time.Time{} // No filter
	default:
		startDate = now.AddDate(0, -1, 0) // Default to 1 month
	}

	query := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("snapshot_date ASC")
	if !startDate.IsZero() {
		query = query.Where("snapshot_date >= ?", startDate)
	}

	if err := query.Find(&snapshots).Error; err != nil {
		return nil, err
	}

	return snapshots, nil
}

// GetLastSnapshot returns the user's most recent snapshot
func (s *SnapshotService) GetLastSnapshot(ctx context.Context, userID string) *models.CollectionValueSnapshot {
	var snapshot models.CollectionValueSnapshot

	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("snapshot_date DESC").First(&snapshot).Error; err != nil {
		return nil
	}

	return &snapshot
}

func sameDay(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
