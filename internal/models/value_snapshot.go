package models

import (
	"time"
)

// CollectionValueSnapshot stores a user's daily collection value for historical tracking
type CollectionValueSnapshot struct {
	ID           uint                         `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID       string                       `json:"user_id" gorm:"not null;uniqueIndex:idx_snapshot_user_date"`
	SnapshotDate time.Time                    `json:"snapshot_date" gorm:"not null;uniqueIndex:idx_snapshot_user_date"`
	TotalItems   int                          `json:"total_items"`
	TotalValue   float64                      `json:"total_value"`
	ByType       map[CollectionType]TypeStats `json:"by_type" gorm:"serializer:json"`
	CreatedAt    time.Time                    `json:"created_at"`
}

// ValueHistoryResponse is the API response for value history
type ValueHistoryResponse struct {
	Snapshots []CollectionValueSnapshot `json:"snapshots"`
	Period    string                    `json:"period"` // "week", "month", "3month", "year", "all"
}
