package models

import (
	"time"
)

type CollectionType string

const (
	CollectionTypeLego     CollectionType = "lego"
	CollectionTypeCoins    CollectionType = "coins"
	CollectionTypeBooks    CollectionType = "books"
	CollectionTypeAntiques CollectionType = "antiques"
	CollectionTypeOther    CollectionType = "other"
)

// Valid reports whether t is a known collection type
func (t CollectionType) Valid() bool {
	switch t {
	case CollectionTypeLego, CollectionTypeCoins, CollectionTypeBooks, CollectionTypeAntiques, CollectionTypeOther:
		return true
	}
	return false
}

type ItemSource string

const (
	ItemSourceManual ItemSource = "manual"
	ItemSourceLego   ItemSource = "auto:lego"
	ItemSourceCoin   ItemSource = "auto:coin"
)

// Collection is a user's vault of items of one type
type Collection struct {
	ID          string         `json:"id" gorm:"primaryKey"`
	UserID      string         `json:"user_id" gorm:"not null;index"`
	Name        string         `json:"name" gorm:"not null"`
	Type        CollectionType `json:"type" gorm:"not null;index"`
	Description *string        `json:"description"`
	Items       []Item         `json:"-" gorm:"foreignKey:CollectionID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ItemMetadata holds type-specific details, stored as a JSON column
type ItemMetadata struct {
	// LEGO
	Year       int                `json:"year,omitempty"`
	ThemeID    *int               `json:"theme_id,omitempty"`
	NumParts   int                `json:"num_parts,omitempty"`
	SetURL     *string            `json:"set_url,omitempty"`
	RRP        map[string]float64 `json:"rrp,omitempty"`
	Theme      *string            `json:"theme,omitempty"`
	Subtheme   *string            `json:"subtheme,omitempty"`
	ThemeGroup *string            `json:"theme_group,omitempty"`
	Category   *string            `json:"category,omitempty"`

	// Coins
	Country      string  `json:"country,omitempty"`
	Denomination string  `json:"denomination,omitempty"`
	Composition  string  `json:"composition,omitempty"`
	Weight       float64 `json:"weight,omitempty"`

	IsManuallyModified bool       `json:"is_manually_modified,omitempty"`
	LastEdited         *time.Time `json:"last_edited,omitempty"`
	LastRefreshed      *time.Time `json:"last_refreshed,omitempty"`
}

// Merge copies every set field of patch over m. Zero values in patch are ignored.
func (m *ItemMetadata) Merge(patch ItemMetadata) {
	if patch.Year != 0 {
		m.Year = patch.Year
	}
	if patch.ThemeID != nil {
		m.ThemeID = patch.ThemeID
	}
	if patch.NumParts != 0 {
		m.NumParts = patch.NumParts
	}
	if patch.SetURL != nil {
		m.SetURL = patch.SetURL
	}
	if len(patch.RRP) > 0 {
		m.RRP = patch.RRP
	}
	if patch.Theme != nil {
		m.Theme = patch.Theme
	}
	if patch.Subtheme != nil {
		m.Subtheme = patch.Subtheme
	}
	if patch.ThemeGroup != nil {
		m.ThemeGroup = patch.ThemeGroup
	}
	if patch.Category != nil {
		m.Category = patch.Category
	}
	if patch.Country != "" {
		m.Country = patch.Country
	}
	if patch.Denomination != "" {
		m.Denomination = patch.Denomination
	}
	if patch.Composition != "" {
		m.Composition = patch.Composition
	}
	if patch.Weight != 0 {
		m.Weight = patch.Weight
	}
	if patch.LastRefreshed != nil {
		m.LastRefreshed = patch.LastRefreshed
	}
}

type Item struct {
	ID                  string       `json:"id" gorm:"primaryKey"`
	UserID              string       `json:"user_id" gorm:"not null;index"`
	CollectionID        string       `json:"collection_id" gorm:"not null;index"`
	Name                string       `json:"name" gorm:"not null"`
	Description         string       `json:"description"`
	ImageURL            *string      `json:"image_url"`
	PurchasePrice       *float64     `json:"purchase_price"`
	CurrentValue        *float64     `json:"current_value"`
	Currency            string       `json:"currency" gorm:"default:'USD'"`
	Source              ItemSource   `json:"source" gorm:"default:'manual'"`
	ExternalID          *string      `json:"external_id" gorm:"index"`
	Metadata            ItemMetadata `json:"metadata" gorm:"serializer:json"`
	PriceAlertThreshold *float64     `json:"price_alert_threshold"`
	LastPriceCheck      *time.Time   `json:"last_price_check"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

type CreateCollectionRequest struct {
	Name        string         `json:"name" binding:"required"`
	Type        CollectionType `json:"type" binding:"required"`
	Description *string        `json:"description"`
}

type UpdateCollectionRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// CollectionSummary is a collection with its aggregate counts
type CollectionSummary struct {
	Collection
	ItemCount  int     `json:"item_count"`
	TotalValue float64 `json:"total_value"`
}

// AddItemRequest accepts either a manual item or the payload of a lookup result.
// A non-empty SetNum marks the item as a LEGO set.
type AddItemRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	ImageURL      *string  `json:"image_url"`
	SetImgURL     *string  `json:"set_img_url"`
	PurchasePrice *float64 `json:"purchase_price"`
	CurrentValue  *float64 `json:"current_value"`

	// LEGO lookup fields
	SetNum     string             `json:"set_num"`
	Year       int                `json:"year"`
	ThemeID    *int               `json:"theme_id"`
	NumParts   int                `json:"num_parts"`
	SetURL     *string            `json:"set_url"`
	RRP        map[string]float64 `json:"rrp"`
	Theme      *string            `json:"theme"`
	Subtheme   *string            `json:"subtheme"`
	ThemeGroup *string            `json:"themeGroup"`
	Category   *string            `json:"category"`

	// Coin fields
	Country      string  `json:"country"`
	Denomination string  `json:"denomination"`
	Composition  string  `json:"composition"`
	Weight       float64 `json:"weight"`
}

type UpdateItemRequest struct {
	Name                *string       `json:"name"`
	Description         *string       `json:"description"`
	CurrentValue        *float64      `json:"current_value"`
	PurchasePrice       *float64      `json:"purchase_price"`
	PriceAlertThreshold *float64      `json:"price_alert_threshold"`
	Metadata            *ItemMetadata `json:"metadata"`
}

// TypeStats aggregates items of one collection type
type TypeStats struct {
	Items int     `json:"items"`
	Value float64 `json:"value"`
}

type CollectionStats struct {
	TotalItems       int                          `json:"total_items"`
	TotalCollections int                          `json:"total_collections"`
	TotalValue       float64                      `json:"total_value"`
	TotalInvested    float64                      `json:"total_invested"`
	ByType           map[CollectionType]TypeStats `json:"by_type"`
}
