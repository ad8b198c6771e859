package models

// CatalogSource identifies the upstream catalog that supplied a field
type CatalogSource string

const (
	SourceRebrickable CatalogSource = "rebrickable"
	SourceBrickset    CatalogSource = "brickset"
	SourceBrickLink   CatalogSource = "bricklink"
	SourceEstimate    CatalogSource = "estimate"
)

// PriceSource documents where LegoSet.PriceEstimate came from
type PriceSource string

const (
	PriceSourceEstimate  PriceSource = "estimate"
	PriceSourceBrickLink PriceSource = "bricklink"
	PriceSourceBrickset  PriceSource = "brickset"
)

// LegoSet is the merged result of one catalog lookup.
// It is built fresh per lookup and never persisted as-is; items copy the
// fields they need into ItemMetadata.
type LegoSet struct {
	SetNum   string        `json:"set_num"`
	Name     string        `json:"name"`
	Year     int           `json:"year"`
	NumParts int           `json:"num_parts"`
	ThemeID  *int          `json:"theme_id,omitempty"`
	ImageURL *string       `json:"image_url"`
	SetURL   *string       `json:"set_url"`
	Source   CatalogSource `json:"source"` // baseline metadata source

	// Rich data (Brickset only)
	Theme       *string            `json:"theme,omitempty"`
	Subtheme    *string            `json:"subtheme,omitempty"`
	ThemeGroup  *string            `json:"themeGroup,omitempty"`
	Category    *string            `json:"category,omitempty"`
	RetailPrice map[string]float64 `json:"rrp,omitempty"` // region code (US, UK, EU, CA) -> list price

	PriceEstimate float64     `json:"price_estimate"`
	PriceSource   PriceSource `json:"price_source"`
	PriceNew      *float64    `json:"price_new,omitempty"`
	PriceUsed     *float64    `json:"price_used,omitempty"`
	Currency      string      `json:"currency"`
}
