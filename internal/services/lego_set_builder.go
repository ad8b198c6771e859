package services

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/codyseavey/vault-tracker/internal/models"
)

type legoField string

const (
	fieldName        legoField = "name"
	fieldYear        legoField = "year"
	fieldNumParts    legoField = "num_parts"
	fieldThemeID     legoField = "theme_id"
	fieldImageURL    legoField = "image_url"
	fieldSetURL      legoField = "set_url"
	fieldTheme       legoField = "theme"
	fieldSubtheme    legoField = "subtheme"
	fieldThemeGroup  legoField = "theme_group"
	fieldCategory    legoField = "category"
	fieldRetailPrice legoField = "rrp"
	fieldPrice       legoField = "price"
)

// legoSetBuilder merges catalog sources into a LegoSet. Each field remembers the
// source that set it, and a claimed field is never overwritten.
type legoSetBuilder struct {
	set    models.LegoSet
	owners map[legoField]models.CatalogSource
}

func newLegoSetBuilder(setNum string) *legoSetBuilder {
	return &legoSetBuilder{
		set:    models.LegoSet{SetNum: setNum},
		owners: make(map[legoField]models.CatalogSource),
	}
}

// claim records src as the owner of f. It fails if f already has an owner.
func (b *legoSetBuilder) claim(f legoField, src models.CatalogSource) bool {
	if _, ok := b.owners[f]; ok {
		return false
	}
	b.owners[f] = src
	return true
}

// owner returns the source that set f, or "" if unset
func (b *legoSetBuilder) owner(f legoField) models.CatalogSource {
	return b.owners[f]
}

func (b *legoSetBuilder) hasBaseline() bool {
	return b.set.Source != ""
}

// setBaseline claims the identity fields for src. Only the first baseline wins.
func (b *legoSetBuilder) setBaseline(src models.CatalogSource, name string, year, numParts int) bool {
	if b.hasBaseline() {
		return false
	}
	b.set.Source = src
	if b.claim(fieldName, src) {
		b.set.Name = decodeName(name)
	}
	if b.claim(fieldYear, src) {
		b.set.Year = year
	}
	if b.claim(fieldNumParts, src) {
		b.set.NumParts = numParts
	}
	return true
}

// setOptional sets a nullable string field when v is present and the field is unclaimed
func (b *legoSetBuilder) setOptional(f legoField, src models.CatalogSource, dst **string, v *string) {
	if v == nil || *v == "" {
		return
	}
	if b.claim(f, src) {
		val := *v
		*dst = &val
	}
}

// applyRebrickable makes a Rebrickable set the baseline
func (b *legoSetBuilder) applyRebrickable(r *RebrickableSet) bool {
	if r == nil || !b.setBaseline(models.SourceRebrickable, r.Name, int(r.Year), int(r.NumParts)) {
		return false
	}
	if r.ThemeID > 0 && b.claim(fieldThemeID, models.SourceRebrickable) {
		id := int(r.ThemeID)
		b.set.ThemeID = &id
	}
	b.setOptional(fieldImageURL, models.SourceRebrickable, &b.set.ImageURL, firstNonEmpty(r.SetImgURL))
	b.setOptional(fieldSetURL, models.SourceRebrickable, &b.set.SetURL, firstNonEmpty(r.SetURL))
	return true
}

// applyBrickset merges a Brickset record. As baseline it also supplies identity
// fields; as enrichment it only fills fields no other source has claimed.
func (b *legoSetBuilder) applyBrickset(s *BricksetSet, asBaseline bool) bool {
	if s == nil {
		return false
	}
	if asBaseline && !b.setBaseline(models.SourceBrickset, s.Name, s.Year, s.NumParts) {
		return false
	}

	src := models.SourceBrickset
	b.setOptional(fieldImageURL, src, &b.set.ImageURL, s.ImageURL)
	b.setOptional(fieldSetURL, src, &b.set.SetURL, s.SetURL)
	b.setOptional(fieldTheme, src, &b.set.Theme, s.Theme)
	b.setOptional(fieldSubtheme, src, &b.set.Subtheme, s.Subtheme)
	b.setOptional(fieldThemeGroup, src, &b.set.ThemeGroup, s.ThemeGroup)
	b.setOptional(fieldCategory, src, &b.set.Category, s.Category)

	if len(s.RetailPrice) > 0 && b.claim(fieldRetailPrice, src) {
		rrp := make(map[string]float64, len(s.RetailPrice))
		for k, v := range s.RetailPrice {
			rrp[k] = v
		}
		b.set.RetailPrice = rrp
	}
	return true
}

// applyBrickLinkPrices sets the price from BrickLink when either condition has a
// non-zero average. New is preferred over used.
func (b *legoSetBuilder) applyBrickLinkPrices(p BrickLinkPrices, currency string) bool {
	if !p.Found() || !b.claim(fieldPrice, models.SourceBrickLink) {
		return false
	}
	if positive(p.New) {
		v := *p.New
		b.set.PriceNew = &v
	}
	if positive(p.Used) {
		v := *p.Used
		b.set.PriceUsed = &v
	}
	if b.set.PriceNew != nil {
		b.set.PriceEstimate = *b.set.PriceNew
	} else {
		b.set.PriceEstimate = *b.set.PriceUsed
	}
	b.set.PriceSource = models.PriceSourceBrickLink
	b.set.Currency = models.NormalizeCurrency(currency)
	return true
}

// applyEstimate fills the price from the heuristic unless a live price was set
func (b *legoSetBuilder) applyEstimate(currentYear int) bool {
	if !b.claim(fieldPrice, models.SourceEstimate) {
		return false
	}
	b.set.PriceEstimate = estimatePriceAt(b.set.NumParts, b.set.Year, b.set.Name, currentYear)
	b.set.PriceSource = models.PriceSourceEstimate
	b.set.Currency = models.DefaultCurrency
	return true
}

// build returns the merged set, or nil if no baseline source succeeded
func (b *legoSetBuilder) build() *models.LegoSet {
	if !b.hasBaseline() {
		return nil
	}
	out := b.set
	return &out
}

// decodeName unescapes HTML entities that the catalog feeds leave in set names
func decodeName(name string) string {
	name = strings.TrimSpace(html.UnescapeString(name))
	if name == "" {
		return "Unknown"
	}
	return name
}
