package services

import (
	"context"
	"log"
	"runtime/debug"
	"strings"
	"time"

	"github.com/codyseavey/vault-tracker/internal/metrics"
	"github.com/codyseavey/vault-tracker/internal/models"
)

// LegoService resolves a free-text set query into a merged LegoSet using
// Rebrickable, Brickset and BrickLink, with a heuristic price fallback.
type LegoService struct {
	rebrickable *RebrickableService
	brickset    *BricksetService
	bricklink   *BrickLinkService
	now         func() time.Time
}

// NewLegoService creates a lookup service over the given catalog clients
func NewLegoService(rebrickable *RebrickableService, brickset *BricksetService, bricklink *BrickLinkService) *LegoService {
	return &LegoService{
		rebrickable: rebrickable,
		brickset:    brickset,
		bricklink:   bricklink,
		now:         time.Now,
	}
}

// BrickLink exposes the BrickLink client for quota reporting
func (s *LegoService) BrickLink() *BrickLinkService {
	return s.bricklink
}

// NormalizeSetNumber trims a query and appends the "-1" variant when none is given.
// "75192" becomes "75192-1"; "75192-2" is unchanged.
func NormalizeSetNumber(query string) string {
	setNum := strings.TrimSpace(query)
	if setNum == "" {
		return ""
	}
	if !strings.Contains(setNum, "-") {
		setNum += variantOneSuffix
	}
	return setNum
}

// GetLegoSet looks up a set and returns the merged result, or nil when no catalog
// source knows the set or none is configured. Upstream failures never escape:
// each source degrades to absent and the lookup continues with the rest.
func (s *LegoService) GetLegoSet(ctx context.Context, query string, resolver CredentialResolver) (result *models.LegoSet) {
	setNum := NormalizeSetNumber(query)
	if setNum == "" {
		return nil
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("LEGO lookup: panic resolving %s: %v\n%s", setNum, r, debug.Stack())
			result = nil
		}
		metrics.LegoLookupDuration.Observe(time.Since(start).Seconds())
		if result == nil {
			metrics.LegoLookupsTotal.WithLabelValues("not_found").Inc()
			return
		}
		metrics.LegoLookupsTotal.WithLabelValues("found").Inc()
		metrics.LegoPriceSourceTotal.WithLabelValues(string(result.PriceSource)).Inc()
	}()

	var creds Credentials
	if resolver != nil {
		creds = resolver.Resolve(ctx)
	}

	b := newLegoSetBuilder(setNum)

	// Primary source
	if usableRebrickableKey(creds.RebrickableAPIKey) {
		b.applyRebrickable(s.rebrickable.GetSet(ctx, creds.RebrickableAPIKey, setNum))
	}

	// Fallback source; its rich fields are captured in the same pass
	if !b.hasBaseline() && creds.BricksetAPIKey != "" {
		b.applyBrickset(s.brickset.GetSetDetails(ctx, creds.BricksetAPIKey, setNum), true)
	}

	if !b.hasBaseline() {
		log.Printf("LEGO lookup: %s not found in any configured catalog", setNum)
		return nil
	}

	// Metadata enrichment
	if b.set.Source != models.SourceBrickset && creds.BricksetAPIKey != "" {
		b.applyBrickset(s.brickset.GetSetDetails(ctx, creds.BricksetAPIKey, setNum), false)
	}

	// Price enrichment
	if creds.BrickLink.Complete() {
		b.applyBrickLinkPrices(s.bricklink.GetPrices(ctx, creds.BrickLink, setNum, creds.Currency), creds.Currency)
	}

	b.applyEstimate(s.now().Year())

	return b.build()
}
