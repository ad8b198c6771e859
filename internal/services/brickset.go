package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"
)

const (
	bricksetBaseURL      = "https://brickset.com/api/v3.asmx"
	bricksetSource       = "brickset"
	bricksetRequestsPerS = 2
	variantOneSuffix     = "-1"
)

// BricksetService handles API calls to Brickset for rich set metadata
type BricksetService struct {
	http    *upstream
	baseURL string
}

// BricksetSet is the parsed result of a Brickset getSets lookup
type BricksetSet struct {
	Name        string
	Year        int
	NumParts    int
	ImageURL    *string
	SetURL      *string
	Theme       *string
	Subtheme    *string
	ThemeGroup  *string
	Category    *string
	RetailPrice map[string]float64 // region code (US, UK, EU, CA) -> list price
}

type bricksetResponse struct {
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Matches int              `json:"matches"`
	Sets    []bricksetRawSet `json:"sets"`
}

type bricksetRawSet struct {
	Number      string   `json:"number"`
	Variant     looseInt `json:"numberVariant"`
	Name        string   `json:"name"`
	Year        looseInt `json:"year"`
	Pieces      looseInt `json:"pieces"`
	BricksetURL string   `json:"bricksetURL"`
	Theme       string   `json:"theme"`
	Subtheme    string   `json:"subtheme"`
	ThemeGroup  string   `json:"themeGroup"`
	Category    string   `json:"category"`
	Image       struct {
		ImageURL     string `json:"imageURL"`
		ThumbnailURL string `json:"thumbnailURL"`
	} `json:"image"`
	LEGOCom map[string]struct {
		RetailPrice looseFloat `json:"retailPrice"`
	} `json:"LEGOCom"`

	// Older response shape carries flat per-region prices
	USRetailPrice looseFloat `json:"USRetailPrice"`
	UKRetailPrice looseFloat `json:"UKRetailPrice"`
	EURetailPrice looseFloat `json:"EURetailPrice"`
	CARetailPrice looseFloat `json:"CARetailPrice"`
}

// bricksetRegions maps LEGO.com store regions onto the retail price keys we expose
var bricksetRegions = map[string]string{
	"US": "US",
	"UK": "UK",
	"CA": "CA",
	"DE": "EU",
}

// NewBricksetService creates a new Brickset API service
func NewBricksetService(timeout time.Duration) *BricksetService {
	return &BricksetService{
		http:    newUpstream(bricksetSource, timeout, bricksetRequestsPerS, 2),
		baseURL: bricksetBaseURL,
	}
}

// GetSetDetails looks up a set by number. If the exact identifier finds nothing and
// it ends in "-1", the lookup is retried once with the bare set number.
// Returns nil when neither lookup produces a set.
func (s *BricksetService) GetSetDetails(ctx context.Context, apiKey, setNum string) *BricksetSet {
	if apiKey == "" || setNum == "" {
		return nil
	}

	raw, err := s.lookup(ctx, apiKey, setNum)
	// A timed out first attempt is not retried; the base number would hang the same way
	if raw == nil && strings.HasSuffix(setNum, variantOneSuffix) && classifyError(err) != ErrorClassTimeout {
		base := strings.TrimSuffix(setNum, variantOneSuffix)
		log.Printf("Brickset: no match for %s, retrying with %s", setNum, base)
		raw, _ = s.lookup(ctx, apiKey, base)
	}
	if raw == nil {
		log.Printf("Brickset: no sets found for %s", setNum)
		return nil
	}

	return raw.toSet()
}

// lookup performs one getSets call. Failures and empty results both return a nil set;
// failures are reported before being returned.
func (s *BricksetService) lookup(ctx context.Context, apiKey, setNum string) (*bricksetRawSet, error) {
	raw, err := s.fetchSet(ctx, apiKey, setNum)
	if err != nil {
		reportUpstreamFailure(bricksetSource, "getSets", err)
		return nil, err
	}
	return raw, nil
}

func (s *BricksetService) fetchSet(ctx context.Context, apiKey, setNum string) (*bricksetRawSet, error) {
	params, err := json.Marshal(map[string]any{
		"setNumber":  setNum,
		"pageSize":   1,
		"pageNumber": 1,
	})
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}

	q := url.Values{}
	q.Set("apiKey", apiKey)
	q.Set("userHash", "")
	q.Set("params", string(params))
	reqURL := fmt.Sprintf("%s/getSets?%s", s.baseURL, q.Encode())

	var resp bricksetResponse
	if err := s.http.getJSON(ctx, reqURL, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("%w: status %q: %s", ErrAPIStatus, resp.Status, resp.Message)
	}
	if len(resp.Sets) == 0 {
		return nil, fmt.Errorf("%w: no sets for %s", ErrNotFound, setNum)
	}
	return &resp.Sets[0], nil
}

func (r *bricksetRawSet) toSet() *BricksetSet {
	set := &BricksetSet{
		Name:       r.Name,
		Year:       int(r.Year),
		NumParts:   int(r.Pieces),
		ImageURL:   firstNonEmpty(r.Image.ImageURL, r.Image.ThumbnailURL),
		SetURL:     firstNonEmpty(r.BricksetURL),
		Theme:      firstNonEmpty(r.Theme),
		Subtheme:   firstNonEmpty(r.Subtheme),
		ThemeGroup: firstNonEmpty(r.ThemeGroup),
		Category:   firstNonEmpty(r.Category),
	}

	rrp := make(map[string]float64)
	for region, key := range bricksetRegions {
		if p, ok := r.LEGOCom[region]; ok && p.RetailPrice > 0 {
			rrp[key] = float64(p.RetailPrice)
		}
	}
	flat := map[string]looseFloat{
		"US": r.USRetailPrice,
		"UK": r.UKRetailPrice,
		"EU": r.EURetailPrice,
		"CA": r.CARetailPrice,
	}
	for key, p := range flat {
		if _, ok := rrp[key]; !ok && p > 0 {
			rrp[key] = float64(p)
		}
	}
	if len(rrp) > 0 {
		set.RetailPrice = rrp
	}

	return set
}

// firstNonEmpty returns a pointer to the first non-blank value, or nil
func firstNonEmpty(values ...string) *string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return &v
		}
	}
	return nil
}
