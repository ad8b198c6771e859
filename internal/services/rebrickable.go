package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	rebrickableBaseURL      = "https://rebrickable.com/api/v3"
	rebrickableSource       = "rebrickable"
	rebrickableRequestsPerS = 1 // documented API limit
	rebrickablePlaceholder  = "OPTIONAL_LEGO_KEY"
)

// RebrickableService handles API calls to Rebrickable, the primary set catalog
type RebrickableService struct {
	http    *upstream
	baseURL string
}

// RebrickableSet is the Rebrickable set payload
type RebrickableSet struct {
	SetNum         string   `json:"set_num"`
	Name           string   `json:"name"`
	Year           looseInt `json:"year"`
	ThemeID        looseInt `json:"theme_id"`
	NumParts       looseInt `json:"num_parts"`
	SetImgURL      string   `json:"set_img_url"`
	SetURL         string   `json:"set_url"`
	LastModifiedDT string   `json:"last_modified_dt"`
}

// NewRebrickableService creates a new Rebrickable API service
func NewRebrickableService(timeout time.Duration) *RebrickableService {
	return &RebrickableService{
		http:    newUpstream(rebrickableSource, timeout, rebrickableRequestsPerS, 3),
		baseURL: rebrickableBaseURL,
	}
}

// usableRebrickableKey reports whether key is set and not the sample-config placeholder
func usableRebrickableKey(key string) bool {
	return key != "" && key != rebrickablePlaceholder
}

// GetSet fetches a set by its exact identifier. Returns nil on any failure.
func (s *RebrickableService) GetSet(ctx context.Context, apiKey, setNum string) *RebrickableSet {
	set, err := s.fetchSet(ctx, apiKey, setNum)
	if err != nil {
		reportUpstreamFailure(rebrickableSource, "getSet", err)
		return nil
	}
	return set
}

func (s *RebrickableService) fetchSet(ctx context.Context, apiKey, setNum string) (*RebrickableSet, error) {
	if !usableRebrickableKey(apiKey) {
		return nil, ErrNotConfigured
	}

	reqURL := fmt.Sprintf("%s/lego/sets/%s/", s.baseURL, url.PathEscape(setNum))
	header := http.Header{}
	header.Set("Authorization", "key "+apiKey)

	var set RebrickableSet
	if err := s.http.getJSON(ctx, reqURL, header, &set); err != nil {
		return nil, err
	}
	if set.SetNum == "" && set.Name == "" {
		return nil, &ParseError{Err: fmt.Errorf("empty set payload for %s", setNum)}
	}
	return &set, nil
}
