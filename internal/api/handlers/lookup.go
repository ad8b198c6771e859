package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/codyseavey/vault-tracker/internal/database"
	"github.com/codyseavey/vault-tracker/internal/metrics"
	"github.com/codyseavey/vault-tracker/internal/models"
	"github.com/codyseavey/vault-tracker/internal/services"
)

// SetLookup resolves a LEGO set from the upstream catalogs
type SetLookup interface {
	GetLegoSet(ctx context.Context, query string, resolver services.CredentialResolver) *models.LegoSet
}

type LookupHandler struct {
	lookup   SetLookup
	defaults services.Credentials
	cache    *expirable.LRU[string, *models.LegoSet] // user|set_num -> resolved set
}

func NewLookupHandler(lookup SetLookup, defaults services.Credentials, cacheSize int, cacheTTL time.Duration) *LookupHandler {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	return &LookupHandler{
		lookup:   lookup,
		defaults: defaults,
		cache:    expirable.NewLRU[string, *models.LegoSet](cacheSize, nil, cacheTTL),
	}
}

// LookupLego resolves a set number against Rebrickable, Brickset and BrickLink
// using the caller's credentials. Only found sets are cached.
// An optional condition=new|used picks which BrickLink average becomes price_estimate.
func (h *LookupHandler) LookupLego(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	var condition models.PriceCondition
	if raw := c.Query("condition"); raw != "" {
		if condition = models.ParsePriceCondition(raw); condition == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "condition must be 'new' or 'used'"})
			return
		}
	}

	userID := currentUser(c)
	key := cacheKey(userID, services.NormalizeSetNumber(query))

	if set, ok := h.cache.Get(key); ok {
		metrics.LookupCacheTotal.WithLabelValues("hit").Inc()
		c.JSON(http.StatusOK, priceForCondition(set, condition))
		return
	}
	metrics.LookupCacheTotal.WithLabelValues("miss").Inc()

	resolver := services.NewProfileCredentialResolver(database.GetDB(), userID, h.defaults)
	set := h.lookup.GetLegoSet(c.Request.Context(), query, resolver)
	if set == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Set not found"})
		return
	}

	h.cache.Add(key, set)
	c.JSON(http.StatusOK, priceForCondition(set, condition))
}

// Forget drops every cached lookup for a user, e.g. after their keys change
func (h *LookupHandler) Forget(userID string) {
	prefix := userID + "|"
	for _, key := range h.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			h.cache.Remove(key)
		}
	}
}

// priceForCondition returns a copy of set priced at the given condition's BrickLink
// average. Without a condition, or without a price for it, set is returned as resolved.
func priceForCondition(set *models.LegoSet, condition models.PriceCondition) *models.LegoSet {
	var price *float64
	switch condition {
	case models.PriceConditionNew:
		price = set.PriceNew
	case models.PriceConditionUsed:
		price = set.PriceUsed
	}
	if price == nil {
		return set
	}
	priced := *set
	priced.PriceEstimate = *price
	return &priced
}

func cacheKey(userID, setNum string) string {
	return userID + "|" + setNum
}
