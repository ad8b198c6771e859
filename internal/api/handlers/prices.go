package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/vault-tracker/internal/services"
)

type PriceHandler struct {
	priceWorker *services.PriceAlertWorker
}

func NewPriceHandler(priceWorker *services.PriceAlertWorker) *PriceHandler {
	return &PriceHandler{
		priceWorker: priceWorker,
	}
}

// GetPriceStatus returns the worker schedule, BrickLink quota and the caller's last results
func (h *PriceHandler) GetPriceStatus(c *gin.Context) {
	status := h.priceWorker.GetStatus()
	status.LastResults = resultsFor(currentUser(c), status.LastResults)
	c.JSON(http.StatusOK, status)
}

// CheckPrices runs a price alert pass immediately
func (h *PriceHandler) CheckPrices(c *gin.Context) {
	results, err := h.priceWorker.CheckPrices(c.Request.Context())
	if err != nil {
		if errors.Is(err, services.ErrPriceCheckRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	mine := resultsFor(currentUser(c), results)
	alerts := 0
	for _, r := range mine {
		if r.Status == services.PriceCheckAlert {
			alerts++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"checked": len(mine),
		"alerts":  alerts,
		"results": mine,
	})
}

// resultsFor keeps only the results for items the user owns
func resultsFor(userID string, results []services.PriceCheckResult) []services.PriceCheckResult {
	mine := make([]services.PriceCheckResult, 0, len(results))
	for _, r := range results {
		if r.UserID == userID {
			mine = append(mine, r)
		}
	}
	return mine
}
