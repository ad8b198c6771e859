package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/codyseavey/vault-tracker/internal/database"
	"github.com/codyseavey/vault-tracker/internal/models"
)

type SettingsHandler struct {
	onUpdate func(userID string)
}

// NewSettingsHandler creates the settings handler. onUpdate, if set, runs after
// a user's keys change so cached lookups made with the old keys can be dropped.
func NewSettingsHandler(onUpdate func(userID string)) *SettingsHandler {
	return &SettingsHandler{onUpdate: onUpdate}
}

// GetSettings returns the caller's profile with secrets masked
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	var profile models.Profile
	err := database.GetDB().First(&profile, "id = ?", currentUser(c)).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, profile.ToResponse())
}

// UpdateSettings upserts the caller's catalog keys and currency.
// Omitted fields are left unchanged; an empty string clears a key.
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	db := database.GetDB()
	userID := currentUser(c)

	var profile models.Profile
	err := db.First(&profile, "id = ?", userID).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		profile = models.Profile{ID: userID, Currency: models.DefaultCurrency}
	}

	setKey(&profile.BricksetAPIKey, req.BricksetAPIKey)
	setKey(&profile.BricklinkConsumerKey, req.BricklinkConsumerKey)
	setKey(&profile.BricklinkConsumerSecret, req.BricklinkConsumerSecret)
	setKey(&profile.BricklinkTokenValue, req.BricklinkTokenValue)
	setKey(&profile.BricklinkTokenSecret, req.BricklinkTokenSecret)
	setKey(&profile.RebrickableAPIKey, req.RebrickableAPIKey)
	if req.Currency != nil {
		profile.Currency = models.NormalizeCurrency(*req.Currency)
	}

	if err := db.Save(&profile).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if h.onUpdate != nil {
		h.onUpdate(userID)
	}

	c.JSON(http.StatusOK, profile.ToResponse())
}

// setKey ignores masked values echoed back from GetSettings
func setKey(dst *string, value *string) {
	if value == nil {
		return
	}
	v := strings.TrimSpace(*value)
	if strings.HasPrefix(v, "****") {
		return
	}
	*dst = v
}
