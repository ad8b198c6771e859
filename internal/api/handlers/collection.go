package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codyseavey/vault-tracker/internal/database"
	"github.com/codyseavey/vault-tracker/internal/models"
	"github.com/codyseavey/vault-tracker/internal/services"
)

// ItemImagesRoute is where uploaded item images are served from
const ItemImagesRoute = "/images/items"

type CollectionHandler struct {
	itemService         *services.ItemService
	imageStorageService *services.ImageStorageService
	snapshotService     *services.SnapshotService
}

func NewCollectionHandler(items *services.ItemService, imageStorage *services.ImageStorageService, snapshot *services.SnapshotService) *CollectionHandler {
	return &CollectionHandler{
		itemService:         items,
		imageStorageService: imageStorage,
		snapshotService:     snapshot,
	}
}

// itemResponse adds the staleness flag the UI uses to offer a refresh
type itemResponse struct {
	models.Item
	NeedsRefresh bool `json:"needs_refresh"`
}

func (h *CollectionHandler) ListCollections(c *gin.Context) {
	db := database.GetDB()
	userID := currentUser(c)

	var collections []models.Collection
	if err := db.Where("user_id = ?", userID).Order("created_at DESC").Find(&collections).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var totals []struct {
		CollectionID string
		ItemCount    int
		TotalValue   float64
	}
	err := db.Model(&models.Item{}).
		Select("collection_id, COUNT(*) as item_count, COALESCE(SUM(current_value), 0) as total_value").
		Where("user_id = ?", userID).
		Group("collection_id").
		Scan(&totals).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	byCollection := make(map[string]int, len(totals))
	for i, t := range totals {
		byCollection[t.CollectionID] = i
	}

	result := make([]models.CollectionSummary, 0, len(collections))
	for _, col := range collections {
		summary := models.CollectionSummary{Collection: col}
		if i, ok := byCollection[col.ID]; ok {
			summary.ItemCount = totals[i].ItemCount
			summary.TotalValue = totals[i].TotalValue
		}
		result = append(result, summary)
	}

	c.JSON(http.StatusOK, result)
}

func (h *CollectionHandler) CreateCollection(c *gin.Context) {
	var req models.CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if !req.Type.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be one of lego, coins, books, antiques, other"})
		return
	}

	collection := models.Collection{
		ID:          uuid.New().String(),
		UserID:      currentUser(c),
		Name:        name,
		Type:        req.Type,
		Description: req.Description,
	}
	if err := database.GetDB().Create(&collection).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, collection)
}

func (h *CollectionHandler) UpdateCollection(c *gin.Context) {
	var req models.UpdateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	db := database.GetDB()
	var collection models.Collection
	if err := db.Where("id = ? AND user_id = ?", c.Param("id"), currentUser(c)).First(&collection).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "collection not found"})
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name must not be empty"})
			return
		}
		collection.Name = name
	}
	if req.Description != nil {
		collection.Description = req.Description
	}

	if err := db.Save(&collection).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, collection)
}

// DeleteCollection removes a collection and all of its items
func (h *CollectionHandler) DeleteCollection(c *gin.Context) {
	id := c.Param("id")
	userID := currentUser(c)

	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		var collection models.Collection
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&collection).Error; err != nil {
			return err
		}
		if err := tx.Where("collection_id = ?", collection.ID).Delete(&models.Item{}).Error; err != nil {
			return err
		}
		return tx.Delete(&collection).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "collection not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "collection deleted"})
}

func (h *CollectionHandler) ListItems(c *gin.Context) {
	db := database.GetDB()
	userID := currentUser(c)

	var collection models.Collection
	if err := db.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&collection).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "collection not found"})
		return
	}

	var items []models.Item
	if err := db.Where("collection_id = ?", collection.ID).Order("created_at DESC").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	result := make([]itemResponse, 0, len(items))
	for i := range items {
		result = append(result, itemResponse{Item: items[i], NeedsRefresh: h.itemService.NeedsRefresh(&items[i])})
	}

	c.JSON(http.StatusOK, result)
}

func (h *CollectionHandler) AddItem(c *gin.Context) {
	var req models.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.itemService.AddItem(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

func (h *CollectionHandler) UpdateItem(c *gin.Context) {
	var req models.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.itemService.UpdateItem(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *CollectionHandler) DeleteItem(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c)

	item, err := h.itemService.GetItem(ctx, userID, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if err := h.itemService.DeleteItem(ctx, userID, item.ID); err != nil {
		respondServiceError(c, err)
		return
	}
	h.removeStoredImage(item.ImageURL)

	c.JSON(http.StatusOK, gin.H{"message": "item deleted"})
}

// RefreshItem re-resolves a LEGO item from the catalogs
func (h *CollectionHandler) RefreshItem(c *gin.Context) {
	item, err := h.itemService.RefreshItem(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, itemResponse{Item: *item, NeedsRefresh: h.itemService.NeedsRefresh(item)})
}

// UploadItemImage stores a photo for an item from the "image" multipart field
func (h *CollectionHandler) UploadItemImage(c *gin.Context) {
	if h.imageStorageService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not available"})
		return
	}

	ctx := c.Request.Context()
	userID := currentUser(c)

	item, err := h.itemService.GetItem(ctx, userID, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	if fileHeader.Size > services.MaxItemImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds 10MB"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read image"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, services.MaxItemImageBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read image"})
		return
	}

	filename, err := h.imageStorageService.SaveImage(data)
	if err != nil {
		if errors.Is(err, services.ErrUnsupportedImage) {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	previous := item.ImageURL
	updated, err := h.itemService.SetImage(ctx, userID, item.ID, ItemImagesRoute+"/"+filename)
	if err != nil {
		if delErr := h.imageStorageService.DeleteImage(filename); delErr != nil {
			log.Printf("Warning: failed to clean up image %s: %v", filename, delErr)
		}
		respondServiceError(c, err)
		return
	}
	h.removeStoredImage(previous)

	c.JSON(http.StatusOK, updated)
}

// removeStoredImage deletes a previously uploaded image; external URLs are left alone
func (h *CollectionHandler) removeStoredImage(imageURL *string) {
	if h.imageStorageService == nil || imageURL == nil || !strings.HasPrefix(*imageURL, ItemImagesRoute+"/") {
		return
	}
	if err := h.imageStorageService.DeleteImage(path.Base(*imageURL)); err != nil {
		log.Printf("Warning: failed to delete image %s: %v", *imageURL, err)
	}
}

// GetStats returns the caller's current collection totals
func (h *CollectionHandler) GetStats(c *gin.Context) {
	stats, err := services.CalculateStats(c.Request.Context(), database.GetDB(), currentUser(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetValueHistory returns collection value snapshots for charting
func (h *CollectionHandler) GetValueHistory(c *gin.Context) {
	if h.snapshotService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "snapshot service not available"})
		return
	}

	period := c.DefaultQuery("period", "month")

	snapshots, err := h.snapshotService.GetHistory(c.Request.Context(), currentUser(c), period)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.ValueHistoryResponse{
		Snapshots: snapshots,
		Period:    period,
	})
}

func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrCollectionNotFound), errors.Is(err, services.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNoExternalID), errors.Is(err, services.ErrBricksetKeyMissing):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrSetNotFound):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
