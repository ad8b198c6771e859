package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codyseavey/vault-tracker/internal/models"
)

// ItemStalenessThreshold is how old an item's catalog data can be before it is considered stale
const ItemStalenessThreshold = 24 * time.Hour

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrItemNotFound       = errors.New("item not found")
	ErrNoExternalID       = errors.New("item has no set number")
	ErrBricksetKeyMissing = errors.New("brickset API key is missing; configure one in settings or set BRICKSET_API_KEY")
	ErrSetNotFound        = errors.New("could not fetch data from LEGO APIs")
)

// ItemService manages collection items and their catalog enrichment
type ItemService struct {
	db       *gorm.DB
	lego     *LegoService
	defaults Credentials
	now      func() time.Time
}

// NewItemService creates a new item service
func NewItemService(db *gorm.DB, lego *LegoService, defaults Credentials) *ItemService {
	return &ItemService{
		db:       db,
		lego:     lego,
		defaults: defaults,
		now:      time.Now,
	}
}

// Resolver returns the credential resolver for a user
func (s *ItemService) Resolver(userID string) CredentialResolver {
	return NewProfileCredentialResolver(s.db, userID, s.defaults)
}

// AddItem creates an item in one of the user's collections. A set number marks it
// as a LEGO set, a country marks it as a coin.
func (s *ItemService) AddItem(ctx context.Context, userID, collectionID string, req models.AddItemRequest) (*models.Item, error) {
	db := s.db.WithContext(ctx)

	var collection models.Collection
	if err := db.Where("id = ? AND user_id = ?", collectionID, userID).First(&collection).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCollectionNotFound
		}
		return nil, err
	}

	creds := s.Resolver(userID).Resolve(ctx)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Untitled Item"
	}
	description := req.Description
	if description == "" {
		description = req.Name
	}
	imageURL := req.ImageURL
	if imageURL == nil || *imageURL == "" {
		imageURL = req.SetImgURL
	}
	currentValue := req.CurrentValue
	if currentValue == nil {
		currentValue = req.PurchasePrice
	}

	item := &models.Item{
		ID:            uuid.New().String(),
		UserID:        userID,
		CollectionID:  collection.ID,
		Name:          name,
		Description:   description,
		ImageURL:      imageURL,
		PurchasePrice: req.PurchasePrice,
		CurrentValue:  currentValue,
		Currency:      creds.Currency,
		Source:        models.ItemSourceManual,
	}

	switch {
	case req.SetNum != "":
		setNum := req.SetNum
		item.ExternalID = &setNum
		item.Source = models.ItemSourceLego
		item.Metadata = models.ItemMetadata{
			Year:       req.Year,
			ThemeID:    req.ThemeID,
			NumParts:   req.NumParts,
			SetURL:     req.SetURL,
			RRP:        req.RRP,
			Theme:      req.Theme,
			Subtheme:   req.Subtheme,
			ThemeGroup: req.ThemeGroup,
			Category:   req.Category,
		}
	case req.Country != "":
		item.Source = models.ItemSourceCoin
		item.Metadata = models.ItemMetadata{
			Year:         req.Year,
			Country:      req.Country,
			Denomination: req.Denomination,
			Composition:  req.Composition,
			Weight:       req.Weight,
		}
	case req.Year != 0:
		item.Metadata = models.ItemMetadata{Year: req.Year}
	}

	if err := db.Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem loads one of the user's items
func (s *ItemService) GetItem(ctx context.Context, userID, itemID string) (*models.Item, error) {
	var item models.Item
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", itemID, userID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// UpdateItem applies a partial update and marks the item as manually modified
func (s *ItemService) UpdateItem(ctx context.Context, userID, itemID string, req models.UpdateItemRequest) (*models.Item, error) {
	item, err := s.GetItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.CurrentValue != nil {
		item.CurrentValue = req.CurrentValue
	}
	if req.PurchasePrice != nil {
		item.PurchasePrice = req.PurchasePrice
	}
	if req.PriceAlertThreshold != nil {
		threshold := *req.PriceAlertThreshold
		if threshold <= 0 {
			item.PriceAlertThreshold = nil
		} else {
			item.PriceAlertThreshold = &threshold
		}
	}
	if req.Metadata != nil {
		item.Metadata.Merge(*req.Metadata)
	}

	now := s.now()
	item.Metadata.IsManuallyModified = true
	item.Metadata.LastEdited = &now

	if err := s.db.WithContext(ctx).Save(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// SetImage points an item at a stored image URL
func (s *ItemService) SetImage(ctx context.Context, userID, itemID, imageURL string) (*models.Item, error) {
	item, err := s.GetItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	item.ImageURL = &imageURL
	if err := s.db.WithContext(ctx).Model(item).Update("image_url", imageURL).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem removes one of the user's items
func (s *ItemService) DeleteItem(ctx context.Context, userID, itemID string) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", itemID, userID).Delete(&models.Item{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

// RefreshItem re-resolves a LEGO item from the catalogs and resets its rich
// metadata to the fresh values. A Brickset key is required.
func (s *ItemService) RefreshItem(ctx context.Context, userID, itemID string) (*models.Item, error) {
	item, err := s.GetItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if item.ExternalID == nil || *item.ExternalID == "" {
		return nil, ErrNoExternalID
	}

	resolver := s.Resolver(userID)
	creds := resolver.Resolve(ctx)
	if creds.BricksetAPIKey == "" {
		return nil, ErrBricksetKeyMissing
	}

	set := s.lego.GetLegoSet(ctx, *item.ExternalID, StaticCredentialResolver(creds))
	if set == nil {
		return nil, ErrSetNotFound
	}

	now := s.now()
	item.Metadata.Year = set.Year
	item.Metadata.NumParts = set.NumParts
	item.Metadata.SetURL = set.SetURL
	item.Metadata.Theme = set.Theme
	item.Metadata.Subtheme = set.Subtheme
	item.Metadata.ThemeGroup = set.ThemeGroup
	item.Metadata.Category = set.Category
	item.Metadata.RRP = set.RetailPrice
	if set.ThemeID != nil {
		item.Metadata.ThemeID = set.ThemeID
	}
	item.Metadata.LastRefreshed = &now

	if set.PriceEstimate > 0 {
		price := set.PriceEstimate
		item.CurrentValue = &price
	}

	if err := s.db.WithContext(ctx).Save(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// NeedsRefresh reports whether an item's catalog data is missing or older than ItemStalenessThreshold
func (s *ItemService) NeedsRefresh(item *models.Item) bool {
	if item.ExternalID == nil {
		return false
	}
	last := item.Metadata.LastRefreshed
	if item.LastPriceCheck != nil && (last == nil || item.LastPriceCheck.After(*last)) {
		last = item.LastPriceCheck
	}
	if last == nil {
		return true
	}
	return s.now().Sub(*last) >= ItemStalenessThreshold
}
