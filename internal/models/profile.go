package models

import "time"

// Profile holds per-user integration keys and preferences.
// ID is the user ID supplied by the auth proxy.
type Profile struct {
	ID                      string    `json:"id" gorm:"primaryKey"`
	BricksetAPIKey          string    `json:"brickset_api_key"`
	BricklinkConsumerKey    string    `json:"bricklink_consumer_key"`
	BricklinkConsumerSecret string    `json:"bricklink_consumer_secret"`
	BricklinkTokenValue     string    `json:"bricklink_token_value"`
	BricklinkTokenSecret    string    `json:"bricklink_token_secret"`
	RebrickableAPIKey       string    `json:"rebrickable_api_key"`
	Currency                string    `json:"currency" gorm:"default:'USD'"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

type UpdateProfileRequest struct {
	BricksetAPIKey          *string `json:"brickset_api_key"`
	BricklinkConsumerKey    *string `json:"bricklink_consumer_key"`
	BricklinkConsumerSecret *string `json:"bricklink_consumer_secret"`
	BricklinkTokenValue     *string `json:"bricklink_token_value"`
	BricklinkTokenSecret    *string `json:"bricklink_token_secret"`
	RebrickableAPIKey       *string `json:"rebrickable_api_key"`
	Currency                *string `json:"currency"`
}

// ProfileResponse is the settings view of a Profile with secrets masked
type ProfileResponse struct {
	BricksetAPIKey          string    `json:"brickset_api_key"`
	BricklinkConsumerKey    string    `json:"bricklink_consumer_key"`
	BricklinkConsumerSecret string    `json:"bricklink_consumer_secret"`
	BricklinkTokenValue     string    `json:"bricklink_token_value"`
	BricklinkTokenSecret    string    `json:"bricklink_token_secret"`
	RebrickableAPIKey       string    `json:"rebrickable_api_key"`
	Currency                string    `json:"currency"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// MaskSecret keeps the last 4 characters of a secret
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// ToResponse returns the masked settings view
func (p *Profile) ToResponse() ProfileResponse {
	currency := p.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	return ProfileResponse{
		BricksetAPIKey:          MaskSecret(p.BricksetAPIKey),
		BricklinkConsumerKey:    MaskSecret(p.BricklinkConsumerKey),
		BricklinkConsumerSecret: MaskSecret(p.BricklinkConsumerSecret),
		BricklinkTokenValue:     MaskSecret(p.BricklinkTokenValue),
		BricklinkTokenSecret:    MaskSecret(p.BricklinkTokenSecret),
		RebrickableAPIKey:       MaskSecret(p.RebrickableAPIKey),
		Currency:                currency,
		UpdatedAt:               p.UpdatedAt,
	}
}
