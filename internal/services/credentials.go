package services

import (
	"context"
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/codyseavey/vault-tracker/internal/models"
)

// Credentials is the set of catalog keys and preferences used for one lookup
type Credentials struct {
	BricksetAPIKey    string
	BrickLink         BrickLinkKeys
	RebrickableAPIKey string
	Currency          string
}

// CredentialResolver supplies the credentials for the caller of a lookup
type CredentialResolver interface {
	Resolve(ctx context.Context) Credentials
}

// CredentialResolverFunc adapts a function to CredentialResolver
type CredentialResolverFunc func(ctx context.Context) Credentials

func (f CredentialResolverFunc) Resolve(ctx context.Context) Credentials {
	return f(ctx)
}

// StaticCredentialResolver always returns the same credentials
type StaticCredentialResolver Credentials

func (s StaticCredentialResolver) Resolve(context.Context) Credentials {
	return mergeCredentials(Credentials(s), Credentials{})
}

// ProfileCredentialResolver reads a user's profile row and falls back to
// process-wide defaults for every field the user has not set.
type ProfileCredentialResolver struct {
	db       *gorm.DB
	userID   string
	defaults Credentials
}

// NewProfileCredentialResolver creates a resolver for one user
func NewProfileCredentialResolver(db *gorm.DB, userID string, defaults Credentials) *ProfileCredentialResolver {
	return &ProfileCredentialResolver{db: db, userID: userID, defaults: defaults}
}

// Resolve never fails: a missing or unreadable profile yields the defaults
func (r *ProfileCredentialResolver) Resolve(ctx context.Context) Credentials {
	if r.db == nil || r.userID == "" {
		return mergeCredentials(Credentials{}, r.defaults)
	}

	var profile models.Profile
	err := r.db.WithContext(ctx).First(&profile, "id = ?", r.userID).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Credentials: failed to load profile for user %s: %v", r.userID, err)
		}
		return mergeCredentials(Credentials{}, r.defaults)
	}

	return mergeCredentials(CredentialsFromProfile(&profile), r.defaults)
}

// CredentialsFromProfile extracts the catalog credentials stored on a profile
func CredentialsFromProfile(p *models.Profile) Credentials {
	return Credentials{
		BricksetAPIKey: p.BricksetAPIKey,
		BrickLink: BrickLinkKeys{
			ConsumerKey:    p.BricklinkConsumerKey,
			ConsumerSecret: p.BricklinkConsumerSecret,
			TokenValue:     p.BricklinkTokenValue,
			TokenSecret:    p.BricklinkTokenSecret,
		},
		RebrickableAPIKey: p.RebrickableAPIKey,
		Currency:          p.Currency,
	}
}

// mergeCredentials applies field-by-field fallback from user to defaults.
// The BrickLink keys are taken as a unit: a complete user tuple, else a complete
// default tuple, else none. Mixing halves of two tuples cannot produce a valid signature.
func mergeCredentials(user, defaults Credentials) Credentials {
	merged := Credentials{
		BricksetAPIKey:    firstSet(user.BricksetAPIKey, defaults.BricksetAPIKey),
		RebrickableAPIKey: firstSet(usableKey(user.RebrickableAPIKey), usableKey(defaults.RebrickableAPIKey)),
		Currency:          models.NormalizeCurrency(firstSet(user.Currency, defaults.Currency)),
	}

	switch {
	case user.BrickLink.Complete():
		merged.BrickLink = user.BrickLink
	case defaults.BrickLink.Complete():
		merged.BrickLink = defaults.BrickLink
	}

	return merged
}

func usableKey(key string) string {
	if !usableRebrickableKey(key) {
		return ""
	}
	return key
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
