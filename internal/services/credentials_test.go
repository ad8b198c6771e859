package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/codyseavey/vault-tracker/internal/database"
	"github.com/codyseavey/vault-tracker/internal/models"
)

var globalTestCredentials = Credentials{
	BricksetAPIKey:    "global-brickset",
	BrickLink:         BrickLinkKeys{ConsumerKey: "gck", ConsumerSecret: "gcs", TokenValue: "gtv", TokenSecret: "gts"},
	RebrickableAPIKey: "global-rebrickable",
	Currency:          "USD",
}

func TestMergeCredentialsFieldByField(t *testing.T) {
	user := Credentials{
		BricksetAPIKey: "user-brickset",
		Currency:       "gbp",
	}

	merged := mergeCredentials(user, globalTestCredentials)
	assert.Equal(t, "user-brickset", merged.BricksetAPIKey)
	assert.Equal(t, "global-rebrickable", merged.RebrickableAPIKey)
	assert.Equal(t, globalTestCredentials.BrickLink, merged.BrickLink)
	assert.Equal(t, "GBP", merged.Currency)
}

func TestMergeCredentialsBrickLinkAsUnit(t *testing.T) {
	completeUser := BrickLinkKeys{ConsumerKey: "uck", ConsumerSecret: "ucs", TokenValue: "utv", TokenSecret: "uts"}
	partialUser := BrickLinkKeys{ConsumerKey: "uck", ConsumerSecret: "ucs", TokenValue: "utv"}
	partialGlobal := BrickLinkKeys{ConsumerKey: "gck"}

	tests := []struct {
		name     string
		user     BrickLinkKeys
		global   BrickLinkKeys
		expected BrickLinkKeys
	}{
		{"complete user wins", completeUser, globalTestCredentials.BrickLink, completeUser},
		{"partial user falls back to global", partialUser, globalTestCredentials.BrickLink, globalTestCredentials.BrickLink},
		{"both partial is absent", partialUser, partialGlobal, BrickLinkKeys{}},
		{"none", BrickLinkKeys{}, BrickLinkKeys{}, BrickLinkKeys{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := mergeCredentials(Credentials{BrickLink: tt.user}, Credentials{BrickLink: tt.global})
			assert.Equal(t, tt.expected, merged.BrickLink)
		})
	}
}

func TestMergeCredentialsRejectsPlaceholderRebrickableKey(t *testing.T) {
	merged := mergeCredentials(Credentials{RebrickableAPIKey: rebrickablePlaceholder}, Credentials{RebrickableAPIKey: "real"})
	assert.Equal(t, "real", merged.RebrickableAPIKey)

	merged = mergeCredentials(Credentials{}, Credentials{RebrickableAPIKey: rebrickablePlaceholder})
	assert.Empty(t, merged.RebrickableAPIKey)
}

func TestMergeCredentialsDefaultCurrency(t *testing.T) {
	assert.Equal(t, "USD", mergeCredentials(Credentials{}, Credentials{}).Currency)
	assert.Equal(t, "USD", mergeCredentials(Credentials{Currency: "euro"}, Credentials{}).Currency)
}

func TestProfileCredentialResolver(t *testing.T) {
	db, err := database.Open(":memory:", logger.Silent)
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.Profile{
		ID:                   "user-1",
		BricksetAPIKey:       "user-brickset",
		BricklinkConsumerKey: "only-one-field",
		Currency:             "EUR",
	}).Error)

	ctx := context.Background()

	creds := NewProfileCredentialResolver(db, "user-1", globalTestCredentials).Resolve(ctx)
	assert.Equal(t, "user-brickset", creds.BricksetAPIKey)
	assert.Equal(t, "global-rebrickable", creds.RebrickableAPIKey)
	assert.Equal(t, globalTestCredentials.BrickLink, creds.BrickLink)
	assert.Equal(t, "EUR", creds.Currency)

	// Unknown users get the global defaults
	creds = NewProfileCredentialResolver(db, "nobody", globalTestCredentials).Resolve(ctx)
	assert.Equal(t, globalTestCredentials, creds)

	// No database at all
	creds = NewProfileCredentialResolver(nil, "user-1", Credentials{}).Resolve(ctx)
	assert.Equal(t, Credentials{Currency: "USD"}, creds)
}

func TestStaticCredentialResolver(t *testing.T) {
	creds := StaticCredentialResolver{BricksetAPIKey: "k", Currency: "cad"}.Resolve(context.Background())
	assert.Equal(t, "k", creds.BricksetAPIKey)
	assert.Equal(t, "CAD", creds.Currency)
}

func TestCredentialResolverFunc(t *testing.T) {
	var resolver CredentialResolver = CredentialResolverFunc(func(context.Context) Credentials {
		return Credentials{BricksetAPIKey: "fn"}
	})
	assert.Equal(t, "fn", resolver.Resolve(context.Background()).BricksetAPIKey)
}
