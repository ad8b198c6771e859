package services

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/vault-tracker/internal/models"
)

var testBrickLinkKeys = BrickLinkKeys{
	ConsumerKey:    "ck",
	ConsumerSecret: "cs",
	TokenValue:     "tv",
	TokenSecret:    "ts",
}

func newTestBrickLinkService(t *testing.T, handler http.HandlerFunc) (*BrickLinkService, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	svc := NewBrickLinkService(time.Second, 0)
	svc.baseURL = server.URL
	return svc, &calls
}

func TestBrickLinkGetPrice(t *testing.T) {
	svc, calls := newTestBrickLinkService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/items/SET/75192-1/price", r.URL.Path)
		assert.Equal(t, "sold", r.URL.Query().Get("guide_type"))
		assert.Equal(t, "N", r.URL.Query().Get("new_or_used"))
		assert.Equal(t, "EUR", r.URL.Query().Get("currency_code"))
		assert.Equal(t, "N", r.URL.Query().Get("vat"))
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), `OAuth realm="",oauth_consumer_key="ck"`))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"meta":{"code":200,"message":"OK"},"data":{"no":"75192-1","qty_avg_price":"812.5300","avg_price":"790.0000"}}`))
	})

	price := svc.GetPrice(context.Background(), testBrickLinkKeys, "75192-1", models.PriceConditionNew, "eur")
	require.NotNil(t, price)
	assert.InDelta(t, 812.53, *price, 0.0001)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBrickLinkGetPriceFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr ErrorClass
	}{
		{"meta error", http.StatusOK, `{"meta":{"code":400,"message":"INVALID_URI"},"data":{}}`, ErrorClassAPIStatus},
		{"server error", http.StatusInternalServerError, `oops`, ErrorClassServerError},
		{"unauthorized", http.StatusUnauthorized, `{}`, ErrorClassClientError},
		{"not found", http.StatusNotFound, `{}`, ErrorClassNotFound},
		{"rate limited", http.StatusTooManyRequests, `{}`, ErrorClassRateLimited},
		{"malformed", http.StatusOK, `{"meta":`, ErrorClassParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestBrickLinkService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := svc.fetchPrice(context.Background(), testBrickLinkKeys, "75192-1", models.PriceConditionNew, "USD")
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, classifyError(err))

			assert.Nil(t, svc.GetPrice(context.Background(), testBrickLinkKeys, "75192-1", models.PriceConditionNew, "USD"))
		})
	}
}

func TestBrickLinkPartialKeysMakeNoRequest(t *testing.T) {
	svc, calls := newTestBrickLinkService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meta":{"code":200},"data":{"qty_avg_price":"1.00"}}`))
	})

	partial := testBrickLinkKeys
	partial.TokenSecret = ""

	assert.Nil(t, svc.GetPrice(context.Background(), partial, "75192-1", models.PriceConditionNew, "USD"))
	assert.Nil(t, svc.GetCatalogItem(context.Background(), partial, "75192-1"))
	assert.False(t, svc.GetPrices(context.Background(), partial, "75192-1", "USD").Found())
	assert.Equal(t, int32(0), calls.Load())
}

func TestBrickLinkGetPricesConcurrent(t *testing.T) {
	svc, calls := newTestBrickLinkService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("new_or_used") {
		case "N":
			w.Write([]byte(`{"meta":{"code":200},"data":{"qty_avg_price":"100.00"}}`))
		case "U":
			w.Write([]byte(`{"meta":{"code":200},"data":{"qty_avg_price":"60.50"}}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	prices := svc.GetPrices(context.Background(), testBrickLinkKeys, "10179-1", "USD")
	require.NotNil(t, prices.New)
	require.NotNil(t, prices.Used)
	assert.Equal(t, 100.0, *prices.New)
	assert.Equal(t, 60.5, *prices.Used)
	assert.True(t, prices.Found())
	assert.Equal(t, int32(2), calls.Load())
}

func TestBrickLinkGetPricesOneConditionFails(t *testing.T) {
	svc, _ := newTestBrickLinkService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("new_or_used") == "N" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"meta":{"code":200},"data":{"qty_avg_price":"42.00"}}`))
	})

	var logs bytes.Buffer
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	prices := svc.GetPrices(context.Background(), testBrickLinkKeys, "10179-1", "USD")
	assert.Nil(t, prices.New)
	require.NotNil(t, prices.Used)
	assert.Equal(t, 42.0, *prices.Used)
	assert.True(t, prices.Found())
	assert.Contains(t, logs.String(), "bricklink priceGuide new failed")
}

func TestBrickLinkGetCatalogItem(t *testing.T) {
	svc, _ := newTestBrickLinkService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/items/SET/6080-1", r.URL.Path)
		assert.Empty(t, r.URL.RawQuery)
		w.Write([]byte(`{"meta":{"code":200},"data":{"no":"6080-1","name":"King&#39;s Castle","year_released":1984}}`))
	})

	item := svc.GetCatalogItem(context.Background(), testBrickLinkKeys, "6080-1")
	require.NotNil(t, item)
	assert.Equal(t, "King&#39;s Castle", item.Name)
	assert.Equal(t, 1984, item.Year)
}

func TestBrickLinkDailyQuota(t *testing.T) {
	svc, calls := newTestBrickLinkService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meta":{"code":200},"data":{"qty_avg_price":"5.00"}}`))
	})
	svc.dailyLimit = 2

	assert.Equal(t, 2, svc.GetRequestsRemaining())
	assert.NotNil(t, svc.GetPrice(context.Background(), testBrickLinkKeys, "1-1", models.PriceConditionNew, "USD"))
	assert.NotNil(t, svc.GetPrice(context.Background(), testBrickLinkKeys, "1-1", models.PriceConditionUsed, "USD"))

	_, err := svc.fetchPrice(context.Background(), testBrickLinkKeys, "1-1", models.PriceConditionNew, "USD")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 0, svc.GetRequestsRemaining())
	assert.Equal(t, int32(2), calls.Load())
}

func TestNewBrickLinkServiceDefaults(t *testing.T) {
	svc := NewBrickLinkService(0, 0)
	assert.Equal(t, brickLinkDailyLimit, svc.dailyLimit)
	assert.Equal(t, brickLinkBaseURL, svc.baseURL)
	assert.Equal(t, defaultUpstreamTimeout, svc.http.timeout)
}
