package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRebrickableService(t *testing.T, handler http.HandlerFunc) (*RebrickableService, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	svc := NewRebrickableService(time.Second)
	svc.baseURL = server.URL
	return svc, &calls
}

func TestRebrickableGetSet(t *testing.T) {
	svc, calls := newTestRebrickableService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lego/sets/75192-1/", r.URL.Path)
		assert.Equal(t, "key rb-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{
			"set_num": "75192-1", "name": "Millennium Falcon", "year": 2017, "theme_id": 171,
			"num_parts": 7541, "set_img_url": "https://cdn.rebrickable.com/media/sets/75192-1.jpg",
			"set_url": "https://rebrickable.com/sets/75192-1/millennium-falcon/",
			"last_modified_dt": "2023-01-01T00:00:00Z"
		}`))
	})

	set := svc.GetSet(context.Background(), "rb-key", "75192-1")
	require.NotNil(t, set)
	assert.Equal(t, "75192-1", set.SetNum)
	assert.Equal(t, "Millennium Falcon", set.Name)
	assert.Equal(t, looseInt(2017), set.Year)
	assert.Equal(t, looseInt(171), set.ThemeID)
	assert.Equal(t, looseInt(7541), set.NumParts)
	assert.Equal(t, "https://cdn.rebrickable.com/media/sets/75192-1.jpg", set.SetImgURL)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRebrickableFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		class  ErrorClass
	}{
		{"not found", http.StatusNotFound, `{"detail":"Not found."}`, ErrorClassNotFound},
		{"bad key", http.StatusUnauthorized, `{"detail":"Invalid token."}`, ErrorClassClientError},
		{"server", http.StatusInternalServerError, ``, ErrorClassServerError},
		{"empty payload", http.StatusOK, `{}`, ErrorClassParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestRebrickableService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := svc.fetchSet(context.Background(), "rb-key", "0000-1")
			require.Error(t, err)
			assert.Equal(t, tt.class, classifyError(err))
		})
	}
}

func TestRebrickablePlaceholderKey(t *testing.T) {
	svc, calls := newTestRebrickableService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"set_num":"1-1","name":"x"}`))
	})

	assert.Nil(t, svc.GetSet(context.Background(), rebrickablePlaceholder, "1-1"))
	assert.Nil(t, svc.GetSet(context.Background(), "", "1-1"))
	assert.Equal(t, int32(0), calls.Load())
}

func TestRebrickableTimeout(t *testing.T) {
	svc, _ := newTestRebrickableService(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	svc.http.timeout = 50 * time.Millisecond
	svc.http.client.Timeout = 50 * time.Millisecond

	_, err := svc.fetchSet(context.Background(), "rb-key", "75192-1")
	require.Error(t, err)
	assert.Equal(t, ErrorClassTimeout, classifyError(err))
}
