package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/quorum/internal/config"
	"github.com/KilimcininKorOglu/quorum/internal/kv"
	"github.com/KilimcininKorOglu/quorum/internal/logging"
)

func TestRouter(t *testing.T) {
	cfg, err := config.LoadConfig(writeConfig(t, 30000))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	h, err := bringUp(ctx, cfg, logging.NewNop())
	require.NoError(t, err)
	defer tearDown(h, cfg)

	c, err := h.CreateClient(ctx)
	require.NoError(t, err)

	router := newRouter(h, c, true)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rec
	}
	get := func(path string) *httptest.ResponseRecorder {
		return do(http.MethodGet, path, "")
	}

	t.Run("health", func(t *testing.T) {
		rec := get("/health")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("cluster", func(t *testing.T) {
		rec := get("/cluster")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var view clusterView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
		assert.Equal(t, h.Leader().ID(), view.Leader)
		require.Len(t, view.Nodes, 3)
		assert.Equal(t, "node-0", view.Nodes[0].ID)
		assert.Equal(t, "127.0.0.1:30000", view.Nodes[0].Server)
		assert.Equal(t, "127.0.0.1:30100", view.Nodes[0].Client)
	})

	t.Run("node", func(t *testing.T) {
		rec := get("/cluster/nodes/" + h.Leader().ID())
		require.Equal(t, http.StatusOK, rec.Code)

		var view nodeView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
		assert.Equal(t, "leader", view.Status)

		assert.Equal(t, http.StatusNotFound, get("/cluster/nodes/node-42").Code)
	})

	t.Run("metrics", func(t *testing.T) {
		rec := get("/metrics")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "quorum_members 3")
		assert.Contains(t, rec.Body.String(), `quorum_startups_total{result="success"} 1`)
	})

	t.Run("metrics disabled", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newRouter(h, nil, false).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("keys", func(t *testing.T) {
		rec := get("/keys")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())

		assert.Equal(t, http.StatusNoContent, do(http.MethodPut, "/keys/beta", `{"n":2}`).Code)
		assert.Equal(t, http.StatusNoContent, do(http.MethodPut, "/keys/alpha", "one").Code)

		rec = get("/keys")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `["alpha","beta"]`, rec.Body.String())

		rec = get("/keys/beta")
		require.Equal(t, http.StatusOK, rec.Code)
		var view keyView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
		assert.Equal(t, keyView{Key: "beta", Value: `{"n":2}`}, view)

		assert.Equal(t, http.StatusNotFound, get("/keys/missing").Code)

		assert.Equal(t, http.StatusNoContent, do(http.MethodDelete, "/keys/alpha", "").Code)
		assert.Equal(t, http.StatusNotFound, do(http.MethodDelete, "/keys/alpha", "").Code)
		assert.Equal(t, http.StatusNotFound, get("/keys/alpha").Code)

		value, found, err := c.Get(ctx, "beta")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, `{"n":2}`, value)
	})

	t.Run("value too large", func(t *testing.T) {
		rec := do(http.MethodPut, "/keys/big", strings.Repeat("x", maxValueSize+1))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("keys without store", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newRouter(h, nil, false).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/keys", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

// unavailableStore fails every call the way a client does when no leader
// answers before the deadline.
type unavailableStore struct{}

func (unavailableStore) Keys(ctx context.Context) ([]string, error) {
	return nil, context.DeadlineExceeded
}

func (unavailableStore) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, context.DeadlineExceeded
}

func (unavailableStore) Put(ctx context.Context, key, value string) (kv.Result, error) {
	return kv.Result{}, context.DeadlineExceeded
}

func (unavailableStore) Delete(ctx context.Context, key string) (kv.Result, error) {
	return kv.Result{}, context.DeadlineExceeded
}

func TestKeyRoutesWithoutLeader(t *testing.T) {
	router := newRouter(nil, unavailableStore{}, false)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/keys"},
		{http.MethodGet, "/keys/k"},
		{http.MethodPut, "/keys/k"},
		{http.MethodDelete, "/keys/k"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader("v")))
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			assert.Contains(t, rec.Body.String(), "deadline exceeded")
		})
	}
}
