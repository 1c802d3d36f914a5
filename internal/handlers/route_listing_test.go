package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteListingHandler_CollectRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/b", func(*gin.Context) {})
	router.POST("/a", func(*gin.Context) {})
	router.GET("/a", func(*gin.Context) {})
	router.GET("/debug/pprof", func(*gin.Context) {})

	handler := NewRouteListingHandler("hub")
	handler.CollectRoutes(router)

	assert.Equal(t, []RouteInfo{
		{Method: http.MethodGet, Path: "/a"},
		{Method: http.MethodPost, Path: "/a"},
		{Method: http.MethodGet, Path: "/b"},
	}, handler.routes)
}

func TestRouter_Index(t *testing.T) {
	router := newTestRouter(t, new(mockBackend))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var index RouteIndex
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &index))
	assert.Equal(t, healthService, index.Service)

	paths := make(map[string]bool)
	for _, r := range index.Routes {
		paths[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{"GET /", "GET /health", "GET /version", "GET /v1/languages", "GET /v1/hub"} {
		assert.True(t, paths[want], want)
	}
}
