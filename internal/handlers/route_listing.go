package handlers

import (
	"net/http"
	"sort"
	"strings"

	"translatorhub/internal/observability"
	"translatorhub/internal/version"

	"github.com/gin-gonic/gin"
)

// RouteInfo represents information about a single route
type RouteInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// RouteIndex is the body of GET /
type RouteIndex struct {
	Service string      `json:"service"`
	Version string      `json:"version"`
	Routes  []RouteInfo `json:"routes"`
}

// RouteListingHandler answers GET / with the routes the engine serves
type RouteListingHandler struct {
	serviceName string
	routes      []RouteInfo
}

// NewRouteListingHandler creates a new route listing handler
func NewRouteListingHandler(serviceName string) *RouteListingHandler {
	return &RouteListingHandler{
		serviceName: serviceName,
		routes:      []RouteInfo{},
	}
}

// CollectRoutes snapshots the engine's routes. Call it after every route is registered.
func (h *RouteListingHandler) CollectRoutes(engine *gin.Engine) {
	h.routes = []RouteInfo{}
	for _, route := range engine.Routes() {
		if strings.HasPrefix(route.Path, "/debug/") {
			continue
		}
		h.routes = append(h.routes, RouteInfo{Method: route.Method, Path: route.Path})
	}

	sort.Slice(h.routes, func(i, j int) bool {
		if h.routes[i].Path == h.routes[j].Path {
			return h.routes[i].Method < h.routes[j].Method
		}
		return h.routes[i].Path < h.routes[j].Path
	})
}

// List handles GET /
func (h *RouteListingHandler) List(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "list_routes")
	defer observability.FinishSpan(span, nil)

	c.Header("Cache-Control", "no-cache")
	c.JSON(http.StatusOK, RouteIndex{
		Service: h.serviceName,
		Version: version.Version,
		Routes:  h.routes,
	})
}
