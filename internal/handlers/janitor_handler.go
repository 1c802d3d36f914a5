package handlers

import (
	"net/http"

	"translatorhub/internal/observability"
	"translatorhub/internal/worker"

	"github.com/gin-gonic/gin"
)

// CacheJanitor is the part of the cache janitor exposed over HTTP
type CacheJanitor interface {
	GetStatus() worker.Status
	GetHistory() []worker.RunRecord
	TriggerManualRun()
}

// JanitorResponse reports the janitor's state and its recent runs, newest last
type JanitorResponse struct {
	Status  worker.Status      `json:"status"`
	History []worker.RunRecord `json:"history"`
}

// JanitorHandler serves the cache janitor endpoints
type JanitorHandler struct {
	janitor CacheJanitor
}

// NewJanitorHandler creates a new JanitorHandler instance
func NewJanitorHandler(janitor CacheJanitor) *JanitorHandler {
	return &JanitorHandler{janitor: janitor}
}

// GetDetails handles GET /v1/cache/janitor
func (h *JanitorHandler) GetDetails(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_janitor_details")
	defer observability.FinishSpan(span, nil)

	history := h.janitor.GetHistory()
	if history == nil {
		history = []worker.RunRecord{}
	}
	c.JSON(http.StatusOK, JanitorResponse{
		Status:  h.janitor.GetStatus(),
		History: history,
	})
}

// TriggerRun handles POST /v1/cache/janitor/run
func (h *JanitorHandler) TriggerRun(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "trigger_janitor_run")
	defer observability.FinishSpan(span, nil)

	h.janitor.TriggerManualRun()
	c.JSON(http.StatusAccepted, gin.H{"message": "Cache cleanup triggered"})
}
