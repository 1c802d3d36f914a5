package handlers

import (
	"net/http"
	"strings"

	"translatorhub/internal/config"
	"translatorhub/internal/controller"
	"translatorhub/internal/middleware"
	"translatorhub/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ControllerFactory builds a fresh controller for each hub session
type ControllerFactory func() (*controller.Controller, error)

// HubHandler upgrades /v1/hub requests and runs one session per connection
type HubHandler struct {
	cfg           *config.Config
	newController ControllerFactory
	logger        *observability.Logger
	instruments   *observability.Instruments
	upgrader      websocket.Upgrader
}

// NewHubHandler creates a new HubHandler instance
func NewHubHandler(cfg *config.Config, newController ControllerFactory, logger *observability.Logger, instruments *observability.Instruments) *HubHandler {
	return &HubHandler{
		cfg:           cfg,
		newController: newController,
		logger:        logger,
		instruments:   instruments,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(cfg.Server.CORSOrigins),
		},
	}
}

// ServeWS blocks for the lifetime of the connection
func (h *HubHandler) ServeWS(c *gin.Context) {
	sessionID := uuid.NewString()
	c.Set(observability.SessionIDKey, sessionID)

	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "serve_ws",
		observability.AttributeSessionID(sessionID),
	)
	defer observability.FinishSpan(span, nil)

	ctrl, err := h.newController()
	if err != nil {
		h.logger.Error(ctx, "Failed to create controller for hub session", err, map[string]interface{}{"session_id": sessionID})
		_ = c.Error(err)
		middleware.HandleAppError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written the HTTP error
		ctrl.Close()
		h.logger.Warn(ctx, "Websocket upgrade failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return
	}

	h.instruments.SessionOpened(ctx)
	defer h.instruments.SessionClosed(ctx)

	h.logger.Info(ctx, "Hub session opened", map[string]interface{}{
		"session_id":  sessionID,
		"remote_addr": c.ClientIP(),
	})
	newHubSession(sessionID, conn, ctrl, h.cfg, h.logger).run(ctx)
	h.logger.Info(ctx, "Hub session closed", map[string]interface{}{"session_id": sessionID})
}

// checkOrigin allows the configured CORS origins. With none configured the
// upgrader falls back to its same-origin check.
func checkOrigin(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}
