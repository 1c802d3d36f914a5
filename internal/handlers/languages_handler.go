package handlers

import (
	"net/http"

	"translatorhub/internal/config"
	"translatorhub/internal/languages"
	"translatorhub/internal/models"
	"translatorhub/internal/observability"

	"github.com/gin-gonic/gin"
)

// LanguageResponse is one picker row
type LanguageResponse struct {
	Code    models.LanguageCode `json:"code"`
	Name    string              `json:"name"`
	Flag    string              `json:"flag"`
	Display string              `json:"display"`
}

// LanguagesResponse lists the table in picker order with the initial selection
type LanguagesResponse struct {
	Languages []LanguageResponse `json:"languages"`
	Source    models.LanguageCode `json:"source"`
	Target    models.LanguageCode `json:"target"`
}

// LanguagesHandler serves the supported-language table
type LanguagesHandler struct {
	table *languages.Table
	cfg   *config.Config
}

// NewLanguagesHandler creates a new LanguagesHandler instance
func NewLanguagesHandler(table *languages.Table, cfg *config.Config) *LanguagesHandler {
	return &LanguagesHandler{table: table, cfg: cfg}
}

// List handles GET /v1/languages
func (h *LanguagesHandler) List(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "list_languages")
	defer observability.FinishSpan(span, nil)

	rows := h.table.All()
	resp := LanguagesResponse{
		Languages: make([]LanguageResponse, 0, len(rows)),
		Source:    models.LanguageCode(h.cfg.Defaults.SourceLanguage),
		Target:    models.LanguageCode(h.cfg.Defaults.TargetLanguage),
	}
	for _, l := range rows {
		resp.Languages = append(resp.Languages, LanguageResponse{
			Code:    l.Code,
			Name:    l.Name,
			Flag:    l.Flag,
			Display: l.Display(),
		})
	}
	c.JSON(http.StatusOK, resp)
}
