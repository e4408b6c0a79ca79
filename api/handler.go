// Package api exposes the HTTP surface: health probe, explanation relay,
// and the conversation endpoints driving the analysis pipeline.
package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sahyadri-labs/krishirakshak/domain"
	"github.com/sahyadri-labs/krishirakshak/genai"
	"github.com/sahyadri-labs/krishirakshak/pipeline"
	"github.com/sahyadri-labs/krishirakshak/store"
)

// Handler handles HTTP requests.
type Handler struct {
	orch   *pipeline.Orchestrator
	convo  *store.ConversationStore
	gen    *genai.Client
	logger zerolog.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(orch *pipeline.Orchestrator, convo *store.ConversationStore,
	gen *genai.Client, logger zerolog.Logger) *Handler {
	return &Handler{
		orch:   orch,
		convo:  convo,
		gen:    gen,
		logger: logger,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/v1", h.Health)
	e.POST("/api/v1/agent-response", h.AgentResponse)
	e.POST("/api/v1/analyze", h.Analyze)
	e.GET("/api/v1/conversation", h.GetConversation)
	e.POST("/api/v1/conversation/cards/:id/explain", h.ExplainCard)
	e.GET("/api/v1/conversation/images/:ref", h.GetPreview)
}

// Health reports service health.
// GET /api/v1
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "api is healthy",
		"status":  200,
	})
}

// agentResponseRequest is the relay request body. All fields are required
// and messages must be non-empty.
type agentResponseRequest struct {
	Label      string                  `json:"label"`
	Advice     string                  `json:"advice"`
	Confidence string                  `json:"confidence"`
	Messages   []domain.HistoryMessage `json:"messages"`
}

// AgentResponse forwards a classification result to the generative
// language API and returns the produced explanation. Validation happens
// before any field is used.
// POST /api/v1/agent-response
func (h *Handler) AgentResponse(c echo.Context) error {
	ctx := c.Request().Context()

	var req agentResponseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Missing required fields: label, advice, confidence",
		})
	}
	if req.Label == "" || req.Advice == "" || req.Confidence == "" || len(req.Messages) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Missing required fields: label, advice, confidence",
		})
	}

	prompt := genai.ExplanationPrompt(req.Label, req.Advice, req.Confidence)
	text, err := h.gen.GenerateContent(ctx, prompt)
	if err != nil {
		h.logger.Error().Err(err).Msg("generation request failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to fetch Gemini response",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{"explanation": text})
}

// Analyze accepts a multipart submission (a "message" text field plus
// "images" files) and runs it through the pipeline.
// POST /api/v1/analyze
func (h *Handler) Analyze(c echo.Context) error {
	ctx := c.Request().Context()
	text := c.FormValue("message")

	var images []pipeline.ImageInput
	form, err := c.MultipartForm()
	if err == nil && form != nil {
		for _, fh := range form.File["images"] {
			f, err := fh.Open()
			if err != nil {
				h.logger.Error().Err(err).Str("filename", fh.Filename).Msg("failed to open upload")
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read uploaded file"})
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read uploaded file"})
			}
			images = append(images, pipeline.ImageInput{Filename: fh.Filename, Data: data})
		}
	}

	if err := h.orch.Submit(ctx, text, images); err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyInput):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, domain.ErrBatchInProgress):
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			h.logger.Error().Err(err).Msg("submission failed")
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "submission failed"})
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"state":   h.orch.State(),
		"entries": h.convo.List(),
	})
}

// GetConversation returns the conversation snapshot in append order.
// GET /api/v1/conversation
func (h *Handler) GetConversation(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"state":   h.orch.State(),
		"entries": h.convo.List(),
	})
}

// ExplainCard requests a generated explanation for one result card.
// POST /api/v1/conversation/cards/:id/explain
func (h *Handler) ExplainCard(c echo.Context) error {
	ctx := c.Request().Context()
	cardID := c.Param("id")

	err := h.orch.Elaborate(ctx, cardID)
	switch {
	case err == nil:
		entry, getErr := h.convo.Get(cardID)
		if getErr != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load card"})
		}
		return c.JSON(http.StatusOK, entry)
	case errors.Is(err, domain.ErrEntryNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "card not found"})
	case errors.Is(err, domain.ErrCancelled):
		return c.JSON(http.StatusOK, map[string]string{"status": "canceled"})
	case errors.Is(err, domain.ErrMissingFields):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		h.logger.Error().Err(err).Str("card", cardID).Msg("explanation failed")
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "explanation request failed"})
	}
}

// GetPreview serves the display-preview bytes for an uploaded image.
// GET /api/v1/conversation/images/:ref
func (h *Handler) GetPreview(c echo.Context) error {
	ref := c.Param("ref")
	preview, ok := h.orch.Preview(ref)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "image not found"})
	}
	data := preview.Bytes()
	if data == nil {
		return c.JSON(http.StatusGone, map[string]string{"error": "preview released"})
	}
	return c.Blob(http.StatusOK, http.DetectContentType(data), data)
}
