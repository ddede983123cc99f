package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/AliZeynalov/keybridge/internal/conversation"
	"github.com/AliZeynalov/keybridge/internal/dispatch"
	"github.com/AliZeynalov/keybridge/internal/models"
	"github.com/AliZeynalov/keybridge/internal/provider"
	"github.com/AliZeynalov/keybridge/internal/relay"
)

// ErrNoProvidersMessage is shown to users who sent no usable API key.
const ErrNoProvidersMessage = "No providers configured. Please add API keys in Settings."

// Handler handles HTTP requests for the gateway
type Handler struct {
	dispatcher      *dispatch.Dispatcher
	registry        *provider.Registry
	validateTimeout time.Duration
}

// NewHandler creates a new Handler
func NewHandler(dispatcher *dispatch.Dispatcher, registry *provider.Registry, validateTimeout time.Duration) *Handler {
	if validateTimeout <= 0 {
		validateTimeout = provider.DefaultDiscoveryTimeout
	}
	return &Handler{dispatcher: dispatcher, registry: registry, validateTimeout: validateTimeout}
}

// Chat handles POST /api/chat
func (h *Handler) Chat(c *gin.Context) {
	requestID := c.GetString("request_id")
	start := time.Now()

	// An empty body is a request with nothing configured, not a parse failure.
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.WithFields(log.Fields{
				"request_id": requestID,
				"limit":      tooLarge.Limit,
				"event":      "body_too_large",
			}).Warn("Request body too large")

			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit)})
			return
		}

		log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"event":      "parse_error",
		}).Warn("Failed to parse request body")

		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse request body: " + err.Error()})
		return
	}

	dreq := models.DispatchRequest{
		Turns:       conversation.Normalize(req.Messages),
		Providers:   make(map[models.ProviderID]models.ProviderConfig, len(req.Providers)),
		Attachments: conversation.ImageAttachments(req.Attachments),
	}
	for id, cfg := range req.Providers {
		dreq.Providers[models.ProviderID(id)] = cfg
	}

	ctx := dispatch.WithRequestID(c.Request.Context(), requestID)

	if req.Stream || wantsStream(c) {
		h.handleStreamingRequest(c, ctx, dreq, requestID, start)
		return
	}
	h.handleNonStreamingRequest(c, ctx, dreq, requestID, start)
}

func wantsStream(c *gin.Context) bool {
	switch c.Query("stream") {
	case "1", "true":
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), relay.ContentType)
}

func (h *Handler) handleNonStreamingRequest(c *gin.Context, ctx context.Context, req models.DispatchRequest, requestID string, start time.Time) {
	results, err := h.dispatcher.Dispatch(ctx, req)
	if err != nil {
		h.dispatchError(c, err, requestID)
		return
	}

	failed := 0
	for _, r := range results {
		if !r.OK {
			failed++
		}
	}
	log.WithFields(log.Fields{
		"request_id": requestID,
		"results":    len(results),
		"failed":     failed,
		"latency_ms": time.Since(start).Milliseconds(),
		"event":      "success",
	}).Info("Request successful")

	c.JSON(http.StatusOK, models.Response{Results: results})
}

func (h *Handler) handleStreamingRequest(c *gin.Context, ctx context.Context, req models.DispatchRequest, requestID string, start time.Time) {
	frames, err := h.dispatcher.Start(ctx, req)
	if err != nil {
		h.dispatchError(c, err, requestID)
		return
	}

	c.Header("Content-Type", relay.ContentType)
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	// Once headers are out, errors can only end the stream.
	if err := relay.Pipe(c.Request.Context(), frames, relay.NewWriter(c.Writer)); err != nil {
		log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"event":      "stream_detached",
		}).Warn("Client detached before all providers finished")
		return
	}

	log.WithFields(log.Fields{
		"request_id": requestID,
		"latency_ms": time.Since(start).Milliseconds(),
		"event":      "stream_complete",
	}).Info("Streaming complete")
}

func (h *Handler) dispatchError(c *gin.Context, err error, requestID string) {
	if errors.Is(err, dispatch.ErrNoProviders) {
		log.WithFields(log.Fields{
			"request_id": requestID,
			"event":      "no_providers",
		}).Warn("No providers configured")
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrNoProvidersMessage})
		return
	}

	log.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"event":      "dispatch_error",
	}).Error("Dispatch failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// Validate handles POST /api/validate. It runs model discovery for one key and
// reports the model it would use.
func (h *Handler) Validate(c *gin.Context) {
	requestID := c.GetString("request_id")

	var req models.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse request body: " + err.Error()})
		return
	}

	id := models.ProviderID(req.Provider)
	adapter, ok := h.registry.Lookup(id)
	if !ok {
		c.JSON(http.StatusBadRequest, models.ValidateResponse{OK: false, Provider: id, Error: "Unknown provider"})
		return
	}
	if strings.TrimSpace(req.APIKey) == "" {
		c.JSON(http.StatusBadRequest, models.ValidateResponse{OK: false, Provider: id, Error: "Missing API key"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.validateTimeout)
	defer cancel()

	model, err := adapter.ValidateKey(ctx, req.APIKey)
	fields := log.Fields{
		"request_id": requestID,
		"provider":   id,
		"api_key":    provider.RedactKey(req.APIKey),
		"event":      "key_validated",
	}
	if err != nil {
		log.WithFields(fields).WithField("error", err.Error()).Warn("API key validation failed")
		c.JSON(http.StatusOK, models.ValidateResponse{OK: false, Provider: id, Error: err.Error()})
		return
	}

	log.WithFields(fields).WithField("model", model).Info("API key validated")
	c.JSON(http.StatusOK, models.ValidateResponse{OK: true, Provider: id, Model: model})
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
