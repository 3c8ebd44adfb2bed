// Package handler exposes the notification engine over HTTP with gin.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"notifyd/internal/notification/domain"
	"notifyd/internal/notification/service"
)

// Handler adapts service operations to gin routes.
type Handler struct {
	svc *service.Service
}

// New creates a Handler backed by svc.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// DispatchRequest is the body for POST /v1/notifications/dispatch. Context is
// optional; when omitted the user's stored simulated context applies.
type DispatchRequest struct {
	UserID    string                  `json:"user_id" binding:"required"`
	EventType string                  `json:"event_type" binding:"required"`
	EventID   string                  `json:"event_id"`
	Context   *domain.ContextSnapshot `json:"context"`
}

// Dispatch runs the channel decision for an event.
func (h *Handler) Dispatch(c *gin.Context) {
	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	res, err := h.svc.Dispatch(c.Request.Context(), req.UserID, req.EventType, req.Context, req.EventID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// AckRequest is the body for POST /v1/notifications/:id/ack.
type AckRequest struct {
	Channel domain.Channel `json:"channel"`
}

// Acknowledge marks an event acknowledged. Repeats and unknown ids succeed.
func (h *Handler) Acknowledge(c *gin.Context) {
	var req AckRequest
	// Body is optional; an empty channel defaults downstream.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	if err := h.svc.Acknowledge(c.Request.Context(), c.Param("id"), req.Channel); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "acknowledged"})
}

// GetRecord returns one telemetry record.
func (h *Handler) GetRecord(c *gin.Context) {
	rec, ok := h.svc.GetRecord(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ListRecent returns the newest records, capped by ?limit.
func (h *Handler) ListRecent(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, gin.H{"records": h.svc.ListRecent(limit)})
}

// ListForUser returns a user's records, newest first.
func (h *Handler) ListForUser(c *gin.Context) {
	recs, err := h.svc.ListForUser(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}

// UpdateContext merges a partial context patch for a user and returns the
// effective snapshot.
func (h *Handler) UpdateContext(c *gin.Context) {
	var patch domain.ContextPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	snap, err := h.svc.UpdateContext(c.Param("id"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"context": snap})
}

// LoginAttemptRequest is the body for POST /v1/login-attempts.
type LoginAttemptRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	DeviceID string `json:"device_id" binding:"required"`
}

// LoginAttempt runs the device trust decision.
func (h *Handler) LoginAttempt(c *gin.Context) {
	var req LoginAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	res, err := h.svc.LoginAttempt(c.Request.Context(), req.UserID, req.DeviceID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CompleteBindingRequest is the body for POST /v1/devices/bind.
type CompleteBindingRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	DeviceID string `json:"device_id" binding:"required"`
	EventID  string `json:"event_id"`
	Code     string `json:"code"`
}

// CompleteBinding rebinds the user's trusted device.
func (h *Handler) CompleteBinding(c *gin.Context) {
	var req CompleteBindingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.svc.CompleteBinding(c.Request.Context(), req.UserID, req.DeviceID, req.EventID, req.Code); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "bound", "device_id": req.DeviceID})
}

func writeError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidInput) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
