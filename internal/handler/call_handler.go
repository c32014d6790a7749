package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"nearhire/internal/call"
	"nearhire/internal/history"
	"nearhire/internal/identity"
	"nearhire/internal/transport/httpdto"
	nearhire_errors "nearhire/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CallHandler struct {
	registry *call.Registry
	history  *history.Repository
}

func NewCallHandler(registry *call.Registry, hist *history.Repository) *CallHandler {
	return &CallHandler{registry: registry, history: hist}
}

func (h *CallHandler) manager(c *gin.Context) (*call.Manager, bool) {
	principal, ok := identity.FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return nil, false
	}
	return h.registry.For(principal.ID, principal.Name), true
}

func (h *CallHandler) Initiate(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	var req httpdto.InitiateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	peerID, err := uuid.Parse(req.ParticipantID)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid participant id", "INVALID_REQUEST"))
		return
	}
	callType := call.Type(req.Type)
	if callType != call.TypeAudio && callType != call.TypeVideo {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid call type", "INVALID_REQUEST"))
		return
	}
	if err := m.Initiate(c.Request.Context(), peerID, req.ParticipantName, callType); err != nil {
		respondCallError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(snapshotDTO(m.Snapshot())))
}

func (h *CallHandler) Accept(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	if err := m.Accept(c.Request.Context()); err != nil {
		respondCallError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(snapshotDTO(m.Snapshot())))
}

func (h *CallHandler) Reject(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	if err := m.Reject(c.Request.Context()); err != nil {
		respondCallError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(snapshotDTO(m.Snapshot())))
}

func (h *CallHandler) End(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	_ = m.EndCall(c.Request.Context()) // idempotent, never fails
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(snapshotDTO(m.Snapshot())))
}

func (h *CallHandler) ToggleMute(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	muted, err := m.ToggleMute(c.Request.Context())
	if err != nil {
		respondCallError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ToggleResponse{Enabled: muted}))
}

func (h *CallHandler) ToggleVideo(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	enabled, err := m.ToggleVideo(c.Request.Context())
	if err != nil {
		respondCallError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ToggleResponse{Enabled: enabled}))
}

func (h *CallHandler) Current(c *gin.Context) {
	m, ok := h.manager(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(snapshotDTO(m.Snapshot())))
}

func (h *CallHandler) History(c *gin.Context) {
	principal, ok := identity.FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	records, total, err := h.history.ListUserCalls(c.Request.Context(), principal.ID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"calls": records, "total": total}))
}

func snapshotDTO(s call.Snapshot) httpdto.CallStateResponse {
	resp := httpdto.CallStateResponse{
		IsIncoming:   s.IsIncoming,
		IsConnecting: s.IsConnecting,
		IsActive:     s.IsActive,
		Duration:     call.FormatDuration(time.Now(), s.StartedAt),
		Muted:        s.Muted,
		VideoEnabled: s.VideoEnabled,
	}
	if !s.Idle() {
		resp.CallID = s.CallID.String()
		resp.Type = string(s.Type)
		resp.ParticipantID = s.ParticipantID.String()
		resp.ParticipantName = s.ParticipantName
	}
	if s.IsActive {
		resp.StartedAt = s.StartedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func respondCallError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, nearhire_errors.ErrNotReady):
		c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "NOT_READY"))
	case errors.Is(err, nearhire_errors.ErrAlreadyInCall):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), "ALREADY_IN_CALL"))
	case errors.Is(err, nearhire_errors.ErrInvalidState):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), "INVALID_STATE"))
	case errors.Is(err, nearhire_errors.ErrTransportFailure):
		c.JSON(http.StatusBadGateway, httpdto.NewErrorResponse(err.Error(), "TRANSPORT_FAILURE"))
	default:
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
	}
}
