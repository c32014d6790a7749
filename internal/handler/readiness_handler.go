package handler

import (
	"net/http"

	"nearhire/internal/readiness"
	"nearhire/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type ReadinessHandler struct {
	gate *readiness.Gate
}

func NewReadinessHandler(gate *readiness.Gate) *ReadinessHandler {
	return &ReadinessHandler{gate: gate}
}

func (h *ReadinessHandler) Status(c *gin.Context) {
	resp := httpdto.ReadinessResponse{
		Status:   h.gate.Status().String(),
		Attempts: h.gate.Attempts(),
	}
	code := http.StatusOK
	if h.gate.Status() == readiness.StatusFailed {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, httpdto.NewSuccessResponse(resp))
}

// Retry is the user-driven manual retry: it resets the attempt budget and
// starts a fresh verification round.
func (h *ReadinessHandler) Retry(c *gin.Context) {
	h.gate.Reset()
	status := h.gate.Verify(c.Request.Context())
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ReadinessResponse{
		Status:   status.String(),
		Attempts: h.gate.Attempts(),
	}))
}
