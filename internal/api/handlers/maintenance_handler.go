package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sentinela-app/sentinela/internal/services"
)

// A stuck storage call on one session must not hold the scheduler's
// connection forever; the whole sweep gets one bounded deadline.
const sweepDeadline = 10 * time.Minute

type MaintenanceHandler struct {
	svc services.MaintenanceService
}

func NewMaintenanceHandler(svc services.MaintenanceService) *MaintenanceHandler {
	return &MaintenanceHandler{svc: svc}
}

type SweepResponse struct {
	Success   bool                   `json:"success"`
	Processed int                    `json:"processed"`
	Results   []services.SweepResult `json:"results"`
	Timestamp string                 `json:"timestamp"`
}

// Sweep runs one pass of the session lifecycle maintenance. Individual
// session failures are reported inside the results, never as a non-2xx
// response: the scheduler only needs to know the sweep ran.
func (h *MaintenanceHandler) Sweep(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), sweepDeadline)
	defer cancel()

	results := h.svc.Sweep(ctx)

	c.JSON(http.StatusOK, SweepResponse{
		Success:   true,
		Processed: len(results),
		Results:   results,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
