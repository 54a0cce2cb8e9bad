package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sentinela-app/sentinela/internal/services"
	"github.com/sentinela-app/sentinela/internal/utils"
)

type SessionHandler struct {
	svc services.SessionService
}

func NewSessionHandler(svc services.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type StartSessionRequest struct {
	DeviceID        string `json:"device_id" binding:"required"`
	Origin          string `json:"origin"`           // app|panic_button|schedule
	DurationMinutes int    `json:"duration_minutes"` // 0: open-ended, closed by explicit stop
}

type StartSessionResponse struct {
	SessionID   string `json:"session_id"`
	Status      string `json:"status"`
	WindowEndAt string `json:"window_end_at,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func (h *SessionHandler) Start(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "SessionHandler.Start", "invalid request body", err))
		return
	}

	sess, err := h.svc.Start(c.Request.Context(), userID, req.DeviceID, req.Origin, req.DurationMinutes)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := StartSessionResponse{
		SessionID: sess.ID,
		Status:    sess.Status,
		CreatedAt: sess.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if sess.WindowEndAt != nil {
		resp.WindowEndAt = sess.WindowEndAt.Format("2006-01-02T15:04:05Z07:00")
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SessionHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sessionID := c.Param("session_id")
	sess, err := h.svc.Get(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	// basic authorization
	if sess.UserID != userID {
		writeError(c, utils.E(utils.CodeForbidden, "SessionHandler.Get", "forbidden", nil))
		return
	}

	c.JSON(http.StatusOK, sess)
}

func (h *SessionHandler) Stop(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sessionID := c.Param("session_id")

	// authorize against existing session
	sess, err := h.svc.Get(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	if sess.UserID != userID {
		writeError(c, utils.E(utils.CodeForbidden, "SessionHandler.Stop", "forbidden", nil))
		return
	}

	sealed, err := h.svc.RequestStop(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, sealed)
}
