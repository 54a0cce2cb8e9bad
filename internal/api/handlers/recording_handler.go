package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	pgrepo "github.com/sentinela-app/sentinela/internal/repositories/postgres"
	"github.com/sentinela-app/sentinela/internal/utils"
)

type RecordingHandler struct {
	recordings pgrepo.RecordingRepository
}

func NewRecordingHandler(recordings pgrepo.RecordingRepository) *RecordingHandler {
	return &RecordingHandler{recordings: recordings}
}

// Get lets the client app look up its own merged recording, mostly to poll
// the downstream processing status.
func (h *RecordingHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	rec, err := h.recordings.GetByID(c.Request.Context(), c.Param("recording_id"))
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			writeError(c, utils.E(utils.CodeNotFound, "RecordingHandler.Get", "recording not found", err))
			return
		}
		writeError(c, utils.E(utils.CodeInternal, "RecordingHandler.Get", "failed to get recording", err))
		return
	}

	if rec.UserID != userID {
		writeError(c, utils.E(utils.CodeForbidden, "RecordingHandler.Get", "forbidden", nil))
		return
	}

	c.JSON(http.StatusOK, rec)
}
