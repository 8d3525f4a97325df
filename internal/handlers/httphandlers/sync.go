package httphandlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *HTTPHandler) GetSyncStatus(ctx *gin.Context) {
	ctx.JSON(200, h.sync.Status())
}

// GetFlaggedLogs lists raw ledger logs the decoder rejected, oldest first
func (h *HTTPHandler) GetFlaggedLogs(ctx *gin.Context) {
	flagged, err := h.events.Flagged()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "reason": "Internal"})
		return
	}
	ctx.JSON(200, flagged)
}
