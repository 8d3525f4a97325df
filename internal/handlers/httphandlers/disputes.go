package httphandlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slices"
)

func (h *HTTPHandler) GetDisputes(ctx *gin.Context) {
	data := []Dispute{}
	for _, dispute := range h.store.Disputes() {
		if jobID := ctx.Query("jobId"); jobID != "" && jobID != dispute.JobID {
			continue
		}
		data = append(data, mapDispute(dispute))
	}

	slices.SortStableFunc(data, func(a, b Dispute) int {
		return strings.Compare(a.RaisedAt.String(), b.RaisedAt.String())
	})

	ctx.JSON(200, data)
}

func (h *HTTPHandler) GetDispute(ctx *gin.Context) {
	dispute, ok := h.store.GetDispute(ctx.Param("id"))
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "dispute not found", "reason": "DisputeNotFound"})
		return
	}
	ctx.JSON(200, mapDispute(dispute))
}

type resolveDisputeRequest struct {
	FavorClient bool   `json:"favorClient"`
	Resolution  string `json:"resolution" binding:"required"`
}

// ResolveDispute settles arbitration. The arbiter identity is the caller
// header, recorded in the log line for the audit trail.
func (h *HTTPHandler) ResolveDispute(ctx *gin.Context) {
	caller, ok := h.caller(ctx)
	if !ok {
		return
	}

	var req resolveDisputeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "reason": "InvalidSpec"})
		return
	}

	disputeID := ctx.Param("id")
	h.log.Infow("dispute resolution requested", "dispute", disputeID, "arbiter", caller.Hex(), "favorClient", req.FavorClient)

	if err := h.engine.ResolveDispute(disputeID, req.FavorClient, req.Resolution); err != nil {
		h.abortDomainErr(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"status": "ok"})
}
