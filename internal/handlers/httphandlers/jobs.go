package httphandlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slices"
)

func (h *HTTPHandler) GetJobs(ctx *gin.Context) {
	data := []Job{}
	for _, job := range h.store.Jobs() {
		if status := ctx.Query("status"); status != "" && status != string(job.Status) {
			continue
		}
		data = append(data, mapJob(job))
	}

	slices.SortStableFunc(data, func(a, b Job) int {
		return strings.Compare(a.ID, b.ID)
	})

	ctx.JSON(200, data)
}

func (h *HTTPHandler) GetJob(ctx *gin.Context) {
	job, ok := h.store.GetJob(ctx.Param("id"))
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "job not found", "reason": "JobNotFound"})
		return
	}
	ctx.JSON(200, mapJob(job))
}

func (h *HTTPHandler) GetMilestones(ctx *gin.Context) {
	job, ok := h.store.GetJob(ctx.Param("id"))
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "job not found", "reason": "JobNotFound"})
		return
	}
	data := make([]Milestone, len(job.Milestones))
	for i, ms := range job.Milestones {
		data[i] = mapMilestone(ms)
	}
	ctx.JSON(200, data)
}

func (h *HTTPHandler) GetBalance(ctx *gin.Context) {
	addr, ok := hexAddressParam(ctx, "address")
	if !ok {
		return
	}
	ctx.JSON(200, gin.H{
		"address": addr.Hex(),
		"balance": h.store.Balance(addr).String(),
	})
}

// ApproveMilestone is the client approval path, the caller must be the
// job's client
func (h *HTTPHandler) ApproveMilestone(ctx *gin.Context) {
	caller, ok := h.caller(ctx)
	if !ok {
		return
	}
	jobID, index, ok := milestoneParams(ctx)
	if !ok {
		return
	}

	job, found := h.store.GetJob(jobID)
	if !found {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "job not found", "reason": "JobNotFound"})
		return
	}
	if caller != job.Client {
		ctx.JSON(http.StatusForbidden, gin.H{
			"error":  fmt.Sprintf("caller %s is not the client of job %s", caller.Hex(), jobID),
			"reason": "InvalidParty",
		})
		return
	}

	if err := h.engine.ApproveMilestone(jobID, index); err != nil {
		h.abortDomainErr(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"status": "ok"})
}

type raiseDisputeRequest struct {
	Reason      string `json:"reason" binding:"required"`
	EvidenceRef string `json:"evidenceRef"`
}

// RaiseDispute opens arbitration, the caller must be a party to the job
func (h *HTTPHandler) RaiseDispute(ctx *gin.Context) {
	caller, ok := h.caller(ctx)
	if !ok {
		return
	}
	jobID, index, ok := milestoneParams(ctx)
	if !ok {
		return
	}

	var req raiseDisputeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "reason": "InvalidSpec"})
		return
	}

	job, found := h.store.GetJob(jobID)
	if !found {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "job not found", "reason": "JobNotFound"})
		return
	}
	if caller != job.Client && caller != job.Freelancer {
		ctx.JSON(http.StatusForbidden, gin.H{
			"error":  fmt.Sprintf("caller %s is not a party to job %s", caller.Hex(), jobID),
			"reason": "InvalidParty",
		})
		return
	}

	dispute, err := h.engine.RaiseDispute(jobID, index, caller, req.Reason, req.EvidenceRef)
	if err != nil {
		h.abortDomainErr(ctx, err)
		return
	}
	ctx.JSON(201, mapDispute(dispute))
}

// VerifierApprove is the off-chain verifier approval path, the caller must
// be a registered active verifier
func (h *HTTPHandler) VerifierApprove(ctx *gin.Context) {
	caller, ok := h.caller(ctx)
	if !ok {
		return
	}
	jobID, index, ok := milestoneParams(ctx)
	if !ok {
		return
	}

	if err := h.engine.OffChainVerifierApprove(jobID, index, caller); err != nil {
		h.abortDomainErr(ctx, err)
		return
	}
	ctx.JSON(200, gin.H{"status": "ok"})
}

func milestoneParams(ctx *gin.Context) (string, uint64, bool) {
	jobID := ctx.Param("id")
	index, err := strconv.ParseUint(ctx.Param("index"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "malformed milestone index", "reason": "InvalidSpec"})
		return "", 0, false
	}
	return jobID, index, true
}
