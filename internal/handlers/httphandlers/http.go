package httphandlers

import (
	"net/http"
	"net/http/pprof"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FireFistisDead/SmartPay-sub004/internal/config"
	"github.com/FireFistisDead/SmartPay-sub004/internal/escrow"
	"github.com/FireFistisDead/SmartPay-sub004/internal/interfaces"
	"github.com/FireFistisDead/SmartPay-sub004/internal/repositories/eventstore"
	"github.com/FireFistisDead/SmartPay-sub004/internal/syncer"
)

// callerHeader carries the address acting on mutating endpoints. The operator
// surface trusts its deployment perimeter, the header is identity, not auth.
const callerHeader = "X-Caller-Address"

type HTTPHandler struct {
	engine *escrow.Engine
	store  escrow.Store
	sync   *syncer.Engine
	events *eventstore.Store
	cfg    *config.Config
	log    interfaces.ILogger
}

func NewHTTPHandler(engine *escrow.Engine, store escrow.Store, sync *syncer.Engine, events *eventstore.Store, cfg *config.Config, registry *prometheus.Registry, log interfaces.ILogger) *gin.Engine {
	handl := &HTTPHandler{
		engine: engine,
		store:  store,
		sync:   sync,
		events: events,
		cfg:    cfg,
		log:    log,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.GET("/healthcheck", handl.HealthCheck)
	r.GET("/config", handl.GetConfig)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	r.GET("/sync/status", handl.GetSyncStatus)
	r.GET("/sync/flagged", handl.GetFlaggedLogs)

	r.GET("/jobs", handl.GetJobs)
	r.GET("/jobs/:id", handl.GetJob)
	r.GET("/jobs/:id/milestones", handl.GetMilestones)
	r.GET("/balances/:address", handl.GetBalance)

	r.POST("/jobs/:id/milestones/:index/approve", handl.ApproveMilestone)
	r.POST("/jobs/:id/milestones/:index/dispute", handl.RaiseDispute)
	r.POST("/jobs/:id/milestones/:index/verify", handl.VerifierApprove)

	r.GET("/disputes", handl.GetDisputes)
	r.GET("/disputes/:id", handl.GetDispute)
	r.POST("/disputes/:id/resolve", handl.ResolveDispute)

	r.GET("/verifiers", handl.GetVerifiers)
	r.POST("/verifiers", handl.AddVerifier)
	r.PUT("/verifiers/:address", handl.UpdateVerifier)

	r.Any("/debug/pprof/*action", gin.WrapF(pprof.Index))

	err := r.SetTrustedProxies(nil)
	if err != nil {
		panic(err)
	}

	return r
}

func (h *HTTPHandler) HealthCheck(ctx *gin.Context) {
	ctx.JSON(200, gin.H{
		"status":  "healthy",
		"version": config.BuildVersion,
		"sync":    h.sync.State().String(),
	})
}

func (h *HTTPHandler) GetConfig(ctx *gin.Context) {
	ctx.JSON(200, h.cfg.GetSanitized())
}

// caller extracts and validates the acting address header
func (h *HTTPHandler) caller(ctx *gin.Context) (common.Address, bool) {
	raw := ctx.GetHeader(callerHeader)
	if !common.IsHexAddress(raw) {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":  "missing or malformed " + callerHeader + " header",
			"reason": "InvalidParty",
		})
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

// abortDomainErr maps engine errors to the structured error body
func (h *HTTPHandler) abortDomainErr(ctx *gin.Context, err error) {
	status := http.StatusInternalServerError
	if escrow.IsValidationError(err) {
		status = http.StatusBadRequest
	}
	switch escrow.ReasonCode(err) {
	case "JobNotFound", "MilestoneNotFound", "DisputeNotFound", "UnknownVerifier":
		status = http.StatusNotFound
	}
	ctx.JSON(status, gin.H{
		"error":  err.Error(),
		"reason": escrow.ReasonCode(err),
	})
}
