package httphandlers

import (
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slices"
)

func (h *HTTPHandler) GetVerifiers(ctx *gin.Context) {
	data := []Verifier{}
	for _, v := range h.engine.Verifiers() {
		data = append(data, mapVerifier(v))
	}

	slices.SortStableFunc(data, func(a, b Verifier) int {
		return strings.Compare(a.Address, b.Address)
	})

	ctx.JSON(200, data)
}

type addVerifierRequest struct {
	Address     string `json:"address" binding:"required"`
	DisplayName string `json:"displayName" binding:"required"`
	Reputation  uint8  `json:"reputation"`
}

func (h *HTTPHandler) AddVerifier(ctx *gin.Context) {
	var req addVerifierRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "reason": "InvalidSpec"})
		return
	}
	if !common.IsHexAddress(req.Address) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "malformed verifier address", "reason": "InvalidSpec"})
		return
	}

	verifier, err := h.engine.AddVerifier(common.HexToAddress(req.Address), req.DisplayName, req.Reputation)
	if err != nil {
		h.abortDomainErr(ctx, err)
		return
	}
	ctx.JSON(201, mapVerifier(verifier))
}

type updateVerifierRequest struct {
	Active     bool  `json:"active"`
	Reputation uint8 `json:"reputation"`
}

func (h *HTTPHandler) UpdateVerifier(ctx *gin.Context) {
	addr, ok := hexAddressParam(ctx, "address")
	if !ok {
		return
	}

	var req updateVerifierRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "reason": "InvalidSpec"})
		return
	}

	verifier, err := h.engine.UpdateVerifier(addr, req.Active, req.Reputation)
	if err != nil {
		h.abortDomainErr(ctx, err)
		return
	}
	ctx.JSON(200, mapVerifier(verifier))
}

func hexAddressParam(ctx *gin.Context, name string) (common.Address, bool) {
	raw := ctx.Param(name)
	if !common.IsHexAddress(raw) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "malformed address", "reason": "InvalidSpec"})
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}
