package handler

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	"github.com/settlegate/settlegate/internal/model"
	"github.com/settlegate/settlegate/internal/pkg/apperrors"
	"github.com/settlegate/settlegate/internal/service"
)

// HeaderRelayerAddress identifies the submitting relayer; the authorized
// executor check compares against it.
const HeaderRelayerAddress = "X-Relayer-Address"

type SettleHandler struct {
	exec *service.Executor
}

func NewSettleHandler(exec *service.Executor) *SettleHandler {
	return &SettleHandler{exec: exec}
}

func relayerFrom(c *gin.Context) (common.Address, bool) {
	raw := c.GetHeader(HeaderRelayerAddress)
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid " + HeaderRelayerAddress + " header"})
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func (h *SettleHandler) Settle(c *gin.Context) {
	relayer, ok := relayerFrom(c)
	if !ok {
		return
	}

	var req model.SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trade, err := req.ToTrade()
	if err != nil {
		_ = c.Error(apperrors.New(apperrors.ErrInvalidRequest, err.Error(), err))
		return
	}
	route, err := req.Route.ToRoute()
	if err != nil {
		_ = c.Error(apperrors.New(apperrors.ErrInvalidRequest, err.Error(), err))
		return
	}

	result, err := h.exec.Settle(c.Request.Context(), relayer, &trade, &route)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, model.SettleResponse{
		RecordID:  result.RecordID,
		AmountOut: result.AmountOut.String(),
		FeeAmount: result.FeeAmount.String(),
		MakerOut:  result.MakerOut.String(),
	})
}

func (h *SettleHandler) CancelNonce(c *gin.Context) {
	var req model.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !common.IsHexAddress(req.Maker) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid maker address"})
		return
	}

	sig, err := hexutil.Decode(req.Signature)
	if err != nil {
		_ = c.Error(apperrors.Newf(apperrors.ErrInvalidRequest, "cancel_signature_encoding",
			"cancel signature is not valid hex: %v", err))
		return
	}

	if err := h.exec.CancelNonce(c.Request.Context(), common.HexToAddress(req.Maker), req.Nonce, sig); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled", "nonce": req.Nonce})
}

func (h *SettleHandler) Recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	records, err := h.exec.Recent(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settlements": records})
}
