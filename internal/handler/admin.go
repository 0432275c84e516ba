package handler

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/settlegate/settlegate/internal/service"
)

type AdminHandler struct {
	svc *service.AdminService
}

func NewAdminHandler(svc *service.AdminService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

type feeRequest struct {
	Bps int `json:"bps"`
}

func (h *AdminHandler) SetFeeRate(c *gin.Context) {
	var req feeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.SetFeeRate(req.Bps); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fee_rate_bps": req.Bps})
}

func (h *AdminHandler) GetConfig(c *gin.Context) {
	tokens := h.svc.Whitelist()
	hexTokens := make([]string, 0, len(tokens))
	for _, t := range tokens {
		hexTokens = append(hexTokens, t.Hex())
	}
	c.JSON(http.StatusOK, gin.H{
		"fee_rate_bps": h.svc.FeeRateBps(),
		"whitelist":    hexTokens,
	})
}

type whitelistRequest struct {
	Token  string   `json:"token"`
	Tokens []string `json:"tokens"`
}

func (h *AdminHandler) AddWhitelisted(c *gin.Context) {
	var req whitelistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.Tokens) > 0 {
		tokens := make([]common.Address, 0, len(req.Tokens))
		for _, t := range req.Tokens {
			if !common.IsHexAddress(t) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token address: " + t})
				return
			}
			tokens = append(tokens, common.HexToAddress(t))
		}
		if err := h.svc.AddWhitelistedBatch(c.Request.Context(), tokens); err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"whitelisted": len(tokens)})
		return
	}

	if !common.IsHexAddress(req.Token) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token address"})
		return
	}
	if err := h.svc.AddWhitelisted(c.Request.Context(), common.HexToAddress(req.Token)); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"whitelisted": 1})
}

func (h *AdminHandler) RemoveWhitelisted(c *gin.Context) {
	token := c.Param("token")
	if !common.IsHexAddress(token) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token address"})
		return
	}
	h.svc.RemoveWhitelisted(common.HexToAddress(token))
	c.JSON(http.StatusOK, gin.H{"removed": token})
}

type withdrawRequest struct {
	Asset string `json:"asset" binding:"required"`
	To    string `json:"to" binding:"required"`
}

func (h *AdminHandler) EmergencyWithdraw(c *gin.Context) {
	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !common.IsHexAddress(req.Asset) || !common.IsHexAddress(req.To) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid asset or recipient address"})
		return
	}

	amount, err := h.svc.EmergencyWithdraw(c.Request.Context(),
		common.HexToAddress(req.Asset), common.HexToAddress(req.To))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawn": amount.String()})
}
