package handler

import (
	"net/http"
	"time"

	"github.com/evrimtas/outcomemarket/internal/domain"
	"github.com/evrimtas/outcomemarket/internal/fixedpoint"
	"github.com/evrimtas/outcomemarket/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TradeHandler serves buy, sell, and redeem endpoints.  Each request takes a
// fresh pricing snapshot immediately before execution, so the quote the
// caller is charged against is the market state at arrival time.
type TradeHandler struct {
	marketSvc *service.MarketService
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(marketSvc *service.MarketService) *TradeHandler {
	return &TradeHandler{marketSvc: marketSvc}
}

// buyRequest purchases outcome shares.  MaxCost bounds the net cost only;
// the fee is charged on top of it.
type buyRequest struct {
	Side          string           `json:"side" binding:"required"`
	Amount        fixedpoint.Value `json:"amount"`
	MaxCost       fixedpoint.Value `json:"max_cost"`
	PaymentAsset  string           `json:"payment_asset" binding:"required"`
	PaymentAmount fixedpoint.Value `json:"payment_amount"`
}

// Buy godoc
// POST /api/markets/:id/buy
func (h *TradeHandler) Buy(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return
	}
	var req buyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	_, outcome, err := resolveOutcome(h.marketSvc, id, req.Side)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	snap, err := h.marketSvc.FullSnapshot(id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	payment := domain.Collateral{
		Asset:  domain.AssetTag(req.PaymentAsset),
		Amount: req.PaymentAmount,
	}
	position, change, err := h.marketSvc.Buy(
		c.Request.Context(), id, snap, payment, outcome, req.Amount, req.MaxCost, time.Now())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"position": position,
		"change":   change,
	})
}

// sellRequest sells outcome shares back to the curve.
type sellRequest struct {
	Side       string           `json:"side" binding:"required"`
	Amount     fixedpoint.Value `json:"amount"`
	MinRevenue fixedpoint.Value `json:"min_revenue"`
}

// Sell godoc
// POST /api/markets/:id/sell
func (h *TradeHandler) Sell(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return
	}
	var req sellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	_, outcome, err := resolveOutcome(h.marketSvc, id, req.Side)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	snap, err := h.marketSvc.FullSnapshot(id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	position := domain.Position{MarketID: id, Outcome: outcome, Amount: req.Amount}
	proceeds, err := h.marketSvc.Sell(c.Request.Context(), id, snap, position, req.MinRevenue, time.Now())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"proceeds": proceeds})
}

// redeemRequest exchanges winning shares for collateral after settlement
// opens.
type redeemRequest struct {
	Side   string           `json:"side" binding:"required"`
	Amount fixedpoint.Value `json:"amount"`
}

// Redeem godoc
// POST /api/markets/:id/redeem
func (h *TradeHandler) Redeem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return
	}
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	_, outcome, err := resolveOutcome(h.marketSvc, id, req.Side)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	position := domain.Position{MarketID: id, Outcome: outcome, Amount: req.Amount}
	payout, err := h.marketSvc.Redeem(c.Request.Context(), id, position, time.Now())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"payout": payout})
}
