package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/evrimtas/outcomemarket/internal/api/middleware"
	"github.com/evrimtas/outcomemarket/internal/config"
	"github.com/evrimtas/outcomemarket/internal/domain"
	"github.com/evrimtas/outcomemarket/internal/fixedpoint"
	"github.com/evrimtas/outcomemarket/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler serves market management endpoints.  Create mints the manager
// capability and hands it back as a bearer token; every other operation here
// requires that token and is re-checked by the engine against the capability
// the market currently holds.
type AdminHandler struct {
	marketSvc *service.MarketService
	codec     *middleware.CapTokenCodec
	cfg       *config.Config
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(marketSvc *service.MarketService, codec *middleware.CapTokenCodec, cfg *config.Config) *AdminHandler {
	return &AdminHandler{marketSvc: marketSvc, codec: codec, cfg: cfg}
}

// createRequest creates a market.  FeeBps and Liquidity fall back to the
// engine defaults when omitted.
type createRequest struct {
	FirstAsset      string           `json:"first_asset" binding:"required"`
	SecondAsset     string           `json:"second_asset" binding:"required"`
	CollateralAsset string           `json:"collateral_asset" binding:"required"`
	ContentRef      string           `json:"content_ref"`
	FeeBps          *int64           `json:"fee_bps"`
	Liquidity       fixedpoint.Value `json:"liquidity"`
}

// Create godoc
// POST /api/markets
func (h *AdminHandler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	feeBps := h.cfg.Engine.DefaultFeeBps
	if req.FeeBps != nil {
		feeBps = *req.FeeBps
	}
	liquidity := req.Liquidity
	if liquidity.IsZero() {
		liquidity = h.cfg.Engine.DefaultLiquidity
	}

	market, cap, err := h.marketSvc.CreateMarket(c.Request.Context(), service.CreateMarketParams{
		FirstAsset:      domain.AssetTag(req.FirstAsset),
		SecondAsset:     domain.AssetTag(req.SecondAsset),
		CollateralAsset: domain.AssetTag(req.CollateralAsset),
		ContentRef:      req.ContentRef,
		FeeBps:          feeBps,
		Liquidity:       liquidity,
		Now:             time.Now(),
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	token, err := h.codec.Issue(cap)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not issue capability token")
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{
		"market":           market.ToSummary(),
		"capability_token": token,
	})
}

// Pause godoc
// POST /api/markets/:id/pause
func (h *AdminHandler) Pause(c *gin.Context) {
	h.lifecycleOp(c, h.marketSvc.Pause)
}

// Resume godoc
// POST /api/markets/:id/resume
func (h *AdminHandler) Resume(c *gin.Context) {
	h.lifecycleOp(c, h.marketSvc.Resume)
}

// resolveRequest picks the winning outcome.
type resolveRequest struct {
	Side string `json:"side" binding:"required"`
}

// Resolve godoc
// POST /api/markets/:id/resolve
func (h *AdminHandler) Resolve(c *gin.Context) {
	id, cap, ok := h.marketAndCap(c)
	if !ok {
		return
	}
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	_, winner, err := resolveOutcome(h.marketSvc, id, req.Side)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if err := h.marketSvc.Resolve(c.Request.Context(), id, cap, winner, time.Now()); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"winner": winner})
}

// Close godoc
// POST /api/markets/:id/close
func (h *AdminHandler) Close(c *gin.Context) {
	h.lifecycleOp(c, h.marketSvc.Close)
}

// feeRequest updates the trading fee.
type feeRequest struct {
	FeeBps int64 `json:"fee_bps"`
}

// UpdateFee godoc
// PATCH /api/markets/:id/fee
func (h *AdminHandler) UpdateFee(c *gin.Context) {
	id, cap, ok := h.marketAndCap(c)
	if !ok {
		return
	}
	var req feeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	if err := h.marketSvc.UpdateFeeBps(c.Request.Context(), id, cap, req.FeeBps, time.Now()); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"fee_bps": req.FeeBps})
}

// contentRequest replaces the market's content reference.
type contentRequest struct {
	ContentRef string `json:"content_ref" binding:"required"`
}

// UpdateContent godoc
// PATCH /api/markets/:id/content
func (h *AdminHandler) UpdateContent(c *gin.Context) {
	id, cap, ok := h.marketAndCap(c)
	if !ok {
		return
	}
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	if err := h.marketSvc.UpdateContentRef(c.Request.Context(), id, cap, req.ContentRef, time.Now()); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"content_ref": req.ContentRef})
}

// withdrawRequest withdraws accrued fees.
type withdrawRequest struct {
	Amount fixedpoint.Value `json:"amount"`
}

// WithdrawFee godoc
// POST /api/markets/:id/fee/withdraw
func (h *AdminHandler) WithdrawFee(c *gin.Context) {
	id, cap, ok := h.marketAndCap(c)
	if !ok {
		return
	}
	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	payout, err := h.marketSvc.WithdrawFee(c.Request.Context(), id, cap, req.Amount, time.Now())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"withdrawn": payout})
}

// RotateCapability godoc
// POST /api/markets/:id/capability/rotate
// Transfers manager rights: the engine retires the presented capability and
// the response carries the token of its replacement.
func (h *AdminHandler) RotateCapability(c *gin.Context) {
	id, cap, ok := h.marketAndCap(c)
	if !ok {
		return
	}
	next, err := h.marketSvc.RotateCapability(c.Request.Context(), id, cap)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	token, err := h.codec.Issue(next)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not issue capability token")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"capability_token": token})
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (h *AdminHandler) marketAndCap(c *gin.Context) (uuid.UUID, domain.ManagerCapability, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return uuid.Nil, domain.ManagerCapability{}, false
	}
	return id, middleware.GetCapability(c), true
}

func (h *AdminHandler) lifecycleOp(c *gin.Context, op func(ctx context.Context, marketID uuid.UUID, cap domain.ManagerCapability, now time.Time) error) {
	id, cap, ok := h.marketAndCap(c)
	if !ok {
		return
	}
	if err := op(c.Request.Context(), id, cap, time.Now()); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"id": id})
}
