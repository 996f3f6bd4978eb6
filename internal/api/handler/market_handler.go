package handler

import (
	"net/http"
	"strconv"

	"github.com/evrimtas/outcomemarket/internal/domain"
	"github.com/evrimtas/outcomemarket/internal/fixedpoint"
	"github.com/evrimtas/outcomemarket/internal/repository"
	"github.com/evrimtas/outcomemarket/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MarketHandler serves public market query endpoints.
type MarketHandler struct {
	marketSvc *service.MarketService
	events    *repository.EventRepository
}

// NewMarketHandler creates a MarketHandler.  The event repository may be nil
// when the server runs without Postgres; the events endpoint then 404s.
func NewMarketHandler(marketSvc *service.MarketService, events *repository.EventRepository) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc, events: events}
}

// ListMarkets godoc
// GET /api/markets?page=1&limit=20
func (h *MarketHandler) ListMarkets(c *gin.Context) {
	page, limit := parsePagination(c)

	all := h.marketSvc.ListMarkets()
	total := len(all)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	respondList(c, all[start:end], total, page, limit)
}

// GetByID godoc
// GET /api/markets/:id
func (h *MarketHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return
	}
	market, err := h.marketSvc.GetMarket(id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, market.ToSummary())
}

// previewRequest asks for the net cost of a hypothetical purchase.
type previewRequest struct {
	Side   string           `json:"side" binding:"required"`
	Amount fixedpoint.Value `json:"amount"`
}

// Preview godoc
// POST /api/markets/:id/preview
// Prices a purchase without committing it.  The returned cost excludes the
// fee; fee and total are reported alongside.
func (h *MarketHandler) Preview(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return
	}
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	market, outcome, err := resolveOutcome(h.marketSvc, id, req.Side)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	snap, err := h.marketSvc.FullSnapshot(id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	cost, err := h.marketSvc.PreviewBuyCost(id, snap, outcome, req.Amount)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	fee := market.FeeOn(cost)
	respondSuccess(c, http.StatusOK, gin.H{
		"cost":  cost,
		"fee":   fee,
		"total": cost.Add(fee),
	})
}

// ListEvents godoc
// GET /api/markets/:id/events?page=1&limit=20
func (h *MarketHandler) ListEvents(c *gin.Context) {
	if h.events == nil {
		respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", "event journal not configured")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return
	}
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	events, err := h.events.ListByMarket(c.Request.Context(), id, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch events")
		return
	}
	respondList(c, events, len(events), page, limit)
}

// ── helpers ──────────────────────────────────────────────────────────────────

func parsePagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return
}

// resolveOutcome loads a market and maps a wire side name to the market's
// concrete outcome.
func resolveOutcome(svc *service.MarketService, marketID uuid.UUID, sideName string) (*domain.Market, domain.Outcome, error) {
	market, err := svc.GetMarket(marketID)
	if err != nil {
		return nil, domain.Outcome{}, err
	}
	side, err := domain.ParseSide(sideName)
	if err != nil {
		return nil, domain.Outcome{}, domain.ErrUnknownOutcome
	}
	return market, market.Outcomes[int(side)], nil
}
