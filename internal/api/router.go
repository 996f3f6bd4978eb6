package api

import (
	"net/http"

	"github.com/evrimtas/outcomemarket/internal/api/handler"
	"github.com/evrimtas/outcomemarket/internal/api/middleware"
	"github.com/evrimtas/outcomemarket/internal/config"
	"github.com/evrimtas/outcomemarket/internal/repository"
	"github.com/evrimtas/outcomemarket/internal/service"
	"github.com/evrimtas/outcomemarket/internal/ws"
	"github.com/gin-gonic/gin"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	MarketSvc *service.MarketService
	Events    *repository.EventRepository
	Hub       *ws.Hub
	Cfg       *config.Config
}

// SetupRouter creates and configures the main Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// ── CORS ─────────────────────────────────────────────────────────────────
	r.Use(corsMiddleware(deps.Cfg))

	// ── Health check ─────────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	codec := middleware.NewCapTokenCodec([]byte(deps.Cfg.Cap.TokenSecret), deps.Cfg.Cap.TokenTTL)
	marketH := handler.NewMarketHandler(deps.MarketSvc, deps.Events)
	tradeH := handler.NewTradeHandler(deps.MarketSvc)
	adminH := handler.NewAdminHandler(deps.MarketSvc, codec, deps.Cfg)

	// ── Capability middleware (shared) ───────────────────────────────────────
	capMW := middleware.CapTokenMiddleware(codec)

	// ── Rate limiters ─────────────────────────────────────────────────────────
	createRL := middleware.RateLimitMiddleware(5) // 5 req/s per IP for market creation
	tradeRL := middleware.RateLimitMiddleware(30) // 30 req/s per IP for trade endpoints

	api := r.Group("/api")
	{
		markets := api.Group("/markets")
		{
			// ── Public reads ─────────────────────────────────────────────────
			markets.GET("", marketH.ListMarkets)
			markets.GET("/:id", marketH.GetByID)
			markets.GET("/:id/events", marketH.ListEvents)
			markets.POST("/:id/preview", marketH.Preview)

			// ── Creation (public, strict rate limit) ─────────────────────────
			markets.POST("", createRL, adminH.Create)

			// ── Trading (public, rate limited) ───────────────────────────────
			trade := markets.Group("")
			trade.Use(tradeRL)
			{
				trade.POST("/:id/buy", tradeH.Buy)
				trade.POST("/:id/sell", tradeH.Sell)
				trade.POST("/:id/redeem", tradeH.Redeem)
			}

			// ── Management (capability token required) ───────────────────────
			managed := markets.Group("")
			managed.Use(capMW)
			{
				managed.POST("/:id/pause", adminH.Pause)
				managed.POST("/:id/resume", adminH.Resume)
				managed.POST("/:id/resolve", adminH.Resolve)
				managed.POST("/:id/close", adminH.Close)
				managed.PATCH("/:id/fee", adminH.UpdateFee)
				managed.PATCH("/:id/content", adminH.UpdateContent)
				managed.POST("/:id/fee/withdraw", adminH.WithdrawFee)
				managed.POST("/:id/capability/rotate", adminH.RotateCapability)
			}
		}
	}

	// ── WebSocket ─────────────────────────────────────────────────────────────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return r
}

// ── CORS helper ───────────────────────────────────────────────────────────────

// corsMiddleware returns a gin middleware that sets appropriate CORS headers.
// In development all origins are allowed; in production none are, until an
// operator fronts the API with its own origin policy.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.IsProd() {
			c.Header("Access-Control-Allow-Origin", "*")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
