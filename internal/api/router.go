package api

import (
	"net/http"
	"time"

	"AnitMarket/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Services 路由依赖
type Services struct {
	Store      *service.Orchestrator
	Markets    *service.MarketService
	Categories *service.CategoryService
	Payments   *service.PaymentService
}

// RegisterRoutes 注册全部 HTTP 接口
func RegisterRoutes(r *gin.Engine, svc Services, logger *logrus.Logger) {
	useJSONFieldNames()

	bets := NewBetHandler(svc.Store, logger)
	users := NewUserHandler(svc.Store, logger)
	markets := NewMarketHandler(svc.Markets, logger)
	categories := NewCategoryHandler(svc.Categories, logger)
	favorites := NewFavoriteHandler(svc.Store, logger)
	payments := NewPaymentHandler(svc.Payments, logger)

	r.GET("/health", healthHandler(svc.Store))

	g := r.Group("/api")

	g.GET("/bets", bets.ListBets)
	g.POST("/bets", bets.CreateBet)
	g.GET("/bets/:id", bets.GetBet)
	g.PATCH("/bets/:id/status", bets.UpdateBetStatus)
	g.POST("/migrate", bets.Migrate)

	g.GET("/users", users.GetUser)
	g.POST("/users", users.CreateUser)

	g.GET("/markets", markets.ListMarkets)
	g.GET("/markets/:id", markets.GetMarket)
	g.GET("/markets/:id/stats", markets.GetMarketStats)
	g.GET("/custom-bets", markets.ListCustomBets)
	g.POST("/custom-bets", markets.CreateCustomBet)

	g.GET("/categories", categories.ListCategories)
	g.POST("/categories", categories.CreateCategory)
	g.PUT("/categories", categories.UpdateCategory)

	g.GET("/favorites", favorites.ListFavorites)
	g.POST("/favorites", favorites.AddFavorite)
	g.DELETE("/favorites", favorites.RemoveFavorite)
	g.POST("/favorites/toggle", favorites.ToggleFavorite)

	g.POST("/payment/initiate", payments.Initiate)
	g.POST("/payment/confirm", payments.Confirm)
	g.POST("/payment/verify", payments.Verify)
	g.GET("/payment/history", payments.History)
	g.POST("/webhook/transfer-reference", payments.TransferReference)
	g.GET("/webhook/transfer-reference", payments.TransferReferenceChallenge)
}

// healthHandler 各存储层连通性；至少一层可用即为 ok
func healthHandler(store *service.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tiers := store.Health(c.Request.Context())
		status := "down"
		for _, t := range tiers {
			if t.OK {
				status = "ok"
				break
			}
		}
		code := http.StatusOK
		if status != "ok" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status,
			"tiers":     tiers,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
