package api

import (
	"net/http"
	"time"

	"AnitMarket/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// MarketHandler 提供给前端的市场查询接口（目录市场 + 自定义竞猜）
type MarketHandler struct {
	marketService *service.MarketService
	logger        *logrus.Logger
}

// NewMarketHandler 创建 MarketHandler
func NewMarketHandler(marketService *service.MarketService, logger *logrus.Logger) *MarketHandler {
	return &MarketHandler{
		marketService: marketService,
		logger:        logger,
	}
}

// ListMarkets 市场列表接口
// GET /api/markets?category=crypto
func (h *MarketHandler) ListMarkets(c *gin.Context) {
	result, err := h.marketService.ListMarketsByCategory(c.Request.Context(), c.Query("category"))
	if err != nil {
		writeError(c, h.logger, "ListMarkets", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetMarket 市场详情
// GET /api/markets/:id
func (h *MarketHandler) GetMarket(c *gin.Context) {
	result, err := h.marketService.GetMarket(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "GetMarket", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetMarketStats 成交量、交易人数、下注数
// GET /api/markets/:id/stats
func (h *MarketHandler) GetMarketStats(c *gin.Context) {
	result, err := h.marketService.MarketStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "GetMarketStats", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListCustomBets 有效的自定义竞猜（市场结构，概率按成交量占比）
// GET /api/custom-bets
func (h *MarketHandler) ListCustomBets(c *gin.Context) {
	result, err := h.marketService.ListCustomBets(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "ListCustomBets", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type customOutcomeRequest struct {
	Name   string  `json:"name" binding:"required"`
	Color  string  `json:"color"`
	Volume float64 `json:"volume"`
}

type createCustomBetRequest struct {
	Title       string                 `json:"title" binding:"required"`
	Description string                 `json:"description"`
	Category    string                 `json:"category"`
	CategoryID  string                 `json:"categoryId"`
	ExpiredDay  *time.Time             `json:"expiredDay"`
	Outcomes    []customOutcomeRequest `json:"outcomes" binding:"required,min=1,dive"`
}

// CreateCustomBet 创建自定义竞猜
// POST /api/custom-bets
func (h *MarketHandler) CreateCustomBet(c *gin.Context) {
	var req createCustomBetRequest
	if !bindJSON(c, &req) {
		return
	}
	in := service.CreateCustomBetInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		CategoryID:  req.CategoryID,
		ExpiredDay:  req.ExpiredDay,
		Outcomes:    make([]service.CustomOutcomeInput, len(req.Outcomes)),
	}
	for i, o := range req.Outcomes {
		in.Outcomes[i] = service.CustomOutcomeInput{Name: o.Name, Color: o.Color, Volume: o.Volume}
	}
	cb, err := h.marketService.CreateCustomBet(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.logger, "CreateCustomBet", err)
		return
	}
	c.JSON(http.StatusCreated, cb)
}
