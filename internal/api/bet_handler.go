package api

import (
	"net/http"
	"strings"

	"AnitMarket/internal/model"
	"AnitMarket/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// BetHandler 下注记录接口
type BetHandler struct {
	store  *service.Orchestrator
	logger *logrus.Logger
}

// NewBetHandler 创建 BetHandler
func NewBetHandler(store *service.Orchestrator, logger *logrus.Logger) *BetHandler {
	return &BetHandler{store: store, logger: logger}
}

type createBetRequest struct {
	UserID            string   `json:"userId" binding:"required_without=WalletAddress"`
	WalletAddress     string   `json:"walletAddress"`
	MarketID          string   `json:"marketId" binding:"required"`
	OutcomeID         string   `json:"outcomeId" binding:"required"`
	Amount            *float64 `json:"amount" binding:"required"`
	TransactionHash   string   `json:"transactionHash"`
	IsRealTransaction *bool    `json:"isRealTransaction"`
	MarketTitle       string   `json:"marketTitle"`
	OutcomeName       string   `json:"outcomeName"`
	Probability       *float64 `json:"probability"`
}

// ListBets 下注列表，按时间倒序
// GET /api/bets?userId= | ?walletAddress= | ?marketId= | 无参数返回全部
func (h *BetHandler) ListBets(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		result interface{}
		err    error
	)
	switch {
	case c.Query("userId") != "":
		result, err = h.store.GetBetsByUser(ctx, c.Query("userId"))
	case c.Query("walletAddress") != "":
		result, err = h.store.GetBetsByWallet(ctx, c.Query("walletAddress"))
	case c.Query("marketId") != "":
		result, err = h.store.GetBetsByMarket(ctx, c.Query("marketId"))
	default:
		result, err = h.store.ListBets(ctx)
	}
	if err != nil {
		writeError(c, h.logger, "ListBets", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CreateBet 下单（记录意向，不做金额/选项/过期校验）
// POST /api/bets
func (h *BetHandler) CreateBet(c *gin.Context) {
	var req createBetRequest
	if !bindJSON(c, &req) {
		return
	}
	bet, err := h.store.CreateBet(c.Request.Context(), service.CreateBetInput{
		UserID:            strings.TrimSpace(req.UserID),
		WalletAddress:     strings.TrimSpace(req.WalletAddress),
		MarketID:          req.MarketID,
		OutcomeID:         req.OutcomeID,
		Amount:            *req.Amount,
		TransactionHash:   req.TransactionHash,
		IsRealTransaction: req.IsRealTransaction,
		MarketTitle:       req.MarketTitle,
		OutcomeName:       req.OutcomeName,
		Probability:       req.Probability,
	})
	if err != nil {
		writeError(c, h.logger, "CreateBet", err)
		return
	}
	c.JSON(http.StatusCreated, bet)
}

// GetBet GET /api/bets/:id
func (h *BetHandler) GetBet(c *gin.Context) {
	bet, err := h.store.GetBet(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "GetBet", err)
		return
	}
	c.JSON(http.StatusOK, bet)
}

type updateBetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateBetStatus PATCH /api/bets/:id/status
func (h *BetHandler) UpdateBetStatus(c *gin.Context) {
	var req updateBetStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	bet, err := h.store.UpdateBetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, h.logger, "UpdateBetStatus", err)
		return
	}
	c.JSON(http.StatusOK, bet)
}

type localBet struct {
	ID              string   `json:"id"`
	MarketID        string   `json:"market_id"`
	OutcomeID       string   `json:"outcome_id"`
	Amount          float64  `json:"amount"`
	TransactionHash string   `json:"transaction_hash"`
	MarketTitle     string   `json:"market_title"`
	OutcomeName     string   `json:"outcome_name"`
	Probability     *float64 `json:"probability"`
	Status          string   `json:"status"`
}

type migrateRequest struct {
	WalletAddress    string     `json:"walletAddress" binding:"required"`
	LocalStorageBets []localBet `json:"localStorageBets" binding:"required"`
}

// Migrate 把客户端本地保存的下注迁入嵌入式库（嵌入式库已有数据时跳过）
// POST /api/migrate
func (h *BetHandler) Migrate(c *gin.Context) {
	var req migrateRequest
	if !bindJSON(c, &req) {
		return
	}
	bets := make([]model.Bet, 0, len(req.LocalStorageBets))
	for _, lb := range req.LocalStorageBets {
		marketID := lb.MarketID
		if marketID == "" {
			marketID = lb.OutcomeID
		}
		bets = append(bets, model.Bet{
			ID:                lb.ID,
			MarketID:          marketID,
			OutcomeID:         lb.OutcomeID,
			Amount:            lb.Amount,
			Status:            lb.Status,
			TransactionHash:   model.StringPtr(lb.TransactionHash),
			IsRealTransaction: lb.TransactionHash != "",
			MarketTitle:       model.StringPtr(lb.MarketTitle),
			OutcomeName:       model.StringPtr(lb.OutcomeName),
			Probability:       lb.Probability,
		})
	}
	res, err := h.store.ImportBets(c.Request.Context(), strings.TrimSpace(req.WalletAddress), bets)
	if err != nil {
		writeError(c, h.logger, "Migrate", err)
		return
	}
	if res.Existing > 0 {
		c.JSON(http.StatusOK, gin.H{"message": "embedded store already has bets", "existingCount": res.Existing})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Migration completed successfully", "migratedCount": res.Imported})
}
