package api

import (
	"net/http"
	"strings"

	"AnitMarket/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// UserHandler 用户接口，身份以钱包地址为准
type UserHandler struct {
	store  *service.Orchestrator
	logger *logrus.Logger
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(store *service.Orchestrator, logger *logrus.Logger) *UserHandler {
	return &UserHandler{store: store, logger: logger}
}

// 兼容 walletAddress 与 wallet_address 两种写法
type createUserRequest struct {
	WalletAddress      string `json:"walletAddress"`
	WalletAddressSnake string `json:"wallet_address"`
	Username           string `json:"username"`
}

func (r createUserRequest) wallet() string {
	if w := strings.TrimSpace(r.WalletAddress); w != "" {
		return w
	}
	return strings.TrimSpace(r.WalletAddressSnake)
}

// GetUser GET /api/users?walletAddress=0x...
func (h *UserHandler) GetUser(c *gin.Context) {
	wallet := strings.TrimSpace(c.Query("walletAddress"))
	if wallet == "" {
		wallet = strings.TrimSpace(c.Query("wallet_address"))
	}
	if wallet == "" {
		respondMissing(c, []string{"walletAddress"})
		return
	}
	user, err := h.store.GetUserByWallet(c.Request.Context(), wallet)
	if err != nil {
		writeError(c, h.logger, "GetUser", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// CreateUser 幂等创建，已存在则原样返回
// POST /api/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req) {
		return
	}
	wallet := req.wallet()
	if wallet == "" {
		respondMissing(c, []string{"walletAddress"})
		return
	}
	user, err := h.store.CreateUser(c.Request.Context(), wallet, strings.TrimSpace(req.Username))
	if err != nil {
		writeError(c, h.logger, "CreateUser", err)
		return
	}
	c.JSON(http.StatusOK, user)
}
