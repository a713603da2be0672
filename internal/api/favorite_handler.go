package api

import (
	"net/http"

	"AnitMarket/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// FavoriteHandler 收藏接口
type FavoriteHandler struct {
	store  *service.Orchestrator
	logger *logrus.Logger
}

func NewFavoriteHandler(store *service.Orchestrator, logger *logrus.Logger) *FavoriteHandler {
	return &FavoriteHandler{store: store, logger: logger}
}

type favoriteRequest struct {
	UserID   string `json:"userId" binding:"required"`
	MarketID string `json:"marketId" binding:"required"`
}

// ListFavorites GET /api/favorites?userId=[&marketId=]
// 带 marketId 时只返回是否已收藏
func (h *FavoriteHandler) ListFavorites(c *gin.Context) {
	q, ok := requireQuery(c, "userId")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if marketID := c.Query("marketId"); marketID != "" {
		fav, err := h.store.IsFavorite(ctx, q["userId"], marketID)
		if err != nil {
			writeError(c, h.logger, "IsFavorite", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"isFavorite": fav})
		return
	}
	list, err := h.store.ListFavorites(ctx, q["userId"])
	if err != nil {
		writeError(c, h.logger, "ListFavorites", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": list})
}

// AddFavorite POST /api/favorites
func (h *FavoriteHandler) AddFavorite(c *gin.Context) {
	var req favoriteRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.store.AddFavorite(c.Request.Context(), req.UserID, req.MarketID); err != nil {
		writeError(c, h.logger, "AddFavorite", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "isFavorite": true})
}

// RemoveFavorite DELETE /api/favorites
func (h *FavoriteHandler) RemoveFavorite(c *gin.Context) {
	var req favoriteRequest
	if !bindJSON(c, &req) {
		return
	}
	removed, err := h.store.RemoveFavorite(c.Request.Context(), req.UserID, req.MarketID)
	if err != nil {
		writeError(c, h.logger, "RemoveFavorite", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "removed": removed, "isFavorite": false})
}

// ToggleFavorite POST /api/favorites/toggle
func (h *FavoriteHandler) ToggleFavorite(c *gin.Context) {
	var req favoriteRequest
	if !bindJSON(c, &req) {
		return
	}
	fav, err := h.store.ToggleFavorite(c.Request.Context(), req.UserID, req.MarketID)
	if err != nil {
		writeError(c, h.logger, "ToggleFavorite", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isFavorite": fav})
}
