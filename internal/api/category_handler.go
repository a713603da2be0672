package api

import (
	"net/http"

	"AnitMarket/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CategoryHandler 分类接口
type CategoryHandler struct {
	categories *service.CategoryService
	logger     *logrus.Logger
}

func NewCategoryHandler(categories *service.CategoryService, logger *logrus.Logger) *CategoryHandler {
	return &CategoryHandler{categories: categories, logger: logger}
}

type categoryRequest struct {
	ID          string  `json:"id" binding:"required"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	Icon        *string `json:"icon"`
}

func (r categoryRequest) input() service.CategoryInput {
	return service.CategoryInput{ID: r.ID, Name: r.Name, Description: r.Description, Color: r.Color, Icon: r.Icon}
}

// ListCategories GET /api/categories[?id=]
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	if id := c.Query("id"); id != "" {
		cat, err := h.categories.GetCategory(c.Request.Context(), id)
		if err != nil {
			writeError(c, h.logger, "GetCategory", err)
			return
		}
		c.JSON(http.StatusOK, cat)
		return
	}
	list, err := h.categories.ListCategories(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "ListCategories", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreateCategory POST /api/categories
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Name == nil || *req.Name == "" {
		respondMissing(c, []string{"name"})
		return
	}
	cat, err := h.categories.CreateCategory(c.Request.Context(), req.input())
	if err != nil {
		writeError(c, h.logger, "CreateCategory", err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

// UpdateCategory PUT /api/categories，未传的字段保持不变
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	var req categoryRequest
	if !bindJSON(c, &req) {
		return
	}
	cat, err := h.categories.UpdateCategory(c.Request.Context(), req.input())
	if err != nil {
		writeError(c, h.logger, "UpdateCategory", err)
		return
	}
	c.JSON(http.StatusOK, cat)
}
