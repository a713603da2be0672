package service

import (
	"context"

	"AnitMarket/internal/interfaces"
	"AnitMarket/internal/model"

	"github.com/sirupsen/logrus"
)

// CategoryService 分类目录，读取失败时回退到内置分类
type CategoryService struct {
	catalogs []interfaces.CatalogStore
	logger   *logrus.Logger
}

// NewCategoryService 创建 CategoryService
func NewCategoryService(catalogs []interfaces.CatalogStore, logger *logrus.Logger) *CategoryService {
	return &CategoryService{catalogs: catalogs, logger: logger}
}

func (s *CategoryService) ListCategories(ctx context.Context) ([]*model.Category, error) {
	list, err := catalogAttempt(ctx, s.catalogs, s.logger, "list_categories", func(ctx context.Context, c interfaces.CatalogStore) ([]*model.Category, error) {
		return c.ListCategories(ctx)
	})
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil || len(list) == 0 {
		return seedCategories(), nil
	}
	return list, nil
}

func (s *CategoryService) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	c, err := catalogAttempt(ctx, s.catalogs, s.logger, "get_category", func(ctx context.Context, c interfaces.CatalogStore) (*model.Category, error) {
		return c.GetCategory(ctx, id)
	})
	if err == nil {
		return c, nil
	}
	for _, seed := range seedCategories() {
		if seed.ID == id {
			return seed, nil
		}
	}
	return nil, ErrNotFound
}

// CategoryInput 创建/更新分类；更新时 nil 字段保持不变
type CategoryInput struct {
	ID          string
	Name        *string
	Description *string
	Color       *string
	Icon        *string
}

func (s *CategoryService) CreateCategory(ctx context.Context, in CategoryInput) (*model.Category, error) {
	if in.ID == "" || in.Name == nil || *in.Name == "" {
		return nil, ErrInvalidInput
	}
	cat := &model.Category{
		ID:          in.ID,
		Name:        *in.Name,
		Description: in.Description,
		Color:       in.Color,
		Icon:        in.Icon,
	}
	_, err := catalogAttempt(ctx, s.catalogs, s.logger, "create_category", func(ctx context.Context, c interfaces.CatalogStore) (struct{}, error) {
		return struct{}{}, c.CreateCategory(ctx, cat)
	})
	if err != nil {
		return nil, err
	}
	return cat, nil
}

func (s *CategoryService) UpdateCategory(ctx context.Context, in CategoryInput) (*model.Category, error) {
	if in.ID == "" {
		return nil, ErrInvalidInput
	}
	fields := make(map[string]interface{})
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Color != nil {
		fields["color"] = *in.Color
	}
	if in.Icon != nil {
		fields["icon"] = *in.Icon
	}
	return catalogAttempt(ctx, s.catalogs, s.logger, "update_category", func(ctx context.Context, c interfaces.CatalogStore) (*model.Category, error) {
		// 每层使用独立副本，repository 会往 map 里补 updated_at
		f := make(map[string]interface{}, len(fields)+1)
		for k, v := range fields {
			f[k] = v
		}
		return c.UpdateCategory(ctx, in.ID, f)
	})
}

func seedCategories() []*model.Category {
	seeds := model.SeedCategories()
	out := make([]*model.Category, len(seeds))
	for i := range seeds {
		out[i] = &seeds[i]
	}
	return out
}
