package repository

import (
	"context"
	"time"

	"AnitMarket/internal/interfaces"
	"AnitMarket/internal/model"

	"gorm.io/gorm"
)

type catalogRepository struct {
	name string
	db   *gorm.DB
}

// NewCatalogRepository 创建市场/分类/自定义竞猜目录仓储
func NewCatalogRepository(name string, db *gorm.DB) interfaces.CatalogStore {
	return &catalogRepository{name: name, db: db}
}

func (r *catalogRepository) Name() string { return r.name }

// ListMarkets 未过期（end_time 为空或晚于当前时间）的市场，带选项
func (r *catalogRepository) ListMarkets(ctx context.Context) ([]*model.Market, error) {
	var list []*model.Market
	if err := r.db.WithContext(ctx).
		Preload("Outcomes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("end_time IS NULL OR end_time > ?", time.Now()).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *catalogRepository) GetMarket(ctx context.Context, id string) (*model.Market, error) {
	var m model.Market
	if err := r.db.WithContext(ctx).
		Preload("Outcomes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (r *catalogRepository) ListCategories(ctx context.Context) ([]*model.Category, error) {
	var list []*model.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *catalogRepository) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	var c model.Category
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *catalogRepository) CreateCategory(ctx context.Context, c *model.Category) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// UpdateCategory 仅更新传入的字段；记录不存在返回 ErrNotFound
func (r *catalogRepository) UpdateCategory(ctx context.Context, id string, fields map[string]interface{}) (*model.Category, error) {
	if len(fields) > 0 {
		fields["updated_at"] = time.Now()
		res := r.db.WithContext(ctx).Model(&model.Category{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, interfaces.ErrNotFound
		}
	}
	return r.GetCategory(ctx, id)
}

func (r *catalogRepository) ListActiveCustomBets(ctx context.Context) ([]*model.CustomBet, error) {
	var list []*model.CustomBet
	if err := r.db.WithContext(ctx).
		Preload("Outcomes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *catalogRepository) GetCustomBet(ctx context.Context, id string) (*model.CustomBet, error) {
	var cb model.CustomBet
	if err := r.db.WithContext(ctx).
		Preload("Outcomes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("id = ?", id).First(&cb).Error; err != nil {
		return nil, notFound(err)
	}
	return &cb, nil
}

// CreateCustomBet 竞猜与选项在同一事务内写入
func (r *catalogRepository) CreateCustomBet(ctx context.Context, cb *model.CustomBet) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(cb).Error
	})
}
