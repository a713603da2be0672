package repository

import (
	"context"

	"AnitMarket/internal/interfaces"
	"AnitMarket/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type favoriteRepository struct {
	db *gorm.DB
}

// NewFavoriteRepository 创建收藏仓储
func NewFavoriteRepository(db *gorm.DB) interfaces.FavoriteStore {
	return &favoriteRepository{db: db}
}

// AddFavorite 已存在时不报错（ON CONFLICT DO NOTHING）
func (r *favoriteRepository) AddFavorite(ctx context.Context, fav *model.Favorite) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "market_id"}},
		DoNothing: true,
	}).Create(fav).Error
}

func (r *favoriteRepository) RemoveFavorite(ctx context.Context, userID, marketID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND market_id = ?", userID, marketID).
		Delete(&model.Favorite{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *favoriteRepository) IsFavorite(ctx context.Context, userID, marketID string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Favorite{}).
		Where("user_id = ? AND market_id = ?", userID, marketID).
		Limit(1).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *favoriteRepository) ListFavorites(ctx context.Context, userID string) ([]*model.Favorite, error) {
	var list []*model.Favorite
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
