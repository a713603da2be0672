package repository

import (
	"context"
	"time"

	"AnitMarket/internal/interfaces"
	"AnitMarket/internal/model"

	"gorm.io/gorm"
)

type betRepository struct {
	db *gorm.DB
}

// NewBetRepository 创建下注仓储
func NewBetRepository(db *gorm.DB) interfaces.BetStore {
	return &betRepository{db: db}
}

func (r *betRepository) CreateBet(ctx context.Context, bet *model.Bet) error {
	return r.db.WithContext(ctx).Create(bet).Error
}

func (r *betRepository) GetBet(ctx context.Context, id string) (*model.Bet, error) {
	var b model.Bet
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *betRepository) ListBetsByUser(ctx context.Context, userID string) ([]*model.Bet, error) {
	var list []*model.Bet
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ListBetsByWallet 通过 users 关联钱包地址，同时匹配下注时冗余保存的钱包地址
func (r *betRepository) ListBetsByWallet(ctx context.Context, walletAddress string) ([]*model.Bet, error) {
	var list []*model.Bet
	if err := r.db.WithContext(ctx).Table("bets AS b").
		Select("b.*").
		Joins("LEFT JOIN users u ON b.user_id = u.id").
		Where("u.wallet_address = ? OR b.wallet_address = ?", walletAddress, walletAddress).
		Order("b.created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *betRepository) ListBetsByMarket(ctx context.Context, marketID string) ([]*model.Bet, error) {
	var list []*model.Bet
	if err := r.db.WithContext(ctx).Where("market_id = ?", marketID).
		Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *betRepository) ListBets(ctx context.Context) ([]*model.Bet, error) {
	var list []*model.Bet
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *betRepository) CountBets(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Bet{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *betRepository) UpdateBetStatus(ctx context.Context, id, status string) (*model.Bet, error) {
	res := r.db.WithContext(ctx).Model(&model.Bet{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, interfaces.ErrNotFound
	}
	return r.GetBet(ctx, id)
}
