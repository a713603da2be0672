package repository

import (
	"context"
	"errors"

	"AnitMarket/internal/interfaces"
	"AnitMarket/internal/model"

	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储
func NewUserRepository(db *gorm.DB) interfaces.UserStore {
	return &userRepository{db: db}
}

func (r *userRepository) GetUserByWallet(ctx context.Context, walletAddress string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("wallet_address = ?", walletAddress).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *userRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *userRepository) CreateUser(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// notFound 将 gorm.ErrRecordNotFound 统一转为 interfaces.ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return interfaces.ErrNotFound
	}
	return err
}
