package repository

import (
	"context"

	"AnitMarket/internal/interfaces"
	"AnitMarket/internal/model"

	"gorm.io/gorm"
)

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付引用仓储
func NewPaymentRepository(db *gorm.DB) interfaces.PaymentStore {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) SavePayment(ctx context.Context, p *model.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *paymentRepository) GetPayment(ctx context.Context, id string) (*model.Payment, error) {
	var p model.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *paymentRepository) GetPaymentByReference(ctx context.Context, reference string) (*model.Payment, error) {
	var p model.Payment
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *paymentRepository) UpdatePayment(ctx context.Context, p *model.Payment) error {
	res := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"status":           p.Status,
			"transaction_hash": p.TransactionHash,
			"block_number":     p.BlockNumber,
			"updated_at":       p.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

func (r *paymentRepository) ListPaymentsByUser(ctx context.Context, userID string) ([]*model.Payment, error) {
	var list []*model.Payment
	if err := r.db.WithContext(ctx).Where("user_id = ? OR wallet_address = ?", userID, userID).
		Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
