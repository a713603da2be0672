package interfaces

import (
	"context"
	"errors"

	"AnitMarket/internal/model"
)

// ErrNotFound 存储层明确回答“不存在”（区别于该层不可用）
var ErrNotFound = errors.New("record not found")

// UserStore 用户存储。CreateUser 只负责插入，幂等由调用方先查后插保证
type UserStore interface {
	GetUserByWallet(ctx context.Context, walletAddress string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error
}

// BetStore 下注记录存储，列表均按 created_at 倒序
type BetStore interface {
	CreateBet(ctx context.Context, bet *model.Bet) error
	GetBet(ctx context.Context, id string) (*model.Bet, error)
	ListBetsByUser(ctx context.Context, userID string) ([]*model.Bet, error)
	ListBetsByWallet(ctx context.Context, walletAddress string) ([]*model.Bet, error)
	ListBetsByMarket(ctx context.Context, marketID string) ([]*model.Bet, error)
	ListBets(ctx context.Context) ([]*model.Bet, error)
	CountBets(ctx context.Context) (int64, error)
	UpdateBetStatus(ctx context.Context, id, status string) (*model.Bet, error)
}

// FavoriteStore 收藏存储，AddFavorite 幂等
type FavoriteStore interface {
	AddFavorite(ctx context.Context, fav *model.Favorite) error
	RemoveFavorite(ctx context.Context, userID, marketID string) (bool, error)
	IsFavorite(ctx context.Context, userID, marketID string) (bool, error)
	ListFavorites(ctx context.Context, userID string) ([]*model.Favorite, error)
}

// PaymentStore 支付引用存储
type PaymentStore interface {
	SavePayment(ctx context.Context, p *model.Payment) error
	GetPayment(ctx context.Context, id string) (*model.Payment, error)
	GetPaymentByReference(ctx context.Context, reference string) (*model.Payment, error)
	UpdatePayment(ctx context.Context, p *model.Payment) error
	ListPaymentsByUser(ctx context.Context, userID string) ([]*model.Payment, error)
}

// Tier 一层存储（主库/嵌入式/本地），由编排器按固定顺序依次尝试
type Tier interface {
	Name() string
	Ping(ctx context.Context) error
	UserStore
	BetStore
	FavoriteStore
	PaymentStore
}

// CatalogStore 市场、分类、自定义竞猜目录，仅关系型层实现
type CatalogStore interface {
	Name() string
	ListMarkets(ctx context.Context) ([]*model.Market, error)
	GetMarket(ctx context.Context, id string) (*model.Market, error)
	ListCategories(ctx context.Context) ([]*model.Category, error)
	GetCategory(ctx context.Context, id string) (*model.Category, error)
	CreateCategory(ctx context.Context, c *model.Category) error
	UpdateCategory(ctx context.Context, id string, fields map[string]interface{}) (*model.Category, error)
	ListActiveCustomBets(ctx context.Context) ([]*model.CustomBet, error)
	GetCustomBet(ctx context.Context, id string) (*model.CustomBet, error)
	CreateCustomBet(ctx context.Context, cb *model.CustomBet) error
}

// Preparer 可选：层在处理请求前需要完成的准备工作（如连接恢复后补做表结构迁移）
type Preparer interface {
	Prepare(ctx context.Context) error
}
