package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"AnitMarket/internal/interfaces"

	"gorm.io/gorm"
)

// SQLTier 关系型存储层：主库（PostgreSQL）与嵌入式库（SQLite）共用同一套 gorm 仓储
type SQLTier struct {
	name string
	db   *gorm.DB

	// 启动时未完成迁移的层：首次连通后补做
	migrate  func(db *gorm.DB) error
	mu       sync.Mutex
	migrated atomic.Bool

	interfaces.UserStore
	interfaces.BetStore
	interfaces.FavoriteStore
	interfaces.PaymentStore
}

var (
	_ interfaces.Tier     = (*SQLTier)(nil)
	_ interfaces.Preparer = (*SQLTier)(nil)
)

// NewSQLTier 基于 gorm 连接构建一层存储
func NewSQLTier(name string, db *gorm.DB) *SQLTier {
	return &SQLTier{
		name:          name,
		db:            db,
		UserStore:     NewUserRepository(db),
		BetStore:      NewBetRepository(db),
		FavoriteStore: NewFavoriteRepository(db),
		PaymentStore:  NewPaymentRepository(db),
	}
}

// Name 层名称（primary / embedded）
func (t *SQLTier) Name() string { return t.name }

// Ping 检查底层连接
func (t *SQLTier) Ping(ctx context.Context) error {
	sqlDB, err := t.db.DB()
	if err != nil {
		return fmt.Errorf("%s: 获取SQL DB失败: %w", t.name, err)
	}
	return sqlDB.PingContext(ctx)
}

// WithMigration 启动时迁移失败（如主库未就绪）的层，在第一次连通时执行 fn
func (t *SQLTier) WithMigration(fn func(db *gorm.DB) error) *SQLTier {
	t.migrate = fn
	return t
}

// Prepare 补做迁移；成功前每次请求都会重试，失败时该层视为不可用
func (t *SQLTier) Prepare(ctx context.Context) error {
	if t.migrate == nil || t.migrated.Load() {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.migrated.Load() {
		return nil
	}
	if err := t.Ping(ctx); err != nil {
		return err
	}
	if err := t.migrate(t.db.WithContext(ctx)); err != nil {
		return fmt.Errorf("%s: 迁移表结构失败: %w", t.name, err)
	}
	t.migrated.Store(true)
	return nil
}

// Catalog 同一连接上的目录仓储，与本层共用迁移状态
func (t *SQLTier) Catalog() interfaces.CatalogStore {
	return &tierCatalog{CatalogStore: NewCatalogRepository(t.name, t.db), tier: t}
}

type tierCatalog struct {
	interfaces.CatalogStore
	tier *SQLTier
}

func (c *tierCatalog) Prepare(ctx context.Context) error { return c.tier.Prepare(ctx) }
