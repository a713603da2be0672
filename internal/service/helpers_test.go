package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"AnitMarket/internal/database"
	"AnitMarket/internal/interfaces"
	"AnitMarket/internal/localstore"
	"AnitMarket/internal/model"
	"AnitMarket/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var errTierDown = errors.New("connection refused")

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// downTier 每个操作都失败；block 为 true 时一直等到 ctx 结束
type downTier struct {
	name  string
	block bool
	calls int
}

func (d *downTier) fail(ctx context.Context) error {
	d.calls++
	if d.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return errTierDown
}

func (d *downTier) Name() string { return d.name }
func (d *downTier) Ping(ctx context.Context) error { return d.fail(ctx) }

func (d *downTier) GetUserByWallet(ctx context.Context, _ string) (*model.User, error) {
	return nil, d.fail(ctx)
}
func (d *downTier) GetUserByID(ctx context.Context, _ string) (*model.User, error) {
	return nil, d.fail(ctx)
}
func (d *downTier) CreateUser(ctx context.Context, _ *model.User) error { return d.fail(ctx) }

func (d *downTier) CreateBet(ctx context.Context, _ *model.Bet) error { return d.fail(ctx) }
func (d *downTier) GetBet(ctx context.Context, _ string) (*model.Bet, error) {
	return nil, d.fail(ctx)
}
func (d *downTier) ListBetsByUser(ctx context.Context, _ string) ([]*model.Bet, error) {
	return nil, d.fail(ctx)
}
func (d *downTier) ListBetsByWallet(ctx context.Context, _ string) ([]*model.Bet, error) {
	return nil, d.fail(ctx)
}
func (d *downTier) ListBetsByMarket(ctx context.Context, _ string) ([]*model.Bet, error) {
	return nil, d.fail(ctx)
}
func (d *downTier) ListBets(ctx context.Context) ([]*model.Bet, error) { return nil, d.fail(ctx) }
func (d *downTier) CountBets(ctx context.Context) (int64, error) { return 0, d.fail(ctx) }
func (d *downTier) UpdateBetStatus(ctx context.Context, _, _ string) (*model.Bet, error) {
	return nil, d.fail(ctx)
}

func (d *downTier) AddFavorite(ctx context.Context, _ *model.Favorite) error { return d.fail(ctx) }
func (d *downTier) RemoveFavorite(ctx context.Context, _, _ string) (bool, error) {
	return false, d.fail(ctx)
}
func (d *downTier) IsFavorite(ctx context.Context, _, _ string) (bool, error) {
	return false, d.fail(ctx)
}
func (d *downTier) ListFavorites(ctx context.Context, _ string) ([]*model.Favorite, error) {
	return nil, d.fail(ctx)
}

func (d *downTier) SavePayment(ctx context.Context, _ *model.Payment) error { return d.fail(ctx) }
func (d *downTier) GetPayment(ctx context.Context, _ string) (*model.Payment, error) {
	return nil, d.fail(ctx)
}
func (d *downTier) GetPaymentByReference(ctx context.Context, _ string) (*model.Payment, error) {
	return nil, d.fail(ctx)
}
func (d *downTier) UpdatePayment(ctx context.Context, _ *model.Payment) error { return d.fail(ctx) }
func (d *downTier) ListPaymentsByUser(ctx context.Context, _ string) ([]*model.Payment, error) {
	return nil, d.fail(ctx)
}

var _ interfaces.Tier = (*downTier)(nil)

// downCatalog 目录层全部失败
type downCatalog struct{}

func (downCatalog) Name() string { return TierPrimary }
func (downCatalog) ListMarkets(context.Context) ([]*model.Market, error) {
	return nil, errTierDown
}
func (downCatalog) GetMarket(context.Context, string) (*model.Market, error) {
	return nil, errTierDown
}
func (downCatalog) ListCategories(context.Context) ([]*model.Category, error) {
	return nil, errTierDown
}
func (downCatalog) GetCategory(context.Context, string) (*model.Category, error) {
	return nil, errTierDown
}
func (downCatalog) CreateCategory(context.Context, *model.Category) error { return errTierDown }
func (downCatalog) UpdateCategory(context.Context, string, map[string]interface{}) (*model.Category, error) {
	return nil, errTierDown
}
func (downCatalog) ListActiveCustomBets(context.Context) ([]*model.CustomBet, error) {
	return nil, errTierDown
}
func (downCatalog) GetCustomBet(context.Context, string) (*model.CustomBet, error) {
	return nil, errTierDown
}
func (downCatalog) CreateCustomBet(context.Context, *model.CustomBet) error { return errTierDown }

var _ interfaces.CatalogStore = downCatalog{}

func newSQLiteTier(t *testing.T, name string) *repository.SQLTier {
	t.Helper()
	db, err := database.OpenSQLite("file:"+uuid.NewString()+"?mode=memory&cache=shared", nil)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return repository.NewSQLTier(name, db)
}

func newLocalTier(t *testing.T) *localstore.Store {
	t.Helper()
	kv, err := localstore.NewMemoryKV("")
	require.NoError(t, err)
	return localstore.NewStore(kv, "")
}
