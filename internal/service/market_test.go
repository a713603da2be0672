package service

import (
	"context"
	"strings"
	"testing"

	"AnitMarket/internal/interfaces"
	"AnitMarket/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListMarkets_SeedFallback(t *testing.T) {
	ctx := context.Background()
	store := NewOrchestrator([]interfaces.Tier{newLocalTier(t)}, quietLogger(), 0)

	// 目录层全部失败
	svc := NewMarketService([]interfaces.CatalogStore{downCatalog{}}, store, quietLogger())
	markets, err := svc.ListMarkets(ctx)
	require.NoError(t, err)
	assert.Len(t, markets, len(model.SeedMarkets()))

	// 目录为空
	empty := newSQLiteTier(t, TierEmbedded)
	svc = NewMarketService([]interfaces.CatalogStore{empty.Catalog()}, store, quietLogger())
	markets, err = svc.ListMarkets(ctx)
	require.NoError(t, err)
	assert.Equal(t, "market_1", markets[0].ID)

	crypto, err := svc.ListMarketsByCategory(ctx, "CRYPTO")
	require.NoError(t, err)
	require.NotEmpty(t, crypto)
	for _, m := range crypto {
		assert.Equal(t, "crypto", m.Category)
	}

	m, err := svc.GetMarket(ctx, "market_1")
	require.NoError(t, err)
	assert.NotEmpty(t, m.Outcomes)

	_, err = svc.GetMarket(ctx, "no_such_market")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListMarkets_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := NewMarketService([]interfaces.CatalogStore{downCatalog{}}, NewOrchestrator(nil, quietLogger(), 0), quietLogger())
	_, err := svc.ListMarkets(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCustomBets_VolumeDrivenProbabilities(t *testing.T) {
	ctx := context.Background()
	embedded := newSQLiteTier(t, TierEmbedded)
	store := NewOrchestrator([]interfaces.Tier{embedded}, quietLogger(), 0)
	svc := NewMarketService([]interfaces.CatalogStore{downCatalog{}, embedded.Catalog()}, store, quietLogger())

	cb, err := svc.CreateCustomBet(ctx, CreateCustomBetInput{
		Title:    "Who wins the final?",
		Category: "sports",
		Outcomes: []CustomOutcomeInput{
			{Name: "Home", Volume: 30},
			{Name: "Away", Volume: 70},
		},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(cb.ID, "custom_"))
	assert.Equal(t, 100.0, cb.TotalVolume)
	require.Len(t, cb.Outcomes, 2)
	assert.Equal(t, 30.0, cb.Outcomes[0].Probability)
	assert.Equal(t, cb.ID+"_o1", cb.Outcomes[0].ID)

	home := cb.Outcomes[0].ID
	_, err = store.CreateBet(ctx, CreateBetInput{UserID: "u1", MarketID: cb.ID, OutcomeID: home, Amount: 40, TransactionHash: "0xabc"})
	require.NoError(t, err)
	// 非真实交易不计入成交量
	_, err = store.CreateBet(ctx, CreateBetInput{UserID: "u2", MarketID: cb.ID, OutcomeID: home, Amount: 1000})
	require.NoError(t, err)

	list, err := svc.ListCustomBets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	m := list[0]
	assert.Equal(t, 140.0, m.Volume)
	assert.Equal(t, "sports", m.Category)
	require.Len(t, m.Outcomes, 2)
	assert.Equal(t, 50.0, m.Outcomes[0].Probability)
	assert.Equal(t, 50.0, m.Outcomes[1].Probability)
	assert.Equal(t, 70.0, *m.Outcomes[0].Volume)

	detail, err := svc.GetMarket(ctx, cb.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Volume, detail.Volume)

	stats, err := svc.MarketStats(ctx, cb.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.BetCount)
	assert.Equal(t, 1, stats.Traders)
	assert.Equal(t, 40.0, stats.Volume)
}

func TestCreateCustomBet_Validation(t *testing.T) {
	svc := NewMarketService(nil, NewOrchestrator(nil, quietLogger(), 0), quietLogger())
	_, err := svc.CreateCustomBet(context.Background(), CreateCustomBetInput{Title: "no outcomes"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateCustomBet(context.Background(), CreateCustomBetInput{
		Title:    "no catalog",
		Outcomes: []CustomOutcomeInput{{Name: "A"}, {Name: "B"}},
	})
	assert.ErrorIs(t, err, ErrAllTiersFailed)
}

func TestCustomBetToMarket_ZeroVolumeIsUniform(t *testing.T) {
	cb := &model.CustomBet{
		ID:       "custom_1",
		Title:    "t",
		IsActive: true,
		Outcomes: []model.CustomBetOutcome{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}},
	}
	m := CustomBetToMarket(cb, nil)
	for _, o := range m.Outcomes {
		assert.Equal(t, 25.0, o.Probability)
	}
	assert.True(t, m.IsLive)
	assert.Zero(t, m.Volume)
}

func TestCategories(t *testing.T) {
	ctx := context.Background()

	seeded := NewCategoryService([]interfaces.CatalogStore{downCatalog{}}, quietLogger())
	list, err := seeded.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, list, len(model.SeedCategories()))
	_, err = seeded.GetCategory(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)

	embedded := newSQLiteTier(t, TierEmbedded)
	svc := NewCategoryService([]interfaces.CatalogStore{downCatalog{}, embedded.Catalog()}, quietLogger())

	_, err = svc.CreateCategory(ctx, CategoryInput{ID: "science"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	name := "Science"
	created, err := svc.CreateCategory(ctx, CategoryInput{ID: "science", Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Science", created.Name)

	list, err = svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	color := "#00ff00"
	updated, err := svc.UpdateCategory(ctx, CategoryInput{ID: "science", Color: &color})
	require.NoError(t, err)
	assert.Equal(t, "Science", updated.Name)
	assert.Equal(t, "#00ff00", model.Deref(updated.Color))

	got, err := svc.GetCategory(ctx, "science")
	require.NoError(t, err)
	assert.Equal(t, "#00ff00", model.Deref(got.Color))

	_, err = svc.UpdateCategory(ctx, CategoryInput{ID: "missing", Color: &color})
	assert.ErrorIs(t, err, ErrNotFound)
}
