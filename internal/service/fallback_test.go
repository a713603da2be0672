package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"AnitMarket/internal/database"
	"AnitMarket/internal/interfaces"
	"AnitMarket/internal/model"
	"AnitMarket/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestNewOrchestrator_SkipsNilTiers(t *testing.T) {
	local := newLocalTier(t)
	o := NewOrchestrator([]interfaces.Tier{nil, local}, quietLogger(), 0)
	require.Len(t, o.Tiers(), 1)
	assert.Equal(t, TierLocal, o.Tiers()[0].Name())
}

func TestCreateBet_PrimaryDownWritesEmbedded(t *testing.T) {
	ctx := context.Background()
	primary := &downTier{name: TierPrimary}
	embedded := newSQLiteTier(t, TierEmbedded)
	local := newLocalTier(t)
	o := NewOrchestrator([]interfaces.Tier{primary, embedded, local}, quietLogger(), time.Second)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	o.SetClock(func() time.Time { return now })

	bet, err := o.CreateBet(ctx, CreateBetInput{
		WalletAddress: "0xabc",
		MarketID:      "market_1",
		OutcomeID:     "yes",
		Amount:        10,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(bet.ID, "bet_"))
	assert.Equal(t, model.BetStatusPending, bet.Status)
	assert.True(t, bet.CreatedAt.Equal(now))
	assert.Equal(t, 1, primary.calls)

	// 用户在同一层内解析
	u, err := embedded.GetUserByWallet(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, u.ID, bet.UserID)

	stored, err := embedded.GetBet(ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, "market_1", stored.MarketID)

	// 成功后不再尝试后续层
	n, err := local.CountBets(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateBet_AllTiersFail(t *testing.T) {
	o := NewOrchestrator([]interfaces.Tier{&downTier{name: TierPrimary}, &downTier{name: TierEmbedded}}, quietLogger(), 0)
	_, err := o.CreateBet(context.Background(), CreateBetInput{UserID: "u", MarketID: "m", OutcomeID: "o", Amount: 1})
	assert.ErrorIs(t, err, ErrAllTiersFailed)
}

func TestCreateBet_Validation(t *testing.T) {
	local := newLocalTier(t)
	o := NewOrchestrator([]interfaces.Tier{local}, quietLogger(), 0)
	ctx := context.Background()

	_, err := o.CreateBet(ctx, CreateBetInput{UserID: "u", OutcomeID: "o", Amount: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = o.CreateBet(ctx, CreateBetInput{MarketID: "m", OutcomeID: "o", Amount: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	n, err := local.CountBets(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateBet_IsRealTransactionDefault(t *testing.T) {
	ctx := context.Background()
	o := NewOrchestrator([]interfaces.Tier{newLocalTier(t)}, quietLogger(), 0)

	withHash, err := o.CreateBet(ctx, CreateBetInput{UserID: "u", MarketID: "m", OutcomeID: "o", Amount: 1, TransactionHash: "0x1"})
	require.NoError(t, err)
	assert.True(t, withHash.IsRealTransaction)

	noHash, err := o.CreateBet(ctx, CreateBetInput{UserID: "u", MarketID: "m", OutcomeID: "o", Amount: 1})
	require.NoError(t, err)
	assert.False(t, noHash.IsRealTransaction)

	explicit := false
	overridden, err := o.CreateBet(ctx, CreateBetInput{UserID: "u", MarketID: "m", OutcomeID: "o", Amount: 1, TransactionHash: "0x2", IsRealTransaction: &explicit})
	require.NoError(t, err)
	assert.False(t, overridden.IsRealTransaction)
}

func TestCreateBet_BlockedTierTimesOut(t *testing.T) {
	ctx := context.Background()
	slow := &downTier{name: TierPrimary, block: true}
	local := newLocalTier(t)
	o := NewOrchestrator([]interfaces.Tier{slow, local}, quietLogger(), 50*time.Millisecond)

	start := time.Now()
	bet, err := o.CreateBet(ctx, CreateBetInput{UserID: "u", MarketID: "m", OutcomeID: "o", Amount: 1})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	got, err := local.GetBet(ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, bet.ID, got.ID)
}

func TestReads_AllTiersFail(t *testing.T) {
	ctx := context.Background()
	o := NewOrchestrator([]interfaces.Tier{&downTier{name: TierPrimary}, &downTier{name: TierLocal}}, quietLogger(), 0)

	bets, err := o.GetBetsByUser(ctx, "u")
	require.NoError(t, err)
	assert.NotNil(t, bets)
	assert.Empty(t, bets)

	favs, err := o.ListFavorites(ctx, "u")
	require.NoError(t, err)
	assert.Empty(t, favs)

	_, err = o.GetBet(ctx, "bet_1")
	assert.ErrorIs(t, err, ErrNotFound)

	fav, err := o.IsFavorite(ctx, "u", "m")
	require.NoError(t, err)
	assert.False(t, fav)
}

func TestGetBet_FallsThroughNotFound(t *testing.T) {
	ctx := context.Background()
	embedded := newSQLiteTier(t, TierEmbedded)
	local := newLocalTier(t)
	require.NoError(t, local.CreateBet(ctx, &model.Bet{ID: "bet_local", UserID: "u", MarketID: "m", OutcomeID: "o"}))
	o := NewOrchestrator([]interfaces.Tier{embedded, local}, quietLogger(), 0)

	got, err := o.GetBet(ctx, "bet_local")
	require.NoError(t, err)
	assert.Equal(t, "bet_local", got.ID)

	_, err = o.GetBet(ctx, "nowhere")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListBets_FirstTierWinsWithoutMerge(t *testing.T) {
	ctx := context.Background()
	embedded := newSQLiteTier(t, TierEmbedded)
	local := newLocalTier(t)
	require.NoError(t, embedded.CreateBet(ctx, &model.Bet{ID: "bet_a", UserID: "u", MarketID: "m", OutcomeID: "o"}))
	require.NoError(t, local.CreateBet(ctx, &model.Bet{ID: "bet_b", UserID: "u", MarketID: "m", OutcomeID: "o"}))
	o := NewOrchestrator([]interfaces.Tier{&downTier{name: TierPrimary}, embedded, local}, quietLogger(), 0)

	bets, err := o.ListBets(ctx)
	require.NoError(t, err)
	require.Len(t, bets, 1)
	assert.Equal(t, "bet_a", bets[0].ID)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := NewOrchestrator([]interfaces.Tier{newLocalTier(t)}, quietLogger(), 0)

	_, err := o.GetBet(ctx, "bet_1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUpdateBetStatus(t *testing.T) {
	ctx := context.Background()
	local := newLocalTier(t)
	o := NewOrchestrator([]interfaces.Tier{local}, quietLogger(), 0)
	bet, err := o.CreateBet(ctx, CreateBetInput{UserID: "u", MarketID: "m", OutcomeID: "o", Amount: 1})
	require.NoError(t, err)

	_, err = o.UpdateBetStatus(ctx, bet.ID, "settled")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	updated, err := o.UpdateBetStatus(ctx, bet.ID, model.BetStatusWon)
	require.NoError(t, err)
	assert.Equal(t, model.BetStatusWon, updated.Status)

	_, err = o.UpdateBetStatus(ctx, "missing", model.BetStatusWon)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateUser_Idempotent(t *testing.T) {
	ctx := context.Background()
	o := NewOrchestrator([]interfaces.Tier{newSQLiteTier(t, TierEmbedded)}, quietLogger(), 0)

	first, err := o.CreateUser(ctx, "0xabcdef1234567890", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.ID, "user_"))
	assert.Equal(t, "User 0xabcd...7890", first.Username)

	second, err := o.CreateUser(ctx, "0xabcdef1234567890", "other")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = o.CreateUser(ctx, "  ", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = o.GetUserByWallet(ctx, "0xunknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImportBets(t *testing.T) {
	ctx := context.Background()

	_, err := NewOrchestrator([]interfaces.Tier{newLocalTier(t)}, quietLogger(), 0).
		ImportBets(ctx, "0xw", nil)
	assert.ErrorIs(t, err, ErrTierUnavailable)

	embedded := newSQLiteTier(t, TierEmbedded)
	o := NewOrchestrator([]interfaces.Tier{&downTier{name: TierPrimary}, embedded, newLocalTier(t)}, quietLogger(), 0)

	res, err := o.ImportBets(ctx, "0xw", []model.Bet{
		{MarketID: "market_1", OutcomeID: "yes", Amount: 5, Status: "unknown"},
		{ID: "bet_old", MarketID: "market_2", OutcomeID: "no", Amount: 2, Status: model.BetStatusWon},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Zero(t, res.Existing)

	bets, err := o.GetBetsByWallet(ctx, "0xw")
	require.NoError(t, err)
	require.Len(t, bets, 2)
	statuses := map[string]string{}
	for _, b := range bets {
		statuses[b.MarketID] = b.Status
	}
	assert.Equal(t, model.BetStatusPending, statuses["market_1"])
	assert.Equal(t, model.BetStatusWon, statuses["market_2"])

	again, err := o.ImportBets(ctx, "0xw", []model.Bet{{MarketID: "m", OutcomeID: "o", Amount: 1}})
	require.NoError(t, err)
	assert.Zero(t, again.Imported)
	assert.EqualValues(t, 2, again.Existing)
}

func TestFavorites(t *testing.T) {
	ctx := context.Background()
	o := NewOrchestrator([]interfaces.Tier{&downTier{name: TierPrimary}, newLocalTier(t)}, quietLogger(), 0)

	require.NoError(t, o.AddFavorite(ctx, "u", "market_1"))
	require.NoError(t, o.AddFavorite(ctx, "u", "market_1"))
	list, err := o.ListFavorites(ctx, "u")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	fav, err := o.ToggleFavorite(ctx, "u", "market_1")
	require.NoError(t, err)
	assert.False(t, fav)
	fav, err = o.ToggleFavorite(ctx, "u", "market_1")
	require.NoError(t, err)
	assert.True(t, fav)

	removed, err := o.RemoveFavorite(ctx, "u", "market_1")
	require.NoError(t, err)
	assert.True(t, removed)
	fav, err = o.IsFavorite(ctx, "u", "market_1")
	require.NoError(t, err)
	assert.False(t, fav)
}

func TestUpdatePayment_StampsClock(t *testing.T) {
	ctx := context.Background()
	embedded := newSQLiteTier(t, TierEmbedded)
	o := NewOrchestrator([]interfaces.Tier{embedded}, quietLogger(), 0)
	stamp := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	o.SetClock(func() time.Time { return stamp })

	p := &model.Payment{ID: "pay_1", Reference: "bet-m-o-1", Status: model.PaymentStatusPending, Amount: 1}
	require.NoError(t, o.SavePayment(ctx, p))

	p.Status = model.PaymentStatusCompleted
	require.NoError(t, o.UpdatePayment(ctx, p))
	assert.True(t, p.UpdatedAt.Equal(stamp))

	got, err := o.GetPaymentByReference(ctx, "bet-m-o-1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, got.Status)

	assert.ErrorIs(t, o.UpdatePayment(ctx, &model.Payment{ID: "missing"}), ErrNotFound)
}

func TestHealth(t *testing.T) {
	o := NewOrchestrator([]interfaces.Tier{&downTier{name: TierPrimary}, newLocalTier(t)}, quietLogger(), 0)
	health := o.Health(context.Background())
	require.Len(t, health, 2)
	assert.Equal(t, TierPrimary, health[0].Name)
	assert.False(t, health[0].OK)
	assert.Equal(t, errTierDown.Error(), health[0].Error)
	assert.Equal(t, TierLocal, health[1].Name)
	assert.True(t, health[1].OK)
}

func TestCreateBet_FallthroughKeepsSuppliedFields(t *testing.T) {
	cases := []struct {
		name  string
		tiers func(t *testing.T) ([]interfaces.Tier, interfaces.Tier)
	}{
		{
			name: "embedded",
			tiers: func(t *testing.T) ([]interfaces.Tier, interfaces.Tier) {
				embedded := newSQLiteTier(t, TierEmbedded)
				return []interfaces.Tier{&downTier{name: TierPrimary}, embedded, newLocalTier(t)}, embedded
			},
		},
		{
			name: "local",
			tiers: func(t *testing.T) ([]interfaces.Tier, interfaces.Tier) {
				local := newLocalTier(t)
				return []interfaces.Tier{&downTier{name: TierPrimary}, &downTier{name: TierEmbedded}, local}, local
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			tiers, target := tc.tiers(t)
			o := NewOrchestrator(tiers, quietLogger(), time.Second)

			prob := 37.5
			bet, err := o.CreateBet(ctx, CreateBetInput{
				WalletAddress:   "0xfeed",
				MarketID:        "market_1",
				OutcomeID:       "yes",
				Amount:          12.345678,
				TransactionHash: "0xabc",
				MarketTitle:     "BTC",
				OutcomeName:     "Yes",
				Probability:     &prob,
			})
			require.NoError(t, err)

			stored, err := o.GetBet(ctx, bet.ID)
			require.NoError(t, err)
			direct, err := target.GetBet(ctx, bet.ID)
			require.NoError(t, err)

			for _, b := range []*model.Bet{bet, stored, direct} {
				assert.Equal(t, bet.ID, b.ID)
				assert.Equal(t, "0xfeed", b.WalletAddress)
				assert.Equal(t, "market_1", b.MarketID)
				assert.Equal(t, "yes", b.OutcomeID)
				assert.InDelta(t, 12.345678, b.Amount, 1e-9)
				assert.Equal(t, "0xabc", model.Deref(b.TransactionHash))
				assert.True(t, b.IsRealTransaction)
				assert.Equal(t, "BTC", model.Deref(b.MarketTitle))
				assert.Equal(t, "Yes", model.Deref(b.OutcomeName))
				require.NotNil(t, b.Probability)
				assert.InDelta(t, 37.5, *b.Probability, 1e-9)
				assert.Equal(t, model.BetStatusPending, b.Status)
			}
		})
	}
}

func TestGetUserByWallet_NotFoundFallsThrough(t *testing.T) {
	ctx := context.Background()
	primary := newSQLiteTier(t, TierPrimary)
	embedded := newSQLiteTier(t, TierEmbedded)
	o := NewOrchestrator([]interfaces.Tier{primary, embedded}, quietLogger(), 0)

	u, err := ensureUser(ctx, embedded, "0xbeef", "", time.Now())
	require.NoError(t, err)

	got, err := o.GetUserByWallet(ctx, "0xbeef")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = o.GetUserByWallet(ctx, "0xnobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWalletAddressNormalized(t *testing.T) {
	ctx := context.Background()
	embedded := newSQLiteTier(t, TierEmbedded)
	local := newLocalTier(t)

	for _, tier := range []interfaces.Tier{embedded, local} {
		o := NewOrchestrator([]interfaces.Tier{tier}, quietLogger(), 0)

		first, err := o.CreateUser(ctx, " 0xAbCdEf ", "")
		require.NoError(t, err)
		assert.Equal(t, "0xabcdef", first.WalletAddress)

		second, err := o.CreateUser(ctx, "0xABCDEF", "")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID, tier.Name())

		got, err := o.GetUserByWallet(ctx, "0xabcDEF")
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)

		bet, err := o.CreateBet(ctx, CreateBetInput{WalletAddress: "0xABCdef", MarketID: "m", OutcomeID: "o", Amount: 1})
		require.NoError(t, err)
		assert.Equal(t, first.ID, bet.UserID)
		assert.Equal(t, "0xabcdef", bet.WalletAddress)

		bets, err := o.GetBetsByWallet(ctx, "0xAbcDef")
		require.NoError(t, err)
		require.Len(t, bets, 1, tier.Name())
		assert.Equal(t, bet.ID, bets[0].ID)
	}
}

func TestSQLTier_MigratesWhenReachable(t *testing.T) {
	ctx := context.Background()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	attempts := 0
	primary := repository.NewSQLTier(TierPrimary, db).WithMigration(func(db *gorm.DB) error {
		attempts++
		if attempts == 1 {
			return errTierDown
		}
		return database.Migrate(db)
	})
	local := newLocalTier(t)
	o := NewOrchestrator([]interfaces.Tier{primary, local}, quietLogger(), 0)

	first, err := o.CreateBet(ctx, CreateBetInput{UserID: "u1", MarketID: "m", OutcomeID: "o", Amount: 1})
	require.NoError(t, err)
	_, err = local.GetBet(ctx, first.ID)
	require.NoError(t, err, "迁移失败时应写入本地层")

	second, err := o.CreateBet(ctx, CreateBetInput{UserID: "u1", MarketID: "m", OutcomeID: "o", Amount: 2})
	require.NoError(t, err)
	stored, err := primary.GetBet(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, stored.Amount)
	assert.Equal(t, 2, attempts)

	_, err = o.ListBets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts, "迁移成功后不再重复执行")
}
