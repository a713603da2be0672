package localstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"AnitMarket/internal/interfaces"
	"AnitMarket/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	kv, err := NewMemoryKV("")
	require.NoError(t, err)
	return NewStore(kv, "")
}

func TestMemoryKV_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	kv, err := NewMemoryKV("")
	require.NoError(t, err)

	_, err = kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, kv.Set(ctx, "k", []byte(`[1]`)))
	v, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(v))

	require.NoError(t, kv.Delete(ctx, "k"))
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryKV_Snapshot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "local", "snapshot.json")

	kv, err := NewMemoryKV(path)
	require.NoError(t, err)
	store := NewStore(kv, "")
	require.NoError(t, store.CreateUser(ctx, &model.User{ID: "user_1", WalletAddress: "0xabc"}))

	reopened, err := NewMemoryKV(path)
	require.NoError(t, err)
	u, err := NewStore(reopened, "").GetUserByWallet(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "user_1", u.ID)
}

func TestStore_KeyPrefix(t *testing.T) {
	ctx := context.Background()
	kv, err := NewMemoryKV("")
	require.NoError(t, err)
	store := NewStore(kv, "")
	assert.Equal(t, "anitmarket_bets", store.Key("bets"))

	require.NoError(t, store.CreateBet(ctx, &model.Bet{ID: "bet_1", UserID: "u", MarketID: "m", OutcomeID: "o"}))
	raw, err := kv.Get(ctx, "anitmarket_bets")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"id":"bet_1"`)
}

func TestStore_Users(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.GetUserByWallet(ctx, "0xAbC")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	first := &model.User{ID: "user_1", WalletAddress: "0xAbC", Username: "alice"}
	require.NoError(t, store.CreateUser(ctx, first))
	assert.False(t, first.CreatedAt.IsZero())

	dup := &model.User{ID: "user_2", WalletAddress: "0xabc"}
	require.NoError(t, store.CreateUser(ctx, dup))
	assert.Equal(t, "user_1", dup.ID)

	u, err := store.GetUserByWallet(ctx, "0xABC")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	u, err = store.GetUserByID(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "0xAbC", u.WalletAddress)
}

func TestStore_BetsOrderingAndFilters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.CreateUser(ctx, &model.User{ID: "user_1", WalletAddress: "0xw"}))
	require.NoError(t, store.CreateBet(ctx, &model.Bet{ID: "b1", UserID: "user_1", MarketID: "m1", OutcomeID: "yes", CreatedAt: base}))
	require.NoError(t, store.CreateBet(ctx, &model.Bet{ID: "b2", UserID: "other", WalletAddress: "0xW", MarketID: "m2", OutcomeID: "no", CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, store.CreateBet(ctx, &model.Bet{ID: "b3", UserID: "other", MarketID: "m1", OutcomeID: "no", CreatedAt: base.Add(2 * time.Hour)}))

	all, err := store.ListBets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b3", "b2", "b1"}, betIDs(all))
	assert.Equal(t, model.BetStatusPending, all[0].Status)

	byWallet, err := store.ListBetsByWallet(ctx, "0xw")
	require.NoError(t, err)
	assert.Equal(t, []string{"b2", "b1"}, betIDs(byWallet))

	byMarket, err := store.ListBetsByMarket(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b3", "b1"}, betIDs(byMarket))

	byUser, err := store.ListBetsByUser(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, []string{"b3", "b2"}, betIDs(byUser))

	n, err := store.CountBets(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestStore_UpdateBetStatus(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateBet(ctx, &model.Bet{ID: "b1", UserID: "u", MarketID: "m", OutcomeID: "o"}))

	b, err := store.UpdateBetStatus(ctx, "b1", model.BetStatusWon)
	require.NoError(t, err)
	assert.Equal(t, model.BetStatusWon, b.Status)

	got, err := store.GetBet(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, model.BetStatusWon, got.Status)

	_, err = store.UpdateBetStatus(ctx, "missing", model.BetStatusWon)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestStore_Favorites(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.AddFavorite(ctx, &model.Favorite{UserID: "u", MarketID: "m1"}))
	require.NoError(t, store.AddFavorite(ctx, &model.Favorite{UserID: "u", MarketID: "m1"}))
	require.NoError(t, store.AddFavorite(ctx, &model.Favorite{UserID: "u", MarketID: "m2"}))

	list, err := store.ListFavorites(ctx, "u")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "m2", list[0].MarketID)
	assert.EqualValues(t, 2, list[0].ID)

	fav, err := store.IsFavorite(ctx, "u", "m1")
	require.NoError(t, err)
	assert.True(t, fav)

	removed, err := store.RemoveFavorite(ctx, "u", "m1")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = store.RemoveFavorite(ctx, "u", "m1")
	require.NoError(t, err)
	assert.False(t, removed)

	fav, err = store.IsFavorite(ctx, "u", "m1")
	require.NoError(t, err)
	assert.False(t, fav)
}

func TestStore_Payments(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	p := &model.Payment{ID: "pay_1", Reference: "bet-m-o-1", Status: model.PaymentStatusPending, UserID: "u", WalletAddress: "0xw", Amount: 1}
	require.NoError(t, store.SavePayment(ctx, p))
	assert.Error(t, store.SavePayment(ctx, &model.Payment{ID: "pay_2", Reference: "bet-m-o-1"}))

	got, err := store.GetPaymentByReference(ctx, "bet-m-o-1")
	require.NoError(t, err)
	assert.Equal(t, "pay_1", got.ID)

	hash := "0xhash"
	block := int64(42)
	got.Status = model.PaymentStatusCompleted
	got.TransactionHash = &hash
	got.BlockNumber = &block
	require.NoError(t, store.UpdatePayment(ctx, got))

	got, err = store.GetPayment(ctx, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, got.Status)
	assert.Equal(t, "0xhash", model.Deref(got.TransactionHash))
	assert.EqualValues(t, 42, *got.BlockNumber)

	assert.ErrorIs(t, store.UpdatePayment(ctx, &model.Payment{ID: "missing"}), interfaces.ErrNotFound)

	byUser, err := store.ListPaymentsByUser(ctx, "u")
	require.NoError(t, err)
	assert.Len(t, byUser, 1)
	byWallet, err := store.ListPaymentsByUser(ctx, "0xW")
	require.NoError(t, err)
	assert.Len(t, byWallet, 1)
}

func betIDs(bets []*model.Bet) []string {
	out := make([]string, 0, len(bets))
	for _, b := range bets {
		out = append(out, b.ID)
	}
	return out
}
