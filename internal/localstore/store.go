package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"AnitMarket/internal/interfaces"
	"AnitMarket/internal/model"
)

const (
	DefaultKeyPrefix = "anitmarket_"

	keyUsers     = "users"
	keyBets      = "bets"
	keyFavorites = "favorites"
	keyPayments  = "payments"
)

// Store 本地兜底层，实现 interfaces.Tier
type Store struct {
	kv     KV
	prefix string
	// 只保证读改写不交错，不提供跨请求的一致性
	mu  sync.Mutex
	now func() time.Time
}

var _ interfaces.Tier = (*Store)(nil)

// NewStore prefix 为空时使用 DefaultKeyPrefix
func NewStore(kv KV, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{kv: kv, prefix: prefix, now: time.Now}
}

func (s *Store) Name() string { return "local" }

func (s *Store) Ping(ctx context.Context) error { return s.kv.Ping(ctx) }

// Key 带前缀的完整键名
func (s *Store) Key(name string) string { return s.prefix + name }

func load[T any](ctx context.Context, s *Store, name string) ([]T, error) {
	raw, err := s.kv.Get(ctx, s.Key(name))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var items []T
	if len(raw) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("localstore: decode %s: %w", name, err)
	}
	return items, nil
}

func save[T any](ctx context.Context, s *Store, name string, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("localstore: encode %s: %w", name, err)
	}
	return s.kv.Set(ctx, s.Key(name), raw)
}

// ---------- users ----------

func (s *Store) GetUserByWallet(ctx context.Context, walletAddress string) (*model.User, error) {
	users, err := load[model.User](ctx, s, keyUsers)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if strings.EqualFold(users[i].WalletAddress, walletAddress) {
			return &users[i], nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	users, err := load[model.User](ctx, s, keyUsers)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			return &users[i], nil
		}
	}
	return nil, interfaces.ErrNotFound
}

// CreateUser 同一钱包只保留一条；重复时把已有记录回填给 user
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := load[model.User](ctx, s, keyUsers)
	if err != nil {
		return err
	}
	for _, u := range users {
		if strings.EqualFold(u.WalletAddress, user.WalletAddress) {
			*user = u
			return nil
		}
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	users = append(users, *user)
	return save(ctx, s, keyUsers, users)
}

// ---------- bets ----------

func (s *Store) CreateBet(ctx context.Context, bet *model.Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bets, err := load[model.Bet](ctx, s, keyBets)
	if err != nil {
		return err
	}
	if bet.CreatedAt.IsZero() {
		bet.CreatedAt = s.now()
	}
	if bet.UpdatedAt.IsZero() {
		bet.UpdatedAt = bet.CreatedAt
	}
	if bet.Status == "" {
		bet.Status = model.BetStatusPending
	}
	bets = append(bets, *bet)
	return save(ctx, s, keyBets, bets)
}

func (s *Store) GetBet(ctx context.Context, id string) (*model.Bet, error) {
	bets, err := load[model.Bet](ctx, s, keyBets)
	if err != nil {
		return nil, err
	}
	for i := range bets {
		if bets[i].ID == id {
			return &bets[i], nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (s *Store) ListBetsByUser(ctx context.Context, userID string) ([]*model.Bet, error) {
	return s.filterBets(ctx, func(b *model.Bet) bool { return b.UserID == userID })
}

// ListBetsByWallet 没有关联查询，按冗余钱包字段或本地同钱包用户的 ID 匹配
func (s *Store) ListBetsByWallet(ctx context.Context, walletAddress string) ([]*model.Bet, error) {
	users, err := load[model.User](ctx, s, keyUsers)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{})
	for _, u := range users {
		if strings.EqualFold(u.WalletAddress, walletAddress) {
			ids[u.ID] = struct{}{}
		}
	}
	return s.filterBets(ctx, func(b *model.Bet) bool {
		if b.WalletAddress != "" && strings.EqualFold(b.WalletAddress, walletAddress) {
			return true
		}
		_, ok := ids[b.UserID]
		return ok
	})
}

func (s *Store) ListBetsByMarket(ctx context.Context, marketID string) ([]*model.Bet, error) {
	return s.filterBets(ctx, func(b *model.Bet) bool { return b.MarketID == marketID })
}

func (s *Store) ListBets(ctx context.Context) ([]*model.Bet, error) {
	return s.filterBets(ctx, func(*model.Bet) bool { return true })
}

func (s *Store) CountBets(ctx context.Context) (int64, error) {
	bets, err := load[model.Bet](ctx, s, keyBets)
	if err != nil {
		return 0, err
	}
	return int64(len(bets)), nil
}

func (s *Store) UpdateBetStatus(ctx context.Context, id, status string) (*model.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bets, err := load[model.Bet](ctx, s, keyBets)
	if err != nil {
		return nil, err
	}
	for i := range bets {
		if bets[i].ID != id {
			continue
		}
		bets[i].Status = status
		bets[i].UpdatedAt = s.now()
		if err := save(ctx, s, keyBets, bets); err != nil {
			return nil, err
		}
		updated := bets[i]
		return &updated, nil
	}
	return nil, interfaces.ErrNotFound
}

// filterBets 结果按创建时间倒序；时间相同则后写入的在前
func (s *Store) filterBets(ctx context.Context, keep func(*model.Bet) bool) ([]*model.Bet, error) {
	bets, err := load[model.Bet](ctx, s, keyBets)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Bet, 0, len(bets))
	for i := len(bets) - 1; i >= 0; i-- {
		if keep(&bets[i]) {
			out = append(out, &bets[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ---------- favorites ----------

func (s *Store) AddFavorite(ctx context.Context, fav *model.Favorite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	favs, err := load[model.Favorite](ctx, s, keyFavorites)
	if err != nil {
		return err
	}
	var maxID uint64
	for _, f := range favs {
		if f.UserID == fav.UserID && f.MarketID == fav.MarketID {
			return nil
		}
		if f.ID > maxID {
			maxID = f.ID
		}
	}
	fav.ID = maxID + 1
	if fav.CreatedAt.IsZero() {
		fav.CreatedAt = s.now()
	}
	favs = append(favs, *fav)
	return save(ctx, s, keyFavorites, favs)
}

func (s *Store) RemoveFavorite(ctx context.Context, userID, marketID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	favs, err := load[model.Favorite](ctx, s, keyFavorites)
	if err != nil {
		return false, err
	}
	kept := favs[:0]
	removed := false
	for _, f := range favs {
		if f.UserID == userID && f.MarketID == marketID {
			removed = true
			continue
		}
		kept = append(kept, f)
	}
	if !removed {
		return false, nil
	}
	return true, save(ctx, s, keyFavorites, kept)
}

func (s *Store) IsFavorite(ctx context.Context, userID, marketID string) (bool, error) {
	favs, err := load[model.Favorite](ctx, s, keyFavorites)
	if err != nil {
		return false, err
	}
	for _, f := range favs {
		if f.UserID == userID && f.MarketID == marketID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListFavorites(ctx context.Context, userID string) ([]*model.Favorite, error) {
	favs, err := load[model.Favorite](ctx, s, keyFavorites)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Favorite, 0)
	for i := len(favs) - 1; i >= 0; i-- {
		if favs[i].UserID == userID {
			out = append(out, &favs[i])
		}
	}
	return out, nil
}

// ---------- payments ----------

func (s *Store) SavePayment(ctx context.Context, p *model.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payments, err := load[model.Payment](ctx, s, keyPayments)
	if err != nil {
		return err
	}
	for _, existing := range payments {
		if existing.Reference == p.Reference {
			return fmt.Errorf("localstore: duplicate payment reference %s", p.Reference)
		}
	}
	now := s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	payments = append(payments, *p)
	return save(ctx, s, keyPayments, payments)
}

func (s *Store) GetPayment(ctx context.Context, id string) (*model.Payment, error) {
	return s.findPayment(ctx, func(p *model.Payment) bool { return p.ID == id })
}

func (s *Store) GetPaymentByReference(ctx context.Context, reference string) (*model.Payment, error) {
	return s.findPayment(ctx, func(p *model.Payment) bool { return p.Reference == reference })
}

// UpdatePayment 只更新状态、交易哈希与区块号
func (s *Store) UpdatePayment(ctx context.Context, p *model.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payments, err := load[model.Payment](ctx, s, keyPayments)
	if err != nil {
		return err
	}
	for i := range payments {
		if payments[i].ID != p.ID {
			continue
		}
		payments[i].Status = p.Status
		payments[i].TransactionHash = p.TransactionHash
		payments[i].BlockNumber = p.BlockNumber
		payments[i].UpdatedAt = s.now()
		p.UpdatedAt = payments[i].UpdatedAt
		return save(ctx, s, keyPayments, payments)
	}
	return interfaces.ErrNotFound
}

func (s *Store) ListPaymentsByUser(ctx context.Context, userID string) ([]*model.Payment, error) {
	payments, err := load[model.Payment](ctx, s, keyPayments)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Payment, 0)
	for i := len(payments) - 1; i >= 0; i-- {
		p := &payments[i]
		if p.UserID == userID || (p.WalletAddress != "" && strings.EqualFold(p.WalletAddress, userID)) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) findPayment(ctx context.Context, match func(*model.Payment) bool) (*model.Payment, error) {
	payments, err := load[model.Payment](ctx, s, keyPayments)
	if err != nil {
		return nil, err
	}
	for i := range payments {
		if match(&payments[i]) {
			return &payments[i], nil
		}
	}
	return nil, interfaces.ErrNotFound
}
