package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"AnitMarket/internal/interfaces"
	"AnitMarket/internal/model"

	"github.com/sirupsen/logrus"
)

// 层名称
const (
	TierPrimary  = "primary"
	TierEmbedded = "embedded"
	TierLocal    = "local"
)

// Orchestrator 存储降级编排：按 主库 → 嵌入式库 → 本地层 顺序依次尝试，第一个成功的层给出结果。
// 各层互为替代而非副本，不合并、不去重、不回写。
type Orchestrator struct {
	tiers       []interfaces.Tier
	logger      *logrus.Logger
	tierTimeout time.Duration
	now         func() time.Time
}

// NewOrchestrator tiers 的顺序即尝试顺序；nil 项会被跳过。tierTimeout<=0 表示只受请求上下文约束
func NewOrchestrator(tiers []interfaces.Tier, logger *logrus.Logger, tierTimeout time.Duration) *Orchestrator {
	kept := make([]interfaces.Tier, 0, len(tiers))
	for _, t := range tiers {
		if t != nil {
			kept = append(kept, t)
		}
	}
	return &Orchestrator{
		tiers:       kept,
		logger:      logger,
		tierTimeout: tierTimeout,
		now:         time.Now,
	}
}

// SetClock 替换时间源（测试用）
func (o *Orchestrator) SetClock(now func() time.Time) { o.now = now }

// Tiers 当前生效的层
func (o *Orchestrator) Tiers() []interfaces.Tier { return o.tiers }

func (o *Orchestrator) tier(name string) interfaces.Tier {
	for _, t := range o.tiers {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

// attempt 依次在各层执行 fn，返回第一个成功的结果及层名。
// 某层回答 ErrNotFound 时继续询问下一层（各层的 ID 全局唯一，不存在歧义）；
// 所有层都没找到返回 ErrNotFound，全部失败返回 ErrAllTiersFailed
func attempt[T any](ctx context.Context, o *Orchestrator, op string, fn func(ctx context.Context, t interfaces.Tier) (T, error)) (T, string, error) {
	var zero T
	sawNotFound := false
	for _, t := range o.tiers {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}
		tctx, cancel := o.tierContext(ctx)
		v, err := runTier(tctx, t, fn)
		cancel()
		if err == nil {
			if t != o.tiers[0] {
				o.logger.WithFields(logrus.Fields{"tier": t.Name(), "op": op}).Debug("降级层完成操作")
			}
			return v, t.Name(), nil
		}
		if errors.Is(err, interfaces.ErrNotFound) {
			sawNotFound = true
			continue
		}
		o.logger.WithFields(logrus.Fields{"tier": t.Name(), "op": op}).WithError(err).Warn("存储层不可用，尝试下一层")
	}
	if sawNotFound {
		return zero, "", ErrNotFound
	}
	o.logger.WithField("op", op).Error("所有存储层均失败")
	return zero, "", ErrAllTiersFailed
}

// runTier 层实现了 Preparer 时先完成准备（如补做迁移），准备失败按该层不可用处理
func runTier[T any](ctx context.Context, t interfaces.Tier, fn func(ctx context.Context, t interfaces.Tier) (T, error)) (T, error) {
	if p, ok := t.(interfaces.Preparer); ok {
		if err := p.Prepare(ctx); err != nil {
			var zero T
			return zero, err
		}
	}
	return fn(ctx, t)
}

// NormalizeWallet 钱包地址统一为去空白的小写形式，各层按同一键识别用户
func NormalizeWallet(walletAddress string) string {
	return strings.ToLower(strings.TrimSpace(walletAddress))
}

func (o *Orchestrator) tierContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.tierTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.tierTimeout)
}

// readList 列表读取：全部层失败时返回空列表而不是错误
func readList[T any](ctx context.Context, o *Orchestrator, op string, fn func(ctx context.Context, t interfaces.Tier) ([]*T, error)) ([]*T, error) {
	items, _, err := attempt(ctx, o, op, fn)
	if err != nil {
		if errors.Is(err, ErrAllTiersFailed) || errors.Is(err, ErrNotFound) {
			return []*T{}, nil
		}
		return nil, err
	}
	if items == nil {
		items = []*T{}
	}
	return items, nil
}

// readOne 单条读取：全部层失败按“不存在”处理
func readOne[T any](ctx context.Context, o *Orchestrator, op string, fn func(ctx context.Context, t interfaces.Tier) (*T, error)) (*T, error) {
	item, _, err := attempt(ctx, o, op, fn)
	if err != nil {
		if errors.Is(err, ErrAllTiersFailed) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return item, nil
}

// ---------- 用户 ----------

// ensureUser 在单层内按钱包地址查找，不存在则创建
func ensureUser(ctx context.Context, t interfaces.Tier, walletAddress, username string, now time.Time) (*model.User, error) {
	u, err := t.GetUserByWallet(ctx, walletAddress)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, err
	}
	if username == "" {
		username = model.DefaultUsername(walletAddress)
	}
	u = &model.User{
		ID:            model.NewUserID(),
		WalletAddress: walletAddress,
		Username:      username,
		CreatedAt:     now,
	}
	if err := t.CreateUser(ctx, u); err != nil {
		// 并发下唯一索引冲突：以已存在的记录为准
		if existing, e := t.GetUserByWallet(ctx, walletAddress); e == nil {
			return existing, nil
		}
		return nil, err
	}
	return u, nil
}

// CreateUser 幂等创建：同一层内同一钱包地址只会有一个用户
func (o *Orchestrator) CreateUser(ctx context.Context, walletAddress, username string) (*model.User, error) {
	walletAddress = NormalizeWallet(walletAddress)
	if walletAddress == "" {
		return nil, fmt.Errorf("wallet address: %w", ErrInvalidInput)
	}
	u, _, err := attempt(ctx, o, "create_user", func(ctx context.Context, t interfaces.Tier) (*model.User, error) {
		return ensureUser(ctx, t, walletAddress, username, o.now())
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByWallet 按钱包地址查用户
// 某层回答不存在时继续询问下一层，与按 ID 查询一致
func (o *Orchestrator) GetUserByWallet(ctx context.Context, walletAddress string) (*model.User, error) {
	walletAddress = NormalizeWallet(walletAddress)
	return readOne(ctx, o, "get_user_by_wallet", func(ctx context.Context, t interfaces.Tier) (*model.User, error) {
		return t.GetUserByWallet(ctx, walletAddress)
	})
}

// ---------- 下注 ----------

// CreateBetInput 下单参数；UserID 与 WalletAddress 至少一个
type CreateBetInput struct {
	UserID            string
	WalletAddress     string
	MarketID          string
	OutcomeID         string
	Amount            float64
	TransactionHash   string
	IsRealTransaction *bool
	MarketTitle       string
	OutcomeName       string
	Probability       *float64
}

// CreateBet 写入第一个可用层。只给钱包地址时，在同一层内解析（必要时创建）用户，
// 保证下注记录引用的用户 ID 属于同一层
func (o *Orchestrator) CreateBet(ctx context.Context, in CreateBetInput) (*model.Bet, error) {
	in.WalletAddress = NormalizeWallet(in.WalletAddress)
	if in.MarketID == "" || in.OutcomeID == "" || (in.UserID == "" && in.WalletAddress == "") {
		return nil, ErrInvalidInput
	}
	isReal := in.TransactionHash != ""
	if in.IsRealTransaction != nil {
		isReal = *in.IsRealTransaction
	}
	betID := model.NewBetID()
	createdAt := o.now()

	bet, _, err := attempt(ctx, o, "create_bet", func(ctx context.Context, t interfaces.Tier) (*model.Bet, error) {
		userID := in.UserID
		if userID == "" {
			u, err := ensureUser(ctx, t, in.WalletAddress, "", createdAt)
			if err != nil {
				return nil, err
			}
			userID = u.ID
		}
		b := &model.Bet{
			ID:                betID,
			UserID:            userID,
			WalletAddress:     in.WalletAddress,
			MarketID:          in.MarketID,
			OutcomeID:         in.OutcomeID,
			Amount:            in.Amount,
			Status:            model.BetStatusPending,
			TransactionHash:   model.StringPtr(in.TransactionHash),
			IsRealTransaction: isReal,
			MarketTitle:       model.StringPtr(in.MarketTitle),
			OutcomeName:       model.StringPtr(in.OutcomeName),
			Probability:       in.Probability,
			CreatedAt:         createdAt,
			UpdatedAt:         createdAt,
		}
		if err := t.CreateBet(ctx, b); err != nil {
			return nil, err
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return bet, nil
}

// GetBet 按 ID 查下注
func (o *Orchestrator) GetBet(ctx context.Context, id string) (*model.Bet, error) {
	return readOne(ctx, o, "get_bet", func(ctx context.Context, t interfaces.Tier) (*model.Bet, error) {
		return t.GetBet(ctx, id)
	})
}

// GetBetsByUser 某用户的下注，按时间倒序，仅来自第一个应答的层
func (o *Orchestrator) GetBetsByUser(ctx context.Context, userID string) ([]*model.Bet, error) {
	return readList(ctx, o, "get_bets_by_user", func(ctx context.Context, t interfaces.Tier) ([]*model.Bet, error) {
		return t.ListBetsByUser(ctx, userID)
	})
}

// GetBetsByWallet 某钱包的下注
func (o *Orchestrator) GetBetsByWallet(ctx context.Context, walletAddress string) ([]*model.Bet, error) {
	walletAddress = NormalizeWallet(walletAddress)
	return readList(ctx, o, "get_bets_by_wallet", func(ctx context.Context, t interfaces.Tier) ([]*model.Bet, error) {
		return t.ListBetsByWallet(ctx, walletAddress)
	})
}

// GetBetsByMarket 某市场的下注
func (o *Orchestrator) GetBetsByMarket(ctx context.Context, marketID string) ([]*model.Bet, error) {
	return readList(ctx, o, "get_bets_by_market", func(ctx context.Context, t interfaces.Tier) ([]*model.Bet, error) {
		return t.ListBetsByMarket(ctx, marketID)
	})
}

// ListBets 全部下注
func (o *Orchestrator) ListBets(ctx context.Context) ([]*model.Bet, error) {
	return readList(ctx, o, "list_bets", func(ctx context.Context, t interfaces.Tier) ([]*model.Bet, error) {
		return t.ListBets(ctx)
	})
}

// UpdateBetStatus 修改下注状态（唯一允许的修改）
func (o *Orchestrator) UpdateBetStatus(ctx context.Context, id, status string) (*model.Bet, error) {
	if !model.ValidBetStatus(status) {
		return nil, fmt.Errorf("%q: %w", status, ErrInvalidStatus)
	}
	bet, _, err := attempt(ctx, o, "update_bet_status", func(ctx context.Context, t interfaces.Tier) (*model.Bet, error) {
		return t.UpdateBetStatus(ctx, id, status)
	})
	if err != nil {
		return nil, err
	}
	return bet, nil
}

// ImportResult 迁移结果；Existing>0 表示嵌入式库已有数据、未做迁移
type ImportResult struct {
	Imported int
	Existing int64
}

// ImportBets 把客户端本地保存的下注迁入嵌入式库；嵌入式库已有数据时跳过
func (o *Orchestrator) ImportBets(ctx context.Context, walletAddress string, bets []model.Bet) (*ImportResult, error) {
	t := o.tier(TierEmbedded)
	if t == nil {
		return nil, ErrTierUnavailable
	}
	walletAddress = NormalizeWallet(walletAddress)
	tctx, cancel := o.tierContext(ctx)
	defer cancel()

	count, err := t.CountBets(tctx)
	if err != nil {
		return nil, fmt.Errorf("统计嵌入式库下注失败: %w", err)
	}
	if count > 0 {
		o.logger.WithField("existing", count).Info("嵌入式库已有下注记录，跳过迁移")
		return &ImportResult{Existing: count}, nil
	}
	u, err := ensureUser(tctx, t, walletAddress, "", o.now())
	if err != nil {
		return nil, fmt.Errorf("迁移用户失败: %w", err)
	}

	res := &ImportResult{}
	for i := range bets {
		b := bets[i]
		if b.ID == "" {
			b.ID = model.NewBetID()
		}
		b.UserID = u.ID
		b.WalletAddress = walletAddress
		if !model.ValidBetStatus(b.Status) {
			b.Status = model.BetStatusPending
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = o.now()
		}
		if err := t.CreateBet(tctx, &b); err != nil {
			o.logger.WithError(err).WithField("bet_id", b.ID).Warn("迁移单条下注失败")
			continue
		}
		res.Imported++
	}
	o.logger.WithFields(logrus.Fields{"wallet": walletAddress, "imported": res.Imported}).Info("本地下注迁移完成")
	return res, nil
}

// ---------- 收藏 ----------

// AddFavorite 幂等收藏
func (o *Orchestrator) AddFavorite(ctx context.Context, userID, marketID string) error {
	_, _, err := attempt(ctx, o, "add_favorite", func(ctx context.Context, t interfaces.Tier) (struct{}, error) {
		return struct{}{}, t.AddFavorite(ctx, &model.Favorite{UserID: userID, MarketID: marketID, CreatedAt: o.now()})
	})
	return err
}

// RemoveFavorite 返回是否确实删除了一条
func (o *Orchestrator) RemoveFavorite(ctx context.Context, userID, marketID string) (bool, error) {
	removed, _, err := attempt(ctx, o, "remove_favorite", func(ctx context.Context, t interfaces.Tier) (bool, error) {
		return t.RemoveFavorite(ctx, userID, marketID)
	})
	return removed, err
}

// IsFavorite 全部层失败时视为未收藏
func (o *Orchestrator) IsFavorite(ctx context.Context, userID, marketID string) (bool, error) {
	fav, _, err := attempt(ctx, o, "is_favorite", func(ctx context.Context, t interfaces.Tier) (bool, error) {
		return t.IsFavorite(ctx, userID, marketID)
	})
	if errors.Is(err, ErrAllTiersFailed) {
		return false, nil
	}
	return fav, err
}

// ListFavorites 用户收藏列表
func (o *Orchestrator) ListFavorites(ctx context.Context, userID string) ([]*model.Favorite, error) {
	return readList(ctx, o, "list_favorites", func(ctx context.Context, t interfaces.Tier) ([]*model.Favorite, error) {
		return t.ListFavorites(ctx, userID)
	})
}

// ToggleFavorite 在同一层内读取并翻转收藏状态，返回翻转后的状态
func (o *Orchestrator) ToggleFavorite(ctx context.Context, userID, marketID string) (bool, error) {
	now, _, err := attempt(ctx, o, "toggle_favorite", func(ctx context.Context, t interfaces.Tier) (bool, error) {
		fav, err := t.IsFavorite(ctx, userID, marketID)
		if err != nil {
			return false, err
		}
		if fav {
			if _, err := t.RemoveFavorite(ctx, userID, marketID); err != nil {
				return false, err
			}
			return false, nil
		}
		if err := t.AddFavorite(ctx, &model.Favorite{UserID: userID, MarketID: marketID, CreatedAt: o.now()}); err != nil {
			return false, err
		}
		return true, nil
	})
	return now, err
}

// ---------- 支付 ----------

// SavePayment 写入支付引用
func (o *Orchestrator) SavePayment(ctx context.Context, p *model.Payment) error {
	_, _, err := attempt(ctx, o, "save_payment", func(ctx context.Context, t interfaces.Tier) (struct{}, error) {
		return struct{}{}, t.SavePayment(ctx, p)
	})
	return err
}

// GetPaymentByReference 按引用查支付
func (o *Orchestrator) GetPaymentByReference(ctx context.Context, reference string) (*model.Payment, error) {
	return readOne(ctx, o, "get_payment_by_reference", func(ctx context.Context, t interfaces.Tier) (*model.Payment, error) {
		return t.GetPaymentByReference(ctx, reference)
	})
}

// GetPayment 按 ID 查支付
func (o *Orchestrator) GetPayment(ctx context.Context, id string) (*model.Payment, error) {
	return readOne(ctx, o, "get_payment", func(ctx context.Context, t interfaces.Tier) (*model.Payment, error) {
		return t.GetPayment(ctx, id)
	})
}

// UpdatePayment 更新支付状态；记录所在的层才会更新成功
func (o *Orchestrator) UpdatePayment(ctx context.Context, p *model.Payment) error {
	p.UpdatedAt = o.now()
	_, _, err := attempt(ctx, o, "update_payment", func(ctx context.Context, t interfaces.Tier) (struct{}, error) {
		return struct{}{}, t.UpdatePayment(ctx, p)
	})
	return err
}

// ListPaymentsByUser 用户 ID 或钱包地址匹配的支付记录
func (o *Orchestrator) ListPaymentsByUser(ctx context.Context, userID string) ([]*model.Payment, error) {
	return readList(ctx, o, "list_payments", func(ctx context.Context, t interfaces.Tier) ([]*model.Payment, error) {
		return t.ListPaymentsByUser(ctx, userID)
	})
}

// ---------- 健康检查 ----------

// TierHealth 单层连通性
type TierHealth struct {
	Name      string `json:"name"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latencyMs"`
}

// Health 逐层 ping
func (o *Orchestrator) Health(ctx context.Context) []TierHealth {
	out := make([]TierHealth, 0, len(o.tiers))
	for _, t := range o.tiers {
		tctx, cancel := o.tierContext(ctx)
		start := time.Now()
		err := t.Ping(tctx)
		cancel()
		h := TierHealth{Name: t.Name(), OK: err == nil, LatencyMs: time.Since(start).Milliseconds()}
		if err != nil {
			h.Error = err.Error()
		}
		out = append(out, h)
	}
	return out
}
