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

// MarketService 市场目录：关系型层依次尝试，都不可用（或目录为空）时使用内置种子市场
type MarketService struct {
	catalogs []interfaces.CatalogStore
	bets     *Orchestrator
	logger   *logrus.Logger
}

// NewMarketService 创建 MarketService，catalogs 顺序即尝试顺序
func NewMarketService(catalogs []interfaces.CatalogStore, bets *Orchestrator, logger *logrus.Logger) *MarketService {
	return &MarketService{catalogs: catalogs, bets: bets, logger: logger}
}

func runCatalog[T any](ctx context.Context, c interfaces.CatalogStore, fn func(ctx context.Context, c interfaces.CatalogStore) (T, error)) (T, error) {
	if p, ok := c.(interfaces.Preparer); ok {
		if err := p.Prepare(ctx); err != nil {
			var zero T
			return zero, err
		}
	}
	return fn(ctx, c)
}

// catalogAttempt 与 attempt 语义一致，作用于目录层
func catalogAttempt[T any](ctx context.Context, catalogs []interfaces.CatalogStore, logger *logrus.Logger, op string, fn func(ctx context.Context, c interfaces.CatalogStore) (T, error)) (T, error) {
	var zero T
	sawNotFound := false
	for _, c := range catalogs {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, err := runCatalog(ctx, c, fn)
		if err == nil {
			return v, nil
		}
		if errors.Is(err, interfaces.ErrNotFound) {
			sawNotFound = true
			continue
		}
		logger.WithFields(logrus.Fields{"tier": c.Name(), "op": op}).WithError(err).Warn("目录层不可用，尝试下一层")
	}
	if sawNotFound {
		return zero, ErrNotFound
	}
	return zero, ErrAllTiersFailed
}

// ListMarkets 返回未过期的目录市场；目录层全部失败或为空时返回种子市场
func (s *MarketService) ListMarkets(ctx context.Context) ([]*model.Market, error) {
	markets, err := catalogAttempt(ctx, s.catalogs, s.logger, "list_markets", func(ctx context.Context, c interfaces.CatalogStore) ([]*model.Market, error) {
		return c.ListMarkets(ctx)
	})
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil || len(markets) == 0 {
		return seedMarkets(), nil
	}
	return markets, nil
}

// ListMarketsByCategory 按分类过滤（忽略大小写）
func (s *MarketService) ListMarketsByCategory(ctx context.Context, category string) ([]*model.Market, error) {
	markets, err := s.ListMarkets(ctx)
	if err != nil || category == "" {
		return markets, err
	}
	out := make([]*model.Market, 0, len(markets))
	for _, m := range markets {
		if strings.EqualFold(m.Category, category) {
			out = append(out, m)
		}
	}
	return out, nil
}

// GetMarket 依次查目录市场、种子市场、自定义竞猜
func (s *MarketService) GetMarket(ctx context.Context, id string) (*model.Market, error) {
	m, err := catalogAttempt(ctx, s.catalogs, s.logger, "get_market", func(ctx context.Context, c interfaces.CatalogStore) (*model.Market, error) {
		return c.GetMarket(ctx, id)
	})
	if err == nil {
		return m, nil
	}
	for _, seed := range seedMarkets() {
		if seed.ID == id {
			return seed, nil
		}
	}
	cb, err := catalogAttempt(ctx, s.catalogs, s.logger, "get_custom_bet", func(ctx context.Context, c interfaces.CatalogStore) (*model.CustomBet, error) {
		return c.GetCustomBet(ctx, id)
	})
	if err != nil {
		return nil, ErrNotFound
	}
	bets, _ := s.bets.GetBetsByMarket(ctx, id)
	return CustomBetToMarket(cb, bets), nil
}

// MarketStats 由该市场的下注记录实时计算
func (s *MarketService) MarketStats(ctx context.Context, marketID string) (MarketStats, error) {
	bets, err := s.bets.GetBetsByMarket(ctx, marketID)
	if err != nil {
		return MarketStats{}, err
	}
	return ComputeMarketStats(marketID, bets), nil
}

// ListCustomBets 有效的自定义竞猜，转换为市场结构，概率按成交量占比重算
func (s *MarketService) ListCustomBets(ctx context.Context) ([]*model.Market, error) {
	list, err := catalogAttempt(ctx, s.catalogs, s.logger, "list_custom_bets", func(ctx context.Context, c interfaces.CatalogStore) ([]*model.CustomBet, error) {
		return c.ListActiveCustomBets(ctx)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return []*model.Market{}, nil
	}
	if len(list) == 0 {
		return []*model.Market{}, nil
	}

	all, err := s.bets.ListBets(ctx)
	if err != nil {
		return nil, err
	}
	byMarket := make(map[string][]*model.Bet)
	for _, b := range all {
		byMarket[b.MarketID] = append(byMarket[b.MarketID], b)
	}

	out := make([]*model.Market, 0, len(list))
	for _, cb := range list {
		out = append(out, CustomBetToMarket(cb, byMarket[cb.ID]))
	}
	return out, nil
}

// CustomBetToMarket 自定义竞猜转市场：选项成交量 = 基础成交量 + 真实下注金额，
// 市场成交量 = total_volume + 真实下注金额
func CustomBetToMarket(cb *model.CustomBet, bets []*model.Bet) *model.Market {
	perOutcome := OutcomeVolumes(bets)
	volumes := make([]float64, len(cb.Outcomes))
	for i, o := range cb.Outcomes {
		volumes[i] = o.Volume + perOutcome[o.ID]
	}
	probs := ProbabilityFromVolume(volumes)

	m := &model.Market{
		ID:          cb.ID,
		Title:       cb.Title,
		Description: cb.Description,
		Category:    model.Deref(cb.Category),
		CategoryID:  cb.CategoryID,
		EndTime:     cb.ExpiredDay,
		Volume:      cb.TotalVolume + Volume(bets),
		IsLive:      cb.IsActive,
		Outcomes:    make([]model.MarketOutcome, len(cb.Outcomes)),
		CreatedAt:   cb.CreatedAt,
	}
	for i, o := range cb.Outcomes {
		v := volumes[i]
		m.Outcomes[i] = model.MarketOutcome{
			ID:          o.ID,
			MarketID:    cb.ID,
			Name:        o.Name,
			Probability: probs[i],
			Color:       o.Color,
			Volume:      &v,
			CreatedAt:   o.CreatedAt,
		}
	}
	return m
}

// CustomOutcomeInput 自定义竞猜选项
type CustomOutcomeInput struct {
	Name   string
	Color  string
	Volume float64
}

// CreateCustomBetInput 创建自定义竞猜
type CreateCustomBetInput struct {
	Title       string
	Description string
	Category    string
	CategoryID  string
	ExpiredDay  *time.Time
	Outcomes    []CustomOutcomeInput
}

// CreateCustomBet 写入第一个可用的目录层；初始概率按基础成交量计算
func (s *MarketService) CreateCustomBet(ctx context.Context, in CreateCustomBetInput) (*model.CustomBet, error) {
	if in.Title == "" || len(in.Outcomes) == 0 {
		return nil, ErrInvalidInput
	}
	id := model.NewCustomBetID()
	volumes := make([]float64, len(in.Outcomes))
	var total float64
	for i, o := range in.Outcomes {
		volumes[i] = o.Volume
		total += o.Volume
	}
	probs := ProbabilityFromVolume(volumes)

	cb := &model.CustomBet{
		ID:          id,
		Title:       in.Title,
		Description: model.StringPtr(in.Description),
		Category:    model.StringPtr(in.Category),
		CategoryID:  model.StringPtr(in.CategoryID),
		ExpiredDay:  in.ExpiredDay,
		IsActive:    true,
		TotalVolume: total,
		Outcomes:    make([]model.CustomBetOutcome, len(in.Outcomes)),
	}
	for i, o := range in.Outcomes {
		cb.Outcomes[i] = model.CustomBetOutcome{
			ID:          fmt.Sprintf("%s_o%d", id, i+1),
			BetID:       id,
			Name:        o.Name,
			Probability: probs[i],
			Color:       model.StringPtr(o.Color),
			Volume:      o.Volume,
		}
	}

	_, err := catalogAttempt(ctx, s.catalogs, s.logger, "create_custom_bet", func(ctx context.Context, c interfaces.CatalogStore) (struct{}, error) {
		return struct{}{}, c.CreateCustomBet(ctx, cb)
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"id": cb.ID, "outcomes": len(cb.Outcomes)}).Info("自定义竞猜已创建")
	return cb, nil
}

func seedMarkets() []*model.Market {
	seeds := model.SeedMarkets()
	out := make([]*model.Market, len(seeds))
	for i := range seeds {
		out[i] = &seeds[i]
	}
	return out
}
