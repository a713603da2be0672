package service

import (
	"math"

	"AnitMarket/internal/model"

	"github.com/shopspring/decimal"
)

// 统计函数只依赖传入的下注集合，不关心数据来自哪一层；每次读取全量重算

// Volume 真实交易（isRealTransaction=true）的下注金额之和
func Volume(bets []*model.Bet) float64 {
	total := decimal.Zero
	for _, b := range bets {
		if b == nil || !b.IsRealTransaction {
			continue
		}
		total = total.Add(decimal.NewFromFloat(b.Amount))
	}
	return total.InexactFloat64()
}

// TraderCount 真实交易中不同用户数；userId 为空时按钱包地址区分
func TraderCount(bets []*model.Bet) int {
	seen := make(map[string]struct{})
	for _, b := range bets {
		if b == nil || !b.IsRealTransaction {
			continue
		}
		key := b.UserID
		if key == "" {
			key = "wallet:" + b.WalletAddress
		}
		seen[key] = struct{}{}
	}
	return len(seen)
}

// OutcomeVolumes 按选项汇总真实交易金额
func OutcomeVolumes(bets []*model.Bet) map[string]float64 {
	sums := make(map[string]decimal.Decimal)
	for _, b := range bets {
		if b == nil || !b.IsRealTransaction {
			continue
		}
		sums[b.OutcomeID] = sums[b.OutcomeID].Add(decimal.NewFromFloat(b.Amount))
	}
	out := make(map[string]float64, len(sums))
	for id, v := range sums {
		out[id] = v.InexactFloat64()
	}
	return out
}

// ProbabilityFromVolume 按成交量占比计算概率（0-100）。
// 总量为 0 时均分；否则每项独立四舍五入，总和可能不等于 100
func ProbabilityFromVolume(volumes []float64) []float64 {
	out := make([]float64, len(volumes))
	if len(volumes) == 0 {
		return out
	}
	var total float64
	for _, v := range volumes {
		total += v
	}
	if total == 0 {
		uniform := 100 / float64(len(volumes))
		for i := range out {
			out[i] = uniform
		}
		return out
	}
	for i, v := range volumes {
		out[i] = math.Round(100 * v / total)
	}
	return out
}

// MarketStats 市场统计
type MarketStats struct {
	MarketID string  `json:"marketId"`
	Volume   float64 `json:"volume"`
	Traders  int     `json:"traders"`
	BetCount int     `json:"betCount"`
}

// ComputeMarketStats betCount 为全部下注条数，volume/traders 只计真实交易
func ComputeMarketStats(marketID string, bets []*model.Bet) MarketStats {
	return MarketStats{
		MarketID: marketID,
		Volume:   Volume(bets),
		Traders:  TraderCount(bets),
		BetCount: len(bets),
	}
}
