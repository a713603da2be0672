package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"AnitMarket/internal/chain"
	"AnitMarket/internal/config"
	"AnitMarket/internal/model"
	"AnitMarket/internal/worldcoin"

	"github.com/sirupsen/logrus"
)

// Verification 一次支付核验的结果
type Verification struct {
	Verified        bool
	Status          string // 上游状态，如 mined / failed / pending / simulated
	TransactionHash string
	BlockNumber     *int64
	Simulated       bool
	Reason          string
}

// Verifier 支付核验
type Verifier interface {
	Name() string
	// Confirm 前端回传 transactionID 后核对该笔支付
	Confirm(ctx context.Context, p *model.Payment, transactionID string) (*Verification, error)
	// Verify 按已保存的支付记录重新核验
	Verify(ctx context.Context, p *model.Payment) (*Verification, error)
}

// NewVerifier 按 payment.verifier 构建：simulated（默认）/ worldcoin / chain
func NewVerifier(cfg config.PaymentConfig, logger *logrus.Logger) (Verifier, error) {
	switch strings.ToLower(cfg.Verifier) {
	case "", "simulated":
		return SimulatedVerifier{}, nil
	case "worldcoin":
		if cfg.AppID == "" || cfg.DevPortalAPIKey == "" {
			return nil, fmt.Errorf("worldcoin verifier 需要 app_id 与 dev_portal_key")
		}
		client := worldcoin.NewClient(worldcoin.Config{
			BaseURL: cfg.DevPortalURL,
			AppID:   cfg.AppID,
			APIKey:  cfg.DevPortalAPIKey,
			Timeout: cfg.Timeout,
			Proxy:   cfg.Proxy,
		}, logger)
		return NewWorldcoinVerifier(client), nil
	case "chain":
		if cfg.RPCURL == "" {
			return nil, fmt.Errorf("chain verifier 需要 rpc_url")
		}
		return NewChainVerifier(chain.NewReceiptFetcher(cfg.RPCURL)), nil
	default:
		return nil, fmt.Errorf("未知的 payment.verifier: %s", cfg.Verifier)
	}
}

// SimulatedVerifier 演示环境：总是通过并标记 simulated，不伪造交易哈希或区块号
type SimulatedVerifier struct{}

func (SimulatedVerifier) Name() string { return "simulated" }

func (SimulatedVerifier) Confirm(_ context.Context, p *model.Payment, _ string) (*Verification, error) {
	return &Verification{
		Verified:        true,
		Status:          "simulated",
		TransactionHash: model.Deref(p.TransactionHash),
		BlockNumber:     p.BlockNumber,
		Simulated:       true,
	}, nil
}

func (v SimulatedVerifier) Verify(ctx context.Context, p *model.Payment) (*Verification, error) {
	return v.Confirm(ctx, p, "")
}

// TransactionLookup worldcoin.Client 中用到的部分
type TransactionLookup interface {
	GetTransaction(ctx context.Context, transactionID string) (*worldcoin.Transaction, error)
}

// WorldcoinVerifier 通过开发者平台核对 MiniKit 支付
type WorldcoinVerifier struct {
	client TransactionLookup
}

func NewWorldcoinVerifier(client TransactionLookup) *WorldcoinVerifier {
	return &WorldcoinVerifier{client: client}
}

func (v *WorldcoinVerifier) Name() string { return "worldcoin" }

// Confirm 引用一致且状态不为 failed 即视为成功（乐观确认，不轮询到 mined）
func (v *WorldcoinVerifier) Confirm(ctx context.Context, p *model.Payment, transactionID string) (*Verification, error) {
	tx, err := v.client.GetTransaction(ctx, transactionID)
	if err != nil {
		if errors.Is(err, worldcoin.ErrTransactionNotFound) {
			return &Verification{Status: "not_found", Reason: "transaction not found"}, nil
		}
		return nil, err
	}
	res := &Verification{Status: tx.Status, TransactionHash: tx.TransactionHash}
	switch {
	case tx.Reference != p.Reference:
		res.Reason = "reference mismatch"
	case tx.Failed():
		res.Reason = "transaction failed"
	default:
		res.Verified = true
	}
	return res, nil
}

// Verify 开发者平台只能按 transaction_id 查询，这里以 confirm 时写入的状态为准
func (v *WorldcoinVerifier) Verify(_ context.Context, p *model.Payment) (*Verification, error) {
	return &Verification{
		Verified:        p.Status == model.PaymentStatusCompleted,
		Status:          p.Status,
		TransactionHash: model.Deref(p.TransactionHash),
		BlockNumber:     p.BlockNumber,
	}, nil
}

// ReceiptSource chain.ReceiptFetcher 中用到的部分
type ReceiptSource interface {
	Fetch(ctx context.Context, txHash string) (*chain.Receipt, error)
}

// ChainVerifier 按交易回执核验：回执存在且 status=1 才算成功
type ChainVerifier struct {
	receipts ReceiptSource
}

func NewChainVerifier(receipts ReceiptSource) *ChainVerifier {
	return &ChainVerifier{receipts: receipts}
}

func (v *ChainVerifier) Name() string { return "chain" }

func (v *ChainVerifier) Confirm(ctx context.Context, _ *model.Payment, transactionID string) (*Verification, error) {
	return v.check(ctx, transactionID)
}

func (v *ChainVerifier) Verify(ctx context.Context, p *model.Payment) (*Verification, error) {
	if p.TransactionHash == nil || *p.TransactionHash == "" {
		return &Verification{Status: "pending", Reason: "no transaction hash recorded"}, nil
	}
	return v.check(ctx, *p.TransactionHash)
}

func (v *ChainVerifier) check(ctx context.Context, txHash string) (*Verification, error) {
	if !chain.IsTxHash(txHash) {
		return &Verification{Status: "failed", Reason: "invalid transaction hash"}, nil
	}
	receipt, err := v.receipts.Fetch(ctx, txHash)
	if err != nil {
		if errors.Is(err, chain.ErrReceiptPending) {
			return &Verification{Status: "pending", TransactionHash: txHash, Reason: "transaction not mined yet"}, nil
		}
		return nil, err
	}
	block := receipt.BlockNumber
	res := &Verification{
		Verified:        receipt.Success,
		Status:          "mined",
		TransactionHash: receipt.TxHash,
		BlockNumber:     &block,
	}
	if !receipt.Success {
		res.Status = "failed"
		res.Reason = "transaction reverted"
	}
	return res, nil
}
