package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"AnitMarket/internal/chain"
	"AnitMarket/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// ZeroAddress 未配置收款地址时的占位
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// TokenAmount MiniKit pay 命令中的代币金额（最小单位字符串）
type TokenAmount struct {
	Symbol      string `json:"symbol"`
	TokenAmount string `json:"token_amount"`
}

// PayCommandInput 交给前端 MiniKit 的 pay 命令参数
type PayCommandInput struct {
	Reference   string        `json:"reference"`
	To          string        `json:"to"`
	Tokens      []TokenAmount `json:"tokens"`
	Network     string        `json:"network,omitempty"`
	Description string        `json:"description"`
}

// InitiateInput 发起支付
type InitiateInput struct {
	Amount        float64
	Currency      string
	MarketID      string
	OutcomeID     string
	UserID        string
	WalletAddress string
	Description   string
}

// InitiateResult 发起支付返回
type InitiateResult struct {
	Success         bool            `json:"success"`
	Reference       string          `json:"reference"`
	PayCommandInput PayCommandInput `json:"payCommandInput"`
	Message         string          `json:"message"`
}

// ConfirmResult 确认支付返回
type ConfirmResult struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id,omitempty"`
	Reference     string `json:"reference"`
	Status        string `json:"status"`
	Simulated     bool   `json:"simulated,omitempty"`
	Error         string `json:"error,omitempty"`
}

// VerifyResult 核验支付返回
type VerifyResult struct {
	PaymentID       string     `json:"paymentId"`
	Verified        bool       `json:"verified"`
	TransactionHash *string    `json:"transactionHash"`
	BlockNumber     *int64     `json:"blockNumber"`
	VerifiedAt      *time.Time `json:"verifiedAt"`
	Simulated       bool       `json:"simulated,omitempty"`
	Reason          string     `json:"reason,omitempty"`
}

// PaymentHistory 支付历史
type PaymentHistory struct {
	Payments    []*model.Payment `json:"payments"`
	Total       int              `json:"total"`
	TotalAmount float64          `json:"totalAmount"`
}

// TransferReferenceEvent 支付合约 TransferReference 事件（webhook 或链上订阅）
type TransferReferenceEvent struct {
	Sender          string `json:"sender"`
	Recipient       string `json:"recipient"`
	Amount          string `json:"amount"`
	Token           string `json:"token"`
	ReferenceID     string `json:"referenceId"`
	Success         bool   `json:"success"`
	BlockNumber     *int64 `json:"blockNumber,omitempty"`
	TransactionHash string `json:"transactionHash,omitempty"`
	LogIndex        *int   `json:"logIndex,omitempty"`
}

// PaymentService 支付引用的生命周期：initiate 落库 → confirm/verify/webhook 更新状态
type PaymentService struct {
	store     *Orchestrator
	verifier  Verifier
	recipient string
	logger    *logrus.Logger
	now       func() time.Time
}

// NewPaymentService recipient 不是合法地址时使用零地址
func NewPaymentService(store *Orchestrator, verifier Verifier, recipient string, logger *logrus.Logger) *PaymentService {
	if !common.IsHexAddress(recipient) {
		if recipient != "" {
			logger.WithField("recipient", recipient).Warn("收款地址不合法，使用零地址")
		}
		recipient = ZeroAddress
	}
	if verifier == nil {
		verifier = SimulatedVerifier{}
	}
	return &PaymentService{
		store:     store,
		verifier:  verifier,
		recipient: common.HexToAddress(recipient).Hex(),
		logger:    logger,
		now:       time.Now,
	}
}

// Recipient 收款地址（EIP-55 格式）
func (s *PaymentService) Recipient() string { return s.recipient }

// Initiate 生成 bet-<market>-<outcome>-<毫秒> 引用，保存待支付记录并返回 pay 命令参数
func (s *PaymentService) Initiate(ctx context.Context, in InitiateInput) (*InitiateResult, error) {
	if in.Amount == 0 || in.MarketID == "" || in.OutcomeID == "" {
		return nil, ErrInvalidInput
	}
	now := s.now()
	reference := fmt.Sprintf("bet-%s-%s-%d", in.MarketID, in.OutcomeID, now.UnixMilli())
	description := in.Description
	if description == "" {
		description = fmt.Sprintf("Bet on market %s", in.MarketID)
	}
	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		currency = "WLD"
	}
	tokenAmount := chain.ToTokenUnits(in.Amount, chain.WLDDecimals).String()

	cmd := PayCommandInput{
		Reference:   reference,
		To:          s.recipient,
		Tokens:      []TokenAmount{{Symbol: "WLD", TokenAmount: tokenAmount}},
		Network:     "wld",
		Description: description,
	}
	raw, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}

	p := &model.Payment{
		ID:            uuid.NewString(),
		Reference:     reference,
		Status:        model.PaymentStatusPending,
		Amount:        in.Amount,
		Currency:      currency,
		MarketID:      in.MarketID,
		OutcomeID:     in.OutcomeID,
		UserID:        in.UserID,
		WalletAddress: in.WalletAddress,
		Description:   description,
		Network:       "wld",
		TokenAmount:   tokenAmount,
		PayCommand:    datatypes.JSON(raw),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.SavePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("保存支付引用失败: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"reference": reference, "amount": in.Amount, "market_id": in.MarketID}).Info("支付已发起")

	return &InitiateResult{
		Success:         true,
		Reference:       reference,
		PayCommandInput: cmd,
		Message:         "Payment initiated successfully",
	}, nil
}

func (s *PaymentService) lookupReference(ctx context.Context, reference string) (*model.Payment, error) {
	p, err := s.store.GetPaymentByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrReferenceNotFound
		}
		return nil, err
	}
	return p, nil
}

// Confirm 前端支付成功后回传 reference 与 transaction_id，核验后更新记录
func (s *PaymentService) Confirm(ctx context.Context, reference, transactionID string) (*ConfirmResult, error) {
	if reference == "" || transactionID == "" {
		return nil, ErrInvalidInput
	}
	p, err := s.lookupReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	v, err := s.verifier.Confirm(ctx, p, transactionID)
	if err != nil {
		return nil, fmt.Errorf("%s 核验失败: %w", s.verifier.Name(), err)
	}
	s.apply(ctx, p, v)

	res := &ConfirmResult{
		Success:       v.Verified,
		TransactionID: transactionID,
		Reference:     reference,
		Status:        v.Status,
		Simulated:     v.Simulated,
	}
	if !v.Verified {
		res.Error = "Transaction failed or reference mismatch"
		if v.Reason != "" {
			res.Error = v.Reason
		}
	}
	return res, nil
}

// Verify paymentID 可以是支付 ID 或引用
func (s *PaymentService) Verify(ctx context.Context, paymentID string) (*VerifyResult, error) {
	if paymentID == "" {
		return nil, ErrInvalidInput
	}
	p, err := s.store.GetPayment(ctx, paymentID)
	if errors.Is(err, ErrNotFound) {
		p, err = s.store.GetPaymentByReference(ctx, paymentID)
	}
	if err != nil {
		return nil, err
	}
	v, err := s.verifier.Verify(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%s 核验失败: %w", s.verifier.Name(), err)
	}
	if v.Verified && p.Status != model.PaymentStatusCompleted {
		s.apply(ctx, p, v)
	}

	res := &VerifyResult{
		PaymentID: paymentID,
		Verified:  v.Verified,
		Simulated: v.Simulated,
		Reason:    v.Reason,
	}
	if v.Verified {
		at := s.now()
		res.VerifiedAt = &at
		res.TransactionHash = model.StringPtr(v.TransactionHash)
		res.BlockNumber = v.BlockNumber
	}
	return res, nil
}

// apply 把核验结果写回支付记录；写入失败只记日志，不影响本次返回
func (s *PaymentService) apply(ctx context.Context, p *model.Payment, v *Verification) {
	switch {
	case v.Verified:
		p.Status = model.PaymentStatusCompleted
	case v.Status == "pending":
		return
	case v.Status == "failed" || v.Reason != "":
		p.Status = model.PaymentStatusFailed
	default:
		return
	}
	if v.TransactionHash != "" {
		p.TransactionHash = model.StringPtr(v.TransactionHash)
	}
	if v.BlockNumber != nil {
		p.BlockNumber = v.BlockNumber
	}
	if err := s.store.UpdatePayment(ctx, p); err != nil {
		s.logger.WithError(err).WithField("reference", p.Reference).Warn("更新支付状态失败")
	}
}

// History 用户支付记录（userId 可为用户 ID 或钱包地址）
func (s *PaymentService) History(ctx context.Context, userID string) (*PaymentHistory, error) {
	list, err := s.store.ListPaymentsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, p := range list {
		total = total.Add(decimal.NewFromFloat(p.Amount))
	}
	return &PaymentHistory{Payments: list, Total: len(list), TotalAmount: total.InexactFloat64()}, nil
}

// HandleTransferReference 处理支付合约事件：事件须成功且带交易哈希与区块号，
// 收款方须为本服务的收款地址（未配置时不校验），然后将对应支付标记为完成
func (s *PaymentService) HandleTransferReference(ctx context.Context, ev *TransferReferenceEvent) (*model.Payment, error) {
	if ev == nil || ev.ReferenceID == "" || ev.Sender == "" || ev.Recipient == "" {
		return nil, ErrInvalidInput
	}
	if !ev.Success || ev.TransactionHash == "" || ev.BlockNumber == nil {
		return nil, fmt.Errorf("transfer not successful or missing tx data: %w", ErrInvalidEvent)
	}
	if !chain.IsTxHash(ev.TransactionHash) {
		return nil, fmt.Errorf("bad transaction hash: %w", ErrInvalidEvent)
	}
	if s.recipient != ZeroAddress && !strings.EqualFold(ev.Recipient, s.recipient) {
		return nil, fmt.Errorf("recipient %s: %w", ev.Recipient, ErrInvalidEvent)
	}

	p, err := s.lookupReference(ctx, ev.ReferenceID)
	if err != nil {
		return nil, err
	}
	p.Status = model.PaymentStatusCompleted
	p.TransactionHash = model.StringPtr(ev.TransactionHash)
	p.BlockNumber = ev.BlockNumber
	if err := s.store.UpdatePayment(ctx, p); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"reference": ev.ReferenceID, "tx_hash": ev.TransactionHash}).Info("TransferReference 已处理，支付完成")
	return p, nil
}
