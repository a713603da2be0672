package listener

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"AnitMarket/internal/service"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

// TransferReference(address indexed sender, address indexed recipient, uint256 amount, address token, string referenceId, bool success)
const transferReferenceABI = `[
	{"type":"event","name":"TransferReference","anonymous":false,"inputs":[
		{"name":"sender","type":"address","indexed":true},
		{"name":"recipient","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"token","type":"address","indexed":false},
		{"name":"referenceId","type":"string","indexed":false},
		{"name":"success","type":"bool","indexed":false}
	]}
]`

var transferABI = mustParseABI(transferReferenceABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// TransferReferenceTopic 事件签名 topic0
func TransferReferenceTopic() common.Hash {
	return transferABI.Events["TransferReference"].ID
}

// LogSubscriber ethclient 中用到的部分
type LogSubscriber interface {
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

// ChainSubscriber 使用 go-ethereum 订阅支付合约的 TransferReference 事件并回调 ContractListener
type ChainSubscriber struct {
	contract common.Address
	client   LogSubscriber
	listener *ContractListener
	logger   *logrus.Logger
}

// NewChainSubscriber 创建链上订阅器（需传入已连接的 ethclient，便于测试）
func NewChainSubscriber(contractAddress string, client LogSubscriber, listener *ContractListener, logger *logrus.Logger) *ChainSubscriber {
	return &ChainSubscriber{
		contract: common.HexToAddress(contractAddress),
		client:   client,
		listener: listener,
		logger:   logger,
	}
}

// Run 阻塞订阅直到 ctx 结束或订阅出错
func (s *ChainSubscriber) Run(ctx context.Context) error {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{s.contract},
		Topics:    [][]common.Hash{{TransferReferenceTopic()}},
	}
	ch := make(chan types.Log)
	sub, err := s.client.SubscribeFilterLogs(ctx, query, ch)
	if err != nil {
		return fmt.Errorf("SubscribeFilterLogs: %w", err)
	}
	defer sub.Unsubscribe()
	s.logger.WithField("contract", s.contract.Hex()).Info("ChainSubscriber 已订阅 TransferReference")

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			s.logger.WithError(err).Error("ChainSubscriber subscription error")
			return err
		case vLog := <-ch:
			if err := s.handleLog(ctx, vLog); err != nil {
				s.logger.WithError(err).WithField("tx_hash", vLog.TxHash.Hex()).Warn("handleLog failed")
			}
		}
	}
}

func (s *ChainSubscriber) handleLog(ctx context.Context, vLog types.Log) error {
	if vLog.Removed {
		return nil
	}
	if vLog.Address != s.contract || len(vLog.Topics) == 0 || vLog.Topics[0] != TransferReferenceTopic() {
		return nil
	}
	ev, err := DecodeTransferReference(vLog)
	if err != nil {
		return err
	}
	return s.listener.OnTransferReference(ctx, ev)
}

// DecodeTransferReference topic1/topic2 为 sender/recipient，其余字段在 data 中
func DecodeTransferReference(vLog types.Log) (*service.TransferReferenceEvent, error) {
	if len(vLog.Topics) < 3 {
		return nil, fmt.Errorf("TransferReference missing indexed topics")
	}
	values, err := transferABI.Unpack("TransferReference", vLog.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack TransferReference: %w", err)
	}
	if len(values) != 4 {
		return nil, fmt.Errorf("TransferReference data: expected 4 values, got %d", len(values))
	}
	amount, _ := values[0].(*big.Int)
	token, _ := values[1].(common.Address)
	referenceID, _ := values[2].(string)
	success, _ := values[3].(bool)
	if amount == nil {
		amount = new(big.Int)
	}

	block := int64(vLog.BlockNumber)
	logIndex := int(vLog.Index)
	return &service.TransferReferenceEvent{
		Sender:          common.BytesToAddress(vLog.Topics[1].Bytes()).Hex(),
		Recipient:       common.BytesToAddress(vLog.Topics[2].Bytes()).Hex(),
		Amount:          amount.String(),
		Token:           token.Hex(),
		ReferenceID:     referenceID,
		Success:         success,
		BlockNumber:     &block,
		TransactionHash: vLog.TxHash.Hex(),
		LogIndex:        &logIndex,
	}, nil
}
