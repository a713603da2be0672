package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ErrReceiptPending 交易尚未上链
var ErrReceiptPending = errors.New("chain: receipt not available yet")

// Receipt 交易回执摘要
type Receipt struct {
	TxHash      string
	BlockNumber int64
	Success     bool
}

// ReceiptReader ethclient 中用到的部分，便于测试替换
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// ReceiptFetcher 通过 JSON-RPC 查询交易回执
type ReceiptFetcher struct {
	rpcURL   string
	reader   ReceiptReader
	attempts int
	interval time.Duration
}

// NewReceiptFetcher 每次查询时按需拨号 rpcURL
func NewReceiptFetcher(rpcURL string) *ReceiptFetcher {
	return &ReceiptFetcher{rpcURL: rpcURL, attempts: 3, interval: 2 * time.Second}
}

// NewReceiptFetcherWithReader 使用已有连接（测试或长连接）
func NewReceiptFetcherWithReader(reader ReceiptReader, attempts int, interval time.Duration) *ReceiptFetcher {
	if attempts <= 0 {
		attempts = 1
	}
	return &ReceiptFetcher{reader: reader, attempts: attempts, interval: interval}
}

// IsTxHash 0x 开头的 32 字节十六进制
func IsTxHash(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return false
	}
	if len(s) != 2+2*common.HashLength {
		return false
	}
	for _, c := range s[2:] {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			continue
		}
		return false
	}
	return true
}

// Fetch 查询回执；未上链时按间隔重试，重试耗尽返回 ErrReceiptPending
func (f *ReceiptFetcher) Fetch(ctx context.Context, txHash string) (*Receipt, error) {
	if !IsTxHash(txHash) {
		return nil, fmt.Errorf("invalid transaction hash: %q", txHash)
	}
	reader := f.reader
	if reader == nil {
		if f.rpcURL == "" {
			return nil, fmt.Errorf("rpc_url 未配置")
		}
		client, err := ethclient.DialContext(ctx, f.rpcURL)
		if err != nil {
			return nil, fmt.Errorf("dial rpc: %w", err)
		}
		defer client.Close()
		reader = client
	}

	hash := common.HexToHash(txHash)
	for i := 0; i < f.attempts; i++ {
		receipt, err := reader.TransactionReceipt(ctx, hash)
		if err == nil {
			var block int64
			if receipt.BlockNumber != nil {
				block = receipt.BlockNumber.Int64()
			}
			return &Receipt{
				TxHash:      hash.Hex(),
				BlockNumber: block,
				Success:     receipt.Status == types.ReceiptStatusSuccessful,
			}, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("transaction receipt: %w", err)
		}
		if i == f.attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("等待交易确认: %w", ctx.Err())
		case <-time.After(f.interval):
		}
	}
	return nil, ErrReceiptPending
}
