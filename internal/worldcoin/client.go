package worldcoin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"AnitMarket/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

// DefaultDevPortalURL Worldcoin 开发者平台
const DefaultDevPortalURL = "https://developer.worldcoin.org"

// ErrTransactionNotFound 开发者平台查不到该交易
var ErrTransactionNotFound = errors.New("worldcoin: transaction not found")

// Client Worldcoin 开发者平台客户端，用于核对 MiniKit 支付交易
type Client struct {
	baseURL    string
	appID      string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
}

// Config 客户端配置
type Config struct {
	BaseURL string
	AppID   string
	APIKey  string
	Timeout int // 秒
	Proxy   string
}

// NewClient 创建开发者平台客户端
func NewClient(cfg Config, logger *logrus.Logger) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultDevPortalURL
	}
	return &Client{
		baseURL:    baseURL,
		appID:      cfg.AppID,
		apiKey:     cfg.APIKey,
		httpClient: httpclient.NewHTTPClient(httpclient.Options{Timeout: cfg.Timeout, Proxy: cfg.Proxy}, logger),
		logger:     logger,
	}
}

// Transaction minikit 交易查询结果（只取用到的字段）
type Transaction struct {
	TransactionID     string `json:"transaction_id"`
	TransactionHash   string `json:"transaction_hash"`
	TransactionStatus string `json:"transaction_status"`
	Reference         string `json:"reference"`
	Status            string `json:"status"`
	From              string `json:"from"`
	To                string `json:"to"`
	Chain             string `json:"chain"`
	TokenAmount       string `json:"token_amount"`
	Token             string `json:"token"`
}

// Failed 平台报告交易失败
func (t *Transaction) Failed() bool {
	return t.Status == "failed" || t.TransactionStatus == "failed"
}

// GetTransaction GET /api/v2/minikit/transaction/{id}?app_id=...
func (c *Client) GetTransaction(ctx context.Context, transactionID string) (*Transaction, error) {
	if c.appID == "" || c.apiKey == "" {
		return nil, fmt.Errorf("Worldcoin app_id 或 API key 未配置")
	}
	endpoint := fmt.Sprintf("%s/api/v2/minikit/transaction/%s?app_id=%s",
		c.baseURL, url.PathEscape(transactionID), url.QueryEscape(c.appID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Warn("Worldcoin 交易查询 HTTP 请求失败")
		return nil, fmt.Errorf("Worldcoin API 请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrTransactionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.WithField("status", resp.StatusCode).WithField("body", string(body)).Warn("Worldcoin API 错误")
		return nil, fmt.Errorf("Worldcoin API 错误 %d", resp.StatusCode)
	}
	var tx Transaction
	if err := json.Unmarshal(body, &tx); err != nil {
		c.logger.WithError(err).WithField("body", string(body)).Warn("Worldcoin 响应解析失败")
		return nil, fmt.Errorf("Worldcoin API 响应解析失败: %w", err)
	}
	if tx.TransactionID == "" {
		tx.TransactionID = transactionID
	}
	c.logger.WithField("transaction_id", transactionID).WithField("status", tx.Status).Debug("Worldcoin 交易查询成功")
	return &tx, nil
}
