package api

import (
	"net/http"
	"time"

	"AnitMarket/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PaymentHandler 支付引用接口与 TransferReference webhook
type PaymentHandler struct {
	payments *service.PaymentService
	logger   *logrus.Logger
}

func NewPaymentHandler(payments *service.PaymentService, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

type paymentUser struct {
	ID            string `json:"id"`
	WalletAddress string `json:"walletAddress"`
	Username      string `json:"username"`
}

type initiatePaymentRequest struct {
	Amount      *float64     `json:"amount" binding:"required"`
	Currency    string       `json:"currency"`
	MarketID    string       `json:"marketId" binding:"required"`
	OutcomeID   string       `json:"outcomeId" binding:"required"`
	User        *paymentUser `json:"user"`
	Description string       `json:"description"`
}

// Initiate POST /api/payment/initiate
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req initiatePaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	in := service.InitiateInput{
		Amount:      *req.Amount,
		Currency:    req.Currency,
		MarketID:    req.MarketID,
		OutcomeID:   req.OutcomeID,
		Description: req.Description,
	}
	if req.User != nil {
		in.UserID = req.User.ID
		in.WalletAddress = req.User.WalletAddress
	}
	res, err := h.payments.Initiate(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.logger, "InitiatePayment", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type confirmPayload struct {
	Reference     string `json:"reference" binding:"required"`
	TransactionID string `json:"transaction_id" binding:"required"`
}

type confirmPaymentRequest struct {
	Payload *confirmPayload `json:"payload" binding:"required"`
}

// Confirm POST /api/payment/confirm
func (h *PaymentHandler) Confirm(c *gin.Context) {
	var req confirmPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.payments.Confirm(c.Request.Context(), req.Payload.Reference, req.Payload.TransactionID)
	if err != nil {
		writeError(c, h.logger, "ConfirmPayment", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type verifyPaymentRequest struct {
	PaymentID string `json:"paymentId" binding:"required"`
}

// Verify POST /api/payment/verify
func (h *PaymentHandler) Verify(c *gin.Context) {
	var req verifyPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.payments.Verify(c.Request.Context(), req.PaymentID)
	if err != nil {
		writeError(c, h.logger, "VerifyPayment", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// History GET /api/payment/history?userId=
func (h *PaymentHandler) History(c *gin.Context) {
	q, ok := requireQuery(c, "userId")
	if !ok {
		return
	}
	res, err := h.payments.History(c.Request.Context(), q["userId"])
	if err != nil {
		writeError(c, h.logger, "PaymentHistory", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type transferReferenceRequest struct {
	Sender          string `json:"sender" binding:"required"`
	Recipient       string `json:"recipient" binding:"required"`
	Amount          string `json:"amount"`
	Token           string `json:"token"`
	ReferenceID     string `json:"referenceId" binding:"required"`
	Success         bool   `json:"success"`
	BlockNumber     *int64 `json:"blockNumber"`
	TransactionHash string `json:"transactionHash"`
	LogIndex        *int   `json:"logIndex"`
}

// TransferReference POST /api/webhook/transfer-reference
func (h *PaymentHandler) TransferReference(c *gin.Context) {
	var req transferReferenceRequest
	if !bindJSON(c, &req) {
		return
	}
	ev := service.TransferReferenceEvent(req)
	if _, err := h.payments.HandleTransferReference(c.Request.Context(), &ev); err != nil {
		writeError(c, h.logger, "TransferReference", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "TransferReference event processed successfully",
		"referenceId": req.ReferenceID,
	})
}

// TransferReferenceChallenge GET /api/webhook/transfer-reference?challenge= 回显用于 webhook 校验
func (h *PaymentHandler) TransferReferenceChallenge(c *gin.Context) {
	if challenge := c.Query("challenge"); challenge != "" {
		c.JSON(http.StatusOK, gin.H{"challenge": challenge})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "TransferReference webhook endpoint is active",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
