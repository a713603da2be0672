package listener

import (
	"context"

	"AnitMarket/internal/model"
	"AnitMarket/internal/service"

	"github.com/sirupsen/logrus"
)

// TransferHandler service.PaymentService 中处理 TransferReference 的部分
type TransferHandler interface {
	HandleTransferReference(ctx context.Context, ev *service.TransferReferenceEvent) (*model.Payment, error)
}

// ContractListener 收到支付合约 TransferReference 事件后更新支付记录
type ContractListener struct {
	payments TransferHandler
	logger   *logrus.Logger
}

// NewContractListener 创建合约事件监听器
func NewContractListener(payments TransferHandler, logger *logrus.Logger) *ContractListener {
	return &ContractListener{
		payments: payments,
		logger:   logger,
	}
}

// OnTransferReference 由链上订阅解析事件后调用
func (l *ContractListener) OnTransferReference(ctx context.Context, ev *service.TransferReferenceEvent) error {
	if ev == nil {
		return nil
	}
	p, err := l.payments.HandleTransferReference(ctx, ev)
	if err != nil {
		l.logger.WithError(err).WithField("reference", ev.ReferenceID).WithField("tx_hash", ev.TransactionHash).Error("HandleTransferReference failed")
		return err
	}
	l.logger.WithField("reference", p.Reference).WithField("status", p.Status).Info("TransferReference saved")
	return nil
}
