package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// 下注状态
const (
	BetStatusPending   = "pending"
	BetStatusWon       = "won"
	BetStatusLost      = "lost"
	BetStatusCancelled = "cancelled"
)

// 支付状态
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// ValidBetStatus 判断状态是否合法
func ValidBetStatus(status string) bool {
	switch status {
	case BetStatusPending, BetStatusWon, BetStatusLost, BetStatusCancelled:
		return true
	}
	return false
}

// NewUserID 生成用户ID：user_<毫秒>_<9位随机串>
func NewUserID() string {
	return newID("user")
}

// NewBetID 生成下注ID：bet_<毫秒>_<9位随机串>
func NewBetID() string {
	return newID("bet")
}

// NewCustomBetID 自定义竞猜ID
func NewCustomBetID() string {
	return newID("custom")
}

func newID(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), suffix)
}

// DefaultUsername 未提供用户名时的默认值，如 "User 0x1234...abcd"
func DefaultUsername(walletAddress string) string {
	if len(walletAddress) <= 10 {
		return "User " + walletAddress
	}
	return fmt.Sprintf("User %s...%s", walletAddress[:6], walletAddress[len(walletAddress)-4:])
}

// StringPtr 空串返回 nil
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref 取指针值，nil 返回空串
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
