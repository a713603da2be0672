package service

import "errors"

var (
	// ErrNotFound 所有可用层都没有该记录
	ErrNotFound = errors.New("not found")
	// ErrAllTiersFailed 写操作在主库、嵌入式库、本地层全部失败
	ErrAllTiersFailed = errors.New("all storage tiers failed")
	// ErrTierUnavailable 指定的存储层未配置
	ErrTierUnavailable = errors.New("storage tier unavailable")
	// ErrReferenceNotFound 支付引用不存在
	ErrReferenceNotFound = errors.New("reference not found")
	// ErrInvalidEvent TransferReference 事件未通过校验
	ErrInvalidEvent = errors.New("invalid transfer reference event")
	// ErrInvalidStatus 下注状态不在 pending/won/lost/cancelled 之内
	ErrInvalidStatus = errors.New("invalid bet status")
	// ErrInvalidInput 缺少必要字段
	ErrInvalidInput = errors.New("invalid input")
)
