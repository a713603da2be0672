// Package localstore 本地兜底存储：在带前缀的键下保存 JSON 数组（users / bets / favorites / payments），
// 对应浏览器 localStorage 的服务端版本。只做增删改查，不提供事务。
package localstore

import (
	"context"
	"errors"
)

// ErrKeyNotFound 键不存在
var ErrKeyNotFound = errors.New("localstore: key not found")

// KV 键值后端
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}
