package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// MemoryKV 进程内键值存储，可选 JSON 快照文件（重启后恢复）
type MemoryKV struct {
	mu           sync.RWMutex
	data         map[string][]byte
	snapshotPath string
}

// NewMemoryKV 创建内存存储；snapshotPath 非空时从文件加载并在每次写入后落盘
func NewMemoryKV(snapshotPath string) (*MemoryKV, error) {
	m := &MemoryKV{data: make(map[string][]byte), snapshotPath: snapshotPath}
	if snapshotPath == "" {
		return m, nil
	}
	raw, err := os.ReadFile(snapshotPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m, nil
		}
		return nil, fmt.Errorf("localstore: read snapshot: %w", err)
	}
	snapshot := make(map[string]json.RawMessage)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &snapshot); err != nil {
			return nil, fmt.Errorf("localstore: decode snapshot: %w", err)
		}
	}
	for k, v := range snapshot {
		m.data[k] = []byte(v)
	}
	return m, nil
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return m.flushLocked()
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return m.flushLocked()
}

func (m *MemoryKV) Ping(context.Context) error { return nil }

// flushLocked 调用方须持有写锁
func (m *MemoryKV) flushLocked() error {
	if m.snapshotPath == "" {
		return nil
	}
	snapshot := make(map[string]json.RawMessage, len(m.data))
	for k, v := range m.data {
		snapshot[k] = json.RawMessage(v)
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("localstore: encode snapshot: %w", err)
	}
	if dir := filepath.Dir(m.snapshotPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("localstore: mkdir: %w", err)
		}
	}
	tmp := m.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("localstore: write snapshot: %w", err)
	}
	return os.Rename(tmp, m.snapshotPath)
}
