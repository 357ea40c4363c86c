package cache

import (
	"context"
	"sync"
	"time"

	"noticeboard/internal/model"
)

type memoryEntry struct {
	page      *model.Page[model.NoticeSummary]
	expiresAt time.Time
}

// MemoryCache 进程内列表缓存，未配置 Redis 时使用
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache 创建进程内缓存，ttl <= 0 表示不过期
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get 读取缓存，返回副本
func (c *MemoryCache) Get(_ context.Context, key string) (*model.Page[model.NoticeSummary], bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return clonePage(e.page), true
}

// Put 写入缓存
func (c *MemoryCache) Put(_ context.Context, key string, page *model.Page[model.NoticeSummary]) {
	if page == nil {
		return
	}
	e := memoryEntry{page: clonePage(page)}
	if c.ttl > 0 {
		e.expiresAt = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

// EvictAll 清空缓存
func (c *MemoryCache) EvictAll(_ context.Context) {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
}

// Prune 删除所有过期条目，返回删除数量
func (c *MemoryCache) Prune() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len 当前缓存条目数
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func clonePage(p *model.Page[model.NoticeSummary]) *model.Page[model.NoticeSummary] {
	cp := *p
	cp.Items = make([]model.NoticeSummary, len(p.Items))
	copy(cp.Items, p.Items)
	return &cp
}
