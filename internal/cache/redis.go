package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"noticeboard/internal/model"
	"noticeboard/pkg/logger"
)

// RedisCache 基于 Redis 的列表缓存，值为 JSON
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewRedisCache 创建 Redis 列表缓存
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *logger.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

// Get 读取缓存，任何错误都按未命中处理
func (c *RedisCache) Get(ctx context.Context, key string) (*model.Page[model.NoticeSummary], bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("读取列表缓存失败", "key", key, "error", err)
		}
		return nil, false
	}

	var page model.Page[model.NoticeSummary]
	if err := json.Unmarshal(data, &page); err != nil {
		c.logger.Warn("解析列表缓存失败", "key", key, "error", err)
		return nil, false
	}
	return &page, true
}

// Put 写入缓存
func (c *RedisCache) Put(ctx context.Context, key string, page *model.Page[model.NoticeSummary]) {
	data, err := json.Marshal(page)
	if err != nil {
		c.logger.Error("序列化列表缓存失败", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("写入列表缓存失败", "key", key, "error", err)
	}
}

// EvictAll 删除所有公告列表缓存
func (c *RedisCache) EvictAll(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, KeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Error("删除缓存失败", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Error("扫描列表缓存失败", "error", err)
	}
}
