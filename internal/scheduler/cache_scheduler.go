package scheduler

import (
	"sync"
	"time"

	"noticeboard/pkg/logger"
)

// Pruner 可以清理过期条目的缓存
type Pruner interface {
	Prune() int
}

// CacheScheduler 定时清理进程内缓存中的过期条目
type CacheScheduler struct {
	cache    Pruner
	interval time.Duration
	logger   *logger.Logger
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewCacheScheduler 创建缓存清理调度器实例
func NewCacheScheduler(cache Pruner, interval time.Duration, logger *logger.Logger) *CacheScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &CacheScheduler{
		cache:    cache,
		interval: interval,
		logger:   logger,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start 启动缓存清理调度器
func (s *CacheScheduler) Start() {
	go s.pruneScheduler()
	s.logger.Info("缓存清理调度器启动", "interval", s.interval)
}

// Stop 停止缓存清理调度器，等待正在进行的清理结束
func (s *CacheScheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		<-s.done
		s.logger.Info("缓存清理调度器停止")
	})
}

// pruneScheduler 缓存清理定时器
func (s *CacheScheduler) pruneScheduler() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.prune()
		case <-s.quit:
			return
		}
	}
}

// prune 清理的具体实现
func (s *CacheScheduler) prune() {
	if n := s.cache.Prune(); n > 0 {
		s.logger.Debug("清理过期缓存", "count", n)
	}
}
