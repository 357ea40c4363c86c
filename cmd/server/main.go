package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"noticeboard/config"
	"noticeboard/internal/api"
	"noticeboard/internal/cache"
	"noticeboard/internal/repository"
	"noticeboard/internal/scheduler"
	"noticeboard/pkg/blobstore"
	"noticeboard/pkg/database"
	"noticeboard/pkg/logger"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置文件失败: %v", err)
	}

	// 初始化日志
	logger := logger.NewLoggerWithConfig(cfg.LogLevel, cfg.LogFile)
	defer logger.Close()

	// 初始化数据库连接
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatal("无法链接到数据库", "driver", cfg.Database.Driver, "error", err)
	}
	defer db.Close()

	if err := repository.Migrate(context.Background(), db); err != nil {
		logger.Fatal("初始化数据表失败", "error", err)
	}

	// 初始化Redis连接，未配置时返回 nil
	redisClient, err := database.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("无法链接到Redis", "error", err)
	}

	// 未配置 Redis 时使用进程内缓存，并定时清理过期条目
	var resultCache cache.ResultCache
	if redisClient != nil {
		defer redisClient.Close()
		resultCache = cache.NewRedisCache(redisClient, cfg.CacheTTL, logger)
	} else {
		logger.Info("未配置Redis，使用进程内缓存")
		memoryCache := cache.NewMemoryCache(cfg.CacheTTL)
		cacheScheduler := scheduler.NewCacheScheduler(memoryCache, cfg.CacheTTL, logger)
		cacheScheduler.Start()
		defer cacheScheduler.Stop()
		resultCache = memoryCache
	}

	// 初始化附件存储
	blobs, err := newBlobStore(cfg, logger)
	if err != nil {
		logger.Fatal("初始化附件存储失败", "backend", cfg.Blob.Backend, "error", err)
	}

	// 初始化API路由
	router := api.SetupRouter(cfg, logger, db, resultCache, blobs)

	// 创建HTTP服务器
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.APIPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info(fmt.Sprintf("服务器启动于端口: %d", cfg.APIPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("启动服务器失败", "error", err)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("服务器被强制关闭", "error", err)
	}

	logger.Info("服务器已正常退出")
}

func newBlobStore(cfg *config.Config, logger *logger.Logger) (blobstore.Storage, error) {
	switch cfg.Blob.Backend {
	case "minio":
		return blobstore.NewMinioStore(cfg.Blob.Minio, logger)
	default:
		return blobstore.NewLocalStore(cfg.Blob.UploadDir, logger)
	}
}
