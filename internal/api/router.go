package api

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"noticeboard/config"
	"noticeboard/internal/api/apis"
	"noticeboard/internal/api/handler"
	"noticeboard/internal/cache"
	"noticeboard/internal/middleware"
	"noticeboard/internal/repository"
	"noticeboard/internal/service"
	"noticeboard/pkg/blobstore"
	"noticeboard/pkg/logger"
)

// SetupRouter 设置API路由
func SetupRouter(cfg *config.Config, logger *logger.Logger, db *sqlx.DB, resultCache cache.ResultCache, blobs blobstore.Storage) *gin.Engine {
	// 创建Gin引擎
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// 使用中间件
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	// 初始化存储库
	noticeRepo := repository.NewNoticeRepository(db)

	// 初始化服务
	noticeService := service.NewNoticeService(noticeRepo, blobs, resultCache, logger)

	// 初始化处理器
	noticeHandler := handler.NewNoticeHandler(noticeService, logger)

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API版本v1
	v1 := router.Group("/api/v1")
	v1.Use(middleware.BodyLimit(cfg.MaxUploadSize))
	apis.RegisterRoutes(v1, noticeHandler)

	return router
}
