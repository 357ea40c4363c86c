package apis

import (
	"github.com/gin-gonic/gin"

	"noticeboard/internal/api/handler"
)

// RegisterNoticeRoutes 注册公告相关路由
func RegisterNoticeRoutes(router *gin.RouterGroup, noticeHandler *handler.NoticeHandler) {
	notices := router.Group("/notices")
	notices.GET("", noticeHandler.SearchNotices)
	notices.POST("", noticeHandler.CreateNotice)
	notices.GET("/:id", noticeHandler.GetNotice)
	notices.PUT("/:id", noticeHandler.UpdateNotice)
	notices.DELETE("/:id", noticeHandler.DeleteNotice)

	// 附件下载
	notices.GET("/files/:fileId", noticeHandler.DownloadFile)
}
