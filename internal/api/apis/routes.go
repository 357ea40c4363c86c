package apis

import (
	"github.com/gin-gonic/gin"

	"noticeboard/internal/api/handler"
)

// RegisterRoutes 注册所有API路由
func RegisterRoutes(v1 *gin.RouterGroup, noticeHandler *handler.NoticeHandler) {
	RegisterNoticeRoutes(v1, noticeHandler)
}
