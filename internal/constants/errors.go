package constants

// 通用错误消息
const (
	// 参数相关错误
	ErrInvalidParams  = "参数错误"
	ErrInvalidFormat  = "格式错误"
	ErrInvalidRequest = "无效请求格式"
	ErrInvalidID      = "无效的ID"
	ErrInvalidDate    = "日期格式错误，应为 YYYY-MM-DD"
	ErrInvalidSort    = "排序参数格式错误，应为 字段,方向"

	// 公告相关错误
	ErrNoticeNotFound  = "公告不存在"
	ErrTitleRequired   = "标题不能为空"
	ErrTitleTooLong    = "标题不能超过200个字符"
	ErrContentRequired = "内容不能为空"
	ErrStartRequired   = "开始时间不能为空"
	ErrEndRequired     = "结束时间不能为空"
	ErrDateRange       = "开始时间必须早于结束时间"

	// 附件相关错误
	ErrFileNotFound    = "文件不存在"
	ErrFileTooLarge    = "上传内容超过大小限制"
	ErrStorageFailure  = "文件存储失败"
	ErrDownloadFailure = "文件读取失败"

	// 系统错误
	ErrInternalServer = "服务器内部错误"
)

// 成功消息
const (
	SuccessCreate = "创建成功"
	SuccessUpdate = "更新成功"
	SuccessDelete = "删除成功"
	SuccessGet    = "获取成功"
)
