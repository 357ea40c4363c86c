package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"noticeboard/internal/constants"
	"noticeboard/internal/model"
	"noticeboard/internal/service"
	"noticeboard/internal/types"
	"noticeboard/pkg/apperror"
	"noticeboard/pkg/logger"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	dateLayout      = "2006-01-02"
)

// NoticeHandler 公告处理器
type NoticeHandler struct {
	noticeService *service.NoticeService
	logger        *logger.Logger
}

// NewNoticeHandler 创建公告处理器实例
func NewNoticeHandler(noticeService *service.NoticeService, logger *logger.Logger) *NoticeHandler {
	return &NoticeHandler{
		noticeService: noticeService,
		logger:        logger,
	}
}

// SearchNotices 获取公告列表
// @Summary 获取公告列表
// @Description 按关键字、创建日期检索公告，支持分页与排序
// @Tags 公告
// @Produce json
// @Param filter query string false "关键字"
// @Param searchType query string false "TITLE 或 TITLE_CONTENT，默认 TITLE_CONTENT"
// @Param startDate query string false "开始日期 YYYY-MM-DD"
// @Param endDate query string false "结束日期 YYYY-MM-DD"
// @Param page query int false "页码，默认1"
// @Param size query int false "每页条数，默认10"
// @Param sort query string false "排序，如 createdAt,desc，可重复"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/notices [get]
func (h *NoticeHandler) SearchNotices(c *gin.Context) {
	var q types.NoticeSearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.fail(c, apperror.Invalid(constants.ErrInvalidParams))
		return
	}

	cond, page, err := parseSearch(q)
	if err != nil {
		h.fail(c, err)
		return
	}

	result, err := h.noticeService.SearchNotices(c.Request.Context(), cond, page)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, constants.SuccessGet, result)
}

// GetNotice 获取公告详情
// @Summary 获取公告详情
// @Description 根据ID获取公告详情，浏览次数加一
// @Tags 公告
// @Produce json
// @Param id path int true "公告ID"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/notices/{id} [get]
func (h *NoticeHandler) GetNotice(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	detail, err := h.noticeService.GetDetail(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, constants.SuccessGet, detail)
}

// CreateNotice 创建公告
// @Summary 创建公告
// @Tags 公告
// @Accept multipart/form-data
// @Produce json
// @Param request formData string true "公告信息 JSON"
// @Param files formData file false "附件，可多个"
// @Success 201 {object} map[string]interface{} "成功"
// @Router /api/v1/notices [post]
func (h *NoticeHandler) CreateNotice(c *gin.Context) {
	req, files, err := h.readNoticeRequest(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	uploads, release, err := openFiles(files)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer release()

	detail, err := h.noticeService.CreateNotice(c.Request.Context(), req.Meta(), uploads)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, constants.SuccessCreate, detail)
}

// UpdateNotice 更新公告
// @Summary 更新公告
// @Description request 中的 deleteFileIds 指定要删除的附件，files 为新增附件
// @Tags 公告
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "公告ID"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/v1/notices/{id} [put]
func (h *NoticeHandler) UpdateNotice(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	req, files, err := h.readNoticeRequest(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	uploads, release, err := openFiles(files)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer release()

	detail, err := h.noticeService.UpdateNotice(c.Request.Context(), id, req.Meta(), req.DeleteFileIDs, uploads)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, constants.SuccessUpdate, detail)
}

// DeleteNotice 删除公告
// @Summary 删除公告
// @Tags 公告
// @Param id path int true "公告ID"
// @Success 204 "删除成功"
// @Router /api/v1/notices/{id} [delete]
func (h *NoticeHandler) DeleteNotice(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.noticeService.DeleteNotice(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DownloadFile 下载附件
// @Summary 下载附件
// @Tags 公告
// @Produce octet-stream
// @Param fileId path int true "附件ID"
// @Router /api/v1/notices/files/{fileId} [get]
func (h *NoticeHandler) DownloadFile(c *gin.Context) {
	id, ok := h.pathID(c, "fileId")
	if !ok {
		return
	}
	att, rc, err := h.noticeService.OpenAttachment(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer rc.Close()

	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, att.Size, contentType, rc, map[string]string{
		"Content-Disposition": contentDisposition(att.OriginalFilename),
	})
}

// readNoticeRequest 读取 multipart 请求中的 request 与 files，
// Content-Type 为 JSON 时只读取公告信息
func (h *NoticeHandler) readNoticeRequest(c *gin.Context) (*types.NoticeRequest, []*multipart.FileHeader, error) {
	var req types.NoticeRequest
	if c.ContentType() == binding.MIMEJSON {
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, nil, requestError(err)
		}
		return &req, nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, requestError(err)
	}

	raw, err := requestPart(form)
	if err != nil {
		return nil, nil, err
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, nil, apperror.Wrap(apperror.InvalidInput, constants.ErrInvalidRequest, err)
	}
	return &req, form.File["files"], nil
}

// requestPart request 既可以是普通字段，也可以是 application/json 文件部分
func requestPart(form *multipart.Form) ([]byte, error) {
	if v := form.Value["request"]; len(v) > 0 {
		return []byte(v[0]), nil
	}
	if fh := form.File["request"]; len(fh) > 0 {
		f, err := fh[0].Open()
		if err != nil {
			return nil, apperror.Wrap(apperror.InvalidInput, constants.ErrInvalidRequest, err)
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	return nil, apperror.Invalid("缺少 request 参数")
}

// requestError 请求体超过大小限制时返回 PayloadTooLarge
func requestError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
		return apperror.Wrap(apperror.PayloadTooLarge, constants.ErrFileTooLarge, err)
	}
	return apperror.Wrap(apperror.InvalidInput, constants.ErrInvalidRequest, err)
}

// openFiles 打开所有上传文件，调用方在处理完成后调用 release 关闭
func openFiles(files []*multipart.FileHeader) ([]model.FilePayload, func(), error) {
	opened := make([]multipart.File, 0, len(files))
	release := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	out := make([]model.FilePayload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			release()
			return nil, nil, apperror.Wrap(apperror.InvalidInput, constants.ErrInvalidRequest, err)
		}
		opened = append(opened, f)
		out = append(out, model.FilePayload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Content:     f,
		})
	}
	return out, release, nil
}

func parseSearch(q types.NoticeSearchQuery) (model.SearchCondition, model.PageRequest, error) {
	var cond model.SearchCondition
	var page model.PageRequest

	searchType, ok := model.ParseSearchType(q.SearchType)
	if !ok {
		return cond, page, apperror.Invalid("不支持的检索类型: %s", q.SearchType)
	}
	cond.Filter = q.Filter
	cond.SearchType = searchType

	var err error
	if cond.StartDate, err = parseDate(q.StartDate); err != nil {
		return cond, page, err
	}
	if cond.EndDate, err = parseDate(q.EndDate); err != nil {
		return cond, page, err
	}

	pageNum := q.Page
	if pageNum < 1 {
		pageNum = 1
	}
	size := q.Size
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	page.Limit = size
	page.Offset = (pageNum - 1) * size

	for _, raw := range q.Sort {
		s, err := parseSort(raw)
		if err != nil {
			return cond, page, err
		}
		page.Sort = append(page.Sort, s)
	}
	return cond, page, nil
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return nil, apperror.Invalid(constants.ErrInvalidDate)
	}
	return &d, nil
}

// parseSort 解析 "field" 或 "field,direction"
func parseSort(raw string) (model.SortOrder, error) {
	parts := strings.Split(raw, ",")
	if len(parts) > 2 || strings.TrimSpace(parts[0]) == "" {
		return model.SortOrder{}, apperror.Invalid(constants.ErrInvalidSort)
	}
	s := model.SortOrder{Field: strings.TrimSpace(parts[0])}
	if len(parts) == 2 {
		s.Direction = model.Direction(strings.ToUpper(strings.TrimSpace(parts[1])))
	}
	return s, nil
}

func (h *NoticeHandler) pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		h.fail(c, apperror.Invalid(constants.ErrInvalidID))
		return 0, false
	}
	return id, true
}

func (h *NoticeHandler) ok(c *gin.Context, status int, msg string, data interface{}) {
	c.JSON(status, gin.H{
		"code": status,
		"msg":  msg,
		"data": data,
	})
}

// fail 按错误类别返回对应状态码，内部错误只返回通用信息
func (h *NoticeHandler) fail(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	status := kind.Status()

	var msg string
	switch kind {
	case apperror.StorageFailure:
		msg = constants.ErrStorageFailure
	case apperror.Internal:
		msg = constants.ErrInternalServer
	default:
		msg = apperror.Message(err, constants.ErrInvalidParams)
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("请求处理失败", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
	} else {
		h.logger.Debug("请求被拒绝", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"code": status,
		"msg":  msg,
	})
}
