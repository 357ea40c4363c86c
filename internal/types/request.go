package types

import (
	"encoding/json"
	"strings"
	"time"

	"noticeboard/internal/model"
)

// 请求中时间字段接受的格式，不带时区的按 UTC 解析
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// Timestamp 请求中的时间字段
type Timestamp struct {
	time.Time
}

// UnmarshalJSON 支持 RFC3339 以及不带时区的 2006-01-02T15:04:05
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		v, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			t.Time = v
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// NoticeRequest 创建/更新公告请求，multipart 中的 request 部分
type NoticeRequest struct {
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	StartDate     Timestamp `json:"startDate"`
	EndDate       Timestamp `json:"endDate"`
	DeleteFileIDs []int64   `json:"deleteFileIds"`
}

// Meta 转换为公告基础信息
func (r *NoticeRequest) Meta() model.NoticeMeta {
	return model.NoticeMeta{
		Title:     r.Title,
		Content:   r.Content,
		StartDate: r.StartDate.Time,
		EndDate:   r.EndDate.Time,
	}
}

// NoticeSearchQuery 公告列表查询参数
type NoticeSearchQuery struct {
	Filter     string   `form:"filter"`
	SearchType string   `form:"searchType"`
	StartDate  string   `form:"startDate"`
	EndDate    string   `form:"endDate"`
	Page       int      `form:"page"`
	Size       int      `form:"size"`
	Sort       []string `form:"sort"`
}
