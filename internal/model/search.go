package model

import (
	"strings"
	"time"
)

// SearchType 关键字匹配范围
type SearchType string

const (
	SearchTitle        SearchType = "TITLE"
	SearchTitleContent SearchType = "TITLE_CONTENT"
)

// ParseSearchType 解析检索类型，空值默认为 TITLE_CONTENT
func ParseSearchType(s string) (SearchType, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return SearchTitleContent, true
	case string(SearchTitle):
		return SearchTitle, true
	case string(SearchTitleContent):
		return SearchTitleContent, true
	}
	return "", false
}

// SearchCondition 公告检索条件
//
// StartDate/EndDate 只取日期部分，按其自身时区计算当天的起止时刻。
type SearchCondition struct {
	Filter     string     `json:"filter"`
	SearchType SearchType `json:"searchType"`
	StartDate  *time.Time `json:"startDate,omitempty"`
	EndDate    *time.Time `json:"endDate,omitempty"`
}

// Direction 排序方向
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// SortOrder 单个排序字段
type SortOrder struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// PageRequest 分页参数
type PageRequest struct {
	Offset int         `json:"offset"`
	Limit  int         `json:"limit"`
	Sort   []SortOrder `json:"sort,omitempty"`
}

// PageNumber 从 1 开始的页码
func (p PageRequest) PageNumber() int {
	if p.Limit <= 0 {
		return 1
	}
	return p.Offset/p.Limit + 1
}

// Page 分页结果
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalPages int64 `json:"totalPages"`
}

// NewPage 根据分页参数和总数组装分页结果
func NewPage[T any](items []T, total int64, req PageRequest) *Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := int64(0)
	if total > 0 && req.Limit > 0 {
		totalPages = (total + int64(req.Limit) - 1) / int64(req.Limit)
	}
	return &Page[T]{
		Items:      items,
		Total:      total,
		Page:       req.PageNumber(),
		Size:       req.Limit,
		TotalPages: totalPages,
	}
}
