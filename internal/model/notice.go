package model

import (
	"io"
	"time"
)

// DefaultCreatedBy 接入登录前所有公告的创建人
const DefaultCreatedBy = "admin"

// Notice 公告模型
type Notice struct {
	ID        int64     `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	StartDate time.Time `db:"start_date" json:"startDate"`
	EndDate   time.Time `db:"end_date" json:"endDate"`
	ViewCount int64     `db:"view_count" json:"viewCount"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	CreatedBy string    `db:"created_by" json:"createdBy"`
	IsDeleted bool      `db:"is_deleted" json:"-"`

	Attachments []Attachment `db:"-" json:"attachments"`
}

// Attachment 公告附件，NoticeID 只用于反查所属公告
type Attachment struct {
	ID               int64     `db:"id" json:"id"`
	NoticeID         int64     `db:"notice_id" json:"noticeId"`
	OriginalFilename string    `db:"original_filename" json:"originalFilename"`
	StoredKey        string    `db:"stored_key" json:"-"`
	Size             int64     `db:"file_size" json:"size"`
	ContentType      string    `db:"content_type" json:"contentType,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	IsDeleted        bool      `db:"is_deleted" json:"-"`
}

// NoticeSummary 列表项，不包含正文
type NoticeSummary struct {
	ID             int64     `db:"id" json:"id"`
	Title          string    `db:"title" json:"title"`
	HasAttachments bool      `db:"-" json:"hasAttachments"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	ViewCount      int64     `db:"view_count" json:"viewCount"`
	CreatedBy      string    `db:"created_by" json:"createdBy"`
}

// NoticeDetail 公告详情
type NoticeDetail struct {
	ID        int64        `json:"id"`
	Title     string       `json:"title"`
	Content   string       `json:"content"`
	StartDate time.Time    `json:"startDate"`
	EndDate   time.Time    `json:"endDate"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	ViewCount int64        `json:"viewCount"`
	CreatedBy string       `json:"createdBy"`
	Files     []Attachment `json:"files"`
}

// ToDetail 转换为详情响应
func (n *Notice) ToDetail() *NoticeDetail {
	files := make([]Attachment, len(n.Attachments))
	copy(files, n.Attachments)
	return &NoticeDetail{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		StartDate: n.StartDate,
		EndDate:   n.EndDate,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
		ViewCount: n.ViewCount,
		CreatedBy: n.CreatedBy,
		Files:     files,
	}
}

// NoticeMeta 创建/更新公告时的基础信息
type NoticeMeta struct {
	Title     string    `validate:"required,max=200"`
	Content   string    `validate:"required"`
	StartDate time.Time `validate:"required,ltfield=EndDate"`
	EndDate   time.Time `validate:"required"`
}

// FilePayload 一个待上传的附件，Size 为 0 的文件会被忽略
type FilePayload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}
