package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"noticeboard/internal/model"
	"noticeboard/pkg/apperror"
)

const (
	noticeColumns     = "id, title, content, start_date, end_date, view_count, created_at, updated_at, created_by, is_deleted"
	summaryColumns    = "id, title, created_at, view_count, created_by"
	attachmentColumns = "id, notice_id, original_filename, stored_key, file_size, COALESCE(content_type, '') AS content_type, created_at, is_deleted"
)

// NoticeRepository 公告存储库
//
// 所有读取都只返回 is_deleted = false 的记录（FindByIDIncludingDeleted 除外）。
// 写操作接收调用方开启的事务，公告与附件的变更在同一事务内提交。
type NoticeRepository struct {
	db *sqlx.DB
}

// NewNoticeRepository 创建公告存储库实例
func NewNoticeRepository(db *sqlx.DB) *NoticeRepository {
	return &NoticeRepository{db: db}
}

// WithTx 在事务中执行 fn，fn 返回错误时回滚
func (r *NoticeRepository) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (回滚失败: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// Create 插入公告并回填 ID
func (r *NoticeRepository) Create(ctx context.Context, tx *sqlx.Tx, n *model.Notice) error {
	id, err := insertReturningID(ctx, tx, `
		INSERT INTO notices (title, content, start_date, end_date, view_count, created_at, updated_at, created_by, is_deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.Title, n.Content, n.StartDate, n.EndDate, n.ViewCount, n.CreatedAt, n.UpdatedAt, n.CreatedBy, false)
	if err != nil {
		return fmt.Errorf("插入公告失败: %w", err)
	}
	n.ID = id
	return nil
}

// Update 更新公告基础信息，公告不存在或已删除时返回 NotFound
func (r *NoticeRepository) Update(ctx context.Context, tx *sqlx.Tx, n *model.Notice) error {
	res, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE notices SET title = ?, content = ?, start_date = ?, end_date = ?, updated_at = ?
		WHERE id = ? AND is_deleted = ?`),
		n.Title, n.Content, n.StartDate, n.EndDate, n.UpdatedAt, n.ID, false)
	if err != nil {
		return fmt.Errorf("更新公告失败: %w", err)
	}
	return expectAffected(res, n.ID)
}

// SoftDelete 标记公告及其附件为已删除，记录保留。
// 返回事务内读到的未删除附件，供提交后清理附件内容。
func (r *NoticeRepository) SoftDelete(ctx context.Context, tx *sqlx.Tx, id int64, at time.Time) ([]model.Attachment, error) {
	res, err := tx.ExecContext(ctx, tx.Rebind(
		"UPDATE notices SET is_deleted = ?, updated_at = ? WHERE id = ? AND is_deleted = ?"),
		true, at, id, false)
	if err != nil {
		return nil, fmt.Errorf("删除公告失败: %w", err)
	}
	if err := expectAffected(res, id); err != nil {
		return nil, err
	}

	files := []model.Attachment{}
	if err := tx.SelectContext(ctx, &files, tx.Rebind(
		"SELECT "+attachmentColumns+" FROM notice_attachments WHERE notice_id = ? AND is_deleted = ? ORDER BY id"),
		id, false); err != nil {
		return nil, fmt.Errorf("查询公告附件失败: %w", err)
	}
	for i := range files {
		normalizeAttachment(&files[i])
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(
		"UPDATE notice_attachments SET is_deleted = ? WHERE notice_id = ?"), true, id); err != nil {
		return nil, fmt.Errorf("删除公告附件失败: %w", err)
	}
	return files, nil
}

// AddAttachment 插入附件记录并回填 ID
func (r *NoticeRepository) AddAttachment(ctx context.Context, tx *sqlx.Tx, a *model.Attachment) error {
	var contentType interface{}
	if a.ContentType != "" {
		contentType = a.ContentType
	}
	id, err := insertReturningID(ctx, tx, `
		INSERT INTO notice_attachments (notice_id, original_filename, stored_key, file_size, content_type, created_at, is_deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.NoticeID, a.OriginalFilename, a.StoredKey, a.Size, contentType, a.CreatedAt, false)
	if err != nil {
		return fmt.Errorf("插入附件失败: %w", err)
	}
	a.ID = id
	return nil
}

// RemoveAttachments 删除属于 noticeID 的指定附件记录，返回实际删除的附件。
// 不属于该公告的 ID 会被忽略。
func (r *NoticeRepository) RemoveAttachments(ctx context.Context, tx *sqlx.Tx, noticeID int64, ids []int64) ([]model.Attachment, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In("SELECT "+attachmentColumns+
		" FROM notice_attachments WHERE notice_id = ? AND is_deleted = ? AND id IN (?)", noticeID, false, ids)
	if err != nil {
		return nil, err
	}
	var removed []model.Attachment
	if err := tx.SelectContext(ctx, &removed, tx.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("查询待删除附件失败: %w", err)
	}
	if len(removed) == 0 {
		return nil, nil
	}

	removedIDs := make([]int64, len(removed))
	for i := range removed {
		removedIDs[i] = removed[i].ID
		normalizeAttachment(&removed[i])
	}
	query, args, err = sqlx.In("DELETE FROM notice_attachments WHERE id IN (?)", removedIDs)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("删除附件记录失败: %w", err)
	}
	return removed, nil
}

// FindByID 获取未删除的公告及其附件
func (r *NoticeRepository) FindByID(ctx context.Context, id int64) (*model.Notice, error) {
	var n model.Notice
	err := r.db.GetContext(ctx, &n, r.db.Rebind(
		"SELECT "+noticeColumns+" FROM notices WHERE id = ? AND is_deleted = ?"), id, false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFoundf("公告不存在: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("查询公告失败: %w", err)
	}

	if n.Attachments, err = r.listAttachments(ctx, id); err != nil {
		return nil, err
	}
	normalizeNotice(&n)
	return &n, nil
}

// FindByIDIncludingDeleted 审计用，忽略软删除标记
func (r *NoticeRepository) FindByIDIncludingDeleted(ctx context.Context, id int64) (*model.Notice, error) {
	var n model.Notice
	err := r.db.GetContext(ctx, &n, r.db.Rebind("SELECT "+noticeColumns+" FROM notices WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFoundf("公告不存在: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("查询公告失败: %w", err)
	}

	var files []model.Attachment
	if err := r.db.SelectContext(ctx, &files, r.db.Rebind(
		"SELECT "+attachmentColumns+" FROM notice_attachments WHERE notice_id = ? ORDER BY id"), id); err != nil {
		return nil, fmt.Errorf("查询公告附件失败: %w", err)
	}
	for i := range files {
		normalizeAttachment(&files[i])
	}
	n.Attachments = files
	normalizeNotice(&n)
	return &n, nil
}

func (r *NoticeRepository) listAttachments(ctx context.Context, noticeID int64) ([]model.Attachment, error) {
	files := []model.Attachment{}
	if err := r.db.SelectContext(ctx, &files, r.db.Rebind(
		"SELECT "+attachmentColumns+" FROM notice_attachments WHERE notice_id = ? AND is_deleted = ? ORDER BY id"),
		noticeID, false); err != nil {
		return nil, fmt.Errorf("查询公告附件失败: %w", err)
	}
	for i := range files {
		normalizeAttachment(&files[i])
	}
	return files, nil
}

// FindAttachment 获取附件，附件或所属公告已删除时返回 NotFound
func (r *NoticeRepository) FindAttachment(ctx context.Context, id int64) (*model.Attachment, error) {
	var a model.Attachment
	err := r.db.GetContext(ctx, &a, r.db.Rebind(`
		SELECT a.id, a.notice_id, a.original_filename, a.stored_key, a.file_size,
		       COALESCE(a.content_type, '') AS content_type, a.created_at, a.is_deleted
		FROM notice_attachments a
		JOIN notices n ON n.id = a.notice_id
		WHERE a.id = ? AND a.is_deleted = ? AND n.is_deleted = ?`), id, false, false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFoundf("文件不存在: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("查询附件失败: %w", err)
	}
	normalizeAttachment(&a)
	return &a, nil
}

// Search 分页检索公告，计数与列表使用同一查询条件
func (r *NoticeRepository) Search(ctx context.Context, cond model.SearchCondition, page model.PageRequest) ([]model.NoticeSummary, int64, error) {
	q, err := BuildSearchQuery(cond, page)
	if err != nil {
		return nil, 0, err
	}

	countSQL, countArgs := q.CountSQL()
	var total int64
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(countSQL), countArgs...); err != nil {
		return nil, 0, fmt.Errorf("统计公告数量失败: %w", err)
	}
	if total == 0 || int64(page.Offset) >= total {
		return []model.NoticeSummary{}, total, nil
	}

	selectSQL, args := q.SelectSQL(summaryColumns)
	items := []model.NoticeSummary{}
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(selectSQL), args...); err != nil {
		return nil, 0, fmt.Errorf("查询公告列表失败: %w", err)
	}
	if err := r.markAttachments(ctx, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// markAttachments 只针对当前页的公告查询是否有附件
func (r *NoticeRepository) markAttachments(ctx context.Context, items []model.NoticeSummary) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]int64, len(items))
	for i := range items {
		ids[i] = items[i].ID
		items[i].CreatedAt = items[i].CreatedAt.UTC()
	}

	query, args, err := sqlx.In(
		"SELECT DISTINCT notice_id FROM notice_attachments WHERE is_deleted = ? AND notice_id IN (?)", false, ids)
	if err != nil {
		return err
	}
	var withFiles []int64
	if err := r.db.SelectContext(ctx, &withFiles, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("查询公告附件失败: %w", err)
	}

	has := make(map[int64]bool, len(withFiles))
	for _, id := range withFiles {
		has[id] = true
	}
	for i := range items {
		items[i].HasAttachments = has[items[i].ID]
	}
	return nil
}

// IncreaseViewCount 原子地增加浏览次数，不做先读后写
func (r *NoticeRepository) IncreaseViewCount(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		"UPDATE notices SET view_count = view_count + 1 WHERE id = ? AND is_deleted = ?"), id, false)
	if err != nil {
		return fmt.Errorf("更新浏览次数失败: %w", err)
	}
	return expectAffected(res, id)
}

// insertReturningID PostgreSQL 不支持 LastInsertId，改用 RETURNING
func insertReturningID(ctx context.Context, tx *sqlx.Tx, query string, args ...interface{}) (int64, error) {
	if tx.DriverName() == "postgres" {
		var id int64
		err := tx.QueryRowxContext(ctx, tx.Rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func expectAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFoundf("公告不存在: %d", id)
	}
	return nil
}

func normalizeNotice(n *model.Notice) {
	n.StartDate = n.StartDate.UTC()
	n.EndDate = n.EndDate.UTC()
	n.CreatedAt = n.CreatedAt.UTC()
	n.UpdatedAt = n.UpdatedAt.UTC()
}

func normalizeAttachment(a *model.Attachment) {
	a.CreatedAt = a.CreatedAt.UTC()
}
