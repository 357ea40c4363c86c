package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"k8s.io/apimachinery/pkg/util/sets"

	"noticeboard/internal/cache"
	"noticeboard/internal/constants"
	"noticeboard/internal/model"
	"noticeboard/internal/repository"
	"noticeboard/pkg/apperror"
	"noticeboard/pkg/blobstore"
	"noticeboard/pkg/logger"
)

// NoticeService 公告服务
//
// 附件内容先写入 BlobStore，再在一个事务中写入公告与附件记录。
// 事务失败时删除本次写入的附件内容；事务提交后再删除被移除附件的内容，删除失败只记录日志。
type NoticeService struct {
	repo     *repository.NoticeRepository
	blobs    blobstore.Storage
	cache    cache.ResultCache
	validate *validator.Validate
	logger   *logger.Logger
	now      func() time.Time
}

// NewNoticeService 创建公告服务实例
func NewNoticeService(repo *repository.NoticeRepository, blobs blobstore.Storage, resultCache cache.ResultCache, logger *logger.Logger) *NoticeService {
	return &NoticeService{
		repo:     repo,
		blobs:    blobs,
		cache:    resultCache,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

type storedFile struct {
	key     string
	payload model.FilePayload
}

// CreateNotice 创建公告及其附件
func (s *NoticeService) CreateNotice(ctx context.Context, meta model.NoticeMeta, files []model.FilePayload) (*model.NoticeDetail, error) {
	meta, err := s.checkMeta(meta)
	if err != nil {
		return nil, err
	}

	stored, err := s.storeFiles(ctx, files)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	notice := &model.Notice{
		Title:     meta.Title,
		Content:   meta.Content,
		StartDate: meta.StartDate,
		EndDate:   meta.EndDate,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: model.DefaultCreatedBy,
	}

	err = s.repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.repo.Create(ctx, tx, notice); err != nil {
			return err
		}
		added, err := s.attach(ctx, tx, notice.ID, stored, now)
		if err != nil {
			return err
		}
		notice.Attachments = added
		return nil
	})
	if err != nil {
		s.logger.Error("创建公告失败", "title", meta.Title, "error", err)
		s.discard(ctx, stored)
		return nil, err
	}

	s.cache.EvictAll(ctx)
	s.logger.Info("创建公告", "id", notice.ID, "files", len(notice.Attachments))
	return notice.ToDetail(), nil
}

// SearchNotices 分页检索公告，优先读取缓存
func (s *NoticeService) SearchNotices(ctx context.Context, cond model.SearchCondition, page model.PageRequest) (*model.Page[model.NoticeSummary], error) {
	key := cache.Key(cond, page)
	if cached, ok := s.cache.Get(ctx, key); ok {
		return cached, nil
	}

	items, total, err := s.repo.Search(ctx, cond, page)
	if err != nil {
		if apperror.KindOf(err) == apperror.Internal {
			s.logger.Error("检索公告失败", "filter", cond.Filter, "error", err)
		}
		return nil, err
	}

	result := model.NewPage(items, total, page)
	s.cache.Put(ctx, key, result)
	return result, nil
}

// GetDetail 获取公告详情，同时原子地增加浏览次数
func (s *NoticeService) GetDetail(ctx context.Context, id int64) (*model.NoticeDetail, error) {
	if err := s.repo.IncreaseViewCount(ctx, id); err != nil {
		return nil, err
	}
	notice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return notice.ToDetail(), nil
}

// UpdateNotice 更新公告信息，先删除 deleteIDs 指定的附件再添加新附件。
// 新附件总是获得新的 ID，因此不会被同一请求中的 deleteIDs 删除。
func (s *NoticeService) UpdateNotice(ctx context.Context, id int64, meta model.NoticeMeta, deleteIDs []int64, files []model.FilePayload) (*model.NoticeDetail, error) {
	meta, err := s.checkMeta(meta)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}

	stored, err := s.storeFiles(ctx, files)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	var removed []model.Attachment
	err = s.repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		err := s.repo.Update(ctx, tx, &model.Notice{
			ID:        id,
			Title:     meta.Title,
			Content:   meta.Content,
			StartDate: meta.StartDate,
			EndDate:   meta.EndDate,
			UpdatedAt: now,
		})
		if err != nil {
			return err
		}
		if len(deleteIDs) > 0 {
			if removed, err = s.repo.RemoveAttachments(ctx, tx, id, sets.List(sets.New(deleteIDs...))); err != nil {
				return err
			}
		}
		_, err = s.attach(ctx, tx, id, stored, now)
		return err
	})
	if err != nil {
		s.logger.Error("更新公告失败", "id", id, "error", err)
		s.discard(ctx, stored)
		return nil, err
	}

	for _, a := range removed {
		s.deleteBlob(ctx, a.StoredKey)
	}
	s.cache.EvictAll(ctx)
	s.logger.Info("更新公告", "id", id, "removed", len(removed), "added", len(stored))

	notice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return notice.ToDetail(), nil
}

// DeleteNotice 软删除公告及其附件记录，并删除附件内容
func (s *NoticeService) DeleteNotice(ctx context.Context, id int64) error {
	var removed []model.Attachment
	err := s.repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		removed, err = s.repo.SoftDelete(ctx, tx, id, s.timestamp())
		return err
	})
	if err != nil {
		if apperror.KindOf(err) == apperror.Internal {
			s.logger.Error("删除公告失败", "id", id, "error", err)
		}
		return err
	}

	for _, a := range removed {
		s.deleteBlob(ctx, a.StoredKey)
	}
	s.cache.EvictAll(ctx)
	s.logger.Info("删除公告", "id", id, "files", len(removed))
	return nil
}

// GetAttachmentInfo 获取附件信息
func (s *NoticeService) GetAttachmentInfo(ctx context.Context, attachmentID int64) (*model.Attachment, error) {
	return s.repo.FindAttachment(ctx, attachmentID)
}

// OpenAttachment 获取附件信息并打开其内容，调用方负责关闭 reader
func (s *NoticeService) OpenAttachment(ctx context.Context, attachmentID int64) (*model.Attachment, io.ReadCloser, error) {
	a, err := s.repo.FindAttachment(ctx, attachmentID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Load(ctx, a.StoredKey)
	if err != nil {
		s.logger.Error("读取附件失败", "id", attachmentID, "key", a.StoredKey, "error", err)
		return nil, nil, err
	}
	return a, rc, nil
}

// checkMeta 去除首尾空白并校验公告信息，时间统一为 UTC 毫秒精度
func (s *NoticeService) checkMeta(meta model.NoticeMeta) (model.NoticeMeta, error) {
	meta.Title = strings.TrimSpace(meta.Title)
	meta.Content = strings.TrimSpace(meta.Content)
	meta.StartDate = meta.StartDate.UTC().Truncate(time.Millisecond)
	meta.EndDate = meta.EndDate.UTC().Truncate(time.Millisecond)

	if err := s.validate.Struct(meta); err != nil {
		return meta, metaError(err)
	}
	return meta, nil
}

func metaError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperror.Invalid(constants.ErrInvalidParams)
	}
	fe := verrs[0]
	switch fe.Field() {
	case "Title":
		if fe.Tag() == "max" {
			return apperror.Invalid(constants.ErrTitleTooLong)
		}
		return apperror.Invalid(constants.ErrTitleRequired)
	case "Content":
		return apperror.Invalid(constants.ErrContentRequired)
	case "StartDate":
		if fe.Tag() == "ltfield" {
			return apperror.Invalid(constants.ErrDateRange)
		}
		return apperror.Invalid(constants.ErrStartRequired)
	case "EndDate":
		return apperror.Invalid(constants.ErrEndRequired)
	}
	return apperror.Invalid(constants.ErrInvalidParams)
}

// storeFiles 写入所有非空附件，任一失败时删除已写入的内容
func (s *NoticeService) storeFiles(ctx context.Context, files []model.FilePayload) ([]storedFile, error) {
	stored := make([]storedFile, 0, len(files))
	for _, f := range files {
		if f.Content == nil || f.Size == 0 {
			continue
		}
		if strings.TrimSpace(f.Filename) == "" {
			s.discard(ctx, stored)
			return nil, apperror.Invalid("文件名不能为空")
		}
		key, err := s.blobs.Store(ctx, f.Content, f.Filename)
		if err != nil {
			s.logger.Error("保存附件失败", "filename", f.Filename, "error", err)
			s.discard(ctx, stored)
			return nil, err
		}
		stored = append(stored, storedFile{key: key, payload: f})
	}
	return stored, nil
}

func (s *NoticeService) attach(ctx context.Context, tx *sqlx.Tx, noticeID int64, stored []storedFile, now time.Time) ([]model.Attachment, error) {
	added := make([]model.Attachment, 0, len(stored))
	for _, f := range stored {
		a := model.Attachment{
			NoticeID:         noticeID,
			OriginalFilename: f.payload.Filename,
			StoredKey:        f.key,
			Size:             f.payload.Size,
			ContentType:      f.payload.ContentType,
			CreatedAt:        now,
		}
		if err := s.repo.AddAttachment(ctx, tx, &a); err != nil {
			return nil, err
		}
		added = append(added, a)
	}
	return added, nil
}

// discard 事务失败后清理本次写入的附件内容
func (s *NoticeService) discard(ctx context.Context, stored []storedFile) {
	for _, f := range stored {
		s.deleteBlob(ctx, f.key)
	}
}

func (s *NoticeService) deleteBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Warn("删除附件内容失败", "key", key, "error", err)
	}
}

func (s *NoticeService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}
