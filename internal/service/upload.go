package service

import (
	"context"

	"go.uber.org/zap"

	"orderdesk/dashboard/internal/cache"
	"orderdesk/dashboard/internal/domain"
)

// UploadService 手动上传邮件
type UploadService struct {
	api    UploadAPI
	stats  *statsCache
	logger *zap.Logger
}

// NewUploadService 创建上传服务，c 用于上传成功后让统计缓存失效
func NewUploadService(api UploadAPI, c *cache.LocalCache, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{
		api:    api,
		stats:  newStatsCache(c, 0, logger),
		logger: logger,
	}
}

// SetRecorder 设置指标记录
func (s *UploadService) SetRecorder(r Recorder) {
	if r != nil {
		s.stats.recorder = r
	}
}

// Upload 校验后上传一次（不重试），返回新邮件的 tracking id
//
// 校验失败时返回的错误可以用 errors.Is 匹配 domain 中的校验错误。
func (s *UploadService) Upload(ctx context.Context, req domain.UploadRequest) (domain.UploadResult, error) {
	if err := req.Validate(); err != nil {
		return domain.UploadResult{}, err
	}

	result, err := s.api.UploadEmail(ctx, req)
	s.stats.recorder.RecordEmailAction("upload", err)
	if err != nil {
		s.logger.Warn("Email upload failed",
			zap.String("subject", req.Subject),
			zap.Int("attachments", len(req.Attachments)),
			zap.Error(err))
		return domain.UploadResult{}, newActionError(OpUpload, err)
	}

	for _, f := range req.Attachments {
		s.stats.recorder.RecordAttachmentSize(f.ContentType, int64(len(f.Data)))
	}
	s.stats.invalidate()

	s.logger.Info("Email uploaded",
		zap.String("trackingId", result.TrackingID),
		zap.Int("attachments", len(req.Attachments)))
	return result, nil
}
