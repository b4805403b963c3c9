package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"orderdesk/dashboard/internal/cache"
	"orderdesk/dashboard/internal/detail"
	"orderdesk/dashboard/internal/domain"
)

// 操作成功后展示给用户的提示
const (
	NoticeExtracted = "Success! Structured data has been extracted."
	NoticeConverted = "Email successfully marked as Order."
	noOrderHint     = "\n\nTry the manual option if this is definitely an order."
)

// 列表中正文预览的最大字符数
const previewLength = 120

// AttachmentSummary 附件 + 展示字段
type AttachmentSummary struct {
	domain.EmailAttachment
	SizeText string `json:"sizeText"`
}

// EmailSummary 邮件 + 展示字段
type EmailSummary struct {
	domain.Email
	StatusLabel    string              `json:"statusLabel"`
	PriorityLabel  string              `json:"priorityLabel"`
	ReceivedAtText string              `json:"receivedAtText"`
	Preview        string              `json:"preview"`
	Attachments    []AttachmentSummary `json:"attachments,omitempty"`
}

// SummarizeEmail 计算邮件的展示字段
func SummarizeEmail(e domain.Email) EmailSummary {
	out := EmailSummary{
		Email:          e,
		StatusLabel:    domain.StatusLabel(e.Status),
		PriorityLabel:  domain.PriorityLabel(e.Priority),
		ReceivedAtText: domain.FormatDate(e.ReceivedAt),
		Preview:        domain.Truncate(strings.Join(strings.Fields(e.Body), " "), previewLength),
	}
	for _, a := range e.Attachments {
		out.Attachments = append(out.Attachments, AttachmentSummary{
			EmailAttachment: a,
			SizeText:        domain.FormatFileSize(a.Size),
		})
	}
	return out
}

// SummarizeEmails 批量计算展示字段，结果不为 nil
func SummarizeEmails(emails []domain.Email) []EmailSummary {
	out := make([]EmailSummary, 0, len(emails))
	for _, e := range emails {
		out = append(out, SummarizeEmail(e))
	}
	return out
}

// DetailView 邮件详情页数据
type DetailView struct {
	Email       *EmailSummary  `json:"email"`
	Orders      []OrderSummary `json:"orders"`
	ActiveIndex int            `json:"activeIndex"`
	Active      *OrderSummary  `json:"active"`
	Tabs        bool           `json:"tabs"`
}

func newDetailView(v *detail.View) DetailView {
	out := DetailView{
		Orders:      SummarizeAll(v.Orders()),
		ActiveIndex: v.ActiveIndex(),
		Tabs:        v.Tabs(),
	}
	if email := v.Detail().Email; email != nil {
		summary := SummarizeEmail(*email)
		out.Email = &summary
	}
	if _, ok := v.Active(); ok {
		out.Active = &out.Orders[out.ActiveIndex]
	}
	return out
}

// ActionOutcome 重新提取 / 转换订单的结果
//
// Detail 为操作后重新拉取的详情，拉取失败时为 nil（操作本身已成功）。
type ActionOutcome struct {
	NoOrderFound bool        `json:"noOrderFound"`
	Notice       string      `json:"notice"`
	Detail       *DetailView `json:"detail,omitempty"`
}

// EmailService 邮件详情与操作
type EmailService struct {
	api    EmailAPI
	stats  *statsCache
	logger *zap.Logger
}

// NewEmailService 创建邮件服务
func NewEmailService(api EmailAPI, c *cache.LocalCache, statsTTL time.Duration, logger *zap.Logger) *EmailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailService{
		api:    api,
		stats:  newStatsCache(c, statsTTL, logger),
		logger: logger,
	}
}

// SetRecorder 设置指标记录
func (s *EmailService) SetRecorder(r Recorder) {
	if r != nil {
		s.stats.recorder = r
	}
}

// List 拉取一页邮件并计算展示字段
func (s *EmailService) List(ctx context.Context, filters domain.Filters) (domain.Page[EmailSummary], error) {
	page, err := s.api.ListEmails(ctx, filters)
	return domain.Page[EmailSummary]{
		Items:      SummarizeEmails(page.Items),
		Pagination: page.Pagination,
	}, err
}

// Stats 邮件统计（短期缓存）
func (s *EmailService) Stats(ctx context.Context) (domain.EmailStats, error) {
	return cached(s.stats, cacheKeyEmailStats, func() (domain.EmailStats, error) {
		return s.api.EmailStats(ctx)
	})
}

// Detail 获取邮件详情并选中第 active 个订单
//
// active 超出范围时返回 detail.ErrIndexOutOfRange；没有订单时 active 必须为 0。
func (s *EmailService) Detail(ctx context.Context, trackingID string, active int) (DetailView, error) {
	if strings.TrimSpace(trackingID) == "" {
		return DetailView{}, ErrTrackingIDRequired
	}

	d, err := s.api.GetEmail(ctx, trackingID)
	if err != nil {
		return DetailView{}, err
	}

	v := detail.NewView(d)
	if active != 0 {
		if err := v.Select(active); err != nil {
			return DetailView{}, err
		}
	}
	return newDetailView(v), nil
}

// Delete 删除邮件
func (s *EmailService) Delete(ctx context.Context, trackingID string) error {
	if strings.TrimSpace(trackingID) == "" {
		return ErrTrackingIDRequired
	}

	err := s.api.DeleteEmail(ctx, trackingID)
	s.stats.recorder.RecordEmailAction("delete", err)
	if err != nil {
		s.logger.Warn("Email delete failed", zap.String("trackingId", trackingID), zap.Error(err))
		return newActionError(OpDelete, err)
	}

	s.stats.invalidate()
	s.logger.Info("Email deleted", zap.String("trackingId", trackingID))
	return nil
}

// Reprocess 重新执行 AI 提取，成功后重新拉取详情
func (s *EmailService) Reprocess(ctx context.Context, trackingID string) (ActionOutcome, error) {
	if strings.TrimSpace(trackingID) == "" {
		return ActionOutcome{}, ErrTrackingIDRequired
	}

	result, err := s.api.ReprocessEmail(ctx, trackingID)
	s.stats.recorder.RecordEmailAction("reprocess", err)
	if err != nil {
		s.logger.Warn("Email reprocess failed", zap.String("trackingId", trackingID), zap.Error(err))
		return ActionOutcome{}, newActionError(OpReprocess, err)
	}
	s.stats.invalidate()

	outcome := ActionOutcome{
		NoOrderFound: result.NoOrderFound,
		Notice:       NoticeExtracted,
		Detail:       s.refresh(ctx, trackingID),
	}
	if result.NoOrderFound {
		outcome.Notice = "AI Result: " + result.Message + noOrderHint
	}

	s.logger.Info("Email reprocessed",
		zap.String("trackingId", trackingID),
		zap.Bool("noOrderFound", result.NoOrderFound))
	return outcome, nil
}

// Convert 跳过 AI 直接转换为订单，成功后重新拉取详情
func (s *EmailService) Convert(ctx context.Context, trackingID string) (ActionOutcome, error) {
	if strings.TrimSpace(trackingID) == "" {
		return ActionOutcome{}, ErrTrackingIDRequired
	}

	err := s.api.ConvertEmail(ctx, trackingID)
	s.stats.recorder.RecordEmailAction("convert", err)
	if err != nil {
		s.logger.Warn("Email convert failed", zap.String("trackingId", trackingID), zap.Error(err))
		return ActionOutcome{}, newActionError(OpConvert, err)
	}
	s.stats.invalidate()

	s.logger.Info("Email converted to order", zap.String("trackingId", trackingID))
	return ActionOutcome{
		Notice: NoticeConverted,
		Detail: s.refresh(ctx, trackingID),
	}, nil
}

// refresh 操作后重新拉取详情，失败只记录日志
func (s *EmailService) refresh(ctx context.Context, trackingID string) *DetailView {
	d, err := s.api.GetEmail(ctx, trackingID)
	if err != nil {
		s.logger.Warn("Failed to refresh email detail after action",
			zap.String("trackingId", trackingID),
			zap.Error(err))
		return nil
	}
	view := newDetailView(detail.NewView(d))
	return &view
}
