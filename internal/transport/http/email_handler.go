package httptransport

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"orderdesk/dashboard/internal/domain"
)

// 上传表单字段
const (
	formFrom        = "from"
	formTo          = "to"
	formSubject     = "subject"
	formBody        = "body"
	formAttachments = "attachments"
)

// listEmails godoc
// @Summary 邮件列表
// @Description 按过滤条件和页码返回邮件列表快照
// @Tags Emails
// @Produce json
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Param status query string false "处理状态"
// @Param priority query string false "优先级"
// @Param from query string false "发件人"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Router /api/v1/emails [get]
func (h *Handler) listEmails(c *gin.Context) {
	serveList(c, h.emails.List, emailFilterKeys)
}

// refreshEmails 重新拉取推送给 WebSocket 订阅者的邮件列表
func (h *Handler) refreshEmails(c *gin.Context) {
	Success(c, h.emailList.Refresh(c.Request.Context()))
}

// emailStats godoc
// @Summary 邮件统计
// @Tags Emails
// @Produce json
// @Success 200 {object} Response
// @Failure 502 {object} Response
// @Router /api/v1/emails/stats [get]
func (h *Handler) emailStats(c *gin.Context) {
	stats, err := h.emails.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, stats)
}

// getEmail godoc
// @Summary 邮件详情
// @Description 返回邮件及其提取出的订单，active 指定当前选中的订单
// @Tags Emails
// @Produce json
// @Param trackingId path string true "邮件追踪号"
// @Param active query int false "选中的订单下标"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /api/v1/emails/{trackingId} [get]
func (h *Handler) getEmail(c *gin.Context) {
	active := 0
	if raw, ok := c.GetQuery("active"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			BadRequest(c, MsgInvalidIndex)
			return
		}
		active = n
	}

	view, err := h.emails.Detail(c.Request.Context(), c.Param("trackingId"), active)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, view)
}

// deleteEmail godoc
// @Summary 删除邮件
// @Tags Emails
// @Param trackingId path string true "邮件追踪号"
// @Success 204
// @Failure 404 {object} Response
// @Failure 502 {object} Response
// @Router /api/v1/emails/{trackingId} [delete]
func (h *Handler) deleteEmail(c *gin.Context) {
	if err := h.emails.Delete(c.Request.Context(), c.Param("trackingId")); err != nil {
		respondError(c, err)
		return
	}
	h.refreshLists()
	NoContent(c)
}

// reprocessEmail godoc
// @Summary 重新执行 AI 提取
// @Tags Emails
// @Produce json
// @Param trackingId path string true "邮件追踪号"
// @Success 200 {object} Response
// @Failure 502 {object} Response
// @Router /api/v1/emails/{trackingId}/reprocess [post]
func (h *Handler) reprocessEmail(c *gin.Context) {
	outcome, err := h.emails.Reprocess(c.Request.Context(), c.Param("trackingId"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.refreshLists()
	SuccessWithMsg(c, outcome.Notice, outcome)
}

// convertEmail godoc
// @Summary 手动标记为订单
// @Tags Emails
// @Produce json
// @Param trackingId path string true "邮件追踪号"
// @Success 200 {object} Response
// @Failure 502 {object} Response
// @Router /api/v1/emails/{trackingId}/convert [post]
func (h *Handler) convertEmail(c *gin.Context) {
	outcome, err := h.emails.Convert(c.Request.Context(), c.Param("trackingId"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.refreshLists()
	SuccessWithMsg(c, outcome.Notice, outcome)
}

// uploadEmail godoc
// @Summary 上传模拟邮件
// @Description multipart 表单：from、to、subject、body 字段和 attachments 文件
// @Tags Emails
// @Accept multipart/form-data
// @Produce json
// @Success 201 {object} Response
// @Failure 400 {object} Response
// @Failure 413 {object} Response
// @Failure 502 {object} Response
// @Router /api/v1/emails/upload [post]
func (h *Handler) uploadEmail(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(c, http.StatusRequestEntityTooLarge, MsgInvalidMultipart)
			return
		}
		BadRequest(c, MsgInvalidMultipart)
		return
	}

	headers := form.File[formAttachments]
	if h.maxFiles > 0 && len(headers) > h.maxFiles {
		BadRequest(c, MsgTooManyAttachments)
		return
	}

	files := make([]domain.UploadFile, 0, len(headers))
	for _, fh := range headers {
		file, err := readFormFile(fh)
		if err != nil {
			BadRequest(c, MsgAttachmentRead)
			return
		}
		files = append(files, file)
	}

	pending := domain.PendingAttachments{MaxSize: h.maxFileSize}
	if rejected := pending.Add(files...); len(rejected) > 0 {
		reasons := make([]string, 0, len(rejected))
		for _, r := range rejected {
			reasons = append(reasons, r.Error())
		}
		ErrorWithData(c, http.StatusBadRequest, MsgAttachmentRejected, gin.H{"rejected": reasons})
		return
	}

	result, err := h.uploads.Upload(c.Request.Context(), domain.UploadRequest{
		From:        c.PostForm(formFrom),
		To:          c.PostForm(formTo),
		Subject:     c.PostForm(formSubject),
		Body:        c.PostForm(formBody),
		Attachments: pending.Files(),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.refreshLists()
	Created(c, result)
}

// readFormFile 读取上传的附件，缺少 Content-Type 时按扩展名推断
func readFormFile(fh *multipart.FileHeader) (domain.UploadFile, error) {
	f, err := fh.Open()
	if err != nil {
		return domain.UploadFile{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return domain.UploadFile{}, err
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if guessed := mime.TypeByExtension(filepath.Ext(fh.Filename)); guessed != "" {
			contentType = guessed
		}
	}

	return domain.UploadFile{
		Filename:    fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		Data:        data,
	}, nil
}
