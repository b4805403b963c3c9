package client

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"orderdesk/dashboard/internal/domain"
)

// 上传表单字段名
const (
	fieldFrom        = "from"
	fieldTo          = "to"
	fieldSubject     = "subject"
	fieldBody        = "body"
	fieldAttachments = "attachments"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// UploadEmail 以 multipart 表单模拟邮件 webhook 创建邮件（只发送一次）
//
// 请求发出前先执行 UploadRequest.Validate，校验失败不会访问后端。
func (c *Client) UploadEmail(ctx context.Context, upload domain.UploadRequest) (domain.UploadResult, error) {
	const op = "upload_email"
	if err := upload.Validate(); err != nil {
		return domain.UploadResult{}, newError(op, 0, "", err)
	}

	body, contentType, err := encodeUpload(upload)
	if err != nil {
		return domain.UploadResult{}, newError(op, 0, "", err)
	}

	req := request{
		op:          op,
		method:      http.MethodPost,
		path:        "/webhook/email",
		body:        body,
		contentType: contentType,
	}
	env, err := c.do(ctx, req)
	if err != nil {
		return domain.UploadResult{}, err
	}

	result := decodeData[domain.UploadResult](c, op, env)
	if result.Message == "" {
		result.Message = env.Message
	}
	return result, nil
}

// encodeUpload 构造 multipart 请求体，每个附件使用自己的 Content-Type
func encodeUpload(upload domain.UploadRequest) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{fieldFrom, upload.From},
		{fieldTo, upload.To},
		{fieldSubject, upload.Subject},
		{fieldBody, upload.Body},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f.name, err)
		}
	}

	for _, file := range upload.Attachments {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			fieldAttachments, quoteEscaper.Replace(file.Filename)))
		h.Set("Content-Type", file.ContentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create part %s: %w", file.Filename, err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, "", fmt.Errorf("write part %s: %w", file.Filename, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
