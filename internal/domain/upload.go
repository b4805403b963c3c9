package domain

import (
	"errors"
	"fmt"
	"mime"
	"net/mail"
	"path/filepath"
	"strings"
)

// 上传校验相关的错误定义
var (
	ErrFromRequired       = errors.New("from and subject fields are required")
	ErrSubjectRequired    = errors.New("from and subject fields are required")
	ErrInvalidFromAddress = errors.New("invalid from address")
	ErrFileTypeNotAllowed = errors.New("file type not allowed")
	ErrFileTooLarge       = errors.New("file too large")
	ErrDangerousExtension = errors.New("dangerous file extension")
)

// MaxFileSize 单个附件最大字节数（10 MiB）
const MaxFileSize int64 = 10 * 1024 * 1024

// AllowedFileTypes 允许上传的附件 MIME 类型
var AllowedFileTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"text/plain": true,
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
}

// 即使 MIME 类型伪装成允许的类型也拒绝的扩展名
var dangerousExtensions = map[string]bool{
	".exe": true,
	".bat": true,
	".cmd": true,
	".scr": true,
	".com": true,
	".vbs": true,
	".js":  true,
	".jar": true,
}

// AttachmentError 单个附件被拒绝的原因
type AttachmentError struct {
	Filename string
	Size     int64 // 超过大小限制时有效
	MaxSize  int64
	Err      error
}

func (e *AttachmentError) Error() string {
	if errors.Is(e.Err, ErrFileTooLarge) {
		return fmt.Sprintf("%s: %s (%s, max %s)", e.Err.Error(), e.Filename, FormatFileSize(e.Size), FormatFileSize(e.MaxSize))
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Filename)
}

func (e *AttachmentError) Unwrap() error {
	return e.Err
}

// UploadFile 待上传的附件
type UploadFile struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// size 未填写 Size 时按数据长度计算
func (f UploadFile) size() int64 {
	if f.Size > 0 {
		return f.Size
	}
	return int64(len(f.Data))
}

// ValidateAttachment 校验单个附件
//
// 先按 MIME 类型检查（不管大小），再检查危险扩展名，最后检查大小。
func ValidateAttachment(filename, contentType string, size int64, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = MaxFileSize
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !AllowedFileTypes[strings.ToLower(mediaType)] {
		return &AttachmentError{Filename: filename, Err: ErrFileTypeNotAllowed}
	}

	if dangerousExtensions[strings.ToLower(filepath.Ext(filename))] {
		return &AttachmentError{Filename: filename, Err: ErrDangerousExtension}
	}

	if size > maxSize {
		return &AttachmentError{Filename: filename, Size: size, MaxSize: maxSize, Err: ErrFileTooLarge}
	}

	return nil
}

// PendingAttachments 表单中已选择、通过校验的附件列表
type PendingAttachments struct {
	MaxSize int64
	files   []UploadFile
}

// Add 添加一批附件，只保留通过校验的文件，返回被拒绝文件的错误
func (p *PendingAttachments) Add(files ...UploadFile) []error {
	var rejected []error
	for _, f := range files {
		if err := ValidateAttachment(f.Filename, f.ContentType, f.size(), p.MaxSize); err != nil {
			rejected = append(rejected, err)
			continue
		}
		p.files = append(p.files, f)
	}
	return rejected
}

// Files 返回当前附件列表
func (p *PendingAttachments) Files() []UploadFile {
	out := make([]UploadFile, len(p.files))
	copy(out, p.files)
	return out
}

// UploadRequest 模拟邮件 webhook 的上传请求
type UploadRequest struct {
	From        string
	To          string
	Subject     string
	Body        string
	Attachments []UploadFile
}

// Validate 发送请求前的校验：from 与 subject 必填
func (r *UploadRequest) Validate() error {
	r.From = strings.TrimSpace(r.From)
	r.Subject = strings.TrimSpace(r.Subject)

	if r.From == "" {
		return ErrFromRequired
	}
	if r.Subject == "" {
		return ErrSubjectRequired
	}
	if _, err := mail.ParseAddress(r.From); err != nil {
		return ErrInvalidFromAddress
	}

	for _, f := range r.Attachments {
		if err := ValidateAttachment(f.Filename, f.ContentType, f.size(), MaxFileSize); err != nil {
			return err
		}
	}
	return nil
}
