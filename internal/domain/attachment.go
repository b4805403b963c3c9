package domain

// EmailAttachment 表示邮件附件及其文本提取结果。
type EmailAttachment struct {
	AttachmentID     string `json:"attachmentId"`               // 附件唯一标识
	Filename         string `json:"filename"`                   // 文件名
	ContentType      string `json:"contentType,omitempty"`      // MIME类型
	Size             int64  `json:"size,omitempty"`             // 大小（字节）
	ExtractionMethod string `json:"extractionMethod,omitempty"` // 提取方式，例如 pdf-parse、ocr
	ExtractedText    string `json:"extractedText,omitempty"`    // 提取出的文本，二进制文件为空
}
