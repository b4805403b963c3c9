package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"orderdesk/dashboard/internal/client"
	"orderdesk/dashboard/internal/detail"
	"orderdesk/dashboard/internal/domain"
	"orderdesk/dashboard/internal/service"
)

// 错误消息映射表（请求错误 -> 提示消息）
//
// 上传校验错误沿用自身的英文提示，不在此表中。
var errorMessages = map[error]string{
	service.ErrTrackingIDRequired: "缺少邮件追踪号",
	service.ErrOrderIDRequired:    "缺少订单ID",
	service.ErrEmptyUpdate:        "没有需要更新的字段",
	detail.ErrIndexOutOfRange:     "订单下标超出范围",
}

// 属于请求本身问题的错误，统一返回 400
var badRequestErrors = []error{
	service.ErrTrackingIDRequired,
	service.ErrOrderIDRequired,
	service.ErrEmptyUpdate,
	detail.ErrIndexOutOfRange,
	domain.ErrFromRequired,
	domain.ErrSubjectRequired,
	domain.ErrInvalidFromAddress,
	domain.ErrFileTypeNotAllowed,
	domain.ErrFileTooLarge,
	domain.ErrDangerousExtension,
}

// GetErrorMessage 获取错误的展示消息
//
// 优先级：映射表 > ActionError（带操作前缀）> 后端规范化消息。
func GetErrorMessage(err error) string {
	for target, msg := range errorMessages {
		if errors.Is(err, target) {
			return msg
		}
	}
	var actionErr *service.ActionError
	if errors.As(err, &actionErr) {
		return actionErr.Error()
	}
	return client.Message(err)
}

// statusFor 把错误映射为 HTTP 状态码
//
// 后端的 4xx 原样透传，没有到达后端或后端 5xx 一律视为 502。
func statusFor(err error) int {
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	if status := client.StatusCode(err); status >= 400 && status < 500 {
		return status
	}
	return http.StatusBadGateway
}

// respondError 记录错误并返回统一错误响应
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	Error(c, statusFor(err), GetErrorMessage(err))
}

// 通用错误消息
const (
	// 请求相关
	MsgInvalidRequest = "请求参数格式错误"
	MsgInvalidJSON    = "JSON格式错误"
	MsgInvalidPage    = "页码必须是正整数"
	MsgInvalidLimit   = "每页数量必须是正整数"
	MsgInvalidIndex   = "订单下标格式无效"

	// 上传相关
	MsgInvalidMultipart   = "上传表单格式错误"
	MsgTooManyAttachments = "附件数量超过上限"
	MsgAttachmentRejected = "部分附件未通过校验"
	MsgAttachmentRead     = "读取附件失败"

	// OAuth 相关
	MsgUnknownProvider = "不支持的登录方式"
)
