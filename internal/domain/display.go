package domain

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// 客户显示名称相关常量
const (
	// PlaceholderName 后端无法识别名称时填入的占位值
	PlaceholderName = "Unknown"
	// UnknownCustomer 所有来源都无法得到名称时的显示值
	UnknownCustomer = "Unknown Customer"
)

var (
	bracketAddressRegex = regexp.MustCompile(`<([^>]+)>`)
	surroundingQuotes   = regexp.MustCompile(`^["']|["']$`)
)

// ResolveCustomerName 推导订单客户的显示名称
//
// 优先级：
//  1. 结构化客户名称（不是 "Unknown"）
//  2. 来源邮件的发件人显示名（不是 "Unknown"）
//  3. 原始 From 头中尖括号之前的文本，去掉首尾空白和一层引号
//  4. "Unknown Customer"（包括尖括号之前为空的情况）
func ResolveCustomerName(o Order) string {
	if usableName(o.Customer.Name) {
		return o.Customer.Name
	}
	if usableName(o.Email.SenderName) {
		return o.Email.SenderName
	}

	from := o.Email.From
	if idx := strings.Index(from, "<"); idx >= 0 {
		name := surroundingQuotes.ReplaceAllString(strings.TrimSpace(from[:idx]), "")
		if name != "" {
			return name
		}
	}
	return UnknownCustomer
}

// ResolveCustomerEmail 推导订单客户的邮箱地址
//
// 优先使用结构化客户邮箱，其次取 From 头尖括号中的地址，
// 都没有时原样返回 From 头。
func ResolveCustomerEmail(o Order) string {
	if o.Customer.Email != "" {
		return o.Customer.Email
	}
	from := o.Email.From
	if m := bracketAddressRegex.FindStringSubmatch(from); m != nil {
		return m[1]
	}
	return from
}

func usableName(name string) bool {
	return name != "" && name != PlaceholderName
}

// LineTotal 行总价：优先使用后端给出的正数总价，否则数量 × 单价
func (li LineItem) LineTotal() float64 {
	if li.TotalPrice != nil && *li.TotalPrice > 0 {
		return *li.TotalPrice
	}
	return li.Quantity * li.UnitPrice
}

// ItemsTotal 所有行总价之和
func (o Order) ItemsTotal() float64 {
	var sum float64
	for _, item := range o.Items {
		sum += item.LineTotal()
	}
	return sum
}

// totalTolerance 订单总额与行合计之间允许的差值
const totalTolerance = 1.0

// DisplayTotal 页面上展示的订单总额
//
// TotalAmount 大于 0 且与行合计相差不足 1 时使用 TotalAmount，否则使用行合计。
// 这是沿用下来的经验规则，并未经过业务确认。
func (o Order) DisplayTotal() float64 {
	itemSum := o.ItemsTotal()
	if o.TotalAmount > 0 && math.Abs(o.TotalAmount-itemSum) < totalTolerance {
		return o.TotalAmount
	}
	return itemSum
}

// ConfidenceLevel AI 置信度分档
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// ConfidenceOf 根据分数返回置信度档位
func ConfidenceOf(score float64) ConfidenceLevel {
	switch {
	case score >= 0.8:
		return ConfidenceHigh
	case score >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// FormatMoney 金额格式化，例如 "USD 12.50"
func FormatMoney(currency string, amount float64) string {
	if currency == "" {
		return fmt.Sprintf("%.2f", amount)
	}
	return fmt.Sprintf("%s %.2f", currency, amount)
}

// FormatFileSize 文件大小格式化，例如 1536 -> "1.5 KB"
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	const k = 1024
	sizes := []string{"Bytes", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(k)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}
	value := math.Round(float64(bytes)/math.Pow(k, float64(i))*100) / 100
	return fmt.Sprintf("%s %s", trimFloat(value), sizes[i])
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// Truncate 截断文本，超过 maxLength 个字符时追加 "..."
func Truncate(text string, maxLength int) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	return string(runes[:maxLength]) + "..."
}

// FormatDate 日期格式化，零值返回 "N/A"
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format("Jan 2, 2006, 03:04 PM")
}

var statusLabels = map[EmailStatus]string{
	EmailStatusPending:               "Pending",
	EmailStatusParsing:               "Parsing",
	EmailStatusParsed:                "Parsed",
	EmailStatusProcessingAttachments: "Processing Attachments",
	EmailStatusCompleted:             "Completed",
	EmailStatusFailed:                "Failed",
}

// StatusLabel 状态显示名称，未知状态原样返回
func StatusLabel(status EmailStatus) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return string(status)
}

var priorityLabels = map[EmailPriority]string{
	PriorityHigh:   "High Priority",
	PriorityNormal: "Normal",
	PriorityLow:    "Low Priority",
}

// PriorityLabel 优先级显示名称，未知优先级原样返回
func PriorityLabel(priority EmailPriority) string {
	if label, ok := priorityLabels[priority]; ok {
		return label
	}
	return string(priority)
}
