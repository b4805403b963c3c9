package domain

import (
	"net/url"
	"strconv"
)

// 过滤条件键
const (
	FilterPage     = "page"
	FilterLimit    = "limit"
	FilterStatus   = "status"
	FilterPriority = "priority"
	FilterFrom     = "from"

	FilterSyncStatus = "syncStatus"
)

// 分页默认值
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Filters 列表过滤条件
//
// 值为空字符串表示不做限制；page 与 limit 总是存在。
type Filters map[string]string

// NewFilters 创建带默认分页的过滤条件，initial 中的值覆盖默认值
func NewFilters(initial map[string]string) Filters {
	f := Filters{
		FilterPage:  strconv.Itoa(DefaultPage),
		FilterLimit: strconv.Itoa(DefaultLimit),
	}
	for k, v := range initial {
		f[k] = v
	}
	return f
}

// Clone 复制一份过滤条件
func (f Filters) Clone() Filters {
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Merge 合并部分过滤条件并把页码重置为 1
func (f Filters) Merge(partial map[string]string) Filters {
	out := f.Clone()
	for k, v := range partial {
		out[k] = v
	}
	out[FilterPage] = strconv.Itoa(DefaultPage)
	return out
}

// WithPage 只修改页码
func (f Filters) WithPage(page int) Filters {
	out := f.Clone()
	out[FilterPage] = strconv.Itoa(page)
	return out
}

// Page 当前页码，无法解析时返回默认值
func (f Filters) Page() int {
	return atoiDefault(f[FilterPage], DefaultPage)
}

// Limit 每页数量，无法解析时返回默认值
func (f Filters) Limit() int {
	return atoiDefault(f[FilterLimit], DefaultLimit)
}

// Query 序列化为查询参数（包含所有键）
func (f Filters) Query() url.Values {
	values := make(url.Values, len(f))
	for k, v := range f {
		values.Set(k, v)
	}
	return values
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// Pagination 后端计算的分页信息
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// DefaultPagination 未知时的分页信息
func DefaultPagination() Pagination {
	return Pagination{Page: DefaultPage, Limit: DefaultLimit}
}

// PaginationPayload 后端返回的原始分页字段，每个字段都可能缺失
type PaginationPayload struct {
	Page       *int  `json:"page"`
	Limit      *int  `json:"limit"`
	Total      *int  `json:"total"`
	TotalPages *int  `json:"totalPages"`
	HasNext    *bool `json:"hasNext"`
	HasPrev    *bool `json:"hasPrev"`
}

// Resolve 逐字段合并默认值
//
// 缺失或为 0 的 page/limit/totalPages 分别回落到 1/10/1，
// total 回落到 0，hasNext/hasPrev 回落到 false。
func (p PaginationPayload) Resolve() Pagination {
	out := Pagination{
		Page:       positiveOr(p.Page, DefaultPage),
		Limit:      positiveOr(p.Limit, DefaultLimit),
		TotalPages: positiveOr(p.TotalPages, 1),
	}
	if p.Total != nil && *p.Total > 0 {
		out.Total = *p.Total
	}
	if p.HasNext != nil {
		out.HasNext = *p.HasNext
	}
	if p.HasPrev != nil {
		out.HasPrev = *p.HasPrev
	}
	return out
}

func positiveOr(v *int, def int) int {
	if v == nil || *v <= 0 {
		return def
	}
	return *v
}

// Page 一页列表结果
type Page[T any] struct {
	Items      []T               `json:"items"`
	Pagination PaginationPayload `json:"pagination"`
}
