package httptransport

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"orderdesk/dashboard/internal/domain"
	"orderdesk/dashboard/internal/listing"
)

// 列表接口接受的过滤参数
var (
	emailFilterKeys = []string{domain.FilterLimit, domain.FilterStatus, domain.FilterPriority, domain.FilterFrom}
	orderFilterKeys = []string{domain.FilterLimit, domain.FilterSyncStatus}
)

// serveList 按本次请求的查询参数拉取一页数据并返回快照
//
// 过滤条件只属于这一次请求，缺省的 page/limit 使用默认值，每个请求只访问一次后端。
// 拉取失败不改变 HTTP 状态码，错误信息放在快照的 error 字段中。
func serveList[T any](c *gin.Context, fetch listing.Fetcher[T], keys []string) {
	query := make(map[string]string)
	for _, key := range keys {
		if v, ok := c.GetQuery(key); ok {
			query[key] = strings.TrimSpace(v)
		}
	}

	if raw, ok := query[domain.FilterLimit]; ok {
		if n, err := strconv.Atoi(raw); err != nil || n < 1 {
			BadRequest(c, MsgInvalidLimit)
			return
		}
	}

	if raw, ok := c.GetQuery(domain.FilterPage); ok {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n < 1 {
			BadRequest(c, MsgInvalidPage)
			return
		}
		query[domain.FilterPage] = strconv.Itoa(n)
	}

	Success(c, listing.Load(c.Request.Context(), fetch, domain.NewFilters(query), GetErrorMessage))
}
