package httptransport

import (
	"github.com/gin-gonic/gin"

	"orderdesk/dashboard/internal/domain"
)

// dashboard godoc
// @Summary 仪表盘汇总
// @Description 订单统计与最近订单
// @Tags Dashboard
// @Produce json
// @Success 200 {object} Response
// @Failure 502 {object} Response
// @Router /api/v1/dashboard [get]
func (h *Handler) dashboard(c *gin.Context) {
	summary, err := h.dashboardSvc.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, summary)
}

// listOrders godoc
// @Summary 订单列表
// @Tags Orders
// @Produce json
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Param syncStatus query string false "同步状态"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Router /api/v1/orders [get]
func (h *Handler) listOrders(c *gin.Context) {
	serveList(c, h.orders.List, orderFilterKeys)
}

// refreshOrders 重新拉取推送给 WebSocket 订阅者的订单列表
func (h *Handler) refreshOrders(c *gin.Context) {
	Success(c, h.orderList.Refresh(c.Request.Context()))
}

// orderStats godoc
// @Summary 订单统计
// @Tags Orders
// @Produce json
// @Success 200 {object} Response
// @Failure 502 {object} Response
// @Router /api/v1/orders/stats [get]
func (h *Handler) orderStats(c *gin.Context) {
	stats, err := h.orders.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, stats)
}

// getOrder godoc
// @Summary 订单详情
// @Tags Orders
// @Produce json
// @Param id path string true "订单ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /api/v1/orders/{id} [get]
func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), domain.ID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, order)
}

// updateOrder godoc
// @Summary 更新订单
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "订单ID"
// @Param request body domain.OrderUpdate true "需要修改的字段"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 502 {object} Response
// @Router /api/v1/orders/{id} [put]
func (h *Handler) updateOrder(c *gin.Context) {
	var update domain.OrderUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		BadRequest(c, MsgInvalidJSON)
		return
	}

	order, err := h.orders.Update(c.Request.Context(), domain.ID(c.Param("id")), update)
	if err != nil {
		respondError(c, err)
		return
	}
	h.refreshLists()
	Success(c, order)
}

// deleteOrder godoc
// @Summary 删除订单
// @Tags Orders
// @Param id path string true "订单ID"
// @Success 204
// @Failure 502 {object} Response
// @Router /api/v1/orders/{id} [delete]
func (h *Handler) deleteOrder(c *gin.Context) {
	if err := h.orders.Delete(c.Request.Context(), domain.ID(c.Param("id"))); err != nil {
		respondError(c, err)
		return
	}
	h.refreshLists()
	NoContent(c)
}
