package detail

import (
	"errors"

	"orderdesk/dashboard/internal/domain"
)

// ErrIndexOutOfRange 选择的订单下标超出范围
var ErrIndexOutOfRange = errors.New("order index out of range")

// View 邮件详情页的订单选择状态
//
// 当前订单下标对列表长度始终有效；列表为空时下标为 0 且没有当前订单。
type View struct {
	detail domain.EmailDetail
	active int
}

// NewView 创建详情视图，默认选中第一个订单
func NewView(d domain.EmailDetail) *View {
	v := &View{}
	v.Replace(d)
	return v
}

// Detail 返回详情数据
func (v *View) Detail() domain.EmailDetail {
	return v.detail
}

// Orders 返回规范化后的订单列表
func (v *View) Orders() []domain.Order {
	return v.detail.Orders
}

// ActiveIndex 当前订单下标
func (v *View) ActiveIndex() int {
	return v.active
}

// Active 返回当前订单，没有订单时第二个返回值为 false
func (v *View) Active() (domain.Order, bool) {
	if len(v.detail.Orders) == 0 {
		return domain.Order{}, false
	}
	return v.detail.Orders[v.active], true
}

// Select 切换当前订单
func (v *View) Select(index int) error {
	if index < 0 || index >= len(v.detail.Orders) {
		return ErrIndexOutOfRange
	}
	v.active = index
	return nil
}

// Replace 替换详情数据（例如重新提取之后），下标重置为 0
func (v *View) Replace(d domain.EmailDetail) {
	if d.Orders == nil {
		d.Orders = []domain.Order{}
	}
	v.detail = d
	v.active = 0
}

// Tabs 是否需要展示订单切换标签
func (v *View) Tabs() bool {
	return len(v.detail.Orders) > 1
}
