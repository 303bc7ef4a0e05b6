package panelclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Failure labels prefixed onto server-reported reasons, one per
// operation.
const (
	labelSubmitFailed = "下单失败："
	labelAddFailed    = "添加失败："
	labelUpdateFailed = "修改失败："
	labelDeleteFailed = "删除失败："
	labelSearchFailed = "查询失败："
)

// noResultsText renders when a search matches nothing.
const noResultsText = "未找到相关订单"

// Panel is the page controller: it owns the order form, the status
// strip and the rendered result areas, and drives the client the way
// the pages' event handlers do.
type Panel struct {
	client *Client

	Form   *OrderForm
	Status *StatusArea

	// Dishes is the last fetched menu; RefreshDishes replaces it.
	Dishes []Dish

	// OrderResult is the submission result area's text.
	OrderResult string

	// SearchResult is the order search area's rendered text.
	SearchResult string

	// Confirm guards destructive operations. Returning false aborts
	// with zero requests sent. Nil means always confirmed.
	Confirm func(prompt string) bool

	// Alert is the blocking-alert hook for validation and transport
	// failures. Nil means alerts are dropped.
	Alert func(msg string)
}

// NewPanel creates a Panel around a client with a fresh form and
// status area.
func NewPanel(client *Client) *Panel {
	return &Panel{
		client: client,
		Form:   NewOrderForm(),
		Status: NewStatusArea(),
	}
}

func (p *Panel) alert(msg string) {
	if p.Alert != nil {
		p.Alert(msg)
	}
}

func (p *Panel) confirmed(prompt string) bool {
	return p.Confirm == nil || p.Confirm(prompt)
}

// SubmitOrder validates the form and posts it. Validation and
// transport failures alert and leave the form as is; a failure flag
// writes the labelled reason into the result area without resetting;
// success shows the server's order summary and resets the form.
func (p *Panel) SubmitOrder(ctx context.Context) error {
	if err := p.Form.Validate(); err != nil {
		p.alert(err.Error())
		return err
	}

	resp, err := p.client.SubmitOrder(ctx, p.Form.Values())
	if err != nil {
		p.alert(err.Error())
		return err
	}

	if !resp.Success {
		p.OrderResult = labelSubmitFailed + resp.Error
		return nil
	}

	p.OrderResult = resp.OrderInfo
	p.Form.Reset()
	return nil
}

// RefreshDishes re-fetches the menu and replaces Dishes.
func (p *Panel) RefreshDishes(ctx context.Context) error {
	dishes, err := p.client.FetchDishes(ctx)
	if err != nil {
		return err
	}
	p.Dishes = dishes
	return nil
}

// validDishInput checks name/price/discount the way the admin page
// does before sending anything. price may not be empty; discount
// defaults to 1 when empty.
func validDishInput(name, price, discount string, requireAll bool) (string, bool) {
	if requireAll && name == "" {
		return "请输入菜品名称", false
	}
	if price != "" || requireAll {
		d, err := decimal.NewFromString(price)
		if err != nil || !d.IsPositive() {
			return "价格必须大于0", false
		}
	}
	if discount != "" {
		d, err := decimal.NewFromString(discount)
		if err != nil || !d.IsPositive() || d.GreaterThan(decimal.NewFromInt(1)) {
			return "折扣必须在0-1之间", false
		}
	}
	return "", true
}

// AddDish validates, confirms and creates a dish. Success writes a
// green status and re-fetches the menu; failure writes the labelled
// reason in red and fetches nothing.
func (p *Panel) AddDish(ctx context.Context, name, price, discount string) error {
	if msg, ok := validDishInput(name, price, discount, true); !ok {
		p.Status.Show(msg, false)
		return nil
	}
	if !p.confirmed(fmt.Sprintf("确定添加菜品 %s 吗？", name)) {
		return nil
	}

	resp, err := p.client.AddDish(ctx, name, price, discount)
	if err != nil {
		p.Status.Show(err.Error(), false)
		return err
	}
	if !resp.Success {
		p.Status.Show(labelAddFailed+resp.Error, false)
		return nil
	}

	p.Status.Show("菜品添加成功", true)
	return p.RefreshDishes(ctx)
}

// UpdateDish validates, confirms and edits a dish; empty fields keep
// their stored values.
func (p *Panel) UpdateDish(ctx context.Context, dishID, newName, newPrice, newDiscount string) error {
	if dishID == "" {
		p.Status.Show("请输入菜品ID", false)
		return nil
	}
	if newName == "" && newPrice == "" && newDiscount == "" {
		p.Status.Show("未提供任何修改内容", false)
		return nil
	}
	if msg, ok := validDishInput(newName, newPrice, newDiscount, false); !ok {
		p.Status.Show(msg, false)
		return nil
	}
	if !p.confirmed("确定修改该菜品吗？") {
		return nil
	}

	resp, err := p.client.UpdateDish(ctx, dishID, newName, newPrice, newDiscount)
	if err != nil {
		p.Status.Show(err.Error(), false)
		return err
	}
	if !resp.Success {
		p.Status.Show(labelUpdateFailed+resp.Error, false)
		return nil
	}

	p.Status.Show("菜品修改成功", true)
	return p.RefreshDishes(ctx)
}

// DeleteDish confirms and removes a dish.
func (p *Panel) DeleteDish(ctx context.Context, dishID string) error {
	if dishID == "" {
		p.Status.Show("请输入菜品ID", false)
		return nil
	}
	if !p.confirmed("确定删除该菜品吗？") {
		return nil
	}

	resp, err := p.client.DeleteDish(ctx, dishID)
	if err != nil {
		p.Status.Show(err.Error(), false)
		return err
	}
	if !resp.Success {
		p.Status.Show(labelDeleteFailed+resp.Error, false)
		return nil
	}

	p.Status.Show("菜品删除成功", true)
	return p.RefreshDishes(ctx)
}

// SearchOrders queries orders and renders the result area: the
// literal no-results text for an empty list, otherwise one numbered
// block per order in response order.
func (p *Panel) SearchOrders(ctx context.Context, searchType, keyword string) error {
	if keyword == "" {
		p.Status.Show("请输入搜索关键词", false)
		return nil
	}

	resp, err := p.client.SearchOrders(ctx, searchType, keyword)
	if err != nil {
		p.Status.Show(err.Error(), false)
		return err
	}
	if !resp.Success {
		// Search errors render where the results would have been, not
		// on the status strip.
		p.SearchResult = labelSearchFailed + resp.Error
		return nil
	}

	p.SearchResult = renderOrders(resp.Orders)
	return nil
}

func renderOrders(orders []OrderResult) string {
	if len(orders) == 0 {
		return noResultsText
	}
	blocks := make([]string, len(orders))
	for i, o := range orders {
		blocks[i] = fmt.Sprintf("【订单%d】\n%s", i+1, o.Info)
	}
	return strings.Join(blocks, "\n\n")
}

// DeleteOrder confirms and removes an order, then re-runs nothing:
// the page re-searches on its own schedule.
func (p *Panel) DeleteOrder(ctx context.Context, orderNo string) error {
	if orderNo == "" {
		p.Status.Show("请输入订单编号", false)
		return nil
	}
	if !p.confirmed(fmt.Sprintf("确定删除订单 %s 吗？", orderNo)) {
		return nil
	}

	resp, err := p.client.DeleteOrder(ctx, orderNo)
	if err != nil {
		p.Status.Show(err.Error(), false)
		return err
	}
	if !resp.Success {
		p.Status.Show(labelDeleteFailed+resp.Error, false)
		return nil
	}

	p.Status.Show("订单删除成功", true)
	return nil
}
