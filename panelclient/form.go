package panelclient

import (
	"net/url"
	"sort"
	"strconv"
)

// Order types as the backend expects them on the wire.
const (
	OrderTypeDineIn  = "dinein"
	OrderTypeTakeout = "takeout"
)

// AlertError is a validation failure that the pages surface as a
// blocking alert. No request is sent when one is raised.
type AlertError struct {
	msg string
}

func (e *AlertError) Error() string { return e.msg }

func alertf(msg string) error { return &AlertError{msg: msg} }

// OrderForm is the ordering page's state: the active order type, its
// type-specific fields and the per-dish quantities. The zero value is
// not ready; use NewOrderForm.
type OrderForm struct {
	OrderType string

	TableNum   string
	HasRoomFee bool

	TakeoutTime    string
	TakeoutAddress string

	Phone string

	quantities map[int64]int
}

// NewOrderForm returns a form at its defaults: dine-in active, all
// fields empty.
func NewOrderForm() *OrderForm {
	return &OrderForm{
		OrderType:  OrderTypeDineIn,
		quantities: make(map[int64]int),
	}
}

// Switch activates the given order type. Switching to the already
// active type is a no-op; field values survive a round trip.
func (f *OrderForm) Switch(orderType string) {
	if orderType != OrderTypeDineIn && orderType != OrderTypeTakeout {
		return
	}
	f.OrderType = orderType
}

// DineInVisible reports whether the dine-in sub-form shows.
func (f *OrderForm) DineInVisible() bool { return f.OrderType == OrderTypeDineIn }

// TakeoutVisible reports whether the takeout sub-form shows.
func (f *OrderForm) TakeoutVisible() bool { return f.OrderType == OrderTypeTakeout }

// SetQuantity records the quantity chosen for a dish. Non-positive
// values clear the row.
func (f *OrderForm) SetQuantity(dishID int64, quantity int) {
	if quantity <= 0 {
		delete(f.quantities, dishID)
		return
	}
	f.quantities[dishID] = quantity
}

// Quantity returns the quantity for a dish, zero when unset.
func (f *OrderForm) Quantity(dishID int64) int { return f.quantities[dishID] }

// Validate checks the form the way the page does before submitting.
// Failures are *AlertError values; the caller must not send a request
// when one comes back.
func (f *OrderForm) Validate() error {
	switch f.OrderType {
	case OrderTypeDineIn:
		if f.TableNum == "" {
			return alertf("请输入餐桌号")
		}
	case OrderTypeTakeout:
		if f.TakeoutTime == "" {
			return alertf("请输入送餐时间")
		}
		if f.TakeoutAddress == "" {
			return alertf("请输入送餐地址")
		}
		if f.Phone == "" {
			return alertf("请输入手机号")
		}
	default:
		return alertf("无效的订单类型")
	}

	if len(f.quantities) == 0 {
		return alertf("请选择至少一道菜品")
	}
	return nil
}

// Values serializes the form into the submit_order payload: the
// active type's fields plus one dish_id[]/quantity[] pair per dish
// with a positive quantity.
func (f *OrderForm) Values() url.Values {
	values := url.Values{}
	values.Set("order_type", f.OrderType)
	values.Set("phone", f.Phone)

	switch f.OrderType {
	case OrderTypeDineIn:
		values.Set("table_num", f.TableNum)
		if f.HasRoomFee {
			values.Set("has_room_fee", "1")
		}
	case OrderTypeTakeout:
		values.Set("takeout_time", f.TakeoutTime)
		values.Set("takeout_address", f.TakeoutAddress)
	}

	ids := make([]int64, 0, len(f.quantities))
	for id := range f.quantities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		values.Add("dish_id[]", strconv.FormatInt(id, 10))
		values.Add("quantity[]", strconv.Itoa(f.quantities[id]))
	}
	return values
}

// Reset returns every field to its default. The page calls this only
// after a successful submission; failures keep the input for
// correction.
func (f *OrderForm) Reset() {
	f.OrderType = OrderTypeDineIn
	f.TableNum = ""
	f.HasRoomFee = false
	f.TakeoutTime = ""
	f.TakeoutAddress = ""
	f.Phone = ""
	f.quantities = make(map[int64]int)
}
