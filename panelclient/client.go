// Package panelclient is the programmatic counterpart of the panel's
// web pages: it assembles the same form-encoded requests, talks to the
// same endpoints, and exposes the success-flag contract the pages key
// their rendering off.
package panelclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Response is the common answer shape of every panel endpoint. The
// success flag, not the HTTP status, is the authoritative outcome
// signal; failed calls carry their reason in Error.
type Response struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	OrderNo   string `json:"order_no"`
	OrderInfo string `json:"order_info"`

	Orders []OrderResult `json:"orders"`

	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// OrderResult is one admin search hit.
type OrderResult struct {
	OrderNo string `json:"order_no"`
	Type    string `json:"type"`
	Info    string `json:"info"`
}

// Dish is one row of the public dish list.
type Dish struct {
	DishID     int64  `json:"dish_id"`
	Name       string `json:"name"`
	Price      string `json:"price"`
	Discount   string `json:"discount"`
	FinalPrice string `json:"final_price"`
	ImageURL   string `json:"image_url"`
}

// TransportError marks a request that never produced a usable
// response: connection failures, timeouts, unparseable bodies. It is
// distinct from a response whose success flag is false.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "请求失败：" + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client calls the panel's backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// New creates a Client for the given base URL, e.g.
// "http://localhost:8080".
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// SetToken sets the bearer token sent with admin calls.
func (c *Client) SetToken(token string) { c.token = token }

// PostForm sends a form-encoded POST and decodes the panel response.
// A non-nil error is always a *TransportError; server-reported
// failures come back as a Response with Success false.
func (c *Client) PostForm(ctx context.Context, path string, values url.Values) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("decode response: %w", err)}
	}
	return &out, nil
}

// FetchDishes re-fetches the dish list; the pages call this after a
// menu change instead of reloading.
func (c *Client) FetchDishes(ctx context.Context) ([]Dish, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/get_all_dishes", nil)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	var dishes []Dish
	if err := json.NewDecoder(resp.Body).Decode(&dishes); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("decode dishes: %w", err)}
	}
	return dishes, nil
}

// Login authenticates an admin and stores the returned token on the
// client for subsequent admin calls.
func (c *Client) Login(ctx context.Context, username, password string) (*Response, error) {
	resp, err := c.PostForm(ctx, "/admin/login", url.Values{
		"username": {username},
		"password": {password},
	})
	if err != nil {
		return nil, err
	}
	if resp.Success {
		c.token = resp.Token
	}
	return resp, nil
}

// SubmitOrder posts an assembled order form.
func (c *Client) SubmitOrder(ctx context.Context, values url.Values) (*Response, error) {
	return c.PostForm(ctx, "/submit_order", values)
}

// AddDish creates a dish.
func (c *Client) AddDish(ctx context.Context, name, price, discount string) (*Response, error) {
	return c.PostForm(ctx, "/admin/dish/add", url.Values{
		"name":     {name},
		"price":    {price},
		"discount": {discount},
	})
}

// UpdateDish edits a dish; empty fields are left unchanged.
func (c *Client) UpdateDish(ctx context.Context, dishID, newName, newPrice, newDiscount string) (*Response, error) {
	values := url.Values{"dish_id": {dishID}}
	if newName != "" {
		values.Set("new_name", newName)
	}
	if newPrice != "" {
		values.Set("new_price", newPrice)
	}
	if newDiscount != "" {
		values.Set("new_discount", newDiscount)
	}
	return c.PostForm(ctx, "/admin/dish/update", values)
}

// DeleteDish removes a dish.
func (c *Client) DeleteDish(ctx context.Context, dishID string) (*Response, error) {
	return c.PostForm(ctx, "/admin/dish/delete", url.Values{"dish_id": {dishID}})
}

// SearchOrders queries orders by order number or phone.
func (c *Client) SearchOrders(ctx context.Context, searchType, keyword string) (*Response, error) {
	return c.PostForm(ctx, "/admin/order/search", url.Values{
		"search_type": {searchType},
		"keyword":     {keyword},
	})
}

// DeleteOrder removes an order.
func (c *Client) DeleteOrder(ctx context.Context, orderNo string) (*Response, error) {
	return c.PostForm(ctx, "/admin/order/delete", url.Values{"order_no": {orderNo}})
}
