// Package clock resolves the current time for order timestamps and
// order numbers. When a time API is configured it is asked first and
// the local clock is the fallback, so order times stay correct even on
// hosts with a drifting clock.
package clock

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"
)

const fetchTimeout = 3 * time.Second

// Clock returns the current time, optionally calibrated against an
// HTTP time API. The zero value (or an empty URL) uses the local clock.
type Clock struct {
	apiURL string
	client *http.Client
}

func New(apiURL string) *Clock {
	return &Clock{
		apiURL: apiURL,
		client: &http.Client{Timeout: fetchTimeout},
	}
}

// Now returns the calibrated current time, falling back to the local
// clock when the API is unset or unreachable.
func (c *Clock) Now() time.Time {
	if c == nil || c.apiURL == "" {
		return time.Now()
	}
	t, err := c.fetch()
	if err != nil {
		log.Printf("ERROR: fetch network time, using local clock: %v", err)
		return time.Now()
	}
	return t
}

// fetch asks the time API. The expected body is the common
// {"data":{"t":"<unix millis>"}} shape.
func (c *Clock) fetch() (time.Time, error) {
	resp, err := c.client.Get(c.apiURL)
	if err != nil {
		return time.Time{}, err
	}
	defer resp.Body.Close()

	var body struct {
		Data struct {
			T string `json:"t"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(body.Data.T, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
