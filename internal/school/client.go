package school

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client fetches school records from a school-information-system HTTP API.
// It implements Source, so the feature pipeline can run against a remote
// SIS instead of the local record store.
type Client struct {
	key, base string
	rest      *resty.Client
}

func NewClient(base, apiKey string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second) // default fallback
	}
	return &Client{apiKey, base, r}
}

type listResp[T any] struct {
	Code  int    `json:"code"`
	Msg   string `json:"msg,omitempty"`
	Items []T    `json:"items"`
}

func fetchList[T any](c *Client, path, scope, period string) ([]T, error) {
	resp := &listResp[T]{}
	req := c.rest.R().
		SetHeader("api-key", c.key).
		SetQueryParam("school", scope).
		SetResult(resp)
	if period != "" {
		req.SetQueryParam("period", period)
	}

	r, err := req.Get(c.base + path)
	if err != nil {
		return nil, err
	}
	if r.IsError() {
		return nil, fmt.Errorf("sis: %s returned %s", path, r.Status())
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("sis: %d %s", resp.Code, resp.Msg)
	}
	return resp.Items, nil
}

func (c *Client) FetchStudents(scope string) ([]Student, error) {
	return fetchList[Student](c, "/api/v1/students", scope, "")
}

// FetchGrades returns grade records in the order the SIS stored them.
// The API contract guarantees insertion order, which the trend-slope
// feature relies on.
func (c *Client) FetchGrades(scope, period string) ([]GradeRecord, error) {
	return fetchList[GradeRecord](c, "/api/v1/grades", scope, period)
}

func (c *Client) FetchAttendance(scope, period string) ([]AttendanceRecord, error) {
	return fetchList[AttendanceRecord](c, "/api/v1/attendance", scope, period)
}
