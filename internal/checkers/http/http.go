package httpcheck

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"stream-quality/internal/core/health"
)

const TypeHTTP = "http"

type Checker struct {
	NameValue      string
	URL            string
	Timeout        time.Duration
	Headers        map[string]string
	ExpectedStatus int
}

func (c *Checker) Name() string {
	return c.NameValue
}

// Check issues a GET and compares the status code with ExpectedStatus
// (200 when unset).
func (c *Checker) Check(ctx context.Context) health.Result {
	res := health.Result{Name: c.NameValue, Type: TypeHTTP, Timestamp: time.Now()}
	expected := c.ExpectedStatus
	if expected == 0 {
		expected = http.StatusOK
	}

	client := &http.Client{Timeout: c.Timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		res.Status = health.StatusError
		res.Message = "Error checking service: " + err.Error()
		return res
	}
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		res.Status = health.StatusError
		res.Message = "Error checking service: " + err.Error()
		return res
	}
	defer resp.Body.Close()

	res.Metrics = map[string]any{"status_code": resp.StatusCode}
	if resp.StatusCode == expected {
		res.Status = health.StatusHealthy
		res.Message = fmt.Sprintf("Service is healthy (status code: %d)", resp.StatusCode)
		return res
	}
	res.Status = health.StatusUnhealthy
	res.Message = fmt.Sprintf("Service returned unexpected status code: %d", resp.StatusCode)
	return res
}
