package httpcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stream-quality/internal/core/health"
)

func TestHTTPCheckerHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := &Checker{
		NameValue: "api",
		URL:       server.URL,
		Timeout:   2 * time.Second,
		Headers:   map[string]string{"Authorization": "Bearer token"},
	}
	res := c.Check(context.Background())
	assert.Equal(t, health.StatusHealthy, res.Status)
	assert.Equal(t, "Service is healthy (status code: 200)", res.Message)
	assert.Equal(t, 200, res.Metrics["status_code"])
	assert.Equal(t, "http", res.Type)
}

func TestHTTPCheckerUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := &Checker{NameValue: "registry", URL: server.URL, ExpectedStatus: http.StatusNoContent, Timeout: 2 * time.Second}
	res := c.Check(context.Background())
	assert.Equal(t, health.StatusUnhealthy, res.Status)
	assert.Equal(t, "Service returned unexpected status code: 200", res.Message)
}

func TestHTTPCheckerTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := &Checker{NameValue: "slow", URL: server.URL, Timeout: 20 * time.Millisecond}
	res := c.Check(context.Background())
	assert.Equal(t, health.StatusError, res.Status)
	assert.Contains(t, res.Message, "Error checking service")
}

func TestHTTPCheckerBadURL(t *testing.T) {
	c := &Checker{NameValue: "bad", URL: "://nope"}
	res := c.Check(context.Background())
	assert.Equal(t, health.StatusError, res.Status)
}
