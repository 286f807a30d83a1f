// Package api is a small REST client for the lanify feed server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lanify/monitor/internal/alert"
)

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("not found")

// StatusError is a non-2xx response other than 404.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, e.Message)
}

// Client makes REST calls to a feed server.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// New creates a client targeting baseURL, e.g. "http://localhost:5000".
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// ListAlerts fetches /api/alerts, optionally filtered by vehicle.
func (c *Client) ListAlerts(ctx context.Context, vehicleID string) ([]alert.Record, error) {
	path := "/api/alerts"
	if vehicleID != "" {
		path += "?vehicle_id=" + url.QueryEscape(vehicleID)
	}
	var out []alert.Record
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetAlert(ctx context.Context, id string) (*alert.Record, error) {
	var out alert.Record
	if err := c.do(ctx, http.MethodGet, "/api/alerts/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateAlert posts rec and returns the stored record.
func (c *Client) CreateAlert(ctx context.Context, rec *alert.Record) (*alert.Record, error) {
	var out alert.Record
	if err := c.do(ctx, http.MethodPost, "/api/alerts", rec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteAlert(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/alerts/"+url.PathEscape(id), nil, nil)
}

// SafetyReport fetches the report for one vehicle.
func (c *Client) SafetyReport(ctx context.Context, vehicleID string) (*alert.SafetyReport, error) {
	var out alert.SafetyReport
	if err := c.do(ctx, http.MethodGet, "/api/safety-report/"+url.PathEscape(vehicleID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SafetyReports fetches reports for every vehicle.
func (c *Client) SafetyReports(ctx context.Context) ([]alert.SafetyReport, error) {
	var out []alert.SafetyReport
	if err := c.do(ctx, http.MethodGet, "/api/safety-reports", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode >= 300 {
		var e struct {
			Message string `json:"message"`
		}
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &e) != nil || e.Message == "" {
			e.Message = strings.TrimSpace(string(data))
		}
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Message: e.Message}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
