// Package api is the HTTP binding of the equipment backend's REST surface.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"medequip/internal/shared/models"
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: %s: %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Status)
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client for baseURL, which includes the API prefix
// (e.g. http://localhost:8001/api).
func New(baseURL string, timeout time.Duration) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) BaseURL() string { return c.baseURL }

// Login posts form-encoded credentials and returns the access token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{"username": {username}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "build login request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	var out models.TokenResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", errors.New("empty access token")
	}
	return out.AccessToken, nil
}

func (c *Client) Me(ctx context.Context, token string) (models.UserProfile, error) {
	var out models.UserProfile
	err := c.get(ctx, "/me", token, &out)
	return out, err
}

func (c *Client) ListEquipment(ctx context.Context, token string) ([]models.Equipment, error) {
	var out models.EquipmentList
	if err := c.get(ctx, "/equipamentos", token, &out); err != nil {
		return nil, err
	}
	return out.Equipment, nil
}

func (c *Client) CreateEquipment(ctx context.Context, token string, eq models.NewEquipment) (models.Equipment, error) {
	var out models.EquipmentCreated
	if err := c.post(ctx, "/equipamentos", token, eq, &out); err != nil {
		return models.Equipment{}, err
	}
	return out.Equipment, nil
}

func (c *Client) ListMaintenance(ctx context.Context, token string) ([]models.MaintenanceRecord, error) {
	var out models.MaintenanceList
	if err := c.get(ctx, "/manutencoes", token, &out); err != nil {
		return nil, err
	}
	return out.Maintenance, nil
}

func (c *Client) CreateMaintenance(ctx context.Context, token string, m models.NewMaintenance) (models.MaintenanceRecord, error) {
	var out models.MaintenanceCreated
	if err := c.post(ctx, "/manutencoes", token, m, &out); err != nil {
		return models.MaintenanceRecord{}, err
	}
	return out.Maintenance, nil
}

func (c *Client) GetReport(ctx context.Context, token string) (models.Report, error) {
	var out models.ReportEnvelope
	if err := c.get(ctx, "/relatorios", token, &out); err != nil {
		return models.Report{}, err
	}
	return out.Report, nil
}

func (c *Client) ListNotifications(ctx context.Context, token string) ([]models.Notification, error) {
	var out models.NotificationList
	if err := c.get(ctx, "/notificacoes", token, &out); err != nil {
		return nil, err
	}
	return out.Notifications, nil
}

func (c *Client) get(ctx context.Context, path, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrapf(err, "build GET %s", path)
	}
	setBearer(req, token)
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path, token string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return errors.Wrapf(err, "encode POST %s", path)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return errors.Wrapf(err, "build POST %s", path)
	}
	req.Header.Set("Content-Type", "application/json")
	setBearer(req, token)
	return c.do(req, out)
}

func setBearer(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", req.Method, req.URL.Path)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &StatusError{
			Method:     req.Method,
			Path:       req.URL.Path,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Detail:     readDetail(resp.Body),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s %s", req.Method, req.URL.Path)
	}
	return nil
}

// readDetail extracts the backend's {"detail": ...} or {"error": ...} text.
func readDetail(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	var body struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(b, &body) == nil {
		if body.Detail != "" {
			return body.Detail
		}
		return body.Error
	}
	return strings.TrimSpace(string(b))
}
