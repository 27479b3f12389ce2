package cli

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

	"github.com/metorial/tattr/internal/catalog"
	"github.com/metorial/tattr/internal/models"
)

// Client talks to the tattrd HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// APIError is a non-2xx answer from the server. Message is the server's
// error text.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return e.Message
}

func (e *APIError) Is(target error) bool {
	switch e.Status {
	case http.StatusNotFound:
		return target == catalog.ErrNotFound
	case http.StatusConflict:
		if strings.Contains(e.Message, " in use ") {
			return target == catalog.ErrInUse
		}
		return target == catalog.ErrAlreadyExists
	case http.StatusBadRequest:
		return target == catalog.ErrInvalidQuery && strings.HasPrefix(e.Message, "invalid query")
	}
	return false
}

func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/v1/health", nil, nil)
}

func (c *Client) AddHost(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/hosts", map[string]string{"hostname": name}, nil)
}

func (c *Client) RemoveHost(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/hosts/"+url.PathEscape(name), nil, nil)
}

func (c *Client) RenameHost(ctx context.Context, oldName, newName string) error {
	return c.do(ctx, http.MethodPatch, "/api/v1/hosts/"+url.PathEscape(oldName), map[string]string{"hostname": newName}, nil)
}

func (c *Client) GetHost(ctx context.Context, name string) (*models.Host, error) {
	var resp struct {
		Host *models.Host `json:"host"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/hosts/"+url.PathEscape(name), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Host, nil
}

func (c *Client) ListHosts(ctx context.Context, tags, attrs []string) ([]models.Host, error) {
	params := url.Values{}
	for _, tag := range tags {
		params.Add("tag", tag)
	}
	for _, attr := range attrs {
		params.Add("attr", attr)
	}
	path := "/api/v1/hosts"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp struct {
		Hosts []models.Host `json:"hosts"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Hosts, nil
}

func (c *Client) SetTag(ctx context.Context, hostname, tag string) error {
	return c.do(ctx, http.MethodPut, hostPath(hostname, "tags", tag), nil, nil)
}

func (c *Client) UnsetTag(ctx context.Context, hostname, tag string) error {
	return c.do(ctx, http.MethodDelete, hostPath(hostname, "tags", tag), nil, nil)
}

func (c *Client) SetAttribute(ctx context.Context, hostname, attr, value string) error {
	return c.do(ctx, http.MethodPut, hostPath(hostname, "attributes", attr), map[string]string{"value": value}, nil)
}

func (c *Client) UnsetAttribute(ctx context.Context, hostname, attr string) error {
	return c.do(ctx, http.MethodDelete, hostPath(hostname, "attributes", attr), nil, nil)
}

func (c *Client) AddTag(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/tags", map[string]string{"name": name}, nil)
}

func (c *Client) RemoveTag(ctx context.Context, name string, force bool) error {
	return c.do(ctx, http.MethodDelete, removePath("tags", name, force), nil, nil)
}

func (c *Client) RenameTag(ctx context.Context, oldName, newName string) error {
	return c.do(ctx, http.MethodPatch, "/api/v1/tags/"+url.PathEscape(oldName), map[string]string{"name": newName}, nil)
}

func (c *Client) GetTag(ctx context.Context, name string) (*models.Tag, error) {
	var resp struct {
		Tag *models.Tag `json:"tag"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/tags/"+url.PathEscape(name), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tag, nil
}

func (c *Client) ListTags(ctx context.Context) ([]models.Tag, error) {
	var resp struct {
		Tags []models.Tag `json:"tags"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/tags", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tags, nil
}

func (c *Client) AddAttribute(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/attributes", map[string]string{"name": name}, nil)
}

func (c *Client) RemoveAttribute(ctx context.Context, name string, force bool) error {
	return c.do(ctx, http.MethodDelete, removePath("attributes", name, force), nil, nil)
}

func (c *Client) RenameAttribute(ctx context.Context, oldName, newName string) error {
	return c.do(ctx, http.MethodPatch, "/api/v1/attributes/"+url.PathEscape(oldName), map[string]string{"name": newName}, nil)
}

func (c *Client) GetAttribute(ctx context.Context, name string) (*models.Attribute, error) {
	var resp struct {
		Attribute *models.Attribute `json:"attribute"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/attributes/"+url.PathEscape(name), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Attribute, nil
}

func (c *Client) ListAttributes(ctx context.Context) ([]models.Attribute, error) {
	var resp struct {
		Attributes []models.Attribute `json:"attributes"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/attributes", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Attributes, nil
}

func (c *Client) Query(ctx context.Context, tokens []string) ([]string, error) {
	path := "/api/v1/query?" + url.Values{"q": {strings.Join(tokens, " ")}}.Encode()

	var resp struct {
		Hosts []string `json:"hosts"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Hosts, nil
}

func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func hostPath(hostname, kind, name string) string {
	return fmt.Sprintf("/api/v1/hosts/%s/%s/%s", url.PathEscape(hostname), kind, url.PathEscape(name))
}

func removePath(kind, name string, force bool) string {
	path := fmt.Sprintf("/api/v1/%s/%s", kind, url.PathEscape(name))
	if force {
		path += "?force=true"
	}
	return path
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
