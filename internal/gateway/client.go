package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/interaktiv/kyra-assist/internal/cache"
	"github.com/interaktiv/kyra-assist/internal/platform/logger"
)

const (
	errNoHeaders  = "No headers available"
	errTimeout    = "Request timeout - please try again"
	errConnection = "Cannot connect to API service"

	genericTimeout = 30 * time.Second
	chatTimeout    = 60 * time.Second

	// DefaultTokenTTL is the token reuse window when the settings
	// carry none.
	DefaultTokenTTL = 1200 * time.Second
)

// Config is the gateway connection configuration. It is read per call
// so the settings endpoint can change it at runtime.
type Config struct {
	// GatewayURL is the prompts collection endpoint of the gateway.
	GatewayURL string
	// RealmsURL is the identity provider realm base.
	RealmsURL    string
	ClientID     string
	ClientSecret string
	DomainID     string
	TokenTTL     time.Duration
}

func (c Config) domainID() string {
	if strings.TrimSpace(c.DomainID) == "" {
		return "cms"
	}
	return c.DomainID
}

func (c Config) tokenTTL() time.Duration {
	if c.TokenTTL <= 0 {
		return DefaultTokenTTL
	}
	return c.TokenTTL
}

// ConfigProvider yields the current gateway configuration.
type ConfigProvider func() Config

// Client is the authenticated gateway client. All operations return a
// uniform Result. The access token is shared process-wide
// through the injected cache.
type Client struct {
	log        *logger.Logger
	cache      cache.SharedCache
	config     ConfigProvider
	httpClient *http.Client
	chatClient *http.Client
}

func NewClient(log *logger.Logger, sharedCache cache.SharedCache, config ConfigProvider) *Client {
	return &Client{
		log:        log.With("service", "GatewayClient"),
		cache:      sharedCache,
		config:     config,
		httpClient: &http.Client{Timeout: genericTimeout},
		chatClient: &http.Client{Timeout: chatTimeout},
	}
}

// headers builds the auth headers for one call. An empty token (never
// fetched or fetch failed) yields nil, which short-circuits the call.
func (c *Client) headers(ctx context.Context, cfg Config, includeContentType bool) map[string]string {
	token := c.bearerToken(ctx, cfg)
	if token == "" {
		return nil
	}
	headers := map[string]string{
		"Authorization": "Bearer " + token,
		"x-domain-id":   cfg.domainID(),
	}
	if includeContentType {
		headers["Content-Type"] = "application/json"
	}
	return headers
}

// request performs one gateway call and normalizes every outcome into
// a Result.
func (c *Client) request(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body io.Reader, getContent bool) Result {
	if headers == nil {
		return Errf(errNoHeaders)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return Errf(fmt.Sprintf("Request failed: %v", err))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return c.transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Errf(fmt.Sprintf("Request failed: %v", err))
	}

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return Ok(map[string]any{})
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
			return decodeJSON(raw)
		}
		if getContent {
			return OkContent(raw)
		}
		return Ok(map[string]any{})
	default:
		return c.statusError(resp.StatusCode, raw)
	}
}

func (c *Client) transportError(err error) Result {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "context deadline exceeded"),
		strings.Contains(msg, "Client.Timeout"):
		c.log.Error("gateway request timeout", "error", err)
		return Errf(errTimeout)
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"):
		c.log.Error("gateway connection error", "error", err)
		return Errf(errConnection)
	default:
		c.log.Error("gateway request failed", "error", err)
		return Errf(fmt.Sprintf("Request failed: %v", err))
	}
}

// statusError extracts the upstream's own error message when the
// error body is JSON, otherwise reports the status line. The response
// body is preserved in Data so callers can inspect details.
func (c *Client) statusError(status int, raw []byte) Result {
	message := fmt.Sprintf("%d %s", status, http.StatusText(status))
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err == nil {
		if errMsg, ok := body["error"].(string); ok && errMsg != "" {
			message = errMsg
		} else if errMsg, ok := body["message"].(string); ok && errMsg != "" {
			message = errMsg
		}
		c.log.Error("gateway error response", "status", status, "detail", message)
		return Result{Data: body, Err: message}
	}
	c.log.Error("gateway http error", "status", status)
	return Errf(message)
}

func decodeJSON(raw []byte) Result {
	var anyBody any
	if err := json.Unmarshal(raw, &anyBody); err != nil {
		return Errf(fmt.Sprintf("Request failed: invalid JSON response: %v", err))
	}
	switch body := anyBody.(type) {
	case map[string]any:
		if errMsg, ok := body["error"].(string); ok && errMsg != "" {
			return Result{Data: body, Err: errMsg}
		}
		return Ok(body)
	case []any:
		return OkList(body)
	default:
		return Ok(map[string]any{"value": body})
	}
}

func jsonBody(payload any) io.Reader {
	raw, err := json.Marshal(payload)
	if err != nil {
		return bytes.NewReader(nil)
	}
	return bytes.NewReader(raw)
}

// --- Prompt operations -------------------------------------------------

func (c *Client) ListPrompts(ctx context.Context, page, size int) Result {
	cfg := c.config()
	url := fmt.Sprintf("%s?page=%d&size=%d", strings.TrimRight(cfg.GatewayURL, "/"), page, size)
	return c.request(ctx, c.httpClient, http.MethodGet, url, c.headers(ctx, cfg, true), nil, false)
}

func (c *Client) GetPrompt(ctx context.Context, promptID string) Result {
	cfg := c.config()
	url := strings.TrimRight(cfg.GatewayURL, "/") + "/" + promptID
	return c.request(ctx, c.httpClient, http.MethodGet, url, c.headers(ctx, cfg, true), nil, false)
}

func (c *Client) CreatePrompt(ctx context.Context, payload map[string]any) Result {
	cfg := c.config()
	url := strings.TrimRight(cfg.GatewayURL, "/")
	return c.request(ctx, c.httpClient, http.MethodPost, url, c.headers(ctx, cfg, true), jsonBody(payload), false)
}

func (c *Client) UpdatePrompt(ctx context.Context, promptID string, payload map[string]any) Result {
	cfg := c.config()
	url := strings.TrimRight(cfg.GatewayURL, "/") + "/" + promptID
	return c.request(ctx, c.httpClient, http.MethodPatch, url, c.headers(ctx, cfg, true), jsonBody(payload), false)
}

func (c *Client) DeletePrompt(ctx context.Context, promptID string) Result {
	cfg := c.config()
	url := strings.TrimRight(cfg.GatewayURL, "/") + "/" + promptID
	return c.request(ctx, c.httpClient, http.MethodDelete, url, c.headers(ctx, cfg, true), nil, false)
}

// ApplyPayload is the prompt-apply request body.
type ApplyPayload struct {
	Query    string `json:"query"`
	Input    string `json:"input"`
	Language string `json:"language,omitempty"`
}

func (c *Client) ApplyPrompt(ctx context.Context, promptID string, payload ApplyPayload) Result {
	cfg := c.config()
	url := strings.TrimRight(cfg.GatewayURL, "/") + "/" + promptID + "/apply"
	return c.request(ctx, c.httpClient, http.MethodPost, url, c.headers(ctx, cfg, true), jsonBody(payload), false)
}

// --- Chat operations ---------------------------------------------------

// chatURL derives the chat endpoint from the gateway URL: a trailing
// /prompts segment is replaced by /chat.
func chatURL(gatewayURL string) string {
	base := strings.TrimRight(gatewayURL, "/")
	if base == "" {
		return ""
	}
	if strings.HasSuffix(base, "/chat") {
		return base
	}
	base = strings.TrimSuffix(base, "/prompts")
	return base + "/chat"
}

func fallbackChatURL(gatewayURL string) string {
	return strings.TrimRight(gatewayURL, "/")
}

func (c *Client) SendChat(ctx context.Context, payload map[string]any) Result {
	cfg := c.config()
	headers := c.headers(ctx, cfg, true)
	if headers == nil {
		return Errf(errNoHeaders)
	}
	url := chatURL(cfg.GatewayURL)
	result := c.request(ctx, c.chatClient, http.MethodPost, url, headers, jsonBody(payload), false)
	if result.Failed() && result.NotFound() {
		if fallback := fallbackChatURL(cfg.GatewayURL); fallback != "" && fallback != url {
			retry := c.request(ctx, c.chatClient, http.MethodPost, fallback, headers, jsonBody(payload), false)
			if !retry.Failed() {
				return retry
			}
		}
	}
	return result
}

// StreamChat opens a streaming chat call. On success it returns a
// live stream handle; otherwise a non-empty error message. A 404 on
// the derived chat URL is retried once against the bare gateway URL.
func (c *Client) StreamChat(ctx context.Context, payload map[string]any) (*Stream, string) {
	cfg := c.config()
	headers := c.headers(ctx, cfg, true)
	if headers == nil {
		return nil, errNoHeaders
	}
	headers["Accept"] = "text/event-stream"

	url := chatURL(cfg.GatewayURL)
	stream, errMsg := c.openStream(ctx, url, headers, payload)
	if stream != nil {
		return stream, ""
	}
	if IsNotFoundMessage(errMsg) {
		if fallback := fallbackChatURL(cfg.GatewayURL); fallback != "" && fallback != url {
			if retry, _ := c.openStream(ctx, fallback, headers, payload); retry != nil {
				return retry, ""
			}
		}
	}
	return nil, errMsg
}

func (c *Client) openStream(ctx context.Context, url string, headers map[string]string, payload map[string]any) (*Stream, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, jsonBody(payload))
	if err != nil {
		return nil, fmt.Sprintf("Request failed: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.chatClient.Do(req)
	if err != nil {
		return nil, c.transportError(err).Err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, c.statusError(resp.StatusCode, raw).Err
	}
	return NewStream(resp.Body), ""
}

// --- File operations ---------------------------------------------------

func (c *Client) ListFiles(ctx context.Context, promptID string) Result {
	cfg := c.config()
	url := strings.TrimRight(cfg.GatewayURL, "/") + "/" + promptID + "/files"
	return c.request(ctx, c.httpClient, http.MethodGet, url, c.headers(ctx, cfg, true), nil, false)
}

// FileUpload is one file to attach to a prompt.
type FileUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (c *Client) UploadFiles(ctx context.Context, promptID string, files []FileUpload) Result {
	cfg := c.config()
	headers := c.headers(ctx, cfg, false)
	if headers == nil {
		return Errf(errNoHeaders)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, file := range files {
		if file.Filename == "" || len(file.Data) == 0 {
			continue
		}
		part, err := writer.CreateFormFile("files", file.Filename)
		if err != nil {
			return Errf(fmt.Sprintf("Request failed: %v", err))
		}
		if _, err := part.Write(file.Data); err != nil {
			return Errf(fmt.Sprintf("Request failed: %v", err))
		}
	}
	if err := writer.Close(); err != nil {
		return Errf(fmt.Sprintf("Request failed: %v", err))
	}
	headers["Content-Type"] = writer.FormDataContentType()

	url := strings.TrimRight(cfg.GatewayURL, "/") + "/" + promptID + "/files"
	return c.request(ctx, c.httpClient, http.MethodPost, url, headers, &buf, false)
}

func (c *Client) DownloadFile(ctx context.Context, promptID, fileID string) Result {
	cfg := c.config()
	url := strings.TrimRight(cfg.GatewayURL, "/") + "/" + promptID + "/files/" + fileID + "/download"
	return c.request(ctx, c.httpClient, http.MethodGet, url, c.headers(ctx, cfg, true), nil, true)
}

func (c *Client) DeleteFile(ctx context.Context, promptID, fileID string) Result {
	cfg := c.config()
	url := strings.TrimRight(cfg.GatewayURL, "/") + "/" + promptID + "/files/" + fileID
	return c.request(ctx, c.httpClient, http.MethodDelete, url, c.headers(ctx, cfg, true), nil, false)
}
