package storefront

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/kitbuilder587/predictive-search/internal/search"
)

const (
	DefaultPath  = "/search/suggest.json"
	maxBodyBytes = 1 << 20
)

type Config struct {
	BaseURL   string
	Path      string
	Timeout   time.Duration
	Transport http.RoundTripper
}

// Client ходит в suggest эндпоинт витрины.
type Client struct {
	base   *url.URL
	path   string
	client *http.Client
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("parse base url: %q is not absolute", cfg.BaseURL)
	}

	// куки живут в jar по origin, редиректы на чужой origin не ходим
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	c := &Client{
		base:   base,
		path:   cfg.Path,
		logger: logger,
	}
	c.client = &http.Client{
		Timeout:       cfg.Timeout,
		Transport:     otelhttp.NewTransport(cfg.Transport),
		Jar:           jar,
		CheckRedirect: c.checkRedirect,
	}
	return c, nil
}

// URL собирает адрес запроса: query кодируется как encodeURIComponent (пробел -> %20).
func (c *Client) URL(req search.Request) string {
	var b strings.Builder
	b.WriteString(c.base.String())
	b.WriteString(c.path)
	b.WriteString("?query=")
	b.WriteString(strings.ReplaceAll(url.QueryEscape(req.Query), "+", "%20"))
	if req.Params != "" {
		b.WriteByte('&')
		b.WriteString(req.Params)
	}
	return b.String()
}

func (c *Client) Suggest(ctx context.Context, req search.Request) (*search.Result, error) {
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := ParseResponseStatus(resp); err != nil {
		c.logger.Debug("suggest request rejected",
			zap.String("query", req.Query),
			zap.Int("status", resp.StatusCode),
			zap.Error(err),
		)
		return nil, err
	}

	return ParseResponse(resp)
}

func (c *Client) do(ctx context.Context, req search.Request) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(req), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", search.ErrRequestFailed, ctxErr)
		}
		return nil, fmt.Errorf("%w: %w", search.ErrRequestFailed, err)
	}
	return resp, nil
}

func (c *Client) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return errors.New("stopped after 10 redirects")
	}
	if req.URL.Scheme != c.base.Scheme || req.URL.Host != c.base.Host {
		return search.ErrCrossOrigin
	}
	return nil
}

// ParseResponseStatus: 2xx - ок, 429 с Retry-After - ThrottledError, остальное StatusError.
func ParseResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		if retryAfter, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
			return &search.ThrottledError{RetryAfter: retryAfter}
		}
	}

	return &search.StatusError{
		StatusCode: resp.StatusCode,
		Message:    statusText(resp),
	}
}

// ParseResponse декодирует тело по Content-Type: json-семейство или текст.
func ParseResponse(resp *http.Response) (*search.Result, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", search.ErrDecode, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if isJSON(contentType) {
		if !gjson.ValidBytes(body) {
			return nil, fmt.Errorf("%w: invalid json body", search.ErrDecode)
		}
		return &search.Result{ContentType: contentType, Raw: body}, nil
	}

	return &search.Result{ContentType: contentType, Text: string(body)}, nil
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "application/json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// parseRetryAfter понимает только целое число; HTTP-date считаем отсутствием заголовка.
func parseRetryAfter(v string) (int, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func statusText(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	if text := strings.TrimSpace(strings.TrimPrefix(resp.Status, code)); text != "" {
		return text
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return "status " + code
}
