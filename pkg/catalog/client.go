package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/inventory-service/pkg/errors"
	"github.com/angelmondragon/inventory-service/pkg/logger"
)

// UnknownProduct is returned by ResolveName whenever the name cannot be read.
const UnknownProduct = "Unknown Product"

const (
	apiKeyHeader   = "X-API-KEY"
	defaultTimeout = 5 * time.Second
)

const responseBodyReadLimit int64 = 1 << 20

var errBaseURLRequired = errors.New("catalog base url is required")

// Recorder observes catalog calls. pkg/metrics provides the prometheus one.
type Recorder interface {
	ObserveCatalogCall(operation, outcome string, duration time.Duration)
}

// Client talks to the external product catalog.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	timeout    time.Duration
	recorder   Recorder
	logg       *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAPIKey sets the key sent in the X-API-KEY header.
func WithAPIKey(apiKey string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(apiKey)
	}
}

// WithTimeout bounds every catalog call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRecorder attaches a call recorder.
func WithRecorder(recorder Recorder) Option {
	return func(c *Client) {
		c.recorder = recorder
	}
}

// WithLogger attaches a logger used for best-effort failures.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		c.logg = logg
	}
}

// NewClient builds a catalog client rooted at baseURL, e.g.
// http://catalog:8080/api/products.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:    trimmed,
		timeout:    defaultTimeout,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// CheckAvailability reports whether the catalog knows productID. A 404 is a
// legitimate "false"; every other failure is returned as a typed error
// carrying the upstream status (500 when there is none).
func (c *Client) CheckAvailability(ctx context.Context, productID int64) (bool, error) {
	started := time.Now()
	status, body, err := c.fetch(ctx, productID)
	if err != nil {
		c.observe("check_availability", "unavailable", started)
		return false, unavailable(productID, err)
	}

	switch {
	case status >= 200 && status < 300:
		var decoded any
		if err := json.Unmarshal(body, &decoded); err != nil {
			c.observe("check_availability", "unavailable", started)
			return false, unavailable(productID, fmt.Errorf("decode catalog response: %w", err))
		}
		// Valid JSON that is not an object carries no data member.
		envelope, _ := decoded.(map[string]any)
		_, ok := envelope["data"]
		if ok {
			c.observe("check_availability", "available", started)
		} else {
			c.observe("check_availability", "absent", started)
		}
		return ok, nil
	case status == http.StatusNotFound:
		c.observe("check_availability", "absent", started)
		return false, nil
	case status >= 400 && status < 500:
		c.observe("check_availability", "client_error", started)
		return false, newError(KindClient, status, productID, body)
	case status >= 500 && status < 600:
		c.observe("check_availability", "server_error", started)
		return false, newError(KindServer, status, productID, body)
	default:
		c.observe("check_availability", "unavailable", started)
		return false, unavailable(productID, fmt.Errorf("unexpected catalog status %d", status))
	}
}

// ResolveName returns data.attributes.name for productID, or UnknownProduct
// when the catalog cannot provide it. It never fails.
func (c *Client) ResolveName(ctx context.Context, productID int64) string {
	started := time.Now()
	name, err := c.resolveName(ctx, productID)
	if err != nil {
		c.observe("resolve_name", "fallback", started)
		if c.logg != nil {
			ctx = c.logg.WithProductID(ctx, productID)
			ctx = c.logg.WithField(ctx, "reason", err.Error())
			c.logg.Warn(ctx, "catalog.name_unresolved")
		}
		return UnknownProduct
	}
	c.observe("resolve_name", "resolved", started)
	return name
}

func (c *Client) resolveName(ctx context.Context, productID int64) (string, error) {
	status, body, err := c.fetch(ctx, productID)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("catalog status %d", status)
	}

	var payload struct {
		Data *struct {
			Attributes *struct {
				Name *string `json:"name"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode catalog response: %w", err)
	}
	if payload.Data == nil || payload.Data.Attributes == nil || payload.Data.Attributes.Name == nil {
		return "", errors.New("product name missing from catalog response")
	}
	name := strings.TrimSpace(*payload.Data.Attributes.Name)
	if name == "" {
		return "", errors.New("product name is empty")
	}
	return name, nil
}

func (c *Client) fetch(ctx context.Context, productID int64) (int, []byte, error) {
	if c == nil {
		return 0, nil, errors.New("catalog client not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := c.baseURL + "/" + strconv.FormatInt(productID, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("execute catalog request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return 0, nil, fmt.Errorf("read catalog response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) observe(operation, outcome string, started time.Time) {
	if c.recorder == nil {
		return
	}
	c.recorder.ObserveCatalogCall(operation, outcome, time.Since(started))
}

func unavailable(productID int64, cause error) error {
	catalogErr := &Error{Kind: KindUnavailable, Status: http.StatusInternalServerError, ProductID: productID, cause: cause}
	msg := fmt.Sprintf("Product service unavailable for product ID %d", productID)
	return pkgerrors.Wrap(pkgerrors.CodeCatalogDown, catalogErr, msg).
		WithStatus(http.StatusInternalServerError)
}

func newError(kind Kind, status int, productID int64, body []byte) error {
	catalogErr := &Error{Kind: kind, Status: status, ProductID: productID, Body: truncate(string(body), 256)}
	code := pkgerrors.CodeCatalogClient
	if kind == KindServer {
		code = pkgerrors.CodeCatalogServer
	}
	return pkgerrors.Wrap(code, catalogErr, catalogErr.Error()).WithStatus(status)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max]
}
