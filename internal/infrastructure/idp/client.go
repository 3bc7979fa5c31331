package idp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/matchtrack/matchtrack/internal/domain/user"
	"github.com/matchtrack/matchtrack/internal/platform/logging"
	"github.com/matchtrack/matchtrack/internal/platform/resilience"
)

var errIdPTransient = crerr.New("identity provider transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	VerifyPath     string
	UsersPath      string
	APIKey         string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.BreakerConfig
}

// Client talks to the external identity provider. The provider only ever
// sees derived internal addresses; nothing else about members crosses this
// boundary.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	verifyPath     string
	usersPath      string
	apiKey         string
	logger         *logging.Logger
	breaker        *resilience.Breaker
	circuitEnabled bool
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 5 * time.Second
	}

	verifyPath := cfg.VerifyPath
	if verifyPath == "" {
		verifyPath = "/v1/credentials/verify"
	}
	usersPath := cfg.UsersPath
	if usersPath == "" {
		usersPath = "/v1/users"
	}

	return &Client{
		httpClient:     httpClient,
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		verifyPath:     verifyPath,
		usersPath:      usersPath,
		apiKey:         cfg.APIKey,
		logger:         logger,
		breaker:        resilience.NewBreaker(cfg.CircuitBreaker),
		circuitEnabled: cfg.CircuitBreaker.Enabled,
	}
}

type userPayload struct {
	UserID string `json:"user_id"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) CreateUser(ctx context.Context, email, password string) (string, error) {
	body, err := sonic.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", crerr.Wrap(err, "marshal create user request")
	}

	var out userPayload
	if err := c.do(ctx, http.MethodPost, c.usersPath, body, http.StatusCreated, &out); err != nil {
		return "", err
	}
	if out.UserID == "" {
		return "", crerr.New("identity provider returned no user id")
	}
	return out.UserID, nil
}

func (c *Client) VerifyCredentials(ctx context.Context, email, password string) (string, error) {
	body, err := sonic.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", crerr.Wrap(err, "marshal verify request")
	}

	var out userPayload
	if err := c.do(ctx, http.MethodPost, c.verifyPath, body, http.StatusOK, &out); err != nil {
		return "", err
	}
	if out.UserID == "" {
		return "", crerr.New("identity provider returned no user id")
	}
	return out.UserID, nil
}

// Name and Healthy let the client join the health sweep.
func (c *Client) Name() string { return "identity_provider" }

func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return crerr.Wrap(err, "build idp health request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return crerr.Wrap(err, "idp health request")
	}
	defer func() { _, _ = io.Copy(io.Discard, resp.Body); _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return crerr.Newf("idp health status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, wantStatus int, out any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			return crerr.Wrap(errIdPTransient, "circuit open")
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return crerr.Wrap(err, "build idp request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure()
		return crerr.Wrapf(errIdPTransient, "idp request %s %s: %v", method, path, err)
	}
	defer func() { _, _ = io.Copy(io.Discard, resp.Body); _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.recordFailure()
		return crerr.Wrap(errIdPTransient, "read idp response")
	}

	switch {
	case resp.StatusCode == wantStatus:
		c.recordSuccess()
		if out != nil {
			if err := sonic.Unmarshal(payload, out); err != nil {
				return crerr.Wrap(err, "decode idp response")
			}
		}
		return nil

	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		// Wrong credentials are an answer, not an outage.
		c.recordSuccess()
		return user.ErrInvalidCredentials

	case resp.StatusCode == http.StatusConflict:
		c.recordSuccess()
		return fmt.Errorf("identity provider conflict: %s", errorMessage(payload))

	case resp.StatusCode >= 500:
		c.recordFailure()
		c.logger.WarnContext(ctx, "identity provider server error",
			"status", resp.StatusCode, "path", path)
		return crerr.Wrapf(errIdPTransient, "idp status %d", resp.StatusCode)

	default:
		c.recordSuccess()
		return crerr.Newf("idp status %d: %s", resp.StatusCode, errorMessage(payload))
	}
}

func errorMessage(payload []byte) string {
	var out errorPayload
	if err := sonic.Unmarshal(payload, &out); err != nil || out.Message == "" {
		return "unknown error"
	}
	return out.Message
}

func (c *Client) recordSuccess() {
	if c.circuitEnabled {
		c.breaker.RecordSuccess()
	}
}

func (c *Client) recordFailure() {
	if c.circuitEnabled {
		c.breaker.RecordFailure()
	}
}
