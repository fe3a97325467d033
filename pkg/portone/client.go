package portone

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
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// StatusPaid is the gateway status of a settled payment
const StatusPaid = "paid"

// tokenRefreshMargin is how long before expiry a cached token is replaced
const tokenRefreshMargin = 60 * time.Second

var (
	// ErrUnreachable wraps transport failures and timeouts
	ErrUnreachable = errors.New("payment gateway unreachable")
	// ErrAPI wraps a non-success answer from the gateway
	ErrAPI = errors.New("payment gateway error")
	// ErrCancelFailed wraps a refused or failed cancellation
	ErrCancelFailed = errors.New("payment gateway cancel failed")
)

// Config holds PortOne REST API settings
type Config struct {
	APIURL    string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// TokenStore shares the gateway access token between server instances
type TokenStore interface {
	GetToken(ctx context.Context) (token string, expiresAt time.Time, err error)
	SetToken(ctx context.Context, token string, expiresAt time.Time) error
}

// Client talks to the PortOne (iamport) REST API
type Client struct {
	apiURL    string
	apiKey    string
	apiSecret string
	client    *http.Client
	logger    *logrus.Logger
	store     TokenStore

	// Token management
	token       string
	tokenMutex  sync.RWMutex
	tokenExpiry time.Time
}

// NewClient creates a PortOne API client
func NewClient(cfg Config, logger *logrus.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiURL:    strings.TrimRight(cfg.APIURL, "/"),
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		logger:    logger,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithTokenStore makes the client read and publish its token through store
func (c *Client) WithTokenStore(store TokenStore) *Client {
	c.store = store
	return c
}

// envelope is the wrapper every PortOne response uses. A non-zero code is a failure.
type envelope struct {
	Code     int             `json:"code"`
	Message  string          `json:"message"`
	Response json.RawMessage `json:"response"`
}

type tokenRequest struct {
	IMPKey    string `json:"imp_key"`
	IMPSecret string `json:"imp_secret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiredAt   int64  `json:"expired_at"`
	Now         int64  `json:"now"`
}

// PaymentInfo is the gateway's record of one transaction
type PaymentInfo struct {
	IMPUID      string `json:"imp_uid"`
	MerchantUID string `json:"merchant_uid"`
	Status      string `json:"status"`
	Amount      int64  `json:"amount"`
	PayMethod   string `json:"pay_method"`
	PGProvider  string `json:"pg_provider"`
	ApplyNum    string `json:"apply_num"`
	CardNumber  string `json:"card_number"`
	CardName    string `json:"card_name"`
	FailReason  string `json:"fail_reason"`
	PaidAt      int64  `json:"paid_at"`
}

// IsPaid reports whether the gateway considers the transaction settled
func (p *PaymentInfo) IsPaid() bool {
	return p.Status == StatusPaid
}

type cancelRequest struct {
	IMPUID string `json:"imp_uid"`
	Reason string `json:"reason"`
	Amount int64  `json:"amount"`
}

// CancelResult is the gateway's record of a cancelled transaction
type CancelResult struct {
	IMPUID       string `json:"imp_uid"`
	MerchantUID  string `json:"merchant_uid"`
	Status       string `json:"status"`
	CancelAmount int64  `json:"cancel_amount"`
}

// GetPayment fetches a transaction by its gateway id
func (c *Client) GetPayment(ctx context.Context, impUID string) (*PaymentInfo, error) {
	token, err := c.ensureValidToken(ctx)
	if err != nil {
		return nil, err
	}

	var info PaymentInfo
	endpoint := fmt.Sprintf("%s/payments/%s", c.apiURL, url.PathEscape(impUID))
	if err := c.do(ctx, http.MethodGet, endpoint, token, nil, &info); err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"imp_uid":      info.IMPUID,
		"merchant_uid": info.MerchantUID,
		"status":       info.Status,
		"amount":       info.Amount,
	}).Debug("Fetched PortOne payment")

	return &info, nil
}

// CancelPayment asks the gateway to refund amount of the transaction
func (c *Client) CancelPayment(ctx context.Context, impUID string, amount int64, reason string) (*CancelResult, error) {
	token, err := c.ensureValidToken(ctx)
	if err != nil {
		if errors.Is(err, ErrUnreachable) {
			return nil, fmt.Errorf("%w: %w", ErrCancelFailed, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrCancelFailed, err)
	}

	var result CancelResult
	body := cancelRequest{IMPUID: impUID, Reason: reason, Amount: amount}
	if err := c.do(ctx, http.MethodPost, c.apiURL+"/payments/cancel", token, body, &result); err != nil {
		if errors.Is(err, ErrUnreachable) {
			return nil, fmt.Errorf("%w: %w", ErrCancelFailed, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrCancelFailed, err)
	}

	c.logger.WithFields(logrus.Fields{
		"imp_uid": impUID,
		"amount":  amount,
		"status":  result.Status,
	}).Info("PortOne payment cancelled")

	return &result, nil
}

// GetAccessToken exchanges the API key pair for a fresh access token
func (c *Client) GetAccessToken(ctx context.Context) (string, error) {
	var tok tokenResponse
	body := tokenRequest{IMPKey: c.apiKey, IMPSecret: c.apiSecret}
	if err := c.do(ctx, http.MethodPost, c.apiURL+"/users/getToken", "", body, &tok); err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("failed to get access token: %w: empty token", ErrAPI)
	}

	expiry := time.Unix(tok.ExpiredAt, 0)
	c.setToken(tok.AccessToken, expiry)

	if c.store != nil {
		if err := c.store.SetToken(ctx, tok.AccessToken, expiry); err != nil {
			c.logger.WithError(err).Warn("Failed to share PortOne token")
		}
	}

	c.logger.WithField("expires_at", expiry).Debug("Obtained PortOne access token")
	return tok.AccessToken, nil
}

func (c *Client) setToken(token string, expiry time.Time) {
	c.tokenMutex.Lock()
	c.token = token
	c.tokenExpiry = expiry
	c.tokenMutex.Unlock()
}

// cachedToken returns the in-process token if it still has enough validity
func (c *Client) cachedToken() (string, bool) {
	c.tokenMutex.RLock()
	defer c.tokenMutex.RUnlock()

	if c.token == "" {
		return "", false
	}
	return c.token, time.Now().Before(c.tokenExpiry.Add(-tokenRefreshMargin))
}

// ensureValidToken returns a token valid for at least tokenRefreshMargin,
// trying the local cache, then the shared store, then the gateway.
func (c *Client) ensureValidToken(ctx context.Context) (string, error) {
	if token, ok := c.cachedToken(); ok {
		return token, nil
	}

	if c.store != nil {
		token, expiry, err := c.store.GetToken(ctx)
		if err != nil {
			c.logger.WithError(err).Warn("Failed to read shared PortOne token")
		} else if token != "" && time.Now().Before(expiry.Add(-tokenRefreshMargin)) {
			c.setToken(token, expiry)
			return token, nil
		}
	}

	return c.GetAccessToken(ctx)
}

// do sends a JSON request and decodes the envelope's response field into out
func (c *Client) do(ctx context.Context, method, endpoint, token string, in, out interface{}) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("endpoint", endpoint).Error("PortOne request failed")
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", ErrUnreachable, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: unexpected response (HTTP %d)", ErrAPI, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK || env.Code != 0 {
		c.logger.WithFields(logrus.Fields{
			"endpoint":    endpoint,
			"http_status": resp.StatusCode,
			"code":        env.Code,
			"message":     env.Message,
		}).Warn("PortOne returned an error")
		return fmt.Errorf("%w: %s (code %d, HTTP %d)", ErrAPI, env.Message, env.Code, resp.StatusCode)
	}

	if out != nil && len(env.Response) > 0 && string(env.Response) != "null" {
		if err := json.Unmarshal(env.Response, out); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", ErrAPI, err)
		}
	}
	return nil
}
