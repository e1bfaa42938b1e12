// Package access is a client for the Flow Access REST API.
package access

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

	"github.com/avast/retry-go/v4"

	"github.com/flowdapp/profile-dapp/ledger"
	"github.com/flowdapp/profile-dapp/pkg/logger"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultRetryAttempts = 3
	defaultRetryDelay    = 500 * time.Millisecond
	maxErrorBody         = 4096
)

// APIError is a non 2xx response of the Access API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("access api %s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the Access API.
func IsNotFound(err error) bool {
	var apiErr *APIError

	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRetry sets the attempts and the fixed delay for retried GET requests.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(c *Client) {
		c.attempts = attempts
		c.delay = delay
	}
}

// WithLogger sets the logger.
func WithLogger(lggr logger.Logger) Option {
	return func(c *Client) {
		c.lggr = lggr
	}
}

var _ ledger.AccessAPI = (*Client)(nil)

// Client calls the Access REST API of a single node.
type Client struct {
	base     *url.URL
	http     *http.Client
	attempts uint
	delay    time.Duration
	lggr     logger.Logger
}

// NewClient returns a client for the node at rawURL, e.g. https://rest-testnet.onflow.org. A
// trailing /v1 is accepted.
func NewClient(rawURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(strings.TrimSuffix(rawURL, "/"), "/v1"))
	if err != nil {
		return nil, fmt.Errorf("invalid access node url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid access node url %q: scheme must be http or https", rawURL)
	}

	c := &Client{
		base:     u,
		http:     &http.Client{Timeout: defaultTimeout},
		attempts: defaultRetryAttempts,
		delay:    defaultRetryDelay,
		lggr:     logger.Nop(),
	}
	for _, o := range opts {
		o(c)
	}

	return c, nil
}

// URL returns the base URL of the node.
func (c *Client) URL() string { return c.base.String() }

// ExecuteScript runs a script at the latest sealed block and returns its JSON-Cadence result.
func (c *Client) ExecuteScript(ctx context.Context, code []byte, args [][]byte) ([]byte, error) {
	encoded := make([]string, len(args))
	for i, a := range args {
		encoded[i] = encodeBytes(a)
	}

	var result string
	q := url.Values{"block_height": {"sealed"}}
	if err := c.do(ctx, http.MethodPost, "/v1/scripts", q, ScriptRequest{
		Script:    encodeBytes(code),
		Arguments: encoded,
	}, &result); err != nil {
		return nil, err
	}

	return decodeBytes("script result", result)
}

// SendTransaction submits a signed transaction and returns the ID assigned by the node.
func (c *Client) SendTransaction(ctx context.Context, tx *ledger.Transaction) (ledger.Identifier, error) {
	var out TransactionBody
	if err := c.do(ctx, http.MethodPost, "/v1/transactions", nil, EncodeTransaction(tx), &out); err != nil {
		return ledger.Identifier{}, err
	}

	return ledger.ParseIdentifier(out.ID)
}

// GetTransactionResult returns the current result of a transaction.
func (c *Client) GetTransactionResult(ctx context.Context, id ledger.Identifier) (ledger.TransactionResult, error) {
	var out TransactionResultBody
	if err := c.get(ctx, "/v1/transaction_results/"+id.Hex(), nil, &out); err != nil {
		return ledger.TransactionResult{}, err
	}

	return out.Decode(id)
}

// GetLatestSealedBlockHeader returns the header of the latest sealed block.
func (c *Client) GetLatestSealedBlockHeader(ctx context.Context) (ledger.BlockHeader, error) {
	var out []BlockBody
	if err := c.get(ctx, "/v1/blocks", url.Values{"height": {"sealed"}}, &out); err != nil {
		return ledger.BlockHeader{}, err
	}
	if len(out) == 0 {
		return ledger.BlockHeader{}, errors.New("access api returned no sealed block")
	}

	return out[0].Decode()
}

// GetAccount returns an account with its keys at the latest sealed block.
func (c *Client) GetAccount(ctx context.Context, addr ledger.Address) (ledger.Account, error) {
	var out AccountBody
	q := url.Values{"expand": {"keys"}, "block_height": {"sealed"}}
	if err := c.get(ctx, "/v1/accounts/"+addr.Hex(), q, &out); err != nil {
		return ledger.Account{}, err
	}

	return out.Decode()
}

// GetNodeVersionInfo returns the software version of the node.
func (c *Client) GetNodeVersionInfo(ctx context.Context) (NodeVersionInfo, error) {
	var out NodeVersionInfo
	if err := c.get(ctx, "/v1/node_version_info", nil, &out); err != nil {
		return NodeVersionInfo{}, err
	}

	return out, nil
}

// get performs an idempotent request, retrying transport errors and 5xx responses.
func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	return retry.Do(func() error {
		return c.do(ctx, http.MethodGet, path, q, nil, out)
	},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(attempt uint, err error) {
			c.lggr.Debugw("Retrying access api request", "path", path, "attempt", attempt+1, "err", err)
		}),
	)
}

func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError || apiErr.StatusCode == http.StatusTooManyRequests
	}

	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	u := c.base.JoinPath(path)
	u.RawQuery = q.Encode()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return decodeError(method, path, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}

	return nil
}

func decodeError(method, path string, resp *http.Response) error {
	apiErr := &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: resp.Status}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(b) == 0 {
		return apiErr
	}
	var eb ErrorBody
	if json.Unmarshal(b, &eb) == nil && eb.Message != "" {
		apiErr.Message = eb.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(b))
	}

	return apiErr
}
