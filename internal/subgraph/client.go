package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrNoData is returned when a response carries neither data nor errors.
var ErrNoData = errors.New("subgraph response has no data")

// QueryError carries GraphQL errors returned by the indexer.
type QueryError struct {
	Endpoint string
	Messages []string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("subgraph %s: %s", e.Endpoint, strings.Join(e.Messages, "; "))
}

// Options tunes a Client.
type Options struct {
	RatePerSec   float64
	MaxRetries   int
	RetryBackoff time.Duration
	HTTPClient   *http.Client
	Logger       *zap.Logger
}

// Client issues GraphQL queries against one subgraph endpoint.
type Client struct {
	endpoint     string
	http         *http.Client
	limiter      *rate.Limiter
	maxRetries   int
	retryBackoff time.Duration
	logger       *zap.Logger
}

// NewClient builds a client for endpoint.
func NewClient(endpoint string, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint:     endpoint,
		http:         httpClient,
		limiter:      rate.NewLimiter(limit, 1),
		maxRetries:   opts.MaxRetries,
		retryBackoff: opts.RetryBackoff,
		logger:       logger,
	}
}

// Endpoint returns the configured URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Query posts query with variables and decodes the data field into out.
// Transport failures and 5xx responses are retried; GraphQL errors are not.
func (c *Client) Query(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal query: %w", err)
	}

	var data json.RawMessage
	err = withRetry(ctx, c.maxRetries, c.retryBackoff, func(ctx context.Context) error {
		var err error
		data, err = c.post(ctx, body)
		if err != nil {
			c.logger.Warn("subgraph query failed", zap.String("endpoint", c.endpoint), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, body []byte) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post query: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("subgraph status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, permanent(fmt.Errorf("subgraph status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	var decoded graphQLResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, permanent(fmt.Errorf("decode response: %w", err))
	}
	if len(decoded.Errors) > 0 {
		qe := &QueryError{Endpoint: c.endpoint}
		for _, e := range decoded.Errors {
			qe.Messages = append(qe.Messages, e.Message)
		}
		return nil, permanent(qe)
	}
	if len(decoded.Data) == 0 || string(decoded.Data) == "null" {
		return nil, permanent(ErrNoData)
	}
	return decoded.Data, nil
}
