// Package linear is a thin typed client for the Linear GraphQL API, limited
// to the calls lb needs: identity, teams, labels, workflow states, issue CRUD,
// relations, comments, and repo-scoped issue queries.
package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/steveyegge/lb/internal/types"
)

// DefaultEndpoint is the public Linear GraphQL endpoint.
const DefaultEndpoint = "https://api.linear.app/graphql"

// Client issues GraphQL requests against one Linear workspace.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	limiter  *rate.Limiter
}

// NewClient returns a client authenticated with apiKey. The limiter allows a
// steady 5 requests per second with bursts of up to 10.
func NewClient(apiKey string) *Client {
	return &Client{
		endpoint: DefaultEndpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(5), 10),
	}
}

// WithEndpoint overrides the GraphQL endpoint (tests point this at a local
// server).
func (c *Client) WithEndpoint(endpoint string) *Client {
	c.endpoint = endpoint
	return c
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// do executes one GraphQL operation and decodes the data envelope into out.
// Connectivity failures and 5xx answers are retried with exponential backoff
// for a short window, then surfaced as the retriable offline class.
func (c *Client) do(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", types.ErrOffline, err)
	}

	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	var data json.RawMessage
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", types.ErrOffline, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		if err != nil {
			return fmt.Errorf("%w: reading response: %v", types.ErrOffline, err)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return backoff.Permanent(fmt.Errorf("%w: remote returned %s", types.ErrAuth, resp.Status))
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("%w: remote returned %s", types.ErrOffline, resp.Status)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("%w: remote returned %s: %s",
				types.ErrRemoteRejected, resp.Status, truncate(string(raw), 200)))
		}

		var envelope graphQLResponse
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return backoff.Permanent(fmt.Errorf("%w: decoding response: %v", types.ErrRemoteRejected, err))
		}
		if len(envelope.Errors) > 0 {
			return backoff.Permanent(classifyGraphQLErrors(envelope.Errors))
		}
		data = envelope.Data
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: decoding %T: %v", types.ErrRemoteRejected, out, err)
		}
	}
	return nil
}

func classifyGraphQLErrors(errs []graphQLError) error {
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, e.Message)
		code := strings.ToUpper(e.Extensions.Code)
		if code == "AUTHENTICATION_ERROR" || code == "UNAUTHENTICATED" ||
			strings.Contains(strings.ToLower(e.Message), "authentication") {
			return fmt.Errorf("%w: %s", types.ErrAuth, e.Message)
		}
	}
	return fmt.Errorf("%w: %s", types.ErrRemoteRejected, strings.Join(messages, "; "))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
