package jobber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const graphqlPath = "/api/graphql"

// TokenProvider supplies a bearer token valid for at least the configured
// buffer window. The sync token manager implements it.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

type Client struct {
	host       string
	apiVersion string
	httpClient *http.Client
	tokens     TokenProvider
}

func NewClient(httpClient *http.Client, host, apiVersion string, tokens TokenProvider) *Client {
	if host == "" {
		host = "https://api.getjobber.com"
	}
	host = strings.TrimRight(host, "/")
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		host:       host,
		apiVersion: apiVersion,
		httpClient: httpClient,
		tokens:     tokens,
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// Execute posts one GraphQL document with its variables and classifies the
// outcome into the sync error taxonomy. Cursor and filter values always
// travel as variables, never interpolated into the document text.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any) (*Response, error) {
	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+graphqlPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiVersion != "" {
		req.Header.Set("X-JOBBER-GRAPHQL-VERSION", c.apiVersion)
	}
	if c.tokens != nil {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientError{Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{Status: resp.StatusCode, Message: truncate(string(body), 200)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &ThrottleError{}
	case resp.StatusCode >= 500:
		return nil, &TransientError{Err: fmt.Errorf("server error (%d): %s", resp.StatusCode, truncate(string(body), 200))}
	case resp.StatusCode != http.StatusOK:
		return nil, &SchemaError{Message: fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(string(body), 200))}
	}

	var envelope Response
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &SchemaError{Message: err.Error()}
	}

	if err := classifyGraphQLErrors(&envelope); err != nil {
		return nil, err
	}
	return &envelope, nil
}

func classifyGraphQLErrors(envelope *Response) error {
	if len(envelope.Errors) == 0 {
		return nil
	}
	first := envelope.Errors[0]
	code := strings.ToUpper(strings.TrimSpace(first.Extensions.Code))
	switch {
	case code == "THROTTLED":
		throttle := &ThrottleError{}
		if envelope.Extensions != nil && envelope.Extensions.Cost != nil {
			throttle.Status = envelope.Extensions.Cost.ThrottleStatus
			throttle.RequestedCost = envelope.Extensions.Cost.RequestedQueryCost
		}
		return throttle
	case strings.HasPrefix(code, "UNAUTH"):
		return &AuthError{Message: first.Message}
	default:
		return &TransientError{Err: fmt.Errorf("graphql error %s: %s", code, first.Message)}
	}
}

// FetchConnectionPage runs a connection query and unpacks the named top-level
// connection field. The page carries the response's throttle telemetry so the
// walk can pace itself without any ambient state.
func (c *Client) FetchConnectionPage(ctx context.Context, query, field string, first int, after *string) (Page, error) {
	variables := map[string]any{"first": first}
	if after != nil && *after != "" {
		variables["after"] = *after
	}

	envelope, err := c.Execute(ctx, query, variables)
	if err != nil {
		return Page{}, err
	}

	var data map[string]json.RawMessage
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return Page{}, &SchemaError{Message: "data: " + err.Error()}
	}
	rawConn, ok := data[field]
	if !ok {
		return Page{}, &SchemaError{Message: "missing connection field " + field}
	}
	var conn connection
	if err := json.Unmarshal(rawConn, &conn); err != nil {
		return Page{}, &SchemaError{Message: field + ": " + err.Error()}
	}

	page := Page{
		Nodes:       conn.Nodes,
		HasNextPage: conn.PageInfo.HasNextPage,
		EndCursor:   conn.PageInfo.EndCursor,
	}
	if envelope.Extensions != nil && envelope.Extensions.Cost != nil {
		page.Throttle = envelope.Extensions.Cost.ThrottleStatus
		page.RequestedCost = envelope.Extensions.Cost.RequestedQueryCost
	}
	return page, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
