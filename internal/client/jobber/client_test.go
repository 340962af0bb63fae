package jobber

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) AccessToken(ctx context.Context) (string, error) {
	return s.token, s.err
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(server.Client(), server.URL, "2023-11-15", staticTokens{token: "test-token"})
	return client, server
}

func TestExecute_RequestShape(t *testing.T) {
	var captured struct {
		path, auth, version, contentType string
		body                             graphqlRequest
	}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		captured.version = r.Header.Get("X-JOBBER-GRAPHQL-VERSION")
		captured.contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&captured.body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"data":{}}`))
	})

	_, err := client.Execute(context.Background(), "query { x }", map[string]any{"first": 50, "after": "abc"})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if captured.path != "/api/graphql" {
		t.Fatalf("path=%q want /api/graphql", captured.path)
	}
	if captured.auth != "Bearer test-token" {
		t.Fatalf("auth=%q", captured.auth)
	}
	if captured.version != "2023-11-15" {
		t.Fatalf("version header=%q", captured.version)
	}
	if captured.contentType != "application/json" {
		t.Fatalf("content type=%q", captured.contentType)
	}
	if captured.body.Query != "query { x }" {
		t.Fatalf("query=%q", captured.body.Query)
	}
	// Cursor and page size travel as variables, never inlined in the document.
	if captured.body.Variables["after"] != "abc" {
		t.Fatalf("variables=%v", captured.body.Variables)
	}
}

func TestExecute_StatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"unauthorized", http.StatusUnauthorized, func(t *testing.T, err error) {
			var authErr *AuthError
			if !errors.As(err, &authErr) || authErr.Status != http.StatusUnauthorized {
				t.Fatalf("err=%v want AuthError 401", err)
			}
		}},
		{"forbidden", http.StatusForbidden, func(t *testing.T, err error) {
			if !IsAuthError(err) {
				t.Fatalf("err=%v want AuthError", err)
			}
		}},
		{"too many requests", http.StatusTooManyRequests, func(t *testing.T, err error) {
			if !IsThrottleError(err) {
				t.Fatalf("err=%v want ThrottleError", err)
			}
		}},
		{"server error", http.StatusBadGateway, func(t *testing.T, err error) {
			var transient *TransientError
			if !errors.As(err, &transient) {
				t.Fatalf("err=%v want TransientError", err)
			}
		}},
		{"unexpected status", http.StatusTeapot, func(t *testing.T, err error) {
			var schema *SchemaError
			if !errors.As(err, &schema) {
				t.Fatalf("err=%v want SchemaError", err)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := client.Execute(context.Background(), "query { x }", nil)
			if err == nil {
				t.Fatalf("expected error")
			}
			tt.check(t, err)
		})
	}
}

func TestExecute_ThrottledGraphQLErrorCarriesTelemetry(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"errors": [{"message": "Throttled", "extensions": {"code": "THROTTLED"}}],
			"extensions": {"cost": {
				"requestedQueryCost": 2000,
				"throttleStatus": {"maximumAvailable": 10000, "currentlyAvailable": 400, "restoreRate": 500}
			}}
		}`))
	})

	_, err := client.Execute(context.Background(), "query { x }", nil)
	var throttle *ThrottleError
	if !errors.As(err, &throttle) {
		t.Fatalf("err=%v want ThrottleError", err)
	}
	if throttle.RequestedCost != 2000 {
		t.Fatalf("requestedCost=%v want 2000", throttle.RequestedCost)
	}
	if throttle.Status == nil || throttle.Status.RestoreRate != 500 || throttle.Status.CurrentlyAvailable != 400 {
		t.Fatalf("status=%+v", throttle.Status)
	}
}

func TestExecute_GraphQLErrorClassification(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		check func(err error) bool
	}{
		{"unauthenticated", "UNAUTHENTICATED", IsAuthError},
		{"unauthorized code", "UNAUTHORIZED", IsAuthError},
		{"anything else", "INTERNAL_SERVER_ERROR", func(err error) bool {
			var transient *TransientError
			return errors.As(err, &transient)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				resp := `{"errors": [{"message": "nope", "extensions": {"code": "` + tt.code + `"}}]}`
				w.Write([]byte(resp))
			})
			_, err := client.Execute(context.Background(), "query { x }", nil)
			if err == nil || !tt.check(err) {
				t.Fatalf("err=%v failed classification", err)
			}
		})
	}
}

func TestExecute_MalformedBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>gateway error</html>`))
	})
	_, err := client.Execute(context.Background(), "query { x }", nil)
	var schema *SchemaError
	if !errors.As(err, &schema) {
		t.Fatalf("err=%v want SchemaError", err)
	}
}

func TestExecute_TokenProviderFailurePropagates(t *testing.T) {
	served := false
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		served = true
	})
	client.tokens = staticTokens{err: &AuthError{Message: "no credentials"}}

	_, err := client.Execute(context.Background(), "query { x }", nil)
	if !IsAuthError(err) {
		t.Fatalf("err=%v want AuthError", err)
	}
	if served {
		t.Fatalf("request must not be sent without a token")
	}
}

func TestFetchConnectionPage(t *testing.T) {
	var gotVars map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotVars = req.Variables
		w.Write([]byte(`{
			"data": {"quotes": {
				"nodes": [{"id": "q1"}, {"id": "q2"}],
				"pageInfo": {"hasNextPage": true, "endCursor": "cursor-xyz"}
			}},
			"extensions": {"cost": {
				"requestedQueryCost": 120,
				"throttleStatus": {"maximumAvailable": 10000, "currentlyAvailable": 8000, "restoreRate": 500}
			}}
		}`))
	})

	after := "prev-cursor"
	page, err := client.FetchConnectionPage(context.Background(), QuotesQuery, QuotesField, 50, &after)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if gotVars["first"] != float64(50) || gotVars["after"] != "prev-cursor" {
		t.Fatalf("variables=%v", gotVars)
	}
	if len(page.Nodes) != 2 {
		t.Fatalf("nodes=%d want 2", len(page.Nodes))
	}
	if !page.HasNextPage || page.EndCursor == nil || *page.EndCursor != "cursor-xyz" {
		t.Fatalf("pageInfo=%v/%v", page.HasNextPage, page.EndCursor)
	}
	if page.Throttle == nil || page.Throttle.CurrentlyAvailable != 8000 {
		t.Fatalf("throttle=%+v", page.Throttle)
	}
	if page.RequestedCost != 120 {
		t.Fatalf("requestedCost=%v", page.RequestedCost)
	}
}

func TestFetchConnectionPage_FirstPageOmitsAfter(t *testing.T) {
	var gotVars map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotVars = req.Variables
		w.Write([]byte(`{"data": {"requests": {"nodes": [], "pageInfo": {"hasNextPage": false}}}}`))
	})

	page, err := client.FetchConnectionPage(context.Background(), RequestsQuery, RequestsField, 25, nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, ok := gotVars["after"]; ok {
		t.Fatalf("after variable sent on first page: %v", gotVars)
	}
	if len(page.Nodes) != 0 || page.HasNextPage {
		t.Fatalf("page=%+v want empty final page", page)
	}
}

func TestFetchConnectionPage_MissingField(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"somethingElse": {}}}`))
	})
	_, err := client.FetchConnectionPage(context.Background(), JobsQuery, JobsField, 50, nil)
	var schema *SchemaError
	if !errors.As(err, &schema) {
		t.Fatalf("err=%v want SchemaError", err)
	}
}
