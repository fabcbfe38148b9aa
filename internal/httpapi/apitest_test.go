package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"infiagentic.io/internal/auth"
)

// apiClient drives a fully wired handler chain in tests.
type apiClient struct {
	t     *testing.T
	srv   *httptest.Server
	api   *API
	store *auth.MemoryStore
}

func newAPIClient(t *testing.T, opts ...auth.ServiceOption) *apiClient {
	t.Helper()
	codec, err := auth.NewTokenCodec([]byte("0123456789abcdef0123456789abcdef"), nil)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	store := auth.NewMemoryStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := auth.NewService(store, codec, auth.NewMemoryRevocationStore(nil), log, opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	api := New(ReadyProbe{}, "test", false, svc)
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return &apiClient{t: t, srv: srv, api: api, store: store}
}

// do sends a JSON request and decodes the JSON response body into out (when
// out is non-nil and the response has a body).
func (c *apiClient) do(method, path, token string, body, out any) *http.Response {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, c.srv.URL+path, reader)
	if err != nil {
		c.t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.srv.Client().Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("read response body: %v", err)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			c.t.Fatalf("decode response %q: %v", raw, err)
		}
	}
	return resp
}

// register creates an account through the HTTP surface and returns the
// decoded response.
func (c *apiClient) register(email, password, firstName string) authResponse {
	c.t.Helper()
	var out authResponse
	resp := c.do(http.MethodPost, "/v1/auth/register", "", registerRequest{
		Email:     email,
		Password:  password,
		FirstName: firstName,
	}, &out)
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("register %s: status %d", email, resp.StatusCode)
	}
	return out
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}
