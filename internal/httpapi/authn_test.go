package httpapi

import (
	"net/http"
	"testing"
)

func TestWithAuthRejectsMissingToken(t *testing.T) {
	c := newAPIClient(t)

	var fail errorResponse
	resp := c.do(http.MethodGet, "/v1/auth/me", "", nil, &fail)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if fail.Error != "missing bearer token" {
		t.Fatalf("error = %q", fail.Error)
	}
	if fail.RequestID == "" {
		t.Fatal("error body missing request_id")
	}
}

func TestWithAuthRejectsWrongScheme(t *testing.T) {
	c := newAPIClient(t)

	req, err := http.NewRequest(http.MethodGet, c.srv.URL+"/v1/auth/me", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Basic YWxpY2U6cHc=")
	resp, err := c.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestWithAuthRejectsGarbageToken(t *testing.T) {
	c := newAPIClient(t)

	var fail errorResponse
	resp := c.do(http.MethodGet, "/v1/auth/me", "not-a-token", nil, &fail)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if fail.Error != "could not validate credentials" {
		t.Fatalf("error = %q", fail.Error)
	}
}

func TestWithAuthInactiveAccount(t *testing.T) {
	c := newAPIClient(t)
	reg := c.register("alice@example.com", "Secretpw1", "Alice")
	c.store.Deactivate(reg.User.ID)

	var fail errorResponse
	resp := c.do(http.MethodGet, "/v1/auth/me", reg.Tokens.AccessToken, nil, &fail)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	if fail.Error != "user account is inactive" {
		t.Fatalf("error = %q", fail.Error)
	}
}

func TestPublicPathsSkipAuth(t *testing.T) {
	c := newAPIClient(t)

	for _, path := range []string{"/healthz", "/readyz", "/v1/info", "/openapi.yaml", "/metrics"} {
		resp := c.do(http.MethodGet, path, "", nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s without token: status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestPreflightSkipsAuth(t *testing.T) {
	c := newAPIClient(t)

	req, err := http.NewRequest(http.MethodOptions, c.srv.URL+"/v1/auth/me", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := c.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", false},
		{"bearer abc.def.ghi", "abc.def.ghi", false},
		{"  Bearer   abc  ", "abc", false},
		{"", "", true},
		{"Bearer ", "", true},
		{"Basic abc", "", true},
		{"abc", "", true},
	}
	for _, tc := range cases {
		got, err := extractBearerToken(tc.header)
		if tc.wantErr != (err != nil) {
			t.Fatalf("extractBearerToken(%q): err = %v, wantErr = %v", tc.header, err, tc.wantErr)
		}
		if got != tc.want {
			t.Fatalf("extractBearerToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}
