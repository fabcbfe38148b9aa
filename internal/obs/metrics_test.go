package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                          "/",
		"/metrics":                  "/metrics",
		"/v1/auth/login":            "/v1/auth/login",
		"/v1/auth/login?next=x":     "/v1/auth/login",
		"/v1/org/users":             "/v1/org/users",
		"/v1/accounts/abc":          "/other",
		"/v1/auth/refresh/whatever": "/other",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
