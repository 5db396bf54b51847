package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                              "/",
		"/metrics":                      "/metrics",
		"/v1/boards":                    "/v1/boards",
		"/v1/boards/01ABCDEF":           "/v1/boards/:id",
		"/v1/boards/01ABCDEF/lists":     "/v1/boards/:id/lists",
		"/v1/boards/01ABCDEF/activity":  "/v1/boards/:id/activity",
		"/v1/boards/01ABCDEF/extra":     "/v1/boards/01ABCDEF/extra",
		"/v1/lists/01ABCDEF/cards":      "/v1/lists/:id/cards",
		"/v1/cards/01ABCDEF":            "/v1/cards/:id",
		"/v1/boards/01ABCDEF?depth=all": "/v1/boards/:id",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
