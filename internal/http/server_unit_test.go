package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mohamdbadhe/campus-hub/internal/config"
)

// Router-level failures answer with the same JSON error shape as the
// handlers.
func TestRouterErrorsAreJSON(t *testing.T) {
	router := NewServer(config.Config{}, nil, nil).Router()

	cases := []struct {
		method string
		path   string
		status int
	}{
		{method: http.MethodGet, path: "/register", status: http.StatusMethodNotAllowed},
		{method: http.MethodDelete, path: "/libraries", status: http.StatusMethodNotAllowed},
		{method: http.MethodGet, path: "/no-such-path", status: http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != tc.status {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.path, tc.status, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Fatalf("%s %s: expected JSON content type, got %q", tc.method, tc.path, ct)
		}
		var body struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Message == "" {
			t.Fatalf("%s %s: expected error message body, got %s", tc.method, tc.path, rec.Body.Bytes())
		}
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer abc":   "abc",
		"Bearer  abc ": "abc",
		"Basic abc":    "",
		"abc":          "",
		"":             "",
	}
	for header, expect := range cases {
		if got := bearerToken(header); got != expect {
			t.Fatalf("header %q: expected %q, got %q", header, expect, got)
		}
	}
}

func TestOccupancyPercentage(t *testing.T) {
	cases := []struct {
		occupancy int
		capacity  int
		expect    float64
	}{
		{occupancy: 0, capacity: 100, expect: 0},
		{occupancy: 50, capacity: 100, expect: 50},
		{occupancy: 10, capacity: 30, expect: 33.3},
		{occupancy: 1, capacity: 3, expect: 33.3},
		{occupancy: 2, capacity: 3, expect: 66.7},
		{occupancy: 150, capacity: 100, expect: 150},
		{occupancy: 5, capacity: 0, expect: 0},
	}
	for _, tc := range cases {
		if got := occupancyPercentage(tc.occupancy, tc.capacity); got != tc.expect {
			t.Fatalf("%d/%d: expected %v, got %v", tc.occupancy, tc.capacity, tc.expect, got)
		}
	}
}
