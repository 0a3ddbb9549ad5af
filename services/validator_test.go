package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"powersearch/models"
	"powersearch/utils"
)

func TestValidURL(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"https://www.amazon.com/dp/B001", true},
		{"http://shop.example/p/1", true},
		{"ftp://files.example/x", false},
		{"/relative/path", false},
		{"https://", false},
		{"", false},
		{"::not a url", false},
	}
	for _, tt := range tests {
		if got := ValidURL(tt.raw); got != tt.want {
			t.Errorf("ValidURL(%q) = %v; want %v", tt.raw, got, tt.want)
		}
	}
}

func TestValidateWithoutProbe(t *testing.T) {
	v := NewValidator(utils.NewNopLogger(), ValidatorOptions{})
	in := []models.Listing{
		{Title: "ok", URL: "https://a.example/1"},
		{Title: "bad", URL: "javascript:void(0)"},
		{Title: "ok2", URL: "https://b.example/2"},
	}
	got, dropped := v.Validate(context.Background(), in)
	if dropped != 1 || len(got) != 2 {
		t.Fatalf("got %d kept, %d dropped; want 2 kept, 1 dropped", len(got), dropped)
	}
	if got[0].Title != "ok" || got[1].Title != "ok2" {
		t.Errorf("order not preserved: %v", got)
	}
}

func TestValidateProbeIsFailOpen(t *testing.T) {
	var flakyCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("probe method: got %s, want HEAD", r.Method)
		}
		switch r.URL.Path {
		case "/gone":
			w.WriteHeader(http.StatusGone)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/blocked":
			w.WriteHeader(http.StatusForbidden)
		case "/flaky":
			flakyCalls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	v := NewValidator(utils.NewNopLogger(), ValidatorOptions{
		Probe:   true,
		Retries: 2,
		Client:  srv.Client(),
		Sleep:   func(ctx context.Context, _ time.Duration) error { return ctx.Err() },
	})
	in := []models.Listing{
		{Title: "ok", URL: srv.URL + "/ok"},
		{Title: "gone", URL: srv.URL + "/gone"},
		{Title: "missing", URL: srv.URL + "/missing"},
		{Title: "blocked", URL: srv.URL + "/blocked"},
		{Title: "flaky", URL: srv.URL + "/flaky"},
		{Title: "unreachable", URL: "http://127.0.0.1:1/none"},
	}
	got, dropped := v.Validate(context.Background(), in)

	if dropped != 2 {
		t.Errorf("dropped: got %d, want 2", dropped)
	}
	kept := map[string]bool{}
	for _, l := range got {
		kept[l.Title] = true
	}
	for _, title := range []string{"ok", "blocked", "flaky", "unreachable"} {
		if !kept[title] {
			t.Errorf("%s should be kept", title)
		}
	}
	if n := flakyCalls.Load(); n != 2 {
		t.Errorf("flaky probe attempts: got %d, want 2", n)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestValidateKeepsListingWhenProbePanics(t *testing.T) {
	v := NewValidator(utils.NewNopLogger(), ValidatorOptions{
		Probe:   true,
		Retries: 1,
		Client: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			var headers map[string]string
			headers["x"] = "y"
			return nil, nil
		})},
	})
	in := []models.Listing{{Title: "kept", URL: "https://shop.example/p/1"}}

	got, dropped := v.Validate(context.Background(), in)

	if dropped != 0 || len(got) != 1 || got[0].Title != "kept" {
		t.Errorf("got %d kept, %d dropped; want the listing kept", len(got), dropped)
	}
}
