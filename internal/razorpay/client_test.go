package razorpay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

// newLinksServer serves total records in pages of PageSize and counts the
// requests it sees.
func newLinksServer(t *testing.T, total int, requests *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"description":"Authentication failed"}}`)
			return
		}
		*requests++

		count, _ := strconv.Atoi(r.URL.Query().Get("count"))
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))

		var links []map[string]any
		for i := skip; i < skip+count && i < total; i++ {
			links = append(links, map[string]any{
				"id":     fmt.Sprintf("plink_%04d", i),
				"amount": float64((i + 1) * 100),
				"status": "created",
			})
		}
		if links == nil {
			links = []map[string]any{}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"payment_links": links})
	}))
}

func TestFetchAllPaginationTermination(t *testing.T) {
	requests := 0
	srv := newLinksServer(t, 250, &requests)
	defer srv.Close()

	client := NewClient("key", "secret")
	client.BaseURL = srv.URL
	client.PageDelay = 0

	links, err := client.FetchAll(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}

	// One probe plus pages of 100, 100, 50.
	if got := requests - 1; got != 3 {
		t.Errorf("Expected 3 page requests, got %d", got)
	}
	if len(links) != 250 {
		t.Fatalf("Expected 250 links, got %d", len(links))
	}

	// Original order, no duplicates, no gaps.
	for i, link := range links {
		want := fmt.Sprintf("plink_%04d", i)
		if link["id"] != want {
			t.Fatalf("Record %d: expected id %s, got %v", i, want, link["id"])
		}
	}
}

func TestFetchAllShortFirstPage(t *testing.T) {
	requests := 0
	srv := newLinksServer(t, 7, &requests)
	defer srv.Close()

	client := NewClient("key", "secret")
	client.BaseURL = srv.URL
	client.PageDelay = 0

	links, err := client.FetchAll(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if got := requests - 1; got != 1 {
		t.Errorf("Expected 1 page request, got %d", got)
	}
	if len(links) != 7 {
		t.Errorf("Expected 7 links, got %d", len(links))
	}
}

func TestProbeFailsFastOnBadCredentials(t *testing.T) {
	requests := 0
	srv := newLinksServer(t, 250, &requests)
	defer srv.Close()

	client := NewClient("key", "wrong")
	client.BaseURL = srv.URL
	client.PageDelay = 0

	_, err := client.FetchAll(context.Background(), nil, nil)
	if err == nil {
		t.Fatal("Expected error for bad credentials")
	}

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("Expected UpstreamError, got %T: %v", err, err)
	}
	if upstream.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", upstream.StatusCode)
	}
	if upstream.Body == "" {
		t.Error("Expected response body to be carried in the error")
	}
	// The page loop must never have started.
	if requests != 0 {
		t.Errorf("Expected 0 successful page requests after failed probe, got %d", requests)
	}
}

func TestProbeRejectsUnexpectedResponseShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items": []}`)
	}))
	defer srv.Close()

	client := NewClient("key", "secret")
	client.BaseURL = srv.URL

	if err := client.Probe(context.Background()); err == nil {
		t.Fatal("Expected probe to fail when payment_links field is absent")
	}
}

func TestFetchAllUpstreamErrorMidStream(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			// probe + first full page
			links := make([]map[string]any, 0, PageSize)
			n := PageSize
			if calls == 1 {
				n = 1
			}
			for i := 0; i < n; i++ {
				links = append(links, map[string]any{"id": fmt.Sprintf("plink_%d", i)})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"payment_links": links})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"description":"boom"}}`)
	}))
	defer srv.Close()

	client := NewClient("key", "secret")
	client.BaseURL = srv.URL
	client.PageDelay = 0

	_, err := client.FetchAll(context.Background(), nil, nil)
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("Expected UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", upstream.StatusCode)
	}
	// No retry: exactly one failed request ends the run.
	if calls != 3 {
		t.Errorf("Expected 3 total requests (probe, page, failure), got %d", calls)
	}
}
