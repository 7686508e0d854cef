package drive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

// pagedServer serves n records split across pages of the given size,
// driven by continuation tokens.
func pagedServer(t *testing.T, n, pageSize int, failOnPage int) (*httptest.Server, *int) {
	t.Helper()
	requests := 0

	handler := func(w http.ResponseWriter, r *http.Request) {
		requests++

		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		page := 0
		if tok := r.URL.Query().Get("pageToken"); tok != "" {
			fmt.Sscanf(tok, "page-%d", &page)
		}

		if failOnPage >= 0 && page == failOnPage {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		start := page * pageSize
		end := start + pageSize
		if end > n {
			end = n
		}

		resp := listResponse{}
		for i := start; i < end; i++ {
			resp.Files = append(resp.Files, FileRecord{
				ID:       fmt.Sprintf("id-%d", i),
				Name:     fmt.Sprintf("file-%d.mp3", i),
				MimeType: "audio/mpeg",
			})
		}
		if end < n {
			resp.NextPageToken = fmt.Sprintf("page-%d", page+1)
		}
		json.NewEncoder(w).Encode(resp)
	}

	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func newTestClient(baseURL string) *Client {
	c := NewClient(zerolog.Nop())
	c.BaseURL = baseURL
	return c
}

func TestFetchAllFollowsContinuationTokens(t *testing.T) {
	const n, pageSize = 25, 10
	srv, requests := pagedServer(t, n, pageSize, -1)
	c := newTestClient(srv.URL)

	records, err := c.FetchAll(context.Background(), "tok", "q")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(records) != n {
		t.Fatalf("Expected %d records, got %d", n, len(records))
	}
	if *requests != 3 {
		t.Errorf("Expected 3 page requests, got %d", *requests)
	}

	seen := make(map[string]bool)
	for _, rec := range records {
		if seen[rec.ID] {
			t.Errorf("Duplicate record %s", rec.ID)
		}
		seen[rec.ID] = true
	}
}

func TestFetchAllSinglePage(t *testing.T) {
	srv, requests := pagedServer(t, 4, 10, -1)
	c := newTestClient(srv.URL)

	records, err := c.FetchAll(context.Background(), "tok", "q")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(records) != 4 || *requests != 1 {
		t.Errorf("Expected 4 records in 1 request, got %d in %d", len(records), *requests)
	}
}

func TestFetchAllMidLoopFailureReturnsNothing(t *testing.T) {
	srv, _ := pagedServer(t, 25, 10, 1) // second page fails
	c := newTestClient(srv.URL)

	records, err := c.FetchAll(context.Background(), "tok", "q")
	if err == nil {
		t.Fatal("Expected an error")
	}
	var te *TransportError
	if !errors.As(err, &te) || te.Status != http.StatusServiceUnavailable {
		t.Errorf("Expected TransportError 503, got %v", err)
	}
	if records != nil {
		t.Errorf("Expected no partial records, got %d", len(records))
	}
}

func TestFetchAllUnauthorized(t *testing.T) {
	srv, _ := pagedServer(t, 5, 10, -1)
	c := newTestClient(srv.URL)

	_, err := c.FetchAll(context.Background(), "wrong-token", "q")
	if !IsAuthExpired(err) {
		t.Fatalf("Expected auth-expired, got %v", err)
	}
}

func TestFetchAllWithoutCredential(t *testing.T) {
	srv, requests := pagedServer(t, 5, 10, -1)
	c := newTestClient(srv.URL)

	if _, err := c.FetchAll(context.Background(), "", "q"); err != ErrNoCredential {
		t.Fatalf("Expected ErrNoCredential, got %v", err)
	}
	if *requests != 0 {
		t.Error("Expected no network traffic without a credential")
	}
}

func TestListChildrenBuildsMembershipQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		json.NewEncoder(w).Encode(listResponse{})
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(srv.URL)

	if _, err := c.ListChildren(context.Background(), "tok", []string{"p1", "p2"}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := "('p1' in parents or 'p2' in parents) and trashed = false"
	if gotQuery != want {
		t.Errorf("Expected query %q, got %q", want, gotQuery)
	}
}

func TestListChildrenEmptyParents(t *testing.T) {
	c := newTestClient("http://unused")
	records, err := c.ListChildren(context.Background(), "tok", nil)
	if err != nil || records != nil {
		t.Errorf("Expected empty no-op, got %v, %v", records, err)
	}
}
