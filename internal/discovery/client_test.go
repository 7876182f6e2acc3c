package discovery_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"clipmill/internal/discovery"
)

const searchBody = `{
  "items": [
    {"id": {"videoId": "abc"}, "snippet": {"title": "MIH lecture", "channelTitle": "Dental", "publishedAt": "2026-01-01T00:00:00Z"}},
    {"id": {"videoId": "def"}, "snippet": {"title": "Another talk", "channelTitle": "Dental", "publishedAt": "2026-01-02T00:00:00Z"}},
    {"id": {"videoId": "abc"}, "snippet": {"title": "Duplicate entry", "channelTitle": "Dental", "publishedAt": "2026-01-03T00:00:00Z"}},
    {"id": {}, "snippet": {"title": "Channel result, no video id"}}
  ]
}`

func TestSearchDeduplicatesByID(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		if r.URL.Path != "/search" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchBody))
	}))
	defer server.Close()

	client, err := discovery.New("key", server.URL, discovery.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	videos, err := client.Search(context.Background(), "mih lecture", 25)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if gotQuery != "mih lecture" {
		t.Fatalf("expected query forwarded, got %q", gotQuery)
	}
	if len(videos) != 2 {
		t.Fatalf("expected 2 unique videos, got %d: %v", len(videos), videos)
	}
	if videos[0].ID != "abc" || videos[0].Title != "MIH lecture" {
		t.Fatalf("expected first occurrence kept, got %+v", videos[0])
	}
}

func TestSearchDropsVideosBelowMinDuration(t *testing.T) {
	var gotIDs string
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "items": [
    {"id": {"videoId": "long"}, "snippet": {"title": "Full lecture"}},
    {"id": {"videoId": "short"}, "snippet": {"title": "Teaser"}},
    {"id": {"videoId": "unknown"}, "snippet": {"title": "No duration reported"}},
    {"id": {"videoId": "garbled"}, "snippet": {"title": "Bad duration"}}
  ]
}`))
	})
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		gotIDs = r.URL.Query().Get("id")
		if part := r.URL.Query().Get("part"); part != "contentDetails" {
			http.Error(w, "wrong part: "+part, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "items": [
    {"id": "long", "contentDetails": {"duration": "PT1H2M3S"}},
    {"id": "short", "contentDetails": {"duration": "PT4M59S"}},
    {"id": "garbled", "contentDetails": {"duration": "1234"}}
  ]
}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := discovery.New("key", server.URL,
		discovery.WithHTTPClient(server.Client()), discovery.WithMinDuration(300))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	videos, err := client.Search(context.Background(), "mih lecture", 25)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if gotIDs != "long,short,unknown,garbled" {
		t.Fatalf("expected one batched duration lookup, got id=%q", gotIDs)
	}
	got := make([]string, 0, len(videos))
	for _, video := range videos {
		got = append(got, video.ID)
	}
	want := []string{"long", "unknown", "garbled"}
	if len(got) != len(want) {
		t.Fatalf("expected videos %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected videos %v, got %v", want, got)
		}
	}
}

func TestSearchSkipsDurationLookupWhenDisabled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected request to %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchBody))
	}))
	defer server.Close()

	client, err := discovery.New("key", server.URL, discovery.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	videos, err := client.Search(context.Background(), "mih lecture", 25)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("expected 2 videos, got %d", len(videos))
	}
}

func TestSearchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "quota"}`, http.StatusForbidden)
	}))
	defer server.Close()

	client, err := discovery.New("key", server.URL, discovery.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.Search(context.Background(), "anything", 5); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := discovery.New("", "https://example.com"); err == nil {
		t.Fatal("expected error for missing api key")
	}
	if _, err := discovery.New("key", " "); err == nil {
		t.Fatal("expected error for missing base url")
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	client, err := discovery.New("key", "https://example.com")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.Search(context.Background(), "  ", 5); err == nil {
		t.Fatal("expected error for empty query")
	}
}
