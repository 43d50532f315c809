package blocklist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchParsesLinesAndSkipsCommentsAndCIDR(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# comment\n10.0.0.1\n\n192.168.1.0/24\n10.0.0.2\n"))
	}))
	defer srv.Close()

	ips, err := Fetch(context.Background(), srv.URL, srv.Client(), nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(ips) != 2 {
		t.Fatalf("expected 2 parsed addresses, got %d: %+v", len(ips), ips)
	}
}

func TestFetchErrorsOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := Fetch(context.Background(), srv.URL, srv.Client(), nil); err == nil {
		t.Fatalf("expected error for non-200 response")
	}
}

func TestRefreshAppliesFetchedSetToStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("10.0.0.1\n"))
	}))
	defer srv.Close()

	store := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Refresh(ctx, srv.URL, 50*time.Millisecond, store, nil)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if store.Len() == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("store was never populated by Refresh")
}
