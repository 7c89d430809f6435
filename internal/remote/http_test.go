package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rcliao/quotesync/internal/model"
)

// fakeResolver knows a fixed set of remote ids and mints sequential local ids
// for the rest.
type fakeResolver struct {
	mu    sync.Mutex
	known map[string]model.Quote
	next  int
}

func (r *fakeResolver) UpsertByRemoteID(remoteID string, f model.Fields) (model.Quote, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.known[remoteID]; ok {
		return q, true
	}
	r.next++
	return model.Quote{
		LocalID:   "local-new-" + strconv.Itoa(r.next),
		RemoteID:  remoteID,
		Text:      f.Text,
		Category:  f.Category,
		UpdatedAt: f.UpdatedAt,
		Origin:    f.Origin,
	}, false
}

func fixedClock() time.Time {
	return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
}

func TestHTTPFetch(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/posts" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotQuery = map[string]string{
			"userId": r.URL.Query().Get("userId"),
			"_limit": r.URL.Query().Get("_limit"),
			"_start": r.URL.Query().Get("_start"),
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[
			{"id": 81, "userId": 9, "title": "  first title  ", "body": "ignored"},
			{"id": 82, "userId": 9, "title": "", "body": "from body"},
			{"id": 83, "userId": 9, "title": "  ", "body": "  "}
		]`)
	}))
	defer srv.Close()

	resolver := &fakeResolver{known: map[string]model.Quote{
		"jp-81": {LocalID: "local-existing", RemoteID: "jp-81", Text: "old", Category: "Server"},
	}}
	a := NewHTTPAdapter(HTTPConfig{BaseURL: srv.URL}, resolver, WithClock(fixedClock))

	quotes, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if gotQuery["userId"] != "9" || gotQuery["_limit"] != "5" {
		t.Errorf("unexpected query: %v", gotQuery)
	}
	if start, _ := strconv.Atoi(gotQuery["_start"]); start < 0 || start >= 5 {
		t.Errorf("start offset out of window: %v", gotQuery["_start"])
	}

	if len(quotes) != 2 {
		t.Fatalf("expected 2 quotes, got %d: %+v", len(quotes), quotes)
	}

	first := quotes[0]
	if first.LocalID != "local-existing" {
		t.Errorf("expected existing local id to be reused, got %q", first.LocalID)
	}
	if first.RemoteID != "jp-81" || first.Text != "first title" || first.Category != "Server" {
		t.Errorf("unexpected mapping: %+v", first)
	}
	if first.Origin != model.OriginRemote || !first.UpdatedAt.Equal(fixedClock()) {
		t.Errorf("expected remote origin stamped by clock, got %+v", first)
	}

	if quotes[1].Text != "from body" || quotes[1].RemoteID != "jp-82" {
		t.Errorf("expected body fallback, got %+v", quotes[1])
	}
	if quotes[1].LocalID == "" {
		t.Error("expected a fresh local id for an unknown remote id")
	}
}

func TestHTTPFetch_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := NewHTTPAdapter(HTTPConfig{BaseURL: srv.URL}, &fakeResolver{})
	_, err := a.Fetch(context.Background())
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("expected ErrStatus, got %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusServiceUnavailable || se.Op != "fetch" {
		t.Errorf("unexpected status error: %+v", se)
	}
}

func TestHTTPFetch_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"not": "an array"}`)
	}))
	defer srv.Close()

	a := NewHTTPAdapter(HTTPConfig{BaseURL: srv.URL}, &fakeResolver{})
	if _, err := a.Fetch(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestHTTPFetch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	a := NewHTTPAdapter(HTTPConfig{BaseURL: srv.URL}, &fakeResolver{})
	if _, err := a.Fetch(ctx); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestHTTPPush(t *testing.T) {
	var got struct {
		UserID int    `json:"userId"`
		Title  string `json:"title"`
		Body   string `json:"body"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/posts" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id": 101}`)
	}))
	defer srv.Close()

	a := NewHTTPAdapter(HTTPConfig{BaseURL: srv.URL}, &fakeResolver{})
	q := model.Quote{LocalID: "local-1", Text: "kept", Category: "Life", UpdatedAt: fixedClock()}

	id, err := a.Push(context.Background(), q)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if id != "jp-101" {
		t.Errorf("expected jp-101, got %q", id)
	}
	if got.UserID != 9 || got.Title != "Life" {
		t.Errorf("unexpected envelope: %+v", got)
	}

	var inner pushBody
	if err := json.Unmarshal([]byte(got.Body), &inner); err != nil {
		t.Fatalf("decode inner body: %v", err)
	}
	if inner.ID != "local-1" || inner.Text != "kept" || inner.Category != "Life" {
		t.Errorf("unexpected inner body: %+v", inner)
	}
}

func TestHTTPPush_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewHTTPAdapter(HTTPConfig{BaseURL: srv.URL}, &fakeResolver{})
	if _, err := a.Push(context.Background(), model.Quote{Text: "a", Category: "b"}); !errors.Is(err, ErrStatus) {
		t.Errorf("expected ErrStatus, got %v", err)
	}
}

func TestHTTPPush_NoIDInResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewHTTPAdapter(HTTPConfig{BaseURL: srv.URL}, &fakeResolver{})
	id, err := a.Push(context.Background(), model.Quote{RemoteID: "jp-3", Text: "a", Category: "b"})
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if id != "jp-3" {
		t.Errorf("expected existing remote id, got %q", id)
	}
}
