package news

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoJSONRetriesServerErrors(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(time.Second, 2, time.Millisecond)
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.DoJSON(context.Background(), "GET", srv.URL, nil, nil, &out); err != nil {
		t.Fatal(err)
	}
	if !out.OK {
		t.Error("response not decoded")
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("made %d attempts, want 3", got)
	}
}

func TestDoJSONExhaustsRetries(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPClient(time.Second, 1, time.Millisecond)
	err := c.DoJSON(context.Background(), "GET", srv.URL, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Errorf("made %d attempts, want 2", got)
	}
}

func TestDoJSONSendsHeadersAndBody(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	var gotContentType, gotCustom string
	var gotBody payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotCustom = r.Header.Get("X-Custom")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewHTTPClient(time.Second, 0, time.Millisecond)
	err := c.DoJSON(context.Background(), "POST", srv.URL, map[string]string{"X-Custom": "yes"}, payload{Name: "n"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if gotCustom != "yes" || gotBody.Name != "n" {
		t.Errorf("header = %q, body = %+v", gotCustom, gotBody)
	}
}
