package webclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"parkinsight/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger(io.Discard, "ERROR")
	os.Exit(m.Run())
}

func TestGetJSONRetriesOnServerError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c := NewClient()
	c.SetRetryWait(0)

	v, _, err := c.GetJSON(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("want success on third attempt: %v", err)
	}
	if calls != 3 {
		t.Fatalf("want 3 attempts, got %d", calls)
	}
	if flag, _ := v.Get("ok"); !flag.AsBool() {
		t.Fatalf("unexpected payload: %v", v)
	}
}

func TestGetJSONGivesUpAfterMaxRetries(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient()
	c.SetRetryWait(0)

	if _, _, err := c.GetJSON(context.Background(), srv.URL, nil); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Fatalf("want 3 attempts, got %d", calls)
	}
}

func TestGetJSONNonJSONKeepsRawBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := NewClient()
	c.SetRetryWait(0)

	v, raw, err := c.GetJSON(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if !v.IsNull() {
		t.Fatalf("want null value, got %v", v)
	}
	if string(raw) != "<html>not json</html>" {
		t.Fatalf("raw body must be returned: %q", raw)
	}
}

func TestPostFormSetsContentType(t *testing.T) {
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient()
	c.SetRetryWait(0)

	if _, _, err := c.PostForm(context.Background(), srv.URL, "a=1", nil); err != nil {
		t.Fatalf("post error: %v", err)
	}
	if contentType != "application/x-www-form-urlencoded; charset=UTF-8" {
		t.Fatalf("unexpected content type: %q", contentType)
	}
}
