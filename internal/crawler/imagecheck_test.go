package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIsReachableImageByContentType(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("fake"))
	}))
	defer ts.Close()

	ok, contentType := NewImageChecker().IsReachableImage(context.Background(), ts.URL)
	if !ok {
		t.Error("expected image/png response to be accepted")
	}
	if contentType != "image/png" {
		t.Errorf("unexpected content type %q", contentType)
	}
}

func TestIsReachableImageByMagicBytes(t *testing.T) {
	// HEAD lies about the content type; the ranged GET sniff should win.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		if r.Method == http.MethodGet {
			w.Write(append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 100)...))
		}
	}))
	defer ts.Close()

	ok, _ := NewImageChecker().IsReachableImage(context.Background(), ts.URL)
	if !ok {
		t.Error("expected PNG magic bytes to be accepted")
	}
}

func TestIsReachableImageRejectsHTML(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>not an image</body></html>"))
	}))
	defer ts.Close()

	if ok, _ := NewImageChecker().IsReachableImage(context.Background(), ts.URL); ok {
		t.Error("expected HTML response to be rejected")
	}
}

func TestIsReachableImageRejectsErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	if ok, _ := NewImageChecker().IsReachableImage(context.Background(), ts.URL); ok {
		t.Error("expected 403 response to be rejected")
	}

	if ok, _ := NewImageChecker().IsReachableImage(context.Background(), ""); ok {
		t.Error("expected empty URL to be rejected")
	}
}

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\nnull\n```":          "null",
		`{"a":1}`:                 `{"a":1}`,
		"  null  ":                "null",
	}
	for in, want := range cases {
		if got := stripFences(in); got != want {
			t.Errorf("stripFences(%q) = %q, want %q", in, got, want)
		}
	}
}
