package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestFetchWritesFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("User-Agent") != "phpx/1.0" {
			t.Errorf("unexpected user agent %q", req.Header.Get("User-Agent"))
		}
		w.Write([]byte("phar bytes"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "nested", "tool.phar")
	if err := New().Fetch(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(data) != "phar bytes" {
		t.Fatalf("unexpected contents %q", data)
	}

	info, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("stat dest: %v", err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Fatal("expected downloaded artifact to be executable")
	}
}

func TestFetchErrorLeavesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "tool.phar")
	if err := New().Fetch(context.Background(), srv.URL, dest); err == nil {
		t.Fatal("expected fetch of 404 to fail")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatal("expected no file at dest after failed fetch")
	}
}
