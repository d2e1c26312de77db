package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/northwind/orders.csv", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("orderID,customerID\n10248,VINET\n"))
	})
	mux.HandleFunc("/northwind/empty.csv", func(w http.ResponseWriter, r *http.Request) {})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRunDownloadsAndValidates(t *testing.T) {
	srv := newServer(t)
	dataDir := filepath.Join(t.TempDir(), "data", "spreadsheets")

	d := New(Options{BaseURL: srv.URL + "/northwind/", Files: []string{"orders.csv"}, DataDir: dataDir})
	results, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 || results[0].Size == 0 {
		t.Fatalf("unexpected results %+v", results)
	}

	data, err := os.ReadFile(filepath.Join(dataDir, "orders.csv"))
	if err != nil || len(data) == 0 {
		t.Fatalf("expected downloaded file: %v", err)
	}

	entries, _ := os.ReadDir(dataDir)
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestRunFailsOnHTTPError(t *testing.T) {
	srv := newServer(t)
	dataDir := t.TempDir()

	d := New(Options{BaseURL: srv.URL + "/northwind/", Files: []string{"missing.csv"}, DataDir: dataDir})
	if _, err := d.Run(context.Background()); err == nil {
		t.Fatal("expected error for 404")
	}
	if _, err := os.Stat(filepath.Join(dataDir, "missing.csv")); !os.IsNotExist(err) {
		t.Error("failed download must not leave a file")
	}
}

func TestValidateRejectsEmptyFile(t *testing.T) {
	srv := newServer(t)
	d := New(Options{BaseURL: srv.URL + "/northwind/", Files: []string{"empty.csv"}, DataDir: t.TempDir()})

	_, err := d.Run(context.Background())
	if !errors.Is(err, ErrMissingFile) {
		t.Fatalf("expected ErrMissingFile, got %v", err)
	}
}
