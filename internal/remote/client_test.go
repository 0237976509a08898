package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sha1n/ruleflat/internal/domain"
)

// contentsServer serves a GitHub-style contents listing per folder and raw file bodies.
type contentsServer struct {
	*httptest.Server
	folders map[string][]string // folder -> file names
	bodies  map[string]string   // folder/name -> body

	// exhausted makes listings report a spent API rate limit
	exhausted bool
	rawHits   atomic.Int32
}

func newContentsServer(t *testing.T) *contentsServer {
	t.Helper()
	s := &contentsServer{
		folders: make(map[string][]string),
		bodies:  make(map[string]string),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

func (s *contentsServer) addFile(folder, name, body string) {
	s.folders[folder] = append(s.folders[folder], name)
	s.bodies[folder+"/"+name] = body
}

func (s *contentsServer) endpoint() string {
	return s.URL + "/repos/org/repo/contents/sing-box"
}

func (s *contentsServer) handle(w http.ResponseWriter, r *http.Request) {
	if rest, ok := strings.CutPrefix(r.URL.Path, "/raw/"); ok {
		s.rawHits.Add(1)
		body, found := s.bodies[rest]
		if !found {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, body)
		return
	}

	folder, ok := strings.CutPrefix(r.URL.Path, "/repos/org/repo/contents/sing-box/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	names, found := s.folders[folder]
	if !found {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"Not Found"}`)
		return
	}

	entries := make([]map[string]any, 0, len(names))
	for _, name := range names {
		entries = append(entries, map[string]any{
			"name":         name,
			"type":         "file",
			"download_url": fmt.Sprintf("%s/raw/%s/%s", s.URL, folder, name),
		})
	}
	if s.exhausted {
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), Options{
		Endpoint:  endpoint,
		Extension: ".json",
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func statusOf(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

func TestNewClient_InvalidEndpoint(t *testing.T) {
	_, err := NewClient(context.Background(), Options{Endpoint: "/relative/path"})
	if err == nil {
		t.Error("Expected error for relative endpoint")
	}
}

func TestNewClient_WithToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, "[]")
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), Options{
		Endpoint:  srv.URL + "/contents",
		Extension: ".json",
		Token:     "ghp_test",
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if _, err := c.List(context.Background(), "domainset"); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if gotAuth != "Bearer ghp_test" {
		t.Errorf("Authorization = %q, want 'Bearer ghp_test'", gotAuth)
	}
}

func TestClient_FolderURL(t *testing.T) {
	c := newTestClient(t, "https://api.example.com/contents/sing-box/")

	got := c.FolderURL("non_ip")
	if got != "https://api.example.com/contents/sing-box/non_ip" {
		t.Errorf("FolderURL = %q", got)
	}
}

func TestClient_List(t *testing.T) {
	srv := newContentsServer(t)
	srv.addFile("domainset", "reject.json", "{}")
	srv.addFile("domainset", "README.md", "# readme")
	srv.addFile("domainset", "cdn.json", "{}")
	c := newTestClient(t, srv.endpoint())

	files, err := c.List(context.Background(), "domainset")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("Expected 2 rule files, got %d: %+v", len(files), files)
	}
	if files[0].Name != "reject.json" || files[1].Name != "cdn.json" {
		t.Errorf("Unexpected files: %+v", files)
	}
	if !strings.HasSuffix(files[0].DownloadURL, "/raw/domainset/reject.json") {
		t.Errorf("Unexpected download URL: %s", files[0].DownloadURL)
	}
}

func TestClient_List_SkipsDirectoriesAndBadNames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[
			{"name": "nested.json", "type": "dir"},
			{"name": ".json", "type": "file", "download_url": "http://x/.json"},
			{"name": "ok.json", "type": "file", "download_url": "http://x/ok.json"},
			{"name": "untyped.json", "download_url": "http://x/untyped.json"}
		]`)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL+"/contents")

	files, err := c.List(context.Background(), "folder")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(files) != 2 || files[0].Name != "ok.json" || files[1].Name != "untyped.json" {
		t.Errorf("Unexpected files: %+v", files)
	}
}

func TestClient_List_NotFound(t *testing.T) {
	srv := newContentsServer(t)
	c := newTestClient(t, srv.endpoint())

	_, err := c.List(context.Background(), "missing")
	if err == nil {
		t.Fatal("Expected error for missing folder")
	}
	if !errors.Is(err, ErrListing) {
		t.Errorf("Expected ErrListing, got: %v", err)
	}
	if statusOf(err) != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", statusOf(err))
	}
}

func TestClient_List_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"name": "not-a-list"}`)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL+"/contents")

	_, err := c.List(context.Background(), "folder")
	if err == nil {
		t.Fatal("Expected error for malformed listing")
	}
	if !errors.Is(err, ErrListing) {
		t.Errorf("Expected ErrListing, got: %v", err)
	}
}

func TestClient_List_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL + "/contents"
	srv.Close()
	c := newTestClient(t, endpoint)

	_, err := c.List(context.Background(), "folder")
	if !errors.Is(err, ErrListing) {
		t.Errorf("Expected ErrListing, got: %v", err)
	}
	if statusOf(err) != 0 {
		t.Errorf("Expected no status code for transport error, got %d", statusOf(err))
	}
}

func TestClient_Fetch(t *testing.T) {
	srv := newContentsServer(t)
	srv.addFile("domainset", "reject.json", `{"rules":[]}`)
	c := newTestClient(t, srv.endpoint())
	destDir := filepath.Join(t.TempDir(), "domainset")

	files, err := c.List(context.Background(), "domainset")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if err := c.Fetch(context.Background(), files[0], destDir); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(destDir, "reject.json"))
	if err != nil {
		t.Fatalf("Failed to read downloaded file: %v", err)
	}
	if string(data) != `{"rules":[]}` {
		t.Errorf("Unexpected content: %s", data)
	}
}

func TestClient_Fetch_Overwrites(t *testing.T) {
	srv := newContentsServer(t)
	srv.addFile("non_ip", "reject.json", "new")
	c := newTestClient(t, srv.endpoint())
	destDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(destDir, "reject.json"), []byte("old content that is longer"), 0644); err != nil {
		t.Fatalf("Failed to seed file: %v", err)
	}

	file := srvFile(srv, "non_ip", "reject.json")
	if err := c.Fetch(context.Background(), file, destDir); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	data, _ := os.ReadFile(filepath.Join(destDir, "reject.json"))
	if string(data) != "new" {
		t.Errorf("Expected file to be overwritten, got %q", data)
	}
}

func TestClient_Fetch_FailureKeepsExistingFile(t *testing.T) {
	srv := newContentsServer(t)
	c := newTestClient(t, srv.endpoint())
	destDir := t.TempDir()
	existing := filepath.Join(destDir, "reject.json")

	if err := os.WriteFile(existing, []byte("previous"), 0644); err != nil {
		t.Fatalf("Failed to seed file: %v", err)
	}

	err := c.Fetch(context.Background(), srvFile(srv, "non_ip", "reject.json"), destDir)
	if !errors.Is(err, ErrDownload) {
		t.Fatalf("Expected ErrDownload, got: %v", err)
	}
	if statusOf(err) != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", statusOf(err))
	}

	data, _ := os.ReadFile(existing)
	if string(data) != "previous" {
		t.Errorf("Expected previous content to survive, got %q", data)
	}

	entries, _ := os.ReadDir(destDir)
	if len(entries) != 1 {
		t.Errorf("Expected temp file cleanup, found %d entries", len(entries))
	}
}

func TestClient_Fetch_MissingDownloadURL(t *testing.T) {
	c := newTestClient(t, "https://api.example.com/contents")

	err := c.Fetch(context.Background(), srvFileNoURL("x.json"), t.TempDir())
	if !errors.Is(err, ErrDownload) {
		t.Errorf("Expected ErrDownload, got: %v", err)
	}
}

func TestClient_DownloadFolder(t *testing.T) {
	srv := newContentsServer(t)
	srv.addFile("domainset", "a.json", "A")
	srv.addFile("domainset", "b.json", "B")
	c := newTestClient(t, srv.endpoint())
	destDir := filepath.Join(t.TempDir(), "domainset")

	files, err := c.DownloadFolder(context.Background(), "domainset", destDir)
	if err != nil {
		t.Fatalf("DownloadFolder failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("Expected 2 files, got %d", len(files))
	}

	for name, want := range map[string]string{"a.json": "A", "b.json": "B"} {
		data, err := os.ReadFile(filepath.Join(destDir, name))
		if err != nil {
			t.Fatalf("Failed to read %s: %v", name, err)
		}
		if string(data) != want {
			t.Errorf("%s content = %q, want %q", name, data, want)
		}
	}
}

func TestClient_DownloadFolder_ExhaustedAPIRateLimit(t *testing.T) {
	srv := newContentsServer(t)
	srv.exhausted = true
	srv.addFile("domainset", "reject.json", `{"rules":[]}`)
	c := newTestClient(t, srv.endpoint())
	destDir := filepath.Join(t.TempDir(), "domainset")

	files, err := c.DownloadFolder(context.Background(), "domainset", destDir)
	if err != nil {
		t.Fatalf("DownloadFolder failed: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("Expected 1 file, got %d", len(files))
	}
	if hits := srv.rawHits.Load(); hits != 1 {
		t.Errorf("Expected 1 raw download request, got %d", hits)
	}
	if _, err := os.Stat(filepath.Join(destDir, "reject.json")); err != nil {
		t.Errorf("Expected downloaded file, got: %v", err)
	}
}

func TestClient_DownloadFolder_ListingFailure(t *testing.T) {
	srv := newContentsServer(t)
	c := newTestClient(t, srv.endpoint())
	destDir := filepath.Join(t.TempDir(), "missing")

	_, err := c.DownloadFolder(context.Background(), "missing", destDir)
	if !errors.Is(err, ErrListing) {
		t.Fatalf("Expected ErrListing, got: %v", err)
	}
	if _, statErr := os.Stat(destDir); !os.IsNotExist(statErr) {
		t.Error("Expected no destination directory after listing failure")
	}
}

func srvFile(srv *contentsServer, folder, name string) domain.RemoteFile {
	return domain.RemoteFile{Name: name, DownloadURL: fmt.Sprintf("%s/raw/%s/%s", srv.URL, folder, name)}
}

func srvFileNoURL(name string) domain.RemoteFile {
	return domain.RemoteFile{Name: name}
}

func TestClient_DownloadFolder_EmptyListingCreatesDir(t *testing.T) {
	srv := newContentsServer(t)
	srv.folders["empty"] = nil
	c := newTestClient(t, srv.endpoint())
	destDir := filepath.Join(t.TempDir(), "empty")

	files, err := c.DownloadFolder(context.Background(), "empty", destDir)
	if err != nil {
		t.Fatalf("DownloadFolder failed: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("Expected no files, got %d", len(files))
	}
	if info, err := os.Stat(destDir); err != nil || !info.IsDir() {
		t.Errorf("Expected destination directory to exist: %v", err)
	}
}
