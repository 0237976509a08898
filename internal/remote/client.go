// Package remote lists and downloads rule files from a GitHub-style contents API.
package remote

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/sha1n/ruleflat/internal/domain"
)

// UserAgent is sent with every request
const UserAgent = "ruleflat"

// Options configures a Client.
type Options struct {
	// Endpoint is the listing URL prefix; the folder name is appended as a path segment.
	Endpoint string

	// Extension filters listed entries by name suffix, e.g. ".json".
	Extension string

	// Token is an optional bearer token for the listing API.
	Token string

	// Timeout bounds each request. Zero disables the timeout.
	Timeout time.Duration

	// HTTPClient overrides the transport; Token and Timeout are ignored when set.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client wraps the go-github client for folder listing and raw downloads.
type Client struct {
	gh        *gh.Client
	endpoint  string
	extension string
	logger    *slog.Logger
}

// NewClient creates a new remote client.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	u, err := url.Parse(opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid listing endpoint: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("listing endpoint must be absolute: %s", opts.Endpoint)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		if opts.Token != "" {
			ts := oauth2.StaticTokenSource(
				&oauth2.Token{AccessToken: opts.Token},
			)
			httpClient = oauth2.NewClient(ctx, ts)
		} else {
			httpClient = &http.Client{}
		}
		httpClient.Timeout = opts.Timeout
	}

	client := gh.NewClient(httpClient)
	client.UserAgent = UserAgent

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		gh:        client,
		endpoint:  strings.TrimRight(opts.Endpoint, "/"),
		extension: opts.Extension,
		logger:    logger,
	}, nil
}

// FolderURL returns the listing URL of a remote folder.
func (c *Client) FolderURL(folder string) string {
	return c.endpoint + "/" + url.PathEscape(folder)
}

// List returns the rule files contained in a remote folder.
// Entries that are not files or do not carry the rule extension are skipped.
func (c *Client) List(ctx context.Context, folder string) ([]domain.RemoteFile, error) {
	listURL := c.FolderURL(folder)

	req, err := c.gh.NewRequest(http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrListing, folder, err)
	}

	var entries []*gh.RepositoryContent
	if _, err := c.gh.Do(ctx, req, &entries); err != nil {
		return nil, wrapError(ErrListing, err, folder)
	}

	files := make([]domain.RemoteFile, 0, len(entries))
	for _, entry := range entries {
		name := entry.GetName()
		if entry.GetType() != "" && entry.GetType() != "file" {
			continue
		}
		if !strings.HasSuffix(name, c.extension) {
			continue
		}
		if name != filepath.Base(name) || name == c.extension {
			c.logger.Warn("Skipping remote entry with unusable name", "folder", folder, "name", name)
			continue
		}
		files = append(files, domain.RemoteFile{
			Name:        name,
			DownloadURL: entry.GetDownloadURL(),
		})
	}

	return files, nil
}

// Fetch downloads a remote file into destDir, replacing any existing file of the same name.
// The body is staged in a temporary file so a failed download never truncates a previous copy.
func (c *Client) Fetch(ctx context.Context, file domain.RemoteFile, destDir string) (err error) {
	if file.DownloadURL == "" {
		return fmt.Errorf("%w: %s: missing download URL", ErrDownload, file.Name)
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("%w: %s: failed to create directory: %w", ErrDownload, file.Name, err)
	}

	req, err := c.gh.NewRequest(http.MethodGet, file.DownloadURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDownload, file.Name, err)
	}

	tmp, err := os.CreateTemp(destDir, "."+file.Name+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %s: failed to create temp file: %w", ErrDownload, file.Name, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	// Raw downloads are not counted against the API rate limit, so a listing that
	// exhausted it must not stop them.
	rawCtx := context.WithValue(ctx, gh.BypassRateLimitCheck, true)
	if _, err := c.gh.Do(rawCtx, req, tmp); err != nil {
		_ = tmp.Close()
		return wrapError(ErrDownload, err, file.Name)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDownload, file.Name, err)
	}

	dest := filepath.Join(destDir, file.Name)
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("%w: %s: failed to rename temp file: %w", ErrDownload, file.Name, err)
	}

	return nil
}

// DownloadFolder lists a remote folder and downloads every rule file into destDir.
// The first failure aborts the folder.
func (c *Client) DownloadFolder(ctx context.Context, folder, destDir string) ([]domain.RemoteFile, error) {
	c.logger.Info("Downloading rule files", "folder", folder, "url", c.FolderURL(folder))

	files, err := c.List(ctx, folder)
	if err != nil {
		return nil, err
	}

	// An empty listing still leaves an (empty) folder to load from
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %s: failed to create directory: %w", ErrDownload, folder, err)
	}

	for _, file := range files {
		if err := c.Fetch(ctx, file, destDir); err != nil {
			return nil, err
		}
		c.logger.Info("Downloaded rule file", "folder", folder, "name", file.Name)
	}

	return files, nil
}
