package rules

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sha1n/ruleflat/internal/domain"
)

// FileError records a rule file that could not be read or parsed.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e FileError) Unwrap() error {
	return e.Err
}

// LoadResult is the outcome of loading a single folder.
type LoadResult struct {
	Bucket Bucket
	Files  int         // rule files loaded successfully
	Failed []FileError // rule files skipped
}

// Loader reads rule files from local folders.
type Loader struct {
	filter *FileFilter
	logger *slog.Logger
}

// NewLoader creates a new loader.
func NewLoader(filter *FileFilter, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		filter: filter,
		logger: logger,
	}
}

// LoadFolder reads every rule file in dir and groups the extracted lines by base name.
// Files are processed in lexicographic order. A file that cannot be read or parsed is
// logged, recorded in the result and contributes nothing; only an unreadable folder
// is an error.
func (l *Loader) LoadFolder(dir string) (*LoadResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule folder %s: %w", dir, err)
	}

	result := &LoadResult{Bucket: make(Bucket)}

	// os.ReadDir returns entries sorted by filename
	for _, entry := range entries {
		if entry.IsDir() || !l.filter.Match(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		lines, err := LoadFile(path)
		if err != nil {
			l.logger.Warn("Failed to process rule file", "path", path, "error", err)
			result.Failed = append(result.Failed, FileError{Path: path, Err: err})
			continue
		}

		result.Bucket.Append(l.filter.BaseName(entry.Name()), lines...)
		result.Files++
	}

	return result, nil
}

// LoadFile parses a single rule file and returns its tagged lines.
func LoadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc domain.RuleDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid rule document: %w", err)
	}

	return Extract(doc), nil
}
