package rules

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// WriteResult describes a written rule set file.
type WriteResult struct {
	Name  string
	Path  string
	Lines int
}

// Write joins lines with newlines (no trailing newline) and writes them to dir/name,
// replacing any existing file. The content is written to a temporary file first and
// renamed into place, so readers never observe a partially written rule set.
func Write(dir, name string, lines []string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid rule set name: %q", name)
	}

	path := filepath.Join(dir, name)
	tempPath := filepath.Join(dir, "."+name+".tmp")

	if err := os.WriteFile(tempPath, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return "", fmt.Errorf("failed to write rule set %s: %w", name, err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, path); err != nil {
		// Clean up temp file on error
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("failed to rename rule set %s: %w", name, err)
	}

	return path, nil
}

// WriteAll writes every rule set of the bucket into dir, creating dir if needed.
// Rule sets are written in lexicographic order; the first failure aborts.
func WriteAll(dir string, bucket Bucket, logger *slog.Logger) ([]WriteResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	results := make([]WriteResult, 0, len(bucket))
	for _, name := range bucket.Keys() {
		lines := bucket[name]
		path, err := Write(dir, name, lines)
		if err != nil {
			return results, err
		}
		logger.Info("Wrote rule set", "path", path, "rules", len(lines))
		results = append(results, WriteResult{Name: name, Path: path, Lines: len(lines)})
	}

	return results, nil
}
