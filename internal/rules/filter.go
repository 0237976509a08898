package rules

import (
	"path/filepath"
	"strings"
)

// FileFilter determines which files in a source folder are rule files.
type FileFilter struct {
	extension string
	patterns  []string
}

// NewFileFilter creates a FileFilter matching files with the given extension.
func NewFileFilter(extension string) *FileFilter {
	return &FileFilter{
		extension: extension,
	}
}

// NewFileFilterWithPatterns creates a FileFilter with additional exclusion patterns.
func NewFileFilterWithPatterns(extension string, patterns []string) *FileFilter {
	return &FileFilter{
		extension: extension,
		patterns:  patterns,
	}
}

// Match returns true if name is a rule file that should be loaded.
// Hidden files are never matched, which also skips in-flight download temp files.
func (f *FileFilter) Match(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	if !strings.HasSuffix(name, f.extension) || len(name) == len(f.extension) {
		return false
	}
	return !f.ShouldExclude(name)
}

// ShouldExclude returns true if the given file name matches any exclusion pattern.
func (f *FileFilter) ShouldExclude(name string) bool {
	name = filepath.ToSlash(name)

	for _, pattern := range f.patterns {
		if matchSimplePattern(pattern, name) {
			return true
		}
	}
	return false
}

// BaseName strips the rule extension from a file name.
// Example: "reject.json" -> "reject"
func (f *FileFilter) BaseName(name string) string {
	return strings.TrimSuffix(filepath.Base(name), f.extension)
}

// matchSimplePattern matches a simple glob pattern (with * but not **).
func matchSimplePattern(pattern, name string) bool {
	// Handle patterns that start with *.
	if strings.HasPrefix(pattern, "*.") {
		ext := pattern[1:] // ".ext"
		return strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext))
	}

	// Exact match
	if pattern == name {
		return true
	}

	// Use filepath.Match for other patterns
	matched, _ := filepath.Match(pattern, name)
	if matched {
		return true
	}

	// Also try matching against just the filename
	baseName := filepath.Base(name)
	matched, _ = filepath.Match(pattern, baseName)
	return matched
}
