package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// ManifestVersion is the current schema version
	ManifestVersion = 1

	// ManifestFilename is the manifest filename inside the state directory
	ManifestFilename = "manifest.json"
)

// Manifest records the outcome of the last pipeline run.
type Manifest struct {
	Version  int                     `json:"version"`
	LastRun  time.Time               `json:"last_run"`
	Folders  map[string]FolderState  `json:"folders"`
	RuleSets map[string]RuleSetState `json:"rule_sets"`
}

// FolderState describes what was fetched and loaded from one source folder.
type FolderState struct {
	URL          string    `json:"url"`
	Files        []string  `json:"files"`
	DownloadedAt time.Time `json:"downloaded_at"`
	Loaded       int       `json:"loaded"`
	Failed       []string  `json:"failed,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// RuleSetState describes one written rule set.
type RuleSetState struct {
	Path    string   `json:"path"`
	Lines   int      `json:"lines"`
	Sources []string `json:"sources"` // folders that contributed, in processing order
}

// NewManifest creates a new empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		Version:  ManifestVersion,
		Folders:  make(map[string]FolderState),
		RuleSets: make(map[string]RuleSetState),
	}
}

// LoadManifest reads a manifest from disk, or creates a new one if it doesn't exist.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewManifest(), nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if manifest.Folders == nil {
		manifest.Folders = make(map[string]FolderState)
	}
	if manifest.RuleSets == nil {
		manifest.RuleSets = make(map[string]RuleSetState)
	}

	return &manifest, nil
}

// Save writes the manifest to disk atomically (temp file + rename).
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename manifest file: %w", err)
	}

	return nil
}

// SetFolderError records a failure for a folder, keeping whatever else is known about it.
func (m *Manifest) SetFolderError(folder string, err error) {
	state := m.Folders[folder]
	state.Error = err.Error()
	m.Folders[folder] = state
}

// FoldersWithErrors returns folder names mapped to their recorded error.
func (m *Manifest) FoldersWithErrors() map[string]string {
	result := make(map[string]string)
	for folder, state := range m.Folders {
		if state.Error != "" {
			result[folder] = state.Error
		}
	}
	return result
}
