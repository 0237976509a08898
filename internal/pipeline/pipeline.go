// Package pipeline runs the fetch, flatten, merge and write sequence over all source folders.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/sha1n/ruleflat/internal/config"
	"github.com/sha1n/ruleflat/internal/domain"
	"github.com/sha1n/ruleflat/internal/rules"
)

// LockFilename is the name of the run lock file inside the state directory
const LockFilename = "sync.lock"

// Downloader fetches the rule files of a remote folder into a local directory.
type Downloader interface {
	DownloadFolder(ctx context.Context, folder, destDir string) ([]domain.RemoteFile, error)
	FolderURL(folder string) string
}

// Indexer rebuilds the search index from the merged rule sets.
type Indexer interface {
	Rebuild(bucket rules.Bucket) (int, error)
}

// Options configures a pipeline run.
type Options struct {
	Settings   *config.Settings
	Downloader Downloader
	Indexer    Indexer // optional; nil skips indexing
	Logger     *slog.Logger
}

// Report summarizes a completed run.
type Report struct {
	Downloaded int                 // remote files fetched across all folders
	Failed     []rules.FileError   // rule files skipped while loading
	Written    []rules.WriteResult // rule sets written, in name order
	Indexed    int                 // documents in the rebuilt index
}

// Run executes the pipeline: download every folder, load and flatten the rule files,
// merge them by base name in folder order, deduplicate and write one file per rule set.
// Any listing, download, folder read or write failure aborts the run. A rule file that
// cannot be parsed is skipped with a warning.
func Run(ctx context.Context, opts Options) (*Report, error) {
	s := opts.Settings
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	lock := NewRunLock(filepath.Join(s.StateDir, LockFilename))
	if err := lock.Acquire(ctx, s.LockTimeout); err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Error("Failed to release run lock", "error", err)
		}
	}()

	manifestPath := filepath.Join(s.StateDir, ManifestFilename)
	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		logger.Warn("Discarding unreadable manifest", "path", manifestPath, "error", err)
		manifest = NewManifest()
	}
	manifest.Folders = make(map[string]FolderState, len(s.SourceFolders))

	saveManifest := func() {
		if err := manifest.Save(manifestPath); err != nil {
			logger.Error("Failed to save manifest", "path", manifestPath, "error", err)
		}
	}

	report := &Report{}

	// Download everything before touching any output
	for _, folder := range s.SourceFolders {
		files, err := opts.Downloader.DownloadFolder(ctx, folder, s.FolderDir(folder))
		if err != nil {
			manifest.SetFolderError(folder, err)
			saveManifest()
			return nil, fmt.Errorf("failed to download folder %s: %w", folder, err)
		}

		names := make([]string, 0, len(files))
		for _, f := range files {
			names = append(names, f.Name)
		}
		manifest.Folders[folder] = FolderState{
			URL:          opts.Downloader.FolderURL(folder),
			Files:        names,
			DownloadedAt: time.Now(),
		}
		report.Downloaded += len(files)
	}

	loader := rules.NewLoader(rules.NewFileFilterWithPatterns(s.RuleExtension, s.ExcludePatterns), logger)
	buckets := make([]rules.Bucket, 0, len(s.SourceFolders))
	sources := make(map[string][]string)

	for _, folder := range s.SourceFolders {
		result, err := loader.LoadFolder(s.FolderDir(folder))
		if err != nil {
			manifest.SetFolderError(folder, err)
			saveManifest()
			return nil, err
		}

		state := manifest.Folders[folder]
		state.Loaded = result.Files
		for _, fe := range result.Failed {
			state.Failed = append(state.Failed, fe.Path)
		}
		manifest.Folders[folder] = state

		for _, name := range result.Bucket.Keys() {
			sources[name] = append(sources[name], folder)
		}
		buckets = append(buckets, result.Bucket)
		report.Failed = append(report.Failed, result.Failed...)
	}

	merged := rules.Merge(buckets...)

	written, err := rules.WriteAll(s.OutputDir, merged, logger)
	report.Written = written
	if err != nil {
		return report, err
	}

	manifest.LastRun = time.Now()
	manifest.RuleSets = make(map[string]RuleSetState, len(written))
	for _, w := range written {
		manifest.RuleSets[w.Name] = RuleSetState{
			Path:    w.Path,
			Lines:   w.Lines,
			Sources: sources[w.Name],
		}
	}
	saveManifest()

	if opts.Indexer != nil {
		count, err := opts.Indexer.Rebuild(merged)
		if err != nil {
			logger.Error("Failed to rebuild rule index", "error", err)
		} else {
			report.Indexed = count
			logger.Info("Rebuilt rule index", "documents", count)
		}
	}

	logger.Info("All done", "output_dir", s.OutputDir, "rule_sets", len(written), "rules", merged.Len())
	return report, nil
}
