// Package ruleindex maintains a Bleve index over generated rule set lines.
package ruleindex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/sha1n/ruleflat/internal/domain"
	"github.com/sha1n/ruleflat/internal/rules"
)

const (
	// IndexName is the directory name of the index inside the state directory
	IndexName = "rules.bleve"

	// MaxBatchSize is the maximum number of documents per batch
	MaxBatchSize = 100
)

// ErrIndexNotFound is returned when the index has not been built yet.
var ErrIndexNotFound = errors.New("rule index not found")

// Indexer builds and opens the rule index stored under a state directory.
type Indexer struct {
	path string
}

// NewIndexer creates an indexer rooted at stateDir.
func NewIndexer(stateDir string) *Indexer {
	return &Indexer{path: filepath.Join(stateDir, IndexName)}
}

// Path returns the location of the index on disk.
func (i *Indexer) Path() string {
	return i.path
}

// CreateIndexMapping creates the Bleve index mapping for rule line documents.
func CreateIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	// Rule set, tag and value are matched verbatim
	for _, field := range []string{domain.RuleFieldRuleSet, domain.RuleFieldTag, domain.RuleFieldValue} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = true
		docMapping.AddFieldMappingsAt(field, fm)
	}

	// ID and line - stored for retrieval only
	for _, field := range []string{domain.RuleFieldID, domain.RuleFieldLine} {
		fm := bleve.NewTextFieldMapping()
		fm.Index = false
		fm.Store = true
		docMapping.AddFieldMappingsAt(field, fm)
	}

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = keyword.Name

	return indexMapping
}

// Exists reports whether the index has been built.
func (i *Indexer) Exists() bool {
	_, err := os.Stat(i.path)
	return err == nil
}

// Open opens the index for searching. The caller must close it.
func (i *Indexer) Open() (bleve.Index, error) {
	if !i.Exists() {
		return nil, ErrIndexNotFound
	}

	index, err := bleve.Open(i.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	return index, nil
}

// Rebuild replaces the index with one built from bucket.
// The new index is built next to the current one and swapped in when complete,
// so a failed rebuild leaves the previous index untouched.
// Returns the number of documents indexed.
func (i *Indexer) Rebuild(bucket rules.Bucket) (count int, err error) {
	tmpPath := i.path + ".tmp"
	if err := os.RemoveAll(tmpPath); err != nil {
		return 0, fmt.Errorf("failed to clear temporary index: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(i.path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create index directory: %w", err)
	}

	index, err := bleve.New(tmpPath, CreateIndexMapping())
	if err != nil {
		return 0, fmt.Errorf("failed to create index: %w", err)
	}

	count, err = indexBucket(index, bucket)
	if cerr := index.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.RemoveAll(tmpPath)
		return 0, err
	}

	if err := os.RemoveAll(i.path); err != nil {
		_ = os.RemoveAll(tmpPath)
		return 0, fmt.Errorf("failed to remove previous index: %w", err)
	}
	if err := os.Rename(tmpPath, i.path); err != nil {
		_ = os.RemoveAll(tmpPath)
		return 0, fmt.Errorf("failed to move index into place: %w", err)
	}

	return count, nil
}

func indexBucket(index bleve.Index, bucket rules.Bucket) (int, error) {
	batch := index.NewBatch()
	batchSize := 0
	total := 0

	for _, name := range bucket.Keys() {
		for _, line := range bucket[name] {
			doc := NewDocument(name, line)
			if err := batch.Index(doc.ID, doc); err != nil {
				return total, fmt.Errorf("failed to index %s: %w", doc.ID, err)
			}
			batchSize++

			if batchSize >= MaxBatchSize {
				if err := index.Batch(batch); err != nil {
					return total, fmt.Errorf("batch index failed: %w", err)
				}
				total += batchSize
				batch = index.NewBatch()
				batchSize = 0
			}
		}
	}

	if batchSize > 0 {
		if err := index.Batch(batch); err != nil {
			return total, fmt.Errorf("final batch index failed: %w", err)
		}
		total += batchSize
	}

	return total, nil
}

// NewDocument builds the index document of a rule line. Lines without a known
// tag are indexed with their whole text as the value.
func NewDocument(ruleSet, line string) domain.RuleLineDocument {
	tag, value, ok := domain.SplitLine(line)
	if !ok {
		value = line
	}
	return domain.RuleLineDocument{
		ID:      ruleSet + "/" + line,
		RuleSet: ruleSet,
		Tag:     string(tag),
		Value:   value,
		Line:    line,
	}
}
