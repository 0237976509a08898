package ruleindex

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/sha1n/ruleflat/internal/domain"
)

// DefaultLimit is used when a query does not set a limit.
const DefaultLimit = 20

// ErrEmptyQuery is returned for a query without search text.
var ErrEmptyQuery = errors.New("query cannot be empty")

// Query describes a rule lookup.
type Query struct {
	// Text is matched against rule values, exactly or as a substring.
	// A tagged line such as "domain:example.com" also restricts the tag.
	Text string

	// RuleSet optionally restricts results to one rule set.
	RuleSet string

	// Tag optionally restricts results to one tag.
	Tag string

	Limit int
}

// Hit is a single matching rule line.
type Hit struct {
	RuleSet string
	Tag     string
	Value   string
	Line    string
	Score   float64
}

// Result holds the matches of a search.
type Result struct {
	Total uint64
	Hits  []Hit
}

// Search runs q against index. Exact value matches rank above substring matches.
func Search(index bleve.Index, q Query) (*Result, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, ErrEmptyQuery
	}
	if tag, value, ok := domain.SplitLine(text); ok && value != "" {
		if q.Tag != "" && q.Tag != string(tag) {
			return &Result{}, nil
		}
		q.Tag = string(tag)
		text = value
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	req := bleve.NewSearchRequest(buildQuery(text, q.RuleSet, q.Tag))
	req.Size = limit
	req.Fields = []string{domain.RuleFieldRuleSet, domain.RuleFieldTag, domain.RuleFieldValue, domain.RuleFieldLine}
	req.SortBy([]string{"-_score", "_id"})

	results, err := index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	result := &Result{
		Total: results.Total,
		Hits:  make([]Hit, 0, len(results.Hits)),
	}
	for _, match := range results.Hits {
		result.Hits = append(result.Hits, Hit{
			RuleSet: stringField(match.Fields, domain.RuleFieldRuleSet),
			Tag:     stringField(match.Fields, domain.RuleFieldTag),
			Value:   stringField(match.Fields, domain.RuleFieldValue),
			Line:    stringField(match.Fields, domain.RuleFieldLine),
			Score:   match.Score,
		})
	}

	return result, nil
}

// buildQuery constructs a Bleve query for a value lookup with optional filters.
func buildQuery(text, ruleSet, tag string) query.Query {
	exact := bleve.NewTermQuery(text)
	exact.SetField(domain.RuleFieldValue)
	exact.SetBoost(5.0)

	substring := bleve.NewRegexpQuery(".*" + regexp.QuoteMeta(text) + ".*")
	substring.SetField(domain.RuleFieldValue)

	valueQuery := bleve.NewDisjunctionQuery(exact, substring)

	if ruleSet == "" && tag == "" {
		return valueQuery
	}

	must := []query.Query{valueQuery}
	if ruleSet != "" {
		rsQuery := bleve.NewTermQuery(ruleSet)
		rsQuery.SetField(domain.RuleFieldRuleSet)
		must = append(must, rsQuery)
	}
	if tag != "" {
		tagQuery := bleve.NewTermQuery(tag)
		tagQuery.SetField(domain.RuleFieldTag)
		must = append(must, tagQuery)
	}

	return bleve.NewConjunctionQuery(must...)
}

func stringField(fields map[string]interface{}, name string) string {
	if val, ok := fields[name].(string); ok {
		return val
	}
	return ""
}
