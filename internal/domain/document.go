package domain

// RuleLineDocument represents a single flattened rule line in the search index.
type RuleLineDocument struct {
	// ID is unique per rule set and line.
	// Format: "<rule set>/<line>"
	ID string `json:"id"`

	// RuleSet is the base filename the line was written to.
	// Example: "reject"
	RuleSet string `json:"rule_set"`

	// Tag is the matching strategy: full, domain, keyword or regexp.
	Tag string `json:"tag"`

	// Value is the line without its tag prefix.
	// Example: "ads.example.com"
	Value string `json:"value"`

	// Line is the full tagged line as written to the output file.
	Line string `json:"line"`
}

// Bleve field name constants for consistent field references in queries and mappings.
const (
	RuleFieldID      = "id"
	RuleFieldRuleSet = "rule_set"
	RuleFieldTag     = "tag"
	RuleFieldValue   = "value"
	RuleFieldLine    = "line"
)
