// Package rules flattens structured rule documents into tagged rule lines and
// merges them into deduplicated plain-text rule sets.
package rules

import "github.com/sha1n/ruleflat/internal/domain"

// Extract flattens a rule document into tagged lines.
// Output order is rule order, then tag order (full, domain, keyword, regexp),
// then the order of values within each field. No deduplication happens here.
func Extract(doc domain.RuleDocument) []string {
	var lines []string
	for _, rule := range doc.Rules {
		lines = appendRule(lines, rule)
	}
	return lines
}

func appendRule(lines []string, rule domain.Rule) []string {
	lines = appendTagged(lines, domain.TagFull, rule.Domain)
	lines = appendTagged(lines, domain.TagDomain, rule.DomainSuffix)
	lines = appendTagged(lines, domain.TagKeyword, rule.DomainKeyword)
	lines = appendTagged(lines, domain.TagRegexp, rule.DomainRegex)
	return lines
}

func appendTagged(lines []string, tag domain.Tag, values []string) []string {
	for _, v := range values {
		lines = append(lines, tag.Line(v))
	}
	return lines
}
