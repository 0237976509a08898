package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Tag identifies the matching strategy of a flattened rule line.
type Tag string

// Tags in emission order. Each maps from one field of a Rule.
const (
	TagFull    Tag = "full"    // domain
	TagDomain  Tag = "domain"  // domain_suffix
	TagKeyword Tag = "keyword" // domain_keyword
	TagRegexp  Tag = "regexp"  // domain_regex
)

// Tags lists all known tags in the order they are emitted for a single rule.
var Tags = []Tag{TagFull, TagDomain, TagKeyword, TagRegexp}

// Line renders a tagged rule line, e.g. "domain:example.com".
func (t Tag) Line(value string) string {
	return string(t) + ":" + value
}

// SplitLine splits a tagged rule line into its tag and value.
// Returns false if the line has no known tag prefix.
func SplitLine(line string) (Tag, string, bool) {
	prefix, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	for _, tag := range Tags {
		if string(tag) == prefix {
			return tag, value, true
		}
	}
	return "", "", false
}

// Listable is a JSON value that may be encoded either as a single string or as
// an array of scalars. A null or absent value decodes to an empty list.
// Numbers and booleans inside an array keep their JSON text.
type Listable []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *Listable) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = nil
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = Listable{single}
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}

	list := make(Listable, 0, len(items))
	for _, item := range items {
		value, err := scalarText(item)
		if err != nil {
			return err
		}
		list = append(list, value)
	}
	*l = list
	return nil
}

func scalarText(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}

	switch v := v.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("unsupported list item: %s", raw)
	}
}

// Rule is one entry of a rule document. All fields are optional.
type Rule struct {
	Domain        Listable `json:"domain,omitempty"`
	DomainSuffix  Listable `json:"domain_suffix,omitempty"`
	DomainKeyword Listable `json:"domain_keyword,omitempty"`
	DomainRegex   Listable `json:"domain_regex,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
// Keys are matched exactly; differently cased keys are ignored.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*r = Rule{}
	targets := []struct {
		key string
		dst *Listable
	}{
		{"domain", &r.Domain},
		{"domain_suffix", &r.DomainSuffix},
		{"domain_keyword", &r.DomainKeyword},
		{"domain_regex", &r.DomainRegex},
	}
	for _, target := range targets {
		raw, ok := fields[target.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, target.dst); err != nil {
			return fmt.Errorf("%s: %w", target.key, err)
		}
	}
	return nil
}

// RuleDocument is the parsed form of a source rule file.
type RuleDocument struct {
	Version int    `json:"version,omitempty"`
	Rules   []Rule `json:"rules"`
}

// UnmarshalJSON implements json.Unmarshaler.
// Only the exact "rules" key is read. An unreadable "version" is ignored.
func (d *RuleDocument) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*d = RuleDocument{}
	if raw, ok := fields["version"]; ok {
		_ = json.Unmarshal(raw, &d.Version)
	}
	if raw, ok := fields["rules"]; ok {
		if err := json.Unmarshal(raw, &d.Rules); err != nil {
			return fmt.Errorf("rules: %w", err)
		}
	}
	return nil
}

// RemoteFile describes a file found in a remote folder listing.
type RemoteFile struct {
	Name        string
	DownloadURL string
}
