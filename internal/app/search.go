package app

import (
	"fmt"
	"io"

	"github.com/sha1n/ruleflat/internal/config"
	"github.com/sha1n/ruleflat/internal/ruleindex"
	"github.com/spf13/pflag"
)

// SearchParams contains dependencies for the search command
type SearchParams struct {
	LoadSettings func(*pflag.FlagSet) (*config.Settings, error)
	Out          io.Writer
}

// SearchWithDeps looks up rules in the index built by the last pipeline run
// and prints one "<rule set>\t<line>" row per hit.
func SearchWithDeps(params SearchParams, flags *pflag.FlagSet, text string) error {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	q := ruleindex.Query{Text: text}
	if flags != nil {
		q.RuleSet, _ = flags.GetString("rule-set")
		q.Tag, _ = flags.GetString("tag")
		q.Limit, _ = flags.GetInt("limit")
	}

	index, err := ruleindex.NewIndexer(settings.StateDir).Open()
	if err != nil {
		return err
	}
	defer func() { _ = index.Close() }()

	result, err := ruleindex.Search(index, q)
	if err != nil {
		return err
	}

	for _, hit := range result.Hits {
		if _, err := fmt.Fprintf(params.Out, "%s\t%s\n", hit.RuleSet, hit.Line); err != nil {
			return err
		}
	}
	if result.Total > uint64(len(result.Hits)) {
		_, err = fmt.Fprintf(params.Out, "... and %d more\n", result.Total-uint64(len(result.Hits)))
	}
	return err
}
