package app

import "github.com/spf13/pflag"

// RegisterFlags registers the pipeline flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringSliceP("source-folders", "f", nil, "Remote folders to fetch, in merge order (comma-separated)")
	flags.StringP("output-dir", "o", "", "Directory for the generated rule sets")
	flags.StringP("work-dir", "w", "", "Directory the remote folders are downloaded into")
	flags.StringP("state-dir", "s", "", "Directory for the run lock, manifest and search index")
	flags.StringP("listing-endpoint", "e", "", "Contents API URL the folder names are appended to")
	flags.String("rule-extension", "", "Extension of rule files (default .json)")
	flags.StringSliceP("exclude", "x", nil, "Glob patterns of rule files to skip (comma-separated)")
	flags.String("github-token", "", "GitHub token for the contents API")
	flags.Duration("request-timeout", 0, "Timeout of each HTTP request (default 60s)")
	flags.Duration("lock-timeout", 0, "How long to wait for another run to finish (default 2m)")
	flags.Bool("index", true, "Rebuild the search index after writing rule sets")
}

// RegisterServeFlags registers the MCP server flags on the given FlagSet
func RegisterServeFlags(flags *pflag.FlagSet) {
	flags.StringP("output-dir", "o", "", "Directory holding the generated rule sets")
	flags.StringP("state-dir", "s", "", "Directory holding the search index")
	flags.StringP("transport", "t", "", "Transport type: stdio or sse")
	flags.StringP("host", "H", "", "Host for SSE transport")
	flags.IntP("port", "p", 0, "Port for SSE transport")
	flags.IntP("max-results", "m", 0, "Maximum number of search results")
	flags.StringP("auth-type", "a", "", "Authentication type: none, basic, or apikey")
	flags.StringP("auth-basic-username", "u", "", "Basic auth username")
	flags.StringP("auth-basic-password", "P", "", "Basic auth password")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys (comma-separated)")
}

// RegisterSearchFlags registers the search command flags on the given FlagSet
func RegisterSearchFlags(flags *pflag.FlagSet) {
	flags.StringP("state-dir", "s", "", "Directory holding the search index")
	flags.StringP("rule-set", "r", "", "Only match rules of this rule set")
	flags.StringP("tag", "g", "", "Only match rules with this tag: full, domain, keyword or regexp")
	flags.IntP("limit", "n", 0, "Maximum number of results (default 20)")
}
