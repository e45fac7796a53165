// Package main provides the entry point for the repocrawl CLI.
//
// repocrawl walks the GitHub repository search for a set of languages and
// sort orders, stores each repository with its top contributors in a local
// SQLite database and exports the result as CSV, Markdown, XLSX or JSON.
// Crawls are resumable: a repository already stored for a (language, sort)
// pair is skipped on the next run.
//
// Usage:
//
//	repocrawl crawl
//	repocrawl export --format csv -o repos.csv
//
// See --help for all available options.
package main

// main is the entry point for repocrawl.
func main() {
	Execute()
}
