// Package crawler walks the pages of a repository search.
//
// A Walker turns one (category, sort, target) query into a lazy sequence
// of repositories. It requests ceil(target / pageSize) pages strictly in
// order and stops early as soon as the source is exhausted:
//
//   - a page returns no items
//   - a page returns fewer items than the page size (its items are still
//     yielded)
//   - the page request fails, including fetch.ErrExhausted; the remaining
//     pages are abandoned, never skipped over
//   - the consumer stops ranging, or the context is cancelled
//
// Items without an id, name or owner are skipped but still count toward
// the page size, so a full page with a broken item does not end the walk.
//
// # Usage
//
//	walker := crawler.NewWalker(githubClient, crawler.WithLogger(logger))
//	for repo := range walker.Walk(ctx, crawler.Query{Category: "go", Sort: "stars", PageSize: 30, Total: 200}) {
//	    ...
//	}
//	stats := walker.Stats()
package crawler
