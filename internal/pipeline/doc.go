// Package pipeline drives a crawl: every (category, sort) partition is
// walked page by page and every repository found is persisted together
// with its top contributors.
//
// Per repository the Orchestrator runs four stages:
//
//	Check    skip it when a processed marker exists for the partition
//	Fetch    request its contributors (bounded count)
//	Persist  upsert repository, replace contributors, write the marker
//	Commit   make the three writes visible at once
//
// A repository whose contributors could not be fetched is still stored;
// whether it is marked processed depends on the MarkPolicy. A failure of
// one repository is logged and rolled back and the crawl moves on.
//
// Cancellation is honored between repositories and between partitions.
// A repository whose transaction has started is always finished, so an
// interrupted crawl never leaves a half-written repository behind and a
// rerun resumes where it stopped.
package pipeline
