package model

import "time"

// Run is one invocation of the crawl orchestrator.
// Runs are bookkeeping only; nothing reads them back to make decisions.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time

	// Seen counts repositories yielded by the page walker.
	Seen int

	// Skipped counts repositories skipped because of an existing marker.
	Skipped int

	// Processed counts repositories committed to the store.
	Processed int

	// Failed counts repositories whose transaction was rolled back.
	Failed int
}

// Finished reports whether the run was closed.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Duration returns the wall time of a finished run, or zero.
func (r Run) Duration() time.Duration {
	if !r.Finished() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
