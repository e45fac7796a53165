// Package store provides SQLite-based persistence for crawled
// repositories, their contributors and the processed markers that make a
// crawl resumable.
//
// # Schema
//
//	repositories     one row per repository id, last write wins
//	contributors     (repo_id, contributor) unique, replaced per repository
//	processed_repos  (repo_id, language, sort_by) unique skip-list
//	crawl_runs       bookkeeping, one row per orchestrator run
//
// # Transactions
//
// Everything written for one repository goes through a single Tx: the
// repository upsert, the contributor replacement and the processed marker
// are committed together or not at all. A marker therefore always implies
// that the repository row and its contributor set are present.
//
// # Usage
//
//	st, err := store.Open(dbDir, store.DefaultOptions())
//	tx, err := st.Begin(ctx)
//	defer tx.Rollback()
//	tx.UpsertRepository(ctx, repo)
//	tx.ReplaceContributors(ctx, repo.ID, contributors)
//	tx.MarkProcessed(ctx, marker)
//	tx.Commit()
package store
