// Package model defines the records that flow between the GitHub source,
// the crawler and the store.
//
// This package contains the following main types:
//   - Repository: a crawled repository (the top-level entity)
//   - Contributor: a contributor owned by exactly one repository
//   - Marker: a skip-list entry for one (category, sort) partition
//   - Run: bookkeeping for one orchestrator invocation
//   - Profile: the public profile of a contributor account
//
// Repository and Contributor decode directly from GitHub JSON.
package model
