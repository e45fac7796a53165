// Package github builds GitHub REST API requests for the two resources a
// crawl needs: repository search pages and per-repository contributors.
//
// The Client knows URLs and response shapes only. Throttling, retries and
// authentication belong to the Getter it is given, normally a
// *fetch.Fetcher, and fetch.ErrExhausted passes through unchanged.
package github
