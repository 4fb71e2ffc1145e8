// Package evidence gathers and serializes the reconnaissance data an audit
// hands to the scoring oracle.
//
// Fetcher orchestrates the hosting API calls (metadata first, then README,
// commit log, and tree concurrently, then the selected file contents),
// degrading optional sub-fetches to sentinel values. Selector is the pure
// file-selection pipeline, and FormatContext renders a Bundle into the
// fixed-section document sent to the oracle.
package evidence
