// Package githubapi wraps the GitHub REST API for repository reconnaissance.
//
// Client exposes the handful of read-only endpoints an audit needs (metadata,
// README, commit log, recursive tree, file contents), decodes base64 content
// payloads, and maps HTTP failures onto typed errors: 404 becomes
// ErrRepositoryNotFound, 403/429 become ErrRateLimitExceeded, and anything
// else is reported as a HostingAPIError carrying the status text.
package githubapi
