// Package locator turns user-supplied repository URLs into owner/name
// identifiers usable against the hosting API.
//
// Parsing is purely textual: no network access happens here, and a string
// that does not match <host>/<owner>/<repo>[/...] is rejected with
// ErrInvalidRepositoryURL.
package locator
