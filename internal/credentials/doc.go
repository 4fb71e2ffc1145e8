// Package credentials resolves access tokens for the hosting API and the
// scoring oracle.
//
// Tokens come from explicit values, declarative sources (env:NAME or
// file:/path), or the conventional GitHub environment variables.
package credentials
