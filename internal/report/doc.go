// Package report defines the canonical audit result, validates and shapes raw
// oracle payloads into it, and renders finished results as JSON, YAML,
// Markdown, or a terminal score summary.
package report
