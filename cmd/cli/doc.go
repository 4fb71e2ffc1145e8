// Package cli constructs the repoaudit command-line interface. It wires the
// Cobra root command, the layered configuration loader (embedded defaults,
// configuration file, REPOAUDIT_* environment variables, flags), and the zap
// loggers, then mounts the audit command.
package cli
