// Package utils exposes the ambient helpers shared by the CLI: the Viper
// backed ConfigurationLoader, the zap LoggerFactory, and FlushingWriter.
package utils
