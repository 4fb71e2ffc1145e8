package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// OutputFormat selects how a result is rendered.
type OutputFormat string

// Supported output formats.
const (
	OutputFormatJSON     OutputFormat = "json"
	OutputFormatYAML     OutputFormat = "yaml"
	OutputFormatMarkdown OutputFormat = "markdown"
	OutputFormatSummary  OutputFormat = "summary"
	// OutputFormatAuto resolves to summary on a terminal and JSON otherwise.
	OutputFormatAuto OutputFormat = "auto"
)

const (
	unknownOutputFormatMessageConstant  = "unknown output format"
	unknownOutputFormatTemplateConstant = "%w %q (expected json, yaml, markdown, summary, or auto)"
	jsonIndentConstant                  = "  "
	yamlIndentConstant                  = 2
	encodeErrorTemplateConstant         = "unable to encode audit result as %s: %w"
)

// ErrUnknownOutputFormat indicates an unsupported output format name.
var ErrUnknownOutputFormat = errors.New(unknownOutputFormatMessageConstant)

// ParseOutputFormat converts a flag or configuration value into an OutputFormat. An empty value selects auto.
func ParseOutputFormat(value string) (OutputFormat, error) {
	normalizedValue := OutputFormat(strings.ToLower(strings.TrimSpace(value)))
	switch normalizedValue {
	case "":
		return OutputFormatAuto, nil
	case OutputFormatJSON, OutputFormatYAML, OutputFormatMarkdown, OutputFormatSummary, OutputFormatAuto:
		return normalizedValue, nil
	default:
		return "", fmt.Errorf(unknownOutputFormatTemplateConstant, ErrUnknownOutputFormat, value)
	}
}

// ResolveOutputFormat replaces auto with summary for terminals and JSON otherwise.
func ResolveOutputFormat(format OutputFormat, terminal bool) OutputFormat {
	if format != OutputFormatAuto {
		return format
	}
	if terminal {
		return OutputFormatSummary
	}
	return OutputFormatJSON
}

// Encode writes result to writer in format. Auto is treated as JSON; callers resolve it first.
func Encode(writer io.Writer, result AuditResult, format OutputFormat) error {
	switch format {
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(writer)
		encoder.SetIndent(yamlIndentConstant)
		if encodeError := encoder.Encode(result); encodeError != nil {
			return fmt.Errorf(encodeErrorTemplateConstant, format, encodeError)
		}
		return encoder.Close()
	case OutputFormatMarkdown:
		_, writeError := io.WriteString(writer, RenderMarkdown(result))
		return writeError
	case OutputFormatSummary:
		return RenderSummary(writer, result)
	case OutputFormatJSON, OutputFormatAuto:
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", jsonIndentConstant)
		if encodeError := encoder.Encode(result); encodeError != nil {
			return fmt.Errorf(encodeErrorTemplateConstant, OutputFormatJSON, encodeError)
		}
		return nil
	default:
		return fmt.Errorf(unknownOutputFormatTemplateConstant, ErrUnknownOutputFormat, format)
	}
}
