package audit

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/repoaudit/internal/credentials"
	"github.com/temirov/repoaudit/internal/evidence"
	"github.com/temirov/repoaudit/internal/oracle"
	"github.com/temirov/repoaudit/internal/report"
	"github.com/temirov/repoaudit/internal/utils"
	flagutils "github.com/temirov/repoaudit/internal/utils/flags"
	pathutils "github.com/temirov/repoaudit/internal/utils/path"
)

const (
	commandUseConstant                    = "audit <repository-url>"
	commandShortDescriptionConstant       = "Audit a hosted repository and score its engineering quality"
	commandLongDescriptionConstant        = "audit gathers evidence about a GitHub repository (metadata, README, commit log, file tree, manifests, and sampled sources), asks the configured models for a structured 100-point audit, and prints the normalized result."
	commandExampleConstant                = "repoaudit audit https://github.com/acme/widget --output markdown --markdown-file ./reports"
	missingRepositoryURLMessageConstant   = "exactly one repository URL is required"
	commandExecutionErrorTemplateConstant = "audit failed (%s): %w"
	markdownCreateErrorTemplateConstant   = "unable to create markdown export %s: %w"
	markdownWriteErrorTemplateConstant    = "unable to write markdown export %s: %w"
	markdownWrittenMessageConstant        = "markdown export written"
	logFieldPathConstant                  = "path"
	flagTokenNameConstant                 = "token"
	flagTokenDescriptionConstant          = "GitHub access token (overrides every other token source)"
	flagTokenSourceNameConstant           = "token-source"
	flagTokenSourceDescriptionConstant    = "Where to read the GitHub access token from (env:NAME or file:PATH)"
	flagOutputNameConstant                = "output"
	flagOutputDescriptionConstant         = "Result format; auto prints a summary on terminals and JSON otherwise"
	flagMarkdownFileNameConstant          = "markdown-file"
	flagMarkdownFileDescriptionConstant   = "Also write the Markdown report to this file, or to AUDIT_<repo>.md inside this directory"
	flagScorePolicyNameConstant           = "score-policy"
	flagScorePolicyDescriptionConstant    = "How to treat category and total scores reported by the model"
	flagTierNameConstant                  = "tier"
	flagTierDescriptionConstant           = "Model to try, in order (repeatable); replaces the configured tiers"
)

var errMissingRepositoryURL = errors.New(missingRepositoryURLMessageConstant)

var outputFormatChoices = []string{
	string(report.OutputFormatAuto),
	string(report.OutputFormatJSON),
	string(report.OutputFormatYAML),
	string(report.OutputFormatMarkdown),
	string(report.OutputFormatSummary),
}

var scorePolicyChoices = []string{
	string(report.ScorePolicyTrust),
	string(report.ScorePolicyRecompute),
	string(report.ScorePolicyFlag),
}

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// TerminalDetector reports whether writer is an interactive terminal.
type TerminalDetector func(writer io.Writer) bool

// CommandBuilder assembles the audit cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	ProgressLoggerProvider       LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
	HostingClientFactory         evidence.HostingClientFactory
	Oracle                       oracle.Oracle
	HTTPClient                   *http.Client
	Clock                        Clock
	EnvironmentLookup            credentials.EnvironmentLookup
	FileReader                   credentials.FileReader
	TerminalDetector             TerminalDetector
	IdentifierGenerator          IdentifierGenerator
}

// Build constructs the cobra command for repository audits.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:     commandUseConstant,
		Short:   commandShortDescriptionConstant,
		Long:    commandLongDescriptionConstant,
		Example: commandExampleConstant,
		Args:    cobra.ArbitraryArgs,
		RunE:    builder.run,
		// Usage is printed explicitly when the repository URL is missing.
		SilenceUsage: true,
	}

	command.Flags().String(flagTokenNameConstant, "", flagTokenDescriptionConstant)
	command.Flags().String(flagTokenSourceNameConstant, "", flagTokenSourceDescriptionConstant)
	flagutils.BindChoiceFlag(command.Flags(), flagOutputNameConstant, string(report.OutputFormatAuto), outputFormatChoices, flagOutputDescriptionConstant)
	command.Flags().String(flagMarkdownFileNameConstant, "", flagMarkdownFileDescriptionConstant)
	flagutils.BindChoiceFlag(command.Flags(), flagScorePolicyNameConstant, string(report.ScorePolicyTrust), scorePolicyChoices, flagScorePolicyDescriptionConstant)
	command.Flags().StringSlice(flagTierNameConstant, nil, flagTierDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) != 1 || len(strings.TrimSpace(arguments[0])) == 0 {
		if helpError := builder.displayCommandHelp(command); helpError != nil {
			return helpError
		}
		return errMissingRepositoryURL
	}
	repositoryURL := strings.TrimSpace(arguments[0])

	options, optionsError := builder.parseOptions(command)
	if optionsError != nil {
		return optionsError
	}

	logger := builder.resolveLogger()
	executionContext := command.Context()
	environmentLookup := builder.resolveEnvironmentLookup()
	tokenResolver := credentials.NewTokenResolver(environmentLookup, builder.FileReader)

	accessToken, tokenError := ResolveAccessToken(executionContext, options.tokenRequest, tokenResolver, environmentLookup)
	if tokenError != nil {
		return tokenError
	}

	service, serviceError := builder.resolveService(command, logger, options, tokenResolver)
	if serviceError != nil {
		return serviceError
	}

	result, auditError := service.RunAudit(executionContext, repositoryURL, accessToken)
	if auditError != nil {
		if RequiresAccessToken(auditError) {
			fmt.Fprintln(command.ErrOrStderr(), AccessTokenGuidanceMessage)
		}
		return fmt.Errorf(commandExecutionErrorTemplateConstant, ClassifyError(auditError), auditError)
	}

	if len(options.markdownPath) > 0 {
		if exportError := writeMarkdownExport(options.markdownPath, result); exportError != nil {
			return exportError
		}
		logger.Info(markdownWrittenMessageConstant, zap.String(logFieldPathConstant, resolveMarkdownPath(options.markdownPath, result)))
	}

	outputWriter := command.OutOrStdout()
	outputFormat := report.ResolveOutputFormat(options.outputFormat, builder.resolveTerminalDetector()(outputWriter))
	return report.Encode(outputWriter, result, outputFormat)
}

type commandOptions struct {
	configuration CommandConfiguration
	tokenRequest  AccessTokenRequest
	outputFormat  report.OutputFormat
	scorePolicy   report.ScorePolicy
	markdownPath  string
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) (commandOptions, error) {
	configuration := builder.resolveConfiguration()
	flagSet := command.Flags()

	outputValue := configuration.Output
	if flagSet.Changed(flagOutputNameConstant) {
		outputValue = flagSet.Lookup(flagOutputNameConstant).Value.String()
	}
	outputFormat, outputError := report.ParseOutputFormat(outputValue)
	if outputError != nil {
		return commandOptions{}, outputError
	}

	scorePolicyValue := configuration.ScorePolicy
	if flagSet.Changed(flagScorePolicyNameConstant) {
		scorePolicyValue = flagSet.Lookup(flagScorePolicyNameConstant).Value.String()
	}
	scorePolicy, policyError := report.ParseScorePolicy(scorePolicyValue)
	if policyError != nil {
		return commandOptions{}, policyError
	}

	if flagSet.Changed(flagTierNameConstant) {
		tierValues, _ := flagSet.GetStringSlice(flagTierNameConstant)
		if tiers := sanitizeValues(tierValues); len(tiers) > 0 {
			configuration.Oracle.Tiers = tiers
		}
	}

	tokenValue, _ := flagSet.GetString(flagTokenNameConstant)
	tokenSourceValue, _ := flagSet.GetString(flagTokenSourceNameConstant)
	markdownValue, _ := flagSet.GetString(flagMarkdownFileNameConstant)

	markdownPath := strings.TrimSpace(markdownValue)
	if len(markdownPath) > 0 {
		markdownPath = pathutils.NewHomeExpander().Expand(markdownPath)
	}

	return commandOptions{
		configuration: configuration,
		tokenRequest: AccessTokenRequest{
			ExplicitToken:     tokenValue,
			FlagTokenSource:   tokenSourceValue,
			ConfigTokenSource: configuration.GitHub.TokenSource,
		},
		outputFormat: outputFormat,
		scorePolicy:  scorePolicy,
		markdownPath: markdownPath,
	}, nil
}

func (builder *CommandBuilder) resolveService(command *cobra.Command, logger *zap.Logger, options commandOptions, tokenResolver credentials.TokenResolver) (*Service, error) {
	configuration := options.configuration

	hostingClientFactory := builder.HostingClientFactory
	if hostingClientFactory == nil {
		hostingClientFactory = NewGitHubClientFactory(configuration.GitHub.BaseURL, builder.HTTPClient)
	}
	fetcher, fetcherError := evidence.NewFetcher(logger, hostingClientFactory, evidence.FetcherConfiguration{
		FileTreeLimit:   configuration.GitHub.FileTreeLimit,
		CommitLimit:     configuration.GitHub.CommitLimit,
		SelectionPolicy: configuration.SelectionPolicy(),
	})
	if fetcherError != nil {
		return nil, fetcherError
	}

	auditOracle := builder.Oracle
	if auditOracle == nil {
		geminiOracle, oracleError := NewConfiguredOracle(command.Context(), configuration.Oracle, tokenResolver, builder.HTTPClient)
		if oracleError != nil {
			return nil, oracleError
		}
		auditOracle = geminiOracle
	}

	return NewService(ServiceDependencies{
		Logger:              logger,
		Fetcher:             fetcher,
		Oracle:              auditOracle,
		Tiers:               configuration.OracleTiers(),
		Normalizer:          report.NewNormalizer(options.scorePolicy),
		Clock:               builder.Clock,
		IdentifierGenerator: builder.IdentifierGenerator,
		ProgressObserver:    builder.resolveProgressObserver(logger),
	})
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	return resolveProvidedLogger(builder.LoggerProvider)
}

func (builder *CommandBuilder) resolveProgressObserver(logger *zap.Logger) ProgressObserver {
	humanReadable := false
	if builder.HumanReadableLoggingProvider != nil {
		humanReadable = builder.HumanReadableLoggingProvider()
	}
	if humanReadable && builder.ProgressLoggerProvider != nil {
		return NewConsoleProgressLogger(resolveProvidedLogger(builder.ProgressLoggerProvider), true)
	}
	return NewConsoleProgressLogger(logger, humanReadable)
}

func (builder *CommandBuilder) resolveEnvironmentLookup() credentials.EnvironmentLookup {
	if builder.EnvironmentLookup != nil {
		return builder.EnvironmentLookup
	}
	return os.LookupEnv
}

func (builder *CommandBuilder) resolveTerminalDetector() TerminalDetector {
	if builder.TerminalDetector != nil {
		return builder.TerminalDetector
	}
	return isTerminalWriter
}

func (builder *CommandBuilder) displayCommandHelp(command *cobra.Command) error {
	if command == nil {
		return nil
	}
	return command.Help()
}

func resolveProvidedLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func isTerminalWriter(writer io.Writer) bool {
	file, isFile := writer.(*os.File)
	if !isFile {
		return false
	}
	descriptor := file.Fd()
	return isatty.IsTerminal(descriptor) || isatty.IsCygwinTerminal(descriptor)
}

// resolveMarkdownPath places the default export file name inside target when target is a directory.
func resolveMarkdownPath(target string, result report.AuditResult) string {
	if info, statError := os.Stat(target); statError == nil && info.IsDir() {
		return filepath.Join(target, report.MarkdownFileName(result.RepoName))
	}
	return target
}

func writeMarkdownExport(target string, result report.AuditResult) error {
	exportPath := resolveMarkdownPath(target, result)
	exportFile, createError := os.Create(exportPath)
	if createError != nil {
		return fmt.Errorf(markdownCreateErrorTemplateConstant, exportPath, createError)
	}
	defer exportFile.Close()

	bufferedWriter := bufio.NewWriter(exportFile)
	if writeError := report.Encode(utils.NewFlushingWriter(bufferedWriter), result, report.OutputFormatMarkdown); writeError != nil {
		return fmt.Errorf(markdownWriteErrorTemplateConstant, exportPath, writeError)
	}
	if closeError := exportFile.Close(); closeError != nil {
		return fmt.Errorf(markdownWriteErrorTemplateConstant, exportPath, closeError)
	}
	return nil
}
