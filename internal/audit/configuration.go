package audit

import (
	"strings"
	"time"

	"github.com/temirov/repoaudit/internal/evidence"
	"github.com/temirov/repoaudit/internal/oracle"
	"github.com/temirov/repoaudit/internal/report"
)

const (
	configurationKeySeparatorConstant        = "."
	githubConfigurationKeyConstant           = "github"
	selectionConfigurationKeyConstant        = "selection"
	oracleConfigurationKeyConstant           = "oracle"
	configurationBaseURLKeyConstant          = "base_url"
	configurationTokenSourceKeyConstant      = "token_source"
	configurationFileTreeLimitKeyConstant    = "file_tree_limit"
	configurationCommitLimitKeyConstant      = "commit_limit"
	configurationManifestNamesKeyConstant    = "manifest_names"
	configurationManifestLimitKeyConstant    = "manifest_limit"
	configurationSourceExtensionsKeyConstant = "source_extensions"
	configurationSourceMinBytesKeyConstant   = "source_min_bytes"
	configurationSourceMaxBytesKeyConstant   = "source_max_bytes"
	configurationSourceLimitKeyConstant      = "source_limit"
	configurationSourceLineLimitKeyConstant  = "source_line_limit"
	configurationAPIKeySourceKeyConstant     = "api_key_source"
	configurationTiersKeyConstant            = "tiers"
	configurationTierTimeoutKeyConstant      = "tier_timeout"
	configurationTemperatureKeyConstant      = "temperature"
	configurationScorePolicyKeyConstant      = "score_policy"
	configurationOutputKeyConstant           = "output"
	defaultAPIKeySourceConstant              = "env:GEMINI_API_KEY"
	defaultFileTreeLimitConstant             = 300
	defaultCommitLimitConstant               = 20
)

// CommandConfiguration captures persistent settings for the audit command.
type CommandConfiguration struct {
	GitHub      GitHubConfiguration    `mapstructure:"github"`
	Selection   SelectionConfiguration `mapstructure:"selection"`
	Oracle      OracleConfiguration    `mapstructure:"oracle"`
	ScorePolicy string                 `mapstructure:"score_policy"`
	Output      string                 `mapstructure:"output"`
}

// GitHubConfiguration controls hosting API access and evidence bounds.
type GitHubConfiguration struct {
	BaseURL       string `mapstructure:"base_url"`
	TokenSource   string `mapstructure:"token_source"`
	FileTreeLimit int    `mapstructure:"file_tree_limit"`
	CommitLimit   int    `mapstructure:"commit_limit"`
}

// SelectionConfiguration mirrors evidence.SelectionPolicy.
type SelectionConfiguration struct {
	ManifestNames    []string `mapstructure:"manifest_names"`
	ManifestLimit    int      `mapstructure:"manifest_limit"`
	SourceExtensions []string `mapstructure:"source_extensions"`
	SourceMinBytes   int64    `mapstructure:"source_min_bytes"`
	SourceMaxBytes   int64    `mapstructure:"source_max_bytes"`
	SourceLimit      int      `mapstructure:"source_limit"`
	SourceLineLimit  int      `mapstructure:"source_line_limit"`
}

// OracleConfiguration selects the scoring models and how to reach them.
type OracleConfiguration struct {
	APIKeySource string        `mapstructure:"api_key_source"`
	BaseURL      string        `mapstructure:"base_url"`
	Tiers        []string      `mapstructure:"tiers"`
	TierTimeout  time.Duration `mapstructure:"tier_timeout"`
	Temperature  float32       `mapstructure:"temperature"`
}

// DefaultCommandConfiguration returns baseline configuration values for the audit command.
func DefaultCommandConfiguration() CommandConfiguration {
	selectionPolicy := evidence.DefaultSelectionPolicy()
	return CommandConfiguration{
		GitHub: GitHubConfiguration{
			BaseURL:       "",
			TokenSource:   "",
			FileTreeLimit: defaultFileTreeLimitConstant,
			CommitLimit:   defaultCommitLimitConstant,
		},
		Selection: SelectionConfiguration{
			ManifestNames:    selectionPolicy.ManifestNames,
			ManifestLimit:    selectionPolicy.ManifestLimit,
			SourceExtensions: selectionPolicy.SourceExtensions,
			SourceMinBytes:   selectionPolicy.SourceMinBytes,
			SourceMaxBytes:   selectionPolicy.SourceMaxBytes,
			SourceLimit:      selectionPolicy.SourceLimit,
			SourceLineLimit:  selectionPolicy.SourceLineLimit,
		},
		Oracle: OracleConfiguration{
			APIKeySource: defaultAPIKeySourceConstant,
			BaseURL:      "",
			Tiers:        []string{oracle.PrimaryTierModelConstant, oracle.SecondaryTierModelConstant},
			TierTimeout:  oracle.DefaultTierTimeoutConstant,
			Temperature:  oracle.DefaultTemperatureConstant,
		},
		ScorePolicy: string(report.ScorePolicyTrust),
		Output:      string(report.OutputFormatAuto),
	}
}

// DefaultConfigurationValues produces Viper defaults for the audit command rooted at rootKey.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	githubKey := rootKey + configurationKeySeparatorConstant + githubConfigurationKeyConstant + configurationKeySeparatorConstant
	selectionKey := rootKey + configurationKeySeparatorConstant + selectionConfigurationKeyConstant + configurationKeySeparatorConstant
	oracleKey := rootKey + configurationKeySeparatorConstant + oracleConfigurationKeyConstant + configurationKeySeparatorConstant
	commandKey := rootKey + configurationKeySeparatorConstant
	return map[string]any{
		githubKey + configurationBaseURLKeyConstant:             defaults.GitHub.BaseURL,
		githubKey + configurationTokenSourceKeyConstant:         defaults.GitHub.TokenSource,
		githubKey + configurationFileTreeLimitKeyConstant:       defaults.GitHub.FileTreeLimit,
		githubKey + configurationCommitLimitKeyConstant:         defaults.GitHub.CommitLimit,
		selectionKey + configurationManifestNamesKeyConstant:    defaults.Selection.ManifestNames,
		selectionKey + configurationManifestLimitKeyConstant:    defaults.Selection.ManifestLimit,
		selectionKey + configurationSourceExtensionsKeyConstant: defaults.Selection.SourceExtensions,
		selectionKey + configurationSourceMinBytesKeyConstant:   defaults.Selection.SourceMinBytes,
		selectionKey + configurationSourceMaxBytesKeyConstant:   defaults.Selection.SourceMaxBytes,
		selectionKey + configurationSourceLimitKeyConstant:      defaults.Selection.SourceLimit,
		selectionKey + configurationSourceLineLimitKeyConstant:  defaults.Selection.SourceLineLimit,
		oracleKey + configurationAPIKeySourceKeyConstant:        defaults.Oracle.APIKeySource,
		oracleKey + configurationBaseURLKeyConstant:             defaults.Oracle.BaseURL,
		oracleKey + configurationTiersKeyConstant:               defaults.Oracle.Tiers,
		oracleKey + configurationTierTimeoutKeyConstant:         defaults.Oracle.TierTimeout,
		oracleKey + configurationTemperatureKeyConstant:         defaults.Oracle.Temperature,
		commandKey + configurationScorePolicyKeyConstant:        defaults.ScorePolicy,
		commandKey + configurationOutputKeyConstant:             defaults.Output,
	}
}

// Sanitize trims values and restores defaults for unset or invalid fields.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration

	sanitized.GitHub.BaseURL = strings.TrimSpace(configuration.GitHub.BaseURL)
	sanitized.GitHub.TokenSource = strings.TrimSpace(configuration.GitHub.TokenSource)
	if sanitized.GitHub.FileTreeLimit <= 0 {
		sanitized.GitHub.FileTreeLimit = defaults.GitHub.FileTreeLimit
	}
	if sanitized.GitHub.CommitLimit <= 0 {
		sanitized.GitHub.CommitLimit = defaults.GitHub.CommitLimit
	}

	sanitized.Oracle.APIKeySource = strings.TrimSpace(configuration.Oracle.APIKeySource)
	if len(sanitized.Oracle.APIKeySource) == 0 {
		sanitized.Oracle.APIKeySource = defaults.Oracle.APIKeySource
	}
	sanitized.Oracle.BaseURL = strings.TrimSpace(configuration.Oracle.BaseURL)
	sanitized.Oracle.Tiers = sanitizeValues(configuration.Oracle.Tiers)
	if len(sanitized.Oracle.Tiers) == 0 {
		sanitized.Oracle.Tiers = defaults.Oracle.Tiers
	}
	if sanitized.Oracle.TierTimeout < 0 {
		sanitized.Oracle.TierTimeout = defaults.Oracle.TierTimeout
	}
	if sanitized.Oracle.Temperature <= 0 {
		sanitized.Oracle.Temperature = defaults.Oracle.Temperature
	}

	sanitized.ScorePolicy = strings.ToLower(strings.TrimSpace(configuration.ScorePolicy))
	if len(sanitized.ScorePolicy) == 0 {
		sanitized.ScorePolicy = defaults.ScorePolicy
	}
	sanitized.Output = strings.ToLower(strings.TrimSpace(configuration.Output))
	if len(sanitized.Output) == 0 {
		sanitized.Output = defaults.Output
	}

	return sanitized
}

// SelectionPolicy converts the selection section into a sanitized evidence.SelectionPolicy.
func (configuration CommandConfiguration) SelectionPolicy() evidence.SelectionPolicy {
	return evidence.SelectionPolicy{
		ManifestNames:    configuration.Selection.ManifestNames,
		ManifestLimit:    configuration.Selection.ManifestLimit,
		SourceExtensions: configuration.Selection.SourceExtensions,
		SourceMinBytes:   configuration.Selection.SourceMinBytes,
		SourceMaxBytes:   configuration.Selection.SourceMaxBytes,
		SourceLimit:      configuration.Selection.SourceLimit,
		SourceLineLimit:  configuration.Selection.SourceLineLimit,
	}.Sanitize()
}

// OracleTiers returns one tier per configured model, all sharing the configured timeout.
func (configuration CommandConfiguration) OracleTiers() []oracle.Tier {
	tiers := make([]oracle.Tier, 0, len(configuration.Oracle.Tiers))
	for _, model := range sanitizeValues(configuration.Oracle.Tiers) {
		tiers = append(tiers, oracle.Tier{Model: model, Timeout: configuration.Oracle.TierTimeout})
	}
	return tiers
}

func sanitizeValues(raw []string) []string {
	sanitized := make([]string, 0, len(raw))
	for _, candidate := range raw {
		trimmed := strings.TrimSpace(candidate)
		if len(trimmed) == 0 {
			continue
		}
		sanitized = append(sanitized, trimmed)
	}
	return sanitized
}
