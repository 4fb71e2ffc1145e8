package report

// AuditResult is the canonical, oracle-independent outcome of an audit.
type AuditResult struct {
	RepoName           string     `json:"repo_name" yaml:"repo_name"`
	ModelUsed          string     `json:"model_used" yaml:"model_used"`
	VerdictShort       string     `json:"verdict_short" yaml:"verdict_short"`
	VerdictNarrative   string     `json:"verdict_narrative" yaml:"verdict_narrative"`
	Categories         []Category `json:"categories" yaml:"categories"`
	VibeCheckNarrative string     `json:"vibe_check" yaml:"vibe_check"`
	RemediationSteps   []string   `json:"remediation_steps" yaml:"remediation_steps"`
	Scores             Scores     `json:"scores" yaml:"scores"`
	// Warnings lists data-quality findings raised while normalizing the oracle payload.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Category is one scored rubric category.
type Category struct {
	Title   string   `json:"title" yaml:"title"`
	Metrics []Metric `json:"metrics" yaml:"metrics"`
}

// Metric is one graded metric with its rationale.
type Metric struct {
	Label     string `json:"label" yaml:"label"`
	Score     int    `json:"score" yaml:"score"`
	Rationale string `json:"rationale" yaml:"rationale"`
}

// Scores holds the five category totals (0-20 each) and the grand total (0-100).
type Scores struct {
	Architecture int `json:"architecture" yaml:"architecture"`
	Core         int `json:"core" yaml:"core"`
	Performance  int `json:"performance" yaml:"performance"`
	Security     int `json:"security" yaml:"security"`
	QA           int `json:"qa" yaml:"qa"`
	Total        int `json:"total" yaml:"total"`
}

// CategoryScore returns the reported total for key.
func (scores Scores) CategoryScore(key CategoryKey) int {
	switch key {
	case CategoryKeyArchitecture:
		return scores.Architecture
	case CategoryKeyCore:
		return scores.Core
	case CategoryKeyPerformance:
		return scores.Performance
	case CategoryKeySecurity:
		return scores.Security
	case CategoryKeyQA:
		return scores.QA
	default:
		return 0
	}
}

func (scores *Scores) setCategoryScore(key CategoryKey, value int) {
	switch key {
	case CategoryKeyArchitecture:
		scores.Architecture = value
	case CategoryKeyCore:
		scores.Core = value
	case CategoryKeyPerformance:
		scores.Performance = value
	case CategoryKeySecurity:
		scores.Security = value
	case CategoryKeyQA:
		scores.QA = value
	}
}

// CategorySum returns the sum of the five category totals.
func (scores Scores) CategorySum() int {
	return scores.Architecture + scores.Core + scores.Performance + scores.Security + scores.QA
}

// MetricSum returns the sum of the category's metric scores.
func (category Category) MetricSum() int {
	sum := 0
	for _, metric := range category.Metrics {
		sum += metric.Score
	}
	return sum
}
