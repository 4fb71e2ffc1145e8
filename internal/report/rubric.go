package report

// CategoryKey identifies one of the five scored categories.
type CategoryKey string

// Category keys in rubric order.
const (
	CategoryKeyArchitecture CategoryKey = "architecture"
	CategoryKeyCore         CategoryKey = "core"
	CategoryKeyPerformance  CategoryKey = "performance"
	CategoryKeySecurity     CategoryKey = "security"
	CategoryKeyQA           CategoryKey = "qa"
)

// Score bounds of the rubric.
const (
	MetricScoreMaximum    = 5
	CategoryScoreMaximum  = 20
	TotalScoreMaximum     = 100
	MetricsPerCategory    = 4
	RemediationStepsCount = 10
)

// RubricMetric is one graded metric of a rubric category.
type RubricMetric struct {
	Label    string
	Question string
}

// RubricCategory is one scored category of the rubric.
type RubricCategory struct {
	Key     CategoryKey
	Title   string
	Metrics []RubricMetric
}

var rubricCategories = []RubricCategory{
	{
		Key:   CategoryKeyArchitecture,
		Title: "Architecture & Vibe",
		Metrics: []RubricMetric{
			{Label: "Architectural Justification", Question: "Does the complexity match the problem? Or is it over-engineered?"},
			{Label: "Dependency Bloat", Question: "Are there too many packages? Are they outdated or abandoned?"},
			{Label: "The \"README vs. Code\" Gap", Question: "Does the code actually do what the docs say?"},
			{Label: "AI Hallucination & Copy-Paste Smell", Question: "Does it look like generic generated code with generic comments and unused variables?"},
		},
	},
	{
		Key:   CategoryKeyCore,
		Title: "Core Engineering",
		Metrics: []RubricMetric{
			{Label: "Error Handling & Edge Cases", Question: "Is it just try-catch-log? Are failures handled gracefully?"},
			{Label: "Concurrency & Safety", Question: "Is it safe? Are there race conditions in the source samples?"},
			{Label: "Code Intelligence", Question: "Is the logic sophisticated and elegant or naive brute force? Judge the actual source samples."},
			{Label: "Memory & Resource Hygiene", Question: "Leaks? Unnecessary copies? Inefficient loops?"},
		},
	},
	{
		Key:   CategoryKeyPerformance,
		Title: "Performance & Scale",
		Metrics: []RubricMetric{
			{Label: "Critical Path Latency", Question: "Are there bottlenecks in the main loop?"},
			{Label: "Backpressure & Limits", Question: "What happens under load?"},
			{Label: "State Management", Question: "Is there global mutable state?"},
			{Label: "Network Efficiency", Question: "N+1 queries? Bloated payloads?"},
		},
	},
	{
		Key:   CategoryKeySecurity,
		Title: "Security & Robustness",
		Metrics: []RubricMetric{
			{Label: "Input Validation", Question: "Is input validated with a schema or trusted blindly?"},
			{Label: "Supply Chain", Question: "Sketchy dependencies? Unpinned versions?"},
			{Label: "Secrets Management", Question: "Are secrets injected from the environment or hardcoded?"},
			{Label: "Observability", Question: "Logs, metrics, tracing?"},
		},
	},
	{
		Key:   CategoryKeyQA,
		Title: "QA & Operations",
		Metrics: []RubricMetric{
			{Label: "Test Reality", Question: "Are there tests? Do they only cover the happy path?"},
			{Label: "CI/CD Maturity", Question: "Automated pipelines? Linting? Formatting?"},
			{Label: "Docker/Deployment", Question: "Are builds reproducible?"},
			{Label: "Git Hygiene & Commit Quality", Question: "Atomic commits with good messages, or \"fix typo\" spam?"},
		},
	},
}

// Rubric returns the grading rubric in category order. The returned slice is a copy.
func Rubric() []RubricCategory {
	categories := make([]RubricCategory, 0, len(rubricCategories))
	for _, category := range rubricCategories {
		copied := category
		copied.Metrics = append([]RubricMetric(nil), category.Metrics...)
		categories = append(categories, copied)
	}
	return categories
}

// CategoryKeys returns the category keys in rubric order.
func CategoryKeys() []CategoryKey {
	keys := make([]CategoryKey, 0, len(rubricCategories))
	for _, category := range rubricCategories {
		keys = append(keys, category.Key)
	}
	return keys
}
