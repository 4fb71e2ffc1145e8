package credentials

import "strings"

// Environment variable names consulted for an implicit GitHub token, in preference order.
const (
	EnvGitHubCLIToken = "GH_TOKEN"
	EnvGitHubToken    = "GITHUB_TOKEN"
	EnvGitHubAPIToken = "GITHUB_API_TOKEN"
)

var gitHubTokenPreference = []string{
	EnvGitHubCLIToken,
	EnvGitHubToken,
	EnvGitHubAPIToken,
}

// ResolveGitHubToken returns the first non-empty GitHub token in the environment.
// An empty result with false means requests go out anonymously.
func ResolveGitHubToken(environmentLookup EnvironmentLookup) (string, bool) {
	if environmentLookup == nil {
		return "", false
	}
	for _, variableName := range gitHubTokenPreference {
		value, found := environmentLookup(variableName)
		if !found {
			continue
		}
		trimmedValue := strings.TrimSpace(value)
		if len(trimmedValue) > 0 {
			return trimmedValue, true
		}
	}
	return "", false
}
