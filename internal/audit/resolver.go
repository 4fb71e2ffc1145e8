package audit

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/temirov/repoaudit/internal/credentials"
	"github.com/temirov/repoaudit/internal/evidence"
	"github.com/temirov/repoaudit/internal/githubapi"
	"github.com/temirov/repoaudit/internal/oracle"
)

const (
	apiKeySourceErrorTemplateConstant  = "invalid oracle api key source %q: %w"
	apiKeyResolveErrorTemplateConstant = "unable to resolve oracle api key: %w"
	tokenSourceErrorTemplateConstant   = "invalid token source %q: %w"
	tokenResolveErrorTemplateConstant  = "unable to resolve access token: %w"
)

// NewGitHubClientFactory returns a factory producing go-github backed clients for baseURL.
// An empty baseURL targets api.github.com.
func NewGitHubClientFactory(baseURL string, httpClient *http.Client) evidence.HostingClientFactory {
	return func(accessToken string) (evidence.HostingClient, error) {
		client, clientError := githubapi.NewClient(githubapi.ClientConfiguration{
			BaseURL:     baseURL,
			HTTPClient:  httpClient,
			AccessToken: accessToken,
		})
		if clientError != nil {
			return nil, clientError
		}
		return client, nil
	}
}

// NewConfiguredOracle resolves the API key named by the oracle configuration and constructs a Gemini oracle.
func NewConfiguredOracle(executionContext context.Context, configuration OracleConfiguration, tokenResolver credentials.TokenResolver, httpClient *http.Client) (*oracle.GeminiOracle, error) {
	source, sourceError := credentials.ParseTokenSource(configuration.APIKeySource)
	if sourceError != nil {
		return nil, fmt.Errorf(apiKeySourceErrorTemplateConstant, configuration.APIKeySource, sourceError)
	}
	apiKey, resolveError := tokenResolver.ResolveToken(executionContext, source)
	if resolveError != nil {
		return nil, fmt.Errorf(apiKeyResolveErrorTemplateConstant, resolveError)
	}
	return oracle.NewGeminiOracle(executionContext, oracle.GeminiConfiguration{
		APIKey:      apiKey,
		BaseURL:     configuration.BaseURL,
		HTTPClient:  httpClient,
		Temperature: configuration.Temperature,
	})
}

// AccessTokenRequest lists the places an access token may come from, in precedence order.
type AccessTokenRequest struct {
	ExplicitToken     string
	FlagTokenSource   string
	ConfigTokenSource string
}

// ResolveAccessToken picks the hosting access token. An explicit token wins,
// then the flag token source, then the configured token source, then the
// GH_TOKEN, GITHUB_TOKEN, and GITHUB_API_TOKEN variables. An empty result means anonymous access.
func ResolveAccessToken(executionContext context.Context, request AccessTokenRequest, tokenResolver credentials.TokenResolver, environmentLookup credentials.EnvironmentLookup) (string, error) {
	if explicitToken := strings.TrimSpace(request.ExplicitToken); len(explicitToken) > 0 {
		return explicitToken, nil
	}

	for _, sourceValue := range []string{request.FlagTokenSource, request.ConfigTokenSource} {
		if len(strings.TrimSpace(sourceValue)) == 0 {
			continue
		}
		source, sourceError := credentials.ParseTokenSource(sourceValue)
		if sourceError != nil {
			return "", fmt.Errorf(tokenSourceErrorTemplateConstant, sourceValue, sourceError)
		}
		token, resolveError := tokenResolver.ResolveToken(executionContext, source)
		if resolveError != nil {
			return "", fmt.Errorf(tokenResolveErrorTemplateConstant, resolveError)
		}
		return token, nil
	}

	environmentToken, _ := credentials.ResolveGitHubToken(environmentLookup)
	return environmentToken, nil
}
