package audit_test

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/repoaudit/internal/audit"
	"github.com/temirov/repoaudit/internal/credentials"
)

const (
	testTokenFilePathConstant = "/secrets/github-token"
	testFileTokenConstant     = "file-token"
	testFlagEnvTokenConstant  = "flag-env-token"
	testGHTokenConstant       = "gh-env-token"
)

func environmentFrom(values map[string]string) credentials.EnvironmentLookup {
	return func(key string) (string, bool) {
		value, found := values[key]
		return value, found
	}
}

func fileReaderFrom(files map[string]string) credentials.FileReader {
	return func(path string) ([]byte, error) {
		contents, found := files[path]
		if !found {
			return nil, fs.ErrNotExist
		}
		return []byte(contents), nil
	}
}

func TestResolveAccessTokenPrecedence(testInstance *testing.T) {
	environment := map[string]string{
		"FLAG_TOKEN": testFlagEnvTokenConstant,
		"GH_TOKEN":   testGHTokenConstant,
	}
	files := map[string]string{testTokenFilePathConstant: testFileTokenConstant + "\n"}

	testCases := []struct {
		name          string
		request       audit.AccessTokenRequest
		environment   map[string]string
		expectedToken string
		expectedError error
	}{
		{
			name:          "explicit_token_wins",
			request:       audit.AccessTokenRequest{ExplicitToken: " explicit ", FlagTokenSource: "env:FLAG_TOKEN", ConfigTokenSource: "file:" + testTokenFilePathConstant},
			environment:   environment,
			expectedToken: "explicit",
		},
		{
			name:          "flag_source_before_configuration",
			request:       audit.AccessTokenRequest{FlagTokenSource: "env:FLAG_TOKEN", ConfigTokenSource: "file:" + testTokenFilePathConstant},
			environment:   environment,
			expectedToken: testFlagEnvTokenConstant,
		},
		{
			name:          "configured_file_source",
			request:       audit.AccessTokenRequest{ConfigTokenSource: "file:" + testTokenFilePathConstant},
			environment:   environment,
			expectedToken: testFileTokenConstant,
		},
		{
			name:          "environment_fallback",
			request:       audit.AccessTokenRequest{},
			environment:   environment,
			expectedToken: testGHTokenConstant,
		},
		{
			name:          "anonymous_without_tokens",
			request:       audit.AccessTokenRequest{},
			environment:   map[string]string{},
			expectedToken: "",
		},
		{
			name:          "missing_configured_variable",
			request:       audit.AccessTokenRequest{ConfigTokenSource: "env:ABSENT_TOKEN"},
			environment:   environment,
			expectedError: credentials.ErrTokenUnavailable,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			lookup := environmentFrom(testCase.environment)
			resolver := credentials.NewTokenResolver(lookup, fileReaderFrom(files))

			token, resolveError := audit.ResolveAccessToken(context.Background(), testCase.request, resolver, lookup)
			if testCase.expectedError != nil {
				require.ErrorIs(subTest, resolveError, testCase.expectedError)
				return
			}
			require.NoError(subTest, resolveError)
			require.Equal(subTest, testCase.expectedToken, token)
		})
	}
}

func TestResolveAccessTokenRejectsUnknownSourceType(testInstance *testing.T) {
	lookup := environmentFrom(map[string]string{})
	resolver := credentials.NewTokenResolver(lookup, fileReaderFrom(nil))

	_, resolveError := audit.ResolveAccessToken(context.Background(), audit.AccessTokenRequest{FlagTokenSource: "vault:secret/github"}, resolver, lookup)
	require.Error(testInstance, resolveError)
	require.Contains(testInstance, resolveError.Error(), "vault:secret/github")
}

func TestNewConfiguredOracle(testInstance *testing.T) {
	testCases := []struct {
		name          string
		environment   map[string]string
		expectSuccess bool
		expectedError error
	}{
		{
			name:          "api_key_from_environment",
			environment:   map[string]string{"GEMINI_API_KEY": "test-api-key"},
			expectSuccess: true,
		},
		{
			name:          "api_key_missing",
			environment:   map[string]string{},
			expectedError: credentials.ErrTokenUnavailable,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			resolver := credentials.NewTokenResolver(environmentFrom(testCase.environment), fileReaderFrom(nil))
			configuration := audit.DefaultCommandConfiguration().Oracle

			geminiOracle, oracleError := audit.NewConfiguredOracle(context.Background(), configuration, resolver, nil)
			if !testCase.expectSuccess {
				require.ErrorIs(subTest, oracleError, testCase.expectedError)
				require.Nil(subTest, geminiOracle)
				return
			}
			require.NoError(subTest, oracleError)
			require.NotNil(subTest, geminiOracle)
		})
	}
}
