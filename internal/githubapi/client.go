package githubapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"

	"github.com/temirov/repoaudit/internal/locator"
)

const (
	baseURLTrailingSlashConstant        = "/"
	invalidBaseURLTemplateConstant      = "invalid GitHub API base URL %q: %w"
	defaultUserAgentConstant            = "repoaudit"
	notAFileMessageConstant             = "path does not reference a file"
	getRepositoryOperationNameConstant  = OperationName("GetRepository")
	getReadmeOperationNameConstant      = OperationName("GetReadme")
	listCommitsOperationNameConstant    = OperationName("ListCommits")
	getTreeOperationNameConstant        = OperationName("GetTree")
	getFileContentOperationNameConstant = OperationName("GetFileContent")
	recursiveTreeListingConstant        = true
	minimumCommitPageSizeConstant       = 1
	maximumCommitPageSizeConstant       = 100
)

// Tree entry types reported by the recursive listing.
const (
	TreeEntryTypeBlob = "blob"
	TreeEntryTypeTree = "tree"
)

// OperationName identifies a hosting API call for error reporting.
type OperationName string

// RepositoryMetadata holds the repository facts the audit relies on.
type RepositoryMetadata struct {
	FullName      string
	Description   string
	DefaultBranch string
}

// Commit is a single entry of the commit log.
type Commit struct {
	SHA        string
	AuthorName string
	AuthoredAt time.Time
	Verified   bool
	Message    string
}

// TreeEntry is a node of the recursive tree listing.
type TreeEntry struct {
	Path string
	Type string
	Size int64
}

// Tree is the recursive listing of a ref.
type Tree struct {
	SHA       string
	Entries   []TreeEntry
	Truncated bool
}

// ClientConfiguration controls how a Client reaches the API.
type ClientConfiguration struct {
	BaseURL     string
	HTTPClient  *http.Client
	AccessToken string
	UserAgent   string
}

// Client issues read-only repository requests. A Client is scoped to one
// access token; construct a new one per audit.
type Client struct {
	restClient    *github.Client
	authenticated bool
}

// NewClient constructs a Client. An empty AccessToken produces anonymous requests.
func NewClient(configuration ClientConfiguration) (*Client, error) {
	restClient := github.NewClient(configuration.HTTPClient)

	trimmedToken := strings.TrimSpace(configuration.AccessToken)
	if len(trimmedToken) > 0 {
		restClient = restClient.WithAuthToken(trimmedToken)
	}

	trimmedBaseURL := strings.TrimSpace(configuration.BaseURL)
	if len(trimmedBaseURL) > 0 {
		if !strings.HasSuffix(trimmedBaseURL, baseURLTrailingSlashConstant) {
			trimmedBaseURL += baseURLTrailingSlashConstant
		}
		parsedBaseURL, parseError := url.Parse(trimmedBaseURL)
		if parseError != nil {
			return nil, fmt.Errorf(invalidBaseURLTemplateConstant, trimmedBaseURL, parseError)
		}
		restClient.BaseURL = parsedBaseURL
	}

	restClient.UserAgent = defaultUserAgentConstant
	if userAgent := strings.TrimSpace(configuration.UserAgent); len(userAgent) > 0 {
		restClient.UserAgent = userAgent
	}

	return &Client{restClient: restClient, authenticated: len(trimmedToken) > 0}, nil
}

// Authenticated reports whether requests carry an access token.
func (client *Client) Authenticated() bool {
	return client.authenticated
}

// GetRepository fetches repository metadata, including the default branch.
func (client *Client) GetRepository(executionContext context.Context, repository locator.RepositoryIdentifier) (RepositoryMetadata, error) {
	repositoryDetails, response, requestError := client.restClient.Repositories.Get(executionContext, repository.Owner, repository.Name)
	if requestError != nil {
		return RepositoryMetadata{}, translateError(getRepositoryOperationNameConstant, response, requestError)
	}

	return RepositoryMetadata{
		FullName:      repositoryDetails.GetFullName(),
		Description:   repositoryDetails.GetDescription(),
		DefaultBranch: repositoryDetails.GetDefaultBranch(),
	}, nil
}

// GetReadme fetches and decodes the repository README.
func (client *Client) GetReadme(executionContext context.Context, repository locator.RepositoryIdentifier) (string, error) {
	readmeContent, response, requestError := client.restClient.Repositories.GetReadme(executionContext, repository.Owner, repository.Name, nil)
	if requestError != nil {
		return "", translateError(getReadmeOperationNameConstant, response, requestError)
	}
	return decodeContent(getReadmeOperationNameConstant, readmeContent)
}

// ListCommits returns at most limit commits of the default branch, most recent first.
func (client *Client) ListCommits(executionContext context.Context, repository locator.RepositoryIdentifier, limit int) ([]Commit, error) {
	pageSize := min(max(limit, minimumCommitPageSizeConstant), maximumCommitPageSizeConstant)
	listOptions := &github.CommitsListOptions{ListOptions: github.ListOptions{PerPage: pageSize}}

	repositoryCommits, response, requestError := client.restClient.Repositories.ListCommits(executionContext, repository.Owner, repository.Name, listOptions)
	if requestError != nil {
		return nil, translateError(listCommitsOperationNameConstant, response, requestError)
	}

	commits := make([]Commit, 0, min(len(repositoryCommits), pageSize))
	for _, repositoryCommit := range repositoryCommits {
		if len(commits) == pageSize {
			break
		}
		commitDetails := repositoryCommit.GetCommit()
		commitAuthor := commitDetails.GetAuthor()
		commits = append(commits, Commit{
			SHA:        repositoryCommit.GetSHA(),
			AuthorName: commitAuthor.GetName(),
			AuthoredAt: commitAuthor.GetDate().Time,
			Verified:   commitDetails.GetVerification().GetVerified(),
			Message:    commitDetails.GetMessage(),
		})
	}
	return commits, nil
}

// GetTree returns the recursive tree listing of ref.
func (client *Client) GetTree(executionContext context.Context, repository locator.RepositoryIdentifier, ref string) (Tree, error) {
	gitTree, response, requestError := client.restClient.Git.GetTree(executionContext, repository.Owner, repository.Name, ref, recursiveTreeListingConstant)
	if requestError != nil {
		return Tree{}, translateError(getTreeOperationNameConstant, response, requestError)
	}

	entries := make([]TreeEntry, 0, len(gitTree.Entries))
	for _, treeEntry := range gitTree.Entries {
		entries = append(entries, TreeEntry{
			Path: treeEntry.GetPath(),
			Type: treeEntry.GetType(),
			Size: int64(treeEntry.GetSize()),
		})
	}

	return Tree{SHA: gitTree.GetSHA(), Entries: entries, Truncated: gitTree.GetTruncated()}, nil
}

// GetFileContent fetches and decodes a single file at ref. An empty ref targets the default branch.
func (client *Client) GetFileContent(executionContext context.Context, repository locator.RepositoryIdentifier, filePath string, ref string) (string, error) {
	var contentOptions *github.RepositoryContentGetOptions
	if trimmedRef := strings.TrimSpace(ref); len(trimmedRef) > 0 {
		contentOptions = &github.RepositoryContentGetOptions{Ref: trimmedRef}
	}

	fileContent, _, response, requestError := client.restClient.Repositories.GetContents(executionContext, repository.Owner, repository.Name, filePath, contentOptions)
	if requestError != nil {
		return "", translateError(getFileContentOperationNameConstant, response, requestError)
	}
	if fileContent == nil {
		return "", ResponseDecodingError{Operation: getFileContentOperationNameConstant, Cause: errors.New(notAFileMessageConstant)}
	}
	return decodeContent(getFileContentOperationNameConstant, fileContent)
}

func decodeContent(operation OperationName, content *github.RepositoryContent) (string, error) {
	decodedContent, decodeError := content.GetContent()
	if decodeError != nil {
		return "", ResponseDecodingError{Operation: operation, Cause: decodeError}
	}
	return decodedContent, nil
}
