package evidence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/repoaudit/internal/githubapi"
	"github.com/temirov/repoaudit/internal/locator"
)

const (
	defaultFileTreeLimitConstant          = 300
	defaultCommitLimitConstant            = 20
	shortSHALengthConstant                = 7
	commitDateLayoutConstant              = "2006-01-02"
	unknownCommitDateConstant             = "unknown-date"
	unknownCommitAuthorConstant           = "unknown"
	fallbackTreeReferenceConstant         = "HEAD"
	lineSeparatorConstant                 = "\n"
	clientFactoryMissingMessageConstant   = "hosting client factory not configured"
	clientCreationErrorTemplateConstant   = "unable to create hosting client: %w"
	logFieldRepositoryConstant            = "repository"
	logFieldPathConstant                  = "path"
	logFieldErrorConstant                 = "error"
	logFieldDefaultBranchConstant         = "default_branch"
	logFieldTreeSizeConstant              = "tree_blob_count"
	logFieldManifestCountConstant         = "manifest_count"
	logFieldSourceCountConstant           = "source_sample_count"
	logFieldAuthenticatedConstant         = "authenticated"
	metadataFetchedMessageConstant        = "repository metadata fetched"
	readmeUnavailableMessageConstant      = "README unavailable, using sentinel"
	commitLogUnavailableMessageConstant   = "commit log unavailable, using sentinel"
	fileTreeUnavailableMessageConstant    = "file tree unavailable, skipping file selection"
	fileContentUnavailableMessageConstant = "selected file could not be fetched, skipping"
	evidenceCollectedMessageConstant      = "evidence collected"
)

// ErrClientFactoryMissing indicates the Fetcher was constructed without a client factory.
var ErrClientFactoryMissing = errors.New(clientFactoryMissingMessageConstant)

// HostingClient is the subset of the hosting API used to gather evidence.
type HostingClient interface {
	GetRepository(executionContext context.Context, repository locator.RepositoryIdentifier) (githubapi.RepositoryMetadata, error)
	GetReadme(executionContext context.Context, repository locator.RepositoryIdentifier) (string, error)
	ListCommits(executionContext context.Context, repository locator.RepositoryIdentifier, limit int) ([]githubapi.Commit, error)
	GetTree(executionContext context.Context, repository locator.RepositoryIdentifier, ref string) (githubapi.Tree, error)
	GetFileContent(executionContext context.Context, repository locator.RepositoryIdentifier, filePath string, ref string) (string, error)
}

// HostingClientFactory builds a client scoped to one access token. An empty token means anonymous access.
type HostingClientFactory func(accessToken string) (HostingClient, error)

// FetcherConfiguration bounds the evidence gathered per audit.
type FetcherConfiguration struct {
	FileTreeLimit   int
	CommitLimit     int
	SelectionPolicy SelectionPolicy
}

// Fetcher gathers an evidence Bundle for a repository.
type Fetcher struct {
	logger          *zap.Logger
	clientFactory   HostingClientFactory
	selector        Selector
	fileTreeLimit   int
	commitLimit     int
	sourceLineLimit int
}

// NewFetcher constructs a Fetcher. Non-positive limits fall back to 300 tree paths and 20 commits.
func NewFetcher(logger *zap.Logger, clientFactory HostingClientFactory, configuration FetcherConfiguration) (*Fetcher, error) {
	if clientFactory == nil {
		return nil, ErrClientFactoryMissing
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fileTreeLimit := configuration.FileTreeLimit
	if fileTreeLimit <= 0 {
		fileTreeLimit = defaultFileTreeLimitConstant
	}
	commitLimit := configuration.CommitLimit
	if commitLimit <= 0 {
		commitLimit = defaultCommitLimitConstant
	}
	selector := NewSelector(configuration.SelectionPolicy)

	return &Fetcher{
		logger:          logger,
		clientFactory:   clientFactory,
		selector:        selector,
		fileTreeLimit:   fileTreeLimit,
		commitLimit:     commitLimit,
		sourceLineLimit: selector.Policy().SourceLineLimit,
	}, nil
}

// Fetch gathers evidence for repository. Only the metadata request is fatal;
// README, commit log, and tree failures degrade to sentinels, and a missing
// tree leaves manifests and source samples empty.
func (fetcher *Fetcher) Fetch(executionContext context.Context, repository locator.RepositoryIdentifier, accessToken string) (Bundle, error) {
	client, clientError := fetcher.clientFactory(strings.TrimSpace(accessToken))
	if clientError != nil {
		return Bundle{}, fmt.Errorf(clientCreationErrorTemplateConstant, clientError)
	}

	metadata, metadataError := client.GetRepository(executionContext, repository)
	if metadataError != nil {
		return Bundle{}, metadataError
	}

	repositoryLogger := fetcher.logger.With(zap.String(logFieldRepositoryConstant, repository.String()))
	repositoryLogger.Debug(
		metadataFetchedMessageConstant,
		zap.String(logFieldDefaultBranchConstant, metadata.DefaultBranch),
		zap.Bool(logFieldAuthenticatedConstant, len(strings.TrimSpace(accessToken)) > 0),
	)

	treeReference := metadata.DefaultBranch
	if len(strings.TrimSpace(treeReference)) == 0 {
		treeReference = fallbackTreeReferenceConstant
	}

	bundle := Bundle{Repository: repository, DefaultBranch: metadata.DefaultBranch}
	var treeBlobs []TreeBlob

	var fanOut errgroup.Group
	fanOut.Go(func() error {
		bundle.Readme = fetcher.fetchReadme(executionContext, repositoryLogger, client, repository)
		return nil
	})
	fanOut.Go(func() error {
		bundle.CommitLog = fetcher.fetchCommitLog(executionContext, repositoryLogger, client, repository)
		return nil
	})
	fanOut.Go(func() error {
		bundle.FileTree, treeBlobs = fetcher.fetchFileTree(executionContext, repositoryLogger, client, repository, treeReference)
		return nil
	})
	_ = fanOut.Wait()

	if !bundle.FileTree.Unavailable {
		selection := fetcher.selector.Select(treeBlobs)
		bundle.ManifestFiles, bundle.SourceSamples = fetcher.fetchSelectedFiles(executionContext, repositoryLogger, client, repository, metadata.DefaultBranch, selection)
	}

	repositoryLogger.Debug(
		evidenceCollectedMessageConstant,
		zap.Int(logFieldTreeSizeConstant, len(treeBlobs)),
		zap.Int(logFieldManifestCountConstant, len(bundle.ManifestFiles)),
		zap.Int(logFieldSourceCountConstant, len(bundle.SourceSamples)),
	)

	return bundle, nil
}

func (fetcher *Fetcher) fetchReadme(executionContext context.Context, logger *zap.Logger, client HostingClient, repository locator.RepositoryIdentifier) string {
	readme, readmeError := client.GetReadme(executionContext, repository)
	if readmeError != nil {
		logger.Debug(readmeUnavailableMessageConstant, zap.String(logFieldErrorConstant, readmeError.Error()))
		return ReadmeNotFoundSentinel
	}
	return readme
}

func (fetcher *Fetcher) fetchCommitLog(executionContext context.Context, logger *zap.Logger, client HostingClient, repository locator.RepositoryIdentifier) CommitLog {
	commits, commitsError := client.ListCommits(executionContext, repository, fetcher.commitLimit)
	if commitsError != nil {
		logger.Debug(commitLogUnavailableMessageConstant, zap.String(logFieldErrorConstant, commitsError.Error()))
		return CommitLog{Unavailable: true}
	}

	records := make([]CommitRecord, 0, min(len(commits), fetcher.commitLimit))
	for _, commit := range commits {
		if len(records) == fetcher.commitLimit {
			break
		}
		records = append(records, newCommitRecord(commit))
	}
	return CommitLog{Records: records}
}

func (fetcher *Fetcher) fetchFileTree(executionContext context.Context, logger *zap.Logger, client HostingClient, repository locator.RepositoryIdentifier, ref string) (FileTree, []TreeBlob) {
	tree, treeError := client.GetTree(executionContext, repository, ref)
	if treeError != nil {
		logger.Debug(fileTreeUnavailableMessageConstant, zap.String(logFieldErrorConstant, treeError.Error()))
		return FileTree{Unavailable: true}, nil
	}

	blobs := make([]TreeBlob, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		if entry.Type != githubapi.TreeEntryTypeBlob {
			continue
		}
		blobs = append(blobs, TreeBlob{Path: entry.Path, Size: entry.Size})
	}

	listedCount := min(len(blobs), fetcher.fileTreeLimit)
	paths := make([]string, 0, listedCount)
	for _, blob := range blobs[:listedCount] {
		paths = append(paths, blob.Path)
	}

	return FileTree{
		Paths:           paths,
		OmittedCount:    len(blobs) - listedCount,
		RemoteTruncated: tree.Truncated,
	}, blobs
}

func (fetcher *Fetcher) fetchSelectedFiles(executionContext context.Context, logger *zap.Logger, client HostingClient, repository locator.RepositoryIdentifier, ref string, selection Selection) ([]FileExcerpt, []FileExcerpt) {
	manifestResults := make([]*FileExcerpt, len(selection.Manifests))
	sourceResults := make([]*FileExcerpt, len(selection.Sources))

	var contentFanOut errgroup.Group
	for manifestIndex, manifest := range selection.Manifests {
		contentFanOut.Go(func() error {
			content, contentError := client.GetFileContent(executionContext, repository, manifest.Path, ref)
			if contentError != nil {
				logger.Debug(fileContentUnavailableMessageConstant, zap.String(logFieldPathConstant, manifest.Path), zap.String(logFieldErrorConstant, contentError.Error()))
				return nil
			}
			manifestResults[manifestIndex] = &FileExcerpt{Path: manifest.Path, Content: content}
			return nil
		})
	}
	for sourceIndex, source := range selection.Sources {
		contentFanOut.Go(func() error {
			content, contentError := client.GetFileContent(executionContext, repository, source.Path, ref)
			if contentError != nil {
				logger.Debug(fileContentUnavailableMessageConstant, zap.String(logFieldPathConstant, source.Path), zap.String(logFieldErrorConstant, contentError.Error()))
				return nil
			}
			excerpt := truncateLines(source.Path, content, fetcher.sourceLineLimit)
			sourceResults[sourceIndex] = &excerpt
			return nil
		})
	}
	_ = contentFanOut.Wait()

	return compactExcerpts(manifestResults), compactExcerpts(sourceResults)
}

func newCommitRecord(commit githubapi.Commit) CommitRecord {
	shortSHA := commit.SHA
	if len(shortSHA) > shortSHALengthConstant {
		shortSHA = shortSHA[:shortSHALengthConstant]
	}

	commitDate := unknownCommitDateConstant
	if !commit.AuthoredAt.IsZero() {
		commitDate = commit.AuthoredAt.UTC().Format(commitDateLayoutConstant)
	}

	author := strings.TrimSpace(commit.AuthorName)
	if len(author) == 0 {
		author = unknownCommitAuthorConstant
	}

	subject, _, _ := strings.Cut(commit.Message, lineSeparatorConstant)

	return CommitRecord{
		ShortSHA: shortSHA,
		Date:     commitDate,
		Author:   author,
		Verified: commit.Verified,
		Subject:  strings.TrimSpace(subject),
	}
}

func truncateLines(filePath string, content string, lineLimit int) FileExcerpt {
	lines := strings.Split(content, lineSeparatorConstant)
	if len(lines) <= lineLimit {
		return FileExcerpt{Path: filePath, Content: content}
	}
	return FileExcerpt{
		Path:         filePath,
		Content:      strings.Join(lines[:lineLimit], lineSeparatorConstant),
		Truncated:    true,
		OmittedLines: len(lines) - lineLimit,
	}
}

func compactExcerpts(results []*FileExcerpt) []FileExcerpt {
	excerpts := make([]FileExcerpt, 0, len(results))
	for _, result := range results {
		if result != nil {
			excerpts = append(excerpts, *result)
		}
	}
	return excerpts
}
