package evidence

import "github.com/temirov/repoaudit/internal/locator"

// Sentinel values substituted when an optional fetch fails or yields nothing.
const (
	ReadmeNotFoundSentinel         = "[No README found]"
	CommitLogUnavailableSentinel   = "[Could not fetch commits]"
	CommitLogEmptySentinel         = "[No commits found]"
	FileTreeUnavailableSentinel    = "[Could not fetch file tree]"
	FileTreeEmptySentinel          = "[No files found]"
	ManifestFilesNotFoundSentinel  = "[No manifest files found]"
	SourceSamplesNotFoundSentinel  = "[No source samples selected]"
	ReadmeEmptySentinel            = "[README is empty]"
	sourceSampleTruncationMarker   = "...(truncated)"
	fileTreeOmittedEntriesTemplate = "... (%d more files)"
	fileTreeRemoteTruncatedMarker  = "... (listing truncated by the hosting API)"
)

// Bundle is the evidence gathered for one audit. It is built once and not mutated afterwards.
type Bundle struct {
	Repository    locator.RepositoryIdentifier
	DefaultBranch string
	FileTree      FileTree
	Readme        string
	CommitLog     CommitLog
	ManifestFiles []FileExcerpt
	SourceSamples []FileExcerpt
}

// FileTree lists blob paths in tree order, capped at a fixed number of entries.
type FileTree struct {
	Paths        []string
	OmittedCount int
	// RemoteTruncated is set when the hosting API itself truncated the recursive listing.
	RemoteTruncated bool
	Unavailable     bool
}

// CommitLog holds compact commit records, most recent first.
type CommitLog struct {
	Records     []CommitRecord
	Unavailable bool
}

// CommitRecord is a one-line summary of a commit.
type CommitRecord struct {
	ShortSHA string
	Date     string
	Author   string
	Verified bool
	Subject  string
}

// FileExcerpt is the decoded content of a selected file.
type FileExcerpt struct {
	Path         string
	Content      string
	Truncated    bool
	OmittedLines int
}
