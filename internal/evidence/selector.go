package evidence

import (
	"path"
	"slices"
	"strings"
)

const (
	defaultManifestLimitConstant   = 3
	defaultSourceLimitConstant     = 2
	defaultSourceMinBytesConstant  = 1000
	defaultSourceMaxBytesConstant  = 50000
	defaultSourceLineLimitConstant = 200
)

var defaultManifestNames = []string{
	"package.json",
	"Cargo.toml",
	"go.mod",
	"requirements.txt",
	"pom.xml",
	"docker-compose.yml",
	"Dockerfile",
	"Makefile",
	"pyproject.toml",
	"build.gradle",
	"Gemfile",
	"composer.json",
}

var defaultSourceExtensions = []string{
	".ts", ".tsx", ".js", ".jsx", ".rs", ".go", ".py", ".rb",
	".java", ".cpp", ".c", ".h", ".swift", ".kt", ".php",
}

// TreeBlob is a file entry of the repository tree.
type TreeBlob struct {
	Path string
	Size int64
}

// SelectionPolicy tunes the file-selection heuristics.
type SelectionPolicy struct {
	ManifestNames    []string
	ManifestLimit    int
	SourceExtensions []string
	// Source files must satisfy SourceMinBytes < size < SourceMaxBytes.
	SourceMinBytes  int64
	SourceMaxBytes  int64
	SourceLimit     int
	SourceLineLimit int
}

// DefaultSelectionPolicy returns the stock manifest and source-sampling heuristics.
func DefaultSelectionPolicy() SelectionPolicy {
	return SelectionPolicy{
		ManifestNames:    slices.Clone(defaultManifestNames),
		ManifestLimit:    defaultManifestLimitConstant,
		SourceExtensions: slices.Clone(defaultSourceExtensions),
		SourceMinBytes:   defaultSourceMinBytesConstant,
		SourceMaxBytes:   defaultSourceMaxBytesConstant,
		SourceLimit:      defaultSourceLimitConstant,
		SourceLineLimit:  defaultSourceLineLimitConstant,
	}
}

// Sanitize fills unset or invalid fields from the defaults.
func (policy SelectionPolicy) Sanitize() SelectionPolicy {
	defaults := DefaultSelectionPolicy()
	sanitized := policy

	sanitized.ManifestNames = sanitizeNames(policy.ManifestNames)
	if len(sanitized.ManifestNames) == 0 {
		sanitized.ManifestNames = defaults.ManifestNames
	}
	sanitized.SourceExtensions = sanitizeNames(policy.SourceExtensions)
	if len(sanitized.SourceExtensions) == 0 {
		sanitized.SourceExtensions = defaults.SourceExtensions
	}
	if sanitized.ManifestLimit <= 0 {
		sanitized.ManifestLimit = defaults.ManifestLimit
	}
	if sanitized.SourceLimit <= 0 {
		sanitized.SourceLimit = defaults.SourceLimit
	}
	if sanitized.SourceMinBytes < 0 {
		sanitized.SourceMinBytes = defaults.SourceMinBytes
	}
	if sanitized.SourceMaxBytes <= sanitized.SourceMinBytes {
		sanitized.SourceMaxBytes = max(defaults.SourceMaxBytes, sanitized.SourceMinBytes+1)
	}
	if sanitized.SourceLineLimit <= 0 {
		sanitized.SourceLineLimit = defaults.SourceLineLimit
	}
	return sanitized
}

// Selection is the chosen subset of the tree, in selection order.
type Selection struct {
	Manifests []TreeBlob
	Sources   []TreeBlob
}

// Selector picks manifest and source files from a tree. It is deterministic
// and never fails; an empty candidate set yields an empty selection.
type Selector struct {
	policy           SelectionPolicy
	manifestNames    map[string]struct{}
	sourceExtensions map[string]struct{}
}

// NewSelector builds a Selector for the sanitized policy.
func NewSelector(policy SelectionPolicy) Selector {
	sanitizedPolicy := policy.Sanitize()
	return Selector{
		policy:           sanitizedPolicy,
		manifestNames:    toSet(sanitizedPolicy.ManifestNames),
		sourceExtensions: toSet(sanitizedPolicy.SourceExtensions),
	}
}

// Policy returns the effective policy.
func (selector Selector) Policy() SelectionPolicy {
	return selector.policy
}

// Select runs filter -> sort -> take over a snapshot of blobs.
func (selector Selector) Select(blobs []TreeBlob) Selection {
	snapshot := slices.Clone(blobs)
	return Selection{
		Manifests: selector.selectManifests(snapshot),
		Sources:   selector.selectSources(snapshot),
	}
}

func (selector Selector) selectManifests(blobs []TreeBlob) []TreeBlob {
	manifests := make([]TreeBlob, 0, selector.policy.ManifestLimit)
	for _, blob := range blobs {
		if len(manifests) >= selector.policy.ManifestLimit {
			break
		}
		if _, known := selector.manifestNames[path.Base(blob.Path)]; known {
			manifests = append(manifests, blob)
		}
	}
	return manifests
}

func (selector Selector) selectSources(blobs []TreeBlob) []TreeBlob {
	candidates := make([]TreeBlob, 0)
	for _, blob := range blobs {
		if _, sourceLike := selector.sourceExtensions[path.Ext(blob.Path)]; !sourceLike {
			continue
		}
		if blob.Size <= selector.policy.SourceMinBytes || blob.Size >= selector.policy.SourceMaxBytes {
			continue
		}
		candidates = append(candidates, blob)
	}

	slices.SortStableFunc(candidates, func(left TreeBlob, right TreeBlob) int {
		switch {
		case left.Size > right.Size:
			return -1
		case left.Size < right.Size:
			return 1
		default:
			return 0
		}
	})

	return candidates[:min(len(candidates), selector.policy.SourceLimit)]
}

func sanitizeNames(names []string) []string {
	sanitized := make([]string, 0, len(names))
	for _, name := range names {
		trimmedName := strings.TrimSpace(name)
		if len(trimmedName) == 0 || slices.Contains(sanitized, trimmedName) {
			continue
		}
		sanitized = append(sanitized, trimmedName)
	}
	return sanitized
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		set[value] = struct{}{}
	}
	return set
}
