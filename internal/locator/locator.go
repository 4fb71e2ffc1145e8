package locator

import (
	"errors"
	"fmt"
	"strings"
)

const (
	defaultHostConstant                    = "github.com"
	wwwHostPrefixConstant                  = "www."
	schemeSeparatorConstant                = "://"
	pathSeparatorConstant                  = "/"
	querySeparatorConstant                 = "?"
	fragmentSeparatorConstant              = "#"
	userInfoSeparatorConstant              = "@"
	portSeparatorConstant                  = ":"
	gitSuffixConstant                      = ".git"
	identifierTemplateConstant             = "%s/%s"
	invalidRepositoryURLMessageConstant    = "invalid repository URL"
	invalidRepositoryURLTemplateConstant   = "%s %q: expected https://%s/<owner>/<repo>"
	minimumPathSegmentCountConstant        = 3
	hostSegmentIndexConstant               = 0
	ownerSegmentIndexConstant              = 1
	repositoryNameSegmentIndexConstant     = 2
	unsupportedHostReasonConstant          = "unsupported host"
	missingOwnerOrRepositoryReasonConstant = "missing owner or repository"
	emptyInputReasonConstant               = "empty input"
)

// ErrInvalidRepositoryURL reports input that does not look like a hosted repository URL.
var ErrInvalidRepositoryURL = errors.New(invalidRepositoryURLMessageConstant)

// RepositoryIdentifier names a repository on the hosting service.
type RepositoryIdentifier struct {
	Owner string
	Name  string
}

// String renders the identifier as owner/name.
func (identifier RepositoryIdentifier) String() string {
	return fmt.Sprintf(identifierTemplateConstant, identifier.Owner, identifier.Name)
}

// InvalidRepositoryURLError describes why an input was rejected.
type InvalidRepositoryURLError struct {
	Input  string
	Reason string
	Host   string
}

// Error describes the rejected input.
func (parseError InvalidRepositoryURLError) Error() string {
	return fmt.Sprintf(invalidRepositoryURLTemplateConstant, invalidRepositoryURLMessageConstant, parseError.Input, parseError.Host) + " (" + parseError.Reason + ")"
}

// Is matches ErrInvalidRepositoryURL.
func (parseError InvalidRepositoryURLError) Is(target error) bool {
	return target == ErrInvalidRepositoryURL
}

// Locator parses repository URLs for a fixed set of hosts.
type Locator struct {
	allowedHosts map[string]struct{}
	primaryHost  string
}

// NewLocator builds a Locator accepting the given hosts. Without hosts it accepts github.com.
func NewLocator(hosts ...string) *Locator {
	allowedHosts := make(map[string]struct{}, len(hosts)+1)
	primaryHost := ""
	for _, host := range hosts {
		normalizedHost := normalizeHost(host)
		if len(normalizedHost) == 0 {
			continue
		}
		if len(primaryHost) == 0 {
			primaryHost = normalizedHost
		}
		allowedHosts[normalizedHost] = struct{}{}
	}
	if len(allowedHosts) == 0 {
		primaryHost = defaultHostConstant
		allowedHosts[defaultHostConstant] = struct{}{}
	}
	return &Locator{allowedHosts: allowedHosts, primaryHost: primaryHost}
}

// ParseRepositoryURL parses raw with the default github.com locator.
func ParseRepositoryURL(raw string) (RepositoryIdentifier, error) {
	return NewLocator().Parse(raw)
}

// Parse extracts the owner and repository name from raw, ignoring trailing
// path segments, query strings, and fragments.
func (locator *Locator) Parse(raw string) (RepositoryIdentifier, error) {
	trimmedInput := strings.TrimRight(strings.TrimSpace(raw), pathSeparatorConstant)
	if len(trimmedInput) == 0 {
		return RepositoryIdentifier{}, locator.invalid(raw, emptyInputReasonConstant)
	}

	remainder := trimmedInput
	if schemeIndex := strings.Index(remainder, schemeSeparatorConstant); schemeIndex >= 0 {
		remainder = remainder[schemeIndex+len(schemeSeparatorConstant):]
	}
	if cutIndex := strings.IndexAny(remainder, querySeparatorConstant+fragmentSeparatorConstant); cutIndex >= 0 {
		remainder = remainder[:cutIndex]
	}

	segments := strings.Split(remainder, pathSeparatorConstant)
	if len(segments) < minimumPathSegmentCountConstant {
		return RepositoryIdentifier{}, locator.invalid(raw, missingOwnerOrRepositoryReasonConstant)
	}

	host := normalizeHost(segments[hostSegmentIndexConstant])
	if _, allowed := locator.allowedHosts[host]; !allowed {
		return RepositoryIdentifier{}, locator.invalid(raw, unsupportedHostReasonConstant)
	}

	owner := strings.TrimSpace(segments[ownerSegmentIndexConstant])
	repositoryName := strings.TrimSuffix(strings.TrimSpace(segments[repositoryNameSegmentIndexConstant]), gitSuffixConstant)
	if len(owner) == 0 || len(repositoryName) == 0 {
		return RepositoryIdentifier{}, locator.invalid(raw, missingOwnerOrRepositoryReasonConstant)
	}

	return RepositoryIdentifier{Owner: owner, Name: repositoryName}, nil
}

func (locator *Locator) invalid(raw string, reason string) error {
	return InvalidRepositoryURLError{Input: raw, Reason: reason, Host: locator.primaryHost}
}

func normalizeHost(host string) string {
	normalizedHost := strings.ToLower(strings.TrimSpace(host))
	if userInfoIndex := strings.LastIndex(normalizedHost, userInfoSeparatorConstant); userInfoIndex >= 0 {
		normalizedHost = normalizedHost[userInfoIndex+1:]
	}
	if portIndex := strings.Index(normalizedHost, portSeparatorConstant); portIndex >= 0 {
		normalizedHost = normalizedHost[:portIndex]
	}
	return strings.TrimPrefix(normalizedHost, wwwHostPrefixConstant)
}
