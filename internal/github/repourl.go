package gh

import (
	"fmt"
	"regexp"
	"strings"
)

// repoURLPattern is the only repository address shape the publisher accepts:
// an HTTPS github.com URL with owner and name segments, optionally suffixed
// with .git.
var repoURLPattern = regexp.MustCompile(`^https://github\.com/([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+?)(\.git)?$`)

// Repo is a parsed target repository reference.
type Repo struct {
	// URL is the address exactly as supplied by the operator.
	URL   string
	Owner string
	Name  string
}

// ParseRepoURL validates raw against the accepted address pattern and splits
// out the owner and repository name. The .git suffix, when present, is not
// part of the name.
func ParseRepoURL(raw string) (Repo, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Repo{}, fmt.Errorf("repository URL is empty")
	}

	match := repoURLPattern.FindStringSubmatch(trimmed)
	if match == nil {
		return Repo{}, fmt.Errorf("repository URL %q does not match https://github.com/<owner>/<name>[.git]", trimmed)
	}

	return Repo{URL: trimmed, Owner: match[1], Name: match[2]}, nil
}
