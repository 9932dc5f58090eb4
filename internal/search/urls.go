package search

import (
	"fmt"
	"strings"

	"github.com/sourcebot-dev/sourcebot-sub003/internal/repostore"
)

// fileWebURL builds a browse link for a file at a branch on the
// repository's code host. Hosts without a known URL template yield an
// empty string; results still render without a link.
func fileWebURL(repo *repostore.Repo, branch, fileName string) string {
	if repo.WebURL == "" {
		return ""
	}
	base := strings.TrimSuffix(repo.WebURL, "/")

	switch repo.CodeHostType {
	case "github":
		return fmt.Sprintf("%s/blob/%s/%s", base, branch, fileName)
	case "gitlab":
		return fmt.Sprintf("%s/-/blob/%s/%s", base, branch, fileName)
	case "gitea":
		return fmt.Sprintf("%s/src/branch/%s/%s", base, branch, fileName)
	case "bitbucket-cloud", "bitbucket-server":
		return fmt.Sprintf("%s/src/%s/%s", base, branch, fileName)
	default:
		return ""
	}
}

// defaultBranchFor picks the branch used in a file's web link: the first
// branch the match was found on, falling back to HEAD.
func defaultBranchFor(branches []string) string {
	if len(branches) > 0 {
		return branches[0]
	}
	return "HEAD"
}
