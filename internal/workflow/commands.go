package workflow

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// authCommand builds the delegated-credential command. gh-scoped-creds runs
// inside the kernel's environment and walks the operator through granting the
// GitHub App narrowly-scoped access to the target repository.
func authCommand(clientID, issuerURL string) string {
	return fmt.Sprintf("gh-scoped-creds --client-id %q --github-app-url %q", clientID, issuerURL)
}

// newScratchDir generates a unique scratch directory name for one publish
// sequence.
func newScratchDir() string {
	return "nbpublish-" + uuid.NewString()
}

// publishScript builds the clone/copy/freeze/commit/push sequence as one
// shell submission. The script deliberately carries no per-line exit checks:
// a failing line is visible only through the log panel, and later lines run
// regardless, matching how an unchecked shell script behaves. The trailing
// removal of the scratch directory is therefore best-effort too.
func publishScript(repoURL, notebookPath, scratchDir, branch, commitMessage string) string {
	lines := []string{
		fmt.Sprintf("git clone %q %q", repoURL, scratchDir),
		fmt.Sprintf("cp %q %q/", notebookPath, scratchDir),
		fmt.Sprintf("cd %q", scratchDir),
		"pip freeze > requirements.txt",
		"python --version > runtime.txt",
		"git add .",
		fmt.Sprintf("git commit -m %q", commitMessage),
		fmt.Sprintf("git push origin %s", branch),
		"cd ..",
		fmt.Sprintf("rm -rf %q", scratchDir),
	}
	return strings.Join(lines, "\n")
}
