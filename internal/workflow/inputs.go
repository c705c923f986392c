package workflow

import (
	"strings"

	gh "github.com/mitodl/nbpublish/internal/github"
	"github.com/mitodl/nbpublish/internal/logpanel"
)

// Prompter collects a single line of operator input.
type Prompter interface {
	ReadLine(prompt string) (string, error)
}

// Inputs are the three operator-supplied values one publish run needs, plus
// the resolved notebook path.
type Inputs struct {
	ClientID     string
	IssuerURL    string
	Repo         gh.Repo
	NotebookPath string
}

// collectInputs assembles the run's inputs from configuration (client ID,
// issuer URL) and one interactive prompt (repository URL, unless already
// provided). A false return means the workflow must stop; exactly one panel
// line explains why. There is no per-field retry.
func collectInputs(cfg Config, prompter Prompter, panel *logpanel.Panel) (Inputs, bool) {
	clientID := strings.TrimSpace(cfg.ClientID)
	if clientID == "" {
		panel.Append("GitHub App client ID is not configured; aborting.")
		return Inputs{}, false
	}

	issuerURL := strings.TrimSpace(cfg.IssuerURL)
	if issuerURL == "" {
		panel.Append("GitHub App URL is not configured; aborting.")
		return Inputs{}, false
	}

	repoURL := strings.TrimSpace(cfg.RepoURL)
	if repoURL == "" {
		answer, err := prompter.ReadLine("Target repository URL (https://github.com/<owner>/<name>): ")
		if err != nil {
			panel.Append("Could not read repository URL; aborting.")
			return Inputs{}, false
		}
		repoURL = strings.TrimSpace(answer)
	}

	if repoURL == "" {
		panel.Append("No repository URL provided; aborting.")
		return Inputs{}, false
	}

	repo, err := gh.ParseRepoURL(repoURL)
	if err != nil {
		panel.Append("Invalid repository URL: " + err.Error())
		return Inputs{}, false
	}

	return Inputs{
		ClientID:     clientID,
		IssuerURL:    issuerURL,
		Repo:         repo,
		NotebookPath: cfg.NotebookPath,
	}, true
}
