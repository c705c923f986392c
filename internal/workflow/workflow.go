package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	gh "github.com/mitodl/nbpublish/internal/github"
	"github.com/mitodl/nbpublish/internal/kernel"
	"github.com/mitodl/nbpublish/internal/logpanel"
)

// ErrAlreadyRunning is returned when a publish run is invoked while a previous
// one on the same Workflow has not finished. Runs share the panel, so only one
// may be in flight.
var ErrAlreadyRunning = errors.New("a publish run is already in progress")

// Config captures the runtime controls one publish run needs.
type Config struct {
	// ClientID identifies the pre-registered GitHub App issuing scoped
	// credentials.
	ClientID string

	// IssuerURL is the GitHub App's installation URL, shown to the operator
	// during the grant.
	IssuerURL string

	// RepoURL, when set, skips the interactive repository prompt.
	RepoURL string

	// NotebookPath is the notebook file to publish.
	NotebookPath string

	// Branch is the branch pushed to. Config defaults it to "main".
	Branch string

	// CommitMessage is the fixed message for the publish commit.
	CommitMessage string

	// VerifyAuth enables the post-authentication GitHub API check.
	VerifyAuth bool

	// GitHubToken is used only for the verification check, never for the
	// push itself; the push relies on the credentials the kernel-side helper
	// installed.
	GitHubToken string
}

// Workflow runs the two-step publish sequence: acquire scoped credentials,
// then clone/commit/push the notebook and its environment snapshot. Steps are
// strictly sequential; each kernel submission is awaited before the next
// begins.
type Workflow struct {
	cfg        Config
	submitter  kernel.Submitter
	ghFactory  gh.Factory
	prompter   Prompter
	interactor Interactor
	panel      *logpanel.Panel
	out        io.Writer
	log        *slog.Logger

	running atomic.Bool
}

// New assembles a Workflow. The panel starts detached and is attached to out
// when a run begins.
func New(cfg Config, submitter kernel.Submitter, ghFactory gh.Factory, prompter Prompter, interactor Interactor, out io.Writer, log *slog.Logger) *Workflow {
	return &Workflow{
		cfg:        cfg,
		submitter:  submitter,
		ghFactory:  ghFactory,
		prompter:   prompter,
		interactor: interactor,
		panel:      logpanel.New(log),
		out:        out,
		log:        log,
	}
}

// Run executes one publish invocation. Input problems and a declined
// confirmation end the run cleanly with a single panel line; an error return
// is reserved for preconditions (kernel unreachable, submission transport
// failure) and for a second concurrent invocation.
func (w *Workflow) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer w.running.Store(false)

	if w.submitter == nil {
		return fmt.Errorf("kernel submitter is required")
	}
	if w.cfg.NotebookPath == "" {
		return fmt.Errorf("no notebook to publish")
	}

	// The panel is created lazily per run and must be showing before input
	// collection so a failed collection can surface its one line.
	w.panel.Attach(w.out)

	inputs, ok := collectInputs(w.cfg, w.prompter, w.panel)
	if !ok {
		return nil
	}

	adapter := NewAdapter(w.panel)

	w.panel.Append("Requesting scoped GitHub credentials...")
	if err := w.submitter.Submit(ctx, authCommand(inputs.ClientID, inputs.IssuerURL), adapter.HandleMessage); err != nil {
		var cmdErr *kernel.CommandError
		if !errors.As(err, &cmdErr) {
			return fmt.Errorf("submit credential command: %w", err)
		}
		// A non-zero exit already produced panel output; reading it is left
		// to the operator and the run continues.
	}

	w.verifyCredentials(ctx, inputs.Repo)

	question := fmt.Sprintf("Have you granted the GitHub App (%s) access to %s/%s?", inputs.IssuerURL, inputs.Repo.Owner, inputs.Repo.Name)
	if !w.interactor.ConfirmYesNo(question) {
		w.panel.Append("Publish aborted: repository access was not confirmed.")
		return nil
	}

	scratch := newScratchDir()
	script := publishScript(inputs.Repo.URL, inputs.NotebookPath, scratch, w.cfg.Branch, w.cfg.CommitMessage)

	w.panel.Append(fmt.Sprintf("Publishing %s to %s...", inputs.NotebookPath, inputs.Repo.URL))
	if err := w.submitter.Submit(ctx, script, adapter.HandleMessage); err != nil {
		var cmdErr *kernel.CommandError
		if !errors.As(err, &cmdErr) {
			return fmt.Errorf("submit publish script: %w", err)
		}
	}

	return nil
}

// verifyCredentials asks the GitHub API who the credential is and whether it
// can see the target repository, when enabled and a token is at hand.
// Outcomes are advisory panel lines; the run proceeds either way so the
// operator remains the final gate.
func (w *Workflow) verifyCredentials(ctx context.Context, repo gh.Repo) {
	if !w.cfg.VerifyAuth || w.ghFactory == nil {
		return
	}
	if w.cfg.GitHubToken == "" {
		w.panel.Append("Credential verification skipped: no GitHub token available.")
		return
	}

	client, err := w.ghFactory.New(ctx, w.cfg.GitHubToken)
	if err != nil {
		w.panel.Append("Credential verification failed: " + err.Error())
		return
	}

	login, err := client.AuthenticatedUser(ctx)
	if err != nil {
		w.panel.Append("Credential verification failed: " + err.Error())
		return
	}

	visible, err := client.RepoVisible(ctx, repo.Owner, repo.Name)
	if err != nil {
		w.panel.Append("Credential verification failed: " + err.Error())
		return
	}
	if !visible {
		w.panel.Append(fmt.Sprintf("Warning: %s/%s is not visible to %s; the push may be rejected.", repo.Owner, repo.Name, login))
		return
	}

	w.panel.Append(fmt.Sprintf("Authenticated as %s; %s/%s is accessible.", login, repo.Owner, repo.Name))
}
