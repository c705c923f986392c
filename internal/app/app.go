package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gh "github.com/mitodl/nbpublish/internal/github"
	"github.com/mitodl/nbpublish/internal/kernel"
	"github.com/mitodl/nbpublish/internal/workflow"
)

// Runner glues together the kernel submitter, GitHub factory, and operator
// interaction to execute the publish workflow.
type Runner struct {
	cfg        Config
	log        *slog.Logger
	submitter  kernel.Submitter
	ghFactory  gh.Factory
	prompter   workflow.Prompter
	interactor workflow.Interactor
	out        io.Writer
}

// NewRunner constructs a Runner with the supplied configuration.
func NewRunner(cfg Config) (*Runner, error) {
	logger, err := NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	var submitter kernel.Submitter
	switch {
	case cfg.DryRun:
		submitter = kernel.NewNoopSubmitter(logger)
	case cfg.GatewayURL != "":
		submitter = kernel.NewGatewayClient(cfg.GatewayURL, cfg.GatewayToken, logger)
	default:
		submitter = kernel.NewShellRunner()
	}

	var factory gh.Factory
	if cfg.VerifyAuth {
		factory = gh.NewRESTFactory()
	}

	// One terminal serves both roles so an answer buffered ahead of the
	// repository prompt still reaches the confirmation question.
	term := workflow.NewTerminal()

	return &Runner{
		cfg:        cfg,
		log:        logger,
		submitter:  submitter,
		ghFactory:  factory,
		prompter:   term,
		interactor: term,
		out:        os.Stdout,
	}, nil
}

// NewRunnerWithDeps constructs a Runner with injected dependencies for
// testing.
func NewRunnerWithDeps(cfg Config, log *slog.Logger, submitter kernel.Submitter, factory gh.Factory, prompter workflow.Prompter, interactor workflow.Interactor, out io.Writer) *Runner {
	return &Runner{cfg: cfg, log: log, submitter: submitter, ghFactory: factory, prompter: prompter, interactor: interactor, out: out}
}

// Run resolves the notebook to publish and executes the workflow.
func (r *Runner) Run(ctx context.Context) error {
	notebook, err := resolveNotebook(r.cfg.NotebookPath)
	if err != nil {
		return err
	}

	if r.log != nil {
		r.log.Info("starting publish run",
			"notebook", notebook,
			"branch", r.cfg.Branch,
			"dry_run", r.cfg.DryRun,
			"verify_auth", r.cfg.VerifyAuth)
	}

	wf := workflow.New(workflow.Config{
		ClientID:      r.cfg.ClientID,
		IssuerURL:     r.cfg.AppURL,
		RepoURL:       r.cfg.RepoURL,
		NotebookPath:  notebook,
		Branch:        r.cfg.Branch,
		CommitMessage: r.cfg.CommitMessage,
		VerifyAuth:    r.cfg.VerifyAuth,
		GitHubToken:   r.cfg.GitHubToken,
	}, r.submitter, r.ghFactory, r.prompter, r.interactor, r.out, r.log)

	return wf.Run(ctx)
}

// resolveNotebook returns the configured notebook path, or the single .ipynb
// file in the working directory when none is configured. Zero or several
// candidates is a missing-precondition error.
func resolveNotebook(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("notebook %q: %w", configured, err)
		}
		return configured, nil
	}

	entries, err := os.ReadDir(".")
	if err != nil {
		return "", fmt.Errorf("scan working directory: %w", err)
	}

	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".ipynb") {
			candidates = append(candidates, entry.Name())
		}
	}

	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("no notebook found; pass --notebook")
	case 1:
		return filepath.Clean(candidates[0]), nil
	default:
		return "", fmt.Errorf("multiple notebooks found (%s); pass --notebook", strings.Join(candidates, ", "))
	}
}
