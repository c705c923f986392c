package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mitodl/nbpublish/internal/kernel"
)

type recordingSubmitter struct {
	submissions []string
}

func (r *recordingSubmitter) Submit(_ context.Context, code string, _ func(kernel.Message)) error {
	r.submissions = append(r.submissions, code)
	return nil
}

type yesInteractor struct{}

func (yesInteractor) ConfirmYesNo(string) bool { return true }

type staticPrompter struct{ answer string }

func (p staticPrompter) ReadLine(string) (string, error) { return p.answer, nil }

func TestRunnerSmoke(t *testing.T) {
	dir := t.TempDir()
	notebook := filepath.Join(dir, "analysis.ipynb")
	if err := os.WriteFile(notebook, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Config{
		ClientID:      "abc123",
		AppURL:        "https://example.org/app",
		NotebookPath:  notebook,
		Branch:        "main",
		CommitMessage: "Publish notebook and environment",
		LogLevel:      "info",
		LogFormat:     "text",
	}

	submitter := &recordingSubmitter{}
	var out bytes.Buffer
	runner := NewRunnerWithDeps(cfg, nil, submitter, nil, staticPrompter{answer: "https://github.com/acme/demo.git"}, yesInteractor{}, &out)

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(submitter.submissions) != 2 {
		t.Fatalf("expected two kernel submissions, got %d", len(submitter.submissions))
	}
	if !strings.Contains(submitter.submissions[1], `git clone "https://github.com/acme/demo.git"`) {
		t.Fatalf("publish script missing clone line:\n%s", submitter.submissions[1])
	}
	if !strings.Contains(submitter.submissions[1], `cp "`+notebook+`"`) {
		t.Fatalf("publish script missing notebook copy:\n%s", submitter.submissions[1])
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestRunnerFailsWithoutNotebook(t *testing.T) {
	chdir(t, t.TempDir())

	runner := NewRunnerWithDeps(Config{}, nil, &recordingSubmitter{}, nil, staticPrompter{}, yesInteractor{}, &bytes.Buffer{})

	if err := runner.Run(context.Background()); err == nil {
		t.Fatal("expected a missing-notebook error")
	}
}

func TestResolveNotebookSingleCandidate(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "only.ipynb"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	path, err := resolveNotebook("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "only.ipynb" {
		t.Fatalf("expected only.ipynb, got %q", path)
	}
}

func TestResolveNotebookAmbiguous(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.ipynb", "b.ipynb"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	chdir(t, dir)

	if _, err := resolveNotebook(""); err == nil {
		t.Fatal("expected an error for multiple notebooks")
	}
}

func TestResolveNotebookMissingConfigured(t *testing.T) {
	if _, err := resolveNotebook(filepath.Join(t.TempDir(), "gone.ipynb")); err == nil {
		t.Fatal("expected an error for a missing configured notebook")
	}
}
