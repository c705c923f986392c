package workflow_test

import (
	"bytes"
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	gh "github.com/mitodl/nbpublish/internal/github"
	"github.com/mitodl/nbpublish/internal/kernel"
	"github.com/mitodl/nbpublish/internal/workflow"
)

// fakeSubmitter records every submission and replays a scripted message
// sequence per call.
type fakeSubmitter struct {
	submissions []string
	messages    [][]kernel.Message
	errs        []error
}

func (f *fakeSubmitter) Submit(_ context.Context, code string, onMessage func(kernel.Message)) error {
	call := len(f.submissions)
	f.submissions = append(f.submissions, code)
	if call < len(f.messages) {
		for _, msg := range f.messages[call] {
			onMessage(msg)
		}
	}
	if call < len(f.errs) {
		return f.errs[call]
	}
	return nil
}

type fakePrompter struct {
	answer string
	err    error
	asked  int
}

func (f *fakePrompter) ReadLine(string) (string, error) {
	f.asked++
	return f.answer, f.err
}

type fakeInteractor struct {
	confirm bool
	asked   int
}

func (f *fakeInteractor) ConfirmYesNo(string) bool {
	f.asked++
	return f.confirm
}

type fakeGHClient struct {
	login    string
	visible  bool
	loginErr error
}

func (c *fakeGHClient) AuthenticatedUser(context.Context) (string, error) {
	return c.login, c.loginErr
}

func (c *fakeGHClient) RepoVisible(context.Context, string, string) (bool, error) {
	return c.visible, nil
}

type fakeGHFactory struct {
	client *fakeGHClient
}

func (f *fakeGHFactory) New(context.Context, string) (gh.Client, error) {
	return f.client, nil
}

var _ = Describe("Workflow", func() {
	var (
		ctx        context.Context
		cfg        workflow.Config
		submitter  *fakeSubmitter
		prompter   *fakePrompter
		interactor *fakeInteractor
		out        *bytes.Buffer
	)

	run := func() error {
		wf := workflow.New(cfg, submitter, nil, prompter, interactor, out, nil)
		return wf.Run(ctx)
	}

	// Panel output minus the header, split into lines.
	panelLines := func() []string {
		raw := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
		if len(raw) < 2 {
			return nil
		}
		return raw[2:]
	}

	BeforeEach(func() {
		ctx = context.Background()
		cfg = workflow.Config{
			ClientID:      "abc123",
			IssuerURL:     "https://example.org/app",
			NotebookPath:  "analysis.ipynb",
			Branch:        "main",
			CommitMessage: "Publish notebook and environment",
		}
		submitter = &fakeSubmitter{}
		prompter = &fakePrompter{answer: "https://github.com/acme/demo.git"}
		interactor = &fakeInteractor{confirm: true}
		out = &bytes.Buffer{}
	})

	It("performs exactly two submissions with the expected command content", func() {
		Expect(run()).To(Succeed())

		Expect(submitter.submissions).To(HaveLen(2))

		auth := submitter.submissions[0]
		Expect(auth).To(ContainSubstring("gh-scoped-creds"))
		Expect(auth).To(ContainSubstring(`"abc123"`))
		Expect(auth).To(ContainSubstring(`"https://example.org/app"`))

		script := submitter.submissions[1]
		Expect(script).To(ContainSubstring(`git clone "https://github.com/acme/demo.git"`))
		Expect(script).To(ContainSubstring(`cp "analysis.ipynb"`))
		Expect(script).To(ContainSubstring("pip freeze > requirements.txt"))
		Expect(script).To(ContainSubstring("git push origin main"))
	})

	It("generates a fresh scratch directory per run", func() {
		Expect(run()).To(Succeed())
		first := submitter.submissions[1]

		submitter.submissions = nil
		out.Reset()
		Expect(run()).To(Succeed())
		second := submitter.submissions[1]

		scratch := func(script string) string {
			line, _, _ := strings.Cut(script, "\n")
			return line
		}
		Expect(scratch(first)).NotTo(Equal(scratch(second)))
		Expect(first).To(ContainSubstring("nbpublish-"))
	})

	It("rejects a repository URL with the wrong scheme without submitting", func() {
		prompter.answer = "ftp://github.com/acme/demo"

		Expect(run()).To(Succeed())
		Expect(submitter.submissions).To(BeEmpty())
		Expect(panelLines()).To(HaveLen(1))
		Expect(panelLines()[0]).To(ContainSubstring("Invalid repository URL"))
	})

	It("aborts with one line when the client ID is missing", func() {
		cfg.ClientID = ""

		Expect(run()).To(Succeed())
		Expect(submitter.submissions).To(BeEmpty())
		Expect(prompter.asked).To(BeZero())
		Expect(panelLines()).To(HaveLen(1))
	})

	It("aborts with one line when the issuer URL is missing", func() {
		cfg.IssuerURL = ""

		Expect(run()).To(Succeed())
		Expect(submitter.submissions).To(BeEmpty())
		Expect(panelLines()).To(HaveLen(1))
	})

	It("aborts with one line when the repository prompt is left empty", func() {
		prompter.answer = ""

		Expect(run()).To(Succeed())
		Expect(submitter.submissions).To(BeEmpty())
		Expect(panelLines()).To(HaveLen(1))
	})

	It("never builds the publish script when confirmation is declined", func() {
		interactor.confirm = false

		Expect(run()).To(Succeed())
		Expect(submitter.submissions).To(HaveLen(1))
		Expect(out.String()).To(ContainSubstring("Publish aborted"))
		Expect(out.String()).NotTo(ContainSubstring("git clone"))
	})

	It("skips the interactive prompt when a repository URL is preconfigured", func() {
		cfg.RepoURL = "https://github.com/acme/demo"

		Expect(run()).To(Succeed())
		Expect(prompter.asked).To(BeZero())
		Expect(submitter.submissions).To(HaveLen(2))
	})

	It("relays kernel messages to the panel in arrival order", func() {
		submitter.messages = [][]kernel.Message{
			{
				kernel.Stream{Name: "stdout", Text: "cloning...\n"},
				kernel.Error{Name: "PermissionError", Value: "denied", Traceback: []string{"L1", "L2"}},
				kernel.ExecuteResult{Data: map[string]string{"text/plain": "done"}},
			},
		}

		Expect(run()).To(Succeed())

		output := out.String()
		Expect(output).To(ContainSubstring("cloning..."))
		Expect(output).To(ContainSubstring("PermissionError: denied\nL1\nL2"))
		Expect(strings.Index(output, "cloning...")).To(BeNumerically("<", strings.Index(output, "PermissionError")))
		Expect(strings.Index(output, "PermissionError")).To(BeNumerically("<", strings.Index(output, "done")))
	})

	It("continues past a failed credential command", func() {
		submitter.errs = []error{&kernel.CommandError{Code: "gh-scoped-creds", Err: context.DeadlineExceeded}}

		Expect(run()).To(Succeed())
		Expect(submitter.submissions).To(HaveLen(2))
	})

	It("fails on a transport-level submission error", func() {
		submitter.errs = []error{context.Canceled}

		Expect(run()).To(MatchError(ContainSubstring("submit credential command")))
		Expect(submitter.submissions).To(HaveLen(1))
	})

	It("rejects a run with no notebook path", func() {
		cfg.NotebookPath = ""

		Expect(run()).To(MatchError(ContainSubstring("no notebook")))
		Expect(submitter.submissions).To(BeEmpty())
	})

	Describe("credential verification", func() {
		BeforeEach(func() {
			cfg.VerifyAuth = true
			cfg.GitHubToken = "tok"
		})

		It("reports the authenticated login and repository visibility", func() {
			factory := &fakeGHFactory{client: &fakeGHClient{login: "octocat", visible: true}}
			wf := workflow.New(cfg, submitter, factory, prompter, interactor, out, nil)

			Expect(wf.Run(ctx)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Authenticated as octocat"))
		})

		It("warns but proceeds when the repository is not visible", func() {
			factory := &fakeGHFactory{client: &fakeGHClient{login: "octocat", visible: false}}
			wf := workflow.New(cfg, submitter, factory, prompter, interactor, out, nil)

			Expect(wf.Run(ctx)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("not visible"))
			Expect(submitter.submissions).To(HaveLen(2))
		})

		It("notes when no token is available and proceeds", func() {
			cfg.GitHubToken = ""
			factory := &fakeGHFactory{client: &fakeGHClient{}}
			wf := workflow.New(cfg, submitter, factory, prompter, interactor, out, nil)

			Expect(wf.Run(ctx)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("verification skipped"))
			Expect(submitter.submissions).To(HaveLen(2))
		})
	})
})
