package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

const (
	defaultBranch        = "main"
	defaultCommitMessage = "Publish notebook and environment"
	defaultLogLevel      = "info"
	defaultLogFormat     = "text"
)

var validBranchName = regexp.MustCompile(`^[a-zA-Z0-9._/-]+$`)

// Config captures runtime options sourced from the settings file, environment
// variables, and flags.
type Config struct {
	// ClientID and AppURL identify the GitHub App that issues scoped
	// credentials. They are the two persisted settings every run needs.
	ClientID string
	AppURL   string

	// GatewayURL points at a Jupyter kernel gateway. When empty, submissions
	// run under the local shell instead.
	GatewayURL   string
	GatewayToken string

	// GitHubToken is only used for optional credential verification. Falls
	// back to GH_TOKEN / GITHUB_TOKEN.
	GitHubToken string

	// RepoURL, when set, pre-answers the interactive repository prompt.
	RepoURL string

	// NotebookPath is the notebook to publish. When empty, a single .ipynb
	// in the working directory is used.
	NotebookPath string

	Branch        string
	CommitMessage string

	LogLevel  string
	LogFormat string

	DryRun     bool
	VerifyAuth bool
}

// LoadConfig reads the settings file at path (or the default location when
// path is empty), applies environment overrides and defaults, and validates
// the result.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NBPUBLISH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("git.branch", defaultBranch)
	v.SetDefault("git.commit_message", defaultCommitMessage)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.format", defaultLogFormat)
	v.SetDefault("verify.auth", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "nbpublish"))
		}
		v.AddConfigPath(".")
	}

	// A missing settings file is fine in search mode; an explicitly named
	// one must exist.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		ClientID:      strings.TrimSpace(v.GetString("github.client_id")),
		AppURL:        strings.TrimSpace(v.GetString("github.app_url")),
		GatewayURL:    strings.TrimSpace(v.GetString("gateway.url")),
		GatewayToken:  strings.TrimSpace(v.GetString("gateway.token")),
		GitHubToken:   strings.TrimSpace(v.GetString("github.token")),
		RepoURL:       strings.TrimSpace(v.GetString("repo.url")),
		NotebookPath:  strings.TrimSpace(v.GetString("notebook.path")),
		Branch:        strings.TrimSpace(v.GetString("git.branch")),
		CommitMessage: strings.TrimSpace(v.GetString("git.commit_message")),
		LogLevel:      strings.ToLower(strings.TrimSpace(v.GetString("log.level"))),
		LogFormat:     strings.ToLower(strings.TrimSpace(v.GetString("log.format"))),
		DryRun:        v.GetBool("dry_run"),
		VerifyAuth:    v.GetBool("verify.auth"),
	}

	// Hub provisioning scripts conventionally export GH_APP_ID and
	// GH_APP_URL; honor those variables when nothing else set the values.
	if cfg.ClientID == "" {
		cfg.ClientID = strings.TrimSpace(os.Getenv("GH_APP_ID"))
	}
	if cfg.AppURL == "" {
		cfg.AppURL = strings.TrimSpace(os.Getenv("GH_APP_URL"))
	}

	if cfg.GitHubToken == "" {
		cfg.GitHubToken = strings.TrimSpace(os.Getenv("GH_TOKEN"))
	}
	if cfg.GitHubToken == "" {
		cfg.GitHubToken = strings.TrimSpace(os.Getenv("GITHUB_TOKEN"))
	}

	if cfg.Branch == "" {
		cfg.Branch = defaultBranch
	}
	if !validBranchName.MatchString(cfg.Branch) {
		return Config{}, fmt.Errorf("invalid branch name %q", cfg.Branch)
	}

	if cfg.CommitMessage == "" {
		cfg.CommitMessage = defaultCommitMessage
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("unsupported log level %q", cfg.LogLevel)
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return Config{}, fmt.Errorf("unsupported log format %q", cfg.LogFormat)
	}

	return cfg, nil
}
