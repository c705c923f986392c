package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/mitodl/nbpublish/internal/app"
)

var (
	flagConfig     string
	flagRepo       string
	flagNotebook   string
	flagGatewayURL string
	flagLogLevel   string
	flagLogFormat  string
	flagDryRun     bool
	flagVerify     bool
)

var rootCmd = &cobra.Command{
	Use:   "nbpublish",
	Short: "Push a notebook and its environment to a GitHub repository",
	Long: `nbpublish pushes the active notebook, a pip freeze of its environment,
and the runtime version into a GitHub repository, acquiring scoped
credentials through a pre-registered GitHub App first.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig(flagConfig)
		if err != nil {
			return err
		}

		if flagRepo != "" {
			cfg.RepoURL = flagRepo
		}
		if flagNotebook != "" {
			cfg.NotebookPath = flagNotebook
		}
		if flagGatewayURL != "" {
			cfg.GatewayURL = flagGatewayURL
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = flagLogLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.LogFormat = flagLogFormat
		}
		if cmd.Flags().Changed("dry-run") {
			cfg.DryRun = flagDryRun
		}
		if cmd.Flags().Changed("verify-auth") {
			cfg.VerifyAuth = flagVerify
		}

		runner, err := app.NewRunner(cfg)
		if err != nil {
			return err
		}

		return runner.Run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "path to the settings file")
	rootCmd.Flags().StringVar(&flagRepo, "repo", "", "target repository URL (skips the interactive prompt)")
	rootCmd.Flags().StringVar(&flagNotebook, "notebook", "", "notebook file to publish")
	rootCmd.Flags().StringVar(&flagGatewayURL, "gateway-url", "", "Jupyter kernel gateway URL (local shell when unset)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&flagLogFormat, "log-format", "text", "log format (text, json)")
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "build commands without submitting them")
	rootCmd.Flags().BoolVar(&flagVerify, "verify-auth", false, "check the credential grant against the GitHub API")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("nbpublish: %v", err)
		os.Exit(1)
	}
}
