package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"freecloud-keepalive/auth"
	"freecloud-keepalive/batch"
	"freecloud-keepalive/browser"
	"freecloud-keepalive/classify"
	"freecloud-keepalive/config"
	"freecloud-keepalive/logger"
	"freecloud-keepalive/notify"
	"freecloud-keepalive/pacing"
	"freecloud-keepalive/storage"
)

var (
	configFile string
	verbose    bool
	headless   bool
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "freecloud-keepalive",
		Short: "Unattended session keep-alive for FreeCloud accounts",
		Long:  `Performs periodic logins against a FreeCloud deployment to reset account inactivity timers, riding out the Cloudflare verification layer when one is interposed.`,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./config/config.yaml", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", true, "Run browser in headless mode")

	rootCmd.AddCommand(createRunCmd())
	rootCmd.AddCommand(createStatusCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func createRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run keep-alive logins for all configured accounts",
		Long:  `Processes every configured account sequentially, retrying transient failures with fresh browser sessions, and sends a summary report when Telegram delivery is configured.`,
		RunE:  runKeepAlive,
	}
}

func createStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show recent keep-alive run history",
		RunE:  runStatus,
	}
}

func runKeepAlive(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := setupLogger(cfg.Logging); err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	log := logger.Get()

	accounts := toCredentials(config.ParseAccounts(cfg.Site.Accounts))
	if len(accounts) == 0 {
		return fmt.Errorf("no accounts configured (set SITE_ACCOUNTS or site.accounts)")
	}
	log.WithField("count", len(accounts)).Info("Loaded accounts")

	classifier := classify.New(classify.Indicators{
		Login:       cfg.Indicators.Login,
		Challenge:   cfg.Indicators.Challenge,
		Success:     cfg.Indicators.Success,
		SuccessURLs: cfg.Indicators.SuccessURLs,
		Failure:     cfg.Indicators.Failure,
	})

	pacer := pacing.New(pacing.Config{
		BackoffBase:  cfg.Retry.BackoffBase,
		BackoffStep:  cfg.Retry.BackoffStep,
		AccountPause: cfg.Batch.AccountPause,
	}, log)

	interactor := auth.NewChallengeInteractor(cfg.Selectors.Challenge, log)
	submitter := auth.NewCredentialSubmitter(auth.SubmitterConfig{
		IdentitySelectors: cfg.Selectors.Identity,
		SecretSelectors:   cfg.Selectors.Secret,
		SubmitSelectors:   cfg.Selectors.Submit,
		SubmitLabels:      cfg.Selectors.SubmitLabels,
		FieldTimeout:      cfg.Timeouts.Field,
		SubmitTimeout:     cfg.Timeouts.Submit,
	}, pacer, log)
	evaluator := auth.NewOutcomeEvaluator(classifier, log)

	orchestrator := auth.NewAttemptOrchestrator(auth.OrchestratorConfig{
		LoginURL: cfg.Site.LoginURL,
		Timeouts: auth.Timeouts{
			Navigation:      cfg.Timeouts.Navigation,
			Settle:          cfg.Timeouts.Settle,
			PollInterval:    cfg.Timeouts.PollInterval,
			PollWindow:      cfg.Timeouts.PollWindow,
			PostSubmit:      cfg.Timeouts.PostSubmit,
			PostSubmitDelay: 2 * time.Second,
		},
		ChallengeFrames: cfg.Selectors.Challenge,
	}, classifier, interactor, submitter, evaluator, log)

	browserOpts := browser.Options{
		Headless:       headless && cfg.Browser.Headless,
		ForceDirect:    cfg.Browser.ForceDirect,
		UserAgent:      cfg.Browser.UserAgent,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		Locale:         cfg.Browser.Locale,
		SlowMo:         cfg.Browser.SlowMo,
	}
	factory := func() (auth.Session, error) {
		sess, err := browser.Acquire(browserOpts, log)
		if err != nil {
			return nil, err
		}
		return sess, nil
	}

	controller := auth.NewRetryController(factory, orchestrator, pacer, cfg.Retry.MaxAttempts, cfg.Retry.ArtifactsDir, log)

	var recorder batch.Recorder
	db, err := storage.NewDatabase(cfg.Storage.Path, log)
	if err != nil {
		log.WithError(err).Warn("Run history disabled: database unavailable")
	} else {
		defer db.Close()
		recorder = db
	}

	ctx := context.Background()
	runner := batch.NewRunner(controller, recorder, pacer, log)
	summary := runner.Run(ctx, accounts)

	fmt.Printf("Keep-alive run finished: %d total, %d succeeded, %d failed\n",
		len(summary.Results), summary.Succeeded, summary.Failed)

	sendReport(ctx, cfg, summary)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := setupLogger(cfg.Logging); err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}

	db, err := storage.NewDatabase(cfg.Storage.Path, logger.Get())
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer db.Close()

	stats, err := db.DailyStats(time.Now())
	if err != nil {
		return fmt.Errorf("failed to get daily stats: %w", err)
	}

	runs, err := db.RecentRuns(10)
	if err != nil {
		return fmt.Errorf("failed to get recent runs: %w", err)
	}

	fmt.Printf("Keep-Alive Status\n")
	fmt.Printf("=================\n\n")
	fmt.Printf("Target: %s (%s)\n", cfg.Site.Name, cfg.Site.LoginURL)
	fmt.Printf("Today: %d succeeded, %d failed\n\n", stats["success"], stats["failure"])
	fmt.Printf("Recent runs:\n")
	for _, run := range runs {
		fmt.Printf("  %s  %-8s %s  %s\n",
			run.CreatedAt.Format("2006-01-02 15:04"), run.Outcome, maskIdentity(run.Identity), run.Detail)
	}

	return nil
}

// Helper functions

func setupLogger(cfg config.LoggingConfig) error {
	level := cfg.Level
	if verbose {
		level = "debug"
	}
	return logger.Init(level, cfg.Format, cfg.Output)
}

func toCredentials(accounts []config.Account) []auth.Credential {
	creds := make([]auth.Credential, 0, len(accounts))
	for _, a := range accounts {
		creds = append(creds, auth.Credential{Identity: a.Identity, Secret: a.Secret})
	}
	return creds
}

func sendReport(ctx context.Context, cfg *config.Config, summary batch.Summary) {
	log := logger.Get()

	notifier, err := notify.New(notify.Config{
		BotToken: cfg.Notify.BotToken,
		ChatID:   cfg.Notify.ChatID,
		Proxy:    cfg.Notify.Proxy,
	}, log)
	if err != nil {
		log.WithError(err).Warn("Notification disabled")
		return
	}
	if !notifier.Enabled() {
		log.Debug("Telegram delivery not configured, skipping report")
		return
	}

	report := notify.BuildReport(cfg.Site.Name, summary.Results)
	if err := notifier.SendReport(ctx, report); err != nil {
		log.WithError(err).Warn("Failed to deliver Telegram report")
	}
}

func maskIdentity(identity string) string {
	parts := strings.Split(identity, "@")
	if len(parts) != 2 || len(parts[0]) <= 2 {
		return identity
	}
	return parts[0][:2] + strings.Repeat("*", len(parts[0])-2) + "@" + parts[1]
}
