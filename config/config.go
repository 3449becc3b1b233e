package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Site       SiteConfig      `yaml:"site" mapstructure:"site"`
	Browser    BrowserConfig   `yaml:"browser" mapstructure:"browser"`
	Timeouts   TimeoutConfig   `yaml:"timeouts" mapstructure:"timeouts"`
	Retry      RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Batch      BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Indicators IndicatorConfig `yaml:"indicators" mapstructure:"indicators"`
	Selectors  SelectorConfig  `yaml:"selectors" mapstructure:"selectors"`
	Notify     NotifyConfig    `yaml:"notify" mapstructure:"notify"`
	Storage    StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Logging    LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// SiteConfig identifies the target deployment.
type SiteConfig struct {
	Name     string `yaml:"name" mapstructure:"name"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
	// Accounts is the raw "user:pass,user:pass" list, normally injected
	// through the SITE_ACCOUNTS environment variable.
	Accounts string `yaml:"accounts" mapstructure:"accounts"`
}

// BrowserConfig contains browser launch settings.
type BrowserConfig struct {
	Engine         string        `yaml:"engine" mapstructure:"engine"`
	Headless       bool          `yaml:"headless" mapstructure:"headless"`
	ForceDirect    bool          `yaml:"force_direct" mapstructure:"force_direct"`
	UserAgent      string        `yaml:"user_agent" mapstructure:"user_agent"`
	ViewportWidth  int           `yaml:"viewport_width" mapstructure:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height" mapstructure:"viewport_height"`
	Locale         string        `yaml:"locale" mapstructure:"locale"`
	SlowMo         time.Duration `yaml:"slow_mo" mapstructure:"slow_mo"`
}

// TimeoutConfig contains per-phase timeouts for one login attempt.
type TimeoutConfig struct {
	Navigation   time.Duration `yaml:"navigation" mapstructure:"navigation"`
	Settle       time.Duration `yaml:"settle" mapstructure:"settle"`
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	PollWindow   time.Duration `yaml:"poll_window" mapstructure:"poll_window"`
	Field        time.Duration `yaml:"field" mapstructure:"field"`
	Submit       time.Duration `yaml:"submit" mapstructure:"submit"`
	PostSubmit   time.Duration `yaml:"post_submit" mapstructure:"post_submit"`
}

// RetryConfig controls the per-account retry loop.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	BackoffBase  time.Duration `yaml:"backoff_base" mapstructure:"backoff_base"`
	BackoffStep  time.Duration `yaml:"backoff_step" mapstructure:"backoff_step"`
	ArtifactsDir string        `yaml:"artifacts_dir" mapstructure:"artifacts_dir"`
}

// BatchConfig controls sequential account processing.
type BatchConfig struct {
	AccountPause time.Duration `yaml:"account_pause" mapstructure:"account_pause"`
}

// IndicatorConfig holds the phrase sets used for page classification.
// Kept as data so new site/language variants are additive.
type IndicatorConfig struct {
	Login       []string `yaml:"login" mapstructure:"login"`
	Challenge   []string `yaml:"challenge" mapstructure:"challenge"`
	Success     []string `yaml:"success" mapstructure:"success"`
	SuccessURLs []string `yaml:"success_urls" mapstructure:"success_urls"`
	Failure     []string `yaml:"failure" mapstructure:"failure"`
}

// SelectorConfig holds the ordered element selector candidates.
type SelectorConfig struct {
	Identity     []string `yaml:"identity" mapstructure:"identity"`
	Secret       []string `yaml:"secret" mapstructure:"secret"`
	Submit       []string `yaml:"submit" mapstructure:"submit"`
	SubmitLabels []string `yaml:"submit_labels" mapstructure:"submit_labels"`
	Challenge    []string `yaml:"challenge" mapstructure:"challenge"`
}

// NotifyConfig contains Telegram reporting settings.
type NotifyConfig struct {
	BotToken string `yaml:"bot_token" mapstructure:"bot_token"`
	ChatID   string `yaml:"chat_id" mapstructure:"chat_id"`
	Proxy    string `yaml:"proxy" mapstructure:"proxy"`
}

// StorageConfig contains run-history database settings.
type StorageConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	Output string `yaml:"output" mapstructure:"output"`
}

// Account is one parsed credential pair. The secret is never written
// to logs or reports.
type Account struct {
	Identity string
	Secret   string
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	setDefaults()

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("KEEPALIVE")

	if err := viper.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			if werr := createDefaultConfig(configPath); werr != nil {
				return nil, fmt.Errorf("failed to create default config: %w", werr)
			}
		} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if werr := createDefaultConfig(configPath); werr != nil {
				return nil, fmt.Errorf("failed to create default config: %w", werr)
			}
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	overrideFromEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ParseAccounts parses the raw "user:pass,user:pass" account list.
// The first colon splits identity from secret; malformed entries are
// skipped rather than failing the whole list.
func ParseAccounts(raw string) []Account {
	var accounts []Account
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" || !strings.Contains(pair, ":") {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		identity := strings.TrimSpace(parts[0])
		secret := strings.TrimSpace(parts[1])
		if identity == "" {
			continue
		}
		accounts = append(accounts, Account{Identity: identity, Secret: secret})
	}
	return accounts
}

func setDefaults() {
	viper.SetDefault("site.name", "FreeCloud")
	viper.SetDefault("site.login_url", "https://web.freecloud.ltd/index.php?rp=/login")

	viper.SetDefault("browser.engine", "chromium")
	viper.SetDefault("browser.headless", true)
	viper.SetDefault("browser.force_direct", true)
	viper.SetDefault("browser.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36")
	viper.SetDefault("browser.viewport_width", 1366)
	viper.SetDefault("browser.viewport_height", 768)
	viper.SetDefault("browser.locale", "")
	viper.SetDefault("browser.slow_mo", "0s")

	viper.SetDefault("timeouts.navigation", "90s")
	viper.SetDefault("timeouts.settle", "45s")
	viper.SetDefault("timeouts.poll_interval", "3s")
	viper.SetDefault("timeouts.poll_window", "240s")
	viper.SetDefault("timeouts.field", "3s")
	viper.SetDefault("timeouts.submit", "4s")
	viper.SetDefault("timeouts.post_submit", "45s")

	viper.SetDefault("retry.max_attempts", 2)
	viper.SetDefault("retry.backoff_base", "5s")
	viper.SetDefault("retry.backoff_step", "5s")
	viper.SetDefault("retry.artifacts_dir", ".")

	viper.SetDefault("batch.account_pause", "5s")

	viper.SetDefault("indicators.login", []string{
		"输入邮箱", "邮箱地址", "email", "邮箱",
		"登录用户中心", "登录", "登录到您的账户",
		`placeholder="输入邮箱"`, `input[type="email"]`,
	})
	viper.SetDefault("indicators.challenge", []string{
		"cloudflare", "正在验证", "checking your browser",
	})
	viper.SetDefault("indicators.success", []string{
		"dashboard", "client area", "my services",
		"time until suspension", "security settings", "用户中心", "控制台",
	})
	viper.SetDefault("indicators.success_urls", []string{
		"/dashboard", "/clientarea", "/user", "/account", "/home",
	})
	viper.SetDefault("indicators.failure", []string{
		"wrong password", "密码错误", "invalid login", "登录失败",
		"邮箱或密码不正确", "not a member yet?",
	})

	viper.SetDefault("selectors.identity", []string{
		"input[placeholder*='邮箱']", "input[placeholder*='输入邮箱']",
		"#inputEmail", "#inputUsername", "#username",
		"input[name='username']", "input[name='email']", "input[type='email']",
	})
	viper.SetDefault("selectors.secret", []string{
		"input[placeholder*='密码']", "#inputPassword",
		"input[name='password']", "input[type='password']", "#password",
	})
	viper.SetDefault("selectors.submit", []string{
		"button[type='submit']", "input[type='submit']", "button.btn",
		".btn-primary", ".login-btn", "form button",
	})
	viper.SetDefault("selectors.submit_labels", []string{
		"登录", "login", "sign in", "submit", "登录按钮",
	})
	viper.SetDefault("selectors.challenge", []string{
		"iframe[src*='turnstile']", "iframe[src*='cloudflare']",
	})

	viper.SetDefault("storage.path", "./data/keepalive.db")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// createDefaultConfig writes a starter configuration file.
func createDefaultConfig(configPath string) error {
	cfg := Config{
		Site: SiteConfig{
			Name:     "FreeCloud",
			LoginURL: "https://web.freecloud.ltd/index.php?rp=/login",
		},
		Browser: BrowserConfig{
			Engine:         "chromium",
			Headless:       true,
			ForceDirect:    true,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
			ViewportWidth:  1366,
			ViewportHeight: 768,
		},
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// overrideFromEnv maps the deployment environment variables the runner
// is driven by in CI onto their config keys.
func overrideFromEnv() {
	if accounts := os.Getenv("SITE_ACCOUNTS"); accounts != "" {
		viper.Set("site.accounts", accounts)
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		viper.Set("notify.bot_token", token)
	}
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		viper.Set("notify.chat_id", chatID)
	}
	if proxy := os.Getenv("TELEGRAM_PROXY"); proxy != "" {
		viper.Set("notify.proxy", proxy)
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Site.LoginURL == "" {
		return fmt.Errorf("site login_url is required")
	}
	// rod drives Chromium; other engines are not wired.
	if cfg.Browser.Engine != "chromium" {
		return fmt.Errorf("unsupported browser engine %q (only chromium is available)", cfg.Browser.Engine)
	}
	if cfg.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max_attempts must be at least 1")
	}
	if cfg.Timeouts.PollInterval <= 0 {
		return fmt.Errorf("timeouts poll_interval must be positive")
	}
	if cfg.Timeouts.PollWindow < cfg.Timeouts.PollInterval {
		return fmt.Errorf("timeouts poll_window must be at least one poll_interval")
	}
	return nil
}
