// Load envs from .env
// Load YAML config
// Apply env overrides
// Validate config

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

type Config struct {
	Scraper  ScraperConfig  `yaml:"scraper"`
	Browser  BrowserConfig  `yaml:"browser"`
	Log      LogConfig      `yaml:"log"`
	Telegram TelegramConfig `yaml:"telegram"`
	Server   ServerConfig   `yaml:"server"`
}

type ScraperConfig struct {
	BaseURL   string `yaml:"base_url" validate:"required,url"`
	SearchURL string `yaml:"search_url" validate:"required,url"`
	//pacing policy
	MinDelay             time.Duration `yaml:"min_delay" validate:"gte=0"`
	MaxDelay             time.Duration `yaml:"max_delay" validate:"gtefield=MinDelay"`
	MaxRetryAttempts     int           `yaml:"max_retry_attempts" validate:"gte=0,lte=10"`
	MaxRequestsPerMinute int           `yaml:"max_requests_per_minute" validate:"gte=0"`
	//pagination
	MaxPages int `yaml:"max_pages" validate:"gte=1,lte=100"`
	//detail pages
	EnrichDetails  bool `yaml:"enrich_details"`
	MaxDetailPages int  `yaml:"max_detail_pages" validate:"gte=0"`
}

type BrowserConfig struct {
	Headless       bool     `yaml:"headless"`
	UserAgents     []string `yaml:"user_agents" validate:"required,min=1,dive,required"`
	ViewportWidth  int      `yaml:"viewport_width" validate:"gt=0"`
	ViewportHeight int      `yaml:"viewport_height" validate:"gt=0"`
	//timeouts
	PageLoadTimeout time.Duration `yaml:"page_load_timeout" validate:"gt=0"`
	ElementTimeout  time.Duration `yaml:"element_timeout" validate:"gt=0"`
	ResultsTimeout  time.Duration `yaml:"results_timeout" validate:"gt=0"`
	StaleRetryPause time.Duration `yaml:"stale_retry_pause" validate:"gte=0"`
	//session limits
	SessionMaxRequests int           `yaml:"session_max_requests" validate:"gt=0"`
	SessionMaxAge      time.Duration `yaml:"session_max_age" validate:"gt=0"`
	//paths
	CookiesPath   string `yaml:"cookies_path"`
	ScreenshotDir string `yaml:"screenshot_dir"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChatID != 0
}

type ServerConfig struct {
	Port string `yaml:"port" validate:"required,numeric"`
}

// Default returns the built-in settings every field falls back to.
func Default() *Config {
	return &Config{
		Scraper: ScraperConfig{
			BaseURL:          "https://www.linkedin.com",
			SearchURL:        "https://www.linkedin.com/jobs/search",
			MinDelay:         3 * time.Second,
			MaxDelay:         5 * time.Second,
			MaxRetryAttempts: 3,
			MaxPages:         3,
			MaxDetailPages:   10,
		},
		Browser: BrowserConfig{
			Headless: true,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
			ViewportWidth:      1920,
			ViewportHeight:     1080,
			PageLoadTimeout:    30 * time.Second,
			ElementTimeout:     10 * time.Second,
			ResultsTimeout:     15 * time.Second,
			StaleRetryPause:    time.Second,
			SessionMaxRequests: 100,
			SessionMaxAge:      time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Port: "8080",
		},
	}
}

// Load reads .env, the YAML file at path (or $JOBSCOUT_CONFIG, or DefaultPath),
// applies env overrides and validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("JOBSCOUT_CONFIG")
	}
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logrus.Warnf("⚠️ Config file %s not found, using defaults", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("JOBSCOUT_HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid JOBSCOUT_HEADLESS: %w", err)
		}
		c.Browser.Headless = b
	}
	if v := os.Getenv("JOBSCOUT_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		c.Telegram.ChatID = id
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	return nil
}

var validate = validator.New()

// Validate checks field constraints declared in the struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
