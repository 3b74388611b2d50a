package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the scraper configuration
type Config struct {
	URLs struct {
		News        string `yaml:"news"`
		Gallery     string `yaml:"gallery"`
		Facts       string `yaml:"facts"`
		Hemispheres string `yaml:"hemispheres"`
	} `yaml:"urls"`

	Selectors struct {
		// FeaturedThumb is the XPath of the gallery thumbnail that opens the full size image
		FeaturedThumb string `yaml:"featured_thumb"`
	} `yaml:"selectors"`

	Browser struct {
		Headless    bool          `yaml:"headless"`
		Bin         string        `yaml:"bin"`
		UserDataDir string        `yaml:"user_data_dir"`
		StepTimeout time.Duration `yaml:"step_timeout"`
	} `yaml:"browser"`

	Hemispheres struct {
		Count int `yaml:"count"`
	} `yaml:"hemispheres"`

	Fetcher struct {
		UserAgent string        `yaml:"user_agent"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"fetcher"`

	Postgres struct {
		Enabled bool   `yaml:"enabled"`
		URL     string `yaml:"url"`
	} `yaml:"postgres"`

	Sheets struct {
		Enabled         bool   `yaml:"enabled"`
		SpreadsheetURL  string `yaml:"spreadsheet_url"`
		CredentialsPath string `yaml:"credentials_path"`
	} `yaml:"sheets"`

	Telegram struct {
		Enabled bool   `yaml:"enabled"`
		Token   string `yaml:"token"`
		ChatID  int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Schedule struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"schedule"`

	LogLevel string `yaml:"log_level"`
}

// LoadConfig loads configuration from a YAML file on top of the defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := GetDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetDefaultConfig returns a default configuration
func GetDefaultConfig() *Config {
	cfg := &Config{}
	cfg.URLs.News = "https://mars.nasa.gov/news/"
	cfg.URLs.Gallery = "https://www.jpl.nasa.gov/spaceimages/?search=&category=featured#submit"
	cfg.URLs.Facts = "https://space-facts.com/mars/"
	cfg.URLs.Hemispheres = "https://astrogeology.usgs.gov/search/results?q=hemisphere+enhanced&k1=target&v1=Mars"
	cfg.Selectors.FeaturedThumb = `//*[@id="page"]/section[3]/div/ul/li[1]/a/div/div[2]/img`
	cfg.Browser.Headless = true
	cfg.Browser.StepTimeout = 30 * time.Second
	cfg.Hemispheres.Count = 4
	cfg.Fetcher.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	cfg.Fetcher.Timeout = 30 * time.Second
	cfg.LogLevel = "info"
	cfg.applyEnv()
	return cfg
}

// applyEnv fills secrets and paths from the environment when the file leaves them empty
func (c *Config) applyEnv() {
	if c.Postgres.URL == "" {
		c.Postgres.URL = os.Getenv("DATABASE_URL")
	}
	if c.Telegram.Token == "" {
		c.Telegram.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if c.Browser.Bin == "" {
		c.Browser.Bin = os.Getenv("BROWSER_BIN")
	}
}

// Validate checks that the configuration can drive a run
func (c *Config) Validate() error {
	if c.URLs.News == "" || c.URLs.Gallery == "" || c.URLs.Facts == "" || c.URLs.Hemispheres == "" {
		return fmt.Errorf("invalid config: all urls must be set")
	}
	if c.Browser.StepTimeout <= 0 {
		return fmt.Errorf("invalid config: browser.step_timeout must be positive")
	}
	if c.Hemispheres.Count < 0 {
		return fmt.Errorf("invalid config: hemispheres.count must not be negative")
	}
	if c.Postgres.Enabled && c.Postgres.URL == "" {
		return fmt.Errorf("invalid config: postgres enabled without url (set postgres.url or DATABASE_URL)")
	}
	if c.Sheets.Enabled && c.Sheets.SpreadsheetURL == "" {
		return fmt.Errorf("invalid config: sheets enabled without spreadsheet_url")
	}
	if c.Telegram.Enabled && (c.Telegram.Token == "" || c.Telegram.ChatID == 0) {
		return fmt.Errorf("invalid config: telegram enabled without token or chat_id")
	}
	if c.Schedule.Interval < 0 {
		return fmt.Errorf("invalid config: schedule.interval must not be negative")
	}
	return nil
}
