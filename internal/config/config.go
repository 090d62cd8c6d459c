// Package config loads sdkcheck configuration: a YAML file, then an
// optional .env file, then SDKCHECK_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SDKCHECK_"

// Config is the top-level sdkcheck configuration.
type Config struct {
	Widget  WidgetConfig  `yaml:"widget" envPrefix:"WIDGET_"`
	Browser BrowserConfig `yaml:"browser" envPrefix:"BROWSER_"`
	Locale  LocaleConfig  `yaml:"locale" envPrefix:"LOCALE_"`
	Wait    WaitConfig    `yaml:"wait" envPrefix:"WAIT_"`
	Bundle  BundleConfig  `yaml:"bundle" envPrefix:"BUNDLE_"`
	Store   StoreConfig   `yaml:"store" envPrefix:"STORE_"`
}

// WidgetConfig points at the page under test.
type WidgetConfig struct {
	URL      string `yaml:"url" env:"URL"`
	Lang     string `yaml:"lang" env:"LANG"`
	Document string `yaml:"document" env:"DOCUMENT"` // confirm.<document>.message
}

// BrowserConfig controls Chrome.
type BrowserConfig struct {
	Remote           string        `yaml:"remote" env:"REMOTE"`
	Headless         bool          `yaml:"headless" env:"HEADLESS"`
	Stealth          bool          `yaml:"stealth" env:"STEALTH"`
	ResourceBlocking []string      `yaml:"resource_blocking" env:"RESOURCE_BLOCKING"`
	NavigateTimeout  time.Duration `yaml:"navigate_timeout" env:"NAVIGATE_TIMEOUT"`
}

// LocaleConfig locates the locale dictionaries.
type LocaleConfig struct {
	Dir     string `yaml:"dir" env:"DIR"`
	Default string `yaml:"default" env:"DEFAULT"`
}

// WaitConfig is the poll-until-visible policy.
type WaitConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	Poll    time.Duration `yaml:"poll" env:"POLL"`
}

// BundleConfig configures the dev server used by -serve.
type BundleConfig struct {
	Root string `yaml:"root" env:"ROOT"`
	Env  string `yaml:"env" env:"ENV"`
	Host string `yaml:"host" env:"HOST"`
	Port int    `yaml:"port" env:"PORT"`
}

// StoreConfig locates the run log. Empty Path disables it.
type StoreConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

var blockable = []string{"images", "fonts", "media", "stylesheets", "script", "xhr", "fetch"}

// Default returns the configuration used when no file is given.
func Default() Config {
	c := base()
	c.applyDefaults()
	return c
}

// base holds the defaults a zero value cannot express.
func base() Config {
	return Config{Browser: BrowserConfig{Headless: true}}
}

// Load reads path (optional), then .env (optional), then the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: .env: %w", err)
	}

	cfg := base()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Widget.Document == "" {
		c.Widget.Document = "document"
	}
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = 30 * time.Second
	}
	if c.Locale.Dir == "" {
		c.Locale.Dir = "locales"
	}
	if c.Locale.Default == "" {
		c.Locale.Default = "en"
	}
	if c.Widget.Lang == "" {
		c.Widget.Lang = c.Locale.Default
	}
	if c.Wait.Timeout <= 0 {
		c.Wait.Timeout = 5 * time.Second
	}
	if c.Wait.Poll <= 0 {
		c.Wait.Poll = 100 * time.Millisecond
	}
	if c.Bundle.Env == "" {
		c.Bundle.Env = "development"
	}
	if c.Bundle.Host == "" {
		c.Bundle.Host = "0.0.0.0"
	}
	for i, r := range c.Browser.ResourceBlocking {
		c.Browser.ResourceBlocking[i] = strings.ToLower(strings.TrimSpace(r))
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Widget.URL != "" {
		u, err := url.Parse(c.Widget.URL)
		if err != nil {
			return fmt.Errorf("config: widget.url %q: %w", c.Widget.URL, err)
		}
		switch u.Scheme {
		case "http", "https", "file":
		default:
			return fmt.Errorf("config: widget.url %q: scheme must be http, https or file", c.Widget.URL)
		}
	}
	if c.Wait.Poll > c.Wait.Timeout {
		return fmt.Errorf("config: wait.poll %s exceeds wait.timeout %s", c.Wait.Poll, c.Wait.Timeout)
	}
	for _, r := range c.Browser.ResourceBlocking {
		if !slices.Contains(blockable, r) {
			return fmt.Errorf("config: browser.resource_blocking: unknown type %q", r)
		}
	}
	switch c.Bundle.Env {
	case "development", "production":
	default:
		return fmt.Errorf("config: bundle.env %q: want development or production", c.Bundle.Env)
	}
	if c.Bundle.Port < 0 || c.Bundle.Port > 65535 {
		return fmt.Errorf("config: bundle.port %d out of range", c.Bundle.Port)
	}
	return nil
}
