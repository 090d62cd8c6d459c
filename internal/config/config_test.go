package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// inTempDir runs the test from an empty directory so no stray .env is read.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestDefault(t *testing.T) {
	c := Default()
	if !c.Browser.Headless {
		t.Error("headless should default to true")
	}
	if c.Wait.Timeout != 5*time.Second || c.Wait.Poll != 100*time.Millisecond {
		t.Errorf("wait: got %s/%s", c.Wait.Timeout, c.Wait.Poll)
	}
	if c.Widget.Lang != "en" || c.Locale.Default != "en" {
		t.Errorf("lang: got %q/%q", c.Widget.Lang, c.Locale.Default)
	}
	if c.Widget.Document != "document" {
		t.Errorf("document: got %q", c.Widget.Document)
	}
	if c.Bundle.Env != "development" || c.Bundle.Host != "0.0.0.0" {
		t.Errorf("bundle: got %+v", c.Bundle)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	dir := inTempDir(t)
	p := writeFile(t, dir, "sdkcheck.yaml", `
widget:
  url: http://localhost:8080/
  document: passport
browser:
  headless: false
  stealth: true
  resource_blocking: [Images, fonts]
  navigate_timeout: 10s
locale:
  dir: ./locales
  default: fr
wait:
  timeout: 2s
  poll: 50ms
bundle:
  root: dist
  env: production
  port: 9000
store:
  path: runs.db
`)
	c, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if c.Widget.URL != "http://localhost:8080/" || c.Widget.Document != "passport" {
		t.Errorf("widget: %+v", c.Widget)
	}
	if c.Widget.Lang != "fr" {
		t.Errorf("widget.lang should follow locale.default: got %q", c.Widget.Lang)
	}
	if c.Browser.Headless || !c.Browser.Stealth {
		t.Errorf("browser: %+v", c.Browser)
	}
	if strings.Join(c.Browser.ResourceBlocking, ",") != "images,fonts" {
		t.Errorf("resource_blocking: got %v", c.Browser.ResourceBlocking)
	}
	if c.Browser.NavigateTimeout != 10*time.Second {
		t.Errorf("navigate_timeout: got %s", c.Browser.NavigateTimeout)
	}
	if c.Wait.Timeout != 2*time.Second || c.Wait.Poll != 50*time.Millisecond {
		t.Errorf("wait: %+v", c.Wait)
	}
	if c.Bundle.Env != "production" || c.Bundle.Port != 9000 || c.Bundle.Root != "dist" {
		t.Errorf("bundle: %+v", c.Bundle)
	}
	if c.Store.Path != "runs.db" {
		t.Errorf("store: %+v", c.Store)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := inTempDir(t)
	p := writeFile(t, dir, "sdkcheck.yaml", "widget:\n  url: http://a/\n  lang: en\n")
	t.Setenv("SDKCHECK_WIDGET_URL", "http://b/")
	t.Setenv("SDKCHECK_WIDGET_LANG", "es")
	t.Setenv("SDKCHECK_BROWSER_HEADLESS", "false")
	t.Setenv("SDKCHECK_BROWSER_RESOURCE_BLOCKING", "media,stylesheets")
	t.Setenv("SDKCHECK_WAIT_TIMEOUT", "1s")

	c, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if c.Widget.URL != "http://b/" || c.Widget.Lang != "es" {
		t.Errorf("widget: %+v", c.Widget)
	}
	if c.Browser.Headless {
		t.Error("headless should be overridden to false")
	}
	if strings.Join(c.Browser.ResourceBlocking, ",") != "media,stylesheets" {
		t.Errorf("resource_blocking: got %v", c.Browser.ResourceBlocking)
	}
	if c.Wait.Timeout != time.Second {
		t.Errorf("wait.timeout: got %s", c.Wait.Timeout)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := inTempDir(t)
	writeFile(t, dir, ".env", "SDKCHECK_STORE_PATH=from-dotenv.db\n")
	t.Cleanup(func() { os.Unsetenv("SDKCHECK_STORE_PATH") })

	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Store.Path != "from-dotenv.db" {
		t.Errorf("store.path: got %q", c.Store.Path)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	inTempDir(t)
	if _, err := Load("nope.yaml"); err == nil {
		t.Error("missing file should fail")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad scheme", func(c *Config) { c.Widget.URL = "ftp://x" }, "scheme"},
		{"poll above timeout", func(c *Config) { c.Wait.Poll = time.Minute }, "wait.poll"},
		{"unknown blocking", func(c *Config) { c.Browser.ResourceBlocking = []string{"video"} }, "video"},
		{"bad env", func(c *Config) { c.Bundle.Env = "staging" }, "bundle.env"},
		{"bad port", func(c *Config) { c.Bundle.Port = 70000 }, "bundle.port"},
	}
	for _, tc := range cases {
		c := Default()
		tc.mutate(&c)
		err := c.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: got %v, want error containing %q", tc.name, err, tc.want)
		}
	}
}
