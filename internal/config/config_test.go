package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://twitter.com/login", cfg.Site.LoginURL)
	assert.Equal(t, "Log in", cfg.Site.LoginTitle)
	assert.Equal(t, "/home", cfg.Site.HomeMarker)
	assert.Equal(t, DefaultSelectors, cfg.Site.Selectors)
	assert.Equal(t, "us-ca.proxymesh.com", cfg.Proxy.Host)
	assert.Equal(t, "31280", cfg.Proxy.Port)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 1920, cfg.Browser.WindowWidth)
	assert.Equal(t, 20*time.Second, cfg.Login.PrimaryTimeout)
	assert.Equal(t, 10*time.Second, cfg.Login.SecondaryTimeout)
	assert.Equal(t, 5*time.Second, cfg.Login.ProbeTimeout)
	assert.Equal(t, 4, cfg.Extraction.MaxTrends)
	assert.Equal(t, "https://api.ipify.org?format=json", cfg.Identity.Endpoint)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "twitter_trends", cfg.Store.Database)
	assert.Equal(t, "trends", cfg.Store.Collection)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	content := `
site:
  username: alice
  password: s3cret
proxy:
  port: "8080"
login:
  primary_timeout: 2s
extraction:
  max_trends: 6
store:
  driver: postgres
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "alice", cfg.Site.Username)
	assert.Equal(t, "s3cret", cfg.Site.Password)
	assert.Equal(t, "8080", cfg.Proxy.Port)
	assert.Equal(t, 2*time.Second, cfg.Login.PrimaryTimeout)
	assert.Equal(t, 6, cfg.Extraction.MaxTrends)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	// Defaults still apply for unset values
	assert.Equal(t, "us-ca.proxymesh.com", cfg.Proxy.Host)
	assert.Equal(t, 10*time.Second, cfg.Login.SecondaryTimeout)
}

func TestLoadEnvAliases(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TWITTER_USERNAME", "bob")
	t.Setenv("TWITTER_EMAIL", "bob@example.com")
	t.Setenv("PROXY_PASSWORD", "pw")
	t.Setenv("TRENDS_PROXY_USERNAME", "proxy-user")
	t.Setenv("TRENDS_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "bob", cfg.Site.Username)
	assert.Equal(t, "bob@example.com", cfg.Site.FallbackIdentity)
	assert.Equal(t, "pw", cfg.Proxy.Password)
	assert.Equal(t, "proxy-user", cfg.Proxy.Username)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadExplicitFileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestValidate(t *testing.T) {
	t.Run("all present", func(t *testing.T) {
		cfg := CreateDefault()
		cfg.Site.Username = "alice"
		cfg.Site.Password = "pw"
		cfg.Proxy.Username = "pu"
		cfg.Proxy.Password = "pp"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("lists every missing field", func(t *testing.T) {
		cfg := CreateDefault()
		cfg.Proxy.Host = " "

		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfigurationMissing))

		var missing *MissingError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, []string{
			"site.username", "site.password", "proxy.host", "proxy.username", "proxy.password",
		}, missing.Fields)
		assert.Equal(t,
			"configuration missing: site.username, site.password, proxy.host, proxy.username, proxy.password",
			err.Error())
	})
}

func TestWriteYAMLBlanksSecrets(t *testing.T) {
	cfg := CreateDefault()
	cfg.Site.Username = "alice"
	cfg.Site.Password = "site-secret"
	cfg.Proxy.Password = "proxy-secret"

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteYAML(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "site-secret")
	assert.NotContains(t, string(data), "proxy-secret")

	var back AppConfig
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, "alice", back.Site.Username)
	assert.Equal(t, cfg.Site.Selectors, back.Site.Selectors)
	// Caller's config is untouched
	assert.Equal(t, "site-secret", cfg.Site.Password)
}
