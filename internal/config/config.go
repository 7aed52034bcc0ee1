package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// AppConfig holds the complete application configuration
type AppConfig struct {
	Site       SiteConfig       `yaml:"site" mapstructure:"site"`
	Proxy      ProxyConfig      `yaml:"proxy" mapstructure:"proxy"`
	Browser    BrowserConfig    `yaml:"browser" mapstructure:"browser"`
	Login      LoginConfig      `yaml:"login" mapstructure:"login"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Identity   IdentityConfig   `yaml:"identity" mapstructure:"identity"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Scraper    ScraperConfig    `yaml:"scraper" mapstructure:"scraper"`
	IO         IOConfig         `yaml:"io" mapstructure:"io"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// SiteConfig describes the target site and the account used to log in
type SiteConfig struct {
	LoginURL         string         `yaml:"login_url" mapstructure:"login_url"`
	Username         string         `yaml:"username" mapstructure:"username"`
	Password         string         `yaml:"password" mapstructure:"password"`
	FallbackIdentity string         `yaml:"fallback_identity" mapstructure:"fallback_identity"`
	LoginTitle       string         `yaml:"login_title" mapstructure:"login_title"`
	HomeMarker       string         `yaml:"home_marker" mapstructure:"home_marker"`
	Selectors        SelectorConfig `yaml:"selectors" mapstructure:"selectors"`
}

// SelectorConfig holds the element selectors of the login flow. Values
// starting with "/" or "(" are XPath expressions, anything else is CSS.
type SelectorConfig struct {
	Username  string `yaml:"username" mapstructure:"username"`
	Next      string `yaml:"next" mapstructure:"next"`
	Challenge string `yaml:"challenge" mapstructure:"challenge"`
	Password  string `yaml:"password" mapstructure:"password"`
	Login     string `yaml:"login" mapstructure:"login"`
	Trend     string `yaml:"trend" mapstructure:"trend"`
}

// ProxyConfig holds the upstream proxy address and credentials
type ProxyConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     string `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// BrowserConfig holds the browser launch configuration
type BrowserConfig struct {
	Headless      bool          `yaml:"headless" mapstructure:"headless"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	WindowWidth   int           `yaml:"window_width" mapstructure:"window_width"`
	WindowHeight  int           `yaml:"window_height" mapstructure:"window_height"`
	LaunchTimeout time.Duration `yaml:"launch_timeout" mapstructure:"launch_timeout"`
	ExtraFlags    []string      `yaml:"extra_flags,omitempty" mapstructure:"extra_flags"`
}

// LoginConfig holds the wait bounds of the login flow
type LoginConfig struct {
	PrimaryTimeout   time.Duration `yaml:"primary_timeout" mapstructure:"primary_timeout"`
	SecondaryTimeout time.Duration `yaml:"secondary_timeout" mapstructure:"secondary_timeout"`
	ProbeTimeout     time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`
	PollInterval     time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
}

// ExtractionConfig holds the trend extraction configuration
type ExtractionConfig struct {
	MaxTrends int `yaml:"max_trends" mapstructure:"max_trends"`
}

// IdentityConfig configures egress address verification
type IdentityConfig struct {
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// StoreConfig configures the document store backend
type StoreConfig struct {
	Driver     string `yaml:"driver" mapstructure:"driver"`
	DSN        string `yaml:"dsn" mapstructure:"dsn"`
	Database   string `yaml:"database" mapstructure:"database"`
	Collection string `yaml:"collection" mapstructure:"collection"`
}

// ScraperConfig holds run scheduling settings
type ScraperConfig struct {
	RateLimit  time.Duration `yaml:"rate_limit" mapstructure:"rate_limit"`
	RunTimeout time.Duration `yaml:"run_timeout" mapstructure:"run_timeout"`
}

// IOConfig holds the output configuration
type IOConfig struct {
	OutputFile   string `yaml:"output_file" mapstructure:"output_file"`
	OutputFormat string `yaml:"output_format" mapstructure:"output_format"`
}

// ServerConfig configures the trigger server
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from an optional YAML file and the environment.
// An empty filename looks for config.yaml in the working directory.
func Load(filename string) (*AppConfig, error) {
	v := newViper()

	if filename != "" {
		v.SetConfigFile(filename)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if filename != "" || !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// CreateDefault creates a configuration holding only the defaults
func CreateDefault() *AppConfig {
	v := viper.New()
	setDefaults(v)

	var cfg AppConfig
	// Defaults are static and always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// WriteYAML writes cfg to filename as YAML with secrets left blank
func WriteYAML(cfg *AppConfig, filename string) error {
	out := *cfg
	out.Site.Password = ""
	out.Proxy.Password = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return eris.Wrap(err, "config: marshal yaml")
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return eris.Wrapf(err, "config: write %s", filename)
	}
	return nil
}

// Validate reports every required field that is empty
func (c *AppConfig) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"site.username", c.Site.Username},
		{"site.password", c.Site.Password},
		{"proxy.host", c.Proxy.Host},
		{"proxy.port", c.Proxy.Port},
		{"proxy.username", c.Proxy.Username},
		{"proxy.password", c.Proxy.Password},
	}

	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return &MissingError{Fields: missing}
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("TRENDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range envAliases {
		// BindEnv only fails on an empty key.
		_ = v.BindEnv(append([]string{key}, names...)...)
	}

	setDefaults(v)
	return v
}
