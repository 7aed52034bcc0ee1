package config

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultUserAgents provides a list of common user agents
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// DefaultSelectors are the login and trend selectors of the target site
var DefaultSelectors = SelectorConfig{
	Username:  `//input[@autocomplete="username"]`,
	Next:      `//button[@role="button" and .//span[text()="Next"]]`,
	Challenge: `//input[@type="text" and @data-testid="ocfEnterTextTextInput"]`,
	Password:  `//input[@name="password"]`,
	Login:     `//button[@role="button" and .//span[text()="Log in"]]`,
	Trend:     `div[data-testid="trend"]`,
}

// envAliases maps config keys to the environment names they are read from,
// in priority order.
var envAliases = map[string][]string{
	"site.username":          {"TRENDS_SITE_USERNAME", "TWITTER_USERNAME"},
	"site.password":          {"TRENDS_SITE_PASSWORD", "TWITTER_PASSWORD"},
	"site.fallback_identity": {"TRENDS_SITE_FALLBACK_IDENTITY", "TWITTER_EMAIL"},
	"proxy.host":             {"TRENDS_PROXY_HOST", "PROXY_HOST"},
	"proxy.port":             {"TRENDS_PROXY_PORT", "PROXY_PORT"},
	"proxy.username":         {"TRENDS_PROXY_USERNAME", "PROXY_USERNAME"},
	"proxy.password":         {"TRENDS_PROXY_PASSWORD", "PROXY_PASSWORD"},
	"store.dsn":              {"TRENDS_STORE_DSN", "DATABASE_URL"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site.login_url", "https://twitter.com/login")
	v.SetDefault("site.username", "")
	v.SetDefault("site.password", "")
	v.SetDefault("site.fallback_identity", "")
	v.SetDefault("site.login_title", "Log in")
	v.SetDefault("site.home_marker", "/home")
	v.SetDefault("site.selectors.username", DefaultSelectors.Username)
	v.SetDefault("site.selectors.next", DefaultSelectors.Next)
	v.SetDefault("site.selectors.challenge", DefaultSelectors.Challenge)
	v.SetDefault("site.selectors.password", DefaultSelectors.Password)
	v.SetDefault("site.selectors.login", DefaultSelectors.Login)
	v.SetDefault("site.selectors.trend", DefaultSelectors.Trend)

	v.SetDefault("proxy.host", "us-ca.proxymesh.com")
	v.SetDefault("proxy.port", "31280")
	v.SetDefault("proxy.username", "")
	v.SetDefault("proxy.password", "")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent", DefaultUserAgents[0])
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.launch_timeout", 30*time.Second)
	v.SetDefault("browser.extra_flags", []string{})

	v.SetDefault("login.primary_timeout", 20*time.Second)
	v.SetDefault("login.secondary_timeout", 10*time.Second)
	v.SetDefault("login.probe_timeout", 5*time.Second)
	v.SetDefault("login.poll_interval", 250*time.Millisecond)

	v.SetDefault("extraction.max_trends", 4)

	v.SetDefault("identity.endpoint", "https://api.ipify.org?format=json")
	v.SetDefault("identity.timeout", 15*time.Second)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "trends.db")
	v.SetDefault("store.database", "twitter_trends")
	v.SetDefault("store.collection", "trends")

	v.SetDefault("scraper.rate_limit", 5*time.Second)
	v.SetDefault("scraper.run_timeout", 3*time.Minute)

	v.SetDefault("io.output_file", "")
	v.SetDefault("io.output_format", "json")

	v.SetDefault("server.port", 3000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
