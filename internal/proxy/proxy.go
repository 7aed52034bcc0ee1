package proxy

import (
	"net"
	"net/url"

	"go.uber.org/zap/zapcore"

	"github.com/williampepple1/proxy-trends/internal/config"
)

const mask = "***"

// Credentials identify one authenticating upstream proxy. The password is
// never rendered by String or by the zap marshaler.
type Credentials struct {
	Host     string
	Port     string
	Username string
	Password string
}

// FromConfig builds credentials from the proxy configuration
func FromConfig(cfg *config.ProxyConfig) Credentials {
	return Credentials{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
	}
}

// Address returns host:port
func (c Credentials) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Server returns the proxy server URL without credentials, in the form
// browsers expect for --proxy-server
func (c Credentials) Server() string {
	return (&url.URL{Scheme: "http", Host: c.Address()}).String()
}

// URL returns the proxy URL with the credentials embedded as userinfo
func (c Credentials) URL() *url.URL {
	u := &url.URL{Scheme: "http", Host: c.Address()}
	if c.Username != "" || c.Password != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	return u
}

// String returns a redacted description safe for logs and error messages
func (c Credentials) String() string {
	u := &url.URL{Scheme: "http", Host: c.Address()}
	if c.Username != "" {
		u.User = url.UserPassword(c.Username, mask)
	}
	return u.Redacted()
}

// MarshalLogObject implements zapcore.ObjectMarshaler
func (c Credentials) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("host", c.Host)
	enc.AddString("port", c.Port)
	enc.AddBool("has_credentials", c.Username != "" && c.Password != "")
	return nil
}
