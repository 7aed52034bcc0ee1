// Package identity learns the egress address a proxy presents to the
// outside world.
package identity

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/williampepple1/proxy-trends/internal/config"
	"github.com/williampepple1/proxy-trends/internal/proxy"
)

// Unknown is reported when the egress address cannot be verified
const Unknown = "Unknown"

const (
	DefaultEndpoint = "https://api.ipify.org?format=json"
	DefaultTimeout  = 15 * time.Second
)

// ErrVerificationFailed is matched by every lookup failure
var ErrVerificationFailed = errors.New("identity: verification failed")

// Verifier asks an address echo endpoint, through the proxy, which
// address it sees
type Verifier struct {
	client   *resty.Client
	endpoint string
	secret   string
	log      *zap.Logger
}

type echoResponse struct {
	IP string `json:"ip"`
}

// New creates a verifier that routes through creds. A nil logger uses zap.L().
func New(creds proxy.Credentials, cfg config.IdentityConfig, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.L()
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New().
		SetTimeout(timeout).
		SetProxy(creds.URL().String()).
		SetHeader("Accept", "application/json").
		SetLogger(logger.Sugar())

	return &Verifier{
		client:   client,
		endpoint: endpoint,
		secret:   creds.Password,
		log:      logger,
	}
}

// Verify returns the observed egress address, or Unknown when it cannot
// be learned. It never fails.
func (v *Verifier) Verify(ctx context.Context) string {
	ip, err := v.lookup(ctx)
	if err != nil {
		v.log.Warn("identity: proxy address not verified", zap.Error(err))
		return Unknown
	}
	v.log.Info("identity: proxy address verified", zap.String("ip", ip))
	return ip
}

func (v *Verifier) lookup(ctx context.Context) (string, error) {
	var out echoResponse
	resp, err := v.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get(v.endpoint)
	if err != nil {
		// resty errors carry the proxy URL, credentials included.
		return "", eris.Wrap(ErrVerificationFailed, "request failed: "+v.redact(err))
	}
	if resp.IsError() {
		return "", eris.Wrapf(ErrVerificationFailed, "unexpected status %s", resp.Status())
	}

	ip := strings.TrimSpace(out.IP)
	if net.ParseIP(ip) == nil {
		return "", eris.Wrapf(ErrVerificationFailed, "response has no address: %q", truncate(resp.String(), 128))
	}
	return ip, nil
}

// redact masks the proxy password in err's message
func (v *Verifier) redact(err error) string {
	msg := err.Error()
	if v.secret == "" {
		return msg
	}
	for _, form := range []string{v.secret, url.QueryEscape(v.secret), url.PathEscape(v.secret)} {
		msg = strings.ReplaceAll(msg, form, "***")
	}
	return msg
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
