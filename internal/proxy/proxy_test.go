package proxy

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/williampepple1/proxy-trends/internal/config"
)

func testCreds() Credentials {
	return FromConfig(&config.ProxyConfig{
		Host:     "proxy.example.com",
		Port:     "31280",
		Username: "user",
		Password: `p@ss"word`,
	})
}

func TestCredentials_URL(t *testing.T) {
	c := testCreds()

	u := c.URL()
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "proxy.example.com:31280", u.Host)
	require.NotNil(t, u.User)
	assert.Equal(t, "user", u.User.Username())
	pw, ok := u.User.Password()
	assert.True(t, ok)
	assert.Equal(t, `p@ss"word`, pw)

	assert.Equal(t, "http://proxy.example.com:31280", c.Server())
	assert.Equal(t, "proxy.example.com:31280", c.Address())
}

func TestCredentials_URLWithoutAuth(t *testing.T) {
	c := Credentials{Host: "127.0.0.1", Port: "8080"}
	assert.Nil(t, c.URL().User)
}

func TestCredentials_NeverRendersPassword(t *testing.T) {
	c := testCreds()

	assert.NotContains(t, c.String(), "word")
	assert.NotContains(t, fmt.Sprintf("%v", c), "word")
	assert.NotContains(t, fmt.Sprintf("%s", c), "word")

	var buf bytes.Buffer
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(&buf),
		zapcore.DebugLevel,
	)
	zap.New(core).Info("proxy", zap.Object("proxy", c))

	out := buf.String()
	assert.Contains(t, out, "proxy.example.com")
	assert.NotContains(t, out, "word")
	assert.NotContains(t, out, `"user"`)
}
