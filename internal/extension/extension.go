// Package extension synthesizes the throwaway browser extension that routes
// all traffic through one authenticating proxy and answers its auth
// challenges with the configured credentials.
package extension

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"text/template"

	"github.com/rotisserie/eris"

	"github.com/williampepple1/proxy-trends/internal/archive"
	"github.com/williampepple1/proxy-trends/internal/proxy"
)

// ErrArtifactBuild is matched by every error Build returns
var ErrArtifactBuild = errors.New("extension: artifact build failed")

const (
	dirPattern      = "proxy-auth-"
	unpackedDir     = "extension"
	bundleName      = "proxy-auth.zip"
	manifestName    = "manifest.json"
	backgroundJS    = "background.js"
	bypassLocalhost = "localhost"
)

// Artifact is one built extension on temporary storage. Root owns both
// the unpacked directory and the zip bundle; Remove deletes all of it.
type Artifact struct {
	Root   string
	Dir    string
	Bundle string
}

// Remove deletes the artifact from disk
func (a *Artifact) Remove() error {
	if a == nil || a.Root == "" {
		return nil
	}
	return os.RemoveAll(a.Root)
}

// Builder builds artifacts under TempDir, or the system temp dir when empty
type Builder struct {
	TempDir string
}

type manifest struct {
	ManifestVersion int        `json:"manifest_version"`
	Name            string     `json:"name"`
	Version         string     `json:"version"`
	Permissions     []string   `json:"permissions"`
	Background      background `json:"background"`
}

type background struct {
	Scripts []string `json:"scripts"`
}

type settings struct {
	Host     string   `json:"host"`
	Port     int      `json:"port"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	Bypass   []string `json:"bypass"`
}

var backgroundTmpl = template.Must(template.New(backgroundJS).Parse(`var settings = {{.}};

var config = {
  mode: "fixed_servers",
  rules: {
    singleProxy: {
      scheme: "http",
      host: settings.host,
      port: settings.port
    },
    bypassList: settings.bypass
  }
};

chrome.proxy.settings.set({ value: config, scope: "regular" }, function() {});

function callbackFn(details) {
  return {
    authCredentials: {
      username: settings.username,
      password: settings.password
    }
  };
}

chrome.webRequest.onAuthRequired.addListener(
  callbackFn,
  { urls: ["<all_urls>"] },
  ["blocking"]
);
`))

// Build writes the extension for creds and packages it
func (b *Builder) Build(creds proxy.Credentials) (*Artifact, error) {
	port, err := strconv.Atoi(creds.Port)
	if err != nil || port <= 0 || port > 65535 {
		return nil, eris.Wrapf(ErrArtifactBuild, "invalid proxy port %q", creds.Port)
	}

	root, err := os.MkdirTemp(b.TempDir, dirPattern)
	if err != nil {
		return nil, eris.Wrapf(ErrArtifactBuild, "create temp dir: %v", err)
	}

	art := &Artifact{
		Root:   root,
		Dir:    filepath.Join(root, unpackedDir),
		Bundle: filepath.Join(root, bundleName),
	}
	if err := art.write(settings{
		Host:     creds.Host,
		Port:     port,
		Username: creds.Username,
		Password: creds.Password,
		Bypass:   []string{bypassLocalhost},
	}); err != nil {
		_ = art.Remove()
		return nil, eris.Wrapf(ErrArtifactBuild, "%v", err)
	}
	return art, nil
}

func (a *Artifact) write(s settings) error {
	if err := os.Mkdir(a.Dir, 0o700); err != nil {
		return err
	}

	m, err := json.MarshalIndent(manifest{
		ManifestVersion: 2,
		Name:            "Proxy Auth Extension",
		Version:         "1.0",
		Permissions:     []string{"proxy", "tabs", "<all_urls>", "webRequest", "webRequestBlocking"},
		Background:      background{Scripts: []string{backgroundJS}},
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(a.Dir, manifestName), m, 0o600); err != nil {
		return err
	}

	js, err := renderBackground(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(a.Dir, backgroundJS), js, 0o600); err != nil {
		return err
	}

	return archive.Zip(a.Dir, a.Bundle)
}

func renderBackground(s settings) ([]byte, error) {
	literal, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	// The literal is already valid JavaScript; text/template leaves it as is.
	if err := backgroundTmpl.Execute(&buf, string(literal)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
