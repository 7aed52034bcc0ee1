package io

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/williampepple1/proxy-trends/internal/config"
	"github.com/williampepple1/proxy-trends/internal/run"
)

// ResultWriter writes run outcomes to the configured output file
type ResultWriter struct {
	Config *config.IOConfig
}

// NewResultWriter creates a new result writer
func NewResultWriter(config *config.IOConfig) *ResultWriter {
	return &ResultWriter{
		Config: config,
	}
}

// Enabled reports whether an output file is configured
func (w *ResultWriter) Enabled() bool {
	return w.Config != nil && w.Config.OutputFile != ""
}

// Encode renders the outcome in the configured format
func (w *ResultWriter) Encode(outcome run.Outcome) ([]byte, error) {
	format := "json"
	if w.Config != nil && w.Config.OutputFormat != "" {
		format = w.Config.OutputFormat
	}

	switch format {
	case "json":
		data, err := json.MarshalIndent(outcome, "", "  ")
		if err != nil {
			return nil, eris.Wrap(err, "io: encode json")
		}
		return append(data, '\n'), nil

	case "yaml":
		// Round trip through JSON so YAML keys match the document fields.
		raw, err := json.Marshal(outcome)
		if err != nil {
			return nil, eris.Wrap(err, "io: encode json")
		}
		// Numbers stay json.Number so ids are written as integers.
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var doc map[string]any
		if err := dec.Decode(&doc); err != nil {
			return nil, eris.Wrap(err, "io: decode json")
		}
		data, err := yaml.Marshal(doc)
		return data, eris.Wrap(err, "io: encode yaml")

	default:
		return nil, eris.Errorf("io: unsupported output format: %s", format)
	}
}

// SaveToFile saves the outcome to the output file in the configured format
func (w *ResultWriter) SaveToFile(outcome run.Outcome) error {
	if !w.Enabled() {
		return eris.New("io: no output file configured")
	}

	data, err := w.Encode(outcome)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(w.Config.OutputFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "io: create %s", dir)
		}
	}
	return eris.Wrapf(os.WriteFile(w.Config.OutputFile, data, 0o644), "io: write %s", w.Config.OutputFile)
}
