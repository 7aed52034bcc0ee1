package io

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/williampepple1/proxy-trends/internal/config"
	"github.com/williampepple1/proxy-trends/internal/run"
	"github.com/williampepple1/proxy-trends/pkg/models"
)

var record = &models.RunRecord{
	UniqueID:  1700000000001,
	Trends:    []models.TrendItem{"Topic A", "Topic B"},
	EndTime:   time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
	ProxyUsed: "203.0.113.7",
}

func TestSaveToFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "result.json")
	w := NewResultWriter(&config.IOConfig{OutputFile: path, OutputFormat: "json"})

	require.NoError(t, w.SaveToFile(run.Outcome{Record: record}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got models.RunRecord
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, record.Trends, got.Trends)
	assert.Equal(t, record.ProxyUsed, got.ProxyUsed)
}

func TestSaveToFile_ErrorDescriptor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	w := NewResultWriter(&config.IOConfig{OutputFile: path})

	require.NoError(t, w.SaveToFile(run.Failure(errors.New("login: timeout at home page after 20s"))))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"login: timeout at home page after 20s"}`, string(data))
}

func TestEncode_YAML(t *testing.T) {
	w := NewResultWriter(&config.IOConfig{OutputFormat: "yaml"})

	data, err := w.Encode(run.Outcome{Record: record})
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "203.0.113.7", doc["proxyUsed"])
	assert.Equal(t, []any{"Topic A", "Topic B"}, doc["trends"])
	assert.Equal(t, 1700000000001, doc["uniqueId"])
	assert.Contains(t, string(data), "uniqueId: 1700000000001\n")
}

func TestSaveToFile_Errors(t *testing.T) {
	w := NewResultWriter(&config.IOConfig{})
	assert.False(t, w.Enabled())
	assert.Error(t, w.SaveToFile(run.Outcome{Record: record}))

	w = NewResultWriter(&config.IOConfig{OutputFile: filepath.Join(t.TempDir(), "r.csv"), OutputFormat: "csv"})
	assert.ErrorContains(t, w.SaveToFile(run.Outcome{Record: record}), "unsupported output format")
}
