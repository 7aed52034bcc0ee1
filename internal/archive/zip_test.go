package archive

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readZip(t *testing.T, path string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	files := map[string]string{}
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		files[f.Name] = string(data)
	}
	return files
}

func TestZip_PackagesDirectory(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "manifest.json"), []byte(`{"a":1}`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "lib", "x.js"), []byte("var x;"), 0o644))

	dest := filepath.Join(t.TempDir(), "bundle.zip")
	require.NoError(t, Zip(src, dest))

	files := readZip(t, dest)
	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)

	assert.Equal(t, []string{"lib/x.js", "manifest.json"}, names)
	assert.Equal(t, `{"a":1}`, files["manifest.json"])
	assert.Equal(t, "var x;", files["lib/x.js"])
}

func TestZip_DestinationInsideSource(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("a"), 0o644))

	dest := filepath.Join(src, "self.zip")
	require.NoError(t, Zip(src, dest))

	files := readZip(t, dest)
	assert.Len(t, files, 1)
	assert.Contains(t, files, "a.txt")
}

func TestZip_MissingSource(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.zip")
	err := Zip(filepath.Join(t.TempDir(), "missing"), dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive: walk")
}

func TestZip_UnwritableDestination(t *testing.T) {
	err := Zip(t.TempDir(), filepath.Join(t.TempDir(), "no", "such", "dir", "out.zip"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive: create")
}
