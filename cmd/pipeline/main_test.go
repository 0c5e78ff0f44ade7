package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cliRecordSet = `{"accession": "P21917", "features": [
	{"type": "VARIANT", "begin": "10", "clinicalSignificances": [{"type": "Benign", "sources": ["ClinVar"]}]},
	{"type": "VARIANT", "begin": "11"}
]}`

func writeCLIConfig(t *testing.T, root, baseURL string) string {
	t.Helper()
	cfg := `input:
  path: ` + filepath.Join(root, "ids.csv") + `
  column: UniprotID
fetch:
  url_template: "` + baseURL + `/variation/{id}?format=json"
paths:
  json_dir: ` + filepath.Join(root, "JSON_files") + `
  csv_dir: ` + filepath.Join(root, "Variations") + `
  sort_dir: ` + filepath.Join(root, "sort") + `
store:
  path: ""
logging:
  level: error
`
	path := filepath.Join(root, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))
	return path
}

func executeCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI_RunWithIdentifiers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/P21917") {
			io.WriteString(w, cliRecordSet)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	root := t.TempDir()
	cfgPath := writeCLIConfig(t, root, srv.URL)

	out, err := executeCLI(t, "run", "--config", cfgPath, "P21917", "MISSING")
	require.NoError(t, err)
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "fetch      processed=2 succeeded=1 failed=1 skipped=0")

	assert.FileExists(t, filepath.Join(root, "JSON_files", "P21917_variations.json"))
	assert.FileExists(t, filepath.Join(root, "Variations", "P21917_variations.csv"))
	assert.FileExists(t, filepath.Join(root, "sort", "P21917_variations", "Benign.csv"))
	assert.FileExists(t, filepath.Join(root, "sort", "P21917_variations", "(blank).csv"))
}

func TestCLI_FlagsOverrideConfig(t *testing.T) {
	root := t.TempDir()
	cfgPath := writeCLIConfig(t, root, "http://unused")

	other := filepath.Join(root, "elsewhere")
	require.NoError(t, os.MkdirAll(other, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(other, "X_variations.json"), []byte(cliRecordSet), 0644))

	out, err := executeCLI(t, "flatten", "--config", cfgPath, "--json-dir", other)
	require.NoError(t, err)
	assert.Contains(t, out, "flatten    processed=1 succeeded=1")
	assert.FileExists(t, filepath.Join(root, "Variations", "X_variations.csv"))
}

func TestCLI_InvalidConfig(t *testing.T) {
	root := t.TempDir()
	cfgPath := writeCLIConfig(t, root, "http://unused")

	_, err := executeCLI(t, "partition", "--config", cfgPath, "--workers", "0")
	assert.Error(t, err)
}
