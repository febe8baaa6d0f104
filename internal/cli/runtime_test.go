package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsymonds/huntparse/internal/models"
	"github.com/joshsymonds/huntparse/pkg/logger"
)

const sampleReport = `{"vulnerabilities": [{"vid": "KHV002", "vulnerability": "K8s Version Disclosure", "category": "Information Disclosure", "severity": "medium", "location": "10.96.0.1:443"}]}`

func TestRuntime_Init(t *testing.T) {
	original := logger.GetGlobalLogger()
	t.Cleanup(func() {
		if zl, ok := original.(*logger.ZapLogger); ok {
			logger.SetGlobalLogger(zl)
		}
	})

	path := filepath.Join(t.TempDir(), "huntparse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`parser:
  location_scheme: ""
  severity_overrides:
    KHV002: critical
validation:
  schema: false
`), 0o600))

	rt := NewRuntime()
	require.NoError(t, rt.Init(path, true, "json"))

	assert.Equal(t, "debug", rt.Config.Logging.Level)
	assert.Equal(t, "json", rt.Config.Logging.Format)
	assert.Same(t, rt.Logger, logger.GetGlobalLogger())

	findings, err := rt.Parser().Normalize(sampleReport)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, models.SeverityCritical, findings[0].Severity)
	assert.Equal(t, "10.96.0.1:443", findings[0].Location)

	validator, err := rt.Validator()
	require.NoError(t, err)
	assert.NoError(t, validator.Validate(findings))
}

func TestRuntime_InitInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huntparse.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o600))

	rt := NewRuntime()
	err := rt.Init(path, false, "")
	assert.ErrorContains(t, err, "logging.level")
}

func TestOpenInput(t *testing.T) {
	t.Run("stdin", func(t *testing.T) {
		rc, err := OpenInput(StdinPath, strings.NewReader("{}"))
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "{}", string(data))
		assert.NoError(t, rc.Close())
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.json")
		require.NoError(t, os.WriteFile(path, []byte(sampleReport), 0o600))

		rc, err := OpenInput(path, nil)
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, sampleReport, string(data))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := OpenInput(filepath.Join(t.TempDir(), "missing.json"), nil)
		assert.ErrorContains(t, err, "invalid input path")
	})
}

func TestEncodeDecodeFindings(t *testing.T) {
	findings := []models.Finding{{
		ID:         models.GenerateFindingID("0"),
		Name:       "K8s Version Disclosure",
		Category:   "Information Disclosure",
		Severity:   models.SeverityMedium,
		Attributes: map[string]any{"vid": "KHV002"},
	}}

	pretty, err := EncodeFindings(findings, true)
	require.NoError(t, err)
	assert.Contains(t, string(pretty), "\n  {")

	back, err := DecodeFindings(bytes.NewReader(pretty))
	require.NoError(t, err)
	assert.Equal(t, findings, back)

	empty, err := EncodeFindings(nil, false)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(empty))

	none, err := DecodeFindings(strings.NewReader("  "))
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = DecodeFindings(strings.NewReader("{"))
	assert.ErrorContains(t, err, "decoding findings")
}

func TestWriteOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOutput("", []byte("[]\n"), &buf))
	assert.Equal(t, "[]\n", buf.String())

	path := filepath.Join(t.TempDir(), "findings.json")
	require.NoError(t, WriteOutput(path, []byte("[]\n"), nil))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))

	err = WriteOutput(filepath.Join(t.TempDir(), "missing", "findings.json"), nil, nil)
	assert.ErrorContains(t, err, "invalid output path")
}

func TestRuntime_CloseFlushesLogFile(t *testing.T) {
	original := logger.GetGlobalLogger()
	t.Cleanup(func() {
		if zl, ok := original.(*logger.ZapLogger); ok {
			logger.SetGlobalLogger(zl)
		}
	})

	dir := t.TempDir()
	logPath := filepath.Join(dir, "huntparse.log")
	configPath := filepath.Join(dir, "huntparse.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("logging:\n  level: error\n  file: "+logPath+"\n"), 0o600))

	rt := NewRuntime()
	assert.NoError(t, rt.Close(), "closing before Init is a no-op")

	require.NoError(t, rt.Init(configPath, false, ""))
	rt.Logger.Error("command failed", "error", "boom")
	require.NoError(t, rt.Close())
	assert.NoError(t, rt.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"command failed"`)
}
