package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/joshsymonds/huntparse/internal/cli"
	"github.com/joshsymonds/huntparse/internal/config"
	"github.com/joshsymonds/huntparse/pkg/logger"
)

func execute(t *testing.T, args ...string) (string, *logger.Recorder, error) {
	t.Helper()
	rec := logger.NewRecorder()
	rt := cli.NewRuntime()
	rt.Logger = rec

	cmd := NewCommand(rt)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), rec, err
}

func TestConfigValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huntparse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`logging:
  level: debug
  file: /tmp/huntparse.log
parser:
  severity_overrides:
    KHV005: high
    KHV002: low
`), 0o600))

	out, _, err := execute(t, "validate", path)
	require.NoError(t, err)

	assert.Contains(t, out, "Level: debug")
	assert.Contains(t, out, "File: /tmp/huntparse.log")
	assert.Contains(t, out, "Default severity: INFORMATIONAL")
	assert.Contains(t, out, "Severity overrides: 2")
	assert.Contains(t, out, "KHV002 → LOW")
	assert.Contains(t, out, "Configuration is valid!")
	assert.Less(t, bytes.Index([]byte(out), []byte("KHV002")), bytes.Index([]byte(out), []byte("KHV005")))
}

func TestConfigValidate_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huntparse.yaml")
	require.NoError(t, os.WriteFile(path, []byte("parser:\n  default_severity: severe\n"), 0o600))

	_, _, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration is invalid")
	assert.Contains(t, err.Error(), "parser.default_severity")
}

func TestConfigInit(t *testing.T) {
	t.Run("stdout", func(t *testing.T) {
		out, _, err := execute(t, "init")
		require.NoError(t, err)
		assert.Contains(t, out, "default_severity: INFORMATIONAL")
		assert.Contains(t, out, "KHV002: LOW")
	})

	t.Run("file round trips through loader", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "huntparse.yaml")
		out, rec, err := execute(t, "init", "-o", path)
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.True(t, rec.Logged(zapcore.InfoLevel, "Generated example configuration"))

		cfg, err := config.LoadConfig(path)
		require.NoError(t, err)
		sev, ok := cfg.GetSeverityOverride("KHV002")
		assert.True(t, ok)
		assert.Equal(t, "LOW", sev.String())
	})
}
