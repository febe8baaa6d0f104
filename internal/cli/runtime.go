// Package cli holds the state and helpers shared by huntparse's commands.
package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/joshsymonds/huntparse/internal/config"
	"github.com/joshsymonds/huntparse/internal/kubehunter"
	"github.com/joshsymonds/huntparse/internal/models"
	"github.com/joshsymonds/huntparse/internal/validation"
	"github.com/joshsymonds/huntparse/pkg/logger"
	"github.com/joshsymonds/huntparse/pkg/pathutil"
)

// StdinPath is the argument that selects standard input.
const StdinPath = "-"

var codec = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// Runtime carries configuration and logging into commands.
type Runtime struct {
	Config *config.Config
	Logger logger.Logger

	owned *logger.ZapLogger
}

// NewRuntime returns a runtime with default configuration and the global logger.
func NewRuntime() *Runtime {
	return &Runtime{
		Config: config.Default(),
		Logger: logger.GetGlobalLogger(),
	}
}

// Init loads configuration from configPath (empty for defaults) and sets up
// logging. debug and logFormat override the file when set.
func (r *Runtime) Init(configPath string, debug bool, logFormat string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if debug {
		cfg.Logging.Level = "debug"
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	l, err := logger.New(cfg.LoggerOptions())
	if err != nil {
		return fmt.Errorf("setting up logger: %w", err)
	}
	logger.SetGlobalLogger(l)

	if r.owned != nil {
		_ = r.owned.Close()
	}
	r.Config = cfg
	r.Logger = l
	r.owned = l
	r.Logger.Debug("Loaded configuration", "path", configPath, "default_severity", cfg.DefaultSeverity())
	return nil
}

// Close flushes and releases the logger created by Init. It is safe to call
// on a runtime that was never initialized.
func (r *Runtime) Close() error {
	if r.owned == nil {
		return nil
	}
	err := r.owned.Close()
	r.owned = nil
	return err
}

// Parser builds a kube-hunter parser from the parser configuration.
func (r *Runtime) Parser() *kubehunter.Parser {
	return kubehunter.NewParser(
		kubehunter.WithDefaultSeverity(r.Config.DefaultSeverity()),
		kubehunter.WithSeverityOverrides(r.Config.SeverityOverrides()),
		kubehunter.WithLocationScheme(r.Config.Parser.LocationScheme),
	)
}

// Validator builds the validators selected by configuration.
func (r *Runtime) Validator() (validation.Validator, error) {
	return validation.New(r.Config.Validation.Schema, r.Config.Validation.Structural)
}

// OpenInput opens path for reading, or returns stdin for StdinPath.
func OpenInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == StdinPath {
		return io.NopCloser(stdin), nil
	}
	validPath, err := pathutil.ValidateInputPath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid input path: %w", err)
	}
	f, err := os.Open(validPath) //nolint:gosec // path validated above
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	return f, nil
}

// EncodeFindings renders findings as a JSON array. A nil slice renders as [].
func EncodeFindings(findings []models.Finding, pretty bool) ([]byte, error) {
	if findings == nil {
		findings = []models.Finding{}
	}
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = codec.MarshalIndent(findings, "", "  ")
	} else {
		data, err = codec.Marshal(findings)
	}
	if err != nil {
		return nil, fmt.Errorf("encoding findings: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeFindings reads a JSON array of findings.
func DecodeFindings(r io.Reader) ([]models.Finding, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading findings: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []models.Finding{}, nil
	}
	var findings []models.Finding
	if err := codec.Unmarshal(data, &findings); err != nil {
		return nil, fmt.Errorf("decoding findings: %w", err)
	}
	return findings, nil
}

// WriteOutput writes data to path, or to w when path is empty.
func WriteOutput(path string, data []byte, w io.Writer) error {
	if path == "" {
		_, err := w.Write(data)
		return err
	}
	validPath, err := pathutil.ValidateOutputPath(path)
	if err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	if err := os.WriteFile(validPath, data, 0o600); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
