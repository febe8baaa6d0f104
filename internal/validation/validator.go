// Package validation checks that normalized findings conform to the shared
// findings schema.
package validation

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joshsymonds/huntparse/internal/models"
)

//go:embed findings-schema.json
var findingsSchema []byte

// schemaURL matches the $id of the embedded schema.
const schemaURL = "https://github.com/joshsymonds/huntparse/findings-schema.json"

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Validator checks a findings sequence. Implementations return nil or a
// *SchemaError and must be safe for concurrent use.
type Validator interface {
	Validate(findings []models.Finding) error
}

// SchemaError reports a finding that does not conform to the schema.
type SchemaError struct {
	Err error
	// Path is the JSON pointer of the offending value, e.g. "/0/severity".
	Path string
	// Index of the offending finding, or -1 when the whole sequence is at fault.
	Index int
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("findings schema violation: %v", e.Err)
	}
	return fmt.Sprintf("findings schema violation at finding %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *SchemaError) Unwrap() error {
	return e.Err
}

// IsSchemaError checks if err is, or wraps, a SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// SchemaValidator validates findings against the embedded JSON schema.
type SchemaValidator struct {
	schema *jsonschema.Schema
}

// NewSchemaValidator compiles the embedded findings schema.
func NewSchemaValidator() (*SchemaValidator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	if err := compiler.AddResource(schemaURL, bytes.NewReader(findingsSchema)); err != nil {
		return nil, fmt.Errorf("loading findings schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compiling findings schema: %w", err)
	}
	return &SchemaValidator{schema: schema}, nil
}

// Validate implements Validator. A nil slice is treated as empty.
func (v *SchemaValidator) Validate(findings []models.Finding) error {
	if findings == nil {
		findings = []models.Finding{}
	}

	raw, err := codec.Marshal(findings)
	if err != nil {
		return &SchemaError{Index: -1, Err: fmt.Errorf("encoding findings: %w", err)}
	}
	var doc any
	if err := codec.Unmarshal(raw, &doc); err != nil {
		return &SchemaError{Index: -1, Err: fmt.Errorf("decoding findings: %w", err)}
	}

	err = v.schema.Validate(doc)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &SchemaError{Index: -1, Err: err}
	}
	leaf := deepestCause(ve)
	return &SchemaError{
		Index: indexFromPointer(leaf.InstanceLocation),
		Path:  leaf.InstanceLocation,
		Err:   errors.New(leaf.Message),
	}
}

func deepestCause(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}

func indexFromPointer(pointer string) int {
	first, _, _ := strings.Cut(strings.TrimPrefix(pointer, "/"), "/")
	idx, err := strconv.Atoi(first)
	if err != nil {
		return -1
	}
	return idx
}

// Structural validates findings with the Go-level checks of models.Finding
// and rejects duplicate IDs.
type Structural struct{}

// Validate implements Validator.
func (Structural) Validate(findings []models.Finding) error {
	seen := make(map[string]int, len(findings))
	for i := range findings {
		if err := findings[i].IsValid(); err != nil {
			return &SchemaError{Index: i, Err: err}
		}
		if prev, ok := seen[findings[i].ID]; ok {
			return &SchemaError{Index: i, Path: "/" + strconv.Itoa(i) + "/id", Err: fmt.Errorf("duplicate id %s (first used by finding %d)", findings[i].ID, prev)}
		}
		seen[findings[i].ID] = i
	}
	return nil
}

// Chain runs validators in order and returns the first failure.
type Chain []Validator

// Validate implements Validator.
func (c Chain) Validate(findings []models.Finding) error {
	for _, v := range c {
		if err := v.Validate(findings); err != nil {
			return err
		}
	}
	return nil
}

// Default returns the schema validator preceded by the structural checks.
func Default() (Validator, error) {
	return New(true, true)
}

// New builds a chain of the selected validators. With neither selected the
// chain accepts everything.
func New(schema, structural bool) (Validator, error) {
	chain := Chain{}
	if structural {
		chain = append(chain, Structural{})
	}
	if schema {
		sv, err := NewSchemaValidator()
		if err != nil {
			return nil, err
		}
		chain = append(chain, sv)
	}
	return chain, nil
}
