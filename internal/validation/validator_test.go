package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsymonds/huntparse/internal/models"
)

func validFinding(seed string) models.Finding {
	return models.Finding{
		ID:          models.GenerateFindingID(seed),
		Name:        "K8s Version Disclosure",
		Category:    "Information Disclosure",
		Description: "The kubernetes version could be obtained from the /version endpoint",
		Location:    "Local to Pod (kube-hunter-tpw2n)",
		OSILayer:    models.OSILayerNetwork,
		Severity:    models.SeverityMedium,
		Attributes:  map[string]any{"vid": "KHV002"},
	}
}

func TestSchemaValidator_Validate(t *testing.T) {
	validator, err := NewSchemaValidator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		findings  func() []models.Finding
		wantIndex int
		wantPath  string
		wantErr   bool
	}{
		{
			name:     "nil slice is an empty sequence",
			findings: func() []models.Finding { return nil },
		},
		{
			name:     "empty slice",
			findings: func() []models.Finding { return []models.Finding{} },
		},
		{
			name:     "valid findings",
			findings: func() []models.Finding { return []models.Finding{validFinding("a"), validFinding("b")} },
		},
		{
			name: "empty description and location are allowed",
			findings: func() []models.Finding {
				f := validFinding("a")
				f.Description = ""
				f.Location = ""
				return []models.Finding{f}
			},
		},
		{
			name: "severity outside enumeration",
			findings: func() []models.Finding {
				f := validFinding("b")
				f.Severity = "medium"
				return []models.Finding{validFinding("a"), f}
			},
			wantErr:   true,
			wantIndex: 1,
			wantPath:  "/1/severity",
		},
		{
			name: "empty name",
			findings: func() []models.Finding {
				f := validFinding("a")
				f.Name = ""
				return []models.Finding{f}
			},
			wantErr:   true,
			wantIndex: 0,
			wantPath:  "/0/name",
		},
		{
			name: "null attributes",
			findings: func() []models.Finding {
				f := validFinding("a")
				f.Attributes = nil
				return []models.Finding{f}
			},
			wantErr:   true,
			wantIndex: 0,
			wantPath:  "/0/attributes",
		},
		{
			name: "id is not a uuid",
			findings: func() []models.Finding {
				f := validFinding("a")
				f.ID = "6e8b8d5f9c4a2f1e"
				return []models.Finding{f}
			},
			wantErr:   true,
			wantIndex: 0,
			wantPath:  "/0/id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(tt.findings())
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, IsSchemaError(err))

			var se *SchemaError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.wantIndex, se.Index)
			assert.Equal(t, tt.wantPath, se.Path)
			assert.Contains(t, se.Error(), "findings schema violation at finding")
		})
	}
}

func TestStructural_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, Structural{}.Validate([]models.Finding{validFinding("a"), validFinding("b")}))
	})

	t.Run("invalid field", func(t *testing.T) {
		f := validFinding("b")
		f.Category = ""
		err := Structural{}.Validate([]models.Finding{validFinding("a"), f})

		var se *SchemaError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, 1, se.Index)
		assert.Contains(t, err.Error(), "category")
	})

	t.Run("duplicate id", func(t *testing.T) {
		err := Structural{}.Validate([]models.Finding{validFinding("a"), validFinding("a")})

		var se *SchemaError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, 1, se.Index)
		assert.Equal(t, "/1/id", se.Path)
		assert.Contains(t, err.Error(), "duplicate id")
	})
}

type recordingValidator struct {
	err   error
	calls *int
}

func (r recordingValidator) Validate([]models.Finding) error {
	*r.calls++
	return r.err
}

func TestChain_StopsAtFirstFailure(t *testing.T) {
	var first, second int
	failure := &SchemaError{Index: -1, Err: assert.AnError}

	chain := Chain{
		recordingValidator{calls: &first, err: failure},
		recordingValidator{calls: &second},
	}

	err := chain.Validate(nil)
	assert.Same(t, failure, err)
	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)
	assert.Equal(t, "findings schema violation: "+assert.AnError.Error(), err.Error())
}

func TestDefault(t *testing.T) {
	validator, err := Default()
	require.NoError(t, err)

	assert.NoError(t, validator.Validate([]models.Finding{validFinding("a")}))

	bad := validFinding("a")
	bad.Severity = "UNKNOWN"
	assert.True(t, IsSchemaError(validator.Validate([]models.Finding{bad})))
}

func TestIsSchemaError(t *testing.T) {
	assert.False(t, IsSchemaError(nil))
	assert.False(t, IsSchemaError(assert.AnError))
	assert.True(t, IsSchemaError(&SchemaError{Err: assert.AnError}))
}

func TestNew(t *testing.T) {
	bad := validFinding("a")
	bad.Severity = "UNKNOWN"
	dupes := []models.Finding{validFinding("a"), validFinding("a")}

	none, err := New(false, false)
	require.NoError(t, err)
	assert.NoError(t, none.Validate([]models.Finding{bad}))

	schemaOnly, err := New(true, false)
	require.NoError(t, err)
	assert.Error(t, schemaOnly.Validate([]models.Finding{bad}))
	assert.NoError(t, schemaOnly.Validate(dupes))

	structuralOnly, err := New(false, true)
	require.NoError(t, err)
	assert.Error(t, structuralOnly.Validate(dupes))
}
