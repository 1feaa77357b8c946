package variables_test

import (
	"testing"

	"github.com/arthur-debert/refold/pkg/errors"
	"github.com/arthur-debert/refold/pkg/variables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{"no placeholders", "plain text", nil},
		{"single", "the var is {{varname}}", []string{"varname"}},
		{"multiple", "{{a}} and {{b}}", []string{"a", "b"}},
		{"repeated counts once", "{{a}} {{a}}", []string{"a"}},
		{"nested braces use inner", "{{{{inner}}}}", []string{"inner"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, variables.Names(tt.value))
		})
	}
}

func TestSubstitute(t *testing.T) {
	got := variables.Substitute("the var is {{varname}}", "varname", "varvalue")
	assert.Equal(t, "the var is varvalue", got)
}

func TestExpandMissingVariable(t *testing.T) {
	_, err := variables.Expand("{{nope}}", map[string]string{"other": "x"})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrVariableMissing))
	assert.ErrorContains(t, err, "nope")
}

func TestResolveInterReferences(t *testing.T) {
	vars := map[string]string{
		"simple":            "value",
		"complex":           "plainand{{simple}}",
		"more_complex":      "{{simple}} and {{complex}}",
		"even_more_complex": "{{{{more_complex}}}}",
	}

	resolved, err := variables.Resolve(vars)
	require.NoError(t, err)

	assert.Equal(t, "value", resolved["simple"])
	assert.Equal(t, "plainandvalue", resolved["complex"])
	assert.Equal(t, "value and plainandvalue", resolved["more_complex"])
	assert.Equal(t, "{{value and plainandvalue}}", resolved["even_more_complex"])
}

func TestResolveDirectCycle(t *testing.T) {
	_, err := variables.Resolve(map[string]string{"a": "{{a}}"})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrVariableCycle))
}

func TestResolveIndirectCycle(t *testing.T) {
	vars := map[string]string{
		"a": "{{b}}",
		"b": "{{c}}",
		"c": "{{a}}",
	}
	_, err := variables.Resolve(vars)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrVariableCycle))
}

func TestResolveUndefinedReference(t *testing.T) {
	_, err := variables.Resolve(map[string]string{"a": "{{ghost}}"})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrVariableCycle))
}

func TestResolveEmpty(t *testing.T) {
	resolved, err := variables.Resolve(map[string]string{})
	require.NoError(t, err)
	assert.Empty(t, resolved)
}

func TestCheckName(t *testing.T) {
	tests := []struct {
		name    string
		varName string
		wantErr bool
	}{
		{"plain name", "host", false},
		{"reserved prefix", "SELF_ROOT", true},
		{"negation prefix", "!dark", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := variables.CheckName(tt.varName)
			if tt.wantErr {
				assert.True(t, errors.IsErrorCode(err, errors.ErrVariableReserved))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
