package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCell(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"nil", nil, ""},
		{"string", "missense", "missense"},
		{"json number keeps literal", json.Number("0.050"), "0.050"},
		{"float", 0.5, "0.5"},
		{"int", 42, "42"},
		{"bool", true, "true"},
		{"object", map[string]interface{}{"b": 1, "a": "<x>"}, `{"a":"<x>","b":1}`},
		{"array", []interface{}{"x", json.Number("2")}, `["x",2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCell(tt.in))
		})
	}
}

func TestJoinValues(t *testing.T) {
	assert.Equal(t, "A, B", JoinValues([]interface{}{"A", "B"}))
	assert.Equal(t, "A", JoinValues([]string{"A"}))
	assert.Equal(t, "", JoinValues([]interface{}{}))
	assert.Equal(t, "", JoinValues(nil))
	assert.Equal(t, "ClinVar", JoinValues("ClinVar"))
	assert.Equal(t, "", JoinValues(map[string]interface{}{"a": 1}))
}

func TestSafeFileName(t *testing.T) {
	assert.Equal(t, "Pathogenic_Likely pathogenic", SafeFileName("Pathogenic/Likely pathogenic"))
	assert.Equal(t, "a_b", SafeFileName(`a\b`))
	assert.Equal(t, "__", SafeFileName(".."))
	assert.Equal(t, "(blank)", SafeFileName("(blank)"))
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank("  \t"))
	assert.False(t, IsBlank("Benign"))
}
