package utils

import (
	"reflect"
	"testing"
)

func TestNormalizeSet(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "duplicates removed",
			input:    []string{"Matanzas State Forest", "Matanzas State Forest"},
			expected: []string{"Matanzas State Forest"},
		},
		{
			name:     "sorted output",
			input:    []string{"Volusia", "Alachua", "Duval"},
			expected: []string{"Alachua", "Duval", "Volusia"},
		},
		{
			name:     "empties and whitespace dropped",
			input:    []string{"", "  ", " Duval ", "Duval"},
			expected: []string{"Duval"},
		},
		{
			name:     "nil input",
			input:    nil,
			expected: []string{},
		},
		{
			name:     "already normalized",
			input:    []string{"Alachua", "Duval"},
			expected: []string{"Alachua", "Duval"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeSet(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("NormalizeSet(%v) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeSetIdempotent(t *testing.T) {
	input := []string{"b", "a", "a", "", "c "}
	once := NormalizeSet(input)
	twice := NormalizeSet(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second pass changed the set: %v != %v", once, twice)
	}
}
