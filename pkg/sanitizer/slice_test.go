package sanitizer

import (
	"reflect"
	"testing"
)

func TestNormalizeIDs(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{
			name:  "lowercase hex ids",
			input: []string{"65F1A2B3C4D5E6F708192A3B"},
			want:  []string{"65f1a2b3c4d5e6f708192a3b"},
		},
		{
			name:  "trim whitespace",
			input: []string{" 65f1a2b3c4d5e6f708192a3b "},
			want:  []string{"65f1a2b3c4d5e6f708192a3b"},
		},
		{
			name:  "remove duplicates",
			input: []string{"65f1a2b3c4d5e6f708192a3b", "65F1A2B3C4D5E6F708192A3B"},
			want:  []string{"65f1a2b3c4d5e6f708192a3b"},
		},
		{
			name:  "filter empty strings",
			input: []string{"", "  ", "65f1a2b3c4d5e6f708192a3b"},
			want:  []string{"65f1a2b3c4d5e6f708192a3b"},
		},
		{
			name:  "non hex kept for validation",
			input: []string{" not-an-id "},
			want:  []string{"not-an-id"},
		},
		{
			name:  "nil input",
			input: nil,
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeIDs(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeIDs(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
