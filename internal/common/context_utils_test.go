package common

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeSearchQuery(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims", "  oak table ", "oak table"},
		{"strips wildcards", `50%_off\`, "50off"},
		{"empty", "   ", ""},
		{"ascii cut", strings.Repeat("a", 120), strings.Repeat("a", MaxSearchRunes)},
		{"multi-byte cut", strings.Repeat("소파", 60), strings.Repeat("소파", MaxSearchRunes/2)},
		{"multi-byte under limit", strings.Repeat("소파", 17), strings.Repeat("소파", 17)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeSearchQuery(tt.input)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
			assert.LessOrEqual(t, utf8.RuneCountInString(got), MaxSearchRunes)
		})
	}
}
