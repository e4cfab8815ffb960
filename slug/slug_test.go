package slug

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Kako povećati engagement", "kako-povecati-engagement"},
		{"Hello World", "hello-world"},
		{"Testing 123", "testing-123"},
		{"Multiple   Spaces", "multiple-spaces"},
		{"Special@#Characters!", "specialcharacters"},
		{"---Dashes---", "dashes"},
		{"  Trim me  ", "trim-me"},
		{"Čćžšđ Ŝtraße", "cczs-strae"},
		{"a - b -- c", "a-b-c"},
		{"Crème Brûlée", "creme-brulee"},
		{"!!!", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Make(tt.input))
		})
	}
}

func TestMake_OutputShape(t *testing.T) {
	shape := regexp.MustCompile(`^([a-z0-9]+(-[a-z0-9]+)*)?$`)
	titles := []string{
		"Digitalni marketing u 2025.",
		"   -- leading and trailing --   ",
		"tabs\tand\nnewlines",
		"emoji 🚀 launch",
		"日本語のタイトル",
		"UPPER_snake_Case",
		"Ünïcödé -- ßoup",
	}

	for _, title := range titles {
		slug := Make(title)
		assert.Regexp(t, shape, slug, "title %q", title)
		assert.NotContains(t, slug, "--")
	}
}

func TestForTitle(t *testing.T) {
	assert.Equal(t, "hello-world", ForTitle("Hello, World!"))
	assert.Equal(t, Fallback, ForTitle("?!?"))
	assert.Equal(t, Fallback, ForTitle("   "))
}

func TestWithTimestamp(t *testing.T) {
	at := time.UnixMilli(1735689600123)
	assert.Equal(t, "hello-world-1735689600123", WithTimestamp("hello-world", at))
}

func TestHasBase(t *testing.T) {
	tests := []struct {
		slug, base string
		expected   bool
	}{
		{"taken", "taken", true},
		{"taken-1718000000000", "taken", true},
		{"taken-42", "taken", true},
		{"taken-", "taken", false},
		{"taken-over", "taken", false},
		{"taken-4a", "taken", false},
		{"mistaken", "taken", false},
		{"final-title", "taken", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, HasBase(tt.slug, tt.base), "HasBase(%q, %q)", tt.slug, tt.base)
	}
}
