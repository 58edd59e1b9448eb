package domain

import (
	"math/rand"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

const reservedSet = "<>:\"/\\|?*()[]{}#%&=+@!$,;'`~"

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "My Video", "My_Video"},
		{"reserved", "a<b>c:d\"e/f\\g|h?i*j", "a_b_c_d_e_f_g_h_i_j"},
		{"brackets", "Song (Official) [HD] {4K}", "Song_Official_HD_4K"},
		{"collapse", "a___b   c", "a_b_c"},
		{"edges", "..._hidden title_...", "hidden_title"},
		{"tabs and newlines", "line\tone\ntwo", "line_one_two"},
		{"unicode space", "a\u00a0b\u2003c", "a_b_c"},
		{"separator controls", "a\x1cb\x1d\x1ec\x1fd", "a_b_c_d"},
		{"only reserved", "<>:?*", FallbackFilename},
		{"empty", "", FallbackFilename},
		{"dots", "....", FallbackFilename},
		{"unicode kept", "Café — naïve", "Café_—_naïve"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
		})
	}
}

func TestSanitizeFilename_Truncates(t *testing.T) {
	long := strings.Repeat("abc", 100)

	result := SanitizeFilename(long)
	assert.Equal(t, MaxFilenameLength, utf8.RuneCountInString(result))

	// a separator right at the cut must not survive as a trailing underscore
	edge := strings.Repeat("x", MaxFilenameLength-1) + " tail"
	result = SanitizeFilename(edge)
	assert.Equal(t, strings.Repeat("x", MaxFilenameLength-1), result)
}

func TestSanitizeFilename_Properties(t *testing.T) {
	alphabet := []rune("ab Z9._-\t\n é" + reservedSet)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		n := rng.Intn(400)
		runes := make([]rune, n)
		for j := range runes {
			runes[j] = alphabet[rng.Intn(len(alphabet))]
		}
		input := string(runes)

		out := SanitizeFilename(input)

		assert.NotEmpty(t, out)
		assert.LessOrEqual(t, utf8.RuneCountInString(out), MaxFilenameLength)
		assert.False(t, strings.ContainsAny(out, reservedSet), "reserved char in %q", out)
		assert.False(t, strings.ContainsFunc(out, unicode.IsSpace), "whitespace in %q", out)
		assert.False(t, strings.HasPrefix(out, ".") || strings.HasPrefix(out, "_"), "bad prefix in %q", out)
		assert.False(t, strings.HasSuffix(out, ".") || strings.HasSuffix(out, "_"), "bad suffix in %q", out)
		assert.NotContains(t, out, "__")
		assert.Equal(t, out, SanitizeFilename(out), "not idempotent for %q", input)
	}
}
