package conversation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		in   string
		want Language
		ok   bool
	}{
		{"שלום, מה שלומך?", LangHebrew, true},
		{"Hello there", LangEnglish, true},
		{"Hi שלום", LangHebrew, true},
		{"abc אבג", "", false},
		{"123456789", "", false},
		{"  ?! ", "", false},
	}
	for _, c := range cases {
		got, ok := DetectLanguage(c.in)
		require.Equal(t, c.ok, ok, c.in)
		require.Equal(t, c.want, got, c.in)
	}
}

func TestParseLanguageChoice(t *testing.T) {
	cases := map[string]Language{
		"1":        LangEnglish,
		" English": LangEnglish,
		"en":       LangEnglish,
		"2":        LangHebrew,
		"Hebrew":   LangHebrew,
		"עברית":    LangHebrew,
		"שלום":     LangHebrew,
		"hi there": LangEnglish,
	}
	for in, want := range cases {
		got, ok := ParseLanguageChoice(in)
		require.True(t, ok, in)
		require.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "3", "???", "abc אבג"} {
		_, ok := ParseLanguageChoice(in)
		require.False(t, ok, in)
	}
}

func TestParseLanguageChoice_Codes(t *testing.T) {
	l, ok := ParseLanguageChoice(" HE ")
	require.True(t, ok)
	require.Equal(t, LangHebrew, l)
	l, ok = ParseLanguageChoice("en.")
	require.True(t, ok)
	require.Equal(t, LangEnglish, l)
}
