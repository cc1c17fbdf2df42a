package conversation

import (
	"strings"
	"unicode"
)

type Language string

const (
	LangEnglish Language = "en"
	LangHebrew  Language = "he"
)

// scriptShare is the share of letters one script must hold before the text
// counts as written in that language.
const scriptShare = 0.6

func (l Language) Valid() bool {
	return l == LangEnglish || l == LangHebrew
}

// DetectLanguage reports the language a text is written in, judged by the
// script of its letters. Text without letters, or with no dominant script,
// is undetermined.
func DetectLanguage(s string) (Language, bool) {
	var total, hebrew, latin int
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		total++
		switch {
		case unicode.Is(unicode.Hebrew, r):
			hebrew++
		case unicode.Is(unicode.Latin, r):
			latin++
		}
	}
	if total == 0 {
		return "", false
	}
	switch {
	case float64(hebrew)/float64(total) > scriptShare:
		return LangHebrew, true
	case float64(latin)/float64(total) > scriptShare:
		return LangEnglish, true
	}
	return "", false
}

var languageSelectors = map[string]Language{
	"1":       LangEnglish,
	"en":      LangEnglish,
	"eng":     LangEnglish,
	"english": LangEnglish,
	"אנגלית":  LangEnglish,
	"2":       LangHebrew,
	"he":      LangHebrew,
	"heb":     LangHebrew,
	"hebrew":  LangHebrew,
	"עברית":   LangHebrew,
	"ivrit":   LangHebrew,
}

// ParseLanguageChoice resolves the answer to the language question: an
// explicit selector first, then the script of free text.
func ParseLanguageChoice(raw string) (Language, bool) {
	key := strings.ToLower(strings.Trim(strings.TrimSpace(raw), ".!"))
	if l, ok := languageSelectors[key]; ok {
		return l, true
	}
	return DetectLanguage(raw)
}
