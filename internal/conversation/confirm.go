package conversation

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type confirmation int

const (
	confirmUnknown confirmation = iota
	confirmYes
	confirmNo
)

var affirmatives = phrases(
	"yes", "y", "yeah", "yep", "yup", "correct", "right", "confirm", "confirmed", "ok", "okay", "sure", "true",
	"כן", "נכון", "מאשר", "מאשרת", "בסדר", "אישור", "בדיוק", "מדויק",
)

var negatives = phrases(
	"no", "n", "nope", "wrong", "incorrect", "not", "change", "fix", "edit", "update", "mistake",
	"לא", "טעות", "שגוי", "לא נכון", "לתקן", "תקן", "תקני", "לשנות", "שנה", "שני",
)

type fieldAlias struct {
	field  Field
	tokens []string
}

var fieldAliases = buildAliases(map[Field][]string{
	FieldFullName: {"full name", "name", "שם מלא", "שם"},
	FieldIDNumber: {"id number", "id no", "id", "identity number", "תעודת זהות", "תז", "ת ז", "מספר זהות"},
	FieldGender:   {"gender", "sex", "מגדר", "מין"},
	FieldAge:      {"age", "גיל"},
	FieldHMO:      {"hmo", "health fund", "kupat holim", "קופת חולים", "קופה"},
	FieldCardNumber: {
		"hmo card number", "hmo card", "card number", "card",
		"מספר כרטיס קופת חולים", "כרטיס קופת חולים", "מספר כרטיס קופה", "כרטיס קופה", "מספר כרטיס", "כרטיס",
	},
	FieldTier: {"membership tier", "tier", "plan", "level", "מסלול", "רמה", "דרגה"},
})

func phrases(list ...string) [][]string {
	out := make([][]string, 0, len(list))
	for _, p := range list {
		out = append(out, tokenize(p))
	}
	return out
}

func buildAliases(m map[Field][]string) []fieldAlias {
	var out []fieldAlias
	for _, f := range Fields() {
		for _, alias := range m[f] {
			out = append(out, fieldAlias{field: f, tokens: tokenize(alias)})
		}
	}
	return out
}

// tokenize lower-cases s and splits it on anything that is not a letter or
// digit. Quote marks split too, so "I'd" is "i d" and ת"ז is "ת ז".
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

const hebrewPrefixes = "והבלמשכ"

func exactMatch(tok, want string) bool {
	return tok == want
}

// prefixedMatch also tries the token without a single Hebrew prefix letter
// ("הגיל" matches "גיל"). Only field names are matched this way: for the
// short confirmation words it turns "לכן" into "כן".
func prefixedMatch(tok, want string) bool {
	if tok == want {
		return true
	}
	r, size := utf8.DecodeRuneInString(tok)
	if strings.ContainsRune(hebrewPrefixes, r) && utf8.RuneCountInString(tok) > 2 {
		return tok[size:] == want
	}
	return false
}

// phraseAt returns the first token position where phrase occurs, or -1.
func phraseAt(tokens, phrase []string, match func(tok, want string) bool) int {
	if len(phrase) == 0 || len(phrase) > len(tokens) {
		return -1
	}
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		matched := true
		for j, want := range phrase {
			if !match(tokens[i+j], want) {
				matched = false
				break
			}
		}
		if matched {
			return i
		}
	}
	return -1
}

func containsAny(tokens []string, list [][]string) bool {
	for _, p := range list {
		if phraseAt(tokens, p, exactMatch) >= 0 {
			return true
		}
	}
	return false
}

// classifyConfirmation reads the answer to the summary question. A negative
// token wins over an affirmative one.
func classifyConfirmation(raw string) confirmation {
	tokens := tokenize(raw)
	switch {
	case containsAny(tokens, negatives):
		return confirmNo
	case containsAny(tokens, affirmatives):
		return confirmYes
	}
	return confirmUnknown
}

// namedField finds the field a correction request refers to, by alias or by
// its number in the summary. The alias mentioned first wins; at the same
// position the longer alias wins ("hmo card" over "hmo").
func namedField(raw string) (Field, bool) {
	tokens := tokenize(raw)
	var (
		best    fieldAlias
		bestPos = -1
	)
	for _, a := range fieldAliases {
		pos := phraseAt(tokens, a.tokens, prefixedMatch)
		if pos < 0 {
			continue
		}
		if bestPos < 0 || pos < bestPos || (pos == bestPos && len(a.tokens) > len(best.tokens)) {
			best, bestPos = a, pos
		}
	}
	if bestPos >= 0 {
		return best.field, true
	}
	for _, tok := range tokens {
		n, err := strconv.Atoi(tok)
		if err == nil && n >= 1 && n <= int(fieldCount) {
			return Field(n - 1), true
		}
	}
	return 0, false
}
