package conversation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Field is one entry of the user record, in collection order.
type Field int

const (
	FieldFullName Field = iota
	FieldIDNumber
	FieldGender
	FieldAge
	FieldHMO
	FieldCardNumber
	FieldTier

	fieldCount
)

var fieldKeys = [fieldCount]string{
	"full_name",
	"id_number",
	"gender",
	"age",
	"hmo",
	"hmo_card_number",
	"tier",
}

func (f Field) Valid() bool {
	return f >= 0 && f < fieldCount
}

func (f Field) String() string {
	if !f.Valid() {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return fieldKeys[f]
}

func (f Field) Label(lang Language) string {
	return fieldLabels[f].in(lang)
}

func (f Field) last() bool {
	return f == fieldCount-1
}

// Fields returns every field in collection order.
func Fields() []Field {
	out := make([]Field, 0, fieldCount)
	for f := Field(0); f < fieldCount; f++ {
		out = append(out, f)
	}
	return out
}

// Reason is the stable, machine-readable cause of a rejected value.
type Reason string

const (
	ReasonEmpty         Reason = "empty"
	ReasonLength        Reason = "length"
	ReasonNoLetters     Reason = "no_letters"
	ReasonNonDigit      Reason = "non_digit"
	ReasonNotNumber     Reason = "not_number"
	ReasonOutOfRange    Reason = "out_of_range"
	ReasonUnknownOption Reason = "unknown_option"
)

type ValidationError struct {
	Field  Field
	Reason Reason
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func reject(f Field, reason Reason) error {
	return &ValidationError{Field: f, Reason: reason}
}

// Validator checks the raw answer for one field and returns the canonical
// value stored in the record.
type Validator interface {
	Field() Field
	Name() string
	Validate(raw string) (string, error)
	Prompt(lang Language) string
	ErrorMessage(reason Reason, lang Language) string
}

var validators = [fieldCount]Validator{
	FieldFullName:   &nameValidator{maxRunes: 100},
	FieldIDNumber:   &digitsValidator{field: FieldIDNumber, length: 9},
	FieldGender:     &optionValidator{field: FieldGender, options: genderOptions},
	FieldAge:        &ageValidator{min: 0, max: 120},
	FieldHMO:        &optionValidator{field: FieldHMO, options: hmoOptions},
	FieldCardNumber: &digitsValidator{field: FieldCardNumber, length: 9},
	FieldTier:       &optionValidator{field: FieldTier, options: tierOptions},
}

func ValidatorFor(f Field) Validator {
	if !f.Valid() {
		return nil
	}
	return validators[f]
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

type nameValidator struct {
	maxRunes int
}

func (v *nameValidator) Field() Field { return FieldFullName }
func (v *nameValidator) Name() string { return FieldFullName.String() }

func (v *nameValidator) Validate(raw string) (string, error) {
	name := collapseSpaces(raw)
	if name == "" {
		return "", reject(FieldFullName, ReasonEmpty)
	}
	if len([]rune(name)) > v.maxRunes {
		return "", reject(FieldFullName, ReasonLength)
	}
	if strings.IndexFunc(name, unicode.IsLetter) < 0 {
		return "", reject(FieldFullName, ReasonNoLetters)
	}
	return name, nil
}

func (v *nameValidator) Prompt(lang Language) string {
	return fieldPrompts[FieldFullName].in(lang)
}

func (v *nameValidator) ErrorMessage(reason Reason, lang Language) string {
	switch reason {
	case ReasonEmpty:
		return text{LangEnglish: "Please enter your full name.", LangHebrew: "אנא הזן/י את שמך המלא."}.in(lang)
	case ReasonLength:
		return text{
			LangEnglish: fmt.Sprintf("The name is too long (up to %d characters).", v.maxRunes),
			LangHebrew:  fmt.Sprintf("השם ארוך מדי (עד %d תווים).", v.maxRunes),
		}.in(lang)
	case ReasonNoLetters:
		return text{LangEnglish: "A name must contain letters.", LangHebrew: "שם חייב להכיל אותיות."}.in(lang)
	}
	return invalidValue.in(lang)
}

// digitsValidator accepts exactly length ASCII digits. Nothing is trimmed
// from the inside, padded or cut.
type digitsValidator struct {
	field  Field
	length int
}

func (v *digitsValidator) Field() Field { return v.field }
func (v *digitsValidator) Name() string { return v.field.String() }

func (v *digitsValidator) Validate(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", reject(v.field, ReasonEmpty)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", reject(v.field, ReasonNonDigit)
		}
	}
	if len(s) != v.length {
		return "", reject(v.field, ReasonLength)
	}
	return s, nil
}

func (v *digitsValidator) Prompt(lang Language) string {
	return fieldPrompts[v.field].in(lang)
}

func (v *digitsValidator) ErrorMessage(reason Reason, lang Language) string {
	label := v.field.Label(lang)
	switch reason {
	case ReasonEmpty:
		return text{
			LangEnglish: fmt.Sprintf("Please enter your %s.", label),
			LangHebrew:  fmt.Sprintf("אנא הזן/י %s.", label),
		}.in(lang)
	case ReasonNonDigit:
		return text{
			LangEnglish: fmt.Sprintf("The %s must contain digits only.", label),
			LangHebrew:  fmt.Sprintf("%s חייב להכיל ספרות בלבד.", label),
		}.in(lang)
	case ReasonLength:
		return text{
			LangEnglish: fmt.Sprintf("The %s must be exactly %d digits.", label, v.length),
			LangHebrew:  fmt.Sprintf("%s חייב להכיל בדיוק %d ספרות.", label, v.length),
		}.in(lang)
	}
	return invalidValue.in(lang)
}

type ageValidator struct {
	min int
	max int
}

func (v *ageValidator) Field() Field { return FieldAge }
func (v *ageValidator) Name() string { return FieldAge.String() }

func (v *ageValidator) Validate(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", reject(FieldAge, ReasonEmpty)
	}
	age, err := strconv.Atoi(s)
	if err != nil {
		return "", reject(FieldAge, ReasonNotNumber)
	}
	if age < v.min || age > v.max {
		return "", reject(FieldAge, ReasonOutOfRange)
	}
	return strconv.Itoa(age), nil
}

func (v *ageValidator) Prompt(lang Language) string {
	return fieldPrompts[FieldAge].in(lang)
}

func (v *ageValidator) ErrorMessage(reason Reason, lang Language) string {
	switch reason {
	case ReasonEmpty:
		return text{LangEnglish: "Please enter your age.", LangHebrew: "אנא הזן/י את גילך."}.in(lang)
	case ReasonNotNumber:
		return text{LangEnglish: "Age must be a whole number.", LangHebrew: "הגיל חייב להיות מספר שלם."}.in(lang)
	case ReasonOutOfRange:
		return text{
			LangEnglish: fmt.Sprintf("Age must be between %d and %d.", v.min, v.max),
			LangHebrew:  fmt.Sprintf("הגיל חייב להיות בין %d ל-%d.", v.min, v.max),
		}.in(lang)
	}
	return invalidValue.in(lang)
}

// option is one member of a closed set. The record stores Key; either
// language's label is accepted as input.
type option struct {
	Key    string
	Labels text
}

var genderOptions = []option{
	{Key: "male", Labels: text{LangEnglish: "Male", LangHebrew: "זכר"}},
	{Key: "female", Labels: text{LangEnglish: "Female", LangHebrew: "נקבה"}},
	{Key: "other", Labels: text{LangEnglish: "Other", LangHebrew: "אחר"}},
}

var hmoOptions = []option{
	{Key: "maccabi", Labels: text{LangEnglish: "Maccabi", LangHebrew: "מכבי"}},
	{Key: "meuhedet", Labels: text{LangEnglish: "Meuhedet", LangHebrew: "מאוחדת"}},
	{Key: "clalit", Labels: text{LangEnglish: "Clalit", LangHebrew: "כללית"}},
}

var tierOptions = []option{
	{Key: "gold", Labels: text{LangEnglish: "Gold", LangHebrew: "זהב"}},
	{Key: "silver", Labels: text{LangEnglish: "Silver", LangHebrew: "כסף"}},
	{Key: "bronze", Labels: text{LangEnglish: "Bronze", LangHebrew: "ארד"}},
}

type optionValidator struct {
	field   Field
	options []option
}

func (v *optionValidator) Field() Field { return v.field }
func (v *optionValidator) Name() string { return v.field.String() }

func (v *optionValidator) Validate(raw string) (string, error) {
	s := strings.ToLower(collapseSpaces(raw))
	if s == "" {
		return "", reject(v.field, ReasonEmpty)
	}
	for _, opt := range v.options {
		if s == opt.Key {
			return opt.Key, nil
		}
		for _, label := range opt.Labels {
			if s == strings.ToLower(label) {
				return opt.Key, nil
			}
		}
	}
	return "", reject(v.field, ReasonUnknownOption)
}

func (v *optionValidator) label(key string, lang Language) string {
	for _, opt := range v.options {
		if opt.Key == key {
			return opt.Labels.in(lang)
		}
	}
	return key
}

func (v *optionValidator) choices(lang Language) string {
	labels := make([]string, 0, len(v.options))
	for _, opt := range v.options {
		labels = append(labels, opt.Labels.in(lang))
	}
	return strings.Join(labels, " / ")
}

func (v *optionValidator) Prompt(lang Language) string {
	return fmt.Sprintf("%s (%s)", fieldPrompts[v.field].in(lang), v.choices(lang))
}

func (v *optionValidator) ErrorMessage(reason Reason, lang Language) string {
	switch reason {
	case ReasonEmpty, ReasonUnknownOption:
		return text{
			LangEnglish: fmt.Sprintf("Please choose one of: %s.", v.choices(lang)),
			LangHebrew:  fmt.Sprintf("אנא בחר/י אחת מהאפשרויות: %s.", v.choices(lang)),
		}.in(lang)
	}
	return invalidValue.in(lang)
}

// DisplayValue renders a stored value for the user: option labels in the
// given language, everything else as stored.
func DisplayValue(f Field, value string, lang Language) string {
	if ov, ok := ValidatorFor(f).(*optionValidator); ok {
		return ov.label(value, lang)
	}
	return value
}
