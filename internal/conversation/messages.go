package conversation

import (
	"fmt"
	"strings"
)

// text holds one message in every supported language.
type text map[Language]string

func (t text) in(lang Language) string {
	if s, ok := t[lang]; ok {
		return s
	}
	return t[LangEnglish]
}

var invalidValue = text{LangEnglish: "Invalid value.", LangHebrew: "ערך לא תקין."}

var fieldLabels = [fieldCount]text{
	FieldFullName:   {LangEnglish: "full name", LangHebrew: "שם מלא"},
	FieldIDNumber:   {LangEnglish: "ID number", LangHebrew: "מספר תעודת זהות"},
	FieldGender:     {LangEnglish: "gender", LangHebrew: "מגדר"},
	FieldAge:        {LangEnglish: "age", LangHebrew: "גיל"},
	FieldHMO:        {LangEnglish: "HMO", LangHebrew: "קופת חולים"},
	FieldCardNumber: {LangEnglish: "HMO card number", LangHebrew: "מספר כרטיס קופת חולים"},
	FieldTier:       {LangEnglish: "membership tier", LangHebrew: "מסלול חברות"},
}

var fieldPrompts = [fieldCount]text{
	FieldFullName:   {LangEnglish: "What is your full name?", LangHebrew: "מה שמך המלא?"},
	FieldIDNumber:   {LangEnglish: "Please enter your 9-digit ID number.", LangHebrew: "אנא הזן/י מספר תעודת זהות בן 9 ספרות."},
	FieldGender:     {LangEnglish: "What is your gender?", LangHebrew: "מה המגדר שלך?"},
	FieldAge:        {LangEnglish: "How old are you? (0-120)", LangHebrew: "מה גילך? (0-120)"},
	FieldHMO:        {LangEnglish: "Which HMO are you a member of?", LangHebrew: "באיזו קופת חולים את/ה חבר/ה?"},
	FieldCardNumber: {LangEnglish: "Please enter your 9-digit HMO card number.", LangHebrew: "אנא הזן/י מספר כרטיס קופת חולים בן 9 ספרות."},
	FieldTier:       {LangEnglish: "What is your membership tier?", LangHebrew: "מהו מסלול החברות שלך?"},
}

var (
	languageQuestion = "Please choose a language: 1 - English, 2 - עברית\n" +
		"אנא בחר/י שפה: 1 - English, 2 - עברית"
	welcome = text{
		LangEnglish: "Hello! I will ask you a few questions about yourself and your membership.",
		LangHebrew:  "שלום! אשאל אותך כמה שאלות על עצמך ועל החברות שלך בקופה.",
	}
	summaryHeader = text{
		LangEnglish: "Please review your details:",
		LangHebrew:  "אנא בדוק/י את הפרטים שלך:",
	}
	confirmQuestion = text{
		LangEnglish: "Is everything correct? Reply yes to confirm, or name the field you want to change.",
		LangHebrew:  "האם הכול נכון? השב/י כן לאישור, או ציין/י את השדה שברצונך לשנות.",
	}
	whichField = text{
		LangEnglish: "Which field would you like to change? For example: age, HMO or tier.",
		LangHebrew:  "איזה שדה ברצונך לשנות? לדוגמה: גיל, קופת חולים או מסלול.",
	}
	correctionIntro = text{
		LangEnglish: "Let's fix your %s.",
		LangHebrew:  "בוא/י נתקן את %s.",
	}
	confirmedMessage = text{
		LangEnglish: "Thank you, your details are confirmed. You can now ask questions about your HMO services.",
		LangHebrew:  "תודה, הפרטים שלך אושרו. כעת אפשר לשאול שאלות על שירותי קופת החולים שלך.",
	}
	notConfirmedMessage = text{
		LangEnglish: "Please finish and confirm your details before asking questions.",
		LangHebrew:  "אנא השלם/י ואשר/י את הפרטים לפני שאילת שאלות.",
	}
)

// LanguageQuestion is shown when a session starts. It is bilingual because
// the language is not known yet.
func LanguageQuestion() string {
	return languageQuestion
}

func NotConfirmedMessage(lang Language) string {
	return notConfirmedMessage.in(lang)
}

func renderSummary(rec Record, lang Language) string {
	var sb strings.Builder
	sb.WriteString(summaryHeader.in(lang))
	for i, f := range Fields() {
		value, _ := rec.Get(f)
		fmt.Fprintf(&sb, "\n%d. %s: %s", i+1, f.Label(lang), DisplayValue(f, value, lang))
	}
	sb.WriteString("\n")
	sb.WriteString(confirmQuestion.in(lang))
	return sb.String()
}

func renderRetry(v Validator, reason Reason, lang Language) string {
	return v.ErrorMessage(reason, lang) + "\n" + v.Prompt(lang)
}

func renderCorrection(f Field, lang Language) string {
	return fmt.Sprintf(correctionIntro.in(lang), f.Label(lang)) + "\n" + ValidatorFor(f).Prompt(lang)
}
