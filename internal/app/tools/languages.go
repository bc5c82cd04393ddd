package tools

import "strings"

// Language is a translation target, identified by its NLLB-200 code.
type Language struct {
	Code string
	Name string
}

const (
	DefaultSourceLang = "eng_Latn"
	DefaultTargetLang = "spa_Latn"
)

var languages = []Language{
	{Code: "spa_Latn", Name: "Spanish"},
	{Code: "fra_Latn", Name: "French"},
	{Code: "deu_Latn", Name: "German"},
	{Code: "ita_Latn", Name: "Italian"},
	{Code: "por_Latn", Name: "Portuguese"},
	{Code: "nld_Latn", Name: "Dutch"},
	{Code: "rus_Cyrl", Name: "Russian"},
	{Code: "arb_Arab", Name: "Arabic"},
	{Code: "hin_Deva", Name: "Hindi"},
	{Code: "zho_Hans", Name: "Chinese (Simplified)"},
	{Code: "jpn_Jpan", Name: "Japanese"},
	{Code: "kor_Hang", Name: "Korean"},
	{Code: "eng_Latn", Name: "English"},
}

// Languages returns the supported translation languages.
func Languages() []Language {
	return append([]Language(nil), languages...)
}

func isLanguage(code string) bool {
	for _, l := range languages {
		if l.Code == code {
			return true
		}
	}
	return false
}

// shortLang turns "spa_Latn" into "spa".
func shortLang(code string) string {
	short, _, _ := strings.Cut(code, "_")
	return short
}
