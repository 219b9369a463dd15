package models

// languageIDs maps the platform's language identifiers to the execution
// service's numeric language ids. Languages outside this table are rejected
// before any network call.
var languageIDs = map[string]int{
	"c":          50,
	"cpp":        54,
	"java":       62,
	"javascript": 63,
	"python":     71,
}

// LanguageID resolves a language name to its execution service identifier.
func LanguageID(language string) (int, bool) {
	id, ok := languageIDs[language]
	return id, ok
}

// SupportedLanguages lists the accepted language identifiers.
func SupportedLanguages() []string {
	out := make([]string, 0, len(languageIDs))
	for name := range languageIDs {
		out = append(out, name)
	}
	return out
}
