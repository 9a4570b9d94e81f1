package i18n

import "strings"

var languageNames = map[string]string{
	"en": "English",
	"id": "Indonesian",
	"ru": "Russian",
}

// IsSupported reports whether translations ship for the language code.
func IsSupported(code string) bool {
	_, ok := languageNames[strings.ToLower(code)]
	return ok
}
