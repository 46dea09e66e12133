package rag

import "strings"

// languageExtensions is the language → extension mapping of spec.md §6,
// used to post-filter results by the requested language.
var languageExtensions = map[string][]string{
	"ts":   {".ts", ".tsx"},
	"tsx":  {".tsx"},
	"js":   {".js", ".jsx"},
	"jsx":  {".jsx"},
	"py":   {".py"},
	"md":   {".md"},
	"json": {".json"},
	"yaml": {".yaml", ".yml"},
	"yml":  {".yml", ".yaml"},
	"txt":  {".txt"},
}

// matchesLanguage reports whether path's extension is one of the extensions
// mapped from language. A language value starting with "." is used as a
// literal extension suffix; any other unmapped value maps to ".<value>".
func matchesLanguage(language, path string) bool {
	if language == "" {
		return true
	}
	lower := strings.ToLower(path)

	var exts []string
	switch {
	case strings.HasPrefix(language, "."):
		exts = []string{strings.ToLower(language)}
	default:
		if mapped, ok := languageExtensions[strings.ToLower(language)]; ok {
			exts = mapped
		} else {
			exts = []string{"." + strings.ToLower(language)}
		}
	}

	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
