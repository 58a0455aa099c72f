package doctree

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)
	keyRe    = regexp.MustCompile(`^[a-z0-9_]+$`)
)

// Slugify turns a heading into a section key: runs of non-alphanumerics
// become "_", the result is lower-cased and trimmed of "_". An empty result
// becomes "section".
func Slugify(title string) string {
	s := nonAlnum.ReplaceAllString(strings.TrimSpace(title), "_")
	s = strings.Trim(strings.ToLower(s), "_")
	if s == "" {
		return "section"
	}
	return s
}

// ValidKey reports whether key is machine-safe.
func ValidKey(key string) bool {
	return keyRe.MatchString(key)
}

func humanize(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
