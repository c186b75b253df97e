package nlp

import (
	"regexp"
	"strings"
)

var (
	reNonWord = regexp.MustCompile(`[^\p{L}\p{N}+#]+`)
	reSpaces  = regexp.MustCompile(`\s+`)
)

// NormalizeText приводит текст к виду для сравнения:
// нижний регистр, всё кроме букв/цифр (и + # для c++/c#) заменяется пробелом,
// пробелы схлопываются.
func NormalizeText(s string) string {
	s = strings.ToLower(s)
	s = reNonWord.ReplaceAllString(s, " ")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeSkill нормализует навык так, что "Node.js" и "node js" совпадают.
func NormalizeSkill(skill string) string {
	return NormalizeText(skill)
}
