package nlp

import "strings"

// Tokens возвращает уникальные токены уже нормализованного текста.
func Tokens(normalized string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range strings.Fields(normalized) {
		out[t] = struct{}{}
	}
	return out
}

// ContainsPhrase сообщает, входит ли normalizedPhrase в normalizedText целыми
// словами: "rest api" находится в "... rest api ...", но не в "... rest apis ...".
func ContainsPhrase(normalizedText, normalizedPhrase string) bool {
	if normalizedPhrase == "" {
		return false
	}
	return strings.Contains(" "+normalizedText+" ", " "+normalizedPhrase+" ")
}

// Overlap считает токены b, которые есть и в a.
func Overlap(a, b string) int {
	ta := Tokens(NormalizeText(a))
	n := 0
	for t := range Tokens(NormalizeText(b)) {
		if _, ok := ta[t]; ok {
			n++
		}
	}
	return n
}
