package nlp

import "strings"

// aliases maps a normalized skill spelling to its canonical key.
var aliases = map[string]string{
	"postgresql":   "postgres",
	"k8s":          "kubernetes",
	"golang":       "go",
	"js":           "javascript",
	"ts":           "typescript",
	"rest":         "rest api",
	"rest apis":    "rest api",
	"cicd":         "ci cd",
	"nodejs":       "node js",
	"reactjs":      "react",
	"react js":     "react",
	"ml":           "machine learning",
	"ui ux":        "ux ui design",
	"ux ui":        "ux ui design",
	"ui ux design": "ux ui design",
}

// CanonicalSkill returns the comparison key of a skill: normalized and
// with known aliases folded, so "Golang" and "go" share one key.
func CanonicalSkill(skill string) string {
	base := NormalizeSkill(skill)
	if c, ok := aliases[base]; ok {
		return c
	}
	return base
}

// SameSkill reports whether two spellings name the same skill.
func SameSkill(a, b string) bool {
	ka := CanonicalSkill(a)
	return ka != "" && ka == CanonicalSkill(b)
}

// DedupeSkills trims entries, drops empties and keeps the first spelling of
// every skill, preserving order.
func DedupeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		key := CanonicalSkill(s)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
