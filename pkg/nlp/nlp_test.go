package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Node.js", "node js"},
		{"  C++ / C#  ", "c++ c#"},
		{"REST-APIs", "rest apis"},
		{"Résumé  Écrit", "résumé écrit"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.in))
		})
	}
}

func TestSameSkill(t *testing.T) {
	assert.True(t, SameSkill("Golang", "go"))
	assert.True(t, SameSkill("PostgreSQL", "postgres"))
	assert.True(t, SameSkill("Node.js", "nodejs"))
	assert.False(t, SameSkill("Java", "JavaScript"))
	assert.False(t, SameSkill("", ""))
}

func TestDedupeSkills(t *testing.T) {
	got := DedupeSkills([]string{" Go ", "golang", "", "Docker", "docker", "K8s", "Kubernetes"})
	assert.Equal(t, []string{"Go", "Docker", "K8s"}, got)
}

func TestContainsPhrase(t *testing.T) {
	text := NormalizeText("Built REST API services in Go")
	assert.True(t, ContainsPhrase(text, "rest api"))
	assert.False(t, ContainsPhrase(text, "rest apis"))
	assert.False(t, ContainsPhrase(text, ""))
}

func TestOverlap(t *testing.T) {
	assert.Equal(t, 2, Overlap("Senior Backend Engineer", "backend engineer"))
	assert.Equal(t, 0, Overlap("Nurse", "Data Science"))
}
