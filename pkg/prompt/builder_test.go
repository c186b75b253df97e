package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artem13815/cvchat/pkg/cv"
	"github.com/artem13815/cvchat/pkg/llm"
)

type staticTools []llm.ToolDefinition

func (s staticTools) Definitions() []llm.ToolDefinition { return s }

var testTools = staticTools{
	llm.FunctionTool(llm.FunctionDefinition{Name: "save_personal_info", Parameters: map[string]any{"type": "object"}}),
	llm.FunctionTool(llm.FunctionDefinition{Name: "save_skills", Parameters: map[string]any{"type": "object"}}),
}

func newTestBuilder(t *testing.T, locale string) *Builder {
	t.Helper()
	cfg, err := DefaultConfig()
	require.NoError(t, err)
	return NewBuilder(cfg, testTools, locale)
}

func TestBuildIsDeterministic(t *testing.T) {
	b := newTestBuilder(t, "es-ES")
	d := cv.New()
	require.NoError(t, d.MergePersonalData(cv.PersonalData{Name: "Jane"}))
	d.SetSkills([]string{"Go", "SQL"})

	first, err := b.Build(d)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := b.Build(d)
		require.NoError(t, err)
		require.Equal(t, first.System, again.System)
	}
	assert.Len(t, first.Tools, 2)
}

func TestBuildRendersFixedShape(t *testing.T) {
	p, err := newTestBuilder(t, "").Build(cv.New())
	require.NoError(t, err)

	s := p.System
	assert.True(t, strings.HasPrefix(s, "# Role: CV Assistant\n"))
	assert.True(t, strings.HasSuffix(s, "--- START OF CONVERSATION ---"))
	assert.Contains(t, s, "- Name: (Not Set)\n")
	assert.Contains(t, s, "- Email: (Not Set)\n")
	assert.Contains(t, s, "### Skills\n(Not Set)\n")
	assert.Contains(t, s, "### Awards\n(Not Set)")
	assert.Contains(t, s, "## Language\nen\n")
	assert.Contains(t, s, "Emojis: No")

	assert.Contains(t, s, "- save_skills: ")
	assert.NotContains(t, s, "- render_skill_selector: ", "usage of unregistered tools is not rendered")

	i := strings.Index(s, "- format:")
	j := strings.Index(s, "- honesty:")
	k := strings.Index(s, "- scope:")
	assert.True(t, i < j && j < k, "constraints must be sorted by key")
}

func TestBuildRendersSnapshot(t *testing.T) {
	d := cv.New()
	require.NoError(t, d.MergePersonalData(cv.PersonalData{Name: "Jane", Email: "jane@x.com"}))
	d.SetSkills([]string{"Go"})
	d.Experience = []cv.ExperienceEntry{{Company: "Acme", Position: "Dev", StartDate: "2020", Current: true}}

	p, err := newTestBuilder(t, "ru").Build(d)
	require.NoError(t, err)
	assert.Contains(t, p.System, "- Name: Jane\n")
	assert.Contains(t, p.System, "- Email: jane@x.com\n")
	assert.Contains(t, p.System, "- Phone: (Not Set)\n")
	assert.Contains(t, p.System, "### Skills\n- Go\n")
	assert.Contains(t, p.System, "- Dev at Acme | 2020 - present\n")
	assert.Contains(t, p.System, "## Language\nru\n")
}

func TestResolveLanguage(t *testing.T) {
	cfg, err := DefaultConfig()
	require.NoError(t, err)
	assert.Equal(t, "es", cfg.ResolveLanguage("es_ES"))
	assert.Equal(t, "en", cfg.ResolveLanguage("de-DE"))
	assert.Equal(t, "en", cfg.ResolveLanguage(""))
}

func TestInvalidConfig(t *testing.T) {
	_, err := ParseConfig([]byte("goal: x\nlanguage_settings:\n  default_language: en\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = ParseConfig([]byte("role: [unclosed"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = LoadConfig("/does/not/exist.yaml")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg, err := DefaultConfig()
	require.NoError(t, err)
	_, err = NewBuilder(cfg, staticTools{}, "").Build(cv.New())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewBuilder(Config{}, testTools, "").Build(cv.New())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFormatCVKeepsAddressAndLocation(t *testing.T) {
	d := cv.New()
	d.PersonalData = &cv.PersonalData{Name: "Jane", Address: "Calle Mayor 1", Location: "Madrid"}

	s := FormatCV(d)
	assert.Contains(t, s, "- Address: Calle Mayor 1\n")
	assert.Contains(t, s, "- Location: Madrid\n")

	s = FormatCV(cv.New())
	assert.Contains(t, s, "- Address: (Not Set)\n")
	assert.Contains(t, s, "- Location: (Not Set)\n")
}
