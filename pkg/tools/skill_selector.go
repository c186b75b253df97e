package tools

import (
	"context"
	"sort"
	"strings"

	"github.com/artem13815/cvchat/pkg/chat"
	"github.com/artem13815/cvchat/pkg/nlp"
)

// WidgetSkillSelector is the widget type rendered by the UI skill picker.
const WidgetSkillSelector = "skillSelector"

const CategoryAll = "all"

var skillCatalog = map[string][]string{
	"technical": {
		"JavaScript", "Python", "React", "Node.js", "TypeScript", "SQL", "Git",
		"Docker", "AWS", "HTML/CSS", "GraphQL", "REST APIs",
	},
	"soft": {
		"Communication", "Leadership", "Team Management", "Problem Solving",
		"Critical Thinking", "Time Management", "Adaptability", "Creativity",
	},
	"language": {
		"English", "Spanish", "French", "German", "Chinese", "Japanese", "Russian", "Portuguese",
	},
	"industry": {
		"Healthcare", "Finance", "Education", "E-commerce", "Marketing", "UX/UI Design",
		"Data Science", "AI/Machine Learning", "Cybersecurity",
	},
}

// the "all" category takes the head of every category
var allCategoryTake = []struct {
	category string
	n        int
}{
	{"technical", 6},
	{"soft", 4},
	{"language", 3},
	{"industry", 4},
}

// CatalogSkills returns the candidate skills of a category; unknown
// categories fall back to "all".
func CatalogSkills(category string) []string {
	if skills, ok := skillCatalog[strings.ToLower(strings.TrimSpace(category))]; ok {
		return append([]string(nil), skills...)
	}
	var all []string
	for _, t := range allCategoryTake {
		all = append(all, skillCatalog[t.category][:t.n]...)
	}
	return all
}

// RenderSkillSelector asks the UI to show a skill picker. It does not touch
// the CV; the user's choice comes back as a new user message.
type RenderSkillSelector struct{}

func NewRenderSkillSelector() *RenderSkillSelector { return &RenderSkillSelector{} }

func (*RenderSkillSelector) Name() string { return "render_skill_selector" }

func (*RenderSkillSelector) Interactive() bool { return true }

func (*RenderSkillSelector) Description() string {
	return "Show the user an interactive skill picker. Use it when the user needs help choosing skills."
}

func (*RenderSkillSelector) Schema() JSONSchema {
	return JSONSchema{
		Type: "object",
		Properties: map[string]any{
			"skillCategory":   enumProp("Category of skills to offer", "technical", "soft", "language", "industry", CategoryAll),
			"jobTitle":        stringProp("Target job title, used to rank skills"),
			"industryContext": stringProp("Industry of the target job"),
		},
	}
}

func (*RenderSkillSelector) Execute(_ context.Context, args map[string]any) (any, error) {
	category, _ := args["skillCategory"].(string)
	if category == "" {
		category = CategoryAll
	}
	jobTitle, _ := args["jobTitle"].(string)
	industry, _ := args["industryContext"].(string)

	skills := RankSkills(CatalogSkills(category), jobTitle+" "+industry)
	return Result{
		Payload: map[string]any{
			"status":  "success",
			"message": "Skill selector displayed. Wait for the user to choose.",
		},
		Widget: &chat.Widget{
			Type: WidgetSkillSelector,
			Props: map[string]any{
				"category":        category,
				"jobTitle":        jobTitle,
				"industryContext": industry,
				"skills":          skills,
			},
		},
	}, nil
}

// RankSkills orders skills by token overlap with hint, keeping the
// catalog order among equals.
func RankSkills(skills []string, hint string) []string {
	out := append([]string(nil), skills...)
	if strings.TrimSpace(hint) == "" {
		return out
	}
	score := make(map[string]int, len(out))
	for _, s := range out {
		score[s] = nlp.Overlap(hint, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return score[out[i]] > score[out[j]] })
	return out
}
