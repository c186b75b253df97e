package tools

import "github.com/artem13815/cvchat/pkg/cv"

// NewDefaultRegistry registers every built-in CV tool.
func NewDefaultRegistry(store cv.Store) (*Registry, error) {
	r := NewRegistry()
	for _, t := range []Tool{
		NewSavePersonalInfo(store),
		NewSaveSkills(store),
		NewSaveCVInfo(store),
		NewRenderSkillSelector(),
		NewAddSuggestions(),
	} {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}
