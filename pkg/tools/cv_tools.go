package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/artem13815/cvchat/pkg/cv"
)

// SavePersonalInfo merges contact details into the PersonalData section.
type SavePersonalInfo struct {
	store cv.Store
}

func NewSavePersonalInfo(store cv.Store) *SavePersonalInfo {
	return &SavePersonalInfo{store: store}
}

func (*SavePersonalInfo) Name() string { return "save_personal_info" }

func (*SavePersonalInfo) Description() string {
	return "Save the user's personal information. Only the provided fields are updated; the others are kept."
}

func (*SavePersonalInfo) Schema() JSONSchema {
	return JSONSchema{
		Type: "object",
		Properties: map[string]any{
			"full_name": stringProp("Full name of the user"),
			"email":     stringProp("Email address"),
			"phone":     stringProp("Phone number"),
			"address":   stringProp("Postal address"),
			"location":  stringProp("City and country"),
			"links":     stringArrayProp("Profile links (LinkedIn, GitHub, portfolio)"),
		},
	}
}

type personalInfoArgs struct {
	FullName string   `json:"full_name"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Address  string   `json:"address"`
	Location string   `json:"location"`
	Links    []string `json:"links"`
}

func (t *SavePersonalInfo) Execute(ctx context.Context, args map[string]any) (any, error) {
	convID, err := conversationFrom(ctx)
	if err != nil {
		return nil, err
	}
	var in personalInfoArgs
	if err := decodeInto(args, &in); err != nil {
		return nil, err
	}
	name := in.FullName
	if name == "" {
		name = in.Name
	}
	update := cv.PersonalData{
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(in.Email),
		Phone:    strings.TrimSpace(in.Phone),
		Address:  strings.TrimSpace(in.Address),
		Location: strings.TrimSpace(in.Location),
		Links:    in.Links,
	}
	fields := updatedFields(update)
	if len(fields) == 0 {
		return nil, fmt.Errorf("no personal information provided")
	}
	if _, err := t.store.Update(ctx, convID, func(d *cv.Data) error {
		return d.MergePersonalData(update)
	}); err != nil {
		return nil, err
	}
	return map[string]any{
		"status":         "success",
		"message":        "Personal information saved.",
		"updated_fields": fields,
	}, nil
}

func updatedFields(p cv.PersonalData) []string {
	var fields []string
	for _, f := range []struct {
		name string
		set  bool
	}{
		{"name", p.Name != ""},
		{"email", p.Email != ""},
		{"phone", p.Phone != ""},
		{"address", p.Address != ""},
		{"location", p.Location != ""},
		{"links", len(p.Links) > 0},
	} {
		if f.set {
			fields = append(fields, f.name)
		}
	}
	return fields
}

// SaveSkills replaces the skill list.
type SaveSkills struct {
	store cv.Store
}

func NewSaveSkills(store cv.Store) *SaveSkills {
	return &SaveSkills{store: store}
}

func (*SaveSkills) Name() string { return "save_skills" }

func (*SaveSkills) Description() string {
	return "Save the complete list of the user's skills. The previous list is replaced."
}

func (*SaveSkills) Schema() JSONSchema {
	return JSONSchema{
		Type:       "object",
		Properties: map[string]any{"skills": stringArrayProp("All skills of the user")},
		Required:   []string{"skills"},
	}
}

func (t *SaveSkills) Execute(ctx context.Context, args map[string]any) (any, error) {
	convID, err := conversationFrom(ctx)
	if err != nil {
		return nil, err
	}
	var in struct {
		Skills []string `json:"skills"`
	}
	if err := decodeInto(args, &in); err != nil {
		return nil, err
	}
	d, err := t.store.Update(ctx, convID, func(d *cv.Data) error {
		d.SetSkills(in.Skills)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":  "success",
		"message": "Skills saved.",
		"skills":  d.Skills,
	}, nil
}

// SaveCVInfo applies one or more sections, each under its declared policy.
type SaveCVInfo struct {
	store cv.Store
}

func NewSaveCVInfo(store cv.Store) *SaveCVInfo {
	return &SaveCVInfo{store: store}
}

func (*SaveCVInfo) Name() string { return "save_cv_info" }

func (*SaveCVInfo) Description() string {
	return "Save CV sections. cvInfo maps a section name (Profile, ContactInfo, Experience, Education, Projects, " +
		"Certifications, Languages, Publications, VolunteerExperience, Awards) to its value. Object sections are " +
		"merged field by field, list sections are replaced with the given list."
}

func (*SaveCVInfo) Schema() JSONSchema {
	return JSONSchema{
		Type:       "object",
		Properties: map[string]any{"cvInfo": objectProp("Section name to section value")},
		Required:   []string{"cvInfo"},
	}
}

func (t *SaveCVInfo) Execute(ctx context.Context, args map[string]any) (any, error) {
	convID, err := conversationFrom(ctx)
	if err != nil {
		return nil, err
	}
	info, _ := args["cvInfo"].(map[string]any)
	if len(info) == 0 {
		return nil, fmt.Errorf("cvInfo is empty")
	}

	updates := make(map[cv.Section]json.RawMessage, len(info))
	for name, value := range info {
		s, err := cv.ParseSection(name)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		updates[s] = raw
	}

	var applied []string
	if _, err := t.store.Update(ctx, convID, func(d *cv.Data) error {
		applied = applied[:0]
		for _, s := range cv.Sections {
			raw, ok := updates[s]
			if !ok {
				continue
			}
			if err := d.ApplySection(s, raw); err != nil {
				return err
			}
			applied = append(applied, string(s))
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return map[string]any{
		"status":           "success",
		"message":          "CV information saved.",
		"updated_sections": applied,
	}, nil
}
