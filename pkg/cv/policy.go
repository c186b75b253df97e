package cv

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"dario.cat/mergo"

	"github.com/artem13815/cvchat/pkg/nlp"
)

// Policy says how an update is applied to a section.
type Policy int

const (
	// PolicyMerge overlays the non-empty fields of the update onto the
	// existing object; fields missing from the update are kept.
	PolicyMerge Policy = iota + 1
	// PolicyReplace swaps the whole list for the new one.
	PolicyReplace
)

func (p Policy) String() string {
	switch p {
	case PolicyMerge:
		return "merge"
	case PolicyReplace:
		return "replace"
	}
	return "unknown"
}

var policies = map[Section]Policy{
	SectionPersonalData:        PolicyMerge,
	SectionProfile:             PolicyMerge,
	SectionContactInfo:         PolicyMerge,
	SectionSkills:              PolicyReplace,
	SectionExperience:          PolicyReplace,
	SectionEducation:           PolicyReplace,
	SectionProjects:            PolicyReplace,
	SectionCertifications:      PolicyReplace,
	SectionLanguages:           PolicyReplace,
	SectionPublications:        PolicyReplace,
	SectionVolunteerExperience: PolicyReplace,
	SectionAwards:              PolicyReplace,
}

// PolicyOf returns the declared update policy of a section.
func PolicyOf(s Section) (Policy, error) {
	p, ok := policies[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSection, s)
	}
	return p, nil
}

// ParseSection resolves a section name case-insensitively.
func ParseSection(name string) (Section, error) {
	name = strings.TrimSpace(name)
	for _, s := range Sections {
		if strings.EqualFold(string(s), name) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSection, name)
}

// MergePersonalData overlays the non-empty fields of p.
func (d *Data) MergePersonalData(p PersonalData) error {
	if d.PersonalData == nil {
		d.PersonalData = &PersonalData{}
	}
	return mergo.Merge(d.PersonalData, p, mergo.WithOverride)
}

func (d *Data) MergeProfile(p Profile) error {
	if d.Profile == nil {
		d.Profile = &Profile{}
	}
	return mergo.Merge(d.Profile, p, mergo.WithOverride)
}

func (d *Data) MergeContactInfo(c ContactInfo) error {
	if d.ContactInfo == nil {
		d.ContactInfo = &ContactInfo{}
	}
	return mergo.Merge(d.ContactInfo, c, mergo.WithOverride)
}

// SetSkills replaces the skill list; duplicates are dropped by normalized value.
func (d *Data) SetSkills(skills []string) {
	d.Skills = nlp.DedupeSkills(skills)
}

// ApplySection decodes raw into the section's declared shape and applies it
// under the section's policy.
func (d *Data) ApplySection(s Section, raw json.RawMessage) error {
	if _, err := PolicyOf(s); err != nil {
		return err
	}
	switch s {
	case SectionPersonalData:
		var v PersonalData
		if err := decodeStrict(raw, &v); err != nil {
			return sectionErr(s, err)
		}
		return d.MergePersonalData(v)
	case SectionProfile:
		var v Profile
		if err := decodeStrict(raw, &v); err != nil {
			return sectionErr(s, err)
		}
		return d.MergeProfile(v)
	case SectionContactInfo:
		var v ContactInfo
		if err := decodeStrict(raw, &v); err != nil {
			return sectionErr(s, err)
		}
		return d.MergeContactInfo(v)
	case SectionSkills:
		var v []string
		if err := decodeStrict(raw, &v); err != nil {
			return sectionErr(s, err)
		}
		d.SetSkills(v)
	case SectionExperience:
		return replaceList(s, raw, &d.Experience)
	case SectionEducation:
		return replaceList(s, raw, &d.Education)
	case SectionProjects:
		return replaceList(s, raw, &d.Projects)
	case SectionCertifications:
		return replaceList(s, raw, &d.Certifications)
	case SectionLanguages:
		return replaceList(s, raw, &d.Languages)
	case SectionPublications:
		return replaceList(s, raw, &d.Publications)
	case SectionVolunteerExperience:
		return replaceList(s, raw, &d.VolunteerExperience)
	case SectionAwards:
		return replaceList(s, raw, &d.Awards)
	}
	return nil
}

type entry interface {
	validate() error
}

func replaceList[E entry](s Section, raw json.RawMessage, dst *[]E) error {
	var items []E
	if err := decodeStrict(raw, &items); err != nil {
		return sectionErr(s, err)
	}
	for i, it := range items {
		if err := it.validate(); err != nil {
			return sectionErr(s, fmt.Errorf("item %d: %w", i, err))
		}
	}
	if items == nil {
		items = []E{}
	}
	*dst = items
	return nil
}

func decodeStrict(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("empty value")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func sectionErr(s Section, err error) error {
	return fmt.Errorf("%w %s: %v", ErrInvalidSection, s, err)
}

func required(fields map[string]string) error {
	var missing []string
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	// map order is random; keep the message stable
	sort.Strings(missing)
	return fmt.Errorf("missing required field(s): %s", strings.Join(missing, ", "))
}

func (e ExperienceEntry) validate() error {
	return required(map[string]string{"company": e.Company, "position": e.Position})
}

func (e EducationEntry) validate() error {
	return required(map[string]string{"institution": e.Institution, "degree": e.Degree})
}

func (e ProjectEntry) validate() error {
	return required(map[string]string{"name": e.Name})
}

func (e CertificationEntry) validate() error {
	return required(map[string]string{"name": e.Name, "issuer": e.Issuer})
}

func (e LanguageEntry) validate() error {
	if err := required(map[string]string{"name": e.Name}); err != nil {
		return err
	}
	if e.Level != "" && !e.Level.Valid() {
		return fmt.Errorf("unknown level %q", e.Level)
	}
	return nil
}

func (e PublicationEntry) validate() error {
	return required(map[string]string{"title": e.Title})
}

func (e VolunteerEntry) validate() error {
	return required(map[string]string{"organization": e.Organization, "role": e.Role})
}

func (e AwardEntry) validate() error {
	return required(map[string]string{"title": e.Title})
}
