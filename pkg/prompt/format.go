package prompt

import (
	"fmt"
	"strings"

	"github.com/artem13815/cvchat/pkg/cv"
)

// FormatCV renders a CV snapshot with a fixed shape: every section and every
// object field is always present, absent values render as "(Not Set)".
func FormatCV(d cv.Data) string {
	var sb strings.Builder

	pd := cv.PersonalData{}
	if d.PersonalData != nil {
		pd = *d.PersonalData
	}
	sb.WriteString("### Personal Information\n")
	field(&sb, "Name", pd.Name)
	field(&sb, "Email", pd.Email)
	field(&sb, "Phone", pd.Phone)
	field(&sb, "Address", pd.Address)
	field(&sb, "Location", pd.Location)
	field(&sb, "Links", strings.Join(pd.Links, ", "))

	pr := cv.Profile{}
	if d.Profile != nil {
		pr = *d.Profile
	}
	sb.WriteString("\n### Profile\n")
	field(&sb, "Headline", pr.Headline)
	field(&sb, "Summary", pr.Summary)

	ci := cv.ContactInfo{}
	if d.ContactInfo != nil {
		ci = *d.ContactInfo
	}
	sb.WriteString("\n### Contact Info\n")
	field(&sb, "Email", ci.Email)
	field(&sb, "Phone", ci.Phone)
	field(&sb, "Address", ci.Address)
	field(&sb, "Links", strings.Join(ci.Links, ", "))

	list(&sb, "Skills", d.Skills, func(s string) string { return s })
	list(&sb, "Experience", d.Experience, func(e cv.ExperienceEntry) string {
		return joinNonEmpty(fmt.Sprintf("%s at %s", e.Position, e.Company), period(e.StartDate, e.EndDate, e.Current), e.Location, e.Description)
	})
	list(&sb, "Education", d.Education, func(e cv.EducationEntry) string {
		return joinNonEmpty(fmt.Sprintf("%s at %s", e.Degree, e.Institution), e.FieldOfStudy, period(e.StartDate, e.EndDate, false), e.Description)
	})
	list(&sb, "Projects", d.Projects, func(e cv.ProjectEntry) string {
		return joinNonEmpty(e.Name, strings.Join(e.Technologies, ", "), e.Link, e.Description)
	})
	list(&sb, "Certifications", d.Certifications, func(e cv.CertificationEntry) string {
		return joinNonEmpty(e.Name, e.Issuer, e.Date)
	})
	list(&sb, "Languages", d.Languages, func(e cv.LanguageEntry) string {
		return joinNonEmpty(e.Name, string(e.Level))
	})
	list(&sb, "Publications", d.Publications, func(e cv.PublicationEntry) string {
		return joinNonEmpty(e.Title, e.Publisher, e.Date, e.Link)
	})
	list(&sb, "Volunteer Experience", d.VolunteerExperience, func(e cv.VolunteerEntry) string {
		return joinNonEmpty(fmt.Sprintf("%s at %s", e.Role, e.Organization), period(e.StartDate, e.EndDate, false), e.Description)
	})
	list(&sb, "Awards", d.Awards, func(e cv.AwardEntry) string {
		return joinNonEmpty(e.Title, e.Issuer, e.Date)
	})

	return strings.TrimRight(sb.String(), "\n")
}

func field(sb *strings.Builder, name, value string) {
	if strings.TrimSpace(value) == "" {
		value = notSet
	}
	fmt.Fprintf(sb, "- %s: %s\n", name, value)
}

func list[E any](sb *strings.Builder, title string, items []E, line func(E) string) {
	fmt.Fprintf(sb, "\n### %s\n", title)
	if len(items) == 0 {
		sb.WriteString(notSet + "\n")
		return
	}
	for _, it := range items {
		fmt.Fprintf(sb, "- %s\n", line(it))
	}
}

func period(start, end string, current bool) string {
	switch {
	case start == "" && end == "":
		return ""
	case current || end == "":
		return start + " - present"
	default:
		return start + " - " + end
	}
}

func joinNonEmpty(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " | ")
}
