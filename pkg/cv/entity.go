package cv

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion — версия хранимого блоба Data. Блобы другой версии
// Decode отвергает.
const SchemaVersion = 1

type Section string

const (
	SectionPersonalData        Section = "PersonalData"
	SectionProfile             Section = "Profile"
	SectionContactInfo         Section = "ContactInfo"
	SectionSkills              Section = "Skills"
	SectionExperience          Section = "Experience"
	SectionEducation           Section = "Education"
	SectionProjects            Section = "Projects"
	SectionCertifications      Section = "Certifications"
	SectionLanguages           Section = "Languages"
	SectionPublications        Section = "Publications"
	SectionVolunteerExperience Section = "VolunteerExperience"
	SectionAwards              Section = "Awards"
)

// Sections перечисляет все секции в порядке вывода.
var Sections = []Section{
	SectionPersonalData,
	SectionProfile,
	SectionContactInfo,
	SectionSkills,
	SectionExperience,
	SectionEducation,
	SectionProjects,
	SectionCertifications,
	SectionLanguages,
	SectionPublications,
	SectionVolunteerExperience,
	SectionAwards,
}

type PersonalData struct {
	Name     string   `json:"name,omitempty"`
	Email    string   `json:"email,omitempty"`
	Phone    string   `json:"phone,omitempty"`
	Address  string   `json:"address,omitempty"`
	Location string   `json:"location,omitempty"`
	Links    []string `json:"links,omitempty"`
}

type Profile struct {
	Headline string `json:"headline,omitempty"`
	Summary  string `json:"summary,omitempty"`
}

type ContactInfo struct {
	Email   string   `json:"email,omitempty"`
	Phone   string   `json:"phone,omitempty"`
	Address string   `json:"address,omitempty"`
	Links   []string `json:"links,omitempty"`
}

type ExperienceEntry struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate,omitempty"`
	Current     bool   `json:"current,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

type EducationEntry struct {
	Institution  string `json:"institution"`
	Degree       string `json:"degree"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate,omitempty"`
	FieldOfStudy string `json:"fieldOfStudy,omitempty"`
	Location     string `json:"location,omitempty"`
	Description  string `json:"description,omitempty"`
}

type ProjectEntry struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	Link         string   `json:"link,omitempty"`
}

type CertificationEntry struct {
	Name        string `json:"name"`
	Issuer      string `json:"issuer"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
}

type LanguageLevel string

const (
	LevelNative       LanguageLevel = "Native"
	LevelFluent       LanguageLevel = "Fluent"
	LevelProfessional LanguageLevel = "Professional"
	LevelIntermediate LanguageLevel = "Intermediate"
	LevelBasic        LanguageLevel = "Basic"
)

func (l LanguageLevel) Valid() bool {
	switch l {
	case LevelNative, LevelFluent, LevelProfessional, LevelIntermediate, LevelBasic:
		return true
	}
	return false
}

type LanguageEntry struct {
	Name  string        `json:"name"`
	Level LanguageLevel `json:"level"`
}

type PublicationEntry struct {
	Title       string `json:"title"`
	Publisher   string `json:"publisher,omitempty"`
	Date        string `json:"date,omitempty"`
	Link        string `json:"link,omitempty"`
	Description string `json:"description,omitempty"`
}

type VolunteerEntry struct {
	Organization string `json:"organization"`
	Role         string `json:"role"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate,omitempty"`
	Description  string `json:"description,omitempty"`
}

type AwardEntry struct {
	Title       string `json:"title"`
	Issuer      string `json:"issuer,omitempty"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
}

// Data — CV-документ целиком. Незаполненные секции равны nil.
type Data struct {
	Version             int                  `json:"version"`
	PersonalData        *PersonalData        `json:"PersonalData,omitempty"`
	Profile             *Profile             `json:"Profile,omitempty"`
	ContactInfo         *ContactInfo         `json:"ContactInfo,omitempty"`
	Skills              []string             `json:"Skills,omitempty"`
	Experience          []ExperienceEntry    `json:"Experience,omitempty"`
	Education           []EducationEntry     `json:"Education,omitempty"`
	Projects            []ProjectEntry       `json:"Projects,omitempty"`
	Certifications      []CertificationEntry `json:"Certifications,omitempty"`
	Languages           []LanguageEntry      `json:"Languages,omitempty"`
	Publications        []PublicationEntry   `json:"Publications,omitempty"`
	VolunteerExperience []VolunteerEntry     `json:"VolunteerExperience,omitempty"`
	Awards              []AwardEntry         `json:"Awards,omitempty"`
	UpdatedAt           time.Time            `json:"updatedAt"`
}

// New возвращает пустой документ текущей версии схемы.
func New() Data {
	return Data{Version: SchemaVersion}
}

var (
	ErrUnknownSection     = errors.New("unknown cv section")
	ErrInvalidSection     = errors.New("invalid cv section value")
	ErrUnsupportedVersion = errors.New("unsupported cv schema version")
)

// Store — порт хранения CV-документа разговора.
type Store interface {
	Get(ctx context.Context, conversationID uuid.UUID) (Data, error)
	// Update атомарно применяет fn к текущему документу и сохраняет результат.
	Update(ctx context.Context, conversationID uuid.UUID, fn func(*Data) error) (Data, error)
	Reset(ctx context.Context, conversationID uuid.UUID) error
}
