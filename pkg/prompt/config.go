package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultConfig []byte

// ErrInvalidConfig: статическая конфигурация промпта отсутствует или испорчена.
var ErrInvalidConfig = errors.New("invalid prompt configuration")

type Persona struct {
	Tone   []string `yaml:"tone"`
	Style  string   `yaml:"style"`
	Emojis bool     `yaml:"emojis"`
}

type SuggestionHandling struct {
	Format        string   `yaml:"format"`
	Examples      []string `yaml:"examples"`
	WhenToSuggest []string `yaml:"when_to_suggest"`
}

type Instructions struct {
	ContextAwareness   string             `yaml:"context_awareness"`
	DialogueGuidelines []string           `yaml:"dialogue_guidelines"`
	ToolUsage          map[string]string  `yaml:"tool_usage"`
	SuggestionHandling SuggestionHandling `yaml:"suggestion_handling"`
}

type LanguageSettings struct {
	DefaultLanguage    string   `yaml:"default_language"`
	SupportedLanguages []string `yaml:"supported_languages"`
}

// Config — статическая часть системного промпта.
type Config struct {
	Role             string            `yaml:"role"`
	Goal             string            `yaml:"goal"`
	Persona          Persona           `yaml:"persona"`
	Context          string            `yaml:"context"`
	Instructions     Instructions      `yaml:"instructions"`
	Constraints      map[string]string `yaml:"constraints"`
	LanguageSettings LanguageSettings  `yaml:"language_settings"`
}

// DefaultConfig возвращает встроенную конфигурацию.
func DefaultConfig() (Config, error) {
	return ParseConfig(defaultConfig)
}

// LoadConfig читает YAML-файл конфигурации; пустой путь означает встроенную.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Role) == "" {
		return fmt.Errorf("%w: role is empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.LanguageSettings.DefaultLanguage) == "" {
		return fmt.Errorf("%w: default language is empty", ErrInvalidConfig)
	}
	return nil
}

// ResolveLanguage возвращает locale, если он поддерживается, иначе язык
// по умолчанию. Регион отбрасывается ("es-ES" совпадает с "es").
func (c Config) ResolveLanguage(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return c.LanguageSettings.DefaultLanguage
	}
	base := strings.ToLower(strings.SplitN(strings.ReplaceAll(locale, "_", "-"), "-", 2)[0])
	for _, l := range c.LanguageSettings.SupportedLanguages {
		if strings.EqualFold(l, locale) || strings.EqualFold(l, base) {
			return l
		}
	}
	return c.LanguageSettings.DefaultLanguage
}
