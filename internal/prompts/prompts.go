// Package prompts builds the instruction-augmented prompts sent to the
// completion model.
package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultConfig []byte

const languagePlaceholder = "{language}"

// Language is a chat language the assistant can be asked to answer in.
type Language struct {
	Code string `yaml:"code" json:"code"`
	Name string `yaml:"name" json:"name"`
}

// Config holds the prompt instructions and the available languages.
type Config struct {
	BaseInstruction     string     `yaml:"base_instruction"`
	SubjectInstruction  string     `yaml:"subject_instruction"`
	LanguageInstruction string     `yaml:"language_instruction"`
	DefaultLanguage     string     `yaml:"default_language"`
	Languages           []Language `yaml:"languages"`
}

// Default returns the embedded prompt configuration.
func Default() *Config {
	cfg, err := Parse(defaultConfig)
	if err != nil {
		panic(fmt.Sprintf("prompts: embedded config is invalid: %v", err))
	}
	return cfg
}

// Load reads the prompt configuration from path, or returns the embedded
// default when path is empty.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a prompt configuration. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse prompts: %w", err)
	}

	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}
	if strings.TrimSpace(cfg.BaseInstruction) == "" {
		return nil, fmt.Errorf("prompts missing required field: base_instruction")
	}
	if cfg.LanguageInstruction != "" && !strings.Contains(cfg.LanguageInstruction, languagePlaceholder) {
		return nil, fmt.Errorf("prompts language_instruction must contain %s", languagePlaceholder)
	}

	seen := make(map[string]bool, len(cfg.Languages))
	for _, lang := range cfg.Languages {
		if lang.Code == "" || lang.Name == "" {
			return nil, fmt.Errorf("prompts language entries need both code and name")
		}
		if seen[lang.Code] {
			return nil, fmt.Errorf("prompts language %q listed twice", lang.Code)
		}
		seen[lang.Code] = true
	}

	return &cfg, nil
}

// LanguageName returns the display name for code. Unknown codes are
// returned unchanged so the model still receives an explicit instruction.
func (c *Config) LanguageName(code string) string {
	for _, lang := range c.Languages {
		if strings.EqualFold(lang.Code, code) {
			return lang.Name
		}
	}
	return code
}

// Build returns the prompt for message: the base instruction, the subject
// focus when hasSubject is set, and a response-language clause unless
// languageCode is empty or the default language.
func (c *Config) Build(message string, hasSubject bool, languageCode string) string {
	var b strings.Builder
	b.WriteString(c.BaseInstruction)
	b.WriteByte(' ')

	if hasSubject && c.SubjectInstruction != "" {
		b.WriteString(c.SubjectInstruction)
		b.WriteByte(' ')
	}

	languageCode = strings.TrimSpace(languageCode)
	if languageCode != "" && !strings.EqualFold(languageCode, c.DefaultLanguage) && c.LanguageInstruction != "" {
		b.WriteString(strings.ReplaceAll(c.LanguageInstruction, languagePlaceholder, c.LanguageName(languageCode)))
		b.WriteByte(' ')
	}

	b.WriteString(message)
	return b.String()
}

// Supports reports whether code is one of the configured languages.
func (c *Config) Supports(code string) bool {
	for _, lang := range c.Languages {
		if strings.EqualFold(lang.Code, code) {
			return true
		}
	}
	return false
}
