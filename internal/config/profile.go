package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile configures the terminal chat client, loaded from a YAML file.
type Profile struct {
	UserID            string        `yaml:"user_id"`
	Token             string        `yaml:"token"`
	BackendURL        string        `yaml:"backend_url"`
	Timeout           time.Duration `yaml:"timeout"`
	Skills            []string      `yaml:"skills"`
	ContextWindow     int           `yaml:"context_window"`
	SystemPrompt      string        `yaml:"system_prompt"`
	CourseGenDisabled bool          `yaml:"course_generation_disabled"`
	GenerationTimeout time.Duration `yaml:"generation_timeout"`
	LogLevel          string        `yaml:"log_level"`
}

// LoadProfile reads and validates a profile file.
func LoadProfile(path string) (*Profile, error) {
	p, err := ReadProfile(path)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// ReadProfile reads a profile file and applies defaults without validating,
// so callers can override fields first.
func ReadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}
	return decodeProfile(data)
}

// ParseProfile unmarshals YAML bytes into a validated Profile.
func ParseProfile(data []byte) (*Profile, error) {
	p, err := decodeProfile(data)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("profile: parse: %w", err)
	}
	p.ApplyDefaults()
	return &p, nil
}

// ApplyDefaults fills in unset values.
func (p *Profile) ApplyDefaults() {
	if p.BackendURL == "" {
		p.BackendURL = "http://localhost:3000"
	}
	if p.Timeout == 0 {
		p.Timeout = 3 * time.Minute
	}
	if p.ContextWindow == 0 {
		p.ContextWindow = 10
	}
	if p.GenerationTimeout == 0 {
		p.GenerationTimeout = 3 * time.Minute
	}
	if p.LogLevel == "" {
		p.LogLevel = "warn"
	}
}

// Validate checks that all required fields are present and consistent.
func (p *Profile) Validate() error {
	var errs []string
	if strings.TrimSpace(p.UserID) == "" {
		errs = append(errs, "user_id is required")
	}
	if p.ContextWindow < 0 {
		errs = append(errs, "context_window must not be negative")
	}
	for i, s := range p.Skills {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, fmt.Sprintf("skills[%d] is empty", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("profile: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
