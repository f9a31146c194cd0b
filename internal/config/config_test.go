package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fullProfile = `
user_id: alice
token: secret-token
backend_url: https://learn.example.com
timeout: 90s
skills: [go, kubernetes]
context_window: 6
system_prompt: "Be concise."
course_generation_disabled: true
generation_timeout: 2m
log_level: debug
`

func TestParseProfile_Full(t *testing.T) {
	p, err := ParseProfile([]byte(fullProfile))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.UserID != "alice" {
		t.Errorf("UserID = %q, want alice", p.UserID)
	}
	if p.BackendURL != "https://learn.example.com" {
		t.Errorf("BackendURL = %q", p.BackendURL)
	}
	if p.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", p.Timeout)
	}
	if len(p.Skills) != 2 || p.Skills[1] != "kubernetes" {
		t.Errorf("Skills = %v", p.Skills)
	}
	if p.ContextWindow != 6 {
		t.Errorf("ContextWindow = %d, want 6", p.ContextWindow)
	}
	if !p.CourseGenDisabled {
		t.Error("CourseGenDisabled = false, want true")
	}
	if p.GenerationTimeout != 2*time.Minute {
		t.Errorf("GenerationTimeout = %v, want 2m", p.GenerationTimeout)
	}
}

func TestParseProfile_Defaults(t *testing.T) {
	p, err := ParseProfile([]byte("user_id: bob\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.BackendURL != "http://localhost:3000" {
		t.Errorf("BackendURL = %q", p.BackendURL)
	}
	if p.ContextWindow != 10 {
		t.Errorf("ContextWindow = %d, want 10", p.ContextWindow)
	}
	if p.Timeout != 3*time.Minute || p.GenerationTimeout != 3*time.Minute {
		t.Errorf("timeouts = %v, %v", p.Timeout, p.GenerationTimeout)
	}
	if p.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", p.LogLevel)
	}
}

func TestParseProfile_Invalid(t *testing.T) {
	_, err := ParseProfile([]byte("skills: [go, '']\n"))
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"user_id is required", "skills[1] is empty"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}

	if _, err := ParseProfile([]byte("user_id: [unterminated")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte(fullProfile), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if p.Token != "secret-token" {
		t.Errorf("Token = %q", p.Token)
	}

	if _, err := LoadProfile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestReadProfileSkipsValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte("skills: [go]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadProfile(path); err == nil {
		t.Fatal("LoadProfile should reject a profile without user_id")
	}
	p, err := ReadProfile(path)
	if err != nil {
		t.Fatalf("ReadProfile: %v", err)
	}
	if p.ContextWindow != 10 {
		t.Errorf("defaults not applied: %+v", p)
	}
	p.UserID = "carol"
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate after override: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://api.internal")
	t.Setenv("CONTEXT_WINDOW", "4")
	t.Setenv("COURSE_GENERATION_DISABLED", "true")
	t.Setenv("GENERATION_TIMEOUT", "45s")
	t.Setenv("SURFACE_IDLE_TTL", "10m")
	t.Setenv("COURSE_SCOPE", "courses:write")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("COMPLETION_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := Load()
	if cfg.BackendURL != "http://api.internal" || cfg.ContextWindow != 4 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if !cfg.CourseGenDisabled || cfg.GenerationTimeout != 45*time.Second {
		t.Fatalf("assistant settings not loaded: %+v", cfg)
	}
	if cfg.SurfaceIdleTTL != 10*time.Minute || cfg.CourseScope != "courses:write" {
		t.Fatalf("SurfaceIdleTTL = %s, CourseScope = %q", cfg.SurfaceIdleTTL, cfg.CourseScope)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.CompletionProvider != ProviderOpenAI {
		t.Fatalf("CompletionProvider = %q", cfg.CompletionProvider)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{BackendURL: "", ContextWindow: 0, CompletionProvider: ProviderAnthropic}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"BACKEND_URL", "CONTEXT_WINDOW", "SURFACE_IDLE_TTL", "ANTHROPIC_API_KEY"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}

	cfg = &Config{BackendURL: "http://x", ContextWindow: 1, SurfaceIdleTTL: time.Minute, CompletionProvider: ProviderBackend}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg = &Config{BackendURL: "http://x", ContextWindow: 1, SurfaceIdleTTL: time.Minute, CompletionProvider: "llama"}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "llama") {
		t.Fatalf("unknown provider not rejected: %v", err)
	}
}
