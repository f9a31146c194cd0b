package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "learnchat dev") || !strings.Contains(out, "commit: none") {
		t.Errorf("unexpected version output: %s", out)
	}
}

func TestChatCmdHelp(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"chat", "--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("help failed: %v", err)
	}
	for _, flag := range []string{"--profile", "--user", "--backend-url", "--token", "--skills"} {
		if !strings.Contains(buf.String(), flag) {
			t.Errorf("help missing %s", flag)
		}
	}
}

func TestChatCmdExplicitMissingProfile(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"chat", "--profile", filepath.Join(t.TempDir(), "missing.yaml")})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error for an explicit missing profile")
	}
}

func TestLoadProfileMissingDefault(t *testing.T) {
	p, err := loadProfile(filepath.Join(t.TempDir(), "learnchat.yaml"), false)
	if err != nil {
		t.Fatalf("loadProfile: %v", err)
	}
	if p.BackendURL == "" || p.ContextWindow == 0 {
		t.Fatalf("defaults not applied: %+v", p)
	}
	if err := p.Validate(); err == nil {
		t.Fatal("a profile without a user should not validate")
	}
}
