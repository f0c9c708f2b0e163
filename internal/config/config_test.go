package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ticketfixture/internal/generator"
)

func TestDefaultMatchesFixtureConstants(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	opts, err := cfg.GeneratorOptions()
	if err != nil {
		t.Fatal(err)
	}
	want := generator.DefaultOptions()
	if opts.Count != want.Count || opts.Seed != want.Seed || !opts.Reference.Equal(want.Reference) {
		t.Fatalf("default options %+v, want %+v", opts, want)
	}
	if cfg.Generator.Output != "public/ticket.csv" {
		t.Fatalf("default output %q", cfg.Generator.Output)
	}
	if cfg.Server.BasePath != "/v0" || cfg.Logging.Format != "json" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestFromYAMLOverridesDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte("generator:\n  count: 5\n  seed: 9\nwebhooks:\n  - url: http://localhost/hook\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Generator.Count != 5 || cfg.Generator.Seed != 9 {
		t.Fatalf("overrides not applied: %+v", cfg.Generator)
	}
	if cfg.Generator.Reference != generator.DefaultReference {
		t.Fatalf("reference default lost: %q", cfg.Generator.Reference)
	}
	if len(cfg.Webhooks) != 1 {
		t.Fatalf("webhooks not parsed")
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"count":     "generator:\n  count: 0\n",
		"reference": "generator:\n  reference: tomorrow\n",
		"output":    "generator:\n  output: \"\"\n",
		"log level": "logging:\n  level: loud\n",
		"format":    "logging:\n  format: xml\n",
		"webhook":   "webhooks:\n  - url: \"\"\n",
	}
	for name, doc := range cases {
		if _, err := FromYAML([]byte(doc)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	if _, err := FromYAML([]byte("generator: [")); err == nil || !strings.Contains(err.Error(), "invalid config yaml") {
		t.Fatalf("expected yaml error, got %v", err)
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Generator.Count != generator.DefaultCount {
		t.Fatalf("missing file should yield defaults")
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("generator:\n  count: 12\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadOptional(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Generator.Count != 12 {
		t.Fatalf("file not loaded: %+v", cfg.Generator)
	}
}

func TestNormalizeLogLevel(t *testing.T) {
	if lvl, _ := NormalizeLogLevel(" WARN "); lvl != "warn" {
		t.Fatalf("got %q", lvl)
	}
	if lvl, _ := NormalizeLogLevel(""); lvl != "info" {
		t.Fatalf("empty level should default to info, got %q", lvl)
	}
}
