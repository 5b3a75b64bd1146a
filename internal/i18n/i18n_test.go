package i18n

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveHonorsQValues(t *testing.T) {
	b, err := Default()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got := b.Resolve("en;q=0.8, es;q=0.9")
	if got != "es" {
		t.Fatalf("expected es, got %s", got)
	}
	if got := b.Resolve("fr-FR"); got != "en" {
		t.Fatalf("expected fallback en, got %s", got)
	}
}

func TestLookupFailsClosed(t *testing.T) {
	b, err := Default()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if v, ok := b.Lookup("es", "projects_title"); !ok || v != "Proyectos" {
		t.Fatalf("expected Proyectos, got %q ok=%v", v, ok)
	}
	if _, ok := b.Lookup("es", "missing_key"); ok {
		t.Fatal("missing key must not resolve")
	}
	if _, ok := b.Lookup("fr", "projects_title"); ok {
		t.Fatal("unsupported language must not resolve")
	}
	if got := b.T("es", "missing_key"); got != "missing_key" {
		t.Fatalf("T should fall back to the key, got %q", got)
	}
}

func TestBothLanguagesCarryTheSameKeys(t *testing.T) {
	b, err := Default()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for key := range b.dict["en"] {
		if _, ok := b.Lookup("es", key); !ok {
			t.Errorf("es is missing %q", key)
		}
	}
}

func TestLoadFromDirAllowsMissingSecondary(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "en.json"), []byte(`{"about_title":"Hi"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	b, err := Load(dir, "en", []string{"en", "es"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := b.Lookup("es", "about_title"); ok {
		t.Fatal("es was never loaded")
	}
	if got := b.T("es", "about_title"); got != "Hi" {
		t.Fatalf("expected fallback text, got %q", got)
	}
}

func TestLoadRequiresFallback(t *testing.T) {
	if _, err := Load(t.TempDir(), "en", []string{"en"}); err == nil {
		t.Fatal("expected error for missing fallback locale")
	}
}

func TestToggleLabelNamesOtherLanguage(t *testing.T) {
	if got := Primary.ToggleLabel(); got != "Español" {
		t.Fatalf("expected Español, got %q", got)
	}
	if got := Secondary.ToggleLabel(); got != "English" {
		t.Fatalf("expected English, got %q", got)
	}
	if Primary.Other().Other() != Primary {
		t.Fatal("Other must round-trip")
	}
}

func TestParseLanguage(t *testing.T) {
	if l, ok := ParseLanguage(" ES "); !ok || l != Secondary {
		t.Fatalf("expected es, got %q ok=%v", l, ok)
	}
	if l, ok := ParseLanguage("de"); ok || l != Primary {
		t.Fatalf("unknown language should map to primary with ok=false")
	}
}
