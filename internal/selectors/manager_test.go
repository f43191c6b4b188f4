package selectors

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeSelectorsFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "consent.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing selectors file: %v", err)
	}
	return path
}

func TestManagerEmbeddedOnly(t *testing.T) {
	m := GetManager()
	defer m.Close()

	if len(m.Get().ConsentButtons) == 0 {
		t.Error("embedded-only manager has no consent selectors")
	}
}

func TestManagerExternalOverride(t *testing.T) {
	path := writeSelectorsFile(t, t.TempDir(), "consent_buttons:\n  - '#my-accept'\n")

	m, err := NewManager(path, false)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	got := m.Get().ConsentButtons
	if len(got) != 1 || got[0] != "#my-accept" {
		t.Errorf("ConsentButtons = %v, want [#my-accept]", got)
	}
	if m.Stats().ReloadCount != 1 {
		t.Errorf("ReloadCount = %d, want 1", m.Stats().ReloadCount)
	}
}

func TestManagerInvalidFileKeepsEmbedded(t *testing.T) {
	path := writeSelectorsFile(t, t.TempDir(), "consent_buttons: []\n")

	m, err := NewManager(path, false)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	if len(m.Get().ConsentButtons) == 0 {
		t.Error("invalid external file should fall back to embedded selectors")
	}
	if m.Stats().LastErrorStr == "" {
		t.Error("expected load error recorded in stats")
	}
}

func TestManagerMissingFileKeepsEmbedded(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "nope.yaml"), false)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	if len(m.Get().ConsentButtons) == 0 {
		t.Error("missing external file should fall back to embedded selectors")
	}
}

func TestManagerReload(t *testing.T) {
	dir := t.TempDir()
	path := writeSelectorsFile(t, dir, "consent_buttons:\n  - '#first'\n")

	m, err := NewManager(path, false)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	writeSelectorsFile(t, dir, "consent_buttons:\n  - '#second'\n")
	if err := m.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	got := m.Get().ConsentButtons
	if len(got) != 1 || got[0] != "#second" {
		t.Errorf("ConsentButtons after reload = %v, want [#second]", got)
	}
}

func TestManagerReloadWithoutPath(t *testing.T) {
	m := GetManager()
	defer m.Close()

	if err := m.Reload(); err == nil {
		t.Error("Reload without external path should return an error")
	}
}

func TestManagerHotReload(t *testing.T) {
	dir := t.TempDir()
	path := writeSelectorsFile(t, dir, "consent_buttons:\n  - '#before'\n")

	m, err := NewManager(path, true)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	writeSelectorsFile(t, dir, "consent_buttons:\n  - '#after'\n")

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		got := m.Get().ConsentButtons
		if len(got) == 1 && got[0] == "#after" {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Errorf("hot-reload did not pick up file change, got %v", m.Get().ConsentButtons)
}

func TestManagerCloseIdempotent(t *testing.T) {
	m := GetManager()
	if err := m.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
