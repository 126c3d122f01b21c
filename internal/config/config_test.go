package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg != Default() {
		t.Errorf("Load(missing) = %+v, want defaults %+v", cfg, Default())
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	body := "listen: \":9000\"\ncanvas_id: team-board\nmdns: false\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":9000" || cfg.CanvasID != "team-board" || cfg.MDNS {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	// Untouched keys keep their defaults.
	if cfg.DataPath != Default().DataPath {
		t.Errorf("DataPath = %q, want default %q", cfg.DataPath, Default().DataPath)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("listen: [unclosed"), 0o644)
	if _, err := Load(path); err == nil {
		t.Error("Load(malformed) = nil error")
	}
}
