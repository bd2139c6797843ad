package config

import (
	"testing"

	"github.com/quasar/launchercore/internal/corepath"
)

func TestLoad_ReturnsDefaultsWhenUnsaved(t *testing.T) {
	root := corepath.Root(t.TempDir())

	s, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.MaxMemory != Default().MaxMemory {
		t.Errorf("expected default max memory, got %d", s.MaxMemory)
	}
}

func TestSaveAndLoad_RoundTrips(t *testing.T) {
	root := corepath.Root(t.TempDir())

	s := Default()
	s.MaxMemory = 4096
	s.GlobalJavaPath = "/usr/lib/jvm/java-21/bin/java"
	s.KeepLogsOpen = true

	if err := s.Save(root); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.MaxMemory != 4096 {
		t.Errorf("expected max memory 4096, got %d", reloaded.MaxMemory)
	}
	if reloaded.GlobalJavaPath != "/usr/lib/jvm/java-21/bin/java" {
		t.Errorf("unexpected java path: %s", reloaded.GlobalJavaPath)
	}
	if !reloaded.KeepLogsOpen {
		t.Error("expected KeepLogsOpen to persist as true")
	}
}
