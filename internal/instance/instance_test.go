package instance

import (
	"testing"

	"github.com/quasar/launchercore/internal/corepath"
	"github.com/quasar/launchercore/internal/corerr"
	"github.com/quasar/launchercore/internal/mcversion"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := corepath.Root(t.TempDir())
	if err := root.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	return NewStore(root)
}

func TestCreate_PersistsAndLoads(t *testing.T) {
	root := corepath.Root(t.TempDir())
	if err := root.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}

	s := NewStore(root)
	inst, err := s.Create("Survival", "1.20.4", "1.20.4", mcversion.LoaderNone)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if inst.State != StateReady {
		t.Errorf("expected state ready, got %s", inst.State)
	}

	reloaded := NewStore(root)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := reloaded.Get(inst.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Survival" {
		t.Errorf("expected name Survival, got %s", got.Name)
	}
}

func TestCreate_DeduplicatesNameWithSuffix(t *testing.T) {
	s := newTestStore(t)

	first, err := s.Create("Modded", "1.20.4", "1.20.4", mcversion.LoaderFabric)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := s.Create("Modded", "1.20.4", "1.20.4", mcversion.LoaderFabric)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if first.Name != "Modded" {
		t.Errorf("expected first name Modded, got %s", first.Name)
	}
	if second.Name != "Modded (2)" {
		t.Errorf("expected second name 'Modded (2)', got %s", second.Name)
	}
}

func TestDecodeInstance_RejectsNewerSchema(t *testing.T) {
	_, err := decodeInstance([]byte(`{"schemaVersion": 99, "id": "x"}`))
	if corerr.KindOf(err) != corerr.SchemaTooNew {
		t.Errorf("expected SchemaTooNew, got %v", err)
	}
}

func TestDecodeInstance_MigratesMissingSchemaVersion(t *testing.T) {
	inst, err := decodeInstance([]byte(`{"id": "legacy", "name": "Old"}`))
	if err != nil {
		t.Fatalf("decodeInstance: %v", err)
	}
	if inst.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("expected migrated schema version %d, got %d", CurrentSchemaVersion, inst.SchemaVersion)
	}
	if inst.State != StateReady {
		t.Errorf("expected default state ready, got %s", inst.State)
	}
}

func TestIsOnlyUserOf(t *testing.T) {
	s := newTestStore(t)

	a, err := s.Create("A", "1.20.4", "1.20.4", mcversion.LoaderNone)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, err := s.Create("B", "1.20.4", "1.20.4", mcversion.LoaderNone)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if s.IsOnlyUserOf("1.20.4", a.ID) {
		t.Error("expected 1.20.4 to be shared with instance B")
	}

	if err := s.Delete(b.ID, false); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !s.IsOnlyUserOf("1.20.4", a.ID) {
		t.Error("expected A to be the only remaining user of 1.20.4")
	}
}

func TestBeginInstall_RejectsConcurrentInstall(t *testing.T) {
	s := newTestStore(t)
	inst, err := s.Create("Test", "1.20.4", "1.20.4", mcversion.LoaderNone)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.BeginInstall(inst.ID); err != nil {
		t.Fatalf("first BeginInstall: %v", err)
	}
	if err := s.BeginInstall(inst.ID); corerr.KindOf(err) != corerr.Busy {
		t.Errorf("expected Busy on second BeginInstall, got %v", err)
	}

	s.EndInstall(inst.ID)
	if err := s.BeginInstall(inst.ID); err != nil {
		t.Errorf("expected BeginInstall to succeed after EndInstall: %v", err)
	}
}

func TestSave_UpdatesPersistedFields(t *testing.T) {
	s := newTestStore(t)
	inst, err := s.Create("Test", "1.20.4", "1.20.4", mcversion.LoaderNone)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	inst.State = StateInstalling
	inst.PlaytimeMinutes = 42
	if err := s.Save(inst); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Get(inst.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != StateInstalling || got.PlaytimeMinutes != 42 {
		t.Errorf("unexpected persisted instance: %+v", got)
	}
}

func TestDelete_RemovesInstance(t *testing.T) {
	s := newTestStore(t)
	inst, err := s.Create("Gone", "1.20.4", "1.20.4", mcversion.LoaderNone)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.Delete(inst.ID, false); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(inst.ID); corerr.KindOf(err) != corerr.NotFound {
		t.Errorf("expected NotFound after delete, got %v", err)
	}
}
