package mods

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quasar/launchercore/internal/mcversion"
	"github.com/quasar/launchercore/internal/modrinth"
)

func writeModJar(t *testing.T, path string, fabricJSON string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("fabric.mod.json")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(fabricJSON)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestList_DiscoversEnabledAndDisabledMods(t *testing.T) {
	dir := t.TempDir()
	writeModJar(t, filepath.Join(dir, "sodium.jar"), `{"id":"sodium","name":"Sodium","version":"0.5.8"}`)
	writeModJar(t, filepath.Join(dir, "lithium.jar.disabled"), `{"id":"lithium","name":"Lithium","version":"0.11.2"}`)
	if err := os.WriteFile(filepath.Join(dir, "README.txt"), []byte("ignore me"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 mods, got %d", len(got))
	}

	byName := map[string]Mod{}
	for _, m := range got {
		byName[m.Filename] = m
	}

	if !byName["sodium.jar"].Enabled {
		t.Error("expected sodium.jar to be enabled")
	}
	if byName["sodium.jar"].ModID != "sodium" {
		t.Errorf("expected mod id sodium, got %s", byName["sodium.jar"].ModID)
	}
	if byName["lithium.jar.disabled"].Enabled {
		t.Error("expected lithium.jar.disabled to be disabled")
	}
}

func TestToggle_RenamesBetweenEnabledAndDisabled(t *testing.T) {
	dir := t.TempDir()
	writeModJar(t, filepath.Join(dir, "sodium.jar"), `{"id":"sodium","name":"Sodium","version":"0.5.8"}`)

	if err := Toggle(dir, "sodium.jar"); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "sodium.jar.disabled")); err != nil {
		t.Fatalf("expected disabled file to exist: %v", err)
	}

	if err := Toggle(dir, "sodium.jar.disabled"); err != nil {
		t.Fatalf("Toggle back: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "sodium.jar")); err != nil {
		t.Fatalf("expected re-enabled file to exist: %v", err)
	}
}

func TestRemove_DeletesOnlyNamedFile(t *testing.T) {
	dir := t.TempDir()
	writeModJar(t, filepath.Join(dir, "sodium.jar"), `{"id":"sodium","name":"Sodium","version":"0.5.8"}`)
	writeModJar(t, filepath.Join(dir, "lithium.jar"), `{"id":"lithium","name":"Lithium","version":"0.11.2"}`)

	if err := Remove(dir, "sodium.jar"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "sodium.jar")); !os.IsNotExist(err) {
		t.Error("expected sodium.jar to be removed")
	}
	if _, err := os.Stat(filepath.Join(dir, "lithium.jar")); err != nil {
		t.Error("expected lithium.jar to be untouched")
	}
}

func TestScanModsToml_ExtractsFirstModTable(t *testing.T) {
	toml := `
modLoader="javafml"
[[mods]]
modId="jei"
version="15.2.0.27"
displayName="Just Enough Items"

[[mods]]
modId="other"
version="1.0.0"
`
	meta, err := scanModsToml(strings.NewReader(toml))
	if err != nil {
		t.Fatalf("scanModsToml: %v", err)
	}
	if meta.ID != "jei" || meta.Version != "15.2.0.27" || meta.Name != "Just Enough Items" {
		t.Errorf("unexpected metadata: %+v", meta)
	}
}

func TestCheckUpdates_ResolvesByHashAndReportsNewerVersion(t *testing.T) {
	dir := t.TempDir()
	writeModJar(t, filepath.Join(dir, "sodium.jar"), `{"id":"sodium","name":"Sodium","version":"0.5.8"}`)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/version_file/"):
			w.Write([]byte(`{"project_id":"AANobbMI"}`))
		case strings.HasPrefix(r.URL.Path, "/project/AANobbMI/version"):
			w.Write([]byte(`[{"project_id":"AANobbMI","version_number":"0.5.9","loaders":["fabric"],"game_versions":["1.20.4"],"date_published":"2024-06-01T00:00:00Z","files":[{"primary":true,"filename":"sodium-0.5.9.jar"}]}]`))
		default:
			t.Errorf("unexpected request: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := modrinth.NewClientWithHTTP(server.URL, server.Client())

	list, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	updates, err := CheckUpdates(context.Background(), client, list, mcversion.LoaderFabric, "1.20.4")
	if err != nil {
		t.Fatalf("CheckUpdates: %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("expected 1 update entry, got %d", len(updates))
	}
	if !updates[0].UpdateAvailable {
		t.Error("expected an update to be available")
	}
	if updates[0].LatestVersion != "0.5.9" {
		t.Errorf("expected latest version 0.5.9, got %s", updates[0].LatestVersion)
	}
}

func TestCheckUpdates_SkipsModWithNoResolvableIdentity(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "unknown.jar"), []byte("not a real jar"), 0o644); err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := modrinth.NewClientWithHTTP(server.URL, server.Client())

	list, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	updates, err := CheckUpdates(context.Background(), client, list, mcversion.LoaderFabric, "1.20.4")
	if err != nil {
		t.Fatalf("CheckUpdates: %v", err)
	}
	if len(updates) != 0 {
		t.Fatalf("expected no update entries for an unidentifiable mod, got %d", len(updates))
	}
}
