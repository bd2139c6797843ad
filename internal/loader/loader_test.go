package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/quasar/launchercore/internal/corepath"
	"github.com/quasar/launchercore/internal/fetch"
)

func TestFabricFamily_InstallWritesDerivedVersion(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/versions/loader/1.20.4/0.15.11/profile/json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"fabric-loader-0.15.11-1.20.4","inheritsFrom":"1.20.4","mainClass":"net.fabricmc.loader.impl.launch.knot.KnotClient","libraries":[{"name":"net.fabricmc:fabric-loader:0.15.11"}]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	family := fabricFamily{loaderType: Fabric, metaBase: server.URL, mainClass: "net.fabricmc.loader.impl.launch.knot.KnotClient"}

	root := corepath.Root(t.TempDir())
	f := fetch.New(1)

	id, err := family.Install(context.Background(), root, f, "1.20.4", "0.15.11")
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if id != "fabric-loader-0.15.11-1.20.4" {
		t.Errorf("got id %q", id)
	}

	if _, err := os.Stat(root.VersionJSON(id)); err != nil {
		t.Errorf("expected derived version json on disk: %v", err)
	}
}

func TestFabricFamily_ListVersionsFiltersBetaAndSorts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/versions/loader/1.20.4", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"loader":{"version":"0.14.0","stable":false}},{"loader":{"version":"0.15.11","stable":true}},{"loader":{"version":"0.15.0","stable":true}}]`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	family := fabricFamily{loaderType: Fabric, metaBase: server.URL}
	f := fetch.New(1)

	versions, err := family.ListVersions(context.Background(), f, "1.20.4", false)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected beta version filtered out, got %v", versions)
	}
	if versions[0] != "0.15.11" {
		t.Errorf("expected newest first, got %v", versions)
	}
}

func TestInstallerFor_UnknownType(t *testing.T) {
	if _, err := InstallerFor("forge"); err == nil {
		t.Error("expected forge to have no registered installer yet")
	}
}
