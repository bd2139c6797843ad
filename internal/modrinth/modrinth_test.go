package modrinth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/quasar/launchercore/internal/mcversion"
)

func TestSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") != "sodium" {
			t.Errorf("expected query=sodium, got %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"hits":[{"project_id":"AANobbMI","title":"Sodium"}],"total_hits":1}`))
	}))
	defer server.Close()

	c := &Client{httpClient: server.Client(), baseURL: server.URL}
	result, err := c.Search(context.Background(), SearchOptions{Query: "sodium"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Hits) != 1 || result.Hits[0].Title != "Sodium" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestGetProject_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := &Client{httpClient: server.Client(), baseURL: server.URL}
	if _, err := c.GetProject(context.Background(), "nonexistent"); err == nil {
		t.Error("expected NotFound error")
	}
}

func TestCompatibleVersions_FiltersAndSorts(t *testing.T) {
	older := ProjectVersion{
		Loaders: []string{"fabric"}, GameVersions: []string{"1.20.4"},
		DatePublished: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Files:         []VersionFile{{Filename: "old.jar", Primary: true}},
	}
	newer := ProjectVersion{
		Loaders: []string{"fabric"}, GameVersions: []string{"1.20.4"},
		DatePublished: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Files:         []VersionFile{{Filename: "new.jar", Primary: true}},
	}
	incompatible := ProjectVersion{
		Loaders: []string{"forge"}, GameVersions: []string{"1.20.4"},
	}

	got := CompatibleVersions([]ProjectVersion{older, incompatible, newer}, mcversion.LoaderFabric, "1.20.4")
	if len(got) != 2 {
		t.Fatalf("expected 2 compatible versions, got %d", len(got))
	}
	if got[0].Files[0].Filename != "new.jar" {
		t.Errorf("expected newest first, got %s", got[0].Files[0].Filename)
	}
}

func TestCompatibleVersions_DateIsDominantOverPrimaryFlag(t *testing.T) {
	newerNonPrimary := ProjectVersion{
		Loaders: []string{"fabric"}, GameVersions: []string{"1.20.4"},
		DatePublished: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Files:         []VersionFile{{Filename: "newer.jar", Primary: false}, {Filename: "other.jar", Primary: false}},
	}
	olderPrimary := ProjectVersion{
		Loaders: []string{"fabric"}, GameVersions: []string{"1.20.4"},
		DatePublished: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Files:         []VersionFile{{Filename: "older.jar", Primary: true}},
	}

	got := CompatibleVersions([]ProjectVersion{olderPrimary, newerNonPrimary}, mcversion.LoaderFabric, "1.20.4")
	if len(got) != 2 {
		t.Fatalf("expected 2 compatible versions, got %d", len(got))
	}
	if got[0].DatePublished != newerNonPrimary.DatePublished {
		t.Errorf("expected the newer, non-primary version first; got published %v", got[0].DatePublished)
	}
}

func TestPackIndex_Loader(t *testing.T) {
	idx := PackIndex{Dependencies: map[string]string{
		"minecraft":     "1.20.4",
		"fabric-loader": "0.15.11",
	}}
	loader, version := idx.Loader()
	if loader != mcversion.LoaderFabric || version != "0.15.11" {
		t.Errorf("got %s %s", loader, version)
	}
	if idx.MCVersion() != "1.20.4" {
		t.Errorf("got mc version %s", idx.MCVersion())
	}
}

func TestFormatDownloads(t *testing.T) {
	tests := map[int]string{500: "500", 1500: "1.5K", 2_500_000: "2.5M"}
	for in, want := range tests {
		if got := FormatDownloads(in); got != want {
			t.Errorf("FormatDownloads(%d) = %q, want %q", in, got, want)
		}
	}
}
