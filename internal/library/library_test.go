package library

import (
	"runtime"
	"testing"

	"github.com/quasar/launchercore/internal/corepath"
	"github.com/quasar/launchercore/internal/mcversion"
)

func TestApplies_NoRulesAlwaysIncluded(t *testing.T) {
	if !Applies(nil) {
		t.Error("expected no rules to mean always included")
	}
}

func TestApplies_OSSpecificRule(t *testing.T) {
	other := "windows"
	if runtime.GOOS == "windows" {
		other = "linux"
	}

	rules := []mcversion.Rule{
		{Action: "allow", OS: &mcversion.OSRule{Name: other}},
	}
	if Applies(rules) {
		t.Errorf("expected library restricted to %s to be excluded on this platform", other)
	}
}

func TestApplies_LastMatchingRuleWins(t *testing.T) {
	rules := []mcversion.Rule{
		{Action: "allow"},
		{Action: "disallow", OS: &mcversion.OSRule{Name: "doesnotexist"}},
	}
	if !Applies(rules) {
		t.Error("expected the allow-all rule to still apply since the disallow rule doesn't match this OS")
	}
}

func TestResolve_LeavesDeduplicationToMerge(t *testing.T) {
	root := corepath.Root(t.TempDir())
	eff := &mcversion.Details{
		Libraries: []mcversion.Library{
			{
				Name: "com.mojang:brigadier:1.0.17",
				Downloads: &mcversion.LibraryDownloads{
					Artifact: &mcversion.Artifact{Path: "com/mojang/brigadier/1.0.17/brigadier-1.0.17.jar", URL: "https://example.invalid/a"},
				},
			},
			{
				Name: "com.mojang:brigadier:1.0.18",
				Downloads: &mcversion.LibraryDownloads{
					Artifact: &mcversion.Artifact{Path: "com/mojang/brigadier/1.0.18/brigadier-1.0.18.jar", URL: "https://example.invalid/b"},
				},
			},
		},
	}

	entries := Resolve(root, eff)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries (resolve does not dedupe — merge already did), got %d", len(entries))
	}
}

func TestResolve_SkipsLibraryExcludedByRules(t *testing.T) {
	root := corepath.Root(t.TempDir())
	other := "windows"
	if runtime.GOOS == "windows" {
		other = "linux"
	}
	eff := &mcversion.Details{
		Libraries: []mcversion.Library{
			{
				Name:  "org.lwjgl:lwjgl:3.3.1",
				Rules: []mcversion.Rule{{Action: "allow", OS: &mcversion.OSRule{Name: other}}},
				Downloads: &mcversion.LibraryDownloads{
					Artifact: &mcversion.Artifact{Path: "org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1.jar", URL: "https://example.invalid/c"},
				},
			},
		},
	}

	entries := Resolve(root, eff)
	if len(entries) != 0 {
		t.Errorf("expected platform-restricted library to be excluded, got %d entries", len(entries))
	}
}
