// Package library resolves a version's libraries against the current
// os/arch, downloads the allowed artifacts and native classifiers, and
// builds the ordered classpath for a launch.
package library

import (
	"context"
	"os"
	"runtime"

	"github.com/quasar/launchercore/internal/corepath"
	"github.com/quasar/launchercore/internal/corerr"
	"github.com/quasar/launchercore/internal/events"
	"github.com/quasar/launchercore/internal/fetch"
	"github.com/quasar/launchercore/internal/mcversion"
)

// osName returns the Minecraft-specific OS identifier used in rules and
// native classifiers: "windows", "osx", "linux".
func osName() string {
	switch runtime.GOOS {
	case "windows":
		return "windows"
	case "darwin":
		return "osx"
	default:
		return "linux"
	}
}

// Applies reports whether a library's rules include it on the current
// platform. No rules means always included; otherwise the last matching
// rule wins (default action is allow only when no rules are present).
func Applies(rules []mcversion.Rule) bool {
	if len(rules) == 0 {
		return true
	}

	allowed := false
	os := osName()
	arch := runtime.GOARCH

	for _, rule := range rules {
		matches := rule.OS == nil
		if rule.OS != nil {
			matches = true
			if rule.OS.Name != "" && rule.OS.Name != os {
				matches = false
			}
			if rule.OS.Arch != "" && rule.OS.Arch != arch {
				matches = false
			}
		}
		if !matches {
			continue
		}
		allowed = rule.Action == "allow"
	}

	return allowed
}

// nativeClassifierKey returns the classifiers key (e.g. "natives-linux")
// this platform expects for a library's native classifier map, or "" if
// none applies.
func nativeClassifierKey() string {
	switch osName() {
	case "windows":
		if runtime.GOARCH == "386" {
			return "natives-windows-32"
		}
		return "natives-windows"
	case "osx":
		return "natives-osx"
	default:
		return "natives-linux"
	}
}

// Entry is one resolved, downloadable library: its destination path plus
// whether it is a native classifier that must also be extracted.
type Entry struct {
	Coord    string
	Path     string
	URL      string
	SHA1     string
	Size     int64
	IsNative bool
}

// Resolve walks eff.Libraries, applies rule evaluation, and returns the
// list of entries to download in eff.Libraries order. It does no
// deduplication of its own: the inheritance merge that produced eff has
// already deduplicated libraries by coord, last-seen winning.
func Resolve(root corepath.Root, eff *mcversion.Details) []Entry {
	var entries []Entry
	key := nativeClassifierKey()

	for _, lib := range eff.Libraries {
		if !Applies(lib.Rules) {
			continue
		}
		if lib.Downloads == nil {
			continue
		}

		if a := lib.Downloads.Artifact; a != nil && a.Path != "" {
			entries = append(entries, Entry{
				Coord: lib.Coord(),
				Path:  root.LibraryPath(a.Path),
				URL:   a.URL,
				SHA1:  a.SHA1,
				Size:  a.Size,
			})
		}

		if nativeKey, ok := lib.Natives[key]; ok && lib.Downloads.Classifiers != nil {
			if a, ok := lib.Downloads.Classifiers[nativeKey]; ok && a != nil {
				entries = append(entries, Entry{
					Coord:    lib.Coord() + ":" + nativeKey,
					Path:     root.LibraryPath(a.Path),
					URL:      a.URL,
					SHA1:     a.SHA1,
					Size:     a.Size,
					IsNative: true,
				})
			}
		}
	}

	return entries
}

// Install downloads every resolved library entry and, for natives,
// extracts their JAR contents (minus META-INF/) into the instance's
// natives directory. The natives directory is wiped first so a launch
// never mixes natives from a previous library set.
func Install(ctx context.Context, root corepath.Root, f *fetch.Fetcher, bus *events.Bus, instanceID string, eff *mcversion.Details) ([]string, error) {
	entries := Resolve(root, eff)

	nativesDir := root.InstanceNatives(instanceID)
	if err := wipeDir(nativesDir); err != nil {
		return nil, corerr.Wrap(corerr.Filesystem, "clearing natives directory", err)
	}

	var items []fetch.Item
	for _, e := range entries {
		items = append(items, fetch.Item{
			URL:      e.URL,
			Path:     e.Path,
			Expected: fetch.Expected{SHA1: e.SHA1, Size: e.Size},
		})
	}

	result, err := f.Download(ctx, items, progressRelay(bus))
	if err != nil {
		return nil, err
	}
	if result.Failed > 0 {
		return nil, result.Errors[0]
	}

	var classpath []string
	for _, e := range entries {
		if e.IsNative {
			if err := corepath.UnzipInto(e.Path, nativesDir, true); err != nil {
				return nil, err
			}
			continue
		}
		classpath = append(classpath, e.Path)
	}

	return classpath, nil
}

func progressRelay(bus *events.Bus) chan<- fetch.Progress {
	if bus == nil {
		return nil
	}
	ch := make(chan fetch.Progress, 8)
	go func() {
		for p := range ch {
			bus.Emit(events.DownloadProgress, events.DownloadProgressPayload{
				Phase: "libraries",
				Done:  int64(p.CompletedItems),
				Total: int64(p.TotalItems),
			})
		}
	}()
	return ch
}

func wipeDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}
