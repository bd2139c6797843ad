// Package loader installs mod loaders (Fabric, Quilt, and a reserved
// extension point for Forge/NeoForge) by fetching loader metadata that
// already conforms to the Mojang version-JSON schema and persisting it as
// a derived version under the normal versions/<id>/<id>.json convention.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/quasar/launchercore/internal/corepath"
	"github.com/quasar/launchercore/internal/corerr"
	"github.com/quasar/launchercore/internal/fetch"
	"github.com/quasar/launchercore/internal/mcversion"
)

type Type string

const (
	Fabric Type = "fabric"
	Quilt  Type = "quilt"
)

// Installer is the extension point §4.6 reserves for Forge/NeoForge: any
// loader that can synthesise a version JSON inheriting from a vanilla MC
// id implements this and is installed through the same convention as
// Fabric/Quilt.
type Installer interface {
	ListVersions(ctx context.Context, f *fetch.Fetcher, mcVersion string, includeBeta bool) ([]string, error)
	Install(ctx context.Context, root corepath.Root, f *fetch.Fetcher, mcVersion, loaderVersion string) (derivedID string, err error)
}

// loaderMetaEntry mirrors one entry of the meta-server's
// /v2/versions/loader/<mc> response.
type loaderMetaEntry struct {
	Loader struct {
		Version string `json:"version"`
		Stable  bool   `json:"stable"`
	} `json:"loader"`
}

type fabricFamily struct {
	loaderType Type
	metaBase   string // e.g. https://meta.fabricmc.net/v2
	mainClass  string
}

var (
	// FabricInstaller and QuiltInstaller are both instances of the same
	// family since Quilt's meta-server is API-compatible with Fabric's.
	FabricInstaller Installer = fabricFamily{
		loaderType: Fabric,
		metaBase:   "https://meta.fabricmc.net/v2",
		mainClass:  "net.fabricmc.loader.impl.launch.knot.KnotClient",
	}
	QuiltInstaller Installer = fabricFamily{
		loaderType: Quilt,
		metaBase:   "https://meta.quiltmc.org/v3",
		mainClass:  "org.quiltmc.loader.impl.launch.knot.KnotClient",
	}
)

func (f fabricFamily) ListVersions(ctx context.Context, fetcher *fetch.Fetcher, mcVersion string, includeBeta bool) ([]string, error) {
	var entries []loaderMetaEntry
	url := fmt.Sprintf("%s/versions/loader/%s", f.metaBase, mcVersion)
	if err := fetch.GetJSON(ctx, fetcher.HTTPClient(), url, &entries); err != nil {
		return nil, err
	}

	type parsed struct {
		raw string
		v   *semver.Version
	}
	var versions []parsed
	for _, e := range entries {
		if !includeBeta && !e.Loader.Stable {
			continue
		}
		v, err := semver.NewVersion(e.Loader.Version)
		versions = append(versions, parsed{raw: e.Loader.Version, v: v})
		_ = err // unparsable versions still get listed, just sorted last
	}

	sort.Slice(versions, func(i, j int) bool {
		if (versions[i].v == nil) != (versions[j].v == nil) {
			return versions[i].v != nil
		}
		if versions[i].v == nil {
			return versions[i].raw > versions[j].raw
		}
		return versions[i].v.GreaterThan(versions[j].v)
	})

	out := make([]string, len(versions))
	for i, v := range versions {
		out[i] = v.raw
	}
	return out, nil
}

// Install fetches the meta-server's versions/loader/<mc>/<loader>/profile/json
// response, which is already a valid (derived) Mojang-schema version JSON,
// fills in a missing id, inheritsFrom or mainClass, and writes it to
// versions/<id>/<id>.json.
func (f fabricFamily) Install(ctx context.Context, root corepath.Root, fetcher *fetch.Fetcher, mcVersion, loaderVersion string) (string, error) {
	url := fmt.Sprintf("%s/versions/loader/%s/%s/profile/json", f.metaBase, mcVersion, loaderVersion)

	var details mcversion.Details
	if err := fetch.GetJSON(ctx, fetcher.HTTPClient(), url, &details); err != nil {
		return "", err
	}

	if details.ID == "" {
		details.ID = fmt.Sprintf("%s-loader-%s-%s", f.loaderType, loaderVersion, mcVersion)
	}
	if details.InheritsFrom == "" {
		details.InheritsFrom = mcVersion
	}
	if details.MainClass == "" {
		details.MainClass = f.mainClass
	}

	data, err := json.MarshalIndent(&details, "", "  ")
	if err != nil {
		return "", corerr.Wrap(corerr.Internal, "encoding derived version json", err)
	}

	if err := corepath.AtomicWrite(root.VersionJSON(details.ID), data); err != nil {
		return "", err
	}

	return details.ID, nil
}

// InstallerFor resolves the Installer for a loader type, or an error for
// types with no implementation registered (Forge/NeoForge: reserved, see
// package doc).
func InstallerFor(t Type) (Installer, error) {
	switch t {
	case Fabric:
		return FabricInstaller, nil
	case Quilt:
		return QuiltInstaller, nil
	default:
		return nil, corerr.New(corerr.NotFound, "no loader installer registered for "+string(t))
	}
}
