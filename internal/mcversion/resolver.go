package mcversion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/quasar/launchercore/internal/corepath"
	"github.com/quasar/launchercore/internal/corerr"
	"github.com/quasar/launchercore/internal/fetch"
)

const manifestURL = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"

// Resolver fetches and caches Mojang's version manifest and individual
// version JSONs, and folds inheritsFrom chains into an effective Details.
type Resolver struct {
	root   corepath.Root
	client *http.Client

	mu       sync.Mutex
	manifest *Manifest
}

func NewResolver(root corepath.Root, f *fetch.Fetcher) *Resolver {
	var client *http.Client
	if f != nil {
		client = f.HTTPClient()
	}
	return &Resolver{root: root, client: client}
}

// GetManifest returns the in-memory manifest, else the one cached at
// cache/manifest.json, else fetches and persists it there. The on-disk cache is
// only invalidated by an explicit Refresh call, never by a TTL.
func (r *Resolver) GetManifest(ctx context.Context) (*Manifest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.manifest != nil {
		return r.manifest, nil
	}

	if data, err := os.ReadFile(r.root.ManifestCachePath()); err == nil {
		var m Manifest
		if err := json.Unmarshal(data, &m); err == nil {
			r.manifest = &m
			return r.manifest, nil
		}
	}

	return r.refreshLocked(ctx)
}

// Refresh force-fetches the manifest from the network, bypassing any
// cached copy, and persists the result.
func (r *Resolver) Refresh(ctx context.Context) (*Manifest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshLocked(ctx)
}

func (r *Resolver) refreshLocked(ctx context.Context) (*Manifest, error) {
	var m Manifest
	if err := fetch.GetJSON(ctx, r.client, manifestURL, &m); err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(&m, "", "  ")
	if err == nil {
		_ = corepath.AtomicWrite(r.root.ManifestCachePath(), data)
	}

	r.manifest = &m
	return &m, nil
}

// FindVersion looks up a manifest entry by id.
func (r *Resolver) FindVersion(ctx context.Context, id string) (*Version, error) {
	manifest, err := r.GetManifest(ctx)
	if err != nil {
		return nil, err
	}
	for i := range manifest.Versions {
		if manifest.Versions[i].ID == id {
			return &manifest.Versions[i], nil
		}
	}
	return nil, corerr.New(corerr.NotFound, "unknown version: "+id)
}

// fetchOrLoad returns the raw (unmerged) version JSON for id, fetching it
// from the manifest entry's URL if not already on disk, and caching it
// verbatim under versions/<id>/<id>.json. Derived (loader-synthesised)
// version JSONs are written directly to this same path by the loader
// installer, so a fetchOrLoad for a derived id is always a pure disk read.
func (r *Resolver) fetchOrLoad(ctx context.Context, id string) (*Details, error) {
	path := r.root.VersionJSON(id)
	if data, err := os.ReadFile(path); err == nil {
		var d Details
		if err := json.Unmarshal(data, &d); err == nil {
			return &d, nil
		}
	}

	version, err := r.FindVersion(ctx, id)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := fetch.GetJSON(ctx, r.client, version.URL, &raw); err != nil {
		return nil, err
	}

	var d Details
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, corerr.Wrap(corerr.SchemaInvalid, "decoding version json", err)
	}

	_ = corepath.AtomicWrite(path, raw)

	return &d, nil
}

// Resolve returns the fully merged effective version for id, following
// inheritsFrom to its root and merging per the rules in the data model:
// libraries merged by coord (later/child overrides earlier/parent),
// argument lists concatenated parent-then-child, scalar fields taking the
// nearest non-empty value walking from child to root.
func (r *Resolver) Resolve(ctx context.Context, id string) (*Details, error) {
	chain, err := r.loadChain(ctx, id)
	if err != nil {
		return nil, err
	}
	return mergeChain(chain), nil
}

// loadChain returns [id, id.inheritsFrom, ...] with the root last.
func (r *Resolver) loadChain(ctx context.Context, id string) ([]*Details, error) {
	var chain []*Details
	seen := map[string]bool{}

	cur := id
	for cur != "" {
		if seen[cur] {
			return nil, corerr.New(corerr.SchemaInvalid, "cyclic inheritsFrom chain at "+cur)
		}
		seen[cur] = true

		d, err := r.fetchOrLoad(ctx, cur)
		if err != nil {
			return nil, err
		}
		chain = append(chain, d)
		cur = d.InheritsFrom
	}

	return chain, nil
}

// RootID returns the vanilla id at the root of id's inheritsFrom chain,
// i.e. id itself when it has no parent. Callers that persist a resolved
// version against an instance use this to keep mc_version pinned to the
// vanilla id even when Version is a loader-derived id.
func (r *Resolver) RootID(ctx context.Context, id string) (string, error) {
	chain, err := r.loadChain(ctx, id)
	if err != nil {
		return "", err
	}
	return chain[len(chain)-1].ID, nil
}

// mergeChain folds a child-to-root chain into one effective Details.
func mergeChain(chain []*Details) *Details {
	if len(chain) == 0 {
		return &Details{}
	}

	eff := &Details{}

	// Scalars: nearest non-empty wins, so walk root-to-child and
	// overwrite whenever the child provides a value.
	for i := len(chain) - 1; i >= 0; i-- {
		d := chain[i]
		if d.ID != "" {
			eff.ID = d.ID
		}
		if d.Type != "" {
			eff.Type = d.Type
		}
		if d.MainClass != "" {
			eff.MainClass = d.MainClass
		}
		if d.MinecraftArguments != "" {
			eff.MinecraftArguments = d.MinecraftArguments
		}
		if d.AssetIndex != nil {
			eff.AssetIndex = d.AssetIndex
		}
		if d.Assets != "" {
			eff.Assets = d.Assets
		}
		if d.Downloads != nil {
			eff.Downloads = d.Downloads
		}
		if d.JavaVersion != nil {
			eff.JavaVersion = d.JavaVersion
		}
		if !d.ReleaseTime.IsZero() {
			eff.ReleaseTime = d.ReleaseTime
		}
	}

	// Libraries: merge by coord, child (processed last, since chain[0]
	// is the most-derived entry) overriding parent.
	libIndex := map[string]int{}
	var libs []Library
	for i := len(chain) - 1; i >= 0; i-- {
		for _, lib := range chain[i].Libraries {
			coord := lib.Coord()
			if idx, ok := libIndex[coord]; ok {
				libs[idx] = lib
				continue
			}
			libIndex[coord] = len(libs)
			libs = append(libs, lib)
		}
	}
	eff.Libraries = libs

	// Arguments: concatenate root-to-child.
	var args Arguments
	haveArgs := false
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].Arguments == nil {
			continue
		}
		haveArgs = true
		args.Game = append(args.Game, chain[i].Arguments.Game...)
		args.JVM = append(args.JVM, chain[i].Arguments.JVM...)
	}
	if haveArgs {
		eff.Arguments = &args
	}

	return eff
}

// RequiredJavaMajor is the effective version's authoritative Java major
// version requirement, falling back to the generation default when the
// merged Details carries no javaVersion block.
func RequiredJavaMajor(eff *Details, mcVersionForDefault string) int {
	if eff.JavaVersion != nil && eff.JavaVersion.MajorVersion > 0 {
		return eff.JavaVersion.MajorVersion
	}
	return DefaultJavaMajorVersion(mcVersionForDefault)
}

// EnsureClientJar downloads versions/<id>/<id>.jar, verifying its SHA-1
// against the effective version's downloads.client entry.
func EnsureClientJar(ctx context.Context, root corepath.Root, f *fetch.Fetcher, id string, eff *Details) error {
	if eff.Downloads == nil || eff.Downloads.Client == nil {
		return corerr.New(corerr.NotFound, fmt.Sprintf("version %s has no client download", id))
	}
	client := eff.Downloads.Client
	item := fetch.Item{
		URL:      client.URL,
		Path:     root.VersionJar(id),
		Expected: fetch.Expected{SHA1: client.SHA1, Size: client.Size},
	}
	result, err := f.Download(ctx, []fetch.Item{item}, nil)
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return result.Errors[0]
	}
	return nil
}
