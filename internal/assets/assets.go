// Package assets installs a version's asset index and its content-
// addressed object store, including the legacy virtual-resources mirror
// some pre-1.7 asset index formats require.
package assets

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/quasar/launchercore/internal/corepath"
	"github.com/quasar/launchercore/internal/corerr"
	"github.com/quasar/launchercore/internal/events"
	"github.com/quasar/launchercore/internal/fetch"
	"github.com/quasar/launchercore/internal/mcversion"
)

// Index is the asset index JSON: a flat map of virtual path -> object.
type Index struct {
	Objects        map[string]Object `json:"objects"`
	MapToResources bool              `json:"map_to_resources,omitempty"`
	Virtual        bool              `json:"virtual,omitempty"`
}

type Object struct {
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

const resourcesBaseURL = "https://resources.download.minecraft.net/"

// EnsureAssets downloads the asset index (verifying its SHA-1 against the
// effective version's assetIndex entry) and every object it references,
// mirroring into assets/virtual/legacy when the index requests it.
func EnsureAssets(ctx context.Context, root corepath.Root, f *fetch.Fetcher, bus *events.Bus, eff *mcversion.Details) error {
	return ensureAssets(ctx, root, f, bus, eff, resourcesBaseURL)
}

func ensureAssets(ctx context.Context, root corepath.Root, f *fetch.Fetcher, bus *events.Bus, eff *mcversion.Details, objectBaseURL string) error {
	if eff.AssetIndex == nil {
		return corerr.New(corerr.NotFound, "effective version has no assetIndex")
	}

	indexPath := root.AssetIndexPath(eff.AssetIndex.ID)
	item := fetch.Item{
		URL:      eff.AssetIndex.URL,
		Path:     indexPath,
		Expected: fetch.Expected{SHA1: eff.AssetIndex.SHA1, Size: eff.AssetIndex.Size},
	}
	if result, err := f.Download(ctx, []fetch.Item{item}, nil); err != nil {
		return err
	} else if result.Failed > 0 {
		return result.Errors[0]
	}

	data, err := os.ReadFile(indexPath)
	if err != nil {
		return corerr.Wrap(corerr.Filesystem, "reading asset index", err)
	}

	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return corerr.Wrap(corerr.Internal, "decoding asset index", err)
	}

	var items []fetch.Item
	for _, obj := range index.Objects {
		items = append(items, fetch.Item{
			URL:      objectBaseURL + obj.Hash[:2] + "/" + obj.Hash,
			Path:     root.AssetObjectPath(obj.Hash),
			Expected: fetch.Expected{SHA1: obj.Hash, Size: obj.Size},
		})
	}

	result, err := f.Download(ctx, items, progressRelay(bus))
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return result.Errors[0]
	}

	if index.MapToResources || index.Virtual || eff.AssetIndex.MapToResources || eff.AssetIndex.Virtual {
		for path, obj := range index.Objects {
			if err := mirrorVirtual(root, path, obj.Hash); err != nil {
				return err
			}
		}
	}

	return nil
}

// mirrorVirtual places a copy of an already-downloaded object at its
// original relative path under assets/virtual/legacy, hard-linking when
// possible and falling back to a full copy across filesystems.
func mirrorVirtual(root corepath.Root, originalPath, hash string) error {
	src := root.AssetObjectPath(hash)
	dst := root.AssetVirtualPath(originalPath)

	if _, err := os.Stat(dst); err == nil {
		return nil
	}

	if err := os.MkdirAll(dirOf(dst), 0o755); err != nil {
		return corerr.Wrap(corerr.Filesystem, "creating virtual asset directory", err)
	}

	if err := os.Link(src, dst); err == nil {
		return nil
	}

	return copyFile(src, dst)
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[:i]
		}
	}
	return "."
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return corerr.Wrap(corerr.Filesystem, "opening asset object", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return corerr.Wrap(corerr.Filesystem, "creating virtual asset copy", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return corerr.Wrap(corerr.Filesystem, "copying virtual asset", err)
	}
	return nil
}

func progressRelay(bus *events.Bus) chan<- fetch.Progress {
	if bus == nil {
		return nil
	}
	ch := make(chan fetch.Progress, 8)
	go func() {
		for p := range ch {
			bus.Emit(events.DownloadProgress, events.DownloadProgressPayload{
				Phase: "assets",
				Done:  int64(p.CompletedItems),
				Total: int64(p.TotalItems),
			})
		}
	}()
	return ch
}
