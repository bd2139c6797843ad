package modrinth

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/quasar/launchercore/internal/corerr"
	"github.com/quasar/launchercore/internal/fetch"
	"github.com/quasar/launchercore/internal/mcversion"
)

// PackIndex is `modrinth.index.json`, the declarative manifest at the
// root of a `.mrpack` archive.
type PackIndex struct {
	FormatVersion int             `json:"formatVersion"`
	Game          string          `json:"game"`
	VersionID     string          `json:"versionId"`
	Name          string          `json:"name"`
	Summary       string          `json:"summary"`
	Files         []PackFile      `json:"files"`
	Dependencies  map[string]string `json:"dependencies"`
}

type PackFile struct {
	Path   string            `json:"path"`
	Hashes FileHashes        `json:"hashes"`
	Env    map[string]string `json:"env"`
	Downloads []string        `json:"downloads"`
	FileSize int64            `json:"fileSize"`
}

// MCVersion returns dependencies.minecraft.
func (p PackIndex) MCVersion() string { return p.Dependencies["minecraft"] }

// Loader returns the loader type and version named in dependencies, if
// any (fabric-loader, quilt-loader, forge, neoforge, in that precedence).
func (p PackIndex) Loader() (mcversion.LoaderType, string) {
	for _, name := range []string{"fabric-loader", "quilt-loader", "forge", "neoforge"} {
		if v, ok := p.Dependencies[name]; ok {
			switch name {
			case "fabric-loader":
				return mcversion.LoaderFabric, v
			case "quilt-loader":
				return mcversion.LoaderQuilt, v
			case "forge":
				return mcversion.LoaderForge, v
			case "neoforge":
				return mcversion.LoaderNeoForge, v
			}
		}
	}
	return mcversion.LoaderNone, ""
}

// ParsePackIndex reads modrinth.index.json out of a .mrpack archive.
func ParsePackIndex(archivePath string) (*PackIndex, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, corerr.Wrap(corerr.Filesystem, "opening modpack archive", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "modrinth.index.json" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, corerr.Wrap(corerr.Filesystem, "reading modpack index", err)
		}
		defer rc.Close()

		var idx PackIndex
		if err := json.NewDecoder(rc).Decode(&idx); err != nil {
			return nil, corerr.Wrap(corerr.Internal, "decoding modpack index", err)
		}
		return &idx, nil
	}

	return nil, corerr.New(corerr.NotFound, "modrinth.index.json not found in archive")
}

// ApplyPack downloads every file named in the index into
// instanceMinecraftDir, honouring env.client (skipping "unsupported"), and
// extracts overrides/ and client-overrides/ from the archive on top of
// the instance directory.
func ApplyPack(ctx context.Context, f *fetch.Fetcher, archivePath string, idx *PackIndex, instanceMinecraftDir string) error {
	var items []fetch.Item
	for _, file := range idx.Files {
		if file.Env["client"] == "unsupported" {
			continue
		}
		if len(file.Downloads) == 0 {
			continue
		}

		dest, err := safeJoin(instanceMinecraftDir, file.Path)
		if err != nil {
			return err
		}

		items = append(items, fetch.Item{
			URL:      file.Downloads[0],
			Path:     dest,
			Expected: fetch.Expected{SHA1: file.Hashes.SHA1, Size: file.FileSize},
		})
	}

	result, err := f.Download(ctx, items, nil)
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return result.Errors[0]
	}

	for _, prefix := range []string{"overrides/", "client-overrides/"} {
		if err := extractOverrides(archivePath, prefix, instanceMinecraftDir); err != nil {
			return err
		}
	}

	return nil
}

func extractOverrides(archivePath, prefix, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return corerr.Wrap(corerr.Filesystem, "opening modpack archive", err)
	}
	defer r.Close()

	for _, entry := range r.File {
		if !strings.HasPrefix(entry.Name, prefix) {
			continue
		}
		rel := strings.TrimPrefix(entry.Name, prefix)
		if rel == "" {
			continue
		}

		target, err := safeJoin(destDir, rel)
		if err != nil {
			return err
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return corerr.Wrap(corerr.Filesystem, "creating override directory", err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return corerr.Wrap(corerr.Filesystem, "creating override directory", err)
		}

		if err := extractEntry(entry, target); err != nil {
			return corerr.Wrap(corerr.Filesystem, fmt.Sprintf("extracting override %s", rel), err)
		}
	}

	return nil
}

func extractEntry(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}

// safeJoin rejects any relative path that would escape destDir, same
// protection as the general-purpose archive extractor.
func safeJoin(destDir, rel string) (string, error) {
	cleaned := filepath.Clean(filepath.Join(destDir, filepath.FromSlash(rel)))
	destClean := filepath.Clean(destDir)
	if cleaned != destClean && !strings.HasPrefix(cleaned, destClean+string(filepath.Separator)) {
		return "", corerr.New(corerr.Filesystem, "modpack entry escapes instance directory: "+rel)
	}
	return cleaned, nil
}
