// Package mods enumerates and manages the jar files under an instance's
// mods directory: list, enable/disable, remove, and update checking
// against Modrinth.
package mods

import (
	"archive/zip"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/quasar/launchercore/internal/corerr"
	"github.com/quasar/launchercore/internal/mcversion"
	"github.com/quasar/launchercore/internal/modrinth"
)

const disabledSuffix = ".disabled"

// Mod is a single discovered mod jar.
type Mod struct {
	Filename string
	Path     string
	Enabled  bool
	ModID    string
	Name     string
	Version  string

	// Broken and BrokenReason flag a mod as incompatible with the instance
	// without disabling it. Nothing in this package compares a mod's
	// declared loader or MC version range against the instance, so List
	// always returns them unset.
	Broken       bool
	BrokenReason string
}

// fabricModJSON is the subset of fabric.mod.json / quilt.mod.json we read.
// Quilt's quilt.mod.json nests the same fields under "quilt_loader", but in
// practice Quilt also ships a fabric.mod.json shim for compatibility, which
// is the file we prefer when both are present.
type fabricModJSON struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Depends      map[string]string `json:"depends"`
}

// List enumerates every *.jar and *.jar.disabled file directly under
// modsDir and reads what metadata it can from each.
func List(modsDir string) ([]Mod, error) {
	entries, err := os.ReadDir(modsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, corerr.Wrap(corerr.Filesystem, "reading mods directory", err)
	}

	var out []Mod
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		enabled := strings.HasSuffix(name, ".jar")
		disabled := strings.HasSuffix(name, ".jar"+disabledSuffix)
		if !enabled && !disabled {
			continue
		}

		m := Mod{
			Filename: name,
			Path:     filepath.Join(modsDir, name),
			Enabled:  enabled && !disabled,
		}

		if meta, err := readModMetadata(m.Path); err == nil {
			m.ModID = meta.ID
			m.Name = meta.Name
			m.Version = meta.Version
		}

		out = append(out, m)
	}

	return out, nil
}

// readModMetadata opens a mod jar and reads fabric.mod.json, quilt.mod.json,
// or a minimal scan of mods.toml (Forge/NeoForge), in that preference order.
func readModMetadata(jarPath string) (*fabricModJSON, error) {
	r, err := zip.OpenReader(jarPath)
	if err != nil {
		return nil, corerr.Wrap(corerr.Filesystem, "opening mod jar", err)
	}
	defer r.Close()

	for _, name := range []string{"fabric.mod.json", "quilt.mod.json"} {
		for _, f := range r.File {
			if f.Name != name {
				continue
			}
			rc, err := f.Open()
			if err != nil {
				continue
			}
			var meta fabricModJSON
			err = json.NewDecoder(rc).Decode(&meta)
			rc.Close()
			if err == nil {
				return &meta, nil
			}
		}
	}

	for _, f := range r.File {
		if f.Name != "META-INF/mods.toml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		meta, err := scanModsToml(rc)
		rc.Close()
		if err == nil {
			return meta, nil
		}
	}

	return nil, corerr.New(corerr.NotFound, "no recognised mod metadata in "+jarPath)
}

// scanModsToml extracts modId/version/displayName out of a Forge/NeoForge
// mods.toml without a TOML parser: it looks for the first [[mods]] table
// and reads its key = "value" lines. Good enough for the fields we need and
// avoids adding a TOML dependency for three scalar keys.
func scanModsToml(r io.Reader) (*fabricModJSON, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	meta := &fabricModJSON{}
	inModsTable := false
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[[mods]]") {
			if inModsTable {
				break
			}
			inModsTable = true
			continue
		}
		if strings.HasPrefix(line, "[") && !strings.HasPrefix(line, "[[mods]]") {
			if inModsTable {
				break
			}
			continue
		}
		if !inModsTable {
			continue
		}

		key, value, ok := splitTomlLine(line)
		if !ok {
			continue
		}
		switch key {
		case "modId":
			meta.ID = value
		case "version":
			meta.Version = value
		case "displayName":
			meta.Name = value
		}
	}

	if meta.ID == "" {
		return nil, corerr.New(corerr.NotFound, "mods.toml has no modId")
	}
	return meta, nil
}

func splitTomlLine(line string) (key, value string, ok bool) {
	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:idx])
	value = strings.TrimSpace(line[idx+1:])
	value = strings.Trim(value, `"`)
	if key == "" {
		return "", "", false
	}
	return key, value, true
}

// Toggle renames a mod between enabled (.jar) and disabled (.jar.disabled).
// The rename stays on the same volume so it is atomic.
func Toggle(modsDir, filename string) error {
	src := filepath.Join(modsDir, filename)

	var dst string
	if strings.HasSuffix(filename, disabledSuffix) {
		dst = filepath.Join(modsDir, strings.TrimSuffix(filename, disabledSuffix))
	} else {
		dst = src + disabledSuffix
	}

	if err := os.Rename(src, dst); err != nil {
		return corerr.Wrap(corerr.Filesystem, "toggling mod", err)
	}
	return nil
}

// Remove deletes a single mod file. It never touches any other file in the
// mods directory.
func Remove(modsDir, filename string) error {
	if err := os.Remove(filepath.Join(modsDir, filename)); err != nil {
		return corerr.Wrap(corerr.Filesystem, "removing mod", err)
	}
	return nil
}

// UpdateInfo reports the outcome of checking a single mod against Modrinth.
type UpdateInfo struct {
	Filename         string
	CurrentVersion   string
	LatestVersion    string
	ProjectID        string
	UpdateAvailable  bool
}

// CheckUpdates queries Modrinth for each listed mod, first by its jar's
// SHA-1 (version-file lookup), falling back to using its embedded mod ID as
// the Modrinth project id when the hash is unknown to Modrinth (a
// locally-built or non-Modrinth jar). A mod
// with neither a resolvable hash nor an embedded mod ID is skipped.
func CheckUpdates(ctx context.Context, client *modrinth.Client, mods []Mod, loader mcversion.LoaderType, mcVersion string) ([]UpdateInfo, error) {
	var out []UpdateInfo

	for _, m := range mods {
		projectID := m.ModID

		if hash, err := sha1File(m.Path); err == nil {
			if current, err := client.GetVersionFromHash(ctx, hash, "sha1"); err == nil {
				projectID = current.ProjectID
			}
		}

		if projectID == "" {
			continue
		}

		versions, err := client.GetProjectVersions(ctx, projectID, []string{string(loader)}, []string{mcVersion})
		if err != nil {
			continue
		}

		compatible := modrinth.CompatibleVersions(versions, loader, mcVersion)
		if len(compatible) == 0 {
			continue
		}

		latest := compatible[0]
		info := UpdateInfo{
			Filename:       m.Filename,
			CurrentVersion: m.Version,
			LatestVersion:  latest.VersionNumber,
			ProjectID:      projectID,
		}
		info.UpdateAvailable = latest.VersionNumber != "" && latest.VersionNumber != m.Version
		out = append(out, info)
	}

	return out, nil
}

// sha1File hashes a jar on disk, used when correlating a local file against
// Modrinth's version file hashes.
func sha1File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
