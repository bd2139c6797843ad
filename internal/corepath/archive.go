package corepath

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archiver/v3"
)

// UnzipInto extracts every entry of archive into dest, refusing any entry
// whose normalised path would escape dest (path-traversal protection). If
// stripMetaInf is set, entries under META-INF/ are skipped — used when
// unpacking a library JAR for its native libraries only.
func UnzipInto(archivePath, dest string, stripMetaInf bool) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", archivePath, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if stripMetaInf && strings.HasPrefix(f.Name, "META-INF/") {
			continue
		}

		target, err := safeJoin(dest, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		if err := extractZipEntry(f, target); err != nil {
			return fmt.Errorf("extracting %s: %w", f.Name, err)
		}
	}

	return nil
}

func extractZipEntry(f *zip.File, target string) error {
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

// safeJoin joins dest with entryName after normalisation, rejecting any
// result that would land outside dest.
func safeJoin(dest, entryName string) (string, error) {
	cleaned := filepath.Clean(filepath.Join(dest, filepath.FromSlash(entryName)))
	destClean := filepath.Clean(dest)
	if cleaned != destClean && !strings.HasPrefix(cleaned, destClean+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes destination directory", entryName)
	}
	return cleaned, nil
}

// ExtractWholeArchive unpacks a whole archive (zip, tar.gz, ...) into dest
// using format auto-detection. This is used for self-contained archives
// that are always fully trusted and fully unpacked: Java runtime
// distributions and modpack override trees. Fine-grained, per-entry
// filtering (native JARs, META-INF stripping) goes through UnzipInto
// instead, since archiver's whole-archive API has no entry filter hook.
func ExtractWholeArchive(archivePath, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("creating destination %s: %w", dest, err)
	}
	if err := archiver.Unarchive(archivePath, dest); err != nil {
		return fmt.Errorf("unarchiving %s: %w", archivePath, err)
	}
	return nil
}
