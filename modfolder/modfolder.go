// Package modfolder handles the run's working copy: duplicating a mod
// folder under a translated-marker name, deriving mod-relative paths for
// dictionary provenance, and discovering the Lua sources inside it.
//
// The pipeline never touches the original folder; everything happens in
// the `<mod>_translated_en` copy this package creates.
package modfolder

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// TranslatedMarker is appended to the cloned folder's name and stripped
// again when paths are normalized.
const TranslatedMarker = "_translated_en"

// sourceMarkers are working-copy suffixes stripped from the input folder's
// name before the translated marker is appended, so repeated passes over
// decrypted/beautified dumps all land on the same clone name.
var sourceMarkers = []string{
	" - Copy",
	" - Source",
	"_decrypted-Only-Merge",
	"_decrypted",
	"_beautified",
}

// CloneName returns the folder name the translated copy will use.
func CloneName(srcDir string) string {
	name := filepath.Base(filepath.Clean(srcDir))
	for _, marker := range sourceMarkers {
		name = strings.ReplaceAll(name, marker, "")
	}
	return name + TranslatedMarker
}

// ClonePath returns the destination directory for a clone of srcDir placed
// under destParent.
func ClonePath(srcDir, destParent string) string {
	return filepath.Join(destParent, CloneName(srcDir))
}

// Clone copies srcDir recursively to dst. dst must not exist yet; the
// caller decides whether an existing clone may be deleted first.
func Clone(srcDir, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("destination %s already exists", dst)
	}

	return filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm())
		}
		if !info.Mode().IsRegular() {
			return nil // sockets, symlinks etc. have no place in a mod copy
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// RelPath normalizes a file path inside a translated clone to the
// mod-relative form stored in the dictionary: the path from the mod folder
// down, slash-separated, with the translated marker stripped.
//
//	/mods/coolmod_translated_en/scripts/main.lua -> coolmod/scripts/main.lua
//
// A path without the marker violates the run-folder naming convention and
// is an error the caller must treat as fatal.
func RelPath(fullPath string) (string, error) {
	norm := filepath.ToSlash(fullPath)
	idx := strings.Index(norm, TranslatedMarker+"/")
	if idx < 0 {
		return "", fmt.Errorf("no %s folder in path %s", TranslatedMarker, fullPath)
	}
	start := strings.LastIndex(norm[:idx], "/") + 1
	return strings.Replace(norm[start:], TranslatedMarker+"/", "/", 1), nil
}

// LuaFiles returns every .lua file under dir, sorted, which fixes the
// run's processing order.
func LuaFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.EqualFold(filepath.Ext(path), ".lua") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}
