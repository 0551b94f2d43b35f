package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// SystemExtensions are the file extensions accepted for system documents.
var SystemExtensions = []string{".yaml", ".yml", ".json"}

// MakeDir creates a directory with all parent directories
func MakeDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// DeleteFile removes a file
func DeleteFile(path string) error {
	return os.Remove(path)
}

// MoveFile moves or renames a file
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move file from %s to %s: %w", src, dst, err)
	}
	return nil
}

// IsSystemFile tells whether the path looks like a system document.
func IsSystemFile(path string) bool {
	return slices.Contains(SystemExtensions, strings.ToLower(filepath.Ext(path)))
}

// FindSystemFiles expands each argument: files are kept as given, directories
// are scanned (not recursively) for system documents.
func FindSystemFiles(paths ...string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("reading dir %s: %w", p, err)
		}
		for _, e := range entries {
			if !e.IsDir() && IsSystemFile(e.Name()) {
				out = append(out, filepath.Join(p, e.Name()))
			}
		}
	}
	return out, nil
}

// ReplaceExt swaps the extension of the base name and places it in dir.
func ReplaceExt(path, dir, ext string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base)) + ext
	return filepath.Join(dir, base)
}
