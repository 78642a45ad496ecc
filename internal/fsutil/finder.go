// Package fsutil provides file system utility functions.
package fsutil

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// FindFiles recursively searches root for files accepted by match and
// returns their paths in lexical order.
func FindFiles(root string, match func(path string, d fs.DirEntry) bool) ([]string, error) {
	if match == nil {
		panic("match must not be nil")
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if match(path, d) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// FindFilesByExtension recursively searches the given root path for all files ending
// with the specified extension. It returns a slice of their full paths.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}
	return FindFiles(rootPath, func(_ string, d fs.DirEntry) bool {
		return strings.HasSuffix(d.Name(), extension)
	})
}

// skipDir reports directories the walk never enters, the same ones the go
// command ignores.
func skipDir(name string) bool {
	return name == "vendor" || name == "testdata" ||
		strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")
}
