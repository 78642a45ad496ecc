package fsutil

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/vk/persistunits/internal/ctxlog"
	"github.com/vk/persistunits/internal/descriptor"
)

// DescriptorDir is the directory every descriptor lives in.
const DescriptorDir = "META-INF"

// DescriptorNames are the file names recognized as descriptors.
var DescriptorNames = []string{
	"persistence.xml",
	"persistence.yaml",
	"persistence.yml",
	"persistence.hcl",
	"persistence.json",
}

// DescriptorLocator finds descriptor files under a set of root directories.
type DescriptorLocator struct {
	Roots []string
}

// NewDescriptorLocator creates a locator over roots.
func NewDescriptorLocator(roots ...string) *DescriptorLocator {
	return &DescriptorLocator{Roots: roots}
}

// Locate implements descriptor.Locator. Resources are returned root by root,
// each root's files in lexical path order. A file reachable from two roots
// is returned once.
func (l *DescriptorLocator) Locate(ctx context.Context) ([]descriptor.Resource, error) {
	logger := ctxlog.FromContext(ctx)

	var out []descriptor.Resource
	seen := make(map[string]struct{})
	for _, root := range l.Roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("%w: root %s: %w", descriptor.ErrResource, root, err)
		}
		paths, err := FindFiles(abs, isDescriptor)
		if err != nil {
			return nil, fmt.Errorf("%w: walking %s: %w", descriptor.ErrResource, abs, err)
		}
		if len(paths) == 0 {
			logger.Warn("No descriptors found under root.", "root", abs)
		}
		for _, p := range paths {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, &FileResource{Path: p})
		}
	}
	logger.Debug("Located descriptors.", "count", len(out))
	return out, nil
}

func isDescriptor(path string, d fs.DirEntry) bool {
	if filepath.Base(filepath.Dir(path)) != DescriptorDir {
		return false
	}
	for _, name := range DescriptorNames {
		if d.Name() == name {
			return true
		}
	}
	return false
}

// FileResource is a descriptor read from the local file system.
type FileResource struct {
	Path string
}

// Location implements descriptor.Resource.
func (r *FileResource) Location() *url.URL {
	return descriptor.FileURL(filepath.ToSlash(r.Path))
}

// Open implements descriptor.Resource.
func (r *FileResource) Open() (io.ReadCloser, error) {
	return os.Open(r.Path)
}

func (r *FileResource) String() string {
	return r.Path
}
