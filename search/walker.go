package search

import (
	"context"
	"io/fs"
	"iter"
	"path/filepath"
	"strings"
)

// FileWalker enumerates candidate files under a root directory
type FileWalker struct {
	root        string
	globs       *GlobSet
	recurse     bool
	skipDirs    map[string]bool
	maxFileSize int64
	containers  map[string]bool
}

// NewFileWalker creates a walker over root filtered by globs. Directory names
// in skipDirs are never entered; maxFileSize of 0 disables the size limit.
func NewFileWalker(root string, globs *GlobSet, recurse bool, skipDirs []string, maxFileSize int64) *FileWalker {
	fw := &FileWalker{
		root:        root,
		globs:       globs,
		recurse:     recurse,
		skipDirs:    make(map[string]bool, len(skipDirs)),
		maxFileSize: maxFileSize,
	}
	for _, d := range skipDirs {
		fw.skipDirs[d] = true
	}
	return fw
}

// WithContainers makes the walker also yield files with the given extensions
// (including the dot) regardless of the masks.
func (fw *FileWalker) WithContainers(exts ...string) *FileWalker {
	fw.containers = make(map[string]bool, len(exts))
	for _, ext := range exts {
		fw.containers[strings.ToLower(ext)] = true
	}
	return fw
}

// isCandidate checks the name against the masks and container extensions
func (fw *FileWalker) isCandidate(name string) bool {
	if fw.globs.Match(name) {
		return true
	}
	return fw.containers[strings.ToLower(filepath.Ext(name))]
}

// shouldSkipDir determines if we should skip a directory below the root
func (fw *FileWalker) shouldSkipDir(path string, d fs.DirEntry) bool {
	if path == fw.root {
		return false
	}
	return !fw.recurse || fw.skipDirs[d.Name()]
}

// Files yields absolute paths of matching regular files. Entries that cannot
// be read are skipped; the walk stops when ctx is done or the consumer stops.
func (fw *FileWalker) Files(ctx context.Context) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(fw.root, func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return filepath.SkipAll
			}
			if err != nil {
				// Skip entries we can't access
				if d != nil && d.IsDir() && path != fw.root {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				if fw.shouldSkipDir(path, d) {
					return filepath.SkipDir
				}
				return nil
			}

			// devices, pipes, sockets and links
			if !d.Type().IsRegular() {
				return nil
			}
			if !fw.isCandidate(d.Name()) {
				return nil
			}
			if fw.maxFileSize > 0 {
				info, err := d.Info()
				if err != nil || info.Size() > fw.maxFileSize {
					return nil
				}
			}

			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}
