package audit

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/charlievieth/fastwalk"
)

//nolint:gochecknoglobals // immutable lookup tables used across the package.
var (
	// skipDirs are directories we don't want to walk.
	skipDirs = []string{
		".git",
		"node_modules",
		"vendor",
		"dist",
		"build",
		"target",
		"__pycache__",
		".cache",
	}

	documentExts = []string{".md", ".markdown", ".mdown"}
)

func stringInListCaseInsensitive(name string, list []string) bool {
	for _, s := range list {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}

func isSkippedDir(name string) bool {
	return stringInListCaseInsensitive(name, skipDirs)
}

func isDocument(path string) bool {
	return stringInListCaseInsensitive(filepath.Ext(path), documentExts)
}

const streamBufferSize = 64

// streamDocuments walks root and streams Markdown file paths over a channel.
// The channel is closed when walking completes or the context is canceled.
func streamDocuments(ctx context.Context, root string) <-chan string {
	out := make(chan string, streamBufferSize)
	go func() {
		defer close(out)
		conf := fastwalk.DefaultConfig
		_ = fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // Skip unreadable entries.
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if d.IsDir() {
				if path != root && isSkippedDir(d.Name()) {
					return fs.SkipDir
				}
				return nil
			}
			if isDocument(path) {
				select {
				case out <- path:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}()
	return out
}
