// internal/builder/assets.go
package builder

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
)

// assetExts are the file extensions copied verbatim to the output, from the
// static directory and from page directories (figures, code samples).
var assetExts = map[string]bool{
	".css": true, ".js": true, ".txt": true, ".svg": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	".pdf": true, ".c": true, ".h": true, ".py": true,
}

// copyAssets copies asset files under srcDir to the same relative paths
// under outputDir. A missing srcDir is not an error.
func copyAssets(srcDir, outputDir string) error {
	if _, err := os.Stat(srcDir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !assetExts[filepath.Ext(d.Name())] {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		return copyFile(path, filepath.Join(outputDir, rel))
	})
}

func copyFile(srcPath, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// writeHighlightCSS writes the stylesheet for the classes chroma emits.
func writeHighlightCSS(dest, styleName string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	formatter := html.New(html.WithClasses(true))
	if err := formatter.WriteCSS(f, styles.Get(styleName)); err != nil {
		f.Close()
		return fmt.Errorf("failed to write highlight stylesheet: %w", err)
	}
	return f.Close()
}
