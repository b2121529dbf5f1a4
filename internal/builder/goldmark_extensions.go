// internal/builder/goldmark_extensions.go
package builder

import (
	"bytes"
	"fmt"
	"path"
	"path/filepath"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"lectern/internal/xref"
)

var (
	// resolverKey holds the page's *xref.Resolver, absent outside collections.
	resolverKey = parser.NewContextKey()
	// linkErrorsKey collects broken references found during the transform.
	linkErrorsKey = parser.NewContextKey()
	// pageDirsKey holds the pageDirs relative destinations are rebased with.
	pageDirsKey = parser.NewContextKey()
)

// linkTransformer rewrites link destinations: ref: links are resolved
// through the page registry, relative .md links point at the rendered page.
type linkTransformer struct{}

func newLinkTransformer() parser.ASTTransformer {
	return &linkTransformer{}
}

func (t *linkTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	resolver, _ := pc.Get(resolverKey).(*xref.Resolver)
	dirs, _ := pc.Get(pageDirsKey).(pageDirs)
	var errs []error

	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if img, ok := n.(*ast.Image); ok {
			img.Destination = rebaseLink(img.Destination, dirs)
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok {
			return ast.WalkContinue, nil
		}

		dest := string(link.Destination)
		if !xref.IsRef(dest) {
			link.Destination = rebaseLink(rewriteMarkdownLink(link.Destination), dirs)
			return ast.WalkContinue, nil
		}
		if resolver == nil {
			errs = append(errs, fmt.Errorf("cross-reference %q used outside a collection", dest))
			return ast.WalkContinue, nil
		}
		resolved, err := resolver.Ref(dest)
		if err != nil {
			errs = append(errs, err)
			return ast.WalkContinue, nil
		}
		link.Destination = []byte(resolved.Href)
		// [](ref:pointers) takes the target's title as its text.
		if link.ChildCount() == 0 {
			link.AppendChild(link, ast.NewString([]byte(resolved.Title)))
		}
		return ast.WalkContinue, nil
	})

	if len(errs) > 0 {
		pc.Set(linkErrorsKey, errs)
	}
}

// rewriteMarkdownLink maps links between source files onto output pages,
// which live at <location>/index.html: "../pointers/index.md#null" becomes
// "../pointers/#null" and "vim.md" becomes "vim/".
func rewriteMarkdownLink(dest []byte) []byte {
	if bytes.Contains(dest, []byte("://")) || bytes.HasPrefix(dest, []byte("mailto:")) {
		return dest
	}
	target, fragment, hasFragment := bytes.Cut(dest, []byte("#"))
	if !bytes.HasSuffix(target, []byte(".md")) {
		return dest
	}
	switch {
	case bytes.Equal(target, []byte("index.md")):
		target = []byte("./")
	case bytes.HasSuffix(target, []byte("/index.md")):
		target = bytes.TrimSuffix(target, []byte("index.md"))
	default:
		target = bytes.TrimSuffix(target, []byte(".md"))
		target = append(target[:len(target):len(target)], '/')
	}
	out := append([]byte{}, target...)
	if hasFragment {
		out = append(append(out, '#'), fragment...)
	}
	return out
}

// rebaseLink re-expresses a relative destination written against the source
// file's directory so it works from the page's output directory. Pages at
// "a/b.md" are written to "a/b/index.html", one level below their source.
func rebaseLink(dest []byte, dirs pageDirs) []byte {
	src, out := path.Clean("/"+dirs.src), path.Clean("/"+dirs.out)
	if src == out || !isRelativeLink(dest) {
		return dest
	}
	target, suffix := dest, []byte(nil)
	if i := bytes.IndexAny(dest, "#?"); i >= 0 {
		target, suffix = dest[:i], dest[i:]
	}
	if len(target) == 0 {
		return dest
	}

	rel, err := filepath.Rel(filepath.FromSlash(out), filepath.FromSlash(path.Join(src, string(target))))
	if err != nil {
		return dest
	}
	rel = filepath.ToSlash(rel)
	if bytes.HasSuffix(target, []byte("/")) {
		rel += "/"
	}
	return append([]byte(rel), suffix...)
}

// isRelativeLink reports whether dest is a path relative to the page, as
// opposed to a fragment, a rooted path or a URL with a scheme.
func isRelativeLink(dest []byte) bool {
	if len(dest) == 0 || dest[0] == '/' || dest[0] == '#' || dest[0] == '?' {
		return false
	}
	colon := bytes.IndexByte(dest, ':')
	return colon < 0 || bytes.IndexByte(dest[:colon], '/') >= 0
}
