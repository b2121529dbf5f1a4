// internal/builder/render.go
package builder

import (
	"bytes"
	"errors"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/microcosm-cc/bluemonday"
	"github.com/verkaro/editml-go"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
	"gopkg.in/yaml.v3"

	"lectern/internal/config"
	"lectern/internal/xref"
)

var frontMatterDelim = []byte("---")

// renderer turns a page body into (optionally sanitized) HTML. It is safe
// for concurrent use.
type renderer struct {
	md        goldmark.Markdown
	sanitizer *bluemonday.Policy
	unsafe    bool
}

func newRenderer(hl config.Highlight, unsafe bool) *renderer {
	extensions := []goldmark.Extender{extension.GFM, extension.Footnote}
	if !hl.Disabled {
		extensions = append(extensions, highlighting.NewHighlighting(
			highlighting.WithStyle(hl.Style),
			highlighting.WithFormatOptions(
				chromahtml.WithClasses(true),
				chromahtml.WithLineNumbers(hl.LineNumbers),
			),
			highlighting.WithWrapperRenderer(codeBlockWrapper),
		))
	}

	md := goldmark.New(
		goldmark.WithExtensions(extensions...),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(
				util.Prioritized(newLinkTransformer(), 100),
			),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)

	// Highlighted code is styled through classes, see highlight.css.
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Globally()

	return &renderer{md: md, sanitizer: policy, unsafe: unsafe}
}

// splitFrontMatter separates a leading YAML front matter block from the body.
// Content that does not open with "---" has no front matter.
func splitFrontMatter(raw []byte) (PageMeta, []byte, error) {
	meta := PageMeta{}
	trimmed := bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if !bytes.HasPrefix(trimmed, frontMatterDelim) {
		return meta, raw, nil
	}
	parts := bytes.SplitN(trimmed, frontMatterDelim, 3)
	if len(parts) < 3 {
		return meta, raw, nil
	}
	if err := yaml.Unmarshal(parts[1], &meta); err != nil {
		return PageMeta{}, nil, fmt.Errorf("failed to parse front matter: %w", err)
	}
	return meta, parts[2], nil
}

// cleanEditML drops editorial markup, keeping the accepted text.
func cleanEditML(body []byte) ([]byte, error) {
	nodes, parseIssues := editml.Parse(string(body))
	if len(parseIssues) > 0 && parseIssues[0].Severity == editml.SeverityError {
		return nil, fmt.Errorf("editml parsing error: %s", parseIssues[0].Message)
	}
	clean, transformIssues := editml.TransformCleanView(nodes)
	if len(transformIssues) > 0 && transformIssues[0].Severity == editml.SeverityError {
		return nil, fmt.Errorf("editml transformation error: %s", transformIssues[0].Message)
	}
	return []byte(clean), nil
}

// pageDirs places a page: src is the directory of its source file, out the
// directory its index.html is written to. Both are slash paths relative to
// the content root, which the output tree mirrors.
type pageDirs struct {
	src string
	out string
}

// render converts a markdown body to HTML. resolver may be nil for pages
// outside any collection; ref: links then fail. Relative links and images
// are rebased from dirs.src to dirs.out.
func (r *renderer) render(body []byte, resolver *xref.Resolver, dirs pageDirs) (string, error) {
	pc := parser.NewContext()
	if resolver != nil {
		pc.Set(resolverKey, resolver)
	}
	pc.Set(pageDirsKey, dirs)

	var htmlBuffer bytes.Buffer
	if err := r.md.Convert(body, &htmlBuffer, parser.WithContext(pc)); err != nil {
		return "", fmt.Errorf("failed to render markdown with goldmark: %w", err)
	}
	if errs, _ := pc.Get(linkErrorsKey).([]error); len(errs) > 0 {
		return "", errors.Join(errs...)
	}

	if r.unsafe {
		return htmlBuffer.String(), nil
	}
	return string(r.sanitizer.SanitizeBytes(htmlBuffer.Bytes())), nil
}
