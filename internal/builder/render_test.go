package builder

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"lectern/internal/config"
	"lectern/internal/registry"
	"lectern/internal/xref"
)

func TestSplitFrontMatter(t *testing.T) {
	meta, body, err := splitFrontMatter([]byte("---\ntitle: Vim\ndraft: true\nweek: 3\n---\nBody text\n"))
	require.NoError(t, err)
	want := PageMeta{Title: "Vim", Draft: true, Params: map[string]interface{}{"week": 3}}
	if diff := cmp.Diff(want, meta); diff != "" {
		t.Errorf("meta mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, "\nBody text\n", string(body))
}

func TestSplitFrontMatterAbsent(t *testing.T) {
	src := []byte("Intro\n\n---\n\nafter a rule\n")
	meta, body, err := splitFrontMatter(src)
	require.NoError(t, err)
	require.Equal(t, PageMeta{}, meta)
	require.Equal(t, src, body)
}

func TestSplitFrontMatterInvalid(t *testing.T) {
	_, _, err := splitFrontMatter([]byte("---\ntitle: [unclosed\n---\nx"))
	require.Error(t, err)
}

func TestRewriteMarkdownLink(t *testing.T) {
	tests := map[string]string{
		"../pointers/index.md":       "../pointers/",
		"../pointers/index.md#null":  "../pointers/#null",
		"index.md":                   "./",
		"vim.md":                     "vim/",
		"https://example.com/x.md":   "https://example.com/x.md",
		"mailto:someone@example.com": "mailto:someone@example.com",
		"assets/diagram.png":         "assets/diagram.png",
		"#section":                   "#section",
	}
	for in, want := range tests {
		require.Equal(t, want, string(rewriteMarkdownLink([]byte(in))), in)
	}
}

func TestRenderResolvesReferences(t *testing.T) {
	reg, err := registry.New([]registry.PageRecord{
		{PathName: "hello-world", PageTitle: "Hello, World!", NamedIdentifier: "hello-world"},
		{PathName: "pointers", PageTitle: "Pointers", NamedIdentifier: "pointers"},
	})
	require.NoError(t, err)
	r := newRenderer(config.Highlight{Disabled: true}, true)

	out, err := r.render([]byte("See [the pointers lecture](ref:pointers#null) and [](ref:hello-world)."),
		xref.NewResolver(reg, "/lecture-notes"), pageDirs{})
	require.NoError(t, err)
	require.Equal(t,
		"<p>See <a href=\"/lecture-notes/pointers#null\">the pointers lecture</a> and <a href=\"/lecture-notes/hello-world\">Hello, World!</a>.</p>\n",
		out)
}

func TestRenderReportsEveryBrokenReference(t *testing.T) {
	reg, err := registry.New([]registry.PageRecord{
		{PathName: "pointers", PageTitle: "Pointers", NamedIdentifier: "pointers"},
	})
	require.NoError(t, err)
	r := newRenderer(config.Highlight{Disabled: true}, false)

	_, err = r.render([]byte("[a](ref:arrays) and [b](ref:strings)"), xref.NewResolver(reg, "/lecture-notes"), pageDirs{})
	require.ErrorIs(t, err, registry.ErrNotFound)
	require.Contains(t, err.Error(), "arrays")
	require.Contains(t, err.Error(), "strings")
}

func TestRenderWithoutResolver(t *testing.T) {
	r := newRenderer(config.Highlight{Disabled: true}, false)

	out, err := r.render([]byte("[plain](other.md)"), nil, pageDirs{})
	require.NoError(t, err)
	require.Contains(t, out, `href="other/"`)

	_, err = r.render([]byte("[x](ref:pointers)"), nil, pageDirs{})
	require.Error(t, err)
}

func TestCleanEditML(t *testing.T) {
	out, err := cleanEditML([]byte("Plain lecture text."))
	require.NoError(t, err)
	require.Equal(t, "Plain lecture text.", string(out))

	out, err = cleanEditML([]byte("This is {+an addition+} and this is {-a deletion-}."))
	require.NoError(t, err)
	require.Equal(t, "This is an addition and this is .", string(out))
}

func TestRebaseLink(t *testing.T) {
	flat := pageDirs{src: "lecture-notes", out: "lecture-notes/vim"}
	tests := []struct {
		dest string
		dirs pageDirs
		want string
	}{
		{"assets/vim.png", flat, "../assets/vim.png"},
		{"pointers/", flat, "../pointers/"},
		{"pointers/#null", flat, "../pointers/#null"},
		{"./", flat, "../"},
		{"../index.html", flat, "../../index.html"},
		{"#modes", flat, "#modes"},
		{"/lecture-notes/pointers", flat, "/lecture-notes/pointers"},
		{"https://vim.org/", flat, "https://vim.org/"},
		{"mailto:someone@example.com", flat, "mailto:someone@example.com"},
		{"assets/x.png", pageDirs{src: "drafts", out: "lecture-notes/pointers"}, "../../drafts/assets/x.png"},
		{"assets/x.png", pageDirs{src: "lecture-notes/pointers", out: "lecture-notes/pointers"}, "assets/x.png"},
		{"about/", pageDirs{src: ".", out: ""}, "about/"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, string(rebaseLink([]byte(tt.dest), tt.dirs)), tt.dest)
	}
}

func TestRenderRebasesFlatPage(t *testing.T) {
	r := newRenderer(config.Highlight{Disabled: true}, false)

	out, err := r.render([]byte("![Modes](assets/modes.png)\n\nAfter [pointers](pointers/index.md)."),
		nil, pageDirs{src: "lecture-notes", out: "lecture-notes/vim"})
	require.NoError(t, err)
	require.Contains(t, out, `src="../assets/modes.png"`)
	require.Contains(t, out, `href="../pointers/"`)
}

func TestRenderCodeBlockFileName(t *testing.T) {
	r := newRenderer(config.Highlight{Style: "github"}, true)
	src := "```c {filename=\"hello.c\" hl_lines=[2]}\n#include <stdio.h>\nint main(void) { return 0; }\n```\n"

	out, err := r.render([]byte(src), nil, pageDirs{})
	require.NoError(t, err)
	caption := `<div class="codeblock has-filename">` + "\n" + `<pre class="language-filename"><code>hello.c</code></pre>`
	require.Contains(t, out, caption)
	require.Contains(t, out, `class="chroma"`)
	require.Less(t, strings.Index(out, caption), strings.Index(out, `class="chroma"`))
	require.Contains(t, out, `class="hl"`)
	require.True(t, strings.HasSuffix(out, "</div>\n"))
}

func TestRenderCodeBlockWithoutFileName(t *testing.T) {
	r := newRenderer(config.Highlight{Style: "github"}, false)

	out, err := r.render([]byte("```go\npackage main\n```\n\n```sh {filename=\"<run>.sh\"}\nls\n```\n"), nil, pageDirs{})
	require.NoError(t, err)
	require.Contains(t, out, `<div class="codeblock">`)
	require.Contains(t, out, `<pre class="language-filename"><code>&lt;run&gt;.sh</code></pre>`)
	require.Equal(t, 2, strings.Count(out, `class="chroma"`))
}
