package scaffold

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"lectern/internal/builder"
	"lectern/internal/config"
	"lectern/internal/registry"
)

func newSite(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "notes")
	require.NoError(t, CreateNewSite(root))
	return root
}

func buildSite(t *testing.T, root string) int {
	t.Helper()
	cfg, err := config.LoadSiteConfig(filepath.Join(root, "site.yaml"))
	require.NoError(t, err)
	tmpl, err := builder.LoadTemplates(filepath.Join(root, "templates"), cfg.Template)
	require.NoError(t, err)
	n, err := builder.BuildSite(context.Background(),
		filepath.Join(root, "public"),
		filepath.Join(root, "content"),
		filepath.Join(root, "static"),
		cfg, tmpl, builder.BuildOptions{CleanDestination: true})
	require.NoError(t, err)
	return n
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestCreateNewSiteBuilds(t *testing.T) {
	root := newSite(t)

	// home, hello-world and the collection index
	require.Equal(t, 3, buildSite(t, root))

	index := readFile(t, filepath.Join(root, "public", "lecture-notes", "index.html"))
	require.Contains(t, index, `<a href="/lecture-notes/hello-world">Hello, World!</a>`)
	page := readFile(t, filepath.Join(root, "public", "lecture-notes", "hello-world", "index.html"))
	require.Contains(t, page, "<title>Hello, World! | Lecture Notes</title>")
	require.Contains(t, page, `href="../../css/highlight.css"`)
	require.Contains(t, page, `<pre class="language-filename"><code>hello.c</code></pre>`)
	require.Contains(t, page, `<script src="../../js/codeblock.js"></script>`)
	require.FileExists(t, filepath.Join(root, "public", "css", "style.css"))
	require.FileExists(t, filepath.Join(root, "public", "js", "codeblock.js"))
}

func TestCreateNewSiteRefusesExistingSite(t *testing.T) {
	root := newSite(t)
	require.Error(t, CreateNewSite(root))
}

func TestCreateNewPage(t *testing.T) {
	root := newSite(t)

	pagePath, err := CreateNewPage(root, "site.yaml", PageSpec{Collection: "lecture-notes", PathName: "Pointers"})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "content", "lecture-notes", "pointers", "index.md"), pagePath)
	require.Contains(t, readFile(t, pagePath), "[](ref:pointers)")

	sources := filepath.Join(root, "content", "lecture-notes", "sources.yaml")
	require.Contains(t, readFile(t, sources), "# Pages of this collection, in reading order.")
	reg, err := registry.Load(sources)
	require.NoError(t, err)
	want := []registry.PageRecord{
		{PathName: "hello-world", PageTitle: "Hello, World!", NamedIdentifier: "hello-world"},
		{PathName: "pointers", PageTitle: "Pointers", NamedIdentifier: "pointers"},
	}
	if diff := cmp.Diff(want, reg.Records()); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	require.Equal(t, 4, buildSite(t, root))
	hello := readFile(t, filepath.Join(root, "public", "lecture-notes", "hello-world", "index.html"))
	require.Contains(t, hello, `<a href="/lecture-notes/pointers">Pointers &rarr;</a>`)
}

func TestCreateNewPageExplicitTitleAndIdentifier(t *testing.T) {
	root := newSite(t)

	_, err := CreateNewPage(root, "site.yaml", PageSpec{
		Collection: "lecture-notes",
		PathName:   "string-input",
		Title:      "String Input and Manipulation",
		Identifier: "strings",
	})
	require.NoError(t, err)

	reg, err := registry.Load(filepath.Join(root, "content", "lecture-notes", "sources.yaml"))
	require.NoError(t, err)
	entry, err := reg.Resolve("strings")
	require.NoError(t, err)
	require.Equal(t, registry.IdentifierEntry{PathName: "string-input", PageTitle: "String Input and Manipulation"}, entry)
}

func TestCreateNewPageRejectsDuplicateIdentifier(t *testing.T) {
	root := newSite(t)

	_, err := CreateNewPage(root, "site.yaml", PageSpec{Collection: "lecture-notes", PathName: "again", Identifier: "hello-world"})
	require.ErrorIs(t, err, registry.ErrDuplicate)
	require.NoDirExists(t, filepath.Join(root, "content", "lecture-notes", "again"))
}

func TestCreateNewPageErrors(t *testing.T) {
	root := newSite(t)

	_, err := CreateNewPage(root, "site.yaml", PageSpec{Collection: "slides", PathName: "x"})
	require.ErrorContains(t, err, `no collection "slides"`)

	_, err = CreateNewPage(root, "site.yaml", PageSpec{Collection: "lecture-notes", PathName: "!!!"})
	require.ErrorContains(t, err, "no usable characters")

	_, err = CreateNewPage(root, "site.yaml", PageSpec{Collection: "lecture-notes", PathName: "hello-world", Identifier: "hello"})
	require.ErrorContains(t, err, "already exists")
}

func TestCreateNewPageUsesSiteArchetype(t *testing.T) {
	root := newSite(t)
	archetype := "---\nauthor: {{.Author}}\n---\n# {{.Title}}\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "archetypes", "lecture.md"), []byte(archetype), 0644))

	pagePath, err := CreateNewPage(root, "site.yaml", PageSpec{Collection: "lecture-notes", PathName: "vim"})
	require.NoError(t, err)
	require.Equal(t, "---\nauthor: Your Name\n---\n# Vim\n", readFile(t, pagePath))
}

func TestAppendRecord(t *testing.T) {
	dir := t.TempDir()
	rec := registry.PageRecord{PathName: "pointers", PageTitle: "Pointers", NamedIdentifier: "pointers"}

	t.Run("missing file", func(t *testing.T) {
		path := filepath.Join(dir, "new", "sources.yaml")
		require.NoError(t, appendRecord(path, rec))
		reg, err := registry.Load(path)
		require.NoError(t, err)
		require.Equal(t, []registry.PageRecord{rec}, reg.Records())
	})

	t.Run("comments only", func(t *testing.T) {
		path := filepath.Join(dir, "comments.yaml")
		require.NoError(t, os.WriteFile(path, []byte("# nothing yet\n"), 0644))
		require.NoError(t, appendRecord(path, rec))
		reg, err := registry.Load(path)
		require.NoError(t, err)
		require.Equal(t, 1, reg.Len())
	})

	t.Run("empty pages", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		require.NoError(t, os.WriteFile(path, []byte("pages:\n"), 0644))
		require.NoError(t, appendRecord(path, rec))
		reg, err := registry.Load(path)
		require.NoError(t, err)
		require.Equal(t, []registry.PageRecord{rec}, reg.Records())
	})

	t.Run("duplicate path name", func(t *testing.T) {
		path := filepath.Join(dir, "dup.yaml")
		require.NoError(t, appendRecord(path, rec))
		before := readFile(t, path)
		err := appendRecord(path, registry.PageRecord{PathName: "pointers", PageTitle: "Again", NamedIdentifier: "again"})
		require.ErrorIs(t, err, registry.ErrDuplicate)
		require.Equal(t, before, readFile(t, path))
	})

	t.Run("not a mapping", func(t *testing.T) {
		path := filepath.Join(dir, "list.yaml")
		require.NoError(t, os.WriteFile(path, []byte("- a\n- b\n"), 0644))
		require.Error(t, appendRecord(path, rec))
	})
}
