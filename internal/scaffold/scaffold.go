// internal/scaffold/scaffold.go
package scaffold

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"text/template"

	"lectern/internal/config"
	"lectern/internal/registry"
	"lectern/internal/util"
)

// CreateNewSite lays out a site with one collection and one lecture.
func CreateNewSite(name string) error {
	if _, err := os.Stat(filepath.Join(name, "site.yaml")); err == nil {
		return fmt.Errorf("%s already contains a site", name)
	}
	fmt.Println("Scaffolding new site in:", name)
	mkdir := func(path string) error { return os.MkdirAll(filepath.Join(name, path), 0755) }
	writeFile := func(path, content string) error {
		return os.WriteFile(filepath.Join(name, path), []byte(content), 0644)
	}
	dirs := []string{"content/lecture-notes/hello-world", "static/css", "static/js", "templates/simple", "archetypes"}
	for _, dir := range dirs {
		if err := mkdir(dir); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	files := map[string]string{
		"site.yaml":                                  siteYamlContent,
		"content/index.md":                           homeMdContent,
		"content/lecture-notes/sources.yaml":         sourcesYamlContent,
		"content/lecture-notes/index.md":             collectionIndexMdContent,
		"content/lecture-notes/hello-world/index.md": helloWorldMdContent,
		"static/css/style.css":                       staticCssContent,
		"static/js/codeblock.js":                     staticCodeBlockJsContent,
		"templates/simple/layout.html":               templateLayoutHtmlContent,
		"templates/simple/header.html":               templateHeaderHtmlContent,
		"templates/simple/footer.html":               templateFooterHtmlContent,
		"templates/simple/toc.html":                  templateTocHtmlContent,
		"archetypes/lecture.md":                      archetypeLectureMdContent,
	}
	for path, content := range files {
		if err := writeFile(path, content); err != nil {
			return fmt.Errorf("failed to write file %s: %w", path, err)
		}
	}
	fmt.Println("Site scaffolded. You can now:")
	fmt.Println("  cd", name)
	fmt.Println("  lectern new page lecture-notes pointers")
	fmt.Println("  lectern serve")
	return nil
}

// PageSpec describes a lecture page to add to a collection. Empty Title and
// Identifier are derived from PathName.
type PageSpec struct {
	Collection string
	PathName   string
	Title      string
	Identifier string
}

// CreateNewPage writes a lecture page from the archetype and registers it at
// the end of the collection's sources file. It returns the page's path.
func CreateNewPage(siteRoot, configPath string, spec PageSpec) (string, error) {
	site, err := config.LoadSiteConfig(filepath.Join(siteRoot, configPath))
	if err != nil {
		return "", err
	}
	coll, ok := site.Collection(spec.Collection)
	if !ok {
		return "", fmt.Errorf("no collection %q in %s", spec.Collection, configPath)
	}

	rec := registry.PageRecord{
		PathName:        util.Slugify(spec.PathName),
		PageTitle:       spec.Title,
		NamedIdentifier: spec.Identifier,
	}
	if rec.PathName == "" {
		return "", fmt.Errorf("path name %q has no usable characters", spec.PathName)
	}
	if rec.PageTitle == "" {
		rec.PageTitle = util.TitleFromSlug(rec.PathName)
	}
	if rec.NamedIdentifier == "" {
		rec.NamedIdentifier = rec.PathName
	}

	contentDir := filepath.Join(siteRoot, "content")
	pagePath := filepath.Join(contentDir, filepath.FromSlash(coll.Dir), rec.PathName, "index.md")
	if _, err := os.Stat(pagePath); err == nil {
		return "", fmt.Errorf("%s already exists", pagePath)
	}

	body, err := renderArchetype(filepath.Join(siteRoot, "archetypes", "lecture.md"), rec, site)
	if err != nil {
		return "", err
	}
	// Register first: a rejected record must not leave an orphan page behind.
	if err := appendRecord(coll.SourcesPath(contentDir), rec); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(pagePath), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(pagePath, body, 0644); err != nil {
		return "", err
	}
	fmt.Println("Created:", pagePath)
	return pagePath, nil
}

func renderArchetype(path string, rec registry.PageRecord, site config.SiteConfig) ([]byte, error) {
	tmplBytes, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		tmplBytes = []byte(archetypeLectureMdContent)
	} else if err != nil {
		return nil, fmt.Errorf("could not read archetype file %s: %w", path, err)
	}

	tmpl, err := template.New("archetype").Parse(string(tmplBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse archetype file %s: %w", path, err)
	}

	data := struct {
		Title      string
		Identifier string
		Author     string
	}{
		Title:      rec.PageTitle,
		Identifier: rec.NamedIdentifier,
		Author:     site.Author,
	}

	var output bytes.Buffer
	if err := tmpl.Execute(&output, data); err != nil {
		return nil, fmt.Errorf("failed to execute archetype template: %w", err)
	}
	return output.Bytes(), nil
}

// Constants for default file contents
const siteYamlContent = `title: Lecture Notes
author: Your Name
email: you@example.edu
baseurl: /
description: Lecture notes, published with lectern.
template: simple
highlight:
  style: github
  lineNumbers: true
collections:
  - dir: lecture-notes
    title: Lecture Notes
`

const homeMdContent = `---
title: Home
---

# Course material

* [Lecture notes](lecture-notes/index.md)
`

const sourcesYamlContent = `# Pages of this collection, in reading order.
# pathName is the page's directory, namedIdentifier is what [text](ref:...) links use.
pages:
  - pathName: hello-world
    pageTitle: "Hello, World!"
    namedIdentifier: hello-world
`

const collectionIndexMdContent = `---
title: Lecture Notes
---

Start with [](ref:hello-world).
`

const helloWorldMdContent = "Here's the outline for this lecture:\n\n" +
	"* [Compiling](#compiling)\n\n" +
	"## Compiling\n\n" +
	"```c {filename=\"hello.c\"}\n" +
	"#include <stdio.h>\n\n" +
	"int main(void) {\n" +
	"\tprintf(\"Hello, World!\\n\");\n" +
	"}\n" +
	"```\n\n" +
	"```console\n$ gcc -o hello hello.c\n$ ./hello\nHello, World!\n```\n"

const archetypeLectureMdContent = `---
description:
---

Here's the outline for this lecture:

* [Introduction](#introduction)

## Introduction

Write the {{.Title}} notes here. Other pages can link to this one with
[](ref:{{.Identifier}}).
`

const staticCssContent = `body {
  font-family: sans-serif;
  max-width: 55rem;
  margin: 2em auto;
  padding: 0 1em;
  font-size: 1.15rem;
  line-height: 1.6;
  color: #222;
  background: #fdfdfd;
}
header { margin-bottom: 2em; }
.site-name { font-size: 0.9em; color: #777; font-style: italic; }
.author { color: #555; }
h2 { margin-top: 2.5em; }
a { color: #2563eb; }
a:visited { color: #7e22ce; }
pre { padding: 0.75em; overflow-x: auto; font-size: 0.9rem; }
img { display: block; margin: 0 auto 1.75em; max-width: 100%; }
nav.pager { display: flex; justify-content: space-between; margin: 3em 0 1em; }
footer { text-align: center; font-size: 0.9em; color: #555; }
.codeblock { position: relative; }
.codeblock pre.language-filename {
  margin: 0;
  padding: 0.25em 0.75em;
  font-size: 0.8rem;
  background: #e5e7eb;
  border-radius: 4px 4px 0 0;
}
.codeblock.has-filename pre.chroma { margin-top: 0; border-radius: 0 0 4px 4px; }
.codeblock .copy {
  position: absolute;
  right: 0.5em;
  bottom: 0.5em;
  font-size: 0.8rem;
  opacity: 0;
}
.codeblock:hover .copy { opacity: 1; }
`

const staticCodeBlockJsContent = `// Adds a copy button to every code block.
document.querySelectorAll(".codeblock").forEach(function (block) {
  var code = block.querySelector("pre.chroma, pre:not(.language-filename)");
  if (!code || !navigator.clipboard) return;
  var button = document.createElement("button");
  button.className = "copy";
  button.type = "button";
  button.textContent = "Copy";
  button.addEventListener("click", function () {
    var clone = code.cloneNode(true);
    clone.querySelectorAll(".ln, .lnt").forEach(function (n) { n.remove(); });
    navigator.clipboard.writeText(clone.textContent).then(function () {
      button.textContent = "Copied";
      setTimeout(function () { button.textContent = "Copy"; }, 1500);
    });
  });
  block.appendChild(button);
});
`

const templateLayoutHtmlContent = `{{ define "main" }}
<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>{{ .Title }}{{ with .Collection }} | {{ .Title }}{{ end }}</title>
  <link rel="stylesheet" href="{{ .BaseHref }}css/style.css">
{{ if not .Site.Highlight.Disabled }}
  <link rel="stylesheet" href="{{ .BaseHref }}css/highlight.css">
{{ end }}
  <meta name="description" content="{{ .Description }}">
</head>
<body>
  {{ template "header" . }}
  <main>
    {{ .Content }}
    {{ template "toc" . }}
  </main>
{{ if or .Prev .Next }}
  <nav class="pager">
    <span>{{ with .Prev }}<a href="{{ .Href }}">&larr; {{ .Title }}</a>{{ end }}</span>
    <span>{{ with .Next }}<a href="{{ .Href }}">{{ .Title }} &rarr;</a>{{ end }}</span>
  </nav>
{{ end }}
  {{ template "footer" . }}
  <script src="{{ .BaseHref }}js/codeblock.js"></script>
</body>
</html>
{{ end }}`

const templateHeaderHtmlContent = `{{ define "header" }}
<header>
  <div class="site-name">{{ with .Collection }}<a href="{{ .Href }}">{{ .Title }}</a>{{ else }}{{ .Site.Title }}{{ end }}</div>
  <h1>{{ .Title }}</h1>
  {{ if .Author }}<div class="author">{{ .Author }}{{ with .Site.Email }} (<a href="mailto:{{ . }}">{{ . }}</a>){{ end }}</div>{{ end }}
</header>
{{ end }}`

const templateFooterHtmlContent = `{{ define "footer" }}
<footer>
  <nav>
    <a href="{{ .BaseHref }}index.html">home</a>
  </nav>
  <div class="copyright">
    &copy; {{ .Site.Author }}
  </div>
</footer>
{{ end }}`

const templateTocHtmlContent = `{{ define "toc" }}
{{ if .Pages }}
<ol class="toc">
  {{ range .Pages }}<li><a href="{{ .Href }}">{{ .Title }}</a></li>
  {{ end }}
</ol>
{{ end }}
{{ end }}`
