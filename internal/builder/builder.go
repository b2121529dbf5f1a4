// internal/builder/builder.go
package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"lectern/internal/config"
	"lectern/internal/ctxlog"
	"lectern/internal/pathres"
	"lectern/internal/registry"
	"lectern/internal/util"
	"lectern/internal/xref"
)

type BuildOptions struct {
	CleanDestination bool
	Unsafe           bool
	Debug            bool
	// DryRun renders every page, so broken references still fail, but
	// writes nothing.
	DryRun bool
}

// site is the state shared by all page renders of one build. It is
// read-only once rendering starts.
type site struct {
	cfg         config.SiteConfig
	tmpl        *template.Template
	render      *renderer
	outputDir   string
	opts        BuildOptions
	collections []*collection
	pages       []*sourcePage
}

// BuildSite loads the page registries, processes content files, renders them
// into HTML pages, and copies static assets. It returns the number of pages
// written (collection index pages included).
func BuildSite(ctx context.Context, outputDir, contentDir, staticDir string, siteCfg config.SiteConfig, tmpl *template.Template, opts BuildOptions) (int, error) {
	log := ctxlog.FromContext(ctx)

	if !opts.DryRun {
		if err := prepareOutput(ctx, outputDir, opts.CleanDestination); err != nil {
			return 0, err
		}
	}

	s := &site{
		cfg:       siteCfg,
		tmpl:      tmpl,
		render:    newRenderer(siteCfg.Highlight, opts.Unsafe),
		outputDir: outputDir,
		opts:      opts,
	}
	if err := s.loadCollections(contentDir); err != nil {
		return 0, err
	}
	if err := s.collectPages(ctx, contentDir); err != nil {
		return 0, err
	}
	s.publish(ctx)

	var written atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, p := range s.pages {
		p := p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := s.renderContentPage(p); err != nil {
				return fmt.Errorf("failed to render page %s: %w", p.srcPath, err)
			}
			written.Add(1)
			return nil
		})
	}
	for _, c := range s.collections {
		c := c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := s.renderIndexPage(c); err != nil {
				return fmt.Errorf("failed to render index of collection %s: %w", c.cfg.Dir, err)
			}
			written.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	if opts.DryRun {
		log.Debug("dry run, skipping assets")
		return int(written.Load()), nil
	}
	if err := copyAssets(staticDir, outputDir); err != nil {
		return 0, fmt.Errorf("failed to copy static assets: %w", err)
	}
	if err := copyAssets(contentDir, outputDir); err != nil {
		return 0, fmt.Errorf("failed to copy page assets: %w", err)
	}
	if !siteCfg.Highlight.Disabled {
		if err := writeHighlightCSS(filepath.Join(outputDir, "css", "highlight.css"), siteCfg.Highlight.Style); err != nil {
			return 0, err
		}
	}
	return int(written.Load()), nil
}

func prepareOutput(ctx context.Context, outputDir string, clean bool) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	if !clean {
		return nil
	}
	ctxlog.FromContext(ctx).Info("cleaning destination directory", "dir", outputDir)
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(outputDir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// loadCollections reads every collection's registry before any page is
// looked at.
func (s *site) loadCollections(contentDir string) error {
	for _, c := range s.cfg.Collections {
		reg, err := registry.Load(c.SourcesPath(contentDir))
		if err != nil {
			return fmt.Errorf("collection %s: %w", c.Dir, err)
		}
		root, err := pathres.Root(c.Dir, c.Root)
		if err != nil {
			return fmt.Errorf("collection %s: %w", c.Dir, err)
		}
		// Output mirrors the content tree, so URLs must too.
		if root != "/"+c.Dir {
			return fmt.Errorf("collection %s: URL path %s does not match its directory", c.Dir, root)
		}
		s.collections = append(s.collections, &collection{
			cfg:        c,
			path:       root,
			sources:    c.SourcesPath(contentDir),
			registered: reg,
			pages:      make(map[string]*sourcePage),
		})
	}
	return nil
}

func (s *site) collection(dir string) *collection {
	for _, c := range s.collections {
		if c.cfg.Dir == dir {
			return c
		}
	}
	return nil
}

// collectPages walks the content tree, splits front matter, and places every
// page in its collection.
func (s *site) collectPages(ctx context.Context, contentDir string) error {
	log := ctxlog.FromContext(ctx)
	byLocation := make(map[string]string)

	return filepath.WalkDir(contentDir, func(srcPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(d.Name())
		if ext != ".html" && ext != ".md" {
			return nil
		}

		contentBytes, err := os.ReadFile(srcPath)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", srcPath, err)
		}
		if !utf8.Valid(contentBytes) {
			return fmt.Errorf("content file is not valid UTF-8: %s", srcPath)
		}
		meta, body, err := splitFrontMatter(contentBytes)
		if err != nil {
			return fmt.Errorf("failed to process content for %s: %w", srcPath, err)
		}

		relPath, err := filepath.Rel(contentDir, srcPath)
		if err != nil {
			return err
		}
		p := &sourcePage{
			srcPath:  srcPath,
			srcDir:   path.Dir(filepath.ToSlash(relPath)),
			location: pageLocation(filepath.ToSlash(relPath), meta.Location),
			meta:     meta,
			body:     body,
		}
		if prev, ok := byLocation[p.location]; ok {
			return fmt.Errorf("pages %s and %s both render to /%s", prev, srcPath, p.location)
		}
		byLocation[p.location] = srcPath

		if err := s.place(p); err != nil {
			return fmt.Errorf("page %s: %w", srcPath, err)
		}
		if p.coll != nil && p.coll.intro == p {
			// Rendered as part of the collection index.
			return nil
		}
		if meta.Draft && !s.isExceptionPage(p) {
			log.Debug("skipping draft", "page", srcPath)
			return nil
		}
		s.pages = append(s.pages, p)
		return nil
	})
}

// pageLocation is the page's place in the page tree: the declared location
// if any, otherwise the source path without extension, with "index" files
// standing for their directory.
func pageLocation(relPath, declared string) string {
	if declared != "" {
		return strings.Trim(path.Clean("/"+declared), "/")
	}
	loc := strings.TrimSuffix(relPath, path.Ext(relPath))
	if path.Base(loc) == "index" {
		loc = path.Dir(loc)
	}
	if loc == "." {
		return ""
	}
	return loc
}

// place resolves the page's identity within its collection, if it has one.
func (s *site) place(p *sourcePage) error {
	cc, ok := s.cfg.CollectionFor(p.location)
	if !ok {
		return nil
	}
	c := s.collection(cc.Dir)
	p.coll = c

	if p.location == c.cfg.Dir {
		c.intro = p
		return nil
	}

	if path.Dir(p.location) != c.cfg.Dir {
		return fmt.Errorf("location %s is nested below collection %s; declare a collection for %s", p.location, c.cfg.Dir, path.Dir(p.location))
	}
	loc, err := pathres.Resolve(p.location, c.cfg.Root)
	if err != nil {
		return err
	}
	if loc.Parent != c.path {
		return fmt.Errorf("location %s resolves under %s, not %s", p.location, loc.Parent, c.path)
	}
	if _, err := c.registered.Lookup(loc.Own); err != nil {
		return fmt.Errorf("no entry in %s: %w", c.sources, err)
	}
	p.loc = loc
	if !p.meta.Draft {
		c.pages[loc.Own] = p
	}
	return nil
}

// isExceptionPage checks for pages that should not be considered drafts.
func (s *site) isExceptionPage(p *sourcePage) bool {
	return p.location == "" || p.location == "about"
}

// publish derives each collection's published registry: only records that
// have a page in this build can be linked to.
func (s *site) publish(ctx context.Context) {
	log := ctxlog.FromContext(ctx)
	for _, c := range s.collections {
		c.published = c.registered.Filter(func(rec registry.PageRecord) bool {
			if _, ok := c.pages[rec.PathName]; ok {
				return true
			}
			log.Warn("registered page has no published source", "collection", c.cfg.Dir, "pathName", rec.PathName)
			return false
		})
	}
}

func (s *site) renderContentPage(p *sourcePage) error {
	body := p.body
	if p.meta.EditML {
		clean, err := cleanEditML(body)
		if err != nil {
			return err
		}
		body = clean
	}

	data := s.basePageData(p.location, p.meta)
	var resolver *xref.Resolver
	if c := p.coll; c != nil {
		resolver = xref.NewResolver(c.published, c.path)
		entry, err := resolver.Page(p.loc.Own)
		if err != nil {
			return err
		}
		prev, next, err := c.published.Neighbors(p.loc.Own)
		if err != nil {
			return err
		}
		data.Title = entry.PageTitle
		data.Path = p.loc.Path()
		data.Collection = &NavLink{Title: c.cfg.Title, Href: c.path}
		data.Prev = navLink(c.path, prev)
		data.Next = navLink(c.path, next)
	}

	htmlOut, err := s.render.render(body, resolver, pageDirs{src: p.srcDir, out: p.location})
	if err != nil {
		return err
	}
	data.Content = template.HTML(htmlOut)
	return s.writePage(p.location, data)
}

// renderIndexPage renders a collection's table of contents in registry order,
// preceded by the collection's intro page, if there is one.
func (s *site) renderIndexPage(c *collection) error {
	meta := PageMeta{Title: c.cfg.Title}
	if c.intro != nil {
		meta = c.intro.meta
		if meta.Title == "" {
			meta.Title = c.cfg.Title
		}
	}
	data := s.basePageData(c.cfg.Dir, meta)
	data.Path = c.path
	data.Collection = &NavLink{Title: c.cfg.Title, Href: c.path}

	if c.intro != nil {
		body := c.intro.body
		if meta.EditML {
			clean, err := cleanEditML(body)
			if err != nil {
				return err
			}
			body = clean
		}
		dirs := pageDirs{src: c.intro.srcDir, out: c.cfg.Dir}
		htmlOut, err := s.render.render(body, xref.NewResolver(c.published, c.path), dirs)
		if err != nil {
			return fmt.Errorf("intro %s: %w", c.intro.srcPath, err)
		}
		data.Content = template.HTML(htmlOut)
	}

	for _, rec := range c.published.Records() {
		data.Pages = append(data.Pages, NavLink{Title: rec.PageTitle, Href: c.path + "/" + rec.PathName})
	}
	return s.writePage(c.cfg.Dir, data)
}

func (s *site) basePageData(location string, meta PageMeta) PageData {
	data := PageData{
		Title:       meta.Title,
		BaseHref:    util.ComputeBaseHref(outputRel(location)),
		Path:        "/" + location,
		Author:      meta.Author,
		Description: meta.Description,
		Site:        s.cfg,
		Params:      meta.Params,
	}
	if data.Author == "" {
		data.Author = s.cfg.Author
	}
	if data.Description == "" {
		data.Description = s.cfg.Description
	}
	return data
}

func navLink(parent string, rec *registry.PageRecord) *NavLink {
	if rec == nil {
		return nil
	}
	return &NavLink{Title: rec.PageTitle, Href: parent + "/" + rec.PathName}
}

// outputRel is the output file of a location, in slash form.
func outputRel(location string) string {
	return path.Join(location, "index.html")
}

// writePage executes the layout and writes the result, unless this is a dry run.
func (s *site) writePage(location string, data PageData) error {
	var buf bytes.Buffer
	// "main" is the name of the template defined within our layout file.
	if err := s.tmpl.ExecuteTemplate(&buf, "main", data); err != nil {
		return err
	}
	if s.opts.DryRun {
		return nil
	}
	outPath := filepath.Join(s.outputDir, filepath.FromSlash(outputRel(location)))
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(outPath, buf.Bytes(), 0644)
}

// LoadTemplates parses all necessary template files from a given theme directory.
func LoadTemplates(templateDir, templateName string) (*template.Template, error) {
	dir := filepath.Join(templateDir, templateName)
	// A theme is a layout defining "main" plus the partials it calls.
	tmpl, err := template.ParseFiles(
		filepath.Join(dir, "layout.html"),
		filepath.Join(dir, "header.html"),
		filepath.Join(dir, "footer.html"),
		filepath.Join(dir, "toc.html"),
	)
	if err != nil {
		return nil, err
	}
	if tmpl.Lookup("main") == nil {
		return nil, errors.New("theme " + templateName + " does not define a \"main\" template")
	}
	return tmpl, nil
}
