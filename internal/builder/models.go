// internal/builder/models.go
package builder

import (
	"html/template"

	"lectern/internal/config"
	"lectern/internal/pathres"
	"lectern/internal/registry"
)

// PageMeta holds metadata from front matter. Unknown keys land in Params.
type PageMeta struct {
	Title       string `yaml:"title"`
	Author      string `yaml:"author"` // Per-page author (fallback)
	Draft       bool   `yaml:"draft"`
	Description string `yaml:"description"`
	// Location overrides the page's place in the page tree, slash form
	// relative to the content root.
	Location string                 `yaml:"location"`
	EditML   bool                   `yaml:"editml"`
	Params   map[string]interface{} `yaml:",inline"`
}

// NavLink is a titled link used for navigation and the table of contents.
type NavLink struct {
	Title string
	Href  string
}

// PageData is the struct passed to templates.
type PageData struct {
	Content     template.HTML
	Title       string
	BaseHref    string
	Path        string // the page's own URL path
	Author      string
	Description string
	Site        config.SiteConfig
	Collection  *NavLink // the enclosing collection, nil outside collections
	Prev        *NavLink
	Next        *NavLink
	Pages       []NavLink // table of contents, set on collection index pages
	Params      map[string]interface{}
}

// sourcePage is a content file after front matter has been split off.
type sourcePage struct {
	srcPath  string
	srcDir   string // directory of srcPath, slash form, relative to the content root
	location string // slash form, relative to the content root
	meta     PageMeta
	body     []byte
	coll     *collection
	loc      pathres.Location
}

// collection is a configured collection with its loaded registries.
type collection struct {
	cfg     config.Collection
	path    string // URL path of the collection index
	sources string // registry file
	// registered is everything in the sources file; published only the
	// records that have a non-draft page in this build.
	registered *registry.Registry
	published  *registry.Registry
	intro      *sourcePage
	pages      map[string]*sourcePage // by path name
}
