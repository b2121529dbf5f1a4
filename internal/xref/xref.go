// Package xref turns logical page references into links, relative to the
// collection a page lives in.
package xref

import (
	"fmt"
	"strings"

	"lectern/internal/registry"
)

// Scheme prefixes link destinations that name a page by identifier,
// e.g. [see pointers](ref:pointers#null).
const Scheme = "ref:"

// Link is a resolved reference.
type Link struct {
	Href  string
	Title string
}

// Resolver resolves references for pages under one parent path.
type Resolver struct {
	reg    *registry.Registry
	parent string
}

// NewResolver binds reg to the parent path of the pages that will use it.
func NewResolver(reg *registry.Registry, parentPath string) *Resolver {
	return &Resolver{reg: reg, parent: strings.TrimSuffix(parentPath, "/")}
}

// IsRef reports whether dest uses the ref: scheme.
func IsRef(dest string) bool {
	return strings.HasPrefix(dest, Scheme)
}

// Link resolves a bare identifier.
func (r *Resolver) Link(identifier string) (Link, error) {
	e, err := r.reg.Resolve(identifier)
	if err != nil {
		return Link{}, fmt.Errorf("broken cross-reference: %w", err)
	}
	return Link{Href: r.parent + "/" + e.PathName, Title: e.PageTitle}, nil
}

// Ref resolves a reference of the form "[ref:]identifier[#fragment]".
func (r *Resolver) Ref(target string) (Link, error) {
	target = strings.TrimPrefix(target, Scheme)
	id, fragment, hasFragment := strings.Cut(target, "#")
	if id == "" {
		return Link{}, fmt.Errorf("broken cross-reference %q: missing identifier", target)
	}
	l, err := r.Link(id)
	if err != nil {
		return Link{}, err
	}
	if hasFragment && fragment != "" {
		l.Href += "#" + fragment
	}
	return l, nil
}

// Page is the reverse direction: the identifier and title of a path name.
func (r *Resolver) Page(pathName string) (registry.PathEntry, error) {
	e, err := r.reg.Lookup(pathName)
	if err != nil {
		return registry.PathEntry{}, fmt.Errorf("unregistered page: %w", err)
	}
	return e, nil
}

// Parent is the collection path links are built under.
func (r *Resolver) Parent() string { return r.parent }
