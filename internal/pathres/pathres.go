// Package pathres derives a page's own path segment and its parent
// collection path from the page's location in the page tree.
package pathres

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedLocation is returned when a location cannot be resolved
// against its root marker.
var ErrMalformedLocation = errors.New("malformed page location")

// Location is the resolved identity of a page.
type Location struct {
	Own    string // last path component, the page's path name
	Parent string // "/" + components from the root marker to the parent
}

// Path is the page's own URL path.
func (l Location) Path() string {
	return l.Parent + "/" + l.Own
}

// Resolve splits location into the page's own segment and the path of its
// parent collection. The parent path starts at the last occurrence of
// rootMarker above the page:
//
//	Resolve("/srv/site/lecture-notes/pointers/", "lecture-notes")
//	  => {Own: "pointers", Parent: "/lecture-notes"}
func Resolve(location, rootMarker string) (Location, error) {
	segs, err := split(location, rootMarker)
	if err != nil {
		return Location{}, err
	}
	if len(segs) < 2 {
		return Location{}, fmt.Errorf("%w: %q has no parent for marker %q", ErrMalformedLocation, location, rootMarker)
	}
	parent := segs[:len(segs)-1]
	i := lastIndex(parent, rootMarker)
	if i < 0 {
		return Location{}, fmt.Errorf("%w: %q is not below %q", ErrMalformedLocation, location, rootMarker)
	}
	return Location{
		Own:    segs[len(segs)-1],
		Parent: "/" + strings.Join(parent[i:], "/"),
	}, nil
}

// Root returns the URL path of the collection at location itself, that is
// "/" + the components from the last rootMarker to the end.
func Root(location, rootMarker string) (string, error) {
	segs, err := split(location, rootMarker)
	if err != nil {
		return "", err
	}
	i := lastIndex(segs, rootMarker)
	if i < 0 {
		return "", fmt.Errorf("%w: %q does not contain %q", ErrMalformedLocation, location, rootMarker)
	}
	return "/" + strings.Join(segs[i:], "/"), nil
}

func split(location, rootMarker string) ([]string, error) {
	if rootMarker == "" || strings.ContainsAny(rootMarker, `/\`) || rootMarker == "." || rootMarker == ".." {
		return nil, fmt.Errorf("%w: invalid root marker %q", ErrMalformedLocation, rootMarker)
	}
	var segs []string
	for _, s := range strings.Split(strings.ReplaceAll(location, `\`, "/"), "/") {
		switch s {
		case "", ".":
			continue
		case "..":
			return nil, fmt.Errorf("%w: %q climbs out of the page tree", ErrMalformedLocation, location)
		}
		segs = append(segs, s)
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: empty location", ErrMalformedLocation)
	}
	return segs, nil
}

func lastIndex(segs []string, marker string) int {
	for i := len(segs) - 1; i >= 0; i-- {
		if segs[i] == marker {
			return i
		}
	}
	return -1
}
