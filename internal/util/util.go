package util

import (
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9\- ]+`)
	dashRuns     = regexp.MustCompile(`-+`)
	titleCaser   = cases.Title(language.English)
)

// ComputeBaseHref calculates the relative path to the site root
// so that CSS/JS links work correctly for pages at any depth.
// relPath is the output file in slash form; "a/b/index.html" gets "../../".
func ComputeBaseHref(relPath string) string {
	dir := path.Dir(relPath)
	if dir == "." || dir == "/" {
		return ""
	}
	depth := strings.Count(strings.Trim(dir, "/"), "/") + 1
	return strings.Repeat("../", depth)
}

// Slugify lower-cases s and reduces it to letters, digits and single dashes,
// the alphabet used for path names.
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = nonSlugChars.ReplaceAllString(s, "")
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "-")
	s = dashRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// TitleFromSlug turns "string-input-and-manipulation" into
// "String Input And Manipulation".
func TitleFromSlug(slug string) string {
	return titleCaser.String(strings.ReplaceAll(slug, "-", " "))
}
