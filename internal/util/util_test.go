package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeBaseHref(t *testing.T) {
	assert.Equal(t, "", ComputeBaseHref("index.html"))
	assert.Equal(t, "../", ComputeBaseHref("about/index.html"))
	assert.Equal(t, "../../../", ComputeBaseHref("cs-274/lecture-notes/pointers/index.html"))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "hello-world", Slugify("Hello, World!"))
	assert.Equal(t, "c-in-context", Slugify("  C in   Context "))
	assert.Equal(t, "pod-types", Slugify("POD -- types"))
	assert.Equal(t, "", Slugify("!!!"))
}

func TestTitleFromSlug(t *testing.T) {
	assert.Equal(t, "Dynamic Memory", TitleFromSlug("dynamic-memory"))
	assert.Equal(t, "Vim", TitleFromSlug("vim"))
}
