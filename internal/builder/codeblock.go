// internal/builder/codeblock.go
package builder

import (
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/util"
)

// fileNameAttr names the source file a code block shows, set in the fence:
//
//	```c {filename="hello.c" hl_lines=[4]}
var fileNameAttr = []byte("filename")

// codeBlockWrapper wraps every fenced code block in a div.codeblock, which
// the theme's copy button attaches to, and puts the file name caption above
// the code when the fence carries one.
func codeBlockWrapper(w util.BufWriter, c highlighting.CodeBlockContext, entering bool) {
	if !entering {
		if !c.Highlighted() {
			_, _ = w.WriteString("</code></pre>\n")
		}
		_, _ = w.WriteString("</div>\n")
		return
	}

	if name := codeFileName(c); name != nil {
		_, _ = w.WriteString(`<div class="codeblock has-filename">` + "\n")
		_, _ = w.WriteString(`<pre class="language-filename"><code>`)
		_, _ = w.Write(util.EscapeHTML(name))
		_, _ = w.WriteString("</code></pre>\n")
	} else {
		_, _ = w.WriteString(`<div class="codeblock">` + "\n")
	}

	// Chroma writes its own <pre> for highlighted blocks.
	if c.Highlighted() {
		return
	}
	_, _ = w.WriteString("<pre><code")
	if lang, ok := c.Language(); ok {
		_, _ = w.WriteString(` class="language-`)
		_, _ = w.Write(util.EscapeHTML(lang))
		_ = w.WriteByte('"')
	}
	_ = w.WriteByte('>')
}

func codeFileName(c highlighting.CodeBlockContext) []byte {
	attrs := c.Attributes()
	if attrs == nil {
		return nil
	}
	v, ok := attrs.Get(fileNameAttr)
	if !ok {
		return nil
	}
	switch name := v.(type) {
	case []byte:
		if len(name) > 0 {
			return name
		}
	case string:
		if name != "" {
			return []byte(name)
		}
	}
	return nil
}
