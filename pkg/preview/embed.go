package preview

import (
	"embed"
	"io/fs"
)

//go:embed templates
var templateFS embed.FS

// embeddedTemplates returns the built-in preview templates rooted at the
// template names (form.html, not templates/form.html).
func embeddedTemplates() fs.FS {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		// The embedded tree always contains templates/; this only fires on a
		// broken build.
		panic(err)
	}
	return sub
}
