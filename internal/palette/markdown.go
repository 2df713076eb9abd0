package palette

import (
	"github.com/charmbracelet/glamour"
)

// noMarginStyle inherits from auto (dark/light detection) but removes
// document margins so rendered text lines up with the rest of the view.
const noMarginStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

// renderMarkdown transforms markdown to styled terminal output, falling
// back to the raw text when the renderer cannot be built.
func renderMarkdown(markdown string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithStylesFromJSONBytes([]byte(noMarginStyle)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}
