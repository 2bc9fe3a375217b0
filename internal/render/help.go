package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

const helpMarkdown = `# pneo

Search INSPIRE as you type and open arXiv preprints.

| Key | Action |
|---|---|
| type | edit the query, searched after a short pause |
| ← → home end | move the cursor (ctrl+a / ctrl+e) |
| ctrl+u | clear the query |
| ↑ ↓ pgup pgdn | move the selection |
| enter / double click | download and open the selected preprint |
| ctrl+y | copy the arXiv id of the selection |
| ctrl+r | redraw the screen |
| f1 | toggle this help |
| esc | close a dialog, or quit |

A ✓ marks preprints already in your library.
`

var (
	helpMu    sync.Mutex
	helpCache = map[int]string{}
)

// helpText renders the key reference wrapped at width. Renders are cached
// per width; plain markdown is used if glamour fails.
func helpText(width int) string {
	helpMu.Lock()
	defer helpMu.Unlock()
	if out, ok := helpCache[width]; ok {
		return out
	}
	out := helpMarkdown
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		if rendered, err := r.Render(helpMarkdown); err == nil {
			out = rendered
		}
	}
	out = strings.Trim(out, "\n")
	helpCache[width] = out
	return out
}
