package dashboard

import (
	"bytes"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
)

// newMarkdown renders assistant replies. Raw HTML in replies is escaped.
func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
			),
		),
	)
}

func (d *Dashboard) render(content string) string {
	var buf bytes.Buffer
	if err := d.md.Convert([]byte(content), &buf); err != nil {
		return ""
	}
	return buf.String()
}
