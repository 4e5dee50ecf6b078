// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package epub

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/pdf2epub/pkg/types"
)

// px formats a length with exactly one fractional digit.
func px(v float64) string {
	s := strconv.FormatFloat(v, 'f', 1, 64)
	if s == "-0.0" {
		return "0.0"
	}
	return s
}

func pageFileName(index int) string {
	return fmt.Sprintf("page%03d.xhtml", index)
}

// spanStyle is the inline style of a text run's span.
func spanStyle(r types.TextRun, family string) string {
	parts := []string{
		"font-size:" + px(r.FontSize) + "px",
		"line-height:" + px(r.LineHeight) + "px",
		"font-family:" + family,
		"font-weight:" + strconv.Itoa(int(r.Weight)),
	}
	if r.Slanted {
		parts = append(parts, "font-style:italic")
	}
	return strings.Join(parts, ";")
}

func escapeAttr(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}

// renderPage writes the XHTML document of one fixed-layout page. Images are
// emitted before text so text paints on top.
func renderPage(p types.PageContent, family string) []byte {
	w, h := px(p.Width), px(p.Height)

	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString("<!DOCTYPE html>\n")
	b.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">` + "\n")
	b.WriteString("<head>\n")
	b.WriteString(`<meta charset="utf-8"/>` + "\n")
	fmt.Fprintf(&b, `<meta name="viewport" content="width=%s, height=%s"/>`+"\n", w, h)
	fmt.Fprintf(&b, "<title>Page %d</title>\n", p.Index)
	b.WriteString(`<link rel="stylesheet" type="text/css" href="styles.css"/>` + "\n")
	b.WriteString("</head>\n")
	fmt.Fprintf(&b, `<body style="width:%spx;height:%spx">`+"\n", w, h)

	for i, img := range p.Images {
		fmt.Fprintf(&b,
			`<div class="Basic-Graphics-Frame" style="position:absolute;left:%spx;top:%spx;width:%spx;height:%spx">`+
				`<img src="%s" alt=""/></div>`+"\n",
			px(img.Box.Left), px(img.Box.Top), px(img.Box.Width()), px(img.Box.Height()),
			imagesDir+"/"+types.ImageFileName(p.Index, i))
	}

	for _, r := range p.Runs {
		fmt.Fprintf(&b,
			`<div class="Basic-Text-Frame" style="position:absolute;left:%spx;top:%spx"><p><span style="%s">`,
			px(r.Box.Left), px(r.Box.Top), escapeAttr(spanStyle(r, family)))
		xml.EscapeText(&b, []byte(r.Text))
		b.WriteString("</span></p></div>\n")
	}

	b.WriteString("</body>\n</html>\n")
	return []byte(b.String())
}
