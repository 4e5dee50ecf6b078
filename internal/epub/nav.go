// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package epub

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/pdf2epub/pkg/types"
)

type ncxDoc struct {
	XMLName  xml.Name    `xml:"ncx"`
	Xmlns    string      `xml:"xmlns,attr"`
	Version  string      `xml:"version,attr"`
	Head     []ncxMeta   `xml:"head>meta"`
	DocTitle string      `xml:"docTitle>text"`
	NavMap   []ncxNavPtr `xml:"navMap>navPoint"`
}

type ncxMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type ncxNavPtr struct {
	ID        string `xml:"id,attr"`
	PlayOrder int    `xml:"playOrder,attr"`
	Label     string `xml:"navLabel>text"`
	Content   struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
}

// ncxDocument builds the legacy toc.ncx with one nav point per page.
func ncxDocument(pages []types.PageContent, meta types.ConversionMetadata, identifier string) ([]byte, error) {
	last := strconv.Itoa(pages[len(pages)-1].Index)
	doc := ncxDoc{
		Xmlns:   "http://www.daisy.org/z3986/2005/ncx/",
		Version: "2005-1",
		Head: []ncxMeta{
			{Name: "dtb:uid", Content: identifier},
			{Name: "dtb:depth", Content: "1"},
			{Name: "dtb:totalPageCount", Content: strconv.Itoa(len(pages))},
			{Name: "dtb:maxPageNumber", Content: last},
		},
		DocTitle: meta.Title,
	}
	for i, p := range pages {
		np := ncxNavPtr{
			ID:        fmt.Sprintf("navpoint-%d", p.Index),
			PlayOrder: i + 1,
			Label:     fmt.Sprintf("Page %d", p.Index),
		}
		np.Content.Src = pageFileName(p.Index)
		doc.NavMap = append(doc.NavMap, np)
	}
	return marshalDocument(doc)
}

// navDocument builds the EPUB 3 navigation document listing every page.
func navDocument(pages []types.PageContent, meta types.ConversionMetadata) []byte {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString("<!DOCTYPE html>\n")
	b.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">` + "\n")
	b.WriteString("<head>\n<meta charset=\"utf-8\"/>\n<title>")
	xml.EscapeText(&b, []byte(meta.Title))
	b.WriteString("</title>\n")
	b.WriteString(`<link rel="stylesheet" type="text/css" href="styles.css"/>` + "\n")
	b.WriteString("</head>\n<body>\n")
	b.WriteString(`<nav epub:type="toc" id="toc">` + "\n<h1>Contents</h1>\n<ol>\n")
	for _, p := range pages {
		fmt.Fprintf(&b, "<li><a href=\"%s\">Page %d</a></li>\n", pageFileName(p.Index), p.Index)
	}
	b.WriteString("</ol>\n</nav>\n")
	b.WriteString(`<nav epub:type="page-list" id="page-list" hidden="hidden">` + "\n<ol>\n")
	for _, p := range pages {
		fmt.Fprintf(&b, "<li><a href=\"%s\">%d</a></li>\n", pageFileName(p.Index), p.Index)
	}
	b.WriteString("</ol>\n</nav>\n</body>\n</html>\n")
	return []byte(b.String())
}

const stylesheet = `/* Fixed-layout pages: every frame is absolutely positioned. */

* {
    margin: 0;
    padding: 0;
    box-sizing: border-box;
}

html, body {
    margin: 0;
    padding: 0;
    overflow: hidden;
}

body {
    position: relative;
    background-color: #ffffff;
}

.Basic-Graphics-Frame {
    overflow: hidden;
}

.Basic-Graphics-Frame img {
    display: block;
    width: 100%;
    height: 100%;
}

.Basic-Text-Frame p {
    margin: 0;
    line-height: 1;
}

.Basic-Text-Frame span {
    white-space: nowrap;
    color: #000000;
}
`
