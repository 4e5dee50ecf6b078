// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package epub

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/pdf2epub/pkg/types"
)

const (
	mediaXHTML = "application/xhtml+xml"
	mediaPNG   = "image/png"
	mediaCSS   = "text/css"
	mediaNCX   = "application/x-dtbncx+xml"
)

type opfPackage struct {
	XMLName          xml.Name    `xml:"package"`
	Xmlns            string      `xml:"xmlns,attr"`
	Version          string      `xml:"version,attr"`
	UniqueIdentifier string      `xml:"unique-identifier,attr"`
	Prefix           string      `xml:"prefix,attr"`
	Metadata         opfMetadata `xml:"metadata"`
	Manifest         []opfItem   `xml:"manifest>item"`
	Spine            opfSpine    `xml:"spine"`
}

type opfMetadata struct {
	XmlnsDC    string    `xml:"xmlns:dc,attr"`
	Identifier opfID     `xml:"dc:identifier"`
	Title      string    `xml:"dc:title"`
	Creator    string    `xml:"dc:creator,omitempty"`
	Language   string    `xml:"dc:language"`
	Meta       []opfMeta `xml:"meta"`
}

type opfID struct {
	ID    string `xml:"id,attr"`
	Value string `xml:",chardata"`
}

// opfMeta is either an EPUB 3 property meta or a legacy name/content meta.
type opfMeta struct {
	Property string `xml:"property,attr,omitempty"`
	Name     string `xml:"name,attr,omitempty"`
	Content  string `xml:"content,attr,omitempty"`
	Value    string `xml:",chardata"`
}

type opfItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr,omitempty"`
}

type opfSpine struct {
	Toc      string       `xml:"toc,attr"`
	ItemRefs []opfItemRef `xml:"itemref"`
}

type opfItemRef struct {
	IDRef string `xml:"idref,attr"`
}

// packageDocument builds content.opf.
func packageDocument(pages []types.PageContent, meta types.ConversionMetadata, identifier string, modified time.Time) ([]byte, error) {
	w, h := pages[0].Width, pages[0].Height

	pkg := opfPackage{
		Xmlns:            "http://www.idpf.org/2007/opf",
		Version:          "3.0",
		UniqueIdentifier: "book-id",
		Prefix:           "rendition: http://www.idpf.org/vocab/rendition/#",
		Metadata: opfMetadata{
			XmlnsDC:    "http://purl.org/dc/elements/1.1/",
			Identifier: opfID{ID: "book-id", Value: identifier},
			Title:      meta.Title,
			Creator:    meta.Author,
			Language:   meta.Language,
			Meta: []opfMeta{
				{Property: "dcterms:modified", Value: modified.UTC().Format("2006-01-02T15:04:05Z")},
				{Property: "rendition:layout", Value: meta.Rendition.Layout},
				{Property: "rendition:orientation", Value: meta.Rendition.Orientation},
				{Property: "rendition:spread", Value: meta.Rendition.Spread},
				{Property: "rendition:viewport", Value: fmt.Sprintf("width=%s, height=%s", px(w), px(h))},
				{Name: "page-count", Content: strconv.Itoa(meta.PageCount)},
			},
		},
		Manifest: []opfItem{
			{ID: "stylesheet", Href: styleFile, MediaType: mediaCSS},
			{ID: "nav", Href: navFile, MediaType: mediaXHTML, Properties: "nav"},
			{ID: "ncx", Href: ncxFile, MediaType: mediaNCX},
		},
		Spine: opfSpine{Toc: "ncx"},
	}

	for _, p := range pages {
		id := fmt.Sprintf("page%d", p.Index)
		pkg.Manifest = append(pkg.Manifest, opfItem{ID: id, Href: pageFileName(p.Index), MediaType: mediaXHTML})
		pkg.Spine.ItemRefs = append(pkg.Spine.ItemRefs, opfItemRef{IDRef: id})
	}
	for _, p := range pages {
		for i := range p.Images {
			name := types.ImageFileName(p.Index, i)
			pkg.Manifest = append(pkg.Manifest, opfItem{
				ID:        "img-" + strings.TrimSuffix(name, ".png"),
				Href:      imagesDir + "/" + name,
				MediaType: mediaPNG,
			})
		}
	}

	return marshalDocument(pkg)
}

func marshalDocument(v any) ([]byte, error) {
	out, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}

type containerDoc struct {
	XMLName   xml.Name   `xml:"container"`
	Xmlns     string     `xml:"xmlns,attr"`
	Version   string     `xml:"version,attr"`
	Rootfiles []rootfile `xml:"rootfiles>rootfile"`
}

type rootfile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// containerDocument builds META-INF/container.xml pointing at the OPF.
func containerDocument() ([]byte, error) {
	return marshalDocument(containerDoc{
		Xmlns:     "urn:oasis:names:tc:opendocument:xmlns:container",
		Version:   "1.0",
		Rootfiles: []rootfile{{FullPath: OPFPath, MediaType: "application/oebps-package+xml"}},
	})
}
