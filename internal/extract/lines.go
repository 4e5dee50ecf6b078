// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"math"
	"sort"
	"strings"

	"github.com/pdiddy/pdf2epub/internal/source"
	"github.com/pdiddy/pdf2epub/pkg/types"
)

// baselineKey buckets a baseline to one decimal place.
func baselineKey(y float64) int64 {
	return int64(math.Round(y * 10))
}

type line struct {
	key    int64
	glyphs []source.Glyph
}

// groupLines merges glyphs sharing a rounded baseline into text runs.
// Runs are ordered top to bottom; glyphs within a run left to right.
// Lines holding only whitespace are dropped.
func groupLines(glyphs []source.Glyph, t transform) []types.TextRun {
	byKey := make(map[int64]*line)
	var lines []*line
	for _, g := range glyphs {
		k := baselineKey(g.Y0)
		l, ok := byKey[k]
		if !ok {
			l = &line{key: k}
			byKey[k] = l
			lines = append(lines, l)
		}
		l.glyphs = append(l.glyphs, g)
	}

	sort.SliceStable(lines, func(i, j int) bool { return lines[i].key > lines[j].key })

	runs := make([]types.TextRun, 0, len(lines))
	for _, l := range lines {
		sort.SliceStable(l.glyphs, func(i, j int) bool { return l.glyphs[i].X0 < l.glyphs[j].X0 })

		first := l.glyphs[0]
		box := t.box(first.X0, first.Y0, first.X1, first.Y1)
		var text strings.Builder
		for _, g := range l.glyphs {
			text.WriteString(g.Char)
			box = box.Union(t.box(g.X0, g.Y0, g.X1, g.Y1))
		}
		if strings.TrimSpace(text.String()) == "" {
			continue
		}

		runs = append(runs, types.TextRun{
			Text:       text.String(),
			Box:        box,
			FontSize:   t.length(first.Size),
			LineHeight: box.Bottom - box.Top,
			Weight:     weightOf(first.Face),
			Slanted:    slantOf(first.Face, first.Upright),
			Face:       faceOrUnknown(first.Face),
		})
	}
	return runs
}
