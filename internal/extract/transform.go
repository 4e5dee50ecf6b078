// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"math"

	"github.com/pdiddy/pdf2epub/pkg/types"
)

// transform maps source coordinates (bottom-left origin, y up) to target
// coordinates (top-left origin, y down) for one page.
type transform struct {
	height           float64
	originX, originY float64
	scale            float64
}

func newTransform(height, originX, originY, scale float64) transform {
	return transform{height: height, originX: originX, originY: originY, scale: scale}
}

func (t transform) x(v float64) float64 {
	return (v - t.originX) * t.scale
}

func (t transform) y(v float64) float64 {
	return (t.height - (v - t.originY)) * t.scale
}

func (t transform) length(v float64) float64 {
	return v * t.scale
}

// box maps a source rectangle given by two opposite corners.
func (t transform) box(x0, y0, x1, y1 float64) types.BBox {
	return types.BBox{
		Left:   t.x(math.Min(x0, x1)),
		Top:    t.y(math.Max(y0, y1)),
		Right:  t.x(math.Max(x0, x1)),
		Bottom: t.y(math.Min(y0, y1)),
	}
}
