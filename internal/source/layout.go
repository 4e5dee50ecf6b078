// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"fmt"
	"math"

	"github.com/ledongthuc/pdf"
)

// matrix is a PDF transformation matrix [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns m × n, i.e. m applied first, then n.
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// unitBounds maps the unit square through m and returns its bounding box.
func (m matrix) unitBounds() (x0, y0, x1, y1 float64) {
	x0, y0 = math.Inf(1), math.Inf(1)
	x1, y1 = math.Inf(-1), math.Inf(-1)
	for _, c := range [4][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		x, y := m.apply(c[0], c[1])
		x0, y0 = math.Min(x0, x), math.Min(y0, y)
		x1, y1 = math.Max(x1, x), math.Max(y1, y)
	}
	return x0, y0, x1, y1
}

func matrixOf(v pdf.Value) matrix {
	if v.Kind() != pdf.Array || v.Len() != 6 {
		return identity
	}
	var m matrix
	for i := range m {
		m[i] = v.Index(i).Float64()
	}
	return m
}

// placement is one image XObject drawn by a Do operator. Images drawn
// inside a form are named by the form path, e.g. "Fm1.Im0".
type placement struct {
	name           string
	xobj           pdf.Value
	x0, y0, x1, y1 float64
}

// placementWalker tracks the current transformation matrix through a
// content stream and records where each image XObject lands.
type placementWalker struct {
	out []placement
}

func (w *placementWalker) walk(resources, contents pdf.Value, ctm matrix, depth int, prefix string) {
	var saved []matrix
	do := func(stk *pdf.Stack, op string) {
		n := stk.Len()
		args := make([]pdf.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}

		switch op {
		case "q":
			saved = append(saved, ctm)
		case "Q":
			if len(saved) > 0 {
				ctm = saved[len(saved)-1]
				saved = saved[:len(saved)-1]
			}
		case "cm":
			if len(args) != 6 {
				return
			}
			var m matrix
			for i := range m {
				m[i] = args[i].Float64()
			}
			ctm = m.mul(ctm)
		case "Do":
			if len(args) != 1 {
				return
			}
			name := args[0].Name()
			xobj := resources.Key("XObject").Key(name)
			if prefix != "" {
				name = prefix + "." + name
			}
			switch xobj.Key("Subtype").Name() {
			case "Image":
				x0, y0, x1, y1 := ctm.unitBounds()
				w.out = append(w.out, placement{name: name, xobj: xobj, x0: x0, y0: y0, x1: x1, y1: y1})
			case "Form":
				if depth >= maxTreeDepth {
					return
				}
				formRes := xobj.Key("Resources")
				if formRes.IsNull() {
					formRes = resources
				}
				w.walk(formRes, xobj, matrixOf(xobj.Key("Matrix")).mul(ctm), depth+1, name)
			}
		}
	}

	if contents.Kind() == pdf.Array {
		for i := 0; i < contents.Len(); i++ {
			pdf.Interpret(contents.Index(i), do)
		}
		return
	}
	pdf.Interpret(contents, do)
}

// placements returns the image XObjects drawn on p in content-stream order.
func placements(p pdf.Page) (out []placement, err error) {
	var w placementWalker
	defer func() {
		if r := recover(); r != nil {
			out = w.out
			err = fmt.Errorf("walking content stream: %v", r)
		}
	}()

	contents := p.V.Key("Contents")
	if contents.IsNull() {
		return nil, nil
	}
	w.walk(p.Resources(), contents, identity, 0, "")
	return w.out, nil
}
