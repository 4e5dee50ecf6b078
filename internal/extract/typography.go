// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"strings"

	"github.com/pdiddy/pdf2epub/pkg/types"
)

// weightRules is evaluated in order; the first rule with a keyword
// contained in the face name wins. Compound keywords precede the shorter
// keywords they contain.
var weightRules = []struct {
	keywords []string
	weight   types.Weight
}{
	{[]string{"thin"}, types.WeightThin},
	{[]string{"extralight"}, types.WeightExtraLight},
	{[]string{"light"}, types.WeightLight},
	{[]string{"regular", "normal"}, types.WeightRegular},
	{[]string{"medium"}, types.WeightMedium},
	{[]string{"semibold", "demibold"}, types.WeightSemiBold},
	{[]string{"extrabold"}, types.WeightExtraBold},
	{[]string{"bold"}, types.WeightBold},
	{[]string{"heavy", "black"}, types.WeightHeavy},
}

var slantKeywords = []string{"italic", "oblique", "slant"}

// weightOf classifies a face name on the 100..900 scale.
func weightOf(face string) types.Weight {
	name := strings.ToLower(face)
	for _, rule := range weightRules {
		for _, kw := range rule.keywords {
			if strings.Contains(name, kw) {
				return rule.weight
			}
		}
	}
	return types.WeightRegular
}

// slantOf reports whether a face is italic or oblique. The face name takes
// precedence over the font descriptor's upright flag.
func slantOf(face string, upright *bool) bool {
	name := strings.ToLower(face)
	for _, kw := range slantKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	if upright != nil {
		return !*upright
	}
	return false
}

func faceOrUnknown(face string) string {
	if strings.TrimSpace(face) == "" {
		return types.FaceUnknown
	}
	return face
}
