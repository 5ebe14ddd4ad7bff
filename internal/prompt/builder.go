package prompt

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"aquarelle/internal/domain"
)

// NegativeBoilerplate captures artefacts every render should avoid, appended
// to the negative prompt of all style-transfer stages.
const NegativeBoilerplate = "photorealistic, 3d render, oversaturated, muddy colors, smudged pigment, blurry, distorted perspective, text artefacts, watermark, signature"

var styleFragments = map[domain.RenderStyle]string{
	domain.StyleClassic:       "classic watercolor painting, soft layered washes, delicate brushwork, subtle granulation",
	domain.StyleLoose:         "loose expressive watercolor, flowing wet-on-wet pigment, spontaneous brush strokes, organic color bleeds",
	domain.StyleArchitectural: "architectural watercolor illustration, precise linework, controlled washes, drafting-table presentation",
	domain.StyleMinimal:       "minimal watercolor sketch, restrained palette, generous white space, a few confident strokes",
}

var titleCaser = cases.Title(language.Und)

// Build derives the positive/negative prompt pair from the user-supplied
// semantic parameters. Deterministic: the same inputs always yield the same
// pair. Atmosphere and color tone are optional.
func Build(roomType string, style domain.RenderStyle, atmosphere, colorTone string) (string, string) {
	var parts []string

	room := strings.ToLower(strings.TrimSpace(roomType))
	if room == "" {
		room = "interior"
	}
	parts = append(parts, fmt.Sprintf("watercolor painting of a %s interior", room))

	if fragment, ok := styleFragments[style]; ok {
		parts = append(parts, fragment)
	} else {
		parts = append(parts, styleFragments[domain.StyleClassic])
	}

	if atmosphere = strings.TrimSpace(atmosphere); atmosphere != "" {
		parts = append(parts, fmt.Sprintf("%s atmosphere", strings.ToLower(atmosphere)))
	}
	if colorTone = strings.TrimSpace(colorTone); colorTone != "" {
		parts = append(parts, fmt.Sprintf("%s color palette", strings.ToLower(colorTone)))
	}

	parts = append(parts, "paper texture visible, natural light, hand-painted feel")

	return strings.Join(parts, ", "), NegativeBoilerplate
}

// DisplayStyle formats a style name for user-facing copy.
func DisplayStyle(style domain.RenderStyle) string {
	return titleCaser.String(string(style))
}
