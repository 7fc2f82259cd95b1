package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/softsim/internal/viz"
)

// CanvasToSVG converts a Braille canvas to SVG format
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	width := float64(canvas.SubWidth()) * scale
	height := float64(canvas.SubHeight()) * scale

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="#00ff00">
`, width, height, width, height)

	// dot bits, same layout as the canvas
	pixelMap := [4][2]int{
		{0x01, 0x08},
		{0x02, 0x10},
		{0x04, 0x20},
		{0x40, 0x80},
	}

	dotRadius := scale * 0.4

	for row := 0; row < canvas.Height; row++ {
		for col := 0; col < canvas.Width; col++ {
			r := canvas.Grid[row][col]
			if r <= 0x2800 {
				continue
			}
			pattern := int(r - 0x2800)

			baseX := float64(col) * scale * 2
			baseY := float64(row) * scale * 4

			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if pattern&pixelMap[dy][dx] != 0 {
						cx := baseX + float64(dx)*scale + scale/2
						cy := baseY + float64(dy)*scale + scale/2
						fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, dotRadius)
					}
				}
			}
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// FrameToSVG draws one frame as vector graphics: links as lines, particles
// as circles. links[b] holds the particle pairs of body b.
func FrameToSVG(positions [][]mgl64.Vec3, links [][][2]int, width, height int) string {
	proj := viz.FitProjection(positions, width, height, 0.1)

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g stroke="#00a8cc" stroke-width="1">
`, width, height, width, height)

	for b, body := range positions {
		if b >= len(links) {
			continue
		}
		for _, l := range links[b] {
			if l[0] >= len(body) || l[1] >= len(body) || !finite(body[l[0]]) || !finite(body[l[1]]) {
				continue
			}
			x0, y0 := proj.Project(body[l[0]])
			x1, y1 := proj.Project(body[l[1]])
			fmt.Fprintf(&sb, "<line x1=\"%d\" y1=\"%d\" x2=\"%d\" y2=\"%d\"/>\n", x0, y0, x1, y1)
		}
	}
	sb.WriteString("</g>\n<g fill=\"#ffd700\">\n")

	for _, body := range positions {
		for _, p := range body {
			if !finite(p) {
				continue
			}
			x, y := proj.Project(p)
			fmt.Fprintf(&sb, "<circle cx=\"%d\" cy=\"%d\" r=\"2\"/>\n", x, y)
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

func finite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
