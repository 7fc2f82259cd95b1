package viz

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/softsim/internal/softbody"
)

// BodyView is the drawable part of a body: its positions and the particle
// pairs joined by distance links.
type BodyView struct {
	Positions []mgl64.Vec3
	Links     [][2]int
}

func ViewOf(b *softbody.Body) BodyView {
	v := BodyView{Positions: b.Positions(nil)}
	for _, l := range b.DistanceLinks() {
		v.Links = append(v.Links, [2]int{l.I, l.J})
	}
	return v
}

func ViewsOf(bodies []*softbody.Body) []BodyView {
	out := make([]BodyView, len(bodies))
	for i, b := range bodies {
		out[i] = ViewOf(b)
	}
	return out
}

// PointsOf returns the positions of every view.
func PointsOf(views []BodyView) [][]mgl64.Vec3 {
	out := make([][]mgl64.Vec3, len(views))
	for i, v := range views {
		out[i] = v.Positions
	}
	return out
}

// DrawScene draws every link as a line and every particle as a dot.
func DrawScene(c *Canvas, proj Projection, views []BodyView) {
	for _, v := range views {
		for _, l := range v.Links {
			if l[0] >= len(v.Positions) || l[1] >= len(v.Positions) {
				continue
			}
			if !finite(v.Positions[l[0]]) || !finite(v.Positions[l[1]]) {
				continue
			}
			x0, y0 := proj.Project(v.Positions[l[0]])
			x1, y1 := proj.Project(v.Positions[l[1]])
			c.DrawLine(x0, y0, x1, y1)
		}
		for _, p := range v.Positions {
			if finite(p) {
				c.Set(proj.Project(p))
			}
		}
	}
}

func finite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
