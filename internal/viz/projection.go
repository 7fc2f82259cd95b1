package viz

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Projection maps the world x/y plane onto a w x h dot grid with y up and
// one uniform scale on both axes. z is dropped.
type Projection struct {
	MinX, MinY, MaxX, MaxY float64
	W, H                   int
}

// FitProjection returns a projection that frames every point with a margin
// of pad (a fraction of the larger extent).
func FitProjection(points [][]mgl64.Vec3, w, h int, pad float64) Projection {
	p := Projection{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
		W: w, H: h,
	}
	p.Include(points)
	if math.IsInf(p.MinX, 0) {
		p.MinX, p.MinY, p.MaxX, p.MaxY = -1, -1, 1, 1
	}

	span := math.Max(math.Max(p.MaxX-p.MinX, p.MaxY-p.MinY), 1e-6)
	p.MinX -= span * pad
	p.MaxX += span * pad
	p.MinY -= span * pad
	p.MaxY += span * pad
	return p
}

// Include grows the bounds to cover points. Non-finite coordinates are
// skipped.
func (p *Projection) Include(points [][]mgl64.Vec3) {
	for _, body := range points {
		for _, v := range body {
			x, y := v.X(), v.Y()
			if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
				continue
			}
			p.MinX, p.MaxX = math.Min(p.MinX, x), math.Max(p.MaxX, x)
			p.MinY, p.MaxY = math.Min(p.MinY, y), math.Max(p.MaxY, y)
		}
	}
}

func (p Projection) scale() float64 {
	sx := float64(p.W-1) / math.Max(p.MaxX-p.MinX, 1e-9)
	sy := float64(p.H-1) / math.Max(p.MaxY-p.MinY, 1e-9)
	return math.Min(sx, sy)
}

// Project returns the dot coordinates of v. The drawing is centred on the
// axis that has slack.
func (p Projection) Project(v mgl64.Vec3) (int, int) {
	s := p.scale()
	offX := (float64(p.W-1) - (p.MaxX-p.MinX)*s) / 2
	offY := (float64(p.H-1) - (p.MaxY-p.MinY)*s) / 2
	x := offX + (v.X()-p.MinX)*s
	y := float64(p.H-1) - offY - (v.Y()-p.MinY)*s
	return int(math.Round(x)), int(math.Round(y))
}
