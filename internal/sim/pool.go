package sim

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/softsim/internal/softbody"
)

// FramePool recycles position buffers for callers that only look at a frame
// while it is current.
type FramePool struct {
	pool sync.Pool
}

func NewFramePool() *FramePool {
	return &FramePool{
		pool: sync.Pool{
			New: func() interface{} {
				return make([]mgl64.Vec3, 0, 64)
			},
		},
	}
}

// Get returns an empty buffer.
func (p *FramePool) Get() []mgl64.Vec3 {
	return p.pool.Get().([]mgl64.Vec3)[:0]
}

func (p *FramePool) Put(buf []mgl64.Vec3) {
	if buf == nil {
		return
	}
	p.pool.Put(buf[:0])
}

// Capture snapshots the positions of every body into pooled buffers.
func (p *FramePool) Capture(bodies []*softbody.Body, t float64) Frame {
	f := Frame{Time: t, Positions: make([][]mgl64.Vec3, len(bodies))}
	for i, b := range bodies {
		f.Positions[i] = b.Positions(p.Get())
	}
	return f
}

// Release returns every buffer of f to the pool.
func (p *FramePool) Release(f Frame) {
	for _, buf := range f.Positions {
		p.Put(buf)
	}
}
