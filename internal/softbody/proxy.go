package softbody

import "github.com/go-gl/mathgl/mgl64"

// Proxy is the sphere the collision subsystem sees in place of a particle.
type Proxy struct {
	Center mgl64.Vec3
	Radius float64
}

// Proxies returns one proxy per particle, index-aligned with Particles.
func (b *Body) Proxies() []Proxy { return b.proxies }

func (b *Body) ProxyRadius() float64 { return b.proxyRadius }

func (b *Body) syncProxies() {
	for i := range b.proxies {
		b.proxies[i].Center = b.particles[i].Position.Add(b.proxyOffset)
	}
}
