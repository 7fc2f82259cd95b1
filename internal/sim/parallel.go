package sim

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/softsim/internal/softbody"
)

// forEachBody applies fn to every body. In parallel mode each body gets its
// own goroutine; bodies share no state, and the call returns only once every
// body is done, which is what separates the tick phases.
func forEachBody(ctx context.Context, bodies []*softbody.Body, parallel bool, fn func(*softbody.Body)) error {
	if !parallel || len(bodies) < 2 {
		for _, b := range bodies {
			fn(b)
		}
		return ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, b := range bodies {
		b := b
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(b)
			return nil
		})
	}
	return g.Wait()
}

// SceneBuilder returns a fresh set of bodies for one run.
type SceneBuilder func() ([]*softbody.Body, error)

// Sweep runs the same scene once per config, concurrently, each run on its
// own freshly built bodies. Results are returned in config order.
func Sweep(ctx context.Context, build SceneBuilder, cfgs []Config, setup func(*Scheduler)) ([]*Result, error) {
	results := make([]*Result, len(cfgs))

	g, gctx := errgroup.WithContext(ctx)
	for i, cfg := range cfgs {
		i, cfg := i, cfg
		g.Go(func() error {
			bodies, err := build()
			if err != nil {
				return err
			}
			s := New()
			s.SetParallel(cfg.Parallel)
			for _, b := range bodies {
				if err := s.Add(b); err != nil {
					return err
				}
			}
			if setup != nil {
				setup(s)
			}
			res, err := s.Run(gctx, cfg)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
