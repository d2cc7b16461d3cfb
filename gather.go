package flow

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Gather forces the given specs concurrently and returns their results in
// spec order. All specs resolve against the same execution context, so
// siblings issued inside one phase share its scratchpad; their writes are
// interleaved by scheduling, not declaration order. The aggregate is
// guaranteed (no lost or duplicated items); the interleaving is not.
//
// The first failure cancels the remaining calls and is returned alongside
// the partial results; indexes of failed or cancelled specs hold nil.
func Gather(ctx context.Context, specs ...Spec) ([]*Result, error) {
	results := make([]*Result, len(specs))
	if len(specs) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			r, err := spec.Run(gctx)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	return results, g.Wait()
}
