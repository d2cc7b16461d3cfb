package observability

import "context"

// MultiObserver fans one event stream out to several observers, in order.
type MultiObserver []Observer

// NewMultiObserver builds a MultiObserver from the non-nil observers.
func NewMultiObserver(observers ...Observer) MultiObserver {
	multi := make(MultiObserver, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			multi = append(multi, obs)
		}
	}
	return multi
}

func (m MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m {
		obs.OnEvent(ctx, event)
	}
}
