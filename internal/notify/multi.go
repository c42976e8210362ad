package notify

import (
	"context"
	"fmt"
	"os"
)

// MultiSink fans one event out to several sinks. A sink's error is
// reported to stderr but never stops the remaining sinks or propagates to
// the caller (§4.7: "notification failures are logged but never abort the
// run").
type MultiSink struct {
	Sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) Notify(ctx context.Context, event Event) error {
	for _, s := range m.Sinks {
		if s == nil {
			continue
		}
		if err := s.Notify(ctx, event); err != nil {
			fmt.Fprintf(os.Stderr, "notify: sink failed for %s on step %q: %v\n", event.Kind, event.StepID, err)
		}
	}
	return nil
}
