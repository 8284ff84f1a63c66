// Package delivery hands rendered summaries to their destinations.
package delivery

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/xerrors"

	"github.com/SoarinFerret/BreakWarden/internal/observability"
	"github.com/SoarinFerret/BreakWarden/internal/report"
)

// Deliverer sends one tenant summary somewhere.
type Deliverer interface {
	Deliver(ctx context.Context, summary report.Summary) error
}

// Sink is a named Deliverer. The name labels failure metrics.
type Sink interface {
	Deliverer
	Name() string
}

// Fanout delivers every summary to all of its sinks. A failing sink does not
// stop the others; their errors are returned together.
type Fanout struct {
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Deliver(ctx context.Context, summary report.Summary) error {
	var merr *multierror.Error
	for _, sink := range f.sinks {
		if err := sink.Deliver(ctx, summary); err != nil {
			observability.RecordDeliveryFailure(sink.Name())
			merr = multierror.Append(merr, xerrors.Errorf("deliver to %s: %w", sink.Name(), err))
		}
	}
	return merr.ErrorOrNil()
}
