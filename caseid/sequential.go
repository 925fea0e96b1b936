package caseid

import (
	"context"
	"fmt"
	"time"
)

// Sequencer yields the next value of a named monotonic counter. The increment
// and read must happen as one indivisible operation so that concurrent
// submissions never see the same value.
type Sequencer interface {
	NextSequence(ctx context.Context, name string) (int64, error)
}

// CounterScope is the sequence name used for case numbers.
const CounterScope = "caseId"

// Sequential mints case IDs whose uniqueness suffix is a zero-padded
// counter value instead of random bytes. It guarantees unique output under
// concurrent calls as long as the Sequencer increment is atomic.
type Sequential struct {
	seq Sequencer
	now func() time.Time
}

// NewSequential returns a counter-backed generator.
func NewSequential(seq Sequencer, opts ...Option) *Sequential {
	g := &Generator{now: time.Now}
	for _, o := range opts {
		o(g)
	}
	return &Sequential{seq: seq, now: g.now}
}

// Generate mints the next sequential case ID for incidentType.
func (s *Sequential) Generate(ctx context.Context, incidentType string) (string, error) {
	n, err := s.seq.NextSequence(ctx, CounterScope)
	if err != nil {
		return "", err
	}
	now := s.now()
	return fmt.Sprintf("%s-%s-%d%02d-%06d",
		Prefix, TypeCode(incidentType), now.Year(), int(now.Month()), n), nil
}
