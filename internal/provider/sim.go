package provider

import (
	"context"
	"fmt"
	"sync"
)

// placeholderClips are the fixed outputs the simulated provider selects among
// by seed. Kept small so seed-based selection is easy to eyeball in demos.
var placeholderClips = []string{
	"https://cdn.clipforge.dev/placeholders/orbit.mp4",
	"https://cdn.clipforge.dev/placeholders/dolly.mp4",
	"https://cdn.clipforge.dev/placeholders/pan.mp4",
	"https://cdn.clipforge.dev/placeholders/zoom.mp4",
}

// Simulated is an in-process Adapter used for tests and for running the
// service without provider credentials. It advances one step per Poll call.
type Simulated struct {
	// TicksToComplete is how many running polls precede success. Zero means
	// the first poll already reports succeeded.
	TicksToComplete int
	// FailDispatch makes every Dispatch return an error.
	FailDispatch bool
	// FailWith, when set, makes polling end in a logical failure instead of
	// success.
	FailWith string
	// NeverFinish keeps every poll reporting running forever.
	NeverFinish bool

	mu  sync.Mutex
	ops map[string]*simOp
}

type simOp struct {
	seed  int32
	ticks int
}

func NewSimulated() *Simulated {
	return &Simulated{TicksToComplete: 2}
}

func (s *Simulated) Name() string { return "simulated" }

func (s *Simulated) Dispatch(ctx context.Context, req Request) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, &TransportError{Op: "dispatch", Err: err}
	}
	if s.FailDispatch {
		return Handle{}, fmt.Errorf("simulated: dispatch rejected")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ops == nil {
		s.ops = make(map[string]*simOp)
	}
	s.ops[req.ProviderJobID] = &simOp{seed: req.Seed}
	return Handle{ID: req.ProviderJobID}, nil
}

func (s *Simulated) Poll(ctx context.Context, h Handle) (Status, error) {
	if err := ctx.Err(); err != nil {
		return Status{}, &TransportError{Op: "poll", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.ops[h.ID]
	if !ok {
		return Status{State: StateFailed, ErrorDetail: "unknown operation"}, nil
	}
	op.ticks++
	if s.NeverFinish || op.ticks <= s.TicksToComplete {
		progress := op.ticks * 100 / (s.TicksToComplete + 1)
		if progress > 95 {
			progress = 95
		}
		return Status{State: StateRunning, Progress: progress}, nil
	}
	if s.FailWith != "" {
		return Status{State: StateFailed, ErrorDetail: s.FailWith}, nil
	}
	clip := placeholderClips[int(op.seed)%len(placeholderClips)]
	return Status{State: StateSucceeded, Progress: 100, OutputURL: clip}, nil
}

// Cancel forgets the operation; later polls observe a terminal failure.
func (s *Simulated) Cancel(ctx context.Context, h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ops, h.ID)
	return nil
}

var _ Adapter = (*Simulated)(nil)
