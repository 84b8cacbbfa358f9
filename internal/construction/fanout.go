package construction

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Pair is the 2-tuple a fan-out produces when both branches succeed.
type Pair[A, B any] struct {
	First  A
	Second B
}

// fanoutC runs two Constructions concurrently on the same input.
type fanoutC[In, A, B, D any] struct {
	a Construction[In, A, D]
	b Construction[In, B, D]
}

// Fanout composes a and b as concurrent branches over the same input.
// Both branches start before either is awaited. On two successes the
// outcome is the pair of values; otherwise the failure whose branch
// completed first wins.
func Fanout[In, A, B, D any](a Construction[In, A, D], b Construction[In, B, D]) Streamer[In, Pair[A, B], D] {
	return &fanoutC[In, A, B, D]{a: a, b: b}
}

func (f *fanoutC[In, A, B, D]) ID() string {
	return fmt.Sprintf("fanout(%s,%s)", f.a.ID(), f.b.ID())
}

func (f *fanoutC[In, A, B, D]) Name() string {
	return fmt.Sprintf("%s || %s", f.a.Name(), f.b.Name())
}

func (f *fanoutC[In, A, B, D]) Execute(in In, pctx Context[D]) Outcome[Pair[A, B]] {
	var (
		outA Outcome[A]
		outB Outcome[B]
	)
	// Completion order decides the tie-break when both branches fail.
	order := make(chan int, 2)

	g := new(errgroup.Group)
	g.Go(func() error {
		outA = f.a.Execute(in, pctx.Fork(pctx.Deps))
		order <- 0
		return nil
	})
	g.Go(func() error {
		outB = f.b.Execute(in, pctx.Fork(pctx.Deps))
		order <- 1
		return nil
	})
	_ = g.Wait()
	close(order)

	if outA.IsOk() && outB.IsOk() {
		return Ok(Pair[A, B]{First: outA.Value(), Second: outB.Value()})
	}
	for idx := range order {
		if idx == 0 && !outA.IsOk() {
			return fromError[Pair[A, B]](outA.Err())
		}
		if idx == 1 && !outB.IsOk() {
			return fromError[Pair[A, B]](outB.Err())
		}
	}
	// Unreachable: at least one branch failed above.
	return fromError[Pair[A, B]](NewError("fanout finished without outcomes").withSource(f.ID()))
}

// branchTerminal records how one branch ended.
type branchTerminal struct {
	idx int
	err *Error
}

// Stream merges both branches' events in wall-clock arrival order and
// emits a single terminal event once both branches have terminated.
func (f *fanoutC[In, A, B, D]) Stream(in In, pctx Context[D]) <-chan Event[Pair[A, B]] {
	ch := make(chan Event[Pair[A, B]], streamBuffer)
	go func() {
		defer close(ch)

		type tagged struct {
			idx       int
			progress  *Progress
			violation *SafetyViolation
			terminal  *branchTerminal
		}
		merged := make(chan tagged, streamBuffer)

		var valA A
		var valB B

		g := new(errgroup.Group)
		g.Go(func() error {
			for ev := range streamOf(f.a, in, pctx.Fork(pctx.Deps)) {
				switch ev.Kind {
				case EventCompleted:
					valA = *ev.Result
					merged <- tagged{idx: 0, terminal: &branchTerminal{idx: 0}}
					return nil
				case EventFailed:
					merged <- tagged{idx: 0, terminal: &branchTerminal{idx: 0, err: ev.Err}}
					return nil
				case EventHumanRequest:
					// Escalation cannot cross a concurrent merge.
					merged <- tagged{idx: 0, terminal: &branchTerminal{idx: 0, err: NewError("branch %s paused for human input inside fanout", f.a.ID()).withSource(f.a.ID())}}
					return nil
				default:
					merged <- tagged{idx: 0, progress: ev.Progress, violation: ev.Violation}
				}
			}
			merged <- tagged{idx: 0, terminal: &branchTerminal{idx: 0, err: NewError("stream of %s ended without a terminal event", f.a.ID()).withSource(f.a.ID())}}
			return nil
		})
		g.Go(func() error {
			for ev := range streamOf(f.b, in, pctx.Fork(pctx.Deps)) {
				switch ev.Kind {
				case EventCompleted:
					valB = *ev.Result
					merged <- tagged{idx: 1, terminal: &branchTerminal{idx: 1}}
					return nil
				case EventFailed:
					merged <- tagged{idx: 1, terminal: &branchTerminal{idx: 1, err: ev.Err}}
					return nil
				case EventHumanRequest:
					merged <- tagged{idx: 1, terminal: &branchTerminal{idx: 1, err: NewError("branch %s paused for human input inside fanout", f.b.ID()).withSource(f.b.ID())}}
					return nil
				default:
					merged <- tagged{idx: 1, progress: ev.Progress, violation: ev.Violation}
				}
			}
			merged <- tagged{idx: 1, terminal: &branchTerminal{idx: 1, err: NewError("stream of %s ended without a terminal event", f.b.ID()).withSource(f.b.ID())}}
			return nil
		})
		go func() {
			_ = g.Wait()
			close(merged)
		}()
		// Whatever way this consumer exits, keep draining so the branch
		// goroutines can finish and the merge channel can close.
		defer func() {
			go func() {
				for range merged {
				}
			}()
		}()

		var firstFailure *Error
		terminals := 0
		for t := range merged {
			switch {
			case t.terminal != nil:
				terminals++
				if t.terminal.err != nil && firstFailure == nil {
					firstFailure = t.terminal.err
				}
			case t.progress != nil:
				if !emit(ch, pctx.Signal, Event[Pair[A, B]]{Kind: EventProgress, Progress: t.progress}) {
					return
				}
			case t.violation != nil:
				if !emit(ch, pctx.Signal, Event[Pair[A, B]]{Kind: EventSafetyViolation, Violation: t.violation}) {
					return
				}
			}
			if terminals == 2 {
				break
			}
		}

		if firstFailure != nil {
			emit(ch, pctx.Signal, FailedEvent[Pair[A, B]](firstFailure, nil))
			return
		}
		emit(ch, pctx.Signal, CompletedEvent(Pair[A, B]{First: valA, Second: valB}))
	}()
	return ch
}
