// Package turn drives one assistant turn from the transport stream to the
// presentation layer.
package turn

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/PabloGalante/soldiom/internal/app/markdown"
	"github.com/PabloGalante/soldiom/internal/app/stream"
	"github.com/PabloGalante/soldiom/internal/domain"
	"github.com/PabloGalante/soldiom/internal/observability"
)

// Outcome is how a turn ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// Update is published after every processed delta and once at the end.
type Update struct {
	Text      string
	Citations []domain.Citation
	Nodes     []markdown.Node
	Done      bool
	Outcome   Outcome // set when Done
	Err       string  // transport error message when Outcome is OutcomeFailed
}

// Turn is the explicit handle on one in-flight reply. It is owned by whoever
// opened the stream and handed to Run; nothing else keeps a reference to it.
type Turn struct {
	ID     string
	Stream domain.ChatStream
}

// Result is the terminal state of a turn.
type Result struct {
	State   stream.State
	Outcome Outcome
	Err     error
}

// Orchestrator applies stream deltas and restructures the text after each one.
// It holds no per-turn state, so one Orchestrator can run many turns at once.
type Orchestrator struct {
	structure func(string) []markdown.Node
}

func NewOrchestrator() *Orchestrator {
	return &Orchestrator{structure: markdown.Structure}
}

// Run consumes t.Stream until it ends, fails or ctx is cancelled. publish may
// be nil. The stream is always closed. Partial text is never discarded: on a
// transport failure the error annotation is appended to what was received.
func (o *Orchestrator) Run(ctx context.Context, t *Turn, publish func(Update)) Result {
	if publish == nil {
		publish = func(Update) {}
	}

	log := observability.LoggerFromContext(ctx).With("turn_id", t.ID)
	log.Info("turn started")
	start := time.Now()

	defer func() {
		if err := t.Stream.Close(); err != nil {
			log.Warn("closing turn stream", "error", err)
		}
	}()

	agg := stream.NewAggregator()
	deltas := 0

	finish := func(s stream.State, outcome Outcome, err error) Result {
		u := o.update(s)
		u.Done = true
		u.Outcome = outcome
		if err != nil {
			u.Err = err.Error()
		}
		publish(u)

		observability.ObserveTurn(string(outcome), time.Since(start), len(s.Citations))
		log.Info("turn finished",
			"outcome", outcome,
			"deltas", deltas,
			"text_len", len(s.Text),
			"citations", len(s.Citations),
			"elapsed_ms", time.Since(start).Milliseconds())
		return Result{State: s, Outcome: outcome, Err: err}
	}

	for {
		if ctx.Err() != nil {
			return finish(agg.Cancel(), OutcomeCancelled, nil)
		}

		delta, err := t.Stream.Recv()
		if errors.Is(err, io.EOF) {
			return finish(agg.Final(), OutcomeCompleted, nil)
		}
		if err != nil {
			if ctx.Err() != nil {
				return finish(agg.Cancel(), OutcomeCancelled, nil)
			}
			log.Error("turn stream failed", "error", err, "deltas", deltas)
			return finish(agg.Fail(), OutcomeFailed, err)
		}

		deltas++
		observability.ObserveDelta()
		publish(o.update(agg.Append(delta)))
	}
}

func (o *Orchestrator) update(s stream.State) Update {
	return Update{
		Text:      s.Text,
		Citations: s.Citations,
		Nodes:     o.structure(s.Text),
	}
}
