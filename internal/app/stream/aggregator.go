// Package stream merges the deltas of one streamed reply into a running state.
package stream

import (
	"strings"

	"github.com/PabloGalante/soldiom/internal/domain"
)

// ErrorAnnotation is appended to the partial reply when the transport fails mid-stream.
const ErrorAnnotation = "\n\n**System Error:** Unable to retrieve verified response. Please try again."

// State is the aggregated view of one assistant message.
//
// A State value is a snapshot: Apply never writes to memory reachable from the
// State it receives, so snapshots taken earlier in a stream stay valid. Text of
// an earlier snapshot is always a prefix of a later one, and Citations of an
// earlier snapshot an ordered subsequence of a later one.
type State struct {
	Text      string
	Citations []domain.Citation
	Frozen    bool
}

// Apply merges one delta into s. Text is concatenated in arrival order;
// citations are unioned by URI keeping first-seen order. Citations without a
// URI are dropped. A frozen state is returned unchanged.
func Apply(s State, d domain.StreamDelta) State {
	if s.Frozen {
		return s
	}

	out := s
	if d.Text != "" {
		out.Text = s.Text + d.Text
	}

	for _, c := range d.Citations {
		if c.URI == "" || containsURI(out.Citations, c.URI) {
			continue
		}
		if len(out.Citations) == len(s.Citations) {
			// first addition in this delta: copy so s keeps its own backing array
			out.Citations = append(make([]domain.Citation, 0, len(s.Citations)+len(d.Citations)), s.Citations...)
		}
		out.Citations = append(out.Citations, c)
	}

	return out
}

// Freeze marks s as terminal; later Apply calls are no-ops.
func Freeze(s State) State {
	s.Frozen = true
	return s
}

func containsURI(cs []domain.Citation, uri string) bool {
	for _, c := range cs {
		if c.URI == uri {
			return true
		}
	}
	return false
}

// Aggregator holds the running State of one turn. It is not safe for
// concurrent use: deltas of a turn arrive sequentially.
type Aggregator struct {
	text  strings.Builder
	state State
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Append applies a delta and returns the new snapshot.
func (a *Aggregator) Append(d domain.StreamDelta) State {
	if a.state.Frozen {
		return a.state
	}
	// The builder avoids re-copying the whole text on every fragment; the
	// resulting State still matches Apply(a.state, d).
	a.text.WriteString(d.Text)
	next := Apply(State{Citations: a.state.Citations}, domain.StreamDelta{Citations: d.Citations})
	next.Text = a.text.String()
	a.state = next
	return a.state
}

// Final applies the closing empty delta and freezes the state.
func (a *Aggregator) Final() State {
	a.Append(domain.StreamDelta{})
	a.state = Freeze(a.state)
	return a.state
}

// Fail keeps everything received so far, appends ErrorAnnotation and freezes.
func (a *Aggregator) Fail() State {
	a.Append(domain.StreamDelta{Text: ErrorAnnotation})
	a.state = Freeze(a.state)
	return a.state
}

// Cancel freezes the state without annotation.
func (a *Aggregator) Cancel() State {
	a.state = Freeze(a.state)
	return a.state
}

func (a *Aggregator) State() State {
	return a.state
}
