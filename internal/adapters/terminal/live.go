package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/PabloGalante/soldiom/internal/app/turn"
)

// LiveView repaints one streaming reply in place. Each Update erases what
// the previous one drew and draws the new state, so restructured blocks
// (a paragraph turning into a heading) never leave stale lines behind.
type LiveView struct {
	mu       sync.Mutex
	w        io.Writer
	r        *Renderer
	lines    int
	finished bool
}

func NewLiveView(w io.Writer, r *Renderer) *LiveView {
	return &LiveView{w: w, r: r}
}

// Update draws u. Updates after the final one are ignored.
func (v *LiveView) Update(u turn.Update) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.finished {
		return
	}

	out := v.r.Render(u.Nodes, u.Citations)
	if u.Done && u.Outcome == turn.OutcomeCancelled {
		out += "\n" + v.r.p.source.Render("[stopped]")
	}

	v.erase()
	if out != "" {
		fmt.Fprintln(v.w, out)
		v.lines = v.rows(out)
	}
	v.finished = u.Done
}

// rows counts terminal rows taken by out, including soft wraps when the
// renderer knows the screen width.
func (v *LiveView) rows(out string) int {
	width := v.r.opts.Width
	n := 0
	for _, line := range strings.Split(out, "\n") {
		w := lipgloss.Width(line)
		if width <= 0 || w <= width {
			n++
			continue
		}
		n += (w + width - 1) / width
	}
	return n
}

func (v *LiveView) erase() {
	if v.lines == 0 {
		return
	}
	// cursor up n lines, then clear to end of screen
	fmt.Fprintf(v.w, "\x1b[%dA\x1b[J", v.lines)
	v.lines = 0
}
