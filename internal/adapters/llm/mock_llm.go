package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/PabloGalante/soldiom/internal/domain"
)

// MockTransport replays a canned reply in small fragments. It is used in
// local mode and in tests.
type MockTransport struct {
	mu sync.Mutex

	// Reply builds the reply for a request; nil uses the default echo reply.
	Reply func(req domain.ChatRequest) string
	// Citations are sent with the second fragment, and again with the last one.
	Citations []domain.Citation
	// ChunkSize is the fragment length in runes (default 8).
	ChunkSize int
	// FailAfter makes the stream fail after that many fragments (0 = never).
	FailAfter int

	requests []domain.ChatRequest
}

func NewMockTransport() *MockTransport {
	return &MockTransport{
		Citations: []domain.Citation{
			{URI: "https://example.com/soldiom", Title: "Soldiom example source"},
		},
	}
}

// ErrMockStream is returned by a stream configured with FailAfter.
var ErrMockStream = errors.New("mock stream interrupted")

func (m *MockTransport) OpenStream(ctx context.Context, req domain.ChatRequest) (domain.ChatStream, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	reply, size, failAfter, cites := m.Reply, m.ChunkSize, m.FailAfter, m.Citations
	m.mu.Unlock()

	text := defaultReply(req)
	if reply != nil {
		text = reply(req)
	}
	if size <= 0 {
		size = 8
	}

	frags := split(text, size)
	deltas := make([]domain.StreamDelta, len(frags))
	for i, f := range frags {
		deltas[i].Text = f
	}
	if len(cites) > 0 && len(deltas) > 0 {
		deltas[min(1, len(deltas)-1)].Citations = cites
		deltas[len(deltas)-1].Citations = cites
	}

	return &mockStream{ctx: ctx, deltas: deltas, failAfter: failAfter}, nil
}

// Requests returns the requests received so far.
func (m *MockTransport) Requests() []domain.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ChatRequest(nil), m.requests...)
}

func defaultReply(req domain.ChatRequest) string {
	return fmt.Sprintf("## You said\n\n%q\n\n- Tell me **more** about it.\n- Sources: [example](https://example.com/soldiom)", req.Text)
}

func split(s string, size int) []string {
	runes := []rune(s)
	var out []string
	for len(runes) > 0 {
		n := min(size, len(runes))
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return out
}

type mockStream struct {
	ctx       context.Context
	deltas    []domain.StreamDelta
	pos       int
	failAfter int
	closed    bool
}

func (s *mockStream) Recv() (domain.StreamDelta, error) {
	if err := s.ctx.Err(); err != nil {
		return domain.StreamDelta{}, err
	}
	if s.closed {
		return domain.StreamDelta{}, io.EOF
	}
	if s.failAfter > 0 && s.pos >= s.failAfter {
		return domain.StreamDelta{}, ErrMockStream
	}
	if s.pos >= len(s.deltas) {
		return domain.StreamDelta{}, io.EOF
	}
	d := s.deltas[s.pos]
	s.pos++
	return d, nil
}

func (s *mockStream) Close() error {
	s.closed = true
	return nil
}
