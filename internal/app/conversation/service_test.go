package conversation_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/soldiom/internal/adapters/llm"
	"github.com/PabloGalante/soldiom/internal/adapters/storage/memory"
	"github.com/PabloGalante/soldiom/internal/app/conversation"
	"github.com/PabloGalante/soldiom/internal/app/stream"
	"github.com/PabloGalante/soldiom/internal/app/tools"
	"github.com/PabloGalante/soldiom/internal/app/turn"
	"github.com/PabloGalante/soldiom/internal/domain"
)

func newService(t *testing.T, transport domain.ChatTransport) (*conversation.Service, *memory.MessageStore) {
	t.Helper()
	messages := memory.NewMessageStore()
	svc := conversation.NewService(transport, memory.NewSessionStore(), messages, nil, tools.NewDefaultRegistry(stubInference{}))
	return svc, messages
}

func startSession(t *testing.T, svc *conversation.Service, role domain.RoleType) *domain.Session {
	t.Helper()
	out, err := svc.StartSession(context.Background(), conversation.StartSessionInput{Role: role})
	require.NoError(t, err)
	require.NotEmpty(t, out.Session.ID)
	return out.Session
}

func TestStartSessionAndSendMessage(t *testing.T) {
	ctx := context.Background()
	transport := llm.NewMockTransport()
	svc, _ := newService(t, transport)

	sess := startSession(t, svc, "")
	assert.Equal(t, domain.RoleGeneral, sess.Role)

	reply, err := svc.SendMessage(ctx, conversation.SendMessageInput{
		SessionID: sess.ID,
		Text:      "Hola Soldiom",
	})
	require.NoError(t, err)

	assert.Equal(t, turn.OutcomeCompleted, reply.Outcome)
	assert.Contains(t, reply.ModelMessage.Text, "Hola Soldiom")
	assert.False(t, reply.ModelMessage.Streaming)
	assert.Len(t, reply.ModelMessage.Citations, 1)

	got, msgs, err := svc.GetSessionTimeline(ctx, sess.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "Hola Soldiom", got.Title)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.AuthorUser, msgs[0].Author)
	assert.Equal(t, reply.ModelMessage.Text, msgs[1].Text)

	reqs := transport.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].SystemInstruction, "Soldiom")
	assert.Empty(t, reqs[0].History)
}

func TestStartSession_UnknownRole(t *testing.T) {
	svc, _ := newService(t, llm.NewMockTransport())

	_, err := svc.StartSession(context.Background(), conversation.StartSessionInput{Role: "PIRATE"})
	assert.ErrorIs(t, err, domain.ErrUnknownRole)
}

func TestSendMessage_EmptyText(t *testing.T) {
	svc, _ := newService(t, llm.NewMockTransport())
	sess := startSession(t, svc, domain.RoleGeneral)

	_, err := svc.SendMessage(context.Background(), conversation.SendMessageInput{SessionID: sess.ID, Text: "  "})
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
}

func TestSendMessage_HistoryReplayed(t *testing.T) {
	ctx := context.Background()
	transport := llm.NewMockTransport()
	svc, _ := newService(t, transport)
	sess := startSession(t, svc, domain.RoleEngineer)

	_, err := svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: sess.ID, Text: "first"})
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: sess.ID, Text: "second"})
	require.NoError(t, err)

	reqs := transport.Requests()
	require.Len(t, reqs, 2)
	require.Len(t, reqs[1].History, 2)
	assert.Equal(t, "first", reqs[1].History[0].Text)
	assert.Equal(t, domain.AuthorModel, reqs[1].History[1].Author)
	assert.Equal(t, "second", reqs[1].Text)
}

func TestStreamMessage_FailureKeepsPartialText(t *testing.T) {
	ctx := context.Background()
	transport := llm.NewMockTransport()
	transport.Reply = func(domain.ChatRequest) string { return "Hello world, this is long" }
	transport.ChunkSize = 5
	transport.FailAfter = 1
	svc, messages := newService(t, transport)
	sess := startSession(t, svc, domain.RoleGeneral)

	var updates []turn.Update
	out, err := svc.StreamMessage(ctx, conversation.StreamMessageInput{SessionID: sess.ID, Text: "hi"}, func(u turn.Update) {
		updates = append(updates, u)
	})
	require.NoError(t, err)

	assert.Equal(t, turn.OutcomeFailed, out.Outcome)
	assert.Equal(t, "Hello"+stream.ErrorAnnotation, out.ModelMessage.Text)
	assert.NotEmpty(t, out.Err)

	require.Len(t, updates, 2)
	assert.Equal(t, "Hello", updates[0].Text)
	assert.True(t, updates[1].Done)

	stored, err := messages.GetMessagesBySession(sess.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, out.ModelMessage.Text, stored[0].Text)
	assert.False(t, stored[0].Streaming)
}

type failingTransport struct{ err error }

func (f failingTransport) OpenStream(context.Context, domain.ChatRequest) (domain.ChatStream, error) {
	return nil, f.err
}

func TestStreamMessage_OpenFailureAnnotates(t *testing.T) {
	svc, _ := newService(t, failingTransport{err: domain.ErrInferenceUnavailable})
	sess := startSession(t, svc, domain.RoleGeneral)

	out, err := svc.StreamMessage(context.Background(), conversation.StreamMessageInput{SessionID: sess.ID, Text: "hi"}, nil)
	require.NoError(t, err)
	assert.Equal(t, turn.OutcomeFailed, out.Outcome)
	assert.Equal(t, stream.ErrorAnnotation, out.ModelMessage.Text)
}

// blockingTransport sends one fragment and then waits for cancellation.
type blockingTransport struct{}

func (blockingTransport) OpenStream(ctx context.Context, _ domain.ChatRequest) (domain.ChatStream, error) {
	return &blockingStream{ctx: ctx}, nil
}

type blockingStream struct {
	ctx  context.Context
	sent bool
}

func (s *blockingStream) Recv() (domain.StreamDelta, error) {
	if !s.sent {
		s.sent = true
		return domain.StreamDelta{Text: "partial "}, nil
	}
	<-s.ctx.Done()
	return domain.StreamDelta{}, s.ctx.Err()
}

func (s *blockingStream) Close() error { return nil }

func TestCancelTurn_KeepsPartialAndRejectsConcurrentTurn(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, blockingTransport{})
	sess := startSession(t, svc, domain.RoleGeneral)

	first := make(chan struct{}, 1)
	done := make(chan *conversation.StreamMessageOutput, 1)
	go func() {
		out, err := svc.StreamMessage(ctx, conversation.StreamMessageInput{SessionID: sess.ID, Text: "go"}, func(u turn.Update) {
			if !u.Done {
				select {
				case first <- struct{}{}:
				default:
				}
			}
		})
		assert.NoError(t, err)
		done <- out
	}()

	select {
	case <-first:
	case <-time.After(2 * time.Second):
		t.Fatal("no update received")
	}

	_, err := svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: sess.ID, Text: "again"})
	assert.ErrorIs(t, err, domain.ErrTurnInProgress)

	_, err = svc.ResetSession(ctx, sess.ID)
	assert.ErrorIs(t, err, domain.ErrTurnInProgress)

	assert.True(t, svc.CancelTurn(ctx, sess.ID))

	select {
	case out := <-done:
		require.NotNil(t, out)
		assert.Equal(t, turn.OutcomeCancelled, out.Outcome)
		assert.Equal(t, "partial ", out.ModelMessage.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("turn did not stop")
	}

	assert.False(t, svc.CancelTurn(ctx, sess.ID))
}

// startBlockingTurn runs a turn that streams one delta and then waits for
// cancellation. It returns once the delta has been published.
func startBlockingTurn(t *testing.T, svc *conversation.Service, id domain.SessionID) <-chan *conversation.StreamMessageOutput {
	t.Helper()

	first := make(chan struct{}, 1)
	done := make(chan *conversation.StreamMessageOutput, 1)
	go func() {
		out, err := svc.StreamMessage(context.Background(), conversation.StreamMessageInput{SessionID: id, Text: "go"}, func(u turn.Update) {
			if !u.Done {
				select {
				case first <- struct{}{}:
				default:
				}
			}
		})
		assert.NoError(t, err)
		done <- out
	}()

	select {
	case <-first:
	case <-time.After(2 * time.Second):
		t.Fatal("no update received")
	}
	return done
}

func TestUpdateSession_TitleDuringTurnIsKept(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, blockingTransport{})
	sess := startSession(t, svc, domain.RoleGeneral)

	done := startBlockingTurn(t, svc, sess.ID)

	title := "Renamed"
	updated, err := svc.UpdateSession(ctx, conversation.UpdateSessionInput{SessionID: sess.ID, Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	require.True(t, svc.CancelTurn(ctx, sess.ID))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("turn did not stop")
	}

	got, _, err := svc.GetSessionTimeline(ctx, sess.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
}

func TestStreamMessage_TitlesUntitledSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, llm.NewMockTransport())
	sess := startSession(t, svc, domain.RoleGeneral)

	_, err := svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: sess.ID, Text: "  what is a goroutine  "})
	require.NoError(t, err)

	got, _, err := svc.GetSessionTimeline(ctx, sess.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "what is a goroutine", got.Title)
}

func TestClearingDuringTurnIsRejected(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, blockingTransport{})
	sess := startSession(t, svc, domain.RoleGeneral)

	done := startBlockingTurn(t, svc, sess.ID)

	role := domain.RoleEngineer
	_, err := svc.UpdateSession(ctx, conversation.UpdateSessionInput{SessionID: sess.ID, Role: &role})
	assert.ErrorIs(t, err, domain.ErrTurnInProgress)
	_, err = svc.ResetSession(ctx, sess.ID)
	assert.ErrorIs(t, err, domain.ErrTurnInProgress)

	_, msgs, err := svc.GetSessionTimeline(ctx, sess.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].Streaming)

	require.True(t, svc.CancelTurn(ctx, sess.ID))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("turn did not stop")
	}

	// Clearing takes the turn slot only while it runs.
	_, err = svc.ResetSession(ctx, sess.ID)
	require.NoError(t, err)
	updated, err := svc.UpdateSession(ctx, conversation.UpdateSessionInput{SessionID: sess.ID, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEngineer, updated.Role)
	assert.False(t, svc.CancelTurn(ctx, sess.ID))
}

func TestUpdateSession_RoleSwitchClearsHistory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, llm.NewMockTransport())
	sess := startSession(t, svc, domain.RoleGeneral)

	_, err := svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: sess.ID, Text: "hello"})
	require.NoError(t, err)

	// Title only: history stays.
	title := "renamed"
	updated, err := svc.UpdateSession(ctx, conversation.UpdateSessionInput{SessionID: sess.ID, Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	_, msgs, err := svc.GetSessionTimeline(ctx, sess.ID, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	role := domain.RoleDoctor
	updated, err = svc.UpdateSession(ctx, conversation.UpdateSessionInput{SessionID: sess.ID, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleDoctor, updated.Role)
	_, msgs, err = svc.GetSessionTimeline(ctx, sess.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	bad := domain.RoleType("NOPE")
	_, err = svc.UpdateSession(ctx, conversation.UpdateSessionInput{SessionID: sess.ID, Role: &bad})
	assert.ErrorIs(t, err, domain.ErrUnknownRole)
}

func TestResetSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, llm.NewMockTransport())
	sess := startSession(t, svc, domain.RoleCybersecurity)

	_, err := svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: sess.ID, Text: "hello"})
	require.NoError(t, err)

	reset, err := svc.ResetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCybersecurity, reset.Role)

	_, msgs, err := svc.GetSessionTimeline(ctx, sess.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = svc.ResetSession(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

type stubInference struct{}

func (stubInference) GenerateImage(context.Context, string) (domain.Blob, error) {
	return domain.Blob{ContentType: "image/png", Data: []byte("png")}, nil
}
func (stubInference) GenerateCode(context.Context, string) (string, error) {
	return "print('hi')\n", nil
}
func (stubInference) Translate(context.Context, string, string, string) (string, error) {
	return "bonjour", nil
}
func (stubInference) Summarize(context.Context, string) (string, error) { return "tl;dr", nil }
func (stubInference) Transcribe(context.Context, domain.Blob) (string, error) {
	return "spoken words", nil
}
func (stubInference) SynthesizeSpeech(context.Context, string) (domain.Blob, error) {
	return domain.Blob{ContentType: "audio/flac", Data: []byte("flac")}, nil
}

func TestRunTool_RecordsSystemMessage(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, llm.NewMockTransport())
	sess := startSession(t, svc, domain.RoleGeneral)

	img, err := svc.RunTool(ctx, conversation.RunToolInput{SessionID: sess.ID, Tool: "image", Input: tools.Input{Text: "a cat"}})
	require.NoError(t, err)
	assert.Equal(t, domain.AuthorSystem, img.Author)
	assert.True(t, img.IsToolOutput)
	assert.Equal(t, "Image Generated", img.Text)
	assert.True(t, strings.HasPrefix(img.Image, "data:image/png;base64,"))

	code, err := svc.RunTool(ctx, conversation.RunToolInput{SessionID: sess.ID, Tool: "code", Input: tools.Input{Text: "hello"}})
	require.NoError(t, err)
	assert.Equal(t, "```\nprint('hi')\n```", code.Text)

	tr, err := svc.RunTool(ctx, conversation.RunToolInput{
		SessionID: sess.ID,
		Tool:      "translate",
		Input:     tools.Input{Text: "hello", TargetLang: "fra_Latn"},
	})
	require.NoError(t, err)
	assert.Equal(t, "**Translation (fra):**\nbonjour", tr.Text)

	_, err = svc.RunTool(ctx, conversation.RunToolInput{SessionID: sess.ID, Tool: "teleport"})
	assert.ErrorIs(t, err, domain.ErrUnknownTool)

	// Tool outputs are never replayed to the model.
	transport := llm.NewMockTransport()
	svc2, _ := newService(t, transport)
	sess2 := startSession(t, svc2, domain.RoleGeneral)
	_, err = svc2.RunTool(ctx, conversation.RunToolInput{SessionID: sess2.ID, Tool: "summarize", Input: tools.Input{Text: "long"}})
	require.NoError(t, err)
	_, err = svc2.SendMessage(ctx, conversation.SendMessageInput{SessionID: sess2.ID, Text: "next"})
	require.NoError(t, err)
	assert.Empty(t, transport.Requests()[0].History)
}

func TestTranscribe(t *testing.T) {
	svc, _ := newService(t, llm.NewMockTransport())

	text, err := svc.Transcribe(context.Background(), domain.Blob{ContentType: "audio/wav", Data: []byte{1}})
	require.NoError(t, err)
	assert.Equal(t, "spoken words", text)
}
