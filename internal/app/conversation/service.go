package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/PabloGalante/soldiom/internal/app/tools"
	"github.com/PabloGalante/soldiom/internal/app/turn"
	"github.com/PabloGalante/soldiom/internal/domain"
	"github.com/PabloGalante/soldiom/internal/observability"
)

// DefaultHistoryLimit is how many prior messages are replayed to the model.
const DefaultHistoryLimit = 40

const titleMaxRunes = 48

type Service struct {
	transport    domain.ChatTransport
	sessionStore domain.SessionStore
	messageStore domain.MessageStore
	roles        *domain.RoleCatalog
	tools        *tools.Registry
	orchestrator *turn.Orchestrator

	now          func() time.Time
	newID        func() string
	historyLimit int

	mu       sync.Mutex
	inflight map[domain.SessionID]context.CancelFunc

	// sessionMu serializes read-modify-write of session records.
	sessionMu sync.Mutex
}

func NewService(
	transport domain.ChatTransport,
	sessionStore domain.SessionStore,
	messageStore domain.MessageStore,
	roles *domain.RoleCatalog,
	toolRegistry *tools.Registry,
) *Service {
	if roles == nil {
		roles = domain.NewRoleCatalog(domain.DefaultRoles()...)
	}
	if toolRegistry == nil {
		toolRegistry = tools.NewRegistry()
	}

	return &Service{
		transport:    transport,
		sessionStore: sessionStore,
		messageStore: messageStore,
		roles:        roles,
		tools:        toolRegistry,
		orchestrator: turn.NewOrchestrator(),
		now:          time.Now,
		newID:        uuid.NewString,
		historyLimit: DefaultHistoryLimit,
		inflight:     make(map[domain.SessionID]context.CancelFunc),
	}
}

// SetHistoryLimit changes how many prior messages each turn replays.
// n <= 0 replays the whole timeline.
func (s *Service) SetHistoryLimit(n int) {
	s.historyLimit = n
}

func (s *Service) ListRoles() []domain.RoleConfig {
	return s.roles.List()
}

func (s *Service) ListTools() []tools.Tool {
	return s.tools.List()
}

func (s *Service) ListSessions(ctx context.Context, limit int) ([]*domain.Session, error) {
	return s.sessionStore.ListSessions(limit)
}

type StartSessionInput struct {
	Role           domain.RoleType
	EnableThinking bool
	Title          string
}

type StartSessionOutput struct {
	Session *domain.Session
}

func (s *Service) StartSession(ctx context.Context, in StartSessionInput) (*StartSessionOutput, error) {
	role := in.Role
	if role == "" {
		role = domain.RoleGeneral
	}

	log := observability.LoggerFromContext(ctx).With(
		"role", role,
		"thinking", in.EnableThinking,
	)

	if _, err := s.roles.Get(role); err != nil {
		log.Warn("unknown role", "error", err)
		return nil, fmt.Errorf("role %q: %w", role, err)
	}

	now := s.now()
	session := &domain.Session{
		ID:             domain.SessionID(s.newID()),
		CreatedAt:      now,
		UpdatedAt:      now,
		Title:          strings.TrimSpace(in.Title),
		Role:           role,
		EnableThinking: in.EnableThinking,
	}

	if err := s.sessionStore.CreateSession(session); err != nil {
		log.Error("failed to create session", "error", err)
		return nil, err
	}

	log.Info("session started", "session_id", session.ID)

	return &StartSessionOutput{Session: session}, nil
}

type UpdateSessionInput struct {
	SessionID      domain.SessionID
	Role           *domain.RoleType
	EnableThinking *bool
	Title          *string
}

// UpdateSession changes the session settings. Switching role or thinking
// starts the chat over: the timeline is cleared.
func (s *Service) UpdateSession(ctx context.Context, in UpdateSessionInput) (*domain.Session, error) {
	log := observability.LoggerFromContext(ctx).With("session_id", in.SessionID)

	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	session, err := s.sessionStore.GetSession(in.SessionID)
	if err != nil {
		return nil, err
	}

	reinit := false
	if in.Role != nil && *in.Role != session.Role {
		if _, err := s.roles.Get(*in.Role); err != nil {
			return nil, fmt.Errorf("role %q: %w", *in.Role, err)
		}
		session.Role = *in.Role
		reinit = true
	}
	if in.EnableThinking != nil && *in.EnableThinking != session.EnableThinking {
		session.EnableThinking = *in.EnableThinking
		reinit = true
	}
	if in.Title != nil {
		session.Title = strings.TrimSpace(*in.Title)
	}

	if reinit {
		// Holding the turn slot keeps a new turn out until the timeline is cleared.
		_, release, err := s.acquire(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		defer release()
		if err := s.messageStore.DeleteMessagesBySession(session.ID); err != nil {
			log.Error("failed to clear messages", "error", err)
			return nil, err
		}
	}

	session.UpdatedAt = s.now()
	if err := s.sessionStore.UpdateSession(session); err != nil {
		log.Error("failed to update session", "error", err)
		return nil, err
	}

	log.Info("session updated", "role", session.Role, "thinking", session.EnableThinking, "reinit", reinit)
	return session, nil
}

// ResetSession clears the timeline and keeps the settings.
func (s *Service) ResetSession(ctx context.Context, sessionID domain.SessionID) (*domain.Session, error) {
	log := observability.LoggerFromContext(ctx).With("session_id", sessionID)

	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	session, err := s.sessionStore.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	_, release, err := s.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.messageStore.DeleteMessagesBySession(sessionID); err != nil {
		log.Error("failed to clear messages", "error", err)
		return nil, err
	}

	session.UpdatedAt = s.now()
	if err := s.sessionStore.UpdateSession(session); err != nil {
		return nil, err
	}

	log.Info("session reset")
	return session, nil
}

type StreamMessageInput struct {
	SessionID domain.SessionID
	Text      string
}

type StreamMessageOutput struct {
	UserMessage  *domain.Message
	ModelMessage *domain.Message
	Outcome      turn.Outcome
	Err          string
}

// StreamMessage sends one user message and streams the reply. The model
// message is stored as a placeholder before the stream opens and rewritten on
// every update, so the timeline always holds what has been received so far.
// A transport failure is not an error here: the reply ends with the error
// annotation and Outcome reports it.
func (s *Service) StreamMessage(ctx context.Context, in StreamMessageInput, publish func(turn.Update)) (*StreamMessageOutput, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, domain.ErrEmptyMessage
	}

	session, err := s.sessionStore.GetSession(in.SessionID)
	if err != nil {
		return nil, err
	}
	role, err := s.roles.Get(session.Role)
	if err != nil {
		return nil, fmt.Errorf("role %q: %w", session.Role, err)
	}

	ctx = observability.WithSessionID(ctx, string(session.ID))
	log := observability.LoggerFromContext(ctx).With("role", session.Role)

	turnCtx, release, err := s.acquire(ctx, session.ID)
	if err != nil {
		log.Warn("turn rejected", "error", err)
		return nil, err
	}
	defer release()

	prior, err := s.messageStore.GetMessagesBySession(session.ID, 0)
	if err != nil {
		log.Error("failed to load history", "error", err)
		return nil, err
	}

	now := s.now()
	userMsg := &domain.Message{
		ID:        domain.MessageID(s.newID()),
		SessionID: session.ID,
		Author:    domain.AuthorUser,
		Text:      text,
		CreatedAt: now,
	}
	if err := s.messageStore.AppendMessage(userMsg); err != nil {
		log.Error("failed to append user message", "error", err)
		return nil, err
	}

	modelMsg := &domain.Message{
		ID:        domain.MessageID(s.newID()),
		SessionID: session.ID,
		Author:    domain.AuthorModel,
		CreatedAt: now,
		Streaming: true,
	}
	if err := s.messageStore.AppendMessage(modelMsg); err != nil {
		log.Error("failed to append model placeholder", "error", err)
		return nil, err
	}

	req := domain.ChatRequest{
		SystemInstruction: role.SystemInstruction,
		History:           history(prior, s.historyLimit),
		Text:              text,
		EnableThinking:    session.EnableThinking,
	}

	log.Info("streaming message", "history", len(req.History))

	chat, err := s.transport.OpenStream(turnCtx, req)
	if err != nil {
		log.Error("failed to open stream", "error", err)
		chat = failedStream{err: err}
	}

	res := s.orchestrator.Run(turnCtx, &turn.Turn{ID: string(modelMsg.ID), Stream: chat}, func(u turn.Update) {
		modelMsg.Text = u.Text
		modelMsg.Citations = u.Citations
		modelMsg.Streaming = !u.Done
		if err := s.messageStore.UpdateMessage(modelMsg); err != nil {
			log.Error("failed to update model message", "error", err)
		}
		if publish != nil {
			publish(u)
		}
	})

	if err := s.touchSession(session.ID, text); err != nil {
		log.Error("failed to update session", "error", err)
	}

	out := &StreamMessageOutput{
		UserMessage:  userMsg,
		ModelMessage: modelMsg.Clone(),
		Outcome:      res.Outcome,
	}
	if res.Err != nil {
		out.Err = res.Err.Error()
	}

	log.Info("stream message completed", "outcome", res.Outcome)
	return out, nil
}

type SendMessageInput struct {
	SessionID domain.SessionID
	Text      string
}

type SendMessageOutput struct {
	UserMessage  *domain.Message
	ModelMessage *domain.Message
	Outcome      turn.Outcome
}

// SendMessage is StreamMessage without intermediate updates.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	out, err := s.StreamMessage(ctx, StreamMessageInput(in), nil)
	if err != nil {
		return nil, err
	}
	return &SendMessageOutput{
		UserMessage:  out.UserMessage,
		ModelMessage: out.ModelMessage,
		Outcome:      out.Outcome,
	}, nil
}

// CancelTurn stops the in-flight turn of a session. The partial reply stays
// in the timeline. It reports whether a turn was running.
func (s *Service) CancelTurn(ctx context.Context, sessionID domain.SessionID) bool {
	s.mu.Lock()
	cancel, ok := s.inflight[sessionID]
	s.mu.Unlock()

	if ok {
		cancel()
		observability.LoggerFromContext(ctx).Info("turn cancelled", "session_id", sessionID)
	}
	return ok
}

type RunToolInput struct {
	SessionID domain.SessionID
	Tool      string
	Input     tools.Input
}

// RunTool calls a tool and records its output in the session timeline.
func (s *Service) RunTool(ctx context.Context, in RunToolInput) (*domain.Message, error) {
	if _, err := s.sessionStore.GetSession(in.SessionID); err != nil {
		return nil, err
	}
	tool, err := s.tools.Get(in.Tool)
	if err != nil {
		return nil, err
	}

	res, err := tool.Call(ctx, tools.ToolContext{
		SessionID: string(in.SessionID),
		RequestID: observability.RequestIDFromContext(ctx),
	}, in.Input)
	if err != nil {
		return nil, err
	}

	return s.RecordToolResult(ctx, in.SessionID, res)
}

// RecordToolResult appends a tool output to the timeline as a system message.
func (s *Service) RecordToolResult(ctx context.Context, sessionID domain.SessionID, res *tools.Result) (*domain.Message, error) {
	if res == nil {
		return nil, domain.ErrInvalidInput
	}

	msg := &domain.Message{
		ID:           domain.MessageID(s.newID()),
		SessionID:    sessionID,
		Author:       domain.AuthorSystem,
		Text:         res.Text,
		CreatedAt:    s.now(),
		IsToolOutput: true,
	}
	switch res.Kind {
	case tools.KindCode:
		msg.Text = "```\n" + strings.TrimRight(res.Text, "\n") + "\n```"
	case tools.KindImage:
		if res.Blob != nil {
			msg.Image = tools.DataURL(*res.Blob)
		}
	case tools.KindAudio:
		if res.Blob != nil {
			msg.Audio = tools.DataURL(*res.Blob)
		}
	}

	if err := s.messageStore.AppendMessage(msg); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to append tool output", "error", err, "session_id", sessionID)
		return nil, err
	}
	return msg, nil
}

// Transcribe turns audio into text without touching any session.
func (s *Service) Transcribe(ctx context.Context, audio domain.Blob) (string, error) {
	tool, err := s.tools.Get("transcribe")
	if err != nil {
		return "", err
	}
	res, err := tool.Call(ctx, tools.ToolContext{RequestID: observability.RequestIDFromContext(ctx)}, tools.Input{Audio: &audio})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (s *Service) GetSessionTimeline(
	ctx context.Context,
	sessionID domain.SessionID,
	limit int,
) (*domain.Session, []*domain.Message, error) {

	log := observability.LoggerFromContext(ctx).With(
		"session_id", sessionID,
		"limit", limit,
	)

	session, err := s.sessionStore.GetSession(sessionID)
	if err != nil {
		log.Warn("failed to get session", "error", err)
		return nil, nil, err
	}

	msgs, err := s.messageStore.GetMessagesBySession(sessionID, limit)
	if err != nil {
		log.Error("failed to get messages", "error", err)
		return nil, nil, err
	}

	log.Debug("fetched session timeline", "message_count", len(msgs))

	return session, msgs, nil
}

// acquire registers the only in-flight turn of a session.
func (s *Service) acquire(ctx context.Context, id domain.SessionID) (context.Context, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.inflight[id]; ok {
		return nil, nil, domain.ErrTurnInProgress
	}

	turnCtx, cancel := context.WithCancel(ctx)
	s.inflight[id] = cancel

	return turnCtx, func() {
		s.mu.Lock()
		delete(s.inflight, id)
		s.mu.Unlock()
		cancel()
	}, nil
}

// touchSession bumps UpdatedAt after a turn and titles an untitled session
// from its first message. The record is read again so that edits made
// while the turn ran are kept.
func (s *Service) touchSession(id domain.SessionID, text string) error {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	session, err := s.sessionStore.GetSession(id)
	if err != nil {
		return err
	}
	session.UpdatedAt = s.now()
	if session.Title == "" {
		session.Title = titleFrom(text)
	}
	return s.sessionStore.UpdateSession(session)
}

// history keeps the last limit finished user and model messages.
func history(msgs []*domain.Message, limit int) []*domain.Message {
	out := make([]*domain.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.IsToolOutput || m.Streaming || strings.TrimSpace(m.Text) == "" {
			continue
		}
		if m.Author != domain.AuthorUser && m.Author != domain.AuthorModel {
			continue
		}
		out = append(out, m)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func titleFrom(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= titleMaxRunes {
		return text
	}
	r := []rune(text)
	return strings.TrimSpace(string(r[:titleMaxRunes])) + "…"
}

// failedStream stands in for a stream that could not be opened, so the turn
// still ends through the regular failure path.
type failedStream struct{ err error }

func (f failedStream) Recv() (domain.StreamDelta, error) { return domain.StreamDelta{}, f.err }
func (f failedStream) Close() error                      { return nil }

var _ domain.ChatStream = failedStream{}
