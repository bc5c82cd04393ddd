package domain

import "context"

// ChatRequest is everything the transport needs to open one streamed turn.
type ChatRequest struct {
	SystemInstruction string
	History           []*Message // prior user/model messages, oldest first
	Text              string
	EnableThinking    bool
}

// ChatTransport defines how the core application reaches the LLM provider.
type ChatTransport interface {
	OpenStream(ctx context.Context, req ChatRequest) (ChatStream, error)
}

// ChatStream yields deltas for a single turn, in order, until io.EOF.
// Any other error terminates the turn.
type ChatStream interface {
	Recv() (StreamDelta, error)
	Close() error
}

// InferenceClient is the secondary single-request backend behind the tools.
type InferenceClient interface {
	GenerateImage(ctx context.Context, prompt string) (Blob, error)
	GenerateCode(ctx context.Context, prompt string) (string, error)
	Translate(ctx context.Context, text, srcLang, tgtLang string) (string, error)
	Summarize(ctx context.Context, text string) (string, error)
	Transcribe(ctx context.Context, audio Blob) (string, error)
	SynthesizeSpeech(ctx context.Context, text string) (Blob, error)
}

// SessionStore defines session's storage
type SessionStore interface {
	CreateSession(session *Session) error
	UpdateSession(session *Session) error
	GetSession(id SessionID) (*Session, error)
	ListSessions(limit int) ([]*Session, error)
}

// MessageStore defines message's storage
type MessageStore interface {
	AppendMessage(msg *Message) error
	UpdateMessage(msg *Message) error
	GetMessagesBySession(sessionID SessionID, limit int) ([]*Message, error)
	DeleteMessagesBySession(sessionID SessionID) error
}
