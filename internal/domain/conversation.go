package domain

// Message represents any message in a session timeline (user, model or tool output)
type Message struct {
	ID        MessageID
	SessionID SessionID
	Author    Author
	Text      string
	CreatedAt Timestamp

	// Citations are the web sources grounding a model reply, in first-seen order
	Citations []Citation

	// Streaming is true while the model reply is still arriving
	Streaming bool

	// Tool outputs
	IsToolOutput bool
	Image        string // data URL
	Audio        string // data URL
}

// Clone returns a copy that shares no slices with m.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	if m.Citations != nil {
		c.Citations = append([]Citation(nil), m.Citations...)
	}
	return &c
}

// Session represents one chat with the assistant under a given role.
type Session struct {
	ID        SessionID
	CreatedAt Timestamp
	UpdatedAt Timestamp

	Title          string
	Role           RoleType
	EnableThinking bool
}
