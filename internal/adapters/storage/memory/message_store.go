package memory

import (
	"sync"

	"github.com/PabloGalante/soldiom/internal/domain"
)

// MessageStore keeps session timelines in memory. It stores and hands out
// copies so that callers never share a *Message with a concurrent writer.
type MessageStore struct {
	mu       sync.RWMutex
	messages map[domain.SessionID][]*domain.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		messages: make(map[domain.SessionID][]*domain.Message),
	}
}

func (s *MessageStore) AppendMessage(msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], msg.Clone())
	return nil
}

// UpdateMessage replaces the stored message with the same ID.
func (s *MessageStore) UpdateMessage(msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[msg.SessionID]
	for i := range msgs {
		if msgs[i].ID == msg.ID {
			msgs[i] = msg.Clone()
			return nil
		}
	}
	return domain.ErrMessageNotFound
}

// GetMessagesBySession returns the last limit messages, oldest first.
// limit <= 0 returns the whole timeline.
func (s *MessageStore) GetMessagesBySession(sessionID domain.SessionID, limit int) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	out := make([]*domain.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Clone())
	}
	return out, nil
}

func (s *MessageStore) DeleteMessagesBySession(sessionID domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.messages, sessionID)
	return nil
}
