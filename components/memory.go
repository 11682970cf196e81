package components

import (
	"errors"
	"sync"

	"github.com/bububa/atomic-cookbook/schema"
)

// ErrTurnNotFound is returned by DeleteTurn when no message carries the turn ID
var ErrTurnNotFound = errors.New("turn not found in memory")

// Memory is the chat history of an agent, safe for concurrent use.
// With maxMessages > 0 the oldest messages are dropped once the limit is passed.
type Memory struct {
	sync.RWMutex
	history     []Message
	turnID      string
	maxMessages int
}

func NewMemory(maxMessages int) *Memory {
	return &Memory{maxMessages: maxMessages}
}

func (m *Memory) MaxMessages() int {
	m.RLock()
	defer m.RUnlock()
	return m.maxMessages
}

func (m *Memory) TurnID() string {
	m.RLock()
	defer m.RUnlock()
	return m.turnID
}

// NewTurn starts a turn, the following messages share its random ID
func (m *Memory) NewTurn() *Memory {
	m.Lock()
	m.turnID = NewTurnID()
	m.Unlock()
	return m
}

// limit keeps the newest maxMessages of list, callers hold the lock
func (m *Memory) limit(list []Message) []Message {
	if n := len(list); m.maxMessages > 0 && n > m.maxMessages {
		return list[n-m.maxMessages:]
	}
	return list
}

// NewMessage appends a message of the current turn
func (m *Memory) NewMessage(role MessageRole, content schema.Schema) *Message {
	m.Lock()
	defer m.Unlock()
	msg := NewMessage(role, content).SetTurnID(m.turnID)
	m.history = m.limit(append(m.history, *msg))
	return msg
}

// History returns a copy of the messages, oldest first
func (m *Memory) History() []Message {
	m.RLock()
	defer m.RUnlock()
	return append([]Message(nil), m.history...)
}

// Records returns the serializable form of the history
func (m *Memory) Records() []MessageRecord {
	m.RLock()
	defer m.RUnlock()
	ret := make([]MessageRecord, len(m.history))
	for i, msg := range m.history {
		ret[i] = msg.Record()
	}
	return ret
}

// Restore replaces the history with records. The current turn becomes the turn of the last record.
func (m *Memory) Restore(records []MessageRecord) *Memory {
	m.Lock()
	defer m.Unlock()
	history := make([]Message, len(records))
	for i, r := range records {
		history[i] = MessageFromRecord(r)
	}
	m.history = m.limit(history)
	if n := len(m.history); n > 0 {
		m.turnID = m.history[n-1].TurnID()
	}
	return m
}

// Copy makes m a snapshot of src
func (m *Memory) Copy(src *Memory) {
	src.RLock()
	history := append([]Message(nil), src.history...)
	turnID, maxMessages := src.turnID, src.maxMessages
	src.RUnlock()

	m.Lock()
	m.history, m.turnID, m.maxMessages = history, turnID, maxMessages
	m.Unlock()
}

// Reset clears the history and the current turn
func (m *Memory) Reset() *Memory {
	m.Lock()
	m.history = nil
	m.turnID = ""
	m.Unlock()
	return m
}

// DeleteTurn removes every message of turnID. When the current turn goes away
// the turn of the last remaining message takes its place.
func (m *Memory) DeleteTurn(turnID string) error {
	m.Lock()
	defer m.Unlock()
	kept := m.history[:0:0]
	for _, msg := range m.history {
		if msg.TurnID() != turnID {
			kept = append(kept, msg)
		}
	}
	if len(kept) == len(m.history) {
		return ErrTurnNotFound
	}
	m.history = kept
	switch n := len(kept); {
	case n == 0:
		m.turnID = ""
	case turnID == m.turnID:
		m.turnID = kept[n-1].TurnID()
	}
	return nil
}

func (m *Memory) MessageCount() int {
	m.RLock()
	defer m.RUnlock()
	return len(m.history)
}
