package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"jarvis-ollama/internal/history"
)

// Notices appended to the conversation in place of a model reply when the
// backend fails. They are ordinary assistant-role messages and persist with
// the rest of the history.
const (
	emptyReplyNotice = "J.A.R.V.I.S.: Local model returned an empty or unexpected response."
	errorNoticeFmt   = "J.A.R.V.I.S.: Error talking to the local model: %v"
)

// Completer produces an assistant reply for the given conversation.
type Completer interface {
	Complete(ctx context.Context, msgs []history.Message) (string, error)
}

// Sink receives UI events from a session. Implementations render outbound
// (user) and inbound (assistant) messages and reflect whether input is
// currently accepted.
type Sink interface {
	RenderOutbound(text string)
	RenderInbound(text string)
	SetInputEnabled(enabled bool)
}

// Session owns one conversation's in-memory history and admits at most one
// in-flight request to the model.
type Session struct {
	store     history.Store
	completer Completer
	sink      Sink
	preamble  history.Message

	id   string
	busy atomic.Bool

	mu      sync.Mutex
	history history.History
}

// New creates a session over the given collaborators. systemPrompt becomes
// the preamble pinned to the start of the conversation.
func New(store history.Store, completer Completer, sink Sink, systemPrompt string) *Session {
	return &Session{
		store:     store,
		completer: completer,
		sink:      sink,
		preamble:  history.Message{Role: history.RoleSystem, Content: systemPrompt},
		id:        uuid.New().String(),
	}
}

// Start loads the persisted conversation, seeding a fresh one with the
// preamble when nothing usable is stored, and replays it to the sink.
// System messages are never rendered.
func (s *Session) Start() {
	h, err := s.store.Load()
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", s.id).Msg("failed to load memory, starting fresh")
		h = history.History{}
	}
	if len(h) == 0 {
		h = history.History{s.preamble}
	}

	s.mu.Lock()
	s.history = h
	s.mu.Unlock()

	for _, msg := range h {
		switch msg.Role {
		case history.RoleUser:
			s.sink.RenderOutbound(msg.Content)
		case history.RoleAssistant:
			s.sink.RenderInbound(msg.Content)
		}
	}

	log.Debug().Str("conversation_id", s.id).Int("messages", len(h)).Msg("session started")
}

// Submit runs one user turn: append and persist the user message, ask the
// model for a reply over the full history, append and persist the reply (or
// a failure notice), and report both to the sink.
//
// Blank input, and input arriving while a turn is already in flight, are
// no-ops: ok is false and nothing changes. All failure paths are encoded in
// the returned text; Submit itself never fails.
func (s *Session) Submit(ctx context.Context, userText string) (reply string, ok bool) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return "", false
	}

	// The only concurrency guard: a second submit racing this one must
	// lose, whatever the interleaving.
	if !s.busy.CompareAndSwap(false, true) {
		log.Debug().Str("conversation_id", s.id).Msg("submit ignored, turn in flight")
		return "", false
	}

	s.append(history.Message{Role: history.RoleUser, Content: userText})
	s.sink.RenderOutbound(userText)
	s.persist()

	s.sink.SetInputEnabled(false)

	content, err := s.completer.Complete(ctx, s.snapshot())
	switch {
	case err != nil:
		log.Warn().Err(err).Str("conversation_id", s.id).Msg("model request failed")
		reply = fmt.Sprintf(errorNoticeFmt, err)
	case content == "":
		log.Warn().Str("conversation_id", s.id).Msg("model returned empty response")
		reply = emptyReplyNotice
	default:
		reply = content
	}

	s.append(history.Message{Role: history.RoleAssistant, Content: reply})
	s.persist()
	s.sink.RenderInbound(reply)

	s.busy.Store(false)
	s.sink.SetInputEnabled(true)

	return reply, true
}

// History returns a copy of the current conversation.
func (s *Session) History() []history.Message {
	return s.snapshot()
}

func (s *Session) append(msg history.Message) {
	s.mu.Lock()
	s.history = append(s.history, msg)
	s.mu.Unlock()
}

func (s *Session) snapshot() history.History {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Clone()
}

// persist saves the current history. Storage failures are absorbed: the
// conversation keeps going with whatever the last good save left behind.
func (s *Session) persist() {
	if err := s.store.Save(s.snapshot()); err != nil {
		log.Warn().Err(err).Str("conversation_id", s.id).Msg("failed to save memory")
	}
}
