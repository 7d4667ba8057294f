package session_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis-ollama/internal/history"
	"jarvis-ollama/internal/session"
)

const testPrompt = "You are a precise, technical assistant."

type fakeStore struct {
	loadHistory history.History
	loadErr     error
	saveErr     error
	saved       []history.History
}

func (s *fakeStore) Load() (history.History, error) {
	return s.loadHistory, s.loadErr
}

func (s *fakeStore) Save(h history.History) error {
	s.saved = append(s.saved, h.Clone())
	return s.saveErr
}

type fakeCompleter struct {
	reply string
	err   error
	got   []history.Message

	entered chan struct{} // closed when Complete begins, when set
	release chan struct{} // Complete blocks on this, when set
}

func (c *fakeCompleter) Complete(ctx context.Context, msgs []history.Message) (string, error) {
	c.got = msgs
	if c.entered != nil {
		close(c.entered)
	}
	if c.release != nil {
		<-c.release
	}
	return c.reply, c.err
}

type recordingSink struct {
	events []string
}

func (r *recordingSink) RenderOutbound(text string) { r.events = append(r.events, "out:"+text) }
func (r *recordingSink) RenderInbound(text string)  { r.events = append(r.events, "in:"+text) }
func (r *recordingSink) SetInputEnabled(enabled bool) {
	r.events = append(r.events, fmt.Sprintf("input:%v", enabled))
}

func newTestSession(store *fakeStore, completer *fakeCompleter) (*session.Session, *recordingSink) {
	sink := &recordingSink{}
	return session.New(store, completer, sink, testPrompt), sink
}

func TestStartSeedsEmptyStore(t *testing.T) {
	store := &fakeStore{}
	sess, sink := newTestSession(store, &fakeCompleter{})

	sess.Start()

	msgs := sess.History()
	require.Len(t, msgs, 1)
	assert.Equal(t, history.RoleSystem, msgs[0].Role)
	assert.Equal(t, testPrompt, msgs[0].Content)

	// The preamble is never rendered, and starting does not write anything
	assert.Empty(t, sink.events)
	assert.Empty(t, store.saved)
}

func TestStartReplaysStoredConversation(t *testing.T) {
	store := &fakeStore{loadHistory: history.History{
		{Role: history.RoleSystem, Content: testPrompt},
		{Role: history.RoleUser, Content: "hello"},
		{Role: history.RoleAssistant, Content: "hi"},
	}}
	sess, sink := newTestSession(store, &fakeCompleter{})

	sess.Start()

	assert.Equal(t, []string{"out:hello", "in:hi"}, sink.events)
	assert.Len(t, sess.History(), 3)
}

func TestStartLoadFailureStartsFresh(t *testing.T) {
	store := &fakeStore{loadErr: errors.New("disk exploded")}
	sess, sink := newTestSession(store, &fakeCompleter{})

	sess.Start()

	msgs := sess.History()
	require.Len(t, msgs, 1)
	assert.Equal(t, history.RoleSystem, msgs[0].Role)
	assert.Empty(t, sink.events)
}

func TestSubmitHappyPath(t *testing.T) {
	store := &fakeStore{}
	completer := &fakeCompleter{reply: "hi"}
	sess, sink := newTestSession(store, completer)
	sess.Start()

	reply, ok := sess.Submit(context.Background(), "hello")

	require.True(t, ok)
	assert.Equal(t, "hi", reply)

	msgs := sess.History()
	require.Len(t, msgs, 3)
	assert.Equal(t, history.RoleSystem, msgs[0].Role)
	assert.Equal(t, history.Message{Role: history.RoleUser, Content: "hello"}, msgs[1])
	assert.Equal(t, history.Message{Role: history.RoleAssistant, Content: "hi"}, msgs[2])

	assert.Equal(t, []string{"out:hello", "input:false", "in:hi", "input:true"}, sink.events)

	// The user message is persisted before the model is called, the reply after
	require.Len(t, store.saved, 2)
	assert.Len(t, store.saved[0], 2)
	assert.Len(t, store.saved[1], 3)

	// The model sees the full history including the preamble
	require.Len(t, completer.got, 2)
	assert.Equal(t, history.RoleSystem, completer.got[0].Role)
	assert.Equal(t, "hello", completer.got[1].Content)
}

func TestSubmitTrimsWhitespace(t *testing.T) {
	store := &fakeStore{}
	sess, _ := newTestSession(store, &fakeCompleter{reply: "ack"})
	sess.Start()

	_, ok := sess.Submit(context.Background(), "  hello\n")

	require.True(t, ok)
	assert.Equal(t, "hello", sess.History()[1].Content)
}

func TestSubmitBlankIsNoOp(t *testing.T) {
	store := &fakeStore{}
	sess, sink := newTestSession(store, &fakeCompleter{reply: "never"})
	sess.Start()

	reply, ok := sess.Submit(context.Background(), "   \t\n")

	assert.False(t, ok)
	assert.Empty(t, reply)
	assert.Len(t, sess.History(), 1)
	assert.Empty(t, sink.events)
	assert.Empty(t, store.saved)
}

func TestSubmitBackendFailureAppendsNotice(t *testing.T) {
	store := &fakeStore{}
	completer := &fakeCompleter{err: errors.New("connection refused")}
	sess, sink := newTestSession(store, completer)
	sess.Start()

	reply, ok := sess.Submit(context.Background(), "hello")

	require.True(t, ok)
	assert.Contains(t, reply, "Error talking to the local model")
	assert.Contains(t, reply, "connection refused")

	msgs := sess.History()
	require.Len(t, msgs, 3)
	assert.Equal(t, history.RoleAssistant, msgs[2].Role)
	assert.Equal(t, reply, msgs[2].Content)

	// The user message was persisted before the model call, the notice after
	require.Len(t, store.saved, 2)
	assert.Len(t, store.saved[0], 2)
	assert.Len(t, store.saved[1], 3)
	assert.Equal(t, []string{"out:hello", "input:false", "in:" + reply, "input:true"}, sink.events)
}

func TestSubmitEmptyReplyAppendsNotice(t *testing.T) {
	store := &fakeStore{}
	sess, _ := newTestSession(store, &fakeCompleter{reply: ""})
	sess.Start()

	reply, ok := sess.Submit(context.Background(), "hello")

	require.True(t, ok)
	assert.Equal(t, "J.A.R.V.I.S.: Local model returned an empty or unexpected response.", reply)

	msgs := sess.History()
	require.Len(t, msgs, 3)
	assert.Equal(t, reply, msgs[2].Content)
}

func TestSubmitSaveFailuresAbsorbed(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("disk full")}
	sess, sink := newTestSession(store, &fakeCompleter{reply: "hi"})
	sess.Start()

	reply, ok := sess.Submit(context.Background(), "hello")

	require.True(t, ok)
	assert.Equal(t, "hi", reply)
	assert.Len(t, sess.History(), 3)
	assert.Equal(t, []string{"out:hello", "input:false", "in:hi", "input:true"}, sink.events)
}

func TestSubmitWhileBusyIsNoOp(t *testing.T) {
	store := &fakeStore{}
	completer := &fakeCompleter{
		reply:   "done",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	sess, sink := newTestSession(store, completer)
	sess.Start()

	firstDone := make(chan string)
	go func() {
		reply, _ := sess.Submit(context.Background(), "first")
		firstDone <- reply
	}()

	// Wait until the first turn is blocked inside the model call
	<-completer.entered

	reply, ok := sess.Submit(context.Background(), "second")
	assert.False(t, ok)
	assert.Empty(t, reply)

	close(completer.release)

	select {
	case got := <-firstDone:
		assert.Equal(t, "done", got)
	case <-time.After(5 * time.Second):
		t.Fatal("first submit did not finish")
	}

	msgs := sess.History()
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[1].Content)
	assert.NotContains(t, sink.events, "out:second")
}

func TestSubmitUsableAfterFailure(t *testing.T) {
	store := &fakeStore{}
	completer := &fakeCompleter{err: errors.New("boom")}
	sess, _ := newTestSession(store, completer)
	sess.Start()

	_, ok := sess.Submit(context.Background(), "first")
	require.True(t, ok)

	completer.err = nil
	completer.reply = "recovered"

	reply, ok := sess.Submit(context.Background(), "second")
	require.True(t, ok)
	assert.Equal(t, "recovered", reply)
	assert.Len(t, sess.History(), 5)
}
