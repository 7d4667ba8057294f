package history_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis-ollama/internal/history"
)

var preamble = history.Message{Role: history.RoleSystem, Content: "You are a precise assistant."}

func TestEnsurePreambleEmptyHistory(t *testing.T) {
	h := history.History{}
	assert.Empty(t, h.EnsurePreamble(preamble))
}

func TestEnsurePreambleAlreadyPresent(t *testing.T) {
	h := history.History{
		preamble,
		{Role: history.RoleUser, Content: "hi"},
	}

	got := h.EnsurePreamble(history.Message{Role: history.RoleSystem, Content: "another prompt"})

	require.Equal(t, h, got)
}

func TestEnsurePreambleInserted(t *testing.T) {
	h := history.History{
		{Role: history.RoleUser, Content: "hi"},
		{Role: history.RoleAssistant, Content: "hello"},
	}

	got := h.EnsurePreamble(preamble)

	require.Len(t, got, 3)
	assert.Equal(t, preamble, got[0])
	assert.Equal(t, h[0], got[1])
	assert.Equal(t, h[1], got[2])
}

func TestTrimToLastUnderCap(t *testing.T) {
	h := history.History{
		preamble,
		{Role: history.RoleUser, Content: "hi"},
	}

	assert.Equal(t, h, h.TrimToLast(60))
}

func TestTrimToLastKeepsPreamble(t *testing.T) {
	h := history.History{preamble}
	for i := 0; i < 10; i++ {
		h = append(h, history.Message{Role: history.RoleUser, Content: fmt.Sprintf("msg %d", i)})
	}

	got := h.TrimToLast(4)

	require.Len(t, got, 4)
	assert.Equal(t, preamble, got[0])
	assert.Equal(t, "msg 7", got[1].Content)
	assert.Equal(t, "msg 8", got[2].Content)
	assert.Equal(t, "msg 9", got[3].Content)
}

func TestTrimToLastWithoutPreamble(t *testing.T) {
	h := history.History{}
	for i := 0; i < 10; i++ {
		h = append(h, history.Message{Role: history.RoleUser, Content: fmt.Sprintf("msg %d", i)})
	}

	got := h.TrimToLast(3)

	require.Len(t, got, 3)
	assert.Equal(t, "msg 7", got[0].Content)
	assert.Equal(t, "msg 9", got[2].Content)
}

func TestCloneIsIndependent(t *testing.T) {
	h := history.History{
		preamble,
		{Role: history.RoleUser, Content: "hi"},
	}

	clone := h.Clone()
	clone[1].Content = "changed"

	assert.Equal(t, "hi", h[1].Content)
}
