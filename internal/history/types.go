package history

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation entry. The JSON shape is shared by the
// storage format and the Ollama wire format: role and content, nothing else.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// History is an ordered conversation, oldest first. The first entry of a
// non-empty history is expected to be the system preamble.
type History []Message

// Clone returns an independent copy of h.
func (h History) Clone() History {
	out := make(History, len(h))
	copy(out, h)
	return out
}

// EnsurePreamble repairs the leading-preamble invariant: if a non-empty
// history does not start with a system message, preamble is inserted at
// index 0. Empty histories are returned unchanged; seeding a fresh
// conversation is the session's job.
func (h History) EnsurePreamble(preamble Message) History {
	if len(h) == 0 || h[0].Role == RoleSystem {
		return h
	}
	out := make(History, 0, len(h)+1)
	out = append(out, preamble)
	out = append(out, h...)
	return out
}

// TrimToLast bounds h to at most max messages, keeping the most recent
// ones. A leading system preamble is exempt from trimming and is always
// retained.
func (h History) TrimToLast(max int) History {
	if max <= 0 || len(h) <= max {
		return h
	}
	if h[0].Role == RoleSystem {
		out := make(History, 0, max)
		out = append(out, h[0])
		out = append(out, h[len(h)-(max-1):]...)
		return out
	}
	return h[len(h)-max:]
}
