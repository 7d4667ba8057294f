package history

// Store persists a conversation across process runs.
//
// Load and Save report failures, but callers are expected to absorb them: a
// session degrades to an empty history when Load fails and keeps running
// when Save fails. Absence of the underlying resource is not an error.
type Store interface {
	Load() (History, error)
	Save(h History) error
}
