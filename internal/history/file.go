package history

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// FileStore keeps the conversation in a single JSON file: a top-level array
// of {role, content} records.
type FileStore struct {
	filePath    string
	maxMessages int
	preamble    Message
}

// NewFileStore creates a file-backed store. The file is created on the
// first Save.
func NewFileStore(filePath string, maxMessages int, preamble Message) *FileStore {
	return &FileStore{
		filePath:    filePath,
		maxMessages: maxMessages,
		preamble:    preamble,
	}
}

// Load reads the stored conversation. A missing file yields an empty
// history. A file that cannot be read or parsed is moved aside to
// <path>.backup so the next run starts clean, and the failure is reported
// alongside the empty history.
func (s *FileStore) Load() (History, error) {
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return History{}, errors.Wrap(err, "failed to create memory directory")
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return History{}, nil
		}
		return History{}, errors.Wrap(err, "failed to read memory file")
	}

	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		// Corrupted file - move aside and start fresh
		backupPath := s.filePath + ".backup"
		if renameErr := os.Rename(s.filePath, backupPath); renameErr == nil {
			log.Warn().Str("backup", backupPath).Msg("memory file corrupted, moved aside")
		}
		return History{}, errors.Wrap(err, "failed to parse memory file")
	}

	return h.EnsurePreamble(s.preamble), nil
}

// Save writes the conversation, trimmed to the retention cap, replacing the
// file atomically via a temp file and rename.
func (s *FileStore) Save(h History) error {
	if h == nil {
		h = History{}
	}
	h = h.TrimToLast(s.maxMessages)

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal memory")
	}

	tempPath := s.filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write temp file")
	}

	if err := os.Rename(tempPath, s.filePath); err != nil {
		os.Remove(tempPath)
		return errors.Wrap(err, "failed to replace memory file")
	}

	return nil
}
