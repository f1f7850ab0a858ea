// Package history implements conversation bookkeeping: the ordered list of
// chat threads with their previews, timestamps, and unread counters,
// persisted as YAML under the user data directory. The store is read at
// startup and rewritten after every message-driven conversation update.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chatwire/chatwire/internal/interfaces"
	"github.com/chatwire/chatwire/internal/logging"
)

// storeFile is the on-disk layout for the conversation list
type storeFile struct {
	Conversations []interfaces.Conversation `yaml:"conversations"`
}

// Store implements the ConversationStore interface with write-through
// persistence. Mutations take the store mutex; the session core and the UI
// both go through this single owner.
type Store struct {
	path   string
	logger *logging.Logger

	mutex         sync.Mutex
	conversations map[string]interfaces.Conversation
}

// NewStore creates a conversation store persisted at the default location
// under the user data directory.
func NewStore(logger *logging.Logger) (*Store, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to determine home directory: %w", err)
	}

	var dataDir string
	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		dataDir = filepath.Join(xdgDataHome, "chatwire")
	} else {
		dataDir = filepath.Join(homeDir, ".local", "share", "chatwire")
	}

	return NewStoreAt(filepath.Join(dataDir, "conversations.yaml"), logger)
}

// NewStoreAt creates a conversation store persisted at an explicit path,
// loading any existing records.
func NewStoreAt(path string, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.GetHistoryLogger()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store := &Store{
		path:          path,
		logger:        logger,
		conversations: make(map[string]interfaces.Conversation),
	}

	if err := store.load(); err != nil {
		return nil, err
	}

	return store, nil
}

// load reads persisted conversations, tolerating a missing file on first run
func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read conversation store: %w", err)
	}

	var file storeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse conversation store: %w", err)
	}

	for _, conv := range file.Conversations {
		s.conversations[conv.ID] = conv
	}

	s.logger.Debug("Conversation store loaded",
		"path", s.path,
		"count", len(s.conversations))
	return nil
}

// persistLocked writes the current records to disk. Caller holds the mutex.
func (s *Store) persistLocked() error {
	file := storeFile{Conversations: s.sortedLocked()}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("failed to serialize conversation store: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write conversation store: %w", err)
	}
	return nil
}

// sortedLocked returns all records ordered by most recent activity.
// Caller holds the mutex.
func (s *Store) sortedLocked() []interfaces.Conversation {
	list := make([]interfaces.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		list = append(list, conv)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].LastMessageTime.Equal(list[j].LastMessageTime) {
			return list[i].LastMessageTime.After(list[j].LastMessageTime)
		}
		return list[i].Title < list[j].Title
	})
	return list
}

// List returns all conversations ordered by most recent activity
func (s *Store) List() ([]interfaces.Conversation, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.sortedLocked(), nil
}

// Get retrieves a single conversation by id
func (s *Store) Get(id string) (*interfaces.Conversation, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	conv, exists := s.conversations[id]
	if !exists {
		return nil, fmt.Errorf("conversation %q not found", id)
	}
	return &conv, nil
}

// Upsert inserts or replaces a conversation record
func (s *Store) Upsert(conv interfaces.Conversation) error {
	if conv.ID == "" {
		return fmt.Errorf("conversation id cannot be empty")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.conversations[conv.ID] = conv
	return s.persistLocked()
}

// RecordMessage updates a conversation's preview and timestamp after a
// message arrived or was sent. Unknown conversation ids create a new record,
// so threads started by the backend still show up in the list. The unread
// counter grows only when the conversation is not currently open.
func (s *Store) RecordMessage(conversationID, title, preview string, at time.Time, unread bool) error {
	if conversationID == "" {
		return fmt.Errorf("conversation id cannot be empty")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	conv, exists := s.conversations[conversationID]
	if !exists {
		conv = interfaces.Conversation{
			ID:    conversationID,
			Title: title,
		}
	}
	if title != "" {
		conv.Title = title
	}
	if conv.Title == "" {
		conv.Title = "Conversation"
	}

	conv.LastMessage = truncatePreview(preview)
	conv.LastMessageTime = at
	if unread {
		conv.UnreadCount++
	}

	s.conversations[conversationID] = conv
	return s.persistLocked()
}

// MarkRead clears the unread counter for a conversation. Unknown ids are
// no-ops.
func (s *Store) MarkRead(id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	conv, exists := s.conversations[id]
	if !exists || conv.UnreadCount == 0 {
		return nil
	}

	conv.UnreadCount = 0
	s.conversations[id] = conv
	return s.persistLocked()
}

// truncatePreview bounds the stored preview to one list row
func truncatePreview(text string) string {
	const maxPreview = 80
	runes := []rune(text)
	if len(runes) <= maxPreview {
		return text
	}
	return string(runes[:maxPreview-1]) + "…"
}
