package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Veraticus/smarttransit/internal/common"
	"github.com/Veraticus/smarttransit/internal/model"
)

const (
	// MessagesKey is the fixed key of the message history collection.
	MessagesKey = "telegram_message_history"
	// MaxMessages caps the history; the oldest entries are dropped first.
	MaxMessages = 100
	// MaxMessageLength is the number of runes kept from each message.
	MaxMessageLength = 100
	// StatusSent is the default entry status.
	StatusSent = "sent"
	// StatusFailed marks a dispatch that did not reach the chat.
	StatusFailed = "failed"
)

// MessageHistory is the capped log of outbound notifications, stored oldest first.
type MessageHistory struct {
	kv      KV
	now     func() time.Time
	entries []model.MessageEntry
	mu      sync.RWMutex
}

// MessageHistoryOption configures a MessageHistory.
type MessageHistoryOption func(*MessageHistory)

// WithMessageClock overrides the clock used for entry timestamps.
func WithMessageClock(now func() time.Time) MessageHistoryOption {
	return func(h *MessageHistory) {
		h.now = now
	}
}

// NewMessageHistory loads the persisted history. Malformed data is treated as empty.
func NewMessageHistory(ctx context.Context, kv KV, opts ...MessageHistoryOption) (*MessageHistory, error) {
	if kv == nil {
		return nil, fmt.Errorf("%w: kv", common.ErrMissingConfig)
	}

	h := &MessageHistory{kv: kv, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}

	raw, ok, err := kv.Get(ctx, MessagesKey)
	switch {
	case err != nil:
		slog.Error("Failed to read message history, starting empty", "error", err)
	case ok && len(raw) > 0:
		if err := json.Unmarshal(raw, &h.entries); err != nil {
			slog.Error("Message history is malformed, starting empty",
				"error", fmt.Errorf("%w: %w", common.ErrMalformedState, err))
			h.entries = nil
		}
	}
	if len(h.entries) > MaxMessages {
		h.entries = h.entries[len(h.entries)-MaxMessages:]
	}

	return h, nil
}

// Append logs a message, truncated to MaxMessageLength runes, and persists
// the capped history.
func (h *MessageHistory) Append(ctx context.Context, message, status string) (model.MessageEntry, error) {
	if status == "" {
		status = StatusSent
	}
	entry := model.MessageEntry{
		Message:   Truncate(message, MaxMessageLength),
		Timestamp: h.now(),
		Status:    status,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, entry)
	if len(h.entries) > MaxMessages {
		h.entries = append([]model.MessageEntry(nil), h.entries[len(h.entries)-MaxMessages:]...)
	}

	data, err := json.Marshal(h.entries)
	if err != nil {
		return entry, fmt.Errorf("failed to encode message history: %w", err)
	}
	if err := h.kv.Put(ctx, MessagesKey, data); err != nil {
		slog.Error("Failed to persist message history", "error", err)
		return entry, fmt.Errorf("failed to save message history: %w", err)
	}
	return entry, nil
}

// List returns the history newest first.
func (h *MessageHistory) List() []model.MessageEntry {
	h.mu.RLock()
	out := make([]model.MessageEntry, 0, len(h.entries))
	for i := len(h.entries) - 1; i >= 0; i-- {
		out = append(out, h.entries[i])
	}
	h.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Len returns the number of stored entries.
func (h *MessageHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Truncate shortens s to limit runes, appending "..." when it was cut.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
