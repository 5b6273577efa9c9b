package storage

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
)

type stepClock struct {
	t time.Time
}

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func TestMessageHistory_CapsAtMax(t *testing.T) {
	ctx := context.Background()
	clock := &stepClock{t: time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)}
	kv := NewMemoryKV()
	history, err := NewMessageHistory(ctx, kv, WithMessageClock(clock.now))
	if err != nil {
		t.Fatalf("NewMessageHistory failed: %v", err)
	}

	for i := 1; i <= MaxMessages+1; i++ {
		if _, err := history.Append(ctx, fmt.Sprintf("msg-%d", i), ""); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	if history.Len() != MaxMessages {
		t.Fatalf("Len() = %d, want %d", history.Len(), MaxMessages)
	}

	list := history.List()
	if list[0].Message != fmt.Sprintf("msg-%d", MaxMessages+1) {
		t.Errorf("newest entry = %q, want msg-%d", list[0].Message, MaxMessages+1)
	}
	for _, e := range list {
		if e.Message == "msg-1" {
			t.Fatal("oldest entry should have been dropped")
		}
	}

	reloaded, _ := NewMessageHistory(ctx, kv)
	if reloaded.Len() != MaxMessages {
		t.Errorf("reloaded Len() = %d, want %d", reloaded.Len(), MaxMessages)
	}
}

func TestMessageHistory_AppendDefaults(t *testing.T) {
	ctx := context.Background()
	history, _ := NewMessageHistory(ctx, NewMemoryKV())

	long := strings.Repeat("ж", 150)
	entry, err := history.Append(ctx, long, "")
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if entry.Status != StatusSent {
		t.Errorf("Status = %q, want %q", entry.Status, StatusSent)
	}
	if want := strings.Repeat("ж", MaxMessageLength) + "..."; entry.Message != want {
		t.Errorf("message not truncated to %d runes", MaxMessageLength)
	}
	if entry.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestMessageHistory_MalformedStateIsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	_ = kv.Put(ctx, MessagesKey, []byte(`[{"message": 12}`))

	history, err := NewMessageHistory(ctx, kv)
	if err != nil {
		t.Fatalf("NewMessageHistory failed: %v", err)
	}
	if history.Len() != 0 {
		t.Errorf("Len() = %d, want 0", history.Len())
	}
}

func TestMessageHistory_ListNewestFirstWithEqualTimestamps(t *testing.T) {
	ctx := context.Background()
	same := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	history, _ := NewMessageHistory(ctx, NewMemoryKV(), WithMessageClock(func() time.Time { return same }))

	_, _ = history.Append(ctx, "a", "")
	_, _ = history.Append(ctx, "b", "")

	list := history.List()
	if list[0].Message != "b" || list[1].Message != "a" {
		t.Errorf("List() = [%s %s], want [b a]", list[0].Message, list[1].Message)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string
		limit int
	}{
		{name: "short", in: "hello", limit: 10, want: "hello"},
		{name: "exact", in: "hello", limit: 5, want: "hello"},
		{name: "cut", in: "hello world", limit: 5, want: "hello..."},
		{name: "multibyte", in: "привет мир", limit: 6, want: "привет..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.in, tt.limit); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
			}
		})
	}
}
