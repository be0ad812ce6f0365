package entities

import (
	"fmt"
	"testing"
)

func TestTimelineAppendPreservesOrder(t *testing.T) {
	timeline := NewTimeline()

	var want []string
	for i := 0; i < 10; i++ {
		content := fmt.Sprintf("message %d", i)
		want = append(want, content)
		timeline.Append(NewUserMessage(content))
	}

	got := timeline.Messages()
	if len(got) != len(want) {
		t.Fatalf("Expected %d messages, got %d", len(want), len(got))
	}
	for i, msg := range got {
		if msg.Content != want[i] {
			t.Errorf("Position %d: expected %q, got %q", i, want[i], msg.Content)
		}
	}
}

func TestTimelineSeed(t *testing.T) {
	greeting := NewAssistantMessage("Hello, I am KM A.I. How can I assist you today?")
	timeline := NewTimeline(greeting)

	if timeline.Len() != 1 {
		t.Fatalf("Expected 1 seeded message, got %d", timeline.Len())
	}
	last, ok := timeline.Last()
	if !ok {
		t.Fatal("Expected a last message")
	}
	if last.Sender != SenderAssistant {
		t.Errorf("Expected assistant sender, got %s", last.Sender)
	}
}

func TestTimelineReplaceByID(t *testing.T) {
	timeline := NewTimeline()
	msg := NewUserMessage("he")
	timeline.Append(msg)

	if !timeline.ReplaceByID(msg.ID, "hello", nil) {
		t.Fatal("Expected replace to succeed for an existing id")
	}

	got, ok := timeline.FindByID(msg.ID)
	if !ok {
		t.Fatal("Expected message to still exist")
	}
	if got.Content != "hello" {
		t.Errorf("Expected content %q, got %q", "hello", got.Content)
	}
	if got.Sender != SenderUser {
		t.Errorf("Replace must not change the sender, got %s", got.Sender)
	}
	if !got.Timestamp.Equal(msg.Timestamp) {
		t.Error("Replace must not change the timestamp")
	}
	if timeline.Len() != 1 {
		t.Errorf("Replace must not change the length, got %d", timeline.Len())
	}
}

func TestTimelineReplaceByIDMissingIsNoOp(t *testing.T) {
	timeline := NewTimeline(NewAssistantMessage("hi"))
	before := timeline.Messages()

	if timeline.ReplaceByID("no-such-id", "changed", nil) {
		t.Fatal("Expected replace of a missing id to report false")
	}

	after := timeline.Messages()
	if len(after) != len(before) {
		t.Fatalf("Expected length %d, got %d", len(before), len(after))
	}
	for i := range before {
		if after[i].Content != before[i].Content {
			t.Errorf("Position %d changed: %q -> %q", i, before[i].Content, after[i].Content)
		}
	}
}

func TestTimelineResetIsIdempotent(t *testing.T) {
	seed := []Message{NewAssistantMessage("greeting")}
	timeline := NewTimeline(seed...)

	timeline.Append(NewUserMessage("one"))
	timeline.Append(NewAssistantMessage("two"))
	timeline.Reset(seed...)
	timeline.Append(NewUserMessage("three"))
	timeline.Reset(seed...)

	got := timeline.Messages()
	if len(got) != 1 {
		t.Fatalf("Expected timeline to return to the seed, got %d messages", len(got))
	}
	if got[0].ID != seed[0].ID || got[0].Content != seed[0].Content {
		t.Error("Expected the exact seed message after reset")
	}
}

func TestTimelineOnChangeObservesEveryMutation(t *testing.T) {
	timeline := NewTimeline()

	var calls int
	var lastLen int
	timeline.OnChange(func(msgs []Message) {
		calls++
		lastLen = len(msgs)
	})

	msg := NewUserMessage("hello")
	timeline.Append(msg)
	if calls != 1 || lastLen != 1 {
		t.Fatalf("Expected synchronous notification after append, calls=%d len=%d", calls, lastLen)
	}

	timeline.ReplaceByID(msg.ID, "hello there", nil)
	if calls != 2 {
		t.Errorf("Expected notification after replace, calls=%d", calls)
	}

	timeline.Reset()
	if calls != 3 || lastLen != 0 {
		t.Errorf("Expected notification after reset, calls=%d len=%d", calls, lastLen)
	}
}
