package events

import (
	"testing"

	"github.com/leadsweep/leadsweep/internal/collector"
)

// --- Hub Tests ---

func TestHub_PublishReachesSubscribers(t *testing.T) {
	h := NewHub()
	a := h.Subscribe()
	b := h.Subscribe()

	h.Publish(collector.Progress{RunID: "r1", Passes: 2, Leads: 5, State: "scanning"})

	for _, ch := range []chan collector.Progress{a, b} {
		select {
		case p := <-ch:
			if p.RunID != "r1" || p.Leads != 5 {
				t.Errorf("unexpected snapshot %+v", p)
			}
		default:
			t.Error("subscriber should have received the snapshot")
		}
	}
}

func TestHub_SlowSubscriberDropsEvents(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()

	// Fill the buffer and then some; overflow must be dropped, not block.
	for i := 0; i < cap(ch)+10; i++ {
		h.Publish(collector.Progress{Passes: i})
	}

	if len(ch) != cap(ch) {
		t.Errorf("expected a full buffer of %d, got %d", cap(ch), len(ch))
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	h.Unsubscribe(ch)

	if _, open := <-ch; open {
		t.Error("unsubscribed channel should be closed")
	}

	// A second unsubscribe must not panic on the already-closed channel.
	h.Unsubscribe(ch)

	// Publishing after unsubscribe must not panic either.
	h.Publish(collector.Progress{Passes: 1})
}
