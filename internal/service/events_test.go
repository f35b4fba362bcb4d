package service

import (
	"testing"

	"voicebatch/internal/core/domain"
)

func TestEventBus_AssignsSequenceAndTimestamp(t *testing.T) {
	bus := NewEventBus(10)

	first := bus.Publish(Event{Type: EventTypeProgress})
	second := bus.Publish(Event{Type: EventTypeSummary})

	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("unexpected sequences: %d, %d", first.Seq, second.Seq)
	}
	if first.Timestamp.IsZero() || second.Timestamp.IsZero() {
		t.Fatal("timestamps must be assigned")
	}
}

func TestEventBus_SinceIsStrictlyGreater(t *testing.T) {
	bus := NewEventBus(10)
	for i := 0; i < 5; i++ {
		bus.Publish(Event{Type: EventTypeProgress})
	}

	events := bus.Since(3)
	if len(events) != 2 {
		t.Fatalf("expected 2 events after seq 3, got %d", len(events))
	}
	if events[0].Seq != 4 || events[1].Seq != 5 {
		t.Fatalf("unexpected sequences: %d, %d", events[0].Seq, events[1].Seq)
	}

	if got := bus.Since(5); got != nil && len(got) != 0 {
		t.Fatalf("expected no events after latest seq, got %d", len(got))
	}
}

func TestEventBus_TrimsToCapacity(t *testing.T) {
	bus := NewEventBus(3)
	for i := 0; i < 10; i++ {
		bus.Publish(Event{Type: EventTypeProgress})
	}

	events := bus.Since(0)
	if len(events) != 3 {
		t.Fatalf("expected 3 retained events, got %d", len(events))
	}
	if events[0].Seq != 8 {
		t.Fatalf("expected oldest retained seq 8, got %d", events[0].Seq)
	}
}

func TestEventBus_CarriesProgressPayload(t *testing.T) {
	bus := NewEventBus(10)
	progress := domain.Progress{
		Index: 1,
		Total: 3,
		Job:   domain.ConversionJob{ID: "j1", Status: domain.JobStatusSucceeded},
	}
	bus.Publish(Event{SessionID: "s1", Type: EventTypeProgress, Progress: &progress})

	events := bus.Since(0)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	got := events[0]
	if got.SessionID != "s1" || got.Progress == nil || got.Progress.Job.ID != "j1" {
		t.Fatalf("unexpected event: %+v", got)
	}
}
