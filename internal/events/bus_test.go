package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type recordingNotifier struct {
	seen []Event
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, ev Event) error {
	n.seen = append(n.seen, ev)
	return n.err
}

func TestEmitRecordsAndNotifies(t *testing.T) {
	recorder := &MemoryRecorder{}
	notifier := &recordingNotifier{}
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	bus := &Bus{Recorder: recorder, Notifiers: []Notifier{notifier}, Now: func() time.Time { return fixed }}

	ev, err := bus.Emit(context.Background(), TopicCheckoutSucceeded, "order-1", map[string]any{"total": "38.47"})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if ev.OccurredAt != fixed {
		t.Fatalf("occurred at = %v, want %v", ev.OccurredAt, fixed)
	}
	if got := recorder.Events(); len(got) != 1 || got[0].Topic != TopicCheckoutSucceeded {
		t.Fatalf("recorder state = %+v", got)
	}
	if len(notifier.seen) != 1 {
		t.Fatalf("notifier saw %d events, want 1", len(notifier.seen))
	}
	var payload map[string]string
	if err := json.Unmarshal(ev.Payload, &payload); err != nil || payload["total"] != "38.47" {
		t.Fatalf("payload = %s (err %v)", ev.Payload, err)
	}
}

func TestEmitJoinsNotifierErrors(t *testing.T) {
	failing := &recordingNotifier{err: errors.New("sink down")}
	healthy := &recordingNotifier{}
	bus := &Bus{Notifiers: []Notifier{failing, healthy}}

	_, err := bus.Emit(context.Background(), TopicCheckoutFailed, "order-2", nil)
	if err == nil {
		t.Fatal("expected joined notifier error")
	}
	if len(healthy.seen) != 1 {
		t.Fatal("healthy notifier must still receive the event")
	}
}

func TestEmitRejectsBadInput(t *testing.T) {
	bus := &Bus{}
	if _, err := bus.Emit(context.Background(), "", "agg", nil); err == nil {
		t.Fatal("empty topic accepted")
	}
	if _, err := bus.Emit(context.Background(), TopicPromoApplied, " ", nil); err == nil {
		t.Fatal("empty aggregate accepted")
	}
	if _, err := bus.Emit(context.Background(), TopicPromoApplied, "agg", json.RawMessage("{broken")); err == nil {
		t.Fatal("invalid json accepted")
	}
}
