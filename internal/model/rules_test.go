package model

import (
	"errors"
	"testing"
)

func publishedEvent() *Event {
	return &Event{
		ID:           "e1",
		Status:       StatusPublished,
		OrganizerID:  "org",
		Participants: []string{},
	}
}

func TestCheckJoin_Valid(t *testing.T) {
	if err := CheckJoin(publishedEvent(), "alice"); err != nil {
		t.Fatalf("join should be allowed: %v", err)
	}
}

func TestCheckJoin_NotPublished(t *testing.T) {
	for _, status := range []string{StatusDraft, StatusCancelled, StatusCompleted} {
		e := publishedEvent()
		e.Status = status
		if err := CheckJoin(e, "alice"); !errors.Is(err, ErrEventNotPublished) {
			t.Errorf("status=%s: err=%v, want ErrEventNotPublished", status, err)
		}
	}
}

func TestCheckJoin_OrganizerSelfJoin(t *testing.T) {
	e := publishedEvent()
	if err := CheckJoin(e, "org"); !errors.Is(err, ErrOrganizerJoin) {
		t.Fatalf("err=%v, want ErrOrganizerJoin", err)
	}

	// Rejected regardless of capacity headroom.
	max := 100
	e.MaxParticipants = &max
	if err := CheckJoin(e, "org"); !errors.Is(err, ErrOrganizerJoin) {
		t.Fatalf("err=%v, want ErrOrganizerJoin", err)
	}
}

func TestCheckJoin_Duplicate(t *testing.T) {
	e := publishedEvent()
	e.Participants = []string{"alice"}
	if err := CheckJoin(e, "alice"); !errors.Is(err, ErrAlreadyParticipating) {
		t.Fatalf("err=%v, want ErrAlreadyParticipating", err)
	}
}

func TestCheckJoin_Full(t *testing.T) {
	max := 1
	e := publishedEvent()
	e.MaxParticipants = &max
	e.Participants = []string{"bob"}
	if err := CheckJoin(e, "alice"); !errors.Is(err, ErrEventFull) {
		t.Fatalf("err=%v, want ErrEventFull", err)
	}
}

func TestCheckJoin_NoCapacityLimit(t *testing.T) {
	e := publishedEvent()
	e.Participants = []string{"a", "b", "c"}
	if err := CheckJoin(e, "alice"); err != nil {
		t.Fatalf("unlimited event should accept joins: %v", err)
	}
}

func TestCheckLeave(t *testing.T) {
	e := publishedEvent()
	e.Participants = []string{"alice"}
	if err := CheckLeave(e, "alice"); err != nil {
		t.Fatalf("leave should be allowed: %v", err)
	}
	if err := CheckLeave(e, "bob"); !errors.Is(err, ErrNotParticipating) {
		t.Fatalf("err=%v, want ErrNotParticipating", err)
	}
}

func TestCanView(t *testing.T) {
	e := publishedEvent()
	if !CanView(e, "") || !CanView(e, "anyone") {
		t.Error("published events are visible to everyone")
	}

	e.Status = StatusDraft
	if !CanView(e, "org") {
		t.Error("organizer can view own draft")
	}
	if CanView(e, "bob") || CanView(e, "") {
		t.Error("drafts are invisible to non-organizers")
	}
}

func TestCanMutate(t *testing.T) {
	e := publishedEvent()
	if !CanMutate(e, "org") {
		t.Error("organizer can mutate")
	}
	if CanMutate(e, "bob") || CanMutate(e, "") {
		t.Error("only the organizer can mutate")
	}
}
