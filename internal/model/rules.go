package model

import "errors"

// Participation transition errors. Each invalid transition carries its own
// user-facing reason.
var (
	ErrEventNotPublished    = errors.New("event is not open for participation")
	ErrOrganizerJoin        = errors.New("organizers cannot join their own event")
	ErrAlreadyParticipating = errors.New("already participating in this event")
	ErrNotParticipating     = errors.New("not participating in this event")
	ErrEventFull            = errors.New("event is full")
)

// Authorization errors.
var (
	ErrNotOrganizer  = errors.New("only the organizer may modify this event")
	ErrViewForbidden = errors.New("you may not view this event")
)

// CheckJoin validates the not-participant → participant transition for
// callerID. A nil return means the join may proceed.
func CheckJoin(ev *Event, callerID string) error {
	if ev.Status != StatusPublished {
		return ErrEventNotPublished
	}
	if callerID == ev.OrganizerID {
		return ErrOrganizerJoin
	}
	if ev.HasParticipant(callerID) {
		return ErrAlreadyParticipating
	}
	if ev.IsFull() {
		return ErrEventFull
	}
	return nil
}

// CheckLeave validates the participant → not-participant transition.
func CheckLeave(ev *Event, callerID string) error {
	if !ev.HasParticipant(callerID) {
		return ErrNotParticipating
	}
	return nil
}

// CanView reports whether callerID may read the event. Published events are
// visible to everyone; everything else only to the organizer. callerID may
// be empty for anonymous callers.
func CanView(ev *Event, callerID string) bool {
	if ev.Status == StatusPublished {
		return true
	}
	return callerID != "" && callerID == ev.OrganizerID
}

// CanMutate reports whether callerID may update or delete the event.
func CanMutate(ev *Event, callerID string) bool {
	return callerID != "" && callerID == ev.OrganizerID
}
