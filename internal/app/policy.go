package app

import "github.com/dkeye/Lobby/internal/domain"

type BackpressureAction int

const (
	// DropSubscription ends the subscription; its owner re-subscribes and
	// fetches a fresh snapshot.
	DropSubscription BackpressureAction = iota
	// SkipEvent drops only this event; the receiver sees a version gap and
	// resyncs from a snapshot.
	SkipEvent
)

// Policy decides what happens when a subscriber's queue is full.
type Policy interface {
	OnBackPressure(code domain.SessionCode, subscription string) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(domain.SessionCode, string) BackpressureAction {
	return DropSubscription
}

type SkipPolicy struct{}

func (SkipPolicy) OnBackPressure(domain.SessionCode, string) BackpressureAction {
	return SkipEvent
}

// PolicyByName maps the config value to a Policy.
func PolicyByName(name string) Policy {
	switch name {
	case "skip_event":
		return SkipPolicy{}
	default:
		return SimplePolicy{}
	}
}
