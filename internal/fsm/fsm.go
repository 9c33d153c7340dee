// Package fsm defines the dictation session states and their legal transitions.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StateTranscribing State = "transcribing"
	StateTyping       State = "typing"
)

const (
	EventStart       Event = "start"
	EventStop        Event = "stop"
	EventTranscribed Event = "transcribed"
	EventEmpty       Event = "empty"
	EventSilence     Event = "silence"
	EventTyped       Event = "typed"
	EventFail        Event = "fail"
)

func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateRecording, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecording:
		switch event {
		case EventStop:
			return StateTranscribing, nil
		case EventFail:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateTranscribing:
		switch event {
		case EventTranscribed:
			return StateTyping, nil
		case EventEmpty, EventSilence, EventFail:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateTyping:
		switch event {
		case EventTyped, EventFail:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Busy reports whether a session is past the recording edge and must run to completion.
func Busy(state State) bool {
	return state == StateTranscribing || state == StateTyping
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
