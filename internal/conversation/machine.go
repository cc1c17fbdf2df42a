package conversation

import (
	"errors"
	"fmt"
)

type Phase int

const (
	PhaseLanguageSelect Phase = iota
	PhaseCollecting
	PhaseSummarizing
	PhaseCorrecting
	PhaseConfirmed
)

var phaseNames = map[Phase]string{
	PhaseLanguageSelect: "LANGUAGE_SELECT",
	PhaseCollecting:     "COLLECTING",
	PhaseSummarizing:    "SUMMARIZING",
	PhaseCorrecting:     "CORRECTING",
	PhaseConfirmed:      "CONFIRMED",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State is the position of a session in the dialogue. Field is meaningful
// only while collecting or correcting.
type State struct {
	Phase    Phase
	Field    Field
	Language Language
}

func (s State) String() string {
	switch s.Phase {
	case PhaseCollecting, PhaseCorrecting:
		return fmt.Sprintf("%s(%s)", s.Phase, s.Field)
	}
	return s.Phase.String()
}

// InitialState is where every session starts.
func InitialState() State {
	return State{Phase: PhaseLanguageSelect}
}

type EventKind int

const (
	EventLanguageChosen EventKind = iota + 1
	EventLanguageSwitched
	EventFieldAccepted
	EventFieldRejected
	EventAffirmed
	EventCorrectionRequested
)

type Event struct {
	Kind     EventKind
	Language Language
	Field    Field
}

var ErrIllegalTransition = errors.New("illegal transition")

func illegal(s State, ev Event) error {
	return fmt.Errorf("%w: event %d in %s", ErrIllegalTransition, ev.Kind, s)
}

// Transition is the whole dialogue: every state change goes through it and
// any event that does not fit the current state is refused.
func Transition(s State, ev Event) (State, error) {
	switch ev.Kind {
	case EventLanguageChosen:
		if s.Phase != PhaseLanguageSelect || !ev.Language.Valid() {
			return s, illegal(s, ev)
		}
		return State{Phase: PhaseCollecting, Field: FieldFullName, Language: ev.Language}, nil

	case EventLanguageSwitched:
		if s.Phase == PhaseLanguageSelect || !ev.Language.Valid() {
			return s, illegal(s, ev)
		}
		s.Language = ev.Language
		return s, nil

	case EventFieldAccepted:
		if !s.expects(ev.Field) {
			return s, illegal(s, ev)
		}
		if s.Phase == PhaseCorrecting || s.Field.last() {
			return State{Phase: PhaseSummarizing, Language: s.Language}, nil
		}
		s.Field++
		return s, nil

	case EventFieldRejected:
		if !s.expects(ev.Field) {
			return s, illegal(s, ev)
		}
		return s, nil

	case EventAffirmed:
		if s.Phase != PhaseSummarizing {
			return s, illegal(s, ev)
		}
		return State{Phase: PhaseConfirmed, Language: s.Language}, nil

	case EventCorrectionRequested:
		if s.Phase != PhaseSummarizing || !ev.Field.Valid() {
			return s, illegal(s, ev)
		}
		return State{Phase: PhaseCorrecting, Field: ev.Field, Language: s.Language}, nil
	}
	return s, illegal(s, ev)
}

func (s State) expects(f Field) bool {
	return (s.Phase == PhaseCollecting || s.Phase == PhaseCorrecting) && s.Field == f
}
