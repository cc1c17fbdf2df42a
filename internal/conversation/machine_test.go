package conversation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustTransition(t *testing.T, s State, ev Event) State {
	t.Helper()
	next, err := Transition(s, ev)
	require.NoError(t, err)
	return next
}

func TestTransition_FullWalk(t *testing.T) {
	s := InitialState()
	require.Equal(t, PhaseLanguageSelect, s.Phase)

	s = mustTransition(t, s, Event{Kind: EventLanguageChosen, Language: LangHebrew})
	require.Equal(t, State{Phase: PhaseCollecting, Field: FieldFullName, Language: LangHebrew}, s)

	for _, f := range Fields() {
		require.Equal(t, PhaseCollecting, s.Phase)
		require.Equal(t, f, s.Field)
		s = mustTransition(t, s, Event{Kind: EventFieldRejected, Field: f})
		require.Equal(t, f, s.Field)
		s = mustTransition(t, s, Event{Kind: EventFieldAccepted, Field: f})
	}
	require.Equal(t, PhaseSummarizing, s.Phase)

	s = mustTransition(t, s, Event{Kind: EventCorrectionRequested, Field: FieldAge})
	require.Equal(t, State{Phase: PhaseCorrecting, Field: FieldAge, Language: LangHebrew}, s)
	s = mustTransition(t, s, Event{Kind: EventLanguageSwitched, Language: LangEnglish})
	require.Equal(t, State{Phase: PhaseCorrecting, Field: FieldAge, Language: LangEnglish}, s)
	s = mustTransition(t, s, Event{Kind: EventFieldAccepted, Field: FieldAge})
	require.Equal(t, PhaseSummarizing, s.Phase)

	s = mustTransition(t, s, Event{Kind: EventAffirmed})
	require.Equal(t, State{Phase: PhaseConfirmed, Language: LangEnglish}, s)
}

func TestTransition_RefusesIllegalEvents(t *testing.T) {
	collecting := State{Phase: PhaseCollecting, Field: FieldAge, Language: LangEnglish}
	summarizing := State{Phase: PhaseSummarizing, Language: LangEnglish}
	confirmed := State{Phase: PhaseConfirmed, Language: LangEnglish}

	cases := []struct {
		name string
		s    State
		ev   Event
	}{
		{"confirm while collecting", collecting, Event{Kind: EventAffirmed}},
		{"confirm before language", InitialState(), Event{Kind: EventAffirmed}},
		{"accept another field", collecting, Event{Kind: EventFieldAccepted, Field: FieldHMO}},
		{"accept in summary", summarizing, Event{Kind: EventFieldAccepted, Field: FieldAge}},
		{"switch during language select", InitialState(), Event{Kind: EventLanguageSwitched, Language: LangHebrew}},
		{"choose language twice", collecting, Event{Kind: EventLanguageChosen, Language: LangHebrew}},
		{"unknown language", InitialState(), Event{Kind: EventLanguageChosen, Language: "fr"}},
		{"correct after confirmation", confirmed, Event{Kind: EventCorrectionRequested, Field: FieldAge}},
		{"correct unknown field", summarizing, Event{Kind: EventCorrectionRequested, Field: fieldCount}},
		{"correct while collecting", collecting, Event{Kind: EventCorrectionRequested, Field: FieldAge}},
		{"unknown event", collecting, Event{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			next, err := Transition(c.s, c.ev)
			require.True(t, errors.Is(err, ErrIllegalTransition))
			require.Equal(t, c.s, next)
		})
	}
}

func TestTransition_LanguageSwitchKeepsPosition(t *testing.T) {
	for _, s := range []State{
		{Phase: PhaseCollecting, Field: FieldTier, Language: LangEnglish},
		{Phase: PhaseSummarizing, Language: LangEnglish},
		{Phase: PhaseConfirmed, Language: LangEnglish},
	} {
		next := mustTransition(t, s, Event{Kind: EventLanguageSwitched, Language: LangHebrew})
		require.Equal(t, s.Phase, next.Phase)
		require.Equal(t, s.Field, next.Field)
		require.Equal(t, LangHebrew, next.Language)
	}
}

func TestState_String(t *testing.T) {
	require.Equal(t, "COLLECTING(age)", State{Phase: PhaseCollecting, Field: FieldAge}.String())
	require.Equal(t, "SUMMARIZING", State{Phase: PhaseSummarizing, Field: FieldAge}.String())
	b, err := PhaseConfirmed.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "CONFIRMED", string(b))
}
