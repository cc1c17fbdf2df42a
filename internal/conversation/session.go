package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hmochat/internal/model"
	appErr "github.com/xxxsen/hmochat/internal/pkg/errors"
)

const defaultHistoryLimit = 5

// Exchange is one answered question of the Q&A phase.
type Exchange struct {
	Question string
	Answer   string
}

// Answerer answers questions once the record is confirmed. It receives a
// copy of the record and of the earlier exchanges, oldest first.
type Answerer interface {
	Answer(ctx context.Context, rec Record, lang Language, question string, history []Exchange) (string, error)
}

// Reply is what one turn produces for the user.
type Reply struct {
	Prompt    string
	Phase     Phase
	Field     string
	Language  Language
	Confirmed bool
	// Rejected is set when the turn's value failed its validator.
	Rejected *ValidationError
	// Answered is set when the turn was a question routed to the Answerer.
	Answered bool
}

// Session is one user's dialogue. Turns are serialized: a turn holds the
// session lock until its reply, including any answer, is ready.
type Session struct {
	mu       sync.Mutex
	id       string
	state    State
	record   Record
	turn     uint64
	ctime    time.Time
	mtime    time.Time
	answerer Answerer
	history  []Exchange
	maxHist  int
	now      func() time.Time
}

type SessionOption func(*Session)

func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

// WithHistoryLimit bounds how many earlier exchanges go with each
// question. Zero or less sends none.
func WithHistoryLimit(n int) SessionOption {
	return func(s *Session) {
		s.maxHist = n
	}
}

func NewSession(id string, answerer Answerer, opts ...SessionOption) *Session {
	s := &Session{
		id:       id,
		state:    InitialState(),
		answerer: answerer,
		maxHist:  defaultHistoryLimit,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctime = s.now()
	s.mtime = s.ctime
	return s
}

func (s *Session) ID() string {
	return s.id
}

// Greeting is the first prompt of a new session.
func (s *Session) Greeting() Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reply(LanguageQuestion())
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Record() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

func (s *Session) IsConfirmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Phase == PhaseConfirmed
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mtime
}

func (s *Session) View() model.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.SessionView{
		SessionID: s.id,
		Phase:     s.state.Phase.String(),
		Field:     s.currentField(),
		Language:  string(s.state.Language),
		Turn:      s.turn,
		Confirmed: s.state.Phase == PhaseConfirmed,
		Record:    s.record.Masked(),
		Ctime:     s.ctime.Unix(),
		Mtime:     s.mtime.Unix(),
	}
}

// Submit feeds one user message to the dialogue. Before confirmation it
// drives data collection; afterwards it is a question for the Answerer.
func (s *Session) Submit(ctx context.Context, raw string) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turn++
	s.mtime = s.now()
	from := s.state

	var (
		reply Reply
		err   error
	)
	switch s.state.Phase {
	case PhaseLanguageSelect:
		reply, err = s.chooseLanguage(raw)
	case PhaseCollecting, PhaseCorrecting:
		reply, err = s.collect(ctx, raw)
	case PhaseSummarizing:
		reply, err = s.confirm(raw)
	case PhaseConfirmed:
		reply, err = s.answer(ctx, raw)
	default:
		err = fmt.Errorf("session in unknown phase %s", s.state.Phase)
	}
	logutil.GetLogger(ctx).Debug("turn handled",
		zap.String("session_id", s.id),
		zap.Uint64("turn", s.turn),
		zap.String("from", from.String()),
		zap.String("to", s.state.String()),
		zap.String("language", string(s.state.Language)),
		zap.Error(err),
	)
	return reply, err
}

// Ask answers a question; it refuses until the record is confirmed.
func (s *Session) Ask(ctx context.Context, question string) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase != PhaseConfirmed {
		return s.reply(NotConfirmedMessage(s.state.Language)), appErr.ErrNotConfirmed
	}
	s.turn++
	s.mtime = s.now()
	return s.answer(ctx, question)
}

func (s *Session) chooseLanguage(raw string) (Reply, error) {
	lang, ok := ParseLanguageChoice(raw)
	if !ok {
		return s.reply(LanguageQuestion()), nil
	}
	if err := s.apply(Event{Kind: EventLanguageChosen, Language: lang}); err != nil {
		return Reply{}, err
	}
	return s.reply(welcome.in(lang) + "\n" + ValidatorFor(s.state.Field).Prompt(lang)), nil
}

func (s *Session) collect(ctx context.Context, raw string) (Reply, error) {
	field := s.state.Field
	v := ValidatorFor(field)
	value, verr := v.Validate(raw)
	if verr != nil {
		var ve *ValidationError
		if !errors.As(verr, &ve) {
			return Reply{}, verr
		}
		// an accepted value never switches language; a rejected one may
		if err := s.switchLanguage(raw); err != nil {
			return Reply{}, err
		}
		if err := s.apply(Event{Kind: EventFieldRejected, Field: field}); err != nil {
			return Reply{}, err
		}
		logutil.GetLogger(ctx).Info("field rejected",
			zap.String("session_id", s.id),
			zap.String("field", field.String()),
			zap.String("reason", string(ve.Reason)),
		)
		r := s.reply(renderRetry(v, ve.Reason, s.state.Language))
		r.Rejected = ve
		return r, nil
	}
	s.record.set(field, value)
	if err := s.apply(Event{Kind: EventFieldAccepted, Field: field}); err != nil {
		return Reply{}, err
	}
	if s.state.Phase == PhaseSummarizing {
		return s.reply(renderSummary(s.record, s.state.Language)), nil
	}
	return s.reply(ValidatorFor(s.state.Field).Prompt(s.state.Language)), nil
}

func (s *Session) confirm(raw string) (Reply, error) {
	if err := s.switchLanguage(raw); err != nil {
		return Reply{}, err
	}
	lang := s.state.Language
	verdict := classifyConfirmation(raw)
	if verdict == confirmYes {
		if !s.record.Complete() {
			return Reply{}, fmt.Errorf("%w: confirming an incomplete record", ErrIllegalTransition)
		}
		if err := s.apply(Event{Kind: EventAffirmed}); err != nil {
			return Reply{}, err
		}
		return s.reply(confirmedMessage.in(lang)), nil
	}
	if field, ok := namedField(raw); ok {
		if err := s.apply(Event{Kind: EventCorrectionRequested, Field: field}); err != nil {
			return Reply{}, err
		}
		return s.reply(renderCorrection(field, lang)), nil
	}
	if verdict == confirmNo {
		return s.reply(whichField.in(lang)), nil
	}
	return s.reply(renderSummary(s.record, lang)), nil
}

func (s *Session) answer(ctx context.Context, question string) (Reply, error) {
	question = strings.TrimSpace(question)
	if err := s.switchLanguage(question); err != nil {
		return Reply{}, err
	}
	if s.answerer == nil {
		return Reply{}, fmt.Errorf("no answerer configured")
	}
	history := append([]Exchange(nil), s.history...)
	out, err := s.answerer.Answer(ctx, s.record, s.state.Language, question, history)
	if err != nil {
		return s.reply(""), err
	}
	s.remember(Exchange{Question: question, Answer: out})
	r := s.reply(out)
	r.Answered = true
	return r, nil
}

func (s *Session) remember(ex Exchange) {
	if s.maxHist <= 0 {
		return
	}
	s.history = append(s.history, ex)
	if over := len(s.history) - s.maxHist; over > 0 {
		s.history = append([]Exchange(nil), s.history[over:]...)
	}
}

// switchLanguage follows the script the user writes in. Text with no
// dominant script keeps the current language.
func (s *Session) switchLanguage(raw string) error {
	lang, ok := DetectLanguage(raw)
	if !ok || lang == s.state.Language {
		return nil
	}
	return s.apply(Event{Kind: EventLanguageSwitched, Language: lang})
}

func (s *Session) apply(ev Event) error {
	next, err := Transition(s.state, ev)
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *Session) currentField() string {
	switch s.state.Phase {
	case PhaseCollecting, PhaseCorrecting:
		return s.state.Field.String()
	}
	return ""
}

func (s *Session) reply(prompt string) Reply {
	return Reply{
		Prompt:    prompt,
		Phase:     s.state.Phase,
		Field:     s.currentField(),
		Language:  s.state.Language,
		Confirmed: s.state.Phase == PhaseConfirmed,
	}
}
