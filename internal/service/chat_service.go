package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hmochat/internal/conversation"
	"github.com/xxxsen/hmochat/internal/model"
	"github.com/xxxsen/hmochat/internal/monitor"
	appErr "github.com/xxxsen/hmochat/internal/pkg/errors"
)

var ErrMessageTooLong = fmt.Errorf("%w: message too long", appErr.ErrInvalid)

type ChatServiceConfig struct {
	IdleTimeout     time.Duration
	MaxMessageChars int
	// HistoryTurns overrides the session's Q&A history bound when non-zero.
	HistoryTurns int
}

// ChatService owns the live conversation sessions. Sessions share nothing
// but the answerer, which only reads the index.
type ChatService struct {
	mu       sync.RWMutex
	sessions map[string]*conversation.Session
	answerer conversation.Answerer
	metrics  *monitor.Metrics
	cfg      ChatServiceConfig
	now      func() time.Time
}

func NewChatService(answerer conversation.Answerer, metrics *monitor.Metrics, cfg ChatServiceConfig) *ChatService {
	return &ChatService{
		sessions: make(map[string]*conversation.Session),
		answerer: answerer,
		metrics:  metrics,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *ChatService) Create(ctx context.Context) (*model.TurnReply, error) {
	id := uuid.NewString()
	opts := []conversation.SessionOption{conversation.WithClock(s.now)}
	if s.cfg.HistoryTurns != 0 {
		opts = append(opts, conversation.WithHistoryLimit(s.cfg.HistoryTurns))
	}
	sess := conversation.NewSession(id, s.answerer, opts...)
	s.mu.Lock()
	s.sessions[id] = sess
	total := len(s.sessions)
	s.mu.Unlock()
	logutil.GetLogger(ctx).Info("session created", zap.String("session_id", id), zap.Int("sessions", total))
	return toTurnReply(id, sess.Greeting()), nil
}

func (s *ChatService) Submit(ctx context.Context, sessionID string, text string) (*model.TurnReply, error) {
	if err := s.checkLength(text); err != nil {
		return nil, err
	}
	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	reply, err := sess.Submit(ctx, text)
	s.recordTurn(reply, err)
	if err != nil {
		return nil, err
	}
	return toTurnReply(sessionID, reply), nil
}

func (s *ChatService) Ask(ctx context.Context, sessionID string, question string) (*model.TurnReply, error) {
	if err := s.checkLength(question); err != nil {
		return nil, err
	}
	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	reply, err := sess.Ask(ctx, question)
	if errors.Is(err, appErr.ErrNotConfirmed) {
		return nil, err
	}
	s.recordTurn(reply, err)
	if err != nil {
		return nil, err
	}
	return toTurnReply(sessionID, reply), nil
}

func (s *ChatService) State(ctx context.Context, sessionID string) (*model.SessionView, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	view := sess.View()
	return &view, nil
}

// SweepIdle drops sessions with no activity for longer than the idle
// timeout and returns how many were dropped.
func (s *ChatService) SweepIdle(ctx context.Context) int {
	if s.cfg.IdleTimeout <= 0 {
		return 0
	}
	deadline := s.now().Add(-s.cfg.IdleTimeout)
	s.mu.Lock()
	var expired []string
	for id, sess := range s.sessions {
		if sess.LastActive().Before(deadline) {
			expired = append(expired, id)
			delete(s.sessions, id)
		}
	}
	remaining := len(s.sessions)
	s.mu.Unlock()
	logger := logutil.GetLogger(ctx)
	for _, id := range expired {
		logger.Info("session expired", zap.String("session_id", id))
	}
	if len(expired) > 0 {
		logger.Info("idle sessions swept", zap.Int("expired", len(expired)), zap.Int("remaining", remaining))
	}
	return len(expired)
}

func (s *ChatService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *ChatService) get(id string) (*conversation.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return sess, nil
}

func (s *ChatService) checkLength(text string) error {
	if s.cfg.MaxMessageChars > 0 && utf8.RuneCountInString(text) > s.cfg.MaxMessageChars {
		return ErrMessageTooLong
	}
	return nil
}

func (s *ChatService) recordTurn(reply conversation.Reply, err error) {
	if s.metrics == nil {
		return
	}
	lang := string(reply.Language)
	switch {
	case reply.Answered:
		s.metrics.RecordTurn(monitor.PhaseQA, true, lang)
	case err != nil:
		if reply.Phase == conversation.PhaseConfirmed {
			s.metrics.RecordTurn(monitor.PhaseQA, false, lang)
		}
	default:
		s.metrics.RecordTurn(monitor.PhaseCollection, reply.Rejected == nil, lang)
	}
}

func toTurnReply(sessionID string, r conversation.Reply) *model.TurnReply {
	return &model.TurnReply{
		SessionID: sessionID,
		Prompt:    r.Prompt,
		Phase:     r.Phase.String(),
		Field:     r.Field,
		Language:  string(r.Language),
		Confirmed: r.Confirmed,
	}
}
