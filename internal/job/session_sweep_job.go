package job

import (
	"context"

	"github.com/xxxsen/hmochat/internal/service"
)

// SessionSweepJob drops conversation sessions that have been idle too long.
type SessionSweepJob struct {
	chat *service.ChatService
}

func NewSessionSweepJob(chat *service.ChatService) *SessionSweepJob {
	return &SessionSweepJob{chat: chat}
}

func (j *SessionSweepJob) Name() string {
	return "session_sweep"
}

func (j *SessionSweepJob) Run(ctx context.Context) error {
	if j.chat == nil {
		return nil
	}
	j.chat.SweepIdle(ctx)
	return nil
}
