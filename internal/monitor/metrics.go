package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const (
	PhaseCollection = "collection"
	PhaseQA         = "qa"
)

type LLMCalls struct {
	Success       int64   `json:"success"`
	Failed        int64   `json:"failed"`
	TotalTimeMS   float64 `json:"total_time_ms"`
	AverageTimeMS float64 `json:"average_time_ms"`
}

type RAGQueries struct {
	Total             int64   `json:"total"`
	NoMatches         int64   `json:"no_matches"`
	AverageSimilarity float64 `json:"average_similarity"`
}

type PhaseStats struct {
	Success int64 `json:"success"`
	Failed  int64 `json:"failed"`
}

type Conversation struct {
	CollectionPhase PhaseStats       `json:"collection_phase"`
	QAPhase         PhaseStats       `json:"qa_phase"`
	LanguageStats   map[string]int64 `json:"language_stats"`
}

type Snapshot struct {
	LLMCalls     LLMCalls     `json:"llm_calls"`
	RAGQueries   RAGQueries   `json:"rag_queries"`
	Conversation Conversation `json:"conversation"`
	Since        int64        `json:"since"`
}

// Metrics is a process-wide set of counters, safe for concurrent use.
type Metrics struct {
	mu   sync.Mutex
	data Snapshot
	now  func() time.Time
}

func New() *Metrics {
	m := &Metrics{now: time.Now}
	m.reset()
	return m
}

func (m *Metrics) reset() {
	m.data = Snapshot{
		Conversation: Conversation{LanguageStats: map[string]int64{"he": 0, "en": 0}},
		Since:        m.now().Unix(),
	}
}

func (m *Metrics) RecordLLMCall(ctx context.Context, d time.Duration, success bool) {
	ms := float64(d) / float64(time.Millisecond)
	m.mu.Lock()
	c := &m.data.LLMCalls
	if success {
		c.Success++
	} else {
		c.Failed++
	}
	c.TotalTimeMS += ms
	c.AverageTimeMS = c.TotalTimeMS / float64(c.Success+c.Failed)
	avg := c.AverageTimeMS
	m.mu.Unlock()

	logutil.GetLogger(ctx).Info("llm call",
		zap.Duration("duration", d),
		zap.Bool("success", success),
		zap.Float64("average_time_ms", avg),
	)
}

// RecordRAGQuery folds the best similarity of a query into the running
// average.
func (m *Metrics) RecordRAGQuery(ctx context.Context, bestScore float64, matched bool) {
	m.mu.Lock()
	q := &m.data.RAGQueries
	q.Total++
	if !matched {
		q.NoMatches++
	}
	n := float64(q.Total)
	q.AverageSimilarity = (q.AverageSimilarity*(n-1) + bestScore) / n
	noMatchRate := float64(q.NoMatches) / n
	m.mu.Unlock()

	logutil.GetLogger(ctx).Info("rag query",
		zap.Float64("similarity", bestScore),
		zap.Bool("found_match", matched),
		zap.Float64("no_match_rate", noMatchRate),
	)
}

func (m *Metrics) RecordTurn(phase string, success bool, language string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &m.data.Conversation.CollectionPhase
	if phase == PhaseQA {
		stats = &m.data.Conversation.QAPhase
	}
	if success {
		stats.Success++
	} else {
		stats.Failed++
	}
	if language != "" {
		m.data.Conversation.LanguageStats[language]++
	}
}

func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.data
	out.Conversation.LanguageStats = make(map[string]int64, len(m.data.Conversation.LanguageStats))
	for k, v := range m.data.Conversation.LanguageStats {
		out.Conversation.LanguageStats[k] = v
	}
	return out
}

func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}
