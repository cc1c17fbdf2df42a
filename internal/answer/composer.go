package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hmochat/internal/ai"
	"github.com/xxxsen/hmochat/internal/conversation"
	"github.com/xxxsen/hmochat/internal/monitor"
	appErr "github.com/xxxsen/hmochat/internal/pkg/errors"
	"github.com/xxxsen/hmochat/internal/retrieval"
)

type Retriever interface {
	Retrieve(ctx context.Context, query string) (*retrieval.Result, error)
}

var noMatchMessages = map[conversation.Language]string{
	conversation.LangEnglish: "I could not find relevant information about this question in the available documents. Please rephrase the question or ask about another topic.",
	conversation.LangHebrew:  "לא נמצא מידע רלוונטי לשאלה זו. אנא נסח את השאלה מחדש או שאל על נושא אחר.",
}

var languageNames = map[conversation.Language]string{
	conversation.LangEnglish: "English",
	conversation.LangHebrew:  "Hebrew",
}

// NoMatchMessage is the reply when no document passage clears the relevance floor.
func NoMatchMessage(lang conversation.Language) string {
	if msg, ok := noMatchMessages[lang]; ok {
		return msg
	}
	return noMatchMessages[conversation.LangEnglish]
}

// Composer answers a confirmed member's question from retrieved passages.
type Composer struct {
	retriever Retriever
	generator ai.IGenerator
	metrics   *monitor.Metrics
}

func NewComposer(retriever Retriever, generator ai.IGenerator, metrics *monitor.Metrics) *Composer {
	return &Composer{retriever: retriever, generator: generator, metrics: metrics}
}

// Answer never calls the model without grounding: a query with no match
// gets the fixed no-match reply. Retrieval sees only the question; the
// earlier exchanges reach the model as conversation context.
func (c *Composer) Answer(ctx context.Context, rec conversation.Record, lang conversation.Language, question string, history []conversation.Exchange) (string, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("language", string(lang)))
	res, err := c.retriever.Retrieve(ctx, question)
	if err != nil {
		logger.Error("retrieval failed", zap.Error(err))
		return "", err
	}
	if c.metrics != nil {
		c.metrics.RecordRAGQuery(ctx, res.BestScore, !res.NoMatch())
	}
	if res.NoMatch() {
		logger.Info("no relevant documents", zap.Float64("best_score", res.BestScore))
		return NoMatchMessage(lang), nil
	}

	prompt := buildPrompt(rec, lang, question, res.Chunks, history)
	start := time.Now()
	out, err := c.generator.Generate(ctx, prompt)
	if err == nil && strings.TrimSpace(out) == "" {
		err = fmt.Errorf("empty ai response")
	}
	if c.metrics != nil {
		c.metrics.RecordLLMCall(ctx, time.Since(start), err == nil)
	}
	if err != nil {
		logger.Error("answer generation failed", zap.Error(err))
		if errors.Is(err, appErr.ErrExternalService) {
			return "", err
		}
		return "", fmt.Errorf("%w: generate answer: %v", appErr.ErrExternalService, err)
	}
	return strings.TrimSpace(out), nil
}

func buildPrompt(rec conversation.Record, lang conversation.Language, question string, chunks []retrieval.ScoredChunk, history []conversation.Exchange) string {
	hmo := labelBoth(conversation.FieldHMO, rec.HMO())
	tier := labelBoth(conversation.FieldTier, rec.Tier())
	language, ok := languageNames[lang]
	if !ok {
		language = languageNames[conversation.LangEnglish]
	}

	var ctxText strings.Builder
	for i, ch := range chunks {
		if i > 0 {
			ctxText.WriteString("\n\n")
		}
		fmt.Fprintf(&ctxText, "[%d] (%s)\n%s", i+1, ch.Source.String(), ch.Text)
	}

	var histText strings.Builder
	if len(history) > 0 {
		histText.WriteString("CONVERSATION SO FAR:\n")
		for _, ex := range history {
			fmt.Fprintf(&histText, "Member: %s\nAssistant: %s\n", ex.Question, ex.Answer)
		}
		histText.WriteString("\n")
	}

	return fmt.Sprintf(`You are a customer service assistant for Israeli health funds (HMOs).
Answer the member's question using ONLY the information in CONTEXT.
- The member belongs to %s, membership tier %s. When benefits differ by HMO or tier, give the ones that apply to this member.
- If CONTEXT does not answer the question, say that the information is not in the available documents.
- Do not invent benefits, prices, discounts or phone numbers.
- Use CONVERSATION SO FAR only to understand follow-up questions; facts still come from CONTEXT.
- Answer in %s.

CONTEXT:
%s

%sQUESTION:
%s`, hmo, tier, language, ctxText.String(), histText.String(), question)
}

func labelBoth(f conversation.Field, key string) string {
	en := conversation.DisplayValue(f, key, conversation.LangEnglish)
	he := conversation.DisplayValue(f, key, conversation.LangHebrew)
	if en == he {
		return en
	}
	return fmt.Sprintf("%s (%s)", en, he)
}
