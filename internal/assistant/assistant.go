// Package assistant assembles the prompt for every question: system
// instruction, the user's recent turns and a block of live search results.
package assistant

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"search-chatter/internal/history"
	"search-chatter/internal/llm"
	"search-chatter/internal/search"
	"search-chatter/internal/storage"
)

type Assistant struct {
	llm          llm.Client
	searcher     search.Searcher
	history      *history.Manager
	recorder     storage.Recorder
	systemPrompt string
	maxResults   int
	logger       *zap.Logger
	now          func() time.Time
}

type Option func(*Assistant)

// WithRecorder enables the interaction log.
func WithRecorder(r storage.Recorder) Option {
	return func(a *Assistant) { a.recorder = r }
}

func New(client llm.Client, searcher search.Searcher, h *history.Manager, systemPrompt string, maxResults int, logger *zap.Logger, opts ...Option) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Assistant{
		llm:          client,
		searcher:     searcher,
		history:      h,
		systemPrompt: systemPrompt,
		maxResults:   maxResults,
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ComposeQuestion embeds search results into the question. Without results the
// question is returned unchanged.
func ComposeQuestion(question string, results []search.Result) string {
	if len(results) == 0 {
		return question
	}
	return fmt.Sprintf("Вопрос: %s\n\n🌐 Актуальная информация из интернета:\n\n%s\n\nОтветь на вопрос используя эту информацию.",
		question, search.FormatResults(results))
}

// BuildPrompt returns the messages that would be sent for question without
// touching the history.
func (a *Assistant) BuildPrompt(userID int64, question string, results []search.Result) []llm.Message {
	turn := llm.Message{Role: llm.RoleUser, Content: ComposeQuestion(question, results)}
	window := a.history.Window(userID, turn)
	msgs := make([]llm.Message, 0, len(window)+1)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: a.systemPrompt})
	return append(msgs, window...)
}

// Ask answers question for userID. It never returns an error: failures are
// turned into a message for the user and leave the history untouched.
func (a *Assistant) Ask(ctx context.Context, userID int64, question string) string {
	unlock := a.history.Lock(userID)
	defer unlock()

	results := a.search(ctx, userID, question)
	msgs := a.BuildPrompt(userID, question, results)
	turn := msgs[len(msgs)-1]

	a.logger.Debug("llm request",
		zap.Int64("user_id", userID),
		zap.Int("messages", len(msgs)),
		zap.Int("search_results", len(results)))

	resp, err := a.llm.Generate(ctx, msgs)
	if err != nil {
		a.logger.Error("completion failed", zap.Int64("user_id", userID), zap.Error(err))
		return fmt.Sprintf("⚠️ Ошибка: %v", err)
	}

	a.logger.Info("llm response",
		zap.Int64("user_id", userID),
		zap.String("model", resp.Model),
		zap.Int("prompt_tokens", resp.PromptTokens),
		zap.Int("completion_tokens", resp.CompletionTokens),
		zap.Int("total_tokens", resp.TotalTokens))

	a.history.Append(userID, turn)
	a.history.AppendAssistant(userID, resp.Content)

	if a.recorder != nil {
		ev := storage.Event{
			Timestamp:     a.now().UTC(),
			UserID:        userID,
			Question:      question,
			Answer:        resp.Content,
			SearchResults: len(results),
			Model:         resp.Model,
			TotalTokens:   resp.TotalTokens,
		}
		if err := a.recorder.AppendInteraction(ev); err != nil {
			a.logger.Warn("failed to record interaction", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return resp.Content
}

// search treats a failing backend as zero results.
func (a *Assistant) search(ctx context.Context, userID int64, question string) []search.Result {
	if a.searcher == nil {
		return nil
	}
	results, err := a.searcher.Search(ctx, question, a.maxResults)
	if err != nil {
		a.logger.Warn("web search failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil
	}
	if a.maxResults > 0 && len(results) > a.maxResults {
		results = results[:a.maxResults]
	}
	return results
}

func (a *Assistant) Reset(userID int64) {
	a.history.Reset(userID)
}

// Stats reports the number of user questions and total turns in the window.
func (a *Assistant) Stats(userID int64) (questions, turns int) {
	hist := a.history.Get(userID)
	for _, m := range hist {
		if m.Role == llm.RoleUser {
			questions++
		}
	}
	return questions, len(hist)
}

func (a *Assistant) ActiveDialogs() int {
	return a.history.Sessions()
}
