package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"search-chatter/internal/admin"
	"search-chatter/internal/assistant"
	"search-chatter/internal/bootstrap"
	"search-chatter/internal/broadcast"
	"search-chatter/internal/config"
	"search-chatter/internal/history"
	"search-chatter/internal/llm"
	"search-chatter/internal/scheduler"
	"search-chatter/internal/search"
	"search-chatter/internal/storage"
	"search-chatter/internal/subscription"
	"search-chatter/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := bootstrap.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := bootstrap.OpenStore(ctx, &cfg.Store)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err), zap.String("backend", string(cfg.Store.Backend)))
	}
	defer st.Close()

	llmClient, err := llm.NewFactory(cfg).CreateClient(string(cfg.LLMProvider), cfg.OpenAIModel)
	if err != nil {
		logger.Fatal("failed to create llm client", zap.Error(err))
	}

	var rec *storage.FileRecorder
	if cfg.InteractionLogPath != "" {
		rec, err = storage.NewFileRecorder(cfg.InteractionLogPath)
		if err != nil {
			logger.Warn("interaction log disabled", zap.Error(err))
		}
	}

	var opts []assistant.Option
	var interactions admin.InteractionSource
	if rec != nil {
		opts = append(opts, assistant.WithRecorder(rec))
		interactions = rec
	}

	asst := assistant.New(
		llmClient,
		search.NewDuckDuckGo(cfg.SearchBaseURL, cfg.SearchTimeout),
		history.NewManager(cfg.HistoryLimit),
		readSystemPrompt(cfg.SystemPromptPath, cfg.SystemPrompt, logger),
		cfg.SearchMaxResults,
		logger.Named("assistant"),
		opts...,
	)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		logger.Fatal("failed to create bot api", zap.Error(err))
	}

	adminSvc := admin.NewService(st, asst, cfg.AdminIDs, logger.Named("admin"))
	bot := telegram.New(api, telegram.Deps{
		Assistant:  asst,
		Gate:       subscription.NewGate(st, telegram.NewMembershipChecker(api), logger.Named("gate")),
		Admin:      adminSvc,
		Dispatcher: broadcast.NewDispatcher(st, cfg.BroadcastDelay, logger.Named("broadcast")),
		Users:      st,
		Stats:      st,
		Logger:     logger.Named("telegram"),
	})

	sched := scheduler.New(cfg.ReportCron, logger.Named("scheduler"))
	if len(cfg.AdminIDs) > 0 {
		sched.SetReportFunction(func(ctx context.Context) error {
			report, err := adminSvc.DailyReport(ctx, time.Now(), interactions)
			if err != nil {
				return err
			}
			bot.NotifyAdmins(report)
			return nil
		})
		if err := sched.Start(); err != nil {
			logger.Error("failed to start scheduler", zap.Error(err))
		}
		defer sched.Stop()
	}

	logger.Info("bot running",
		zap.String("llm_provider", string(cfg.LLMProvider)),
		zap.String("store", string(cfg.Store.Backend)),
		zap.Int("admins", len(cfg.AdminIDs)))
	bot.Start(ctx)
	logger.Info("bot stopped")
}

// readSystemPrompt prefers the prompt file when one is configured.
func readSystemPrompt(path, fallback string, logger *zap.Logger) string {
	if path == "" {
		return fallback
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("system prompt file unreadable, using default", zap.String("path", path), zap.Error(err))
		return fallback
	}
	if s := strings.TrimSpace(string(data)); s != "" {
		return s
	}
	return fallback
}
