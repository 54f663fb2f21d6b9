package botapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/militaernews/tarta/internal/config"
	tginfra "github.com/militaernews/tarta/internal/infra/telegram"
	"github.com/militaernews/tarta/internal/jobs/sweep"
	pgrepo "github.com/militaernews/tarta/internal/repo/postgres"
	redrepo "github.com/militaernews/tarta/internal/repo/redis"
	accountsvc "github.com/militaernews/tarta/internal/services/accounts"
	decisionsvc "github.com/militaernews/tarta/internal/services/decisions"
)

type App struct {
	cfg             config.Config
	logger          *zap.Logger
	postgres        *pgxpool.Pool
	redis           *goredis.Client
	bot             *tginfra.Bot
	sweepJob        *sweep.Job
	decisionService *decisionsvc.Service
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for bot app: %w", err)
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	reportRepo := pgrepo.NewReportRepo(pool)
	banCacheRepo := redrepo.NewBanCacheRepo(redisClient)
	accountClient := accountsvc.NewClient(cfg.Accounts.BaseURL, cfg.Accounts.Token, cfg.Accounts.Timeout)
	if cfg.Accounts.BaseURL == "" {
		logger.Warn("ACCOUNTS_BASE_URL is empty, ban side effects disabled")
	}

	var bot *tginfra.Bot
	if strings.TrimSpace(cfg.Bot.Token) != "" {
		bot, err = tginfra.NewBot(cfg.Bot.Token)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init telegram bot: %w", err)
		}
	} else {
		logger.Warn("BOT_TOKEN is empty, sweep and callback listener disabled")
	}

	var sweepJob *sweep.Job
	var decisionService *decisionsvc.Service
	if bot != nil {
		sweepJob = sweep.New(reportRepo, bot, cfg.Bot.ModerationChatID, logger)
		decisionService = decisionsvc.NewService(reportRepo, bot, accountClient, banCacheRepo, logger)
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		postgres:        pool,
		redis:           redisClient,
		bot:             bot,
		sweepJob:        sweepJob,
		decisionService: decisionService,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("bot app started")

	errCh := make(chan error, 2)
	go func() {
		errCh <- a.runSweepLoop(ctx)
	}()

	if a.bot != nil {
		go func() {
			errCh <- a.bot.Listen(ctx, tginfra.Handlers{
				OnCommand:  a.handleCommand,
				OnCallback: a.handleCallback,
			})
		}()
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("bot app stopped")
			return nil
		case err := <-errCh:
			if err == nil || errors.Is(err, context.Canceled) {
				continue
			}
			return err
		}
	}
}

// runSweepLoop drives the notifier sweep on a fixed interval. Ticks never
// overlap: a run that stalls on a slow dispatch simply delays the next one.
func (a *App) runSweepLoop(ctx context.Context) error {
	if a.sweepJob == nil {
		return nil
	}

	interval := a.cfg.Bot.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	if err := a.sweepJob.Run(ctx); err != nil {
		a.logger.Error("sweep run failed", zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.sweepJob.Run(ctx); err != nil {
				a.logger.Error("sweep run failed", zap.Error(err))
			}
		}
	}
}

func (a *App) handleCommand(ctx context.Context, update tginfra.CommandUpdate) error {
	if a.bot == nil {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(update.Command)) {
	case "start":
		return a.bot.SendText(ctx, update.ChatID, "Moderation relay is running. Report prompts arrive in the moderation channel.")
	default:
		return nil
	}
}

// handleCallback applies a moderator decision. Expected races (double clicks,
// conflicting clicks on stale renders) are absorbed by the decision service;
// only transport and internal-consistency failures surface here, and none of
// them should kill the listener.
func (a *App) handleCallback(ctx context.Context, update tginfra.CallbackUpdate) error {
	if a.bot == nil || a.decisionService == nil {
		return nil
	}

	result, err := a.decisionService.Apply(ctx, update.Data, decisionsvc.PromptRef{
		ChatID:      update.ChatID,
		MessageID:   update.MessageID,
		MessageText: update.MessageText,
	})
	if err != nil {
		switch {
		case errors.Is(err, decisionsvc.ErrBadToken):
			a.logger.Warn("dropping malformed decision token",
				zap.String("data", update.Data),
				zap.Int64("moderator_id", update.UserID),
			)
			return a.bot.AnswerCallback(ctx, update.CallbackID, "Unknown action")
		case errors.Is(err, decisionsvc.ErrInternalState):
			return a.bot.AnswerCallback(ctx, update.CallbackID, "Report is not ready for a decision")
		default:
			a.logger.Error("decision apply failed", zap.Error(err))
			return a.bot.AnswerCallback(ctx, update.CallbackID, "Decision failed, try again")
		}
	}

	notice := "Decision recorded"
	if result.AlreadyResolved {
		notice = "Already decided"
	}
	return a.bot.AnswerCallback(ctx, update.CallbackID, notice)
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
