package sweep

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/militaernews/tarta/internal/domain/enums"
	"github.com/militaernews/tarta/internal/domain/model"
	"github.com/militaernews/tarta/internal/domain/token"
	tginfra "github.com/militaernews/tarta/internal/infra/telegram"
)

type ReportStore interface {
	ClaimUnsetBatch(ctx context.Context) ([]model.Report, error)
	ListUndelivered(ctx context.Context) ([]model.Report, error)
	MarkNotified(ctx context.Context, id, chatID, messageID int64) error
}

type PromptChannel interface {
	SendPrompt(ctx context.Context, chatID int64, text string, affordances [][]tginfra.Affordance) (int64, error)
}

// Job dispatches moderator prompts for unresolved reports. Each run first
// retries pending reports whose prompt never got delivered, then claims the
// current unset batch. Claiming is a single atomic store operation, so
// overlapping runs against the same store never prompt a report twice.
type Job struct {
	store   ReportStore
	channel PromptChannel
	chatID  int64
	logger  *zap.Logger
}

func New(store ReportStore, channel PromptChannel, moderationChatID int64, logger *zap.Logger) *Job {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		store:   store,
		channel: channel,
		chatID:  moderationChatID,
		logger:  logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.store == nil || j.channel == nil {
		return nil
	}
	if j.chatID == 0 {
		return fmt.Errorf("moderation chat id is not configured")
	}

	undelivered, err := j.store.ListUndelivered(ctx)
	if err != nil {
		return fmt.Errorf("list undelivered reports: %w", err)
	}
	j.dispatch(ctx, undelivered, true)

	claimed, err := j.store.ClaimUnsetBatch(ctx)
	if err != nil {
		return fmt.Errorf("claim unset reports: %w", err)
	}
	j.dispatch(ctx, claimed, false)

	return nil
}

// dispatch sends prompts sequentially oldest-first to keep a stable ordering
// in the moderator channel. A channel failure leaves the report pending and
// undelivered; the next run picks it up again. Store failures abort only the
// current item.
func (j *Job) dispatch(ctx context.Context, reports []model.Report, retry bool) {
	for _, report := range reports {
		messageID, err := j.channel.SendPrompt(ctx, j.chatID, PromptText(report), PromptAffordances(report.ID))
		if err != nil {
			j.logger.Warn("failed to dispatch moderator prompt",
				zap.Int64("report_id", report.ID),
				zap.Bool("retry", retry),
				zap.Error(err),
			)
			continue
		}

		if err := j.store.MarkNotified(ctx, report.ID, j.chatID, messageID); err != nil {
			j.logger.Warn("failed to record prompt handle",
				zap.Int64("report_id", report.ID),
				zap.Error(err),
			)
		}
	}
}

func PromptText(report model.Report) string {
	return fmt.Sprintf("📋 %d - ✍️ %d - 🧑 %d\n\n%s",
		report.ID, report.ReporterAccountID, report.SubjectUserID, report.Message)
}

func PromptAffordances(reportID int64) [][]tginfra.Affordance {
	return [][]tginfra.Affordance{
		{{Label: "Ban user ✅️", Data: token.Encode(reportID, enums.OutcomeBanned)}},
		{{Label: "Dismiss report 🚫", Data: token.Encode(reportID, enums.OutcomeDismissed)}},
	}
}
