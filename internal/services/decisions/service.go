package decisions

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/militaernews/tarta/internal/domain/enums"
	"github.com/militaernews/tarta/internal/domain/model"
	"github.com/militaernews/tarta/internal/domain/token"
	pgrepo "github.com/militaernews/tarta/internal/repo/postgres"
)

var (
	ErrBadToken = token.ErrBadToken

	// ErrInternalState marks a token that references a report the store says
	// was never promoted to pending. Unreachable in normal operation.
	ErrInternalState = errors.New("decision for report in unexpected state")
)

type ReportStore interface {
	Resolve(ctx context.Context, id int64, outcome enums.Outcome) (model.Report, error)
}

type PromptChannel interface {
	EditPromptFinal(ctx context.Context, chatID, messageID int64, text string) error
}

// Banner is the external account-management side effect for banned subjects.
// Implementations must be idempotent: the decision handler runs at-least-once.
type Banner interface {
	BanSubject(ctx context.Context, subjectUserID int64) error
}

type BanCache interface {
	SetBanned(ctx context.Context, subjectUserID, reportID int64) error
}

type PromptRef struct {
	ChatID      int64
	MessageID   int64
	MessageText string
}

type Result struct {
	Report model.Report
	// AlreadyResolved is true when another decision won the race; Report then
	// carries the stored outcome, not the one this click requested.
	AlreadyResolved bool
}

type Service struct {
	store    ReportStore
	channel  PromptChannel
	banner   Banner
	banCache BanCache
	logger   *zap.Logger
}

func NewService(store ReportStore, channel PromptChannel, banner Banner, banCache BanCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:    store,
		channel:  channel,
		banner:   banner,
		banCache: banCache,
		logger:   logger,
	}
}

// Apply decodes a decision token, commits the decision, and converges the
// prompt to a single terminal display. Duplicate and conflicting clicks are
// absorbed: whatever outcome the store holds is what the prompt ends up
// showing.
func (s *Service) Apply(ctx context.Context, callbackData string, prompt PromptRef) (Result, error) {
	if s.store == nil {
		return Result{}, fmt.Errorf("report store is not configured")
	}

	decision, err := token.Decode(callbackData)
	if err != nil {
		return Result{}, err
	}

	report, err := s.store.Resolve(ctx, decision.ReportID, decision.Outcome)
	switch {
	case err == nil:
		s.applyBanSideEffects(ctx, report)
		s.editPrompt(ctx, prompt, report)
		return Result{Report: report}, nil

	case errors.Is(err, pgrepo.ErrAlreadyResolved):
		// Another decision won. Show the stored outcome, not the clicked one.
		s.editPrompt(ctx, prompt, report)
		return Result{Report: report, AlreadyResolved: true}, nil

	case errors.Is(err, pgrepo.ErrNotYetPending), errors.Is(err, pgrepo.ErrReportNotFound):
		s.logger.Error("decision token references report in unexpected state",
			zap.Int64("report_id", decision.ReportID),
			zap.Error(err),
		)
		return Result{}, ErrInternalState

	default:
		return Result{}, err
	}
}

// applyBanSideEffects runs only after the store transition has committed.
// Failures leave the report resolved and are logged; the remote ban endpoint
// is idempotent, so a later manual retry is safe.
func (s *Service) applyBanSideEffects(ctx context.Context, report model.Report) {
	if report.Outcome == nil || *report.Outcome != enums.OutcomeBanned {
		return
	}

	if s.banCache != nil {
		if err := s.banCache.SetBanned(ctx, report.SubjectUserID, report.ID); err != nil {
			s.logger.Warn("failed to cache banned subject",
				zap.Int64("subject_user_id", report.SubjectUserID),
				zap.Error(err),
			)
		}
	}

	if s.banner != nil {
		if err := s.banner.BanSubject(ctx, report.SubjectUserID); err != nil {
			s.logger.Error("account service ban failed after resolve committed",
				zap.Int64("report_id", report.ID),
				zap.Int64("subject_user_id", report.SubjectUserID),
				zap.Error(err),
			)
		}
	}
}

// editPrompt makes the prompt inert. The decision is already committed, so an
// edit failure only costs display consistency and is just logged.
func (s *Service) editPrompt(ctx context.Context, prompt PromptRef, report model.Report) {
	if s.channel == nil || prompt.ChatID == 0 || prompt.MessageID == 0 {
		return
	}

	if err := s.channel.EditPromptFinal(ctx, prompt.ChatID, prompt.MessageID, FinalPromptText(prompt.MessageText, report)); err != nil {
		s.logger.Warn("failed to edit resolved prompt",
			zap.Int64("report_id", report.ID),
			zap.Error(err),
		)
	}
}

func FinalPromptText(originalText string, report model.Report) string {
	suffix := "Report dismissed 🚫️"
	if report.Outcome != nil && *report.Outcome == enums.OutcomeBanned {
		suffix = "User banned ✅️"
	}
	if originalText == "" {
		return suffix
	}
	return originalText + "\n\n" + suffix
}
