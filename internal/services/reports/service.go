package reports

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/militaernews/tarta/internal/domain/enums"
	"github.com/militaernews/tarta/internal/domain/model"
	pgrepo "github.com/militaernews/tarta/internal/repo/postgres"
)

const submitWindow = time.Minute

var (
	ErrInvalidInput    = errors.New("invalid report submission")
	ErrRateLimited     = errors.New("report submission rate limited")
	ErrNotFound        = errors.New("no banned report for subject")
	ErrTempUnavailable = errors.New("report service temporarily unavailable")
)

type ReportStore interface {
	Create(ctx context.Context, draft pgrepo.ReportDraft) (model.Report, error)
	GetByID(ctx context.Context, id int64) (model.Report, error)
	LatestBannedBySubject(ctx context.Context, subjectUserID int64) (model.Report, error)
}

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type BanCache interface {
	GetBannedReportID(ctx context.Context, subjectUserID int64) (int64, bool, error)
	SetBanned(ctx context.Context, subjectUserID, reportID int64) error
}

type Config struct {
	MaxPerMinute int
}

type Service struct {
	store        ReportStore
	windows      WindowStore
	banCache     BanCache
	maxPerMinute int
}

type SubmitInput struct {
	Message           string
	SubjectUserID     int64
	ReporterAccountID int64
}

func NewService(store ReportStore, windows WindowStore, banCache BanCache, cfg Config) *Service {
	if cfg.MaxPerMinute < 0 {
		cfg.MaxPerMinute = 0
	}

	return &Service{
		store:        store,
		windows:      windows,
		banCache:     banCache,
		maxPerMinute: cfg.MaxPerMinute,
	}
}

// Submit validates and persists a new report. The prompt to the moderator
// channel is dispatched by the sweep, not here, so ingestion latency never
// depends on the notification channel.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (model.Report, int64, error) {
	if s.store == nil {
		return model.Report{}, 0, fmt.Errorf("report store is not configured")
	}
	if strings.TrimSpace(input.Message) == "" || input.SubjectUserID <= 0 || input.ReporterAccountID <= 0 {
		return model.Report{}, 0, ErrInvalidInput
	}

	if s.windows != nil && s.maxPerMinute > 0 {
		count, ttl, err := s.windows.IncrementWindow(ctx, submitKey(input.ReporterAccountID), submitWindow)
		if err != nil {
			return model.Report{}, 0, fmt.Errorf("%w: %v", ErrTempUnavailable, err)
		}
		if count > int64(s.maxPerMinute) {
			return model.Report{}, ceilSeconds(ttl), ErrRateLimited
		}
	}

	report, err := s.store.Create(ctx, pgrepo.ReportDraft{
		Message:           input.Message,
		SubjectUserID:     input.SubjectUserID,
		ReporterAccountID: input.ReporterAccountID,
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrInvalidReport) {
			return model.Report{}, 0, ErrInvalidInput
		}
		return model.Report{}, 0, err
	}

	return report, 0, nil
}

// LookupBanned returns the most recent banned report for a subject. Pending
// and dismissed reports are invisible here. The ban cache is best-effort on
// both sides: errors and stale hits fall through to the store.
func (s *Service) LookupBanned(ctx context.Context, subjectUserID int64) (model.Report, error) {
	if s.store == nil {
		return model.Report{}, fmt.Errorf("report store is not configured")
	}
	if subjectUserID <= 0 {
		return model.Report{}, ErrInvalidInput
	}

	if s.banCache != nil {
		if reportID, ok, err := s.banCache.GetBannedReportID(ctx, subjectUserID); err == nil && ok {
			report, err := s.store.GetByID(ctx, reportID)
			if err == nil && report.Outcome != nil && *report.Outcome == enums.OutcomeBanned {
				return report, nil
			}
		}
	}

	report, err := s.store.LatestBannedBySubject(ctx, subjectUserID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrReportNotFound) {
			return model.Report{}, ErrNotFound
		}
		return model.Report{}, err
	}

	if s.banCache != nil {
		_ = s.banCache.SetBanned(ctx, subjectUserID, report.ID)
	}

	return report, nil
}

func submitKey(accountID int64) string {
	return "rate:reports:min:" + strconv.FormatInt(accountID, 10)
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}
